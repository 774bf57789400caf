// Package render writes analysis reports to disk as markdown or HTML.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"newslens/internal/errs"
	"newslens/internal/pipeline"
)

var md = goldmark.New()

// Format selects the report output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Writer renders synthesis reports into a directory.
type Writer struct {
	dir    string
	format Format
}

// NewWriter returns a Writer that renders into dir. An unknown format
// falls back to markdown.
func NewWriter(dir string, format Format) *Writer {
	if format != FormatHTML {
		format = FormatMarkdown
	}
	return &Writer{dir: dir, format: format}
}

// Render writes a report for the synthesis and returns its path.
func (w *Writer) Render(synthesis string, meta pipeline.Metadata) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", &errs.OutputError{Err: fmt.Errorf("creating output directory: %w", err)}
	}

	body := buildReport(synthesis, meta)

	ext := "md"
	if w.format == FormatHTML {
		ext = "html"
		var buf bytes.Buffer
		if err := md.Convert([]byte(body), &buf); err != nil {
			return "", &errs.OutputError{Err: fmt.Errorf("converting markdown: %w", err)}
		}
		body = buf.String()
	}

	generated := meta.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	name := fmt.Sprintf("analysis_%s.%s", generated.Format("20060102_150405"), ext)
	path := filepath.Join(w.dir, name)

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", &errs.OutputError{Err: fmt.Errorf("writing report: %w", err)}
	}
	return path, nil
}

// buildReport assembles the markdown document: a metadata header
// followed by the synthesis body.
func buildReport(synthesis string, meta pipeline.Metadata) string {
	var b strings.Builder

	title := "News Analysis"
	if meta.Topic != "" {
		title = fmt.Sprintf("News Analysis: %s", meta.Topic)
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	generated := meta.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	fmt.Fprintf(&b, "- Generated: %s\n", generated.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Items analyzed: %d\n", meta.ItemCount)
	fmt.Fprintf(&b, "- Sources: %d\n", len(meta.Sources))
	if len(meta.FailedSources) > 0 {
		fmt.Fprintf(&b, "- Failed sources: %s\n", strings.Join(meta.FailedSources, ", "))
	}
	if meta.SessionID != "" {
		fmt.Fprintf(&b, "- Session: %s\n", meta.SessionID)
	}

	b.WriteString("\n---\n\n")
	b.WriteString(strings.TrimSpace(synthesis))
	b.WriteString("\n")
	return b.String()
}
