package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"newslens/internal/errs"
)

const defaultMaxPerSource = 10

// RSSFetcher fetches and validates items from RSS/Atom feeds.
type RSSFetcher struct {
	parser   *gofeed.Parser
	maxItems int
	content  *ContentFetcher
	log      *slog.Logger
}

// NewRSSFetcher creates a fetcher capped at maxItems entries per source.
// content may be nil to disable the full-text fallback for summary-less
// entries.
func NewRSSFetcher(maxItems int, content *ContentFetcher, log *slog.Logger) *RSSFetcher {
	if maxItems <= 0 {
		maxItems = defaultMaxPerSource
	}
	if log == nil {
		log = slog.Default()
	}
	return &RSSFetcher{
		parser:   gofeed.NewParser(),
		maxItems: maxItems,
		content:  content,
		log:      log,
	}
}

// Fetch pulls items from one source. It returns either a non-empty list of
// validated items or a FetchError, never an empty success.
func (f *RSSFetcher) Fetch(ctx context.Context, src Source) ([]Item, error) {
	parsed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, &errs.FetchError{Source: src.URL, Err: err}
	}
	if len(parsed.Items) == 0 {
		return nil, &errs.FetchError{Source: src.URL, Err: fmt.Errorf("no entries in feed")}
	}

	name := src.Name
	if name == "" {
		name = extractSourceName(src.URL)
	}

	var items []Item
	for _, entry := range parsed.Items {
		if len(items) >= f.maxItems {
			break
		}
		item := parseEntry(entry, src.URL, name)
		if item == nil {
			continue
		}
		if item.Summary == "" && f.content != nil {
			item.Summary = f.content.Fetch(ctx, item.Link)
		}
		items = append(items, *item)
	}

	if len(items) == 0 {
		return nil, &errs.FetchError{Source: src.URL, Err: fmt.Errorf("no valid items could be extracted")}
	}

	f.log.Debug("feed parsed", "source", name, "items", len(items))
	return items, nil
}

// parseEntry converts a feed entry into an Item, or nil when the entry
// lacks a title or link.
func parseEntry(entry *gofeed.Item, source, sourceName string) *Item {
	link := entry.Link
	if link == "" {
		link = entry.GUID
	}
	title := strings.TrimSpace(entry.Title)
	if title == "" || link == "" {
		return nil
	}

	published := entry.Published
	if published == "" {
		published = entry.Updated
	}
	if published == "" && entry.PublishedParsed != nil {
		published = entry.PublishedParsed.Format(time.RFC3339)
	}
	if published == "" {
		published = time.Now().Format(time.RFC3339)
	}

	summary := entry.Description
	if summary == "" {
		summary = entry.Content
	}
	summary = stripHTML(summary)

	var authors []string
	for _, a := range entry.Authors {
		if a != nil && a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	var tags []string
	for _, c := range entry.Categories {
		if c != "" {
			tags = append(tags, c)
		}
	}

	return &Item{
		Title:      title,
		Link:       link,
		Summary:    summary,
		Published:  published,
		Source:     source,
		SourceName: sourceName,
		Authors:    authors,
		Tags:       tags,
	}
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// extractSourceName derives a readable display name from a feed URL.
func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	if name == "" {
		return feedURL
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
