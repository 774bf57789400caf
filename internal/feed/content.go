package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const (
	minExtractedLen = 100
	maxSummaryLen   = 2000
)

// ContentFetcher pulls full article text for entries whose feed omits a
// summary, via HTTP + readability extraction.
type ContentFetcher struct {
	client *http.Client
	log    *slog.Logger
}

// NewContentFetcher creates a content fetcher with the given per-request
// timeout.
func NewContentFetcher(timeout time.Duration, log *slog.Logger) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &ContentFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		log: log,
	}
}

// Fetch returns extracted article text for the link, or "" when nothing
// usable could be pulled. Failures here never fail the source.
func (f *ContentFetcher) Fetch(ctx context.Context, link string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "newslens/1.0 (news aggregator)")

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Debug("content fetch failed", "link", link, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	parsedURL, _ := url.Parse(link)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return ""
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minExtractedLen {
		return ""
	}
	if len(text) > maxSummaryLen {
		text = text[:maxSummaryLen]
	}
	return strings.Join(strings.Fields(text), " ")
}
