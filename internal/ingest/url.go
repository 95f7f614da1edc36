package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/apresai/podcraft/internal/retry"
)

// ExtractURL reads a web page through the Jina reader, which returns the
// page as markdown. When Jina stays unavailable the page is fetched
// directly and its main content extracted locally.
func (x *Extractor) ExtractURL(ctx context.Context, source string) (string, error) {
	parsed, err := url.Parse(source)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid URL %q", source)
	}

	text, jinaErr := x.jina(ctx, source)
	if jinaErr == nil {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	x.Logger.WarnContext(ctx, "jina reader failed, falling back to direct fetch", "url", source, "error", jinaErr)

	text, err = x.readable(ctx, parsed)
	if err != nil {
		return "", fmt.Errorf("could not fetch URL %s: %w (jina reader: %v)", source, err, jinaErr)
	}
	return text, nil
}

func (x *Extractor) jina(ctx context.Context, source string) (string, error) {
	var text string
	err := x.JinaRetry.Do(ctx, func(ctx context.Context) error {
		body, err := x.get(ctx, x.JinaURL+source)
		if err != nil {
			x.Logger.DebugContext(ctx, "jina reader attempt failed", "url", source, "error", err)
			return err
		}
		text = string(body)
		return nil
	})
	return text, err
}

func (x *Extractor) readable(ctx context.Context, parsed *url.URL) (string, error) {
	body, err := x.get(ctx, parsed.String())
	if err != nil {
		return "", err
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return "", fmt.Errorf("could not extract article: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if article.Title != "" && text != "" {
		text = article.Title + "\n\n" + text
	}
	return text, nil
}

func (x *Extractor) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	client := x.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP %d", resp.StatusCode)
		// A missing page will not appear on retry.
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxInputSize))
}
