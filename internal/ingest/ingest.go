// Package ingest extracts plain text from the documents and web pages a
// podcast is built from.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apresai/podcraft/internal/retry"
)

const (
	// maxInputSize is the maximum allowed size for one input (25 MB).
	maxInputSize = 25 * 1024 * 1024

	JinaReaderURL = "https://r.jina.ai/"
)

// JinaRetry is the retry policy for the Jina reader.
var JinaRetry = retry.Policy{Attempts: 3, Delay: 5 * time.Second}

// ErrNoText is returned when no input produced any text.
var ErrNoText = errors.New("no text could be extracted from the input")

// UnsupportedFormatError reports a file whose extension cannot be read.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type %q (%s): only PDF, Word (.docx), TXT and Markdown files are supported", e.Ext, filepath.Base(e.Path))
}

// Extractor reads files and URLs.
type Extractor struct {
	HTTPClient *http.Client
	JinaURL    string
	JinaRetry  retry.Policy
	Logger     *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
		JinaURL:    JinaReaderURL,
		JinaRetry:  JinaRetry,
		Logger:     logger,
	}
}

// Extract reads files and url with a default Extractor.
func Extract(ctx context.Context, files []string, url string) (string, error) {
	return NewExtractor(nil).Extract(ctx, files, url)
}

// Extract returns the text of every file, in order, followed by the text of
// url, separated by blank lines. Either input may be empty but not both.
func (x *Extractor) Extract(ctx context.Context, files []string, url string) (string, error) {
	var parts []string
	for _, f := range files {
		text, err := x.ExtractFile(ctx, f)
		if err != nil {
			return "", err
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		} else {
			x.Logger.WarnContext(ctx, "file produced no text", "file", filepath.Base(f))
		}
	}

	if url = strings.TrimSpace(url); url != "" {
		text, err := x.ExtractURL(ctx, url)
		if err != nil {
			return "", err
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		} else {
			x.Logger.WarnContext(ctx, "url produced no text", "url", url)
		}
	}

	if len(parts) == 0 {
		return "", ErrNoText
	}
	return strings.Join(parts, "\n\n"), nil
}

// ExtractFile reads one file, choosing the reader by extension.
func (x *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var read func(string) (string, error)
	switch ext {
	case ".pdf":
		read = pdfText
	case ".docx":
		read = docxText
	case ".txt", ".md", ".markdown":
		read = plainText
	default:
		return "", &UnsupportedFormatError{Path: path, Ext: ext}
	}

	if err := validateFile(path); err != nil {
		return "", err
	}
	start := time.Now()
	text, err := read(path)
	if err != nil {
		return "", err
	}
	x.Logger.DebugContext(ctx, "file extracted",
		"file", filepath.Base(path),
		"chars", len([]rune(text)),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return text, nil
}

func plainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read file %s: %w", path, err)
	}
	return string(data), nil
}

func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() > maxInputSize {
		return fmt.Errorf("%s is too large (%d MB, max %d MB)", path, info.Size()/(1024*1024), maxInputSize/(1024*1024))
	}
	return nil
}
