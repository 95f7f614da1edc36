package ingest

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/apresai/podcraft/internal/retry"
)

func testExtractor() *Extractor {
	x := NewExtractor(slog.New(slog.NewTextHandler(io.Discard, nil)))
	x.JinaRetry = retry.Policy{Attempts: 3}
	return x
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func writeDocx(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("word/document.xml")
	io.WriteString(w, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>First </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>line.</w:t></w:r></w:p>
</w:body></w:document>`)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return p
}

func TestExtractFiles(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "a.txt", "alpha\n"),
		writeDocx(t, dir, "b.docx"),
		writeFile(t, dir, "c.md", "# gamma"),
	}

	got, err := testExtractor().Extract(context.Background(), files, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "alpha\n\nFirst paragraph.\nSecond\tline.\n\n# gamma"
	if got != want {
		t.Errorf("Extract =\n%q\nwant\n%q", got, want)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "slides.pptx", "x")

	_, err := testExtractor().Extract(context.Background(), []string{p}, "")
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) || ufe.Ext != ".pptx" {
		t.Fatalf("err = %v, want UnsupportedFormatError", err)
	}
}

func TestExtractNoInput(t *testing.T) {
	_, err := testExtractor().Extract(context.Background(), nil, "")
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("err = %v, want ErrNoText", err)
	}
}

func TestExtractDocxWithoutBody(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.docx")
	f, _ := os.Create(p)
	zw := zip.NewWriter(f)
	zw.Create("other.xml")
	zw.Close()
	f.Close()

	if _, err := testExtractor().ExtractFile(context.Background(), p); err == nil {
		t.Fatal("expected error for docx without document.xml")
	}
}

func TestExtractURLViaJina(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path != "/https://example.com/post" {
			t.Errorf("path = %s", r.URL.Path)
		}
		io.WriteString(w, "Title: Post\n\nMarkdown body")
	}))
	defer srv.Close()

	x := testExtractor()
	x.JinaURL = srv.URL + "/"
	got, err := x.Extract(context.Background(), nil, "https://example.com/post")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Title: Post\n\nMarkdown body" {
		t.Errorf("text = %q", got)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestExtractURLFallsBackToReadability(t *testing.T) {
	var jinaCalls atomic.Int32
	jina := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jinaCalls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer jina.Close()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><head><title>Rivers</title></head><body><nav>menu</nav><article><h1>Rivers</h1>
<p>Rivers carry water from the mountains to the sea. They shape valleys, feed farmland and have supported human settlement for thousands of years.</p>
<p>The longest rivers cross several countries, which makes sharing their water a question of diplomacy as much as of engineering.</p>
</article></body></html>`)
	}))
	defer page.Close()

	x := testExtractor()
	x.JinaURL = jina.URL + "/"
	got, err := x.ExtractURL(context.Background(), page.URL+"/rivers")
	if err != nil {
		t.Fatalf("ExtractURL: %v", err)
	}
	if !strings.Contains(got, "Rivers carry water from the mountains to the sea.") {
		t.Errorf("text = %q", got)
	}
	if jinaCalls.Load() != 3 {
		t.Errorf("jina calls = %d, want 3", jinaCalls.Load())
	}
}

func TestExtractURLInvalid(t *testing.T) {
	if _, err := testExtractor().ExtractURL(context.Background(), "not a url"); err == nil {
		t.Fatal("expected error")
	}
}
