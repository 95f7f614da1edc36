package pipeline

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	maxFileSlug = 30
	maxURLSlug  = 20
)

var slugUnsafe = regexp.MustCompile(`[^\p{L}\p{N}_\-]`)

// Session is the working directory of one request.
type Session struct {
	ID   string
	Slug string
	Dir  string
}

// OutputPath is where the final podcast is written.
func (s Session) OutputPath() string {
	return filepath.Join(s.Dir, s.Slug+"_"+s.ID+".mp3")
}

// Slug names a session after its input: the first file's name without
// extension, else the start of the URL, else "url". Characters other than
// letters, digits, "_" and "-" become underscores.
func Slug(files []string, url string) string {
	if len(files) > 0 {
		base := filepath.Base(files[0])
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		return truncate(slugUnsafe.ReplaceAllString(stem, "_"), maxFileSlug)
	}
	if url != "" {
		return slugUnsafe.ReplaceAllString(truncate(url, maxURLSlug), "_")
	}
	return "url"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// newSession creates the session directory under cacheDir.
func newSession(cacheDir, slug string, now time.Time) (Session, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}
	s := Session{ID: id.String(), Slug: slug}
	s.Dir = filepath.Join(cacheDir, slug+"_"+s.ID)
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return Session{}, fmt.Errorf("create session dir: %w", err)
	}
	return s, nil
}

// Housekeep removes session directories under cacheDir last modified more
// than maxAge ago. Only names containing "_" are considered sessions.
func Housekeep(ctx context.Context, cacheDir string, maxAge time.Duration, now time.Time) ([]string, error) {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var removed []string
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if !e.IsDir() || !strings.Contains(e.Name(), "_") {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		path := filepath.Join(cacheDir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

// CleanAll empties cacheDir and recreates it.
func CleanAll(cacheDir string) error {
	if err := os.RemoveAll(cacheDir); err != nil {
		return fmt.Errorf("remove cache dir: %w", err)
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("recreate cache dir: %w", err)
	}
	return nil
}
