package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/apresai/podcraft/internal/pipeline"
)

const (
	audioPrefix      = "episodes"
	transcriptPrefix = "transcripts"
)

// Publisher uploads a finished result and records it in the catalog.
type Publisher struct {
	Storage *Storage
	Catalog *Catalog
	Logger  *slog.Logger
}

// Upload puts the audio and transcript of res in storage and returns the
// completion metadata. The transcript upload is best effort.
func (p *Publisher) Upload(ctx context.Context, id, title string, res *pipeline.Result) (Completion, error) {
	if res == nil || res.AudioPath == "" {
		return Completion{}, fmt.Errorf("no audio to publish")
	}

	done := Completion{
		Title:      title,
		Duration:   res.Duration,
		Characters: res.Characters,
		Degraded:   res.Degraded,
	}
	if info, err := os.Stat(res.AudioPath); err == nil {
		done.FileSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	key, url, err := p.Storage.Upload(ctx, audioPrefix, id, res.AudioPath)
	if err != nil {
		return Completion{}, err
	}
	done.AudioKey, done.AudioURL = key, url

	transcript := filepath.Join(res.SessionDir, "transcript.md")
	if _, err := os.Stat(transcript); err == nil {
		if _, turl, err := p.Storage.Upload(ctx, transcriptPrefix, id, transcript); err != nil {
			p.logger().WarnContext(ctx, "transcript upload failed", "episode_id", id, "error", err)
		} else {
			done.TranscriptURL = turl
		}
	}
	return done, nil
}

// Publish creates a catalog record for ep, uploads res and marks the
// record complete. ep.ID is generated when empty.
func (p *Publisher) Publish(ctx context.Context, ep Episode, res *pipeline.Result) (*Episode, error) {
	if ep.ID == "" {
		id, err := NewID()
		if err != nil {
			return nil, err
		}
		ep.ID = id
	}
	if err := p.Catalog.Create(ctx, ep); err != nil {
		return nil, err
	}

	done, err := p.Upload(ctx, ep.ID, ep.Title, res)
	if err != nil {
		if ferr := p.Catalog.Fail(ctx, ep.ID, err.Error()); ferr != nil {
			p.logger().WarnContext(ctx, "mark episode failed", "episode_id", ep.ID, "error", ferr)
		}
		return nil, err
	}
	if err := p.Catalog.Complete(ctx, ep.ID, done); err != nil {
		return nil, err
	}

	p.logger().InfoContext(ctx, "episode published", "episode_id", ep.ID, "audio_url", done.AudioURL)
	ep.Status = string(StatusComplete)
	ep.AudioKey, ep.AudioURL, ep.TranscriptURL = done.AudioKey, done.AudioURL, done.TranscriptURL
	ep.DurationSec = int(done.Duration.Seconds())
	ep.FileSizeMB = done.FileSizeMB
	ep.Characters = done.Characters
	ep.Degraded = done.Degraded
	return &ep, nil
}

func (p *Publisher) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
