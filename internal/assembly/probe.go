package assembly

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ProbeDuration reads an audio file's duration with ffprobe.
func ProbeDuration(ctx context.Context, r Runner, path string) (time.Duration, error) {
	out, err := runner(r)(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", path, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
