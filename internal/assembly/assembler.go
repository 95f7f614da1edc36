package assembly

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

// Result describes the file an assembly produced.
type Result struct {
	Path string
	// Degraded is set when every merge strategy failed and Path is only the
	// first input.
	Degraded bool
	// Strategy names the merger that produced Path, or "" when none ran.
	Strategy string
}

// Assembler merges clips with a primary strategy and falls back to a
// second one, then to the first clip alone.
type Assembler struct {
	Primary  Merger
	Fallback Merger
	Logger   *slog.Logger
}

// NewAssembler returns the default assembler: filter-graph re-encoding,
// then stream copy, both run through r.
func NewAssembler(r Runner, logger *slog.Logger) *Assembler {
	return &Assembler{
		Primary:  &FilterGraph{Run: r},
		Fallback: &StreamCopy{Run: r},
		Logger:   logger,
	}
}

// Assemble joins files, in order, into output. A single file is returned as
// is. Inputs are deleted once a merge succeeds; when every strategy fails
// the inputs are kept and the first one is returned with Degraded set.
func (a *Assembler) Assemble(ctx context.Context, files []string, output string) (Result, error) {
	switch len(files) {
	case 0:
		return Result{}, errors.New("assemble: no audio files")
	case 1:
		return Result{Path: files[0]}, nil
	}
	log := a.Logger
	if log == nil {
		log = slog.Default()
	}

	for _, m := range []Merger{a.Primary, a.Fallback} {
		if m == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		err := m.Merge(ctx, files, output)
		if err == nil {
			removeInputs(files, output, log)
			log.DebugContext(ctx, "audio merged", "strategy", m.Name(), "files", len(files), "output", output)
			return Result{Path: output, Strategy: m.Name()}, nil
		}
		log.WarnContext(ctx, "merge strategy failed", "strategy", m.Name(), "files", len(files), "error", err)
		os.Remove(output)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	log.WarnContext(ctx, "all merge strategies failed, using first segment only",
		"files", len(files),
		"first", files[0],
	)
	return Result{Path: files[0], Degraded: true}, nil
}

func removeInputs(files []string, output string, log *slog.Logger) {
	for _, f := range files {
		if f == output {
			continue
		}
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("remove merged input", "path", f, "error", err)
		}
	}
}
