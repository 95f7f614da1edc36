// Package progress reports pipeline progress to whoever is watching: a
// terminal bar for the CLI, a task record for the MCP server.
package progress

import "time"

// Stage identifies which pipeline stage is active.
type Stage string

const (
	StageExtract    Stage = "extract"
	StageScript     Stage = "script"
	StageSynthesize Stage = "synthesize"
	StageAssemble   Stage = "assemble"
	StageComplete   Stage = "complete"
)

// stageWeights place each stage inside the overall 0-1 range. Synthesis
// dominates wall time.
var stageWeights = map[Stage][2]float64{
	StageExtract:    {0.00, 0.05},
	StageScript:     {0.05, 0.30},
	StageSynthesize: {0.30, 0.90},
	StageAssemble:   {0.90, 1.00},
	StageComplete:   {1.00, 1.00},
}

// Event carries progress information from the pipeline to the renderer.
type Event struct {
	Stage   Stage
	Message string
	Percent float64 // overall, 0.0-1.0
	// Done and Total count units inside the stage, e.g. synthesized lines.
	Done    int
	Total   int
	Elapsed time.Duration
	Error   error

	// Set on StageComplete.
	OutputFile string
	Duration   time.Duration
	SizeMB     float64
	Degraded   bool
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback discards events.
func NopCallback(Event) {}

// NewEvent creates an Event for stage with Percent placed inside the
// stage's share of the run: done of total units finished.
func NewEvent(stage Stage, msg string, done, total int, start time.Time) Event {
	w := stageWeights[stage]
	frac := 0.0
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	return Event{
		Stage:   stage,
		Message: msg,
		Percent: w[0] + (w[1]-w[0])*frac,
		Done:    done,
		Total:   total,
		Elapsed: time.Since(start),
	}
}
