package ports

import (
	"context"

	"github.com/prosodylab/fluentcut/internal/types"
)

// AudioTool cuts and inspects waveform files.
type AudioTool interface {
	CutSegment(ctx context.Context, inPath string, start, end float64, outPath string) error
	ProbeDuration(ctx context.Context, inPath string) (float64, error)
}

// StageTool is one external analyzer invoked by the orchestrator.
// The returned string is the tool's combined output; on failure it is
// surfaced verbatim in the stage error.
type StageTool interface {
	Run(ctx context.Context, inputDir, outputDir string, params []string) (string, error)
}

// RubricGrader scores a transcript against the four-category rubric.
// Whatever level or points the grader proposes are advisory; the
// rubric mapping table has the final word.
type RubricGrader interface {
	Grade(ctx context.Context, transcript string) (types.RubricScore, error)
}
