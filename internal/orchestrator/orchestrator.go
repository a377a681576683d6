// Package orchestrator runs the ordered sequence of external analysis
// stages. Stages are black boxes: each reads one directory tree,
// writes another, and reports success through its exit status.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/prosodylab/fluentcut/internal/ports"
)

// Stage is one named unit of the pipeline. The zero Precondition
// requires a non-empty input directory, which is what every stage
// needs from its predecessor.
type Stage struct {
	Name         string
	InputDir     string
	OutputDir    string
	Params       []string
	Tool         ports.StageTool
	Precondition func() error
}

// StageError reports which stage failed and carries the tool's
// diagnostic output verbatim.
type StageError struct {
	Stage  string
	Output string
	Err    error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("stage %q failed: %v", e.Stage, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *StageError) Unwrap() error { return e.Err }

// ErrCleanupGuard refuses intermediate cleanup while terminal
// artifacts are missing, so a broken run keeps its evidence.
var ErrCleanupGuard = errors.New("terminal artifact missing or empty, refusing cleanup")

type Orchestrator struct {
	Stages []Stage
	Log    *logrus.Logger
}

// Run executes the stages strictly in order and halts at the first
// failure. Partial output of a failed or killed stage stays on disk.
func (o *Orchestrator) Run(ctx context.Context) error {
	for _, st := range o.Stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		pre := st.Precondition
		if pre == nil {
			in := st.InputDir
			pre = func() error { return requireNonEmptyDir(in) }
		}
		if err := pre(); err != nil {
			return &StageError{Stage: st.Name, Err: fmt.Errorf("precondition: %w", err)}
		}

		if st.OutputDir != "" {
			if err := os.MkdirAll(st.OutputDir, 0o755); err != nil {
				return &StageError{Stage: st.Name, Err: err}
			}
		}

		o.logf().WithField("stage", st.Name).Info("running stage")
		out, err := st.Tool.Run(ctx, st.InputDir, st.OutputDir, st.Params)
		if err != nil {
			return &StageError{Stage: st.Name, Output: out, Err: err}
		}
	}
	return nil
}

// Cleanup removes the intermediate directories, but only after every
// terminal artifact exists with content. Never called on a failed
// run.
func (o *Orchestrator) Cleanup(terminalArtifacts, intermediateDirs []string) error {
	for _, p := range terminalArtifacts {
		info, err := os.Stat(p)
		if err != nil || info.Size() == 0 {
			return fmt.Errorf("%w: %s", ErrCleanupGuard, p)
		}
	}
	for _, dir := range intermediateDirs {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
		o.logf().WithField("dir", dir).Debug("removed intermediate directory")
	}
	return nil
}

func (o *Orchestrator) logf() *logrus.Logger {
	if o.Log != nil {
		return o.Log
	}
	return logrus.StandardLogger()
}

func requireNonEmptyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("input dir %s is empty", dir)
	}
	return nil
}
