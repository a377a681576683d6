package orchestrator

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

type fakeTool struct {
	name   string
	calls  *[]string
	output string
	err    error
}

func (f *fakeTool) Run(_ context.Context, _, outputDir string, _ []string) (string, error) {
	*f.calls = append(*f.calls, f.name)
	if f.err != nil {
		return f.output, f.err
	}
	// Leave something behind so the next stage's precondition holds.
	if outputDir != "" {
		if err := os.WriteFile(filepath.Join(outputDir, f.name+".csv"), []byte("data"), 0o644); err != nil {
			return "", err
		}
	}
	return f.output, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed.wav"), []byte("riff"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRun_ExecutesInOrder(t *testing.T) {
	t.Parallel()

	in := seedDir(t)
	work := t.TempDir()
	var calls []string

	a := filepath.Join(work, "a")
	b := filepath.Join(work, "b")
	o := &Orchestrator{
		Log: quietLogger(),
		Stages: []Stage{
			{Name: "first", InputDir: in, OutputDir: a, Tool: &fakeTool{name: "first", calls: &calls}},
			{Name: "second", InputDir: a, OutputDir: b, Tool: &fakeTool{name: "second", calls: &calls}},
		},
	}
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Join(calls, ",") != "first,second" {
		t.Fatalf("call order = %v", calls)
	}
}

func TestRun_HaltsOnFirstFailure(t *testing.T) {
	t.Parallel()

	in := seedDir(t)
	work := t.TempDir()
	var calls []string

	boom := errors.New("exit status 2")
	o := &Orchestrator{
		Log: quietLogger(),
		Stages: []Stage{
			{Name: "broken", InputDir: in, OutputDir: filepath.Join(work, "a"),
				Tool: &fakeTool{name: "broken", calls: &calls, output: "Praat: no pitch candidates", err: boom}},
			{Name: "never", InputDir: in, OutputDir: filepath.Join(work, "b"),
				Tool: &fakeTool{name: "never", calls: &calls}},
		},
	}

	err := o.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("err = %T, want *StageError", err)
	}
	if se.Stage != "broken" {
		t.Fatalf("failing stage = %q", se.Stage)
	}
	if !errors.Is(err, boom) {
		t.Fatal("cause not preserved through Unwrap")
	}
	if !strings.Contains(err.Error(), "Praat: no pitch candidates") {
		t.Fatalf("tool output not surfaced verbatim: %q", err.Error())
	}
	if strings.Join(calls, ",") != "broken" {
		t.Fatalf("later stage ran after failure: %v", calls)
	}
}

func TestRun_DefaultPreconditionRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	empty := t.TempDir()
	var calls []string

	o := &Orchestrator{
		Log: quietLogger(),
		Stages: []Stage{
			{Name: "only", InputDir: empty, OutputDir: filepath.Join(t.TempDir(), "out"),
				Tool: &fakeTool{name: "only", calls: &calls}},
		},
	}

	err := o.Run(context.Background())
	var se *StageError
	if !errors.As(err, &se) || se.Stage != "only" {
		t.Fatalf("err = %v, want StageError for stage \"only\"", err)
	}
	if len(calls) != 0 {
		t.Fatalf("tool ran despite failed precondition: %v", calls)
	}
}

func TestRun_CustomPrecondition(t *testing.T) {
	t.Parallel()

	var calls []string
	o := &Orchestrator{
		Log: quietLogger(),
		Stages: []Stage{
			{
				Name:         "gated",
				InputDir:     t.TempDir(), // empty, would fail the default check
				Tool:         &fakeTool{name: "gated", calls: &calls},
				Precondition: func() error { return nil },
			},
		},
	}
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("calls = %v", calls)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls []string
	o := &Orchestrator{
		Log: quietLogger(),
		Stages: []Stage{
			{Name: "any", InputDir: seedDir(t), Tool: &fakeTool{name: "any", calls: &calls}},
		},
	}
	if err := o.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(calls) != 0 {
		t.Fatalf("tool ran with canceled context: %v", calls)
	}
}

func TestCleanup_RemovesIntermediates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact := filepath.Join(dir, "pauseTable.csv")
	if err := os.WriteFile(artifact, []byte("speaker;duration\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	intermediate := filepath.Join(dir, "transcripts")
	if err := os.MkdirAll(intermediate, 0o755); err != nil {
		t.Fatal(err)
	}

	o := &Orchestrator{Log: quietLogger()}
	if err := o.Cleanup([]string{artifact}, []string{intermediate}); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(intermediate); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("intermediate directory survived cleanup")
	}
}

func TestCleanup_GuardOnMissingArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	intermediate := filepath.Join(dir, "transcripts")
	if err := os.MkdirAll(intermediate, 0o755); err != nil {
		t.Fatal(err)
	}

	o := &Orchestrator{Log: quietLogger()}
	err := o.Cleanup([]string{filepath.Join(dir, "pauseTable.csv")}, []string{intermediate})
	if !errors.Is(err, ErrCleanupGuard) {
		t.Fatalf("err = %v, want ErrCleanupGuard", err)
	}
	if _, err := os.Stat(intermediate); err != nil {
		t.Fatal("intermediates removed although the guard tripped")
	}
}

func TestCleanup_GuardOnEmptyArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact := filepath.Join(dir, "stressTable.csv")
	if err := os.WriteFile(artifact, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	o := &Orchestrator{Log: quietLogger()}
	if err := o.Cleanup([]string{artifact}, nil); !errors.Is(err, ErrCleanupGuard) {
		t.Fatalf("err = %v, want ErrCleanupGuard", err)
	}
}
