package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prosodylab/fluentcut/internal/domain/segment"
	"github.com/prosodylab/fluentcut/internal/orchestrator"
	"github.com/prosodylab/fluentcut/internal/ports"
	"github.com/prosodylab/fluentcut/internal/ports/adapters/exttool"
	"github.com/prosodylab/fluentcut/internal/ports/adapters/ffmpeg"
	"github.com/prosodylab/fluentcut/internal/types"
	"github.com/prosodylab/fluentcut/internal/usecase"
)

// StageSpec describes one external analysis stage as configured.
// Input and Output are directory names resolved under WorkDir; an
// empty Input chains to the previous stage's output (the extractor's
// segments directory for the first stage).
type StageSpec struct {
	Name    string
	Command string
	Args    []string
	Params  []string
	Input   string
	Output  string
}

type Config struct {
	AudioDir string
	WorkDir  string
	OutDir   string

	Tiers          int
	Margin         float64
	MinDuration    float64
	ExcludedLabels []string
	AudioExt       string
	LabelExt       string
	Prefix         string
	Sep            string

	Stages    []StageSpec
	TablesDir string

	KeepIntermediates bool
	ExtractOnly       bool

	FFmpegPath  string
	FFprobePath string

	Log *logrus.Logger
}

func (c Config) Validate() error {
	if c.AudioDir == "" {
		return errors.New("audio dir is empty")
	}
	if _, err := os.Stat(c.AudioDir); err != nil {
		return fmt.Errorf("stat audio dir: %w", err)
	}
	if c.Margin < 0 {
		return fmt.Errorf("margin must be >= 0")
	}
	if c.MinDuration < 0 {
		return fmt.Errorf("min duration must be >= 0")
	}
	if c.Tiers < 0 {
		return fmt.Errorf("tiers must be >= 0")
	}
	seen := map[string]struct{}{}
	for _, st := range c.Stages {
		if st.Name == "" {
			return fmt.Errorf("stage with empty name")
		}
		if st.Command == "" {
			return fmt.Errorf("stage %q has no command", st.Name)
		}
		if _, dup := seen[st.Name]; dup {
			return fmt.Errorf("duplicate stage name %q", st.Name)
		}
		seen[st.Name] = struct{}{}
	}
	return nil
}

// Results is the file written at the end of an analyze run.
type Results struct {
	AudioDir    string                `json:"audio_dir"`
	GeneratedAt time.Time             `json:"generated_at"`
	Segments    []types.SegmentRecord `json:"segments"`
	Speakers    []types.SpeakerResult `json:"speakers"`
}

const ResultsFileName = "results.json"

func Run(ctx context.Context, cfg Config) error {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = "work"
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return err
	}
	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	tablesDir := cfg.TablesDir
	if tablesDir == "" {
		tablesDir = "tables"
	}
	tablesDir = resolveUnder(workDir, tablesDir)

	audio := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	stages := buildStages(cfg.Stages, workDir)

	policy := segment.TrimPolicy{
		Margin:         cfg.Margin,
		MinDuration:    cfg.MinDuration,
		ExcludedLabels: cfg.ExcludedLabels,
	}
	if policy.ExcludedLabels == nil {
		policy.ExcludedLabels = segment.DefaultExcludedLabels
	}

	if cfg.ExtractOnly {
		ext := &segment.Extractor{
			Audio:    audio,
			Policy:   policy,
			Tiers:    cfg.Tiers,
			AudioExt: cfg.AudioExt,
			LabelExt: cfg.LabelExt,
			Prefix:   cfg.Prefix,
			Sep:      cfg.Sep,
			Log:      log,
		}
		records, err := ext.Run(ctx, cfg.AudioDir, filepath.Join(workDir, usecase.SegmentsDirName))
		if err != nil {
			return err
		}
		log.WithField("segments", len(records)).Info("extraction finished")
		return nil
	}

	uc := usecase.New(usecase.Deps{Audio: audio})
	res, err := uc.Run(ctx, usecase.Input{
		AudioDir:          cfg.AudioDir,
		WorkDir:           workDir,
		Policy:            policy,
		Tiers:             cfg.Tiers,
		AudioExt:          cfg.AudioExt,
		LabelExt:          cfg.LabelExt,
		Prefix:            cfg.Prefix,
		Sep:               cfg.Sep,
		Stages:            stages,
		TablesDir:         tablesDir,
		KeepIntermediates: cfg.KeepIntermediates,
		Log:               log,
	})
	if err != nil {
		return err
	}

	path := filepath.Join(outDir, ResultsFileName)
	if err := WriteResults(path, Results{
		AudioDir:    cfg.AudioDir,
		GeneratedAt: time.Now().UTC(),
		Segments:    res.Segments,
		Speakers:    res.Speakers,
	}); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"speakers": len(res.Speakers), "path": path}).Info("results written")
	return nil
}

func WriteResults(path string, r Results) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// buildStages resolves directory chaining and wraps each command in
// an exttool adapter.
func buildStages(specs []StageSpec, workDir string) []orchestrator.Stage {
	prev := usecase.SegmentsDirName
	out := make([]orchestrator.Stage, 0, len(specs))
	for _, sp := range specs {
		in := sp.Input
		if in == "" {
			in = prev
		}
		outDir := sp.Output
		if outDir == "" {
			outDir = sp.Name
		}
		var tool ports.StageTool = exttool.New(sp.Command, sp.Args...)
		out = append(out, orchestrator.Stage{
			Name:      sp.Name,
			InputDir:  resolveUnder(workDir, in),
			OutputDir: resolveUnder(workDir, outDir),
			Params:    sp.Params,
			Tool:      tool,
		})
		prev = outDir
	}
	return out
}

func resolveUnder(workDir, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(workDir, dir)
}
