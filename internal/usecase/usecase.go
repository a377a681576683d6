package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/prosodylab/fluentcut/internal/aggregate"
	"github.com/prosodylab/fluentcut/internal/domain/scoring"
	"github.com/prosodylab/fluentcut/internal/domain/segment"
	"github.com/prosodylab/fluentcut/internal/orchestrator"
	"github.com/prosodylab/fluentcut/internal/ports"
	"github.com/prosodylab/fluentcut/internal/types"
)

type Deps struct {
	Audio ports.AudioTool
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	AudioDir string
	WorkDir  string

	Policy   segment.TrimPolicy
	Tiers    int
	AudioExt string
	LabelExt string
	Prefix   string
	Sep      string

	Stages    []orchestrator.Stage
	TablesDir string

	// KeepIntermediates skips cleanup even on full success.
	KeepIntermediates bool

	Log *logrus.Logger
}

type Result struct {
	Segments []types.SegmentRecord
	Speakers []types.SpeakerResult
}

// SegmentsDirName is where the extractor output lives under WorkDir.
// It doubles as the first stage's input and survives cleanup together
// with its index table.
const SegmentsDirName = "segments"

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := in.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	segDir := filepath.Join(in.WorkDir, SegmentsDirName)
	ext := &segment.Extractor{
		Audio:    u.d.Audio,
		Policy:   in.Policy,
		Tiers:    in.Tiers,
		AudioExt: in.AudioExt,
		LabelExt: in.LabelExt,
		Prefix:   in.Prefix,
		Sep:      in.Sep,
		Log:      log,
	}
	records, err := ext.Run(ctx, in.AudioDir, segDir)
	if err != nil {
		return Result{}, fmt.Errorf("extract segments: %w", err)
	}
	log.WithField("segments", len(records)).Info("extraction finished")

	orch := &orchestrator.Orchestrator{Stages: in.Stages, Log: log}
	if err := orch.Run(ctx); err != nil {
		return Result{}, err
	}

	if !in.KeepIntermediates {
		terminal := []string{
			filepath.Join(in.TablesDir, aggregate.PauseTableName),
			filepath.Join(in.TablesDir, aggregate.StressTableName),
		}
		if err := orch.Cleanup(terminal, intermediateDirs(in.Stages, in.TablesDir, segDir)); err != nil {
			// The analysis itself may still be scoreable; keep the
			// intermediates around and say so.
			log.WithError(err).Error("cleanup refused, intermediate directories preserved")
		}
	}

	tables, err := aggregate.Load(in.TablesDir)
	if err != nil {
		return Result{}, err
	}

	res := Result{Segments: records}
	for _, f := range tables.PerSpeaker() {
		sr, err := scoring.Evaluate(f)
		if errors.Is(err, scoring.ErrNoData) {
			log.WithField("speaker", f.Speaker).Warn("no usable categories, speaker skipped")
			continue
		}
		if err != nil {
			return Result{}, err
		}
		res.Speakers = append(res.Speakers, sr)
	}
	if len(res.Speakers) == 0 {
		return Result{}, scoring.ErrNoData
	}
	return res, nil
}

func intermediateDirs(stages []orchestrator.Stage, tablesDir, segDir string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, st := range stages {
		d := st.OutputDir
		if d == "" || d == tablesDir || d == segDir {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
