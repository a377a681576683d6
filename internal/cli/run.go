package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/prosodylab/fluentcut/internal/aggregate"
	cfgpkg "github.com/prosodylab/fluentcut/internal/config"
	"github.com/prosodylab/fluentcut/internal/domain/rubric"
	"github.com/prosodylab/fluentcut/internal/domain/scoring"
	"github.com/prosodylab/fluentcut/internal/pipeline"
	"github.com/prosodylab/fluentcut/internal/ports/adapters/openrouter"
	"github.com/prosodylab/fluentcut/internal/types"
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <audioDir>",
		Short: "Cut labeled intervals into per-speaker audio segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, args[0], true)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <audioDir>",
		Short: "Full run: extract, analysis stages, aggregate, score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, args[0], false)
		},
	}
	addRunFlags(cmd)
	cmd.Flags().Bool("keep-intermediates", false, "Keep intermediate stage directories")
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("work", "work", "Working directory for intermediate artifacts")
	cmd.Flags().String("out", "out", "Output directory for results")
}

func runPipeline(cmd *cobra.Command, audioDir string, extractOnly bool) error {
	conf, log, err := setup(cmd)
	if err != nil {
		return err
	}

	workDir, _ := cmd.Flags().GetString("work")
	outDir, _ := cmd.Flags().GetString("out")
	keep := false
	if cmd.Flags().Lookup("keep-intermediates") != nil {
		keep, _ = cmd.Flags().GetBool("keep-intermediates")
	}

	absAudio, err := filepath.Abs(audioDir)
	if err != nil {
		return err
	}

	stages := make([]pipeline.StageSpec, 0, len(conf.Stages))
	for _, st := range conf.Stages {
		stages = append(stages, pipeline.StageSpec{
			Name:    st.Name,
			Command: st.Command,
			Args:    st.Args,
			Params:  st.Params,
			Input:   st.Input,
			Output:  st.Output,
		})
	}

	cfg := pipeline.Config{
		AudioDir:          absAudio,
		WorkDir:           workDir,
		OutDir:            outDir,
		Tiers:             conf.Extract.Tiers,
		Margin:            conf.Extract.Margin,
		MinDuration:       conf.Extract.MinDuration,
		ExcludedLabels:    conf.Extract.ExcludeLabels,
		AudioExt:          conf.Extract.AudioExt,
		LabelExt:          conf.Extract.LabelExt,
		Prefix:            conf.Extract.Prefix,
		Sep:               conf.Extract.Sep,
		Stages:            stages,
		TablesDir:         conf.TablesDir,
		KeepIntermediates: keep,
		ExtractOnly:       extractOnly,
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",
		Log:               log,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()
	return pipeline.Run(ctx, cfg)
}

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <tablesDir>",
		Short: "Score fluency from existing feature tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := setup(cmd)
			if err != nil {
				return err
			}

			tables, err := aggregate.Load(args[0])
			if err != nil {
				return err
			}

			var results []types.SpeakerResult
			for _, f := range tables.PerSpeaker() {
				sr, err := scoring.Evaluate(f)
				if errors.Is(err, scoring.ErrNoData) {
					log.WithField("speaker", f.Speaker).Warn("no usable categories, speaker skipped")
					continue
				}
				if err != nil {
					return err
				}
				results = append(results, sr)
			}
			if len(results) == 0 {
				return scoring.ErrNoData
			}
			return printJSON(cmd, results)
		},
	}
}

func newRubricCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rubric <transcript.txt>",
		Short: "Grade a transcript and map it onto a CEFR band",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, _, err := setup(cmd)
			if err != nil {
				return err
			}

			apiKey := os.Getenv("GRADER_API_KEY")
			if apiKey == "" {
				return errors.New("GRADER_API_KEY is required (set it in .env)")
			}
			if err := openrouter.ValidateBaseURL(conf.Grader.BaseURL, conf.Grader.AllowedHosts); err != nil {
				return err
			}

			prompt := ""
			if conf.Grader.PromptFile != "" {
				b, err := os.ReadFile(conf.Grader.PromptFile)
				if err != nil {
					return fmt.Errorf("read prompt template: %w", err)
				}
				prompt = string(b)
			}

			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			grader := openrouter.New(apiKey, conf.Grader.Model, conf.Grader.BaseURL, prompt)
			scores, err := grader.Grade(ctx, string(b))
			if err != nil {
				return err
			}

			res, err := rubric.Resolve(scores)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func setup(cmd *cobra.Command) (*cfgpkg.Root, *logrus.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	conf, err := cfgpkg.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	levelStr, _ := cmd.Flags().GetString("log-level")
	if levelStr == "" {
		levelStr = conf.Pipeline.LogLvl
	}
	log := logrus.New()
	if level, err := logrus.ParseLevel(levelStr); err == nil {
		log.SetLevel(level)
	}
	return conf, log, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
