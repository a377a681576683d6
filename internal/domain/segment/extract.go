package segment

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/prosodylab/fluentcut/internal/ports"
	"github.com/prosodylab/fluentcut/internal/textgrid"
	"github.com/prosodylab/fluentcut/internal/types"
)

// IndexFileName is the segment index table written at the end of an
// extraction run.
const IndexFileName = "segments.csv"

// Extractor cuts every accepted labeled interval of every audio file
// in a directory into its own audio segment. One Extractor value is
// one run; all iteration state lives in Run.
type Extractor struct {
	Audio  ports.AudioTool
	Policy TrimPolicy

	// Tiers caps how many label tiers are processed per file.
	// Zero means every tier the label file has.
	Tiers    int
	AudioExt string // ".wav"
	LabelExt string // ".TextGrid"
	Prefix   string
	Sep      string // between label and index, "_"

	Log *logrus.Logger
}

// Run processes audioDir and writes segments plus the index table
// into outDir. Missing or unreadable inputs skip that file; a failed
// segment write skips that segment. Both are logged, neither aborts
// the run.
func (e *Extractor) Run(ctx context.Context, audioDir, outDir string) ([]types.SegmentRecord, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(audioDir)
	if err != nil {
		return nil, fmt.Errorf("read audio dir: %w", err)
	}

	namer := NewNamer()
	var records []types.SegmentRecord

	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), e.AudioExt) {
			continue
		}
		base := strings.TrimSuffix(ent.Name(), e.AudioExt)
		audioPath := filepath.Join(audioDir, ent.Name())
		labelPath := filepath.Join(audioDir, base+e.LabelExt)

		tg, err := textgrid.Open(labelPath)
		if err != nil {
			e.logf().WithError(err).WithField("file", base).Warn("skipping file: no usable label file")
			continue
		}

		recs := e.extractFile(ctx, namer, tg, audioPath, base, outDir)
		records = append(records, recs...)
	}

	if err := WriteIndex(filepath.Join(outDir, IndexFileName), records); err != nil {
		return records, err
	}
	return records, nil
}

func (e *Extractor) extractFile(ctx context.Context, namer *Namer, tg *textgrid.File, audioPath, base, outDir string) []types.SegmentRecord {
	tiers := len(tg.Tiers)
	want := e.Tiers
	if want <= 0 || want > tiers {
		if want > tiers {
			e.logf().WithFields(logrus.Fields{"file": base, "want": want, "have": tiers}).
				Warn("fewer tiers than configured, processing what is there")
		}
		want = tiers
	}

	var out []types.SegmentRecord
	for ti := 0; ti < want; ti++ {
		tier := tg.Tiers[ti]
		speaker := tier.Name
		if speaker == "" {
			speaker = "tier" + strconv.Itoa(ti)
		}

		for _, iv := range tier.Intervals {
			labeled := types.LabeledInterval{
				Tier:  ti,
				Label: iv.Text,
				Start: iv.XMin,
				End:   iv.XMax,
			}
			trimmed, ok := e.Policy.Trim(labeled, tg.XMax)
			if !ok {
				continue
			}

			path, _ := namer.Reserve(outDir, e.Prefix, base, safeLabel(iv.Text), e.Sep, e.AudioExt)
			if err := e.Audio.CutSegment(ctx, audioPath, trimmed.Start, trimmed.End, path); err != nil {
				e.logf().WithError(err).WithField("segment", filepath.Base(path)).
					Warn("segment write failed, continuing")
				namer.Release(path)
				continue
			}

			out = append(out, types.SegmentRecord{
				File:     base,
				Speaker:  speaker,
				Segment:  filepath.Base(path),
				Start:    round3(trimmed.Start),
				End:      round3(trimmed.End),
				Duration: round3(trimmed.Duration()),
			})
		}
	}
	return out
}

func (e *Extractor) logf() *logrus.Logger {
	if e.Log != nil {
		return e.Log
	}
	return logrus.StandardLogger()
}

// WriteIndex persists the segment index as a semicolon-delimited
// table, one row per emitted segment in emission order.
func WriteIndex(path string, records []types.SegmentRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write([]string{"File", "Speaker", "Segment", "Start", "End", "Duration"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.File,
			r.Speaker,
			r.Segment,
			formatSeconds(r.Start),
			formatSeconds(r.End),
			formatSeconds(r.Duration),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// safeLabel keeps file names portable; anything outside letters,
// digits, dash and underscore becomes a dash.
func safeLabel(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
