// Package aggregate reads the feature tables the analysis stages
// leave behind and merges them into per-speaker records. Rows that
// cannot be parsed are dropped, never defaulted: a speaker ends up
// with whatever categories their data can support.
package aggregate

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/prosodylab/fluentcut/internal/types"
)

// Terminal artifacts of the stage pipeline.
const (
	PauseTableName  = "pauseTable.csv"
	StressTableName = "stressTable.csv"
)

// Tables holds everything read from one tables directory. A false
// Have flag means the table file was absent or empty, which marks its
// categories unavailable rather than zero.
type Tables struct {
	Pauses []types.PauseRow
	Words  []types.StressRow

	HavePauses bool
	HaveStress bool
}

// Load reads both feature tables from dir. A missing table is not an
// error; two missing tables still are not, the scorer will refuse the
// empty record set on its own.
func Load(dir string) (Tables, error) {
	var t Tables

	pauses, err := readTable(filepath.Join(dir, PauseTableName), parsePauseRow)
	switch {
	case err == nil:
		t.Pauses = pauses
		t.HavePauses = true
	case os.IsNotExist(err):
	default:
		return Tables{}, fmt.Errorf("read %s: %w", PauseTableName, err)
	}

	words, err := readTable(filepath.Join(dir, StressTableName), parseStressRow)
	switch {
	case err == nil:
		t.Words = words
		t.HaveStress = true
	case os.IsNotExist(err):
	default:
		return Tables{}, fmt.Errorf("read %s: %w", StressTableName, err)
	}

	return t, nil
}

// PerSpeaker outer-joins both tables on speaker identity. Speakers
// appearing in either table get a record; slices stay nil for tables
// that were missing entirely.
func (t Tables) PerSpeaker() []types.SpeakerFeatures {
	byName := map[string]*types.SpeakerFeatures{}
	get := func(spk string) *types.SpeakerFeatures {
		f, ok := byName[spk]
		if !ok {
			f = &types.SpeakerFeatures{Speaker: spk}
			if t.HavePauses {
				f.Pauses = []types.PauseRow{}
			}
			if t.HaveStress {
				f.Words = []types.StressRow{}
			}
			byName[spk] = f
		}
		return f
	}

	for _, p := range t.Pauses {
		f := get(p.Speaker)
		f.Pauses = append(f.Pauses, p)
	}
	for _, w := range t.Words {
		f := get(w.Speaker)
		f.Words = append(f.Words, w)
	}

	out := make([]types.SpeakerFeatures, 0, len(byName))
	for _, f := range byName {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Speaker < out[j].Speaker })
	return out
}

type rowParser[T any] func(row map[string]string) (T, bool)

func readTable[T any](path string, parse rowParser[T]) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, os.ErrNotExist
	}
	if err != nil {
		return nil, err
	}

	var out []T
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed line loses that row, not the table.
			continue
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[strings.TrimSpace(h)] = rec[i]
			}
		}
		v, ok := parse(row)
		if !ok {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func parsePauseRow(row map[string]string) (types.PauseRow, bool) {
	spk := row["spk"]
	if spk == "" {
		return types.PauseRow{}, false
	}
	dur, err := strconv.ParseFloat(row["duration"], 64)
	if err != nil {
		return types.PauseRow{}, false
	}
	start, _ := strconv.ParseFloat(row["start"], 64)
	end, _ := strconv.ParseFloat(row["end"], 64)
	return types.PauseRow{
		Speaker:  spk,
		File:     row["file"],
		Start:    start,
		End:      end,
		Duration: dur,
	}, true
}

func parseStressRow(row map[string]string) (types.StressRow, bool) {
	spk := row["spk"]
	if spk == "" {
		return types.StressRow{}, false
	}

	w := types.StressRow{
		Speaker: spk,
		Word:    row["lab"],
	}
	w.Start, _ = strconv.ParseFloat(row["startTime"], 64)
	w.End, _ = strconv.ParseFloat(row["endTime"], 64)
	w.Syllables, _ = strconv.Atoi(row["lenSyllxpos"])

	pos, err := strconv.Atoi(row["expectedStressPosition"])
	if err != nil {
		return types.StressRow{}, false
	}
	w.ExpectedStressPosition = pos
	w.ObservedStressPosition, _ = strconv.Atoi(row["observedStressPosition"])
	w.ExpectedIsObserved = row["expectedIsObserved"] == "1"

	w.SyllableF0 = parseFloatList(row["syllF0"])
	w.SyllableDur = parseFloatList(row["sylldur"])
	w.SyllableDB = parseFloatList(row["sylldB"])
	return w, true
}

// parseFloatList reads the bracketed per-syllable lists the stress
// stage writes, e.g. "[210.4, 180.1]". Unparsable entries become 0 so
// positions keep lining up with syllable indices.
func parseFloatList(s string) []float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err == nil {
			out[i] = v
		}
	}
	return out
}
