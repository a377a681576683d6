// Package scoring normalizes per-speaker acoustic measurements into
// category sub-scores and combines them into one 0-100 fluency score.
package scoring

import (
	"errors"
	"math"

	"github.com/prosodylab/fluentcut/internal/types"
)

type Category string

const (
	CategoryPause          Category = "pause"
	CategoryPitch          Category = "pitch"
	CategoryDuration       Category = "duration"
	CategoryStressAccuracy Category = "stress_accuracy"
	CategoryIntensity      Category = "intensity"
)

// Weights is the canonical category weighting. Unavailable categories
// drop out and the remaining weights re-normalize.
var Weights = map[Category]float64{
	CategoryPause:          0.40,
	CategoryPitch:          0.30,
	CategoryDuration:       0.15,
	CategoryStressAccuracy: 0.10,
	CategoryIntensity:      0.05,
}

// Categories in reporting order.
var Categories = []Category{
	CategoryPause,
	CategoryPitch,
	CategoryDuration,
	CategoryStressAccuracy,
	CategoryIntensity,
}

// ErrNoData means not a single category had usable measurements. The
// caller must treat this as a failed request, never as a zero score.
var ErrNoData = errors.New("fluency score: no usable feature categories")

// SubScore is one category's normalized 0-100 value, or a marker that
// the category could not be computed for this speaker.
type SubScore struct {
	Value     float64
	Available bool
}

func available(v float64) SubScore { return SubScore{Value: clamp(v, 0, 100), Available: true} }

var unavailable = SubScore{}

// Combine folds the available sub-scores into one weighted 0-100
// score. Weights of unavailable categories are redistributed by
// dividing through the sum of the weights that remain.
func Combine(sub map[Category]SubScore) (float64, error) {
	var sum, weightSum float64
	for cat, s := range sub {
		if !s.Available {
			continue
		}
		w, ok := Weights[cat]
		if !ok {
			continue
		}
		sum += w * clamp(s.Value, 0, 100)
		weightSum += w
	}
	if weightSum == 0 {
		return 0, ErrNoData
	}
	return sum / weightSum, nil
}

// Evaluate computes every category for one speaker and combines them.
func Evaluate(f types.SpeakerFeatures) (types.SpeakerResult, error) {
	sub := map[Category]SubScore{
		CategoryPause:          PauseSubScore(f.Pauses),
		CategoryPitch:          PitchSubScore(f.Words),
		CategoryDuration:       DurationSubScore(f.Words),
		CategoryStressAccuracy: StressAccuracySubScore(f.Words),
		CategoryIntensity:      IntensitySubScore(f.Words),
	}

	score, err := Combine(sub)
	if err != nil {
		return types.SpeakerResult{}, err
	}

	res := types.SpeakerResult{
		Speaker:            f.Speaker,
		Score:              score,
		SubScores:          map[string]float64{},
		SyllablesPerMinute: SyllablesPerMinute(f.Words),
	}
	for _, cat := range Categories {
		s := sub[cat]
		if s.Available {
			res.SubScores[string(cat)] = s.Value
		} else {
			res.MissingCategories = append(res.MissingCategories, string(cat))
		}
	}
	return res, nil
}

// significantPause is the shortest pause that counts as a real
// hesitation rather than an articulation gap.
const significantPause = 0.5

// longPause durations draw a penalty per occurrence.
const longPause = 1.5

// PauseSubScore rates the speaker's pause pattern. A nil slice means
// the pause table was missing; an empty one means no pauses were
// recorded, which is the best possible pattern.
func PauseSubScore(pauses []types.PauseRow) SubScore {
	if pauses == nil {
		return unavailable
	}

	var significant []float64
	for _, p := range pauses {
		if p.Duration >= significantPause {
			significant = append(significant, p.Duration)
		}
	}
	if len(significant) == 0 {
		return available(100)
	}

	avg := mean(significant)
	var base float64
	switch {
	case avg <= 0.7:
		base = 100
	case avg <= longPause:
		base = 50
	default:
		base = 25
	}

	for _, d := range significant {
		if d >= longPause {
			base -= 10
		}
	}
	return available(math.Max(0, base))
}

// PitchSubScore rates how clearly stressed syllables rise above
// unstressed ones in F0, in semitones.
func PitchSubScore(words []types.StressRow) SubScore {
	var stressed, unstressed []float64
	for _, w := range words {
		pos := w.ExpectedStressPosition
		if pos < 1 {
			continue
		}
		for i, f0 := range w.SyllableF0 {
			if f0 <= 0 {
				continue
			}
			if i+1 == pos {
				stressed = append(stressed, f0)
			} else {
				unstressed = append(unstressed, f0)
			}
		}
	}
	if len(stressed) == 0 || len(unstressed) == 0 {
		return unavailable
	}

	mu := mean(unstressed)
	if mu <= 0 {
		return unavailable
	}
	st := 12 * math.Log2(mean(stressed)/mu)

	switch {
	case st <= 0:
		return available(0)
	case st <= 0.5:
		return available(100.0 / 3)
	case st <= 1.0:
		return available(200.0 / 3)
	default:
		return available(100)
	}
}

// stressedDurationRatio is the minimum stressed/unstressed syllable
// duration ratio for a word to count as correctly lengthened.
const stressedDurationRatio = 1.2

// DurationSubScore rates the share of words whose stressed syllable
// is noticeably longer than its unstressed neighbors.
func DurationSubScore(words []types.StressRow) SubScore {
	var correct, total int
	for _, w := range words {
		pos := w.ExpectedStressPosition
		if pos < 1 || pos > len(w.SyllableDur) || len(w.SyllableDur) < 2 {
			continue
		}

		var unstressed []float64
		for i, d := range w.SyllableDur {
			if i+1 != pos {
				unstressed = append(unstressed, d)
			}
		}
		avg := mean(unstressed)
		if avg > 0 && w.SyllableDur[pos-1]/avg >= stressedDurationRatio {
			correct++
		}
		total++
	}
	if total == 0 {
		return unavailable
	}

	pct := float64(correct) / float64(total) * 100
	switch {
	case pct >= 80:
		return available(100)
	case pct >= 60:
		return available(200.0 / 3)
	case pct >= 40:
		return available(100.0 / 3)
	default:
		return available(0)
	}
}

// StressAccuracySubScore rates how often the observed stress position
// matches the expected one.
func StressAccuracySubScore(words []types.StressRow) SubScore {
	var correct, total int
	for _, w := range words {
		if w.ExpectedStressPosition < 1 {
			continue
		}
		if w.ExpectedIsObserved {
			correct++
		}
		total++
	}
	if total == 0 {
		return unavailable
	}

	pct := float64(correct) / float64(total) * 100
	switch {
	case pct >= 70:
		return available(100)
	case pct >= 55:
		return available(200.0 / 3)
	case pct >= 40:
		return available(100.0 / 3)
	default:
		return available(0)
	}
}

// IntensitySubScore rates the dB gap between stressed and unstressed
// syllables.
func IntensitySubScore(words []types.StressRow) SubScore {
	var stressed, unstressed []float64
	for _, w := range words {
		pos := w.ExpectedStressPosition
		if pos < 1 {
			continue
		}
		for i, db := range w.SyllableDB {
			if db <= 0 {
				continue
			}
			if i+1 == pos {
				stressed = append(stressed, db)
			} else {
				unstressed = append(unstressed, db)
			}
		}
	}
	if len(stressed) == 0 || len(unstressed) == 0 {
		return unavailable
	}

	diff := mean(stressed) - mean(unstressed)
	switch {
	case diff <= 0:
		return available(0)
	case diff <= 1:
		return available(40)
	case diff <= 3:
		return available(70)
	default:
		return available(100)
	}
}

// SyllablesPerMinute reports articulation rate over speech time only
// (pause intervals never appear in the stress table).
func SyllablesPerMinute(words []types.StressRow) float64 {
	var seconds float64
	var syllables int
	for _, w := range words {
		if w.End > w.Start {
			seconds += w.End - w.Start
		}
		syllables += w.Syllables
	}
	if seconds <= 0 {
		return 0
	}
	return float64(syllables) / (seconds / 60)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
