// Package rubric maps a four-category 0-5 rubric average onto a CEFR
// band and its fixed point value. The mapping is a table lookup, not
// an interpolation: the point value is always one of six constants,
// whatever the continuous average underneath it was.
package rubric

import (
	"fmt"

	"github.com/prosodylab/fluentcut/internal/types"
)

type Band struct {
	// Floor is the inclusive lower bound of the band's average range.
	Floor  float64
	Level  string
	Points int
}

// Bands in descending order. Lookup walks top-down and takes the
// first band whose floor is not above the average.
var Bands = []Band{
	{Floor: 4.5, Level: "C2", Points: 70},
	{Floor: 4.0, Level: "C1", Points: 60},
	{Floor: 3.0, Level: "B2", Points: 50},
	{Floor: 2.0, Level: "B1", Points: 20},
	{Floor: 1.0, Level: "A2", Points: 10},
	{Floor: 0.0, Level: "A1", Points: 0},
}

// Map looks up the band for an average in [0,5].
func Map(average float64) (Band, error) {
	if average < 0 || average > 5 {
		return Band{}, fmt.Errorf("rubric average %v out of range [0,5]", average)
	}
	for _, b := range Bands {
		if average >= b.Floor {
			return b, nil
		}
	}
	return Bands[len(Bands)-1], nil
}

// Resolve validates the grader's sub-scores and derives the final
// level and points from the table. Anything the grader proposed
// beyond the four sub-scores is discarded.
func Resolve(s types.RubricScore) (types.RubricResult, error) {
	for _, v := range []int{s.Content, s.Communicative, s.Organisation, s.Language} {
		if v < 0 || v > 5 {
			return types.RubricResult{}, fmt.Errorf("rubric sub-score %d out of range [0,5]", v)
		}
	}
	avg := s.Average()
	band, err := Map(avg)
	if err != nil {
		return types.RubricResult{}, err
	}
	return types.RubricResult{
		Scores:  s,
		Average: avg,
		Level:   band.Level,
		Points:  band.Points,
	}, nil
}
