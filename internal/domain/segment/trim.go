// Package segment turns labeled time intervals into trimmed,
// collision-free audio segments plus an index table.
package segment

import (
	"github.com/prosodylab/fluentcut/internal/types"
)

// DefaultExcludedLabels rejects unlabeled gaps and the aligner's
// explicit pause tag.
var DefaultExcludedLabels = []string{"", "<p:>"}

// TrimPolicy decides whether an interval becomes a segment and where
// its trimmed boundaries fall. Exclusion predicates run in a fixed
// order: excluded label first, then the minimum-duration check on the
// trimmed interval.
type TrimPolicy struct {
	Margin         float64
	MinDuration    float64
	ExcludedLabels []string
}

func DefaultTrimPolicy() TrimPolicy {
	return TrimPolicy{
		Margin:         0.01,
		MinDuration:    1.0,
		ExcludedLabels: DefaultExcludedLabels,
	}
}

// Trim applies the policy to one interval. The returned interval is
// always within [0, fileDuration] with Start < End when ok is true.
func (p TrimPolicy) Trim(iv types.LabeledInterval, fileDuration float64) (types.TrimmedInterval, bool) {
	if p.labelExcluded(iv.Label) {
		return types.TrimmedInterval{}, false
	}
	if iv.Start >= iv.End || iv.End > fileDuration || iv.Start < 0 {
		return types.TrimmedInterval{}, false
	}

	out := types.TrimmedInterval{
		Start: iv.Start - p.Margin,
		End:   iv.End + p.Margin,
	}
	if out.Start < 0 {
		out.Start = 0
	}
	if out.End > fileDuration {
		out.End = fileDuration
	}
	if out.Duration() < p.MinDuration {
		return types.TrimmedInterval{}, false
	}
	return out, true
}

func (p TrimPolicy) labelExcluded(label string) bool {
	for _, x := range p.ExcludedLabels {
		if label == x {
			return true
		}
	}
	return false
}
