package rubric

import (
	"testing"

	"github.com/prosodylab/fluentcut/internal/types"
)

func TestMap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		average    float64
		wantLevel  string
		wantPoints int
	}{
		{5.0, "C2", 70},
		{4.5, "C2", 70},
		{4.49, "C1", 60},
		{4.0, "C1", 60},
		{3.95, "B2", 50}, // stays a flat 50, no interpolation toward C1
		{3.0, "B2", 50},
		{2.5, "B1", 20},
		{2.0, "B1", 20},
		{1.0, "A2", 10},
		{0.99, "A1", 0},
		{0.0, "A1", 0},
	}
	for _, tt := range tests {
		b, err := Map(tt.average)
		if err != nil {
			t.Fatalf("Map(%v): %v", tt.average, err)
		}
		if b.Level != tt.wantLevel || b.Points != tt.wantPoints {
			t.Fatalf("Map(%v) = %s/%d, want %s/%d", tt.average, b.Level, b.Points, tt.wantLevel, tt.wantPoints)
		}
	}
}

func TestMap_RejectsOutOfRange(t *testing.T) {
	t.Parallel()

	for _, avg := range []float64{-0.1, 5.1} {
		if _, err := Map(avg); err == nil {
			t.Fatalf("Map(%v) accepted an out-of-range average", avg)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	res, err := Resolve(types.RubricScore{Content: 4, Communicative: 5, Organisation: 4, Language: 5})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Average != 4.5 {
		t.Fatalf("average = %v, want 4.5", res.Average)
	}
	if res.Level != "C2" || res.Points != 70 {
		t.Fatalf("band = %s/%d, want C2/70", res.Level, res.Points)
	}
}

func TestResolve_IgnoresGraderBandProposals(t *testing.T) {
	t.Parallel()

	// Only the four sub-scores matter: 3+3+3+3 averages to 3.0, so the
	// result is B2/50 no matter what else the grader claimed.
	res, err := Resolve(types.RubricScore{Content: 3, Communicative: 3, Organisation: 3, Language: 3})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Level != "B2" || res.Points != 50 {
		t.Fatalf("band = %s/%d, want B2/50", res.Level, res.Points)
	}
}

func TestResolve_RejectsInvalidSubScore(t *testing.T) {
	t.Parallel()

	bad := []types.RubricScore{
		{Content: 6, Communicative: 3, Organisation: 3, Language: 3},
		{Content: 3, Communicative: -1, Organisation: 3, Language: 3},
	}
	for _, s := range bad {
		if _, err := Resolve(s); err == nil {
			t.Fatalf("Resolve(%+v) accepted an invalid sub-score", s)
		}
	}
}
