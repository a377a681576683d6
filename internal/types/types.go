package types

// LabeledInterval is one labeled span on a tier of a label file.
// Times are seconds from the start of the audio file.
type LabeledInterval struct {
	Tier  int
	Label string
	Start float64
	End   float64
}

// TrimmedInterval is a LabeledInterval after margin expansion and
// clipping to file bounds.
type TrimmedInterval struct {
	Start float64
	End   float64
}

func (t TrimmedInterval) Duration() float64 { return t.End - t.Start }

// SegmentRecord is one row of the segment index table. Immutable once
// appended; the whole table is persisted at the end of a run.
type SegmentRecord struct {
	File     string  `json:"file"`
	Speaker  string  `json:"speaker"`
	Segment  string  `json:"segment"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// PauseRow is one pause from pauseTable.csv.
type PauseRow struct {
	Speaker  string
	File     string
	Start    float64
	End      float64
	Duration float64
}

// StressRow is one analyzed word occurrence from stressTable.csv.
// Slice fields hold one value per syllable; a zero F0 means the
// measurement failed for that syllable and must be ignored.
type StressRow struct {
	Speaker                string
	Word                   string
	Start                  float64
	End                    float64
	Syllables              int
	ExpectedStressPosition int
	ObservedStressPosition int
	ExpectedIsObserved     bool
	SyllableF0             []float64
	SyllableDur            []float64
	SyllableDB             []float64
}

// SpeakerFeatures is the merged per-speaker record the aggregator
// hands to the scoring engine. A nil slice means the source table had
// nothing usable for that speaker.
type SpeakerFeatures struct {
	Speaker string
	Pauses  []PauseRow
	Words   []StressRow
}

// RubricScore holds the four 0-5 grader sub-scores.
type RubricScore struct {
	Content       int `json:"content_score"`
	Communicative int `json:"communicative_score"`
	Organisation  int `json:"organisation_score"`
	Language      int `json:"language_score"`
}

func (r RubricScore) Average() float64 {
	return float64(r.Content+r.Communicative+r.Organisation+r.Language) / 4
}

// SpeakerResult is one speaker's entry in results.json.
type SpeakerResult struct {
	Speaker            string             `json:"speaker"`
	Score              float64            `json:"score"`
	SubScores          map[string]float64 `json:"sub_scores"`
	MissingCategories  []string           `json:"missing_categories,omitempty"`
	SyllablesPerMinute float64            `json:"syllables_per_minute,omitempty"`
}

// RubricResult is the validated outcome of a rubric grading request.
type RubricResult struct {
	Scores  RubricScore `json:"scores"`
	Average float64     `json:"average_score"`
	Level   string      `json:"cefr_level"`
	Points  int         `json:"cefr_points"`
}
