package aggregate

import (
	"os"
	"path/filepath"
	"testing"
)

const pauseTable = `spk;file;start;end;duration
SPEAKER_00;rec;1.2;2.0;0.8
SPEAKER_00;rec;5.5;5.9;0.4
SPEAKER_01;rec;3.0;4.8;1.8
;rec;0.0;1.0;1.0
SPEAKER_02;rec;2.0;2.5;not-a-number
`

const stressTable = `spk;lab;startTime;endTime;lenSyllxpos;expectedStressPosition;observedStressPosition;expectedIsObserved;syllF0;sylldur;sylldB
SPEAKER_00;hello;0.5;1.1;2;1;1;1;[210.4, 180.1];[0.31, 0.12];[64.2, 61.0]
SPEAKER_02;window;2.0;2.6;2;1;2;0;[195.0, 205.5];[0.2, 0.2];[62.0, 63.1]
SPEAKER_03;again;4.0;4.5;2;;1;0;[200.0, 190.0];[0.2, 0.1];[60.0, 59.0]
`

func writeTables(t *testing.T, pauses, stress string) string {
	t.Helper()
	dir := t.TempDir()
	if pauses != "" {
		if err := os.WriteFile(filepath.Join(dir, PauseTableName), []byte(pauses), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if stress != "" {
		if err := os.WriteFile(filepath.Join(dir, StressTableName), []byte(stress), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoad_ParsesBothTables(t *testing.T) {
	t.Parallel()

	dir := writeTables(t, pauseTable, stressTable)
	tables, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !tables.HavePauses || !tables.HaveStress {
		t.Fatalf("have flags = %v/%v, want both true", tables.HavePauses, tables.HaveStress)
	}

	// The speakerless row and the unparsable duration are dropped.
	if len(tables.Pauses) != 3 {
		t.Fatalf("pauses = %d, want 3", len(tables.Pauses))
	}
	// The row with no expected stress position is dropped.
	if len(tables.Words) != 2 {
		t.Fatalf("words = %d, want 2", len(tables.Words))
	}

	w := tables.Words[0]
	if w.Speaker != "SPEAKER_00" || w.Word != "hello" {
		t.Fatalf("unexpected first word: %+v", w)
	}
	if w.ExpectedStressPosition != 1 || !w.ExpectedIsObserved {
		t.Fatalf("stress fields wrong: %+v", w)
	}
	if len(w.SyllableF0) != 2 || w.SyllableF0[0] != 210.4 || w.SyllableF0[1] != 180.1 {
		t.Fatalf("syllF0 = %v", w.SyllableF0)
	}
	if len(w.SyllableDB) != 2 || w.SyllableDB[1] != 61.0 {
		t.Fatalf("sylldB = %v", w.SyllableDB)
	}
}

func TestLoad_MissingTableIsNotAnError(t *testing.T) {
	t.Parallel()

	dir := writeTables(t, pauseTable, "")
	tables, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !tables.HavePauses {
		t.Fatal("pause table not loaded")
	}
	if tables.HaveStress || tables.Words != nil {
		t.Fatalf("absent stress table reported as present: %+v", tables)
	}
}

func TestLoad_EmptyTableCountsAsMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, PauseTableName), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tables, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tables.HavePauses {
		t.Fatal("zero-byte pause table treated as data")
	}
}

func TestLoad_HeaderOnlyTableIsPresentButEmpty(t *testing.T) {
	t.Parallel()

	dir := writeTables(t, "spk;file;start;end;duration\n", "")
	tables, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !tables.HavePauses {
		t.Fatal("header-only table should count as present")
	}
	if len(tables.Pauses) != 0 {
		t.Fatalf("pauses = %v, want none", tables.Pauses)
	}
}

func TestPerSpeaker_OuterJoin(t *testing.T) {
	t.Parallel()

	dir := writeTables(t, pauseTable, stressTable)
	tables, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	speakers := tables.PerSpeaker()
	names := make([]string, len(speakers))
	for i, f := range speakers {
		names[i] = f.Speaker
	}
	want := []string{"SPEAKER_00", "SPEAKER_01", "SPEAKER_02"}
	if len(names) != len(want) {
		t.Fatalf("speakers = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("speakers = %v, want %v", names, want)
		}
	}

	// SPEAKER_01 only appears in the pause table. Its Words slice must
	// be empty-but-present, since the stress table does exist.
	s1 := speakers[1]
	if len(s1.Pauses) != 1 || s1.Pauses[0].Duration != 1.8 {
		t.Fatalf("SPEAKER_01 pauses = %+v", s1.Pauses)
	}
	if s1.Words == nil || len(s1.Words) != 0 {
		t.Fatalf("SPEAKER_01 words = %#v, want empty non-nil", s1.Words)
	}

	// SPEAKER_02's only pause row was malformed, so it joins in through
	// the stress table with an empty pause slice.
	s2 := speakers[2]
	if len(s2.Words) != 1 || s2.Words[0].Word != "window" {
		t.Fatalf("SPEAKER_02 words = %+v", s2.Words)
	}
	if s2.Pauses == nil || len(s2.Pauses) != 0 {
		t.Fatalf("SPEAKER_02 pauses = %#v, want empty non-nil", s2.Pauses)
	}
}

func TestPerSpeaker_NilSliceWhenTableMissing(t *testing.T) {
	t.Parallel()

	dir := writeTables(t, pauseTable, "")
	tables, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	for _, f := range tables.PerSpeaker() {
		if f.Words != nil {
			t.Fatalf("%s: Words = %#v, want nil for a missing table", f.Speaker, f.Words)
		}
		if f.Pauses == nil {
			t.Fatalf("%s: Pauses unexpectedly nil", f.Speaker)
		}
	}
}

func TestParseFloatList(t *testing.T) {
	t.Parallel()

	got := parseFloatList("[210.4, 180.1, 0]")
	if len(got) != 3 || got[0] != 210.4 || got[1] != 180.1 || got[2] != 0 {
		t.Fatalf("got %v", got)
	}
	if got := parseFloatList("[]"); got != nil {
		t.Fatalf("empty list = %v, want nil", got)
	}
	if got := parseFloatList(""); got != nil {
		t.Fatalf("blank field = %v, want nil", got)
	}
	// Unparsable entries hold their slot so indices still line up.
	got = parseFloatList("[1.5, --undefined--, 2.5]")
	if len(got) != 3 || got[1] != 0 {
		t.Fatalf("got %v", got)
	}
}
