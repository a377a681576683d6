// Package textgrid reads Praat long-format TextGrid files, the label
// format produced by the diarization and alignment stages. Only
// interval tiers are supported; point tiers are skipped.
package textgrid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type Interval struct {
	XMin float64
	XMax float64
	Text string
}

type Tier struct {
	Name      string
	Intervals []Interval
}

// File is one parsed TextGrid. XMax is the duration of the audio the
// grid annotates and bounds every interval in every tier.
type File struct {
	XMin  float64
	XMax  float64
	Tiers []Tier
}

// TierNamed returns the first tier with the given name.
func (f *File) TierNamed(name string) (Tier, bool) {
	for _, t := range f.Tiers {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}

func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return tg, nil
}

// Parse reads a long-format TextGrid. The format is line oriented:
// "key = value" pairs, with tiers under "item [n]:" and intervals
// under "intervals [n]:". Indentation is not significant.
func Parse(r io.Reader) (*File, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	tg := &File{}
	var (
		tier         *Tier
		interval     *Interval
		intervalTier bool
		sawHeader    bool
	)

	flushInterval := func() {
		if tier != nil && interval != nil && intervalTier {
			tier.Intervals = append(tier.Intervals, *interval)
		}
		interval = nil
	}
	flushTier := func() {
		flushInterval()
		if tier != nil && intervalTier {
			tg.Tiers = append(tg.Tiers, *tier)
		}
		tier = nil
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "File type"):
			if !strings.Contains(line, "ooTextFile") {
				return nil, fmt.Errorf("not a TextGrid: %s", line)
			}
			sawHeader = true
			continue
		case strings.HasPrefix(line, "item ["):
			flushTier()
			tier = &Tier{}
			intervalTier = false
			continue
		case strings.HasPrefix(line, "intervals ["):
			flushInterval()
			interval = &Interval{}
			continue
		}

		key, val, ok := splitAssign(line)
		if !ok {
			continue
		}
		switch key {
		case "class":
			intervalTier = unquote(val) == "IntervalTier"
		case "name":
			if tier != nil {
				tier.Name = unquote(val)
			}
		case "xmin":
			x, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("bad xmin %q: %w", val, err)
			}
			switch {
			case interval != nil:
				interval.XMin = x
			case tier == nil:
				tg.XMin = x
			}
		case "xmax":
			x, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("bad xmax %q: %w", val, err)
			}
			switch {
			case interval != nil:
				interval.XMax = x
			case tier == nil:
				tg.XMax = x
			}
		case "text":
			if interval != nil {
				interval.Text = unquote(val)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flushTier()
	if !sawHeader {
		return nil, fmt.Errorf("missing ooTextFile header")
	}
	return tg, nil
}

func splitAssign(line string) (key, val string, ok bool) {
	i := strings.Index(line, "=")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	// Praat escapes embedded quotes by doubling them.
	return strings.ReplaceAll(s, `""`, `"`)
}
