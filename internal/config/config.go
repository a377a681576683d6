// Package config loads the YAML run configuration. Every field has a
// working default; a missing config file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Extract struct {
	Margin        float64  `yaml:"margin"`
	MinDuration   float64  `yaml:"min_duration"`
	Tiers         int      `yaml:"tiers"`
	AudioExt      string   `yaml:"audio_ext"`
	LabelExt      string   `yaml:"label_ext"`
	Prefix        string   `yaml:"prefix"`
	Sep           string   `yaml:"suffix_separator"`
	ExcludeLabels []string `yaml:"exclude_labels"`
}

type Stage struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Params  []string `yaml:"params"`
	Input   string   `yaml:"input"`
	Output  string   `yaml:"output"`
}

type Grader struct {
	Model        string   `yaml:"model"`
	BaseURL      string   `yaml:"base_url"`
	PromptFile   string   `yaml:"prompt_file"`
	AllowedHosts []string `yaml:"allowed_hosts"`
}

type Root struct {
	Pipeline struct {
		Name   string `yaml:"name"`
		LogLvl string `yaml:"log_level"`
	} `yaml:"pipeline"`
	Extract   Extract `yaml:"extract"`
	Stages    []Stage `yaml:"stages"`
	TablesDir string  `yaml:"tables_dir"`
	Grader    Grader  `yaml:"grader"`
}

func Default() *Root {
	var r Root
	r.Pipeline.Name = "fluentcut"
	r.Pipeline.LogLvl = "info"
	r.Extract = Extract{
		Margin:        0.01,
		MinDuration:   1.0,
		Tiers:         1,
		AudioExt:      ".wav",
		LabelExt:      ".TextGrid",
		Sep:           "_",
		ExcludeLabels: []string{"", "<p:>"},
	}
	r.TablesDir = "tables"
	return &r
}

// Load reads path, or the first candidate that exists when path is
// empty. Values decode over the defaults.
func Load(path string) (*Root, error) {
	cfg := Default()

	if path == "" {
		for _, guess := range []string{"fluentcut.yaml", filepath.Join("config", "fluentcut.yaml")} {
			if _, err := os.Stat(guess); err == nil {
				path = guess
				break
			}
		}
		if path == "" {
			return cfg, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}
