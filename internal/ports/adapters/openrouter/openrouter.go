// Package openrouter grades transcripts against the four-category
// rubric through an OpenRouter-compatible chat-completions endpoint.
// The adapter only extracts the four integer sub-scores; deriving the
// CEFR level and points from them is the rubric engine's job.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prosodylab/fluentcut/internal/ports"
	"github.com/prosodylab/fluentcut/internal/types"
)

var _ ports.RubricGrader = (*Adapter)(nil)

type Adapter struct {
	key     string
	model   string
	baseURL string
	prompt  string
	client  *http.Client
}

const (
	requestTimeout = 90 * time.Second

	// promptSlot is the substitution slot in the prompt template.
	promptSlot = "{{text}}"
)

// DefaultPromptTemplate is used when no template file is configured.
const DefaultPromptTemplate = `You are an examiner. Grade the spoken-answer transcript below on four
categories (content, communicative achievement, organisation,
language), each an integer from 0 to 5. Respond with JSON only.

Transcript:
{{text}}`

func New(apiKey, model, baseURL, promptTemplate string) *Adapter {
	if model == "" {
		model = "openai/gpt-4o"
	}
	if promptTemplate == "" {
		promptTemplate = DefaultPromptTemplate
	}
	baseURL = normalizeBaseURL(baseURL)
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: baseURL,
		prompt:  promptTemplate,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (a *Adapter) Grade(ctx context.Context, transcript string) (types.RubricScore, error) {
	if strings.TrimSpace(transcript) == "" {
		return types.RubricScore{}, errors.New("transcript is empty")
	}

	payload := map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]any{
			{"role": "user", "content": strings.ReplaceAll(a.prompt, promptSlot, transcript)},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name": "rubric_grade",
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"content_score":       map[string]any{"type": "integer"},
						"communicative_score": map[string]any{"type": "integer"},
						"organisation_score":  map[string]any{"type": "integer"},
						"language_score":      map[string]any{"type": "integer"},
					},
					"required": []string{
						"content_score",
						"communicative_score",
						"organisation_score",
						"language_score",
					},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return types.RubricScore{}, fmt.Errorf("marshal request: %w", err)
	}
	url := a.baseURL + "/api/v1/chat/completions"

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return types.RubricScore{}, err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return types.RubricScore{}, fmt.Errorf("grader timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return types.RubricScore{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return types.RubricScore{}, fmt.Errorf("grader status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return types.RubricScore{}, fmt.Errorf("grader status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return types.RubricScore{}, err
	}
	if len(raw.Choices) == 0 {
		return types.RubricScore{}, errors.New("grader returned no choices")
	}

	content, err := messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return types.RubricScore{}, err
	}
	clean, err := extractJSONObject(content)
	if err != nil {
		return types.RubricScore{}, fmt.Errorf("grader response is not JSON: %w", err)
	}

	var score types.RubricScore
	if err := json.Unmarshal([]byte(clean), &score); err != nil {
		return types.RubricScore{}, fmt.Errorf("decode rubric scores: %w", err)
	}
	return score, nil
}

// messageContentToString accepts both the plain-string and the
// multi-part array content shapes models return.
func messageContentToString(content any) (string, error) {
	switch v := content.(type) {
	case string:
		return v, nil
	case []any:
		var b strings.Builder
		for _, part := range v {
			m, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := m["text"].(string); ok {
				b.WriteString(s)
			}
		}
		if b.Len() == 0 {
			return "", errors.New("empty message content")
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("unexpected message content type %T", content)
	}
}

// extractJSONObject pulls the first complete JSON object out of a
// response, tolerating markdown fences around it.
func extractJSONObject(s string) (string, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}

	depth := 0
	start := -1
	for i, r := range s {
		switch r {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], nil
				}
			}
		}
	}
	return "", errors.New("no JSON object found")
}

func redactSecrets(s, key string) string {
	if key == "" {
		return s
	}
	return strings.ReplaceAll(s, key, "[redacted]")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
