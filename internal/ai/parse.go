package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"github.com/go-playground/validator/v10"
)

var (
	ErrNoJSON        = errors.New("response contains no json")
	ErrEmptyRankings = errors.New("ranking response contains no entries")
)

const maxRationaleRunes = 500

var validate = validator.New()

// decisionPayload is the validated shape of a decision response.
type decisionPayload struct {
	ToolName   string         `validate:"required,max=64"`
	Reasoning  string         `validate:"max=2000"`
	Parameters map[string]any `validate:"-"`
	Confidence float64        `validate:"gte=0,lte=1"`
}

// parseDecision turns untrusted backend text into a decision. Capability names
// outside the known set are passed through as-is so the loop records them as
// no-ops.
func parseDecision(raw string) (agent.Decision, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return agent.Decision{}, err
	}

	payload := decisionPayload{
		ToolName:   firstString(data, "tool_name", "capability", "tool", "action"),
		Reasoning:  truncate(firstString(data, "reasoning", "rationale", "reason"), maxRationaleRunes),
		Parameters: coerceParams(firstValue(data, "parameters", "params", "args")),
		Confidence: clamp01(coerceFloat(firstValue(data, "confidence"))),
	}

	if err := validate.Struct(payload); err != nil {
		return agent.Decision{}, fmt.Errorf("invalid decision: %w", err)
	}

	name := agent.CapabilityName(payload.ToolName)
	if parsed, err := agent.ParseCapabilityName(payload.ToolName); err == nil {
		name = parsed
	}

	return agent.Decision{
		Capability: name,
		Rationale:  payload.Reasoning,
		Parameters: payload.Parameters,
		Confidence: payload.Confidence,
		Source:     agent.SourceBackend,
	}, nil
}

// parseRankings reads a ranking response: a JSON array of entries, or an
// object wrapping one.
func parseRankings(raw string) ([]agent.Assessment, error) {
	cleaned := extractJSON(raw)

	var root any
	if err := json.Unmarshal([]byte(cleaned), &root); err != nil {
		span, ok := outerSpan(cleaned, '[', ']')
		if !ok {
			return nil, fmt.Errorf("parse ranking response: %w", err)
		}
		if err := json.Unmarshal([]byte(span), &root); err != nil {
			return nil, fmt.Errorf("parse ranking response: %w", err)
		}
	}

	var items []any
	switch v := root.(type) {
	case []any:
		items = v
	case map[string]any:
		list, ok := firstValue(v, "candidates", "rankings", "results", "ranked_candidates").([]any)
		if !ok {
			return nil, fmt.Errorf("%w: object has no candidate list", ErrEmptyRankings)
		}
		items = list
	default:
		return nil, fmt.Errorf("%w: unexpected json type %T", ErrEmptyRankings, root)
	}

	assessments := make([]agent.Assessment, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		a := agent.Assessment{
			ID:                 firstString(entry, "student_id", "id", "candidate_id"),
			EvaluationBullets:  coerceStringList(firstValue(entry, "evaluation_bullets", "bullets", "evaluation")),
			NotableProjects:    coerceStringList(firstValue(entry, "notable_github_projects", "notable_projects", "projects")),
			NextStep:           agent.ParseNextStep(firstString(entry, "next_step", "recommendation")),
			PersonalityInsight: firstString(entry, "personality_insight"),
		}
		if idx := coerceFloat(firstValue(entry, "index", "candidate_index", "candidate_number")); !math.IsNaN(idx) {
			a.Index = int(idx)
		}
		if score := coerceFloat(firstValue(entry, "fit_score", "score")); !math.IsNaN(score) && !math.IsInf(score, 0) {
			a.FitScore = score
			a.HasScore = true
		}
		assessments = append(assessments, a)
	}

	if len(assessments) == 0 {
		return nil, ErrEmptyRankings
	}
	return assessments, nil
}

func decodeObject(raw string) (map[string]any, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err == nil {
		return data, nil
	}

	span, ok := outerSpan(cleaned, '{', '}')
	if !ok {
		return nil, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(span), &data); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return data, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, "```"); idx != -1 {
		rest := raw[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		if end := strings.Index(rest, "```"); end != -1 {
			rest = rest[:end]
		}
		raw = rest
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// outerSpan returns the text between the first open and the last close rune.
func outerSpan(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func firstValue(data map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := data[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(data map[string]any, keys ...string) string {
	return coerceString(firstValue(data, keys...))
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		trimmed = strings.TrimSuffix(trimmed, "/10")
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
		return nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			var s string
			if m, ok := item.(map[string]any); ok {
				s = firstString(m, "repo_name", "name", "title", "text")
			} else {
				s = coerceString(item)
			}
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{coerceString(val)}
	}
}

func coerceParams(v any) agent.Params {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return agent.Params{}
	}
	return agent.Params(m)
}

// clamp01 bounds a confidence value. A missing value means full confidence.
func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f):
		return 1
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
