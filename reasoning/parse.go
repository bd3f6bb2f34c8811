package reasoning

import (
	"encoding/json"
	"strings"

	"github.com/hupe1980/taskmesh/core"
)

// ParseDecision converts raw model output into a Decision. Parsing is
// fail-soft: output that is not valid decision JSON degrades to an answer
// decision carrying the raw text, so a confused model ends the task instead
// of crashing the worker loop.
func ParseDecision(raw string) *core.Decision {
	text := stripFences(strings.TrimSpace(raw))

	payload := extractObject(text)
	if payload == "" {
		return fallback(raw)
	}

	var d core.Decision
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return fallback(raw)
	}

	switch d.Action {
	case core.ActionToolCall:
		if d.ToolName == "" {
			return fallback(raw)
		}
		if d.ToolArgs == nil {
			d.ToolArgs = map[string]any{}
		}
	case core.ActionAnswer:
		if d.Answer == "" {
			d.Answer = strings.TrimSpace(raw)
		}
	default:
		return fallback(raw)
	}
	return &d
}

func fallback(raw string) *core.Decision {
	return &core.Decision{
		Action: core.ActionAnswer,
		Answer: strings.TrimSpace(raw),
	}
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, when present.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		if tag := strings.TrimSpace(s[:idx]); tag == "" || !strings.ContainsAny(tag, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractObject returns the first balanced top-level JSON object in s, which
// tolerates models that wrap the JSON in prose.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
