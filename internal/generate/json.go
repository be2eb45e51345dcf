// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON decodes a structured value from a generation response.
// Backends return plain JSON, JSON wrapped in code fences, or JSON
// embedded in surrounding prose; ExtractJSON handles all three by
// locating the first balanced object or array in the text. Callers treat
// an error as MalformedStructuredResponse and apply their documented
// stage-local fallback — it never propagates past the stage.
// Per prd010-generation R4.1.
func ExtractJSON(text string, v any) error {
	trimmed := strings.TrimSpace(stripFences(text))
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	candidate := firstBalanced(trimmed)
	if candidate == "" {
		return fmt.Errorf("no JSON value found in response")
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return fmt.Errorf("parsing embedded JSON: %w", err)
	}
	return nil
}

// stripFences removes a leading ```json (or ```) fence and its closing
// fence when present.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return text
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return s
}

// firstBalanced returns the first balanced {...} or [...] substring,
// respecting JSON string literals and escapes. Empty when none exists.
func firstBalanced(text string) string {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}

	open := text[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
