package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.+?)\\s*```")
	errEmptyInput     = errors.New("empty input")
)

// ParseAIJSON extracts and decodes a single JSON object from model output that may be:
// - a bare JSON object
// - a JSON object wrapped in a markdown code fence (```json ... ```)
// - a JSON object surrounded by prose (the first balanced {...} span is used)
// Anything else is an error; no attempt is made to repair malformed JSON.
// Only the span that is finally accepted is decoded into target.
func ParseAIJSON(input string, target any) error {
	input = strings.TrimSpace(strings.TrimPrefix(input, "\uFEFF"))
	if input == "" {
		return errEmptyInput
	}

	for _, candidate := range []string{input, extractFromMarkdown(input), extractJSONFromText(input)} {
		if candidate == "" {
			continue
		}
		raw, err := decodeSingleObject(candidate)
		if err != nil {
			continue
		}
		return json.Unmarshal(raw, target)
	}

	return fmt.Errorf("failed to parse JSON object from input: %s", truncateString(input, 100))
}

// decodeSingleObject checks that input holds exactly one JSON object with no trailing data
func decodeSingleObject(input string) (json.RawMessage, error) {
	s := strings.TrimSpace(input)
	if !strings.HasPrefix(s, "{") {
		return nil, errors.New("not a JSON object")
	}
	var raw json.RawMessage
	dec := json.NewDecoder(bytes.NewBufferString(s))
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, errors.New("multiple JSON values")
		}
		return nil, fmt.Errorf("trailing data: %w", err)
	}
	return raw, nil
}

// extractFromMarkdown returns the body of the first code fence if it looks like an object
func extractFromMarkdown(input string) string {
	matches := fencedJSONPattern.FindStringSubmatch(input)
	if len(matches) < 2 {
		return ""
	}
	content := strings.TrimSpace(matches[1])
	if strings.HasPrefix(content, "{") {
		return content
	}
	return ""
}

// extractJSONFromText finds the first balanced JSON object in surrounding text
func extractJSONFromText(input string) string {
	start := strings.Index(input, "{")
	if start < 0 {
		return ""
	}
	return extractBalancedBraces(input[start:], '{', '}')
}

// extractBalancedBraces extracts content with balanced braces, ignoring braces inside strings
func extractBalancedBraces(input string, open, close rune) string {
	if len(input) == 0 {
		return ""
	}

	depth := 0
	inString := false
	escape := false
	start := 0

	for i, ch := range input {
		if escape {
			escape = false
			continue
		}

		if ch == '\\' {
			escape = true
			continue
		}

		if ch == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if ch == open {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == close {
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}

	return ""
}

// truncateString truncates a string to maxLen bytes
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateRunes shortens s to at most maxRunes characters
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "…"
}
