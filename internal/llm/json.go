package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecodeJSON pulls the first JSON value out of a model reply and unmarshals
// it into out. Code fences, leading chatter and invalid escapes are tolerated.
func DecodeJSON(raw string, out any) error {
	js, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(js), out); err != nil {
		return fmt.Errorf("reply does not match the requested schema: %w", err)
	}
	return nil
}

// ExtractJSON returns the first complete JSON object or array in raw.
func ExtractJSON(raw string) (string, error) {
	raw = strings.TrimSpace(stripFence(raw))
	if raw == "" {
		return "", fmt.Errorf("empty response")
	}
	if json.Valid([]byte(raw)) {
		return raw, nil
	}

	start := strings.IndexAny(raw, "{[")
	if start == -1 {
		return "", fmt.Errorf("response did not contain a JSON value")
	}
	raw = sanitizeJSON(raw[start:])

	dec := json.NewDecoder(strings.NewReader(raw))
	var msg any
	if err := dec.Decode(&msg); err != nil {
		return "", fmt.Errorf("failed to decode JSON from response: %w", err)
	}
	clean, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to re-encode JSON: %w", err)
	}
	return string(clean), nil
}

// stripFence returns the content of the first ``` fenced block, dropping an
// optional language tag. Text without a complete fence is returned as is.
func stripFence(raw string) string {
	open := strings.Index(raw, "```")
	if open == -1 {
		return raw
	}
	rest := raw[open+3:]
	end := strings.Index(rest, "```")
	if end == -1 {
		return raw
	}
	inner := strings.TrimSpace(rest[:end])
	if strings.HasPrefix(strings.ToLower(inner), "json") {
		inner = strings.TrimSpace(inner[4:])
	}
	return inner
}

// sanitizeJSON escapes stray backslashes such as the ones in Windows paths
// (C:\src\skill.cpp) that models copy verbatim into JSON strings.
func sanitizeJSON(input string) string {
	if json.Valid([]byte(input)) {
		return input
	}

	var sb strings.Builder
	sb.Grow(len(input) + 16)
	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch != '\\' {
			sb.WriteRune(ch)
			continue
		}
		if i+1 >= len(runes) {
			sb.WriteString(`\\`)
			break
		}
		switch next := runes[i+1]; next {
		case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
			sb.WriteRune(ch)
			sb.WriteRune(next)
			i++
		default:
			sb.WriteString(`\\`)
		}
	}
	return sb.String()
}

// Number accepts a JSON number or a numeric string, which small local models
// produce interchangeably.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "/10"))
	if s == "" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("not a finite number: %s", string(b))
	}
	*n = Number(f)
	return nil
}

// Lines accepts a list of line numbers given as numbers, numeric strings or
// "a-b" ranges, or a single such value.
type Lines []int

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lines) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		raw = []json.RawMessage{b}
	}
	var out []int
	for _, item := range raw {
		s := strings.Trim(strings.TrimSpace(string(item)), `"`)
		if s == "" || s == "null" {
			continue
		}
		if from, to, ok := strings.Cut(s, "-"); ok {
			a, errA := strconv.Atoi(strings.TrimSpace(from))
			z, errZ := strconv.Atoi(strings.TrimSpace(to))
			if errA != nil || errZ != nil || z < a {
				continue
			}
			for i := a; i <= z && i-a < 1000; i++ {
				out = append(out, i)
			}
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		out = append(out, int(f))
	}
	*l = out
	return nil
}
