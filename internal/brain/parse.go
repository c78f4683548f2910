package brain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// wireResult is the JSON shape the model is prompted to produce.
type wireResult struct {
	Action  string         `json:"action"`
	Content string         `json:"content"`
	Memory  *MemoryUpdates `json:"memory_updates,omitempty"`
}

// parseReply extracts the JSON decision from a model reply and
// normalizes it. Models wrap JSON in markdown fences or lead with
// prose often enough that extraction has to be tolerant; a reply with
// no recoverable JSON is an error, not a silent none.
func parseReply(reply string) (ActionResult, error) {
	block, ok := extractJSONBlock(reply)
	if !ok {
		return ActionResult{}, fmt.Errorf("no JSON object in reply")
	}

	if err := validateReply(block); err != nil {
		return ActionResult{}, err
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(block), &wire); err != nil {
		return ActionResult{}, fmt.Errorf("decode reply: %w", err)
	}

	res := ActionResult{
		Kind:    ActionKind(strings.ToLower(strings.TrimSpace(wire.Action))),
		Content: strings.TrimSpace(wire.Content),
	}
	if !wire.Memory.Empty() {
		res.Memory = wire.Memory
	}
	return normalizeResult(res), nil
}

// extractJSONBlock finds the decision object in a reply: a ```json
// fence first, then the first balanced top-level object.
func extractJSONBlock(s string) (string, bool) {
	for _, fence := range []string{"```json", "```"} {
		start := strings.Index(s, fence)
		if start < 0 {
			continue
		}
		rest := s[start+len(fence):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		candidate := strings.TrimSpace(rest[:end])
		if strings.HasPrefix(candidate, "{") {
			return candidate, true
		}
	}

	return balancedObject(s)
}

// balancedObject returns the first top-level {...} with matched
// braces, skipping brace characters inside JSON strings.
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
