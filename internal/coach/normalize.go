package coach

import (
	"regexp"
	"strings"
)

// Response is the canonical {message, actions} shape. Actions keep their raw
// decoded form so validation can report non-object entries.
type Response struct {
	Message string `json:"message"`
	Actions []any  `json:"actions"`
}

// Map returns the response as a plain object, the form Normalize accepts.
func (r Response) Map() map[string]any {
	actions := r.Actions
	if actions == nil {
		actions = []any{}
	}
	return map[string]any{"message": r.Message, "actions": actions}
}

// Normalize never fails; missing pieces become empty values.
func Normalize(obj map[string]any) Response {
	r := Response{Message: coerceMessage(obj["message"]), Actions: actionList(obj)}
	if len(r.Actions) == 0 && r.Message != "" {
		r.Message, r.Actions = recoverInlineActions(r.Message)
	}
	if r.Actions == nil {
		r.Actions = []any{}
	}
	return r
}

func coerceMessage(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return str(v)
}

func actionList(obj map[string]any) []any {
	if v, ok := obj["actions"]; ok {
		switch x := v.(type) {
		case []any:
			return x
		case map[string]any:
			return []any{x}
		}
	}
	switch x := obj["action"].(type) {
	case map[string]any:
		if _, ok := x["type"]; ok {
			return []any{x}
		}
	case []any:
		return x
	}
	return nil
}

var (
	inlineAction = regexp.MustCompile(`\b(` + kindPattern() + `)\s*:\s*\{`)
	blankRuns    = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
)

func kindPattern() string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, "|")
}

// recoverInlineActions pulls "kind: {...}" snippets the model wrote into its
// prose back out as actions and removes them from the text.
func recoverInlineActions(message string) (string, []any) {
	var actions []any
	var b strings.Builder
	rest := message
	found := false
	for {
		loc := inlineAction.FindStringIndex(rest)
		if loc == nil {
			break
		}
		open := loc[1] - 1
		end := matchBrace(rest, open)
		if end < 0 {
			break
		}
		found = true
		if obj, err := parseObject(rest[open : end+1]); err == nil {
			if _, ok := obj["type"]; ok {
				actions = append(actions, obj)
			}
		}
		b.WriteString(rest[:loc[0]])
		rest = rest[end+1:]
	}
	if !found {
		return message, nil
	}
	b.WriteString(rest)
	cleaned := blankRuns.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(cleaned), actions
}

// matchBrace returns the index of the '}' closing the '{' at open, honoring
// string literals, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	inString, escaped := false, false
	for i := open; i < len(s); i++ {
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
				return i
			}
		}
	}
	return -1
}
