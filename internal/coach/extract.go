package coach

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

const (
	ErrEmptyResponse = "Empty response"
	parseErrorPrefix = "Could not parse JSON. Response starts with: "
)

var errNotObject = errors.New("JSON value is not an object")

// Extraction is a successful parse and the strategy that produced it.
type Extraction struct {
	Object   map[string]any
	Strategy string
}

type strategy struct {
	name string
	fn   func(string) (map[string]any, error)
}

// strategies run in order from least to most lossy. Every one receives the
// fence-stripped text.
var strategies = []strategy{
	{"direct", parseObject},
	{"braces", func(s string) (map[string]any, error) { return parseObject(braceSpan(s)) }},
	{"escape_in_strings", func(s string) (map[string]any, error) { return parseObject(escapeInStrings(braceSpan(s))) }},
	{"escape_global", func(s string) (map[string]any, error) { return parseObject(escapeGlobal(braceSpan(s))) }},
	{"message_repair", repairMessage},
	{"jsonrepair", repairJSON},
	{"assemble", assemble},
}

// Extract parses untrusted model output into a JSON object. The returned
// error text is meant to be shown to the model on retry.
func Extract(raw string) (*Extraction, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New(ErrEmptyResponse)
	}
	text := stripFences(raw)
	for _, st := range strategies {
		obj, err := st.fn(text)
		if err == nil {
			return &Extraction{Object: obj, Strategy: st.name}, nil
		}
	}
	return nil, fmt.Errorf("%s%s", parseErrorPrefix, prefix(raw, 100))
}

var (
	fenceOpen  = regexp.MustCompile("^```[a-zA-Z]*[ \t]*\r?\n?")
	fenceClose = regexp.MustCompile("\r?\n?```$")
)

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = fenceOpen.ReplaceAllString(s, "")
		s = fenceClose.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// parseObject is a strict parse: the whole text must be exactly one JSON
// object. Numbers are kept as json.Number so ids stay integral.
func parseObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}

// braceSpan returns the text from the first '{' to the last '}' inclusive,
// or s unchanged if there is no such span.
func braceSpan(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// escapeInStrings escapes raw newlines, carriage returns and tabs, but only
// while inside a string literal.
func escapeInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteByte(c)
		case c == '\\':
			escaped = true
			b.WriteByte(c)
		case c == '"':
			inString = false
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

var blunt = strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`)
var collapse = strings.NewReplacer(`\\n`, `\n`, `\\r`, `\r`, `\\t`, `\t`)

func escapeGlobal(s string) string {
	return collapse.Replace(blunt.Replace(s))
}

// messageValue matches the message string up to the quote that closes it:
// the one followed by the actions key or the end of the object.
var messageValue = regexp.MustCompile(`(?s)("message"\s*:\s*")(.*?)("\s*(?:,\s*"actions"|\}\s*$))`)

func repairMessage(s string) (map[string]any, error) {
	candidate := braceSpan(s)
	loc := messageValue.FindStringSubmatchIndex(candidate)
	if loc == nil {
		return nil, errors.New("no message field")
	}
	body := candidate[loc[4]:loc[5]]
	repaired := candidate[:loc[4]] + escapeStringBody(body) + candidate[loc[5]:]
	if obj, err := parseObject(repaired); err == nil {
		return obj, nil
	}
	return parseObject(escapeInStrings(repaired))
}

func repairJSON(s string) (map[string]any, error) {
	candidate := s
	if i := strings.Index(s, "{"); i >= 0 {
		candidate = s[i:]
	}
	fixed, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return nil, err
	}
	return parseObject(fixed)
}

var (
	looseMessage = regexp.MustCompile(`(?s)"message"\s*:\s*"(.*?)"\s*(?:,|\}|$)`)
	looseActions = regexp.MustCompile(`(?s)"actions"\s*:\s*(\[.*\])`)
)

// assemble builds {"message": ..., "actions": ...} from independent captures.
// Actions that still do not parse are dropped rather than losing the message.
func assemble(s string) (map[string]any, error) {
	m := looseMessage.FindStringSubmatch(s)
	if m == nil {
		return nil, errors.New("no message capture")
	}
	msg := `"` + escapeStringBody(m[1]) + `"`
	actions := "[]"
	if a := looseActions.FindStringSubmatch(s); a != nil {
		actions = a[1]
	}
	if obj, err := parseObject(`{"message":` + msg + `,"actions":` + actions + `}`); err == nil {
		return obj, nil
	}
	if obj, err := parseObject(`{"message":` + msg + `,"actions":` + escapeInStrings(actions) + `}`); err == nil {
		return obj, nil
	}
	return parseObject(`{"message":` + msg + `,"actions":[]}`)
}

// escapeStringBody makes raw text safe between JSON quotes. Existing valid
// escapes are kept.
func escapeStringBody(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			if i+1 < len(s) && strings.IndexByte(`"\/bfnrtu`, s[i+1]) >= 0 {
				b.WriteByte(c)
				b.WriteByte(s[i+1])
				i++
			} else {
				b.WriteString(`\\`)
			}
		case c == '"':
			b.WriteString(`\"`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20:
			fmt.Fprintf(&b, `\u%04x`, c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
