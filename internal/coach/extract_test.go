package coach

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFencedWithRawNewlines(t *testing.T) {
	raw := "```json\n{\"message\": \"Line one\nLine two\", \"actions\": []}\n```"

	ext, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, "escape_in_strings", ext.Strategy)
	assert.Equal(t, "Line one\nLine two", ext.Object["message"])
	assert.Equal(t, []any{}, ext.Object["actions"])
}

func TestExtractStrayNewlineBetweenTokens(t *testing.T) {
	ext, err := Extract("{\"message\": \"Hi\"\n,\"actions\":[]}")
	require.NoError(t, err)
	assert.Equal(t, "direct", ext.Strategy)
	assert.Equal(t, "Hi", ext.Object["message"])
	assert.Equal(t, []any{}, ext.Object["actions"])
}

func TestExtractIgnoresSurroundingProse(t *testing.T) {
	ext, err := Extract(`Sure! {"message":"ok","actions":[]} hope this helps`)
	require.NoError(t, err)
	assert.Equal(t, "braces", ext.Strategy)
	assert.Equal(t, "ok", ext.Object["message"])
}

func TestExtractKeepsNonASCII(t *testing.T) {
	ext, err := Extract("{\"message\": \"Привет\nмир 🎸\", \"actions\": []}")
	require.NoError(t, err)
	assert.Equal(t, "Привет\nмир 🎸", ext.Object["message"])
}

func TestExtractRepairsUnescapedQuotesInMessage(t *testing.T) {
	ext, err := Extract(`{"message": "He said "go" now", "actions": []}`)
	require.NoError(t, err)
	assert.Equal(t, "message_repair", ext.Strategy)
	assert.Equal(t, `He said "go" now`, ext.Object["message"])
}

func TestExtractRepairsTruncatedObject(t *testing.T) {
	raw := `{"message": "Let's start", "actions": [{"type": "suggestions", "data": {"items": ["Yes", "No"]}}`

	ext, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, "Let's start", ext.Object["message"])
	actions, ok := ext.Object["actions"].([]any)
	require.True(t, ok)
	assert.Len(t, actions, 1)
}

func TestExtractEmpty(t *testing.T) {
	_, err := Extract("  \n ")
	require.Error(t, err)
	assert.Equal(t, ErrEmptyResponse, err.Error())
}

func TestExtractRejectsNonObject(t *testing.T) {
	_, err := Extract("[1, 2]")
	require.Error(t, err)
	assert.Equal(t, "Could not parse JSON. Response starts with: [1, 2]", err.Error())
}

func TestExtractErrorQuotesFirstHundredChars(t *testing.T) {
	raw := strings.Repeat("я", 150)
	_, err := Extract(raw)
	require.Error(t, err)
	assert.Equal(t, parseErrorPrefix+strings.Repeat("я", 100), err.Error())
}

func TestEscapeInStringsLeavesStructureAlone(t *testing.T) {
	in := "{\"a\": \"x\ny\t\\\"z\", \"b\":\n1}"
	want := "{\"a\": \"x\\ny\\t\\\"z\", \"b\":\n1}"
	assert.Equal(t, want, escapeInStrings(in))
}

func TestAssembleFromCaptures(t *testing.T) {
	in := `noise "message": "Hi there", "actions": [{"type":"suggestions","data":{"items":["a"]}}] trailing`

	obj, err := assemble(in)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", obj["message"])
	assert.Len(t, obj["actions"], 1)
}

func TestAssembleDropsBrokenActions(t *testing.T) {
	obj, err := assemble(`"message": "Keep me", "actions": [{"type": ]`)
	require.NoError(t, err)
	assert.Equal(t, "Keep me", obj["message"])
	assert.Equal(t, []any{}, obj["actions"])
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFences(`  {"a":1}  `))
}
