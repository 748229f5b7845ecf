package coach

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Kind string

const (
	KindCreateMilestone   Kind = "create_milestone"
	KindCreateTask        Kind = "create_task"
	KindCompleteMilestone Kind = "complete_milestone"
	KindDeleteMilestone   Kind = "delete_milestone"
	KindUpdateGoal        Kind = "update_goal"
	KindCreateGoal        Kind = "create_goal"
	KindChecklist         Kind = "checklist"
	KindCreateAgreement   Kind = "create_agreement"
	KindSuggestions       Kind = "suggestions"
	KindSetDeadline       Kind = "set_deadline"
)

// Kinds lists every action kind in the order they are documented to the model.
var Kinds = []Kind{
	KindCreateMilestone,
	KindCreateTask,
	KindCompleteMilestone,
	KindDeleteMilestone,
	KindUpdateGoal,
	KindCreateGoal,
	KindChecklist,
	KindCreateAgreement,
	KindSuggestions,
	KindSetDeadline,
}

func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func kindNames() string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// Action is one decoded instruction from a model response. The concrete types
// below are the only implementations.
type Action interface {
	Kind() Kind
}

type CreateGoal struct {
	Title       string
	Description string
}

type CreateMilestone struct {
	Title       string
	Description string
	TargetDate  string
}

type CreateTask struct {
	Title       string
	Description string
	DueDate     string
	MilestoneID *int
	Priority    string
}

type CompleteMilestone struct {
	MilestoneID *int
}

type DeleteMilestone struct {
	MilestoneID *int
	// Count is nil when the model sent no usable count; CountGiven tells the
	// two cases apart.
	Count      *int
	CountGiven bool
}

type UpdateGoal struct {
	Title       *string
	Description *string
	Progress    *float64
	Status      *string
}

type CreateAgreement struct {
	Description string
	Deadline    string
}

type SetDeadline struct {
	MilestoneID    *int
	MilestoneTitle string
	Deadline       string
}

type ChecklistItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Unit  string `json:"unit,omitempty"`
}

type Checklist struct {
	Title string
	Items []ChecklistItem
	// Data is the payload as the model sent it; it is what the client renders.
	Data map[string]any
}

type Suggestions struct {
	Items []string
}

func (CreateGoal) Kind() Kind        { return KindCreateGoal }
func (CreateMilestone) Kind() Kind   { return KindCreateMilestone }
func (CreateTask) Kind() Kind        { return KindCreateTask }
func (CompleteMilestone) Kind() Kind { return KindCompleteMilestone }
func (DeleteMilestone) Kind() Kind   { return KindDeleteMilestone }
func (UpdateGoal) Kind() Kind        { return KindUpdateGoal }
func (CreateAgreement) Kind() Kind   { return KindCreateAgreement }
func (SetDeadline) Kind() Kind       { return KindSetDeadline }
func (Checklist) Kind() Kind         { return KindChecklist }
func (Suggestions) Kind() Kind       { return KindSuggestions }

// KindOf returns the raw "type" of an action object, or "" when it has none.
func KindOf(raw any) Kind {
	obj, ok := raw.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj["type"].(string)
	return Kind(s)
}

// dataOf returns the action's "data" object; a missing or malformed payload
// reads as empty.
func dataOf(obj map[string]any) map[string]any {
	if d, ok := obj["data"].(map[string]any); ok {
		return d
	}
	return map[string]any{}
}

// Decode turns a raw action object into its typed form. It is lenient about
// payload shape; Validate is where required fields are enforced.
func Decode(raw any) (Action, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("action must be an object")
	}
	kind := KindOf(obj)
	d := dataOf(obj)

	switch kind {
	case KindCreateGoal:
		return CreateGoal{Title: str(d["title"]), Description: str(d["description"])}, nil
	case KindCreateMilestone:
		return CreateMilestone{
			Title:       str(d["title"]),
			Description: str(d["description"]),
			TargetDate:  firstStr(d, "target_date", "deadline"),
		}, nil
	case KindCreateTask:
		return CreateTask{
			Title:       str(d["title"]),
			Description: str(d["description"]),
			DueDate:     firstStr(d, "due_date", "deadline"),
			MilestoneID: intPtr(d["milestone_id"]),
			Priority:    str(d["priority"]),
		}, nil
	case KindCompleteMilestone:
		return CompleteMilestone{MilestoneID: intPtr(d["milestone_id"])}, nil
	case KindDeleteMilestone:
		_, given := d["count"]
		return DeleteMilestone{
			MilestoneID: intPtr(d["milestone_id"]),
			Count:       intPtr(d["count"]),
			CountGiven:  given && d["count"] != nil,
		}, nil
	case KindUpdateGoal:
		u := UpdateGoal{}
		if v, ok := d["title"]; ok && v != nil {
			s := str(v)
			u.Title = &s
		}
		if v, ok := d["description"]; ok && v != nil {
			s := str(v)
			u.Description = &s
		}
		if f, ok := toFloat(d["progress"]); ok {
			u.Progress = &f
		}
		if v, ok := d["status"]; ok && v != nil {
			s := str(v)
			u.Status = &s
		}
		return u, nil
	case KindCreateAgreement:
		return CreateAgreement{Description: str(d["description"]), Deadline: str(d["deadline"])}, nil
	case KindSetDeadline:
		return SetDeadline{
			MilestoneID:    intPtr(d["milestone_id"]),
			MilestoneTitle: str(d["milestone_title"]),
			Deadline:       str(d["deadline"]),
		}, nil
	case KindChecklist:
		c := Checklist{Title: str(d["title"]), Data: d}
		items, _ := d["items"].([]any)
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			c.Items = append(c.Items, ChecklistItem{
				ID:    str(m["id"]),
				Label: str(m["label"]),
				Type:  str(m["type"]),
				Unit:  str(m["unit"]),
			})
		}
		return c, nil
	case KindSuggestions:
		return Suggestions{Items: suggestionItems(d)}, nil
	case "":
		return nil, fmt.Errorf("action is missing \"type\"")
	default:
		return nil, fmt.Errorf("unknown action type %q", kind)
	}
}

func suggestionItems(d map[string]any) []string {
	var list []any
	for _, key := range []string{"items", "suggestions", "options"} {
		if l, ok := d[key].([]any); ok {
			list = l
			break
		}
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s := strings.TrimSpace(str(v)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// str stringifies a decoded JSON value. Strings pass through, nil is empty,
// containers are re-encoded.
func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

func firstStr(d map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(str(d[k])); s != "" {
			return s
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// toInt accepts integral numbers and numeric strings; 3.5 is rejected.
func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func intPtr(v any) *int {
	n, ok := toInt(v)
	if !ok {
		return nil
	}
	return &n
}
