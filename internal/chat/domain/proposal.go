package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// Fence tokens delimiting JSON payloads inside a completion.
const (
	FenceTask    = "###TASK_JSON###"
	FenceAction  = "###ACTION_JSON###"
	FenceInsight = "###INSIGHT_JSON###"
)

// ActionType is the kind of side effect a proposal asks the user to approve.
type ActionType string

const (
	ActionTransfer        ActionType = "transfer"
	ActionContactRegister ActionType = "contact_register"
	ActionServicePayment  ActionType = "service_payment"
	ActionBuy             ActionType = "buy"
	ActionSell            ActionType = "sell"
	ActionStake           ActionType = "stake"
)

// UnmarshalJSON reads the type as Text so a non-string value still decodes
// and is later rejected by Valid.
func (t *ActionType) UnmarshalJSON(b []byte) error {
	var s Text
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	*t = ActionType(s)
	return nil
}

// Valid reports whether t is one of the known action types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionTransfer, ActionContactRegister, ActionServicePayment, ActionBuy, ActionSell, ActionStake:
		return true
	}
	return false
}

// Text is a scalar the model may emit either as a JSON string or a number.
type Text string

// UnmarshalJSON accepts any JSON value. Strings are unquoted, null is empty
// and objects or arrays keep their compact JSON text.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && (b[0] == '{' || b[0] == '[') {
		var buf bytes.Buffer
		if err := json.Compact(&buf, b); err != nil {
			return err
		}
		*t = Text(buf.String())
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*t = Text(n.String())
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = Text(strconv.FormatBool(v))
	return nil
}

// ProposedAction is a side effect suggested by the transactions assistant.
// It lives only inside one response until a human approves or rejects it.
type ProposedAction struct {
	ID   Text           `json:"id"`
	Type ActionType     `json:"type"`
	Data map[string]any `json:"data"`

	// Extra holds keys the model sent that have no field above, plus known
	// keys whose value did not fit. They are passed through untouched.
	Extra map[string]any `json:"-"`
}

func (a *ProposedAction) UnmarshalJSON(b []byte) error {
	*a = ProposedAction{}
	extra, err := decodeFields(b, map[string]any{"id": &a.ID, "type": &a.Type, "data": &a.Data})
	a.Extra = extra
	return err
}

func (a ProposedAction) MarshalJSON() ([]byte, error) {
	return encodeFields(a.Extra, map[string]any{"id": a.ID, "type": a.Type, "data": a.Data})
}

// Field returns data[key] rendered as text, or "" when absent.
func (a *ProposedAction) Field(key string) string {
	v, ok := a.Data[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// ProposedTask is a scheduled operation suggested by the investment advisor.
type ProposedTask struct {
	ID          Text       `json:"id"`
	Title       Text       `json:"title"`
	Type        ActionType `json:"type"`
	Amount      Text       `json:"amount"`
	Token       Text       `json:"token"`
	Network     Text       `json:"network"`
	GasEstimate Text       `json:"gasEstimate"`

	// Extra holds unrecognised keys such as a schedule frequency.
	Extra map[string]any `json:"-"`
}

func (t *ProposedTask) fields() map[string]any {
	return map[string]any{
		"id": &t.ID, "title": &t.Title, "type": &t.Type, "amount": &t.Amount,
		"token": &t.Token, "network": &t.Network, "gasEstimate": &t.GasEstimate,
	}
}

func (t *ProposedTask) UnmarshalJSON(b []byte) error {
	*t = ProposedTask{}
	extra, err := decodeFields(b, t.fields())
	t.Extra = extra
	return err
}

func (t ProposedTask) MarshalJSON() ([]byte, error) {
	return encodeFields(t.Extra, t.fields())
}

// AsAction converts a task into the action the approval flow understands.
// Extra keys are carried into Data without overriding the mapped ones.
func (t *ProposedTask) AsAction() *ProposedAction {
	data := map[string]any{
		"amount":       string(t.Amount),
		"token":        string(t.Token),
		"network":      string(t.Network),
		"description":  string(t.Title),
		"gas_estimate": string(t.GasEstimate),
	}
	for k, v := range t.Extra {
		if _, ok := data[k]; !ok {
			data[k] = v
		}
	}
	return &ProposedAction{ID: t.ID, Type: t.Type, Data: data}
}

// InsightType values used by the education coach.
const (
	InsightSaving     = "ahorro"
	InsightGoal       = "meta"
	InsightDebt       = "deuda"
	InsightInvestment = "inversion"
)

// ProposedInsight is an informational card. It has no approval side effect.
type ProposedInsight struct {
	ID              Text           `json:"id"`
	Type            Text           `json:"type"`
	Title           Text           `json:"title"`
	Description     Text           `json:"description"`
	DataSummary     map[string]any `json:"data_summary,omitempty"`
	SourceReference Text           `json:"source_reference,omitempty"`
	SuggestedAction Text           `json:"suggested_action,omitempty"`

	Extra map[string]any `json:"-"`
}

func (in *ProposedInsight) UnmarshalJSON(b []byte) error {
	*in = ProposedInsight{}
	extra, err := decodeFields(b, map[string]any{
		"id": &in.ID, "type": &in.Type, "title": &in.Title, "description": &in.Description,
		"data_summary": &in.DataSummary, "source_reference": &in.SourceReference,
		"suggested_action": &in.SuggestedAction,
	})
	in.Extra = extra
	return err
}

func (in ProposedInsight) MarshalJSON() ([]byte, error) {
	fields := map[string]any{"id": in.ID, "type": in.Type, "title": in.Title, "description": in.Description}
	if len(in.DataSummary) > 0 {
		fields["data_summary"] = in.DataSummary
	}
	if in.SourceReference != "" {
		fields["source_reference"] = in.SourceReference
	}
	if in.SuggestedAction != "" {
		fields["suggested_action"] = in.SuggestedAction
	}
	return encodeFields(in.Extra, fields)
}

// decodeFields fills each target from the same key of the JSON object b.
// Keys without a target, and values their target rejects, come back as
// extras. Only a payload that is not an object is an error.
func decodeFields(b []byte, targets map[string]any) (map[string]any, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("payload is not a JSON object")
	}
	var extra map[string]any
	for key, value := range raw {
		if dst, ok := targets[key]; ok && json.Unmarshal(value, dst) == nil {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return nil, err
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[key] = v
	}
	return extra, nil
}

// encodeFields merges extra and fields into one object. Pointers in fields
// are followed by json.Marshal.
func encodeFields(extra, fields map[string]any) ([]byte, error) {
	out := make(map[string]any, len(extra)+len(fields))
	for k, v := range fields {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return json.Marshal(out)
}
