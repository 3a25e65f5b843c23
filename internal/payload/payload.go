package payload

import (
	"encoding/json"
	"strings"
)

// Action tags the payload variants.
type Action string

const (
	ActionCreate  Action = "create"
	ActionConsult Action = "consult"
	ActionCancel  Action = "cancel"
	ActionModify  Action = "modify"
)

// Payload is the structured, action-tagged record the dialogue manager emits.
// Each variant carries only the fields its action requires; Complete reports
// whether the variant may be dispatched.
type Payload interface {
	Action() Action
	Complete() bool
}

// Create books a new appointment. All five identity/schedule fields are
// required; Notes and Confidence are optional.
type Create struct {
	Name       string
	Email      string
	Service    string
	Date       string // ISO YYYY-MM-DD
	Time       string // 24h HH:MM
	Notes      string
	Confidence float64
}

func (Create) Action() Action { return ActionCreate }

func (p Create) Complete() bool {
	return p.Name != "" && p.Email != "" && p.Service != "" && p.Date != "" && p.Time != ""
}

// Consult lists the requester's appointments. Filter is conventionally the
// requester's email.
type Consult struct {
	Filter string
}

func (Consult) Action() Action { return ActionConsult }
func (p Consult) Complete() bool { return p.Filter != "" }

// Cancel removes the first appointment matching Filter.
type Cancel struct {
	Filter string
}

func (Cancel) Action() Action { return ActionCancel }
func (p Cancel) Complete() bool { return p.Filter != "" }

// Modify reschedules the appointment matching Filter. Date and time are
// always replaced together.
type Modify struct {
	Filter  string
	NewDate string
	NewTime string
}

func (Modify) Action() Action { return ActionModify }

func (p Modify) Complete() bool {
	return p.Filter != "" && p.NewDate != "" && p.NewTime != ""
}

// envelope is the wire shape shared with the generative fallback. Field names
// match the JSON contract the model is prompted to produce.
type envelope struct {
	Action     string  `json:"action"`
	Name       string  `json:"nombre,omitempty"`
	Email      string  `json:"email,omitempty"`
	Service    string  `json:"servicio,omitempty"`
	Date       string  `json:"fecha_iso,omitempty"`
	Time       string  `json:"hora_iso,omitempty"`
	Notes      string  `json:"observaciones,omitempty"`
	Confidence float64 `json:"confianza,omitempty"`
	Filter     string  `json:"filtro,omitempty"`
	NewDate    string  `json:"nueva_fecha,omitempty"`
	NewTime    string  `json:"nueva_hora,omitempty"`
}

func (e envelope) toPayload() Payload {
	switch Action(strings.ToLower(strings.TrimSpace(e.Action))) {
	case ActionCreate:
		return Create{
			Name:       clean(e.Name),
			Email:      clean(e.Email),
			Service:    clean(e.Service),
			Date:       clean(e.Date),
			Time:       clean(e.Time),
			Notes:      clean(e.Notes),
			Confidence: e.Confidence,
		}
	case ActionConsult:
		return Consult{Filter: clean(e.Filter)}
	case ActionCancel:
		return Cancel{Filter: clean(e.Filter)}
	case ActionModify:
		return Modify{Filter: clean(e.Filter), NewDate: clean(e.NewDate), NewTime: clean(e.NewTime)}
	default:
		return nil
	}
}

// clean drops the literal "null" some models emit for absent string fields.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

func toEnvelope(p Payload) envelope {
	switch v := p.(type) {
	case Create:
		return envelope{
			Action: string(ActionCreate), Name: v.Name, Email: v.Email,
			Service: v.Service, Date: v.Date, Time: v.Time,
			Notes: v.Notes, Confidence: v.Confidence,
		}
	case Consult:
		return envelope{Action: string(ActionConsult), Filter: v.Filter}
	case Cancel:
		return envelope{Action: string(ActionCancel), Filter: v.Filter}
	case Modify:
		return envelope{
			Action: string(ActionModify), Filter: v.Filter,
			NewDate: v.NewDate, NewTime: v.NewTime,
		}
	default:
		return envelope{}
	}
}

// Fenced renders the payload as a ```json fenced block, the form the
// short-circuit rules emit and the extractor recognizes.
func Fenced(p Payload) string {
	data, err := json.MarshalIndent(toEnvelope(p), "", "  ")
	if err != nil {
		return ""
	}
	return "```json\n" + string(data) + "\n```"
}
