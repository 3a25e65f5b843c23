package slotfill

import (
	"strings"
	"time"

	"github.com/dgarridoc/citabot/internal/normalize"
	"github.com/dgarridoc/citabot/internal/session"
)

// Field names one slot of the guided booking flow.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldService Field = "service"
	FieldDate    Field = "date"
	FieldTime    Field = "time"
	FieldNotes   Field = "notes"
)

var prompts = map[Field]string{
	FieldName:    "¿Cuál es tu nombre completo?",
	FieldEmail:   "¿Cuál es tu email para la confirmación?",
	FieldService: "¿Para qué servicio quieres la cita?",
	FieldDate:    "¿Qué día te viene bien? (dd/mm/aaaa recomendado)",
	FieldTime:    "¿A qué hora? (HH:MM 24h, por ejemplo 17:30)",
	FieldNotes:   "¿Alguna observación adicional? (opcional, puedes dejarlo en blanco)",
}

const fallbackPrompt = "¿Puedes indicarme el dato que falta?"

// Filler walks the fixed field order, asking exactly one question per turn
// and validating each answer deterministically, with no language model
// involved.
type Filler struct {
	now func() time.Time
}

// New creates a filler. now may be nil to use the wall clock; tests inject a
// fixed instant so relative dates stay reproducible.
func New(now func() time.Time) *Filler {
	if now == nil {
		now = time.Now
	}
	return &Filler{now: now}
}

// PromptFor returns the fixed, single-sentence question for a field. The
// same field always yields the same text.
func PromptFor(field Field) string {
	if q, ok := prompts[field]; ok {
		return q
	}
	return fallbackPrompt
}

// Next returns the first still-missing field in order, or "" when every
// required field is present and notes was already offered.
func Next(state *session.State) Field {
	switch {
	case state.Name == "":
		return FieldName
	case state.Email == "":
		return FieldEmail
	case state.Service == "":
		return FieldService
	case state.Date == "":
		return FieldDate
	case state.Time == "":
		return FieldTime
	}
	return ""
}

// Advance validates the answer against the field currently expected, stores
// the normalized value when it passes, and recomputes the expected field.
// An invalid answer leaves the field empty so the same question is asked
// again next turn.
func (f *Filler) Advance(state *session.State, answer string) {
	field := Field(state.Expected)
	if field == "" {
		field = Next(state)
		if field == "" {
			field = FieldNotes
		}
	}

	text := strings.TrimSpace(answer)
	switch field {
	case FieldName:
		state.Name = text
	case FieldEmail:
		if normalize.ValidEmail(text) {
			state.Email = text
		}
	case FieldService:
		state.Service = text
	case FieldDate:
		state.Date = normalize.ExtractDate(text, f.now())
	case FieldTime:
		// Accept spoken answers ("a las 5 de la tarde") as well as HH:MM.
		state.Time = normalize.Time(text)
		if state.Time == "" {
			state.Time = normalize.ExtractTime(text)
		}
	case FieldNotes:
		state.Notes = text
	}

	if next := Next(state); next != "" {
		state.Expected = string(next)
		return
	}
	if field == FieldNotes || state.Notes != "" {
		state.Expected = ""
		return
	}
	state.Expected = string(FieldNotes)
}

// IsComplete reports whether the five required slots are filled. Notes never
// gates completion.
func IsComplete(state *session.State) bool {
	return state.IsComplete()
}
