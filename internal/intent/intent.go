package intent

import "strings"

// Intent is the user's high-level requested action.
type Intent string

const (
	None    Intent = "none"
	Create  Intent = "create"
	Consult Intent = "consult"
	Cancel  Intent = "cancel"
	Modify  Intent = "modify"
)

// BookingState is the subset of conversation state the classifier needs: it
// only asks whether any booking field has already been collected.
type BookingState interface {
	HasBookingData() bool
}

// Keyword tables carry accented and unaccented variants so the match stays
// accent-tolerant without a normalization pass.
var (
	consultPhrases = []string{
		"qué citas tengo", "que citas tengo", "ver mis citas",
		"mis citas", "consultar citas", "consulta mis citas",
	}
	cancelWords = []string{"cancela", "anula", "elimina", "borra"}
	modifyWords = []string{"cambia", "modifica", "reprograma", "mueve"}
	createWords = []string{
		"agendame", "agéndame", "agenda", "agendar", "ponme una cita",
		"quiero una cita", "reserva una cita", "programa una cita",
		"cita", "reunión", "reunion", "evento",
	}
)

// Detect maps an utterance to an intent using literal keyword membership in
// fixed priority order: consult, then cancel, then modify, then create.
//
// If the state already holds booking data and the utterance matches none of
// the consult/cancel/modify tables, the intent is forced to Create so an
// ambiguous follow-up ("mañana", "a las 10") cannot derail an in-progress
// booking.
func Detect(utterance string, state BookingState) Intent {
	text := strings.ToLower(strings.TrimSpace(utterance))

	switch {
	case matchesAny(text, consultPhrases):
		return Consult
	case matchesAny(text, cancelWords):
		return Cancel
	case matchesAny(text, modifyWords):
		return Modify
	}

	if matchesAny(text, createWords) {
		return Create
	}
	if state != nil && state.HasBookingData() {
		return Create
	}
	return None
}

func matchesAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
