package appointments

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no appointment matches the lookup.
var ErrNotFound = errors.New("appointments: not found")

// Appointment is one booked slot. Date and Time stay in their normalized
// string forms (YYYY-MM-DD, HH:MM) because that is the contract shared with
// the dialogue layer and the calendar mirror.
type Appointment struct {
	ID              int64     `json:"id"`
	RequesterName   string    `json:"nombre"`
	RequesterEmail  string    `json:"email"`
	Service         string    `json:"servicio"`
	Date            string    `json:"fecha_iso"`
	Time            string    `json:"hora_iso"`
	Notes           string    `json:"observaciones,omitempty"`
	Confidence      float64   `json:"confianza,omitempty"`
	ExternalEventID *string   `json:"external_event_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
