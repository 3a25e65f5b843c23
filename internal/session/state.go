package session

import "encoding/json"

// State is the per-session record of the in-progress appointment. Field
// names mirror the payload contract; empty string means "not yet known".
type State struct {
	Name     string `json:"nombre,omitempty"`
	Email    string `json:"email,omitempty"`
	Service  string `json:"servicio,omitempty"`
	Date     string `json:"fecha_iso,omitempty"`
	Time     string `json:"hora_iso,omitempty"`
	Notes    string `json:"observaciones,omitempty"`
	Expected string `json:"-"` // next field the slot-filler will ask for
}

// Partial carries incoming field values for a merge. Empty fields are
// ignored.
type Partial struct {
	Name    string
	Email   string
	Service string
	Date    string
	Time    string
	Notes   string
}

// Merge writes only fields that are still empty in the state. Values the
// user already supplied are never clobbered by later extractions.
func (s *State) Merge(p Partial) {
	fill(&s.Name, p.Name)
	fill(&s.Email, p.Email)
	fill(&s.Service, p.Service)
	fill(&s.Date, p.Date)
	fill(&s.Time, p.Time)
	fill(&s.Notes, p.Notes)
}

// MergeCorrections overwrites any field for which the incoming partial
// carries a non-empty value. The generative path uses this: a re-emitted
// non-null payload field is an explicit correction.
func (s *State) MergeCorrections(p Partial) {
	overwrite(&s.Name, p.Name)
	overwrite(&s.Email, p.Email)
	overwrite(&s.Service, p.Service)
	overwrite(&s.Date, p.Date)
	overwrite(&s.Time, p.Time)
	overwrite(&s.Notes, p.Notes)
}

// Reset returns the state to empty. Invoked immediately after a dispatched
// action so stale date/time cannot leak into the next booking.
func (s *State) Reset() {
	*s = State{}
}

// HasBookingData reports whether any booking-relevant field has been
// collected. The intent classifier uses this for the sticky-create rule.
func (s *State) HasBookingData() bool {
	return s.Name != "" || s.Email != "" || s.Service != "" || s.Date != "" || s.Time != ""
}

// IsComplete reports whether the five required fields are present. Notes is
// never required.
func (s *State) IsComplete() bool {
	return s.Name != "" && s.Email != "" && s.Service != "" && s.Date != "" && s.Time != ""
}

// Serialized renders the state as the compact JSON injected into the
// fallback prompt's context tag.
func (s *State) Serialized() string {
	data, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func fill(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func overwrite(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
