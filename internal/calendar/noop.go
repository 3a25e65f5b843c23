package calendar

import "context"

// NoopMirror is used when the calendar integration is disabled. Bookings
// proceed without an external event.
type NoopMirror struct{}

func (NoopMirror) CreateEvent(ctx context.Context, summary, description, dateISO, timeHHMM string, attendees []string) (*Event, error) {
	return nil, nil
}

func (NoopMirror) UpdateEvent(ctx context.Context, eventID, newDateISO, newTimeHHMM string) (*Event, error) {
	return nil, nil
}

func (NoopMirror) DeleteEvent(ctx context.Context, eventID string) error { return nil }

func (NoopMirror) ListFutureEvents(ctx context.Context, maxResults int64) ([]Event, error) {
	return nil, nil
}
