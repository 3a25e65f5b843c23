package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/dgarridoc/citabot/pkg/logging"
)

// Event is the slice of a calendar entry the rest of the system cares about.
type Event struct {
	ID       string
	Summary  string
	Start    string // RFC3339
	End      string // RFC3339
	HTMLLink string
}

// Mirror keeps the external calendar in step with the appointment table.
// Mirror failures are reported but never abort the booking itself.
type Mirror interface {
	CreateEvent(ctx context.Context, summary, description, dateISO, timeHHMM string, attendees []string) (*Event, error)
	UpdateEvent(ctx context.Context, eventID, newDateISO, newTimeHHMM string) (*Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	ListFutureEvents(ctx context.Context, maxResults int64) ([]Event, error)
}

// Options configures the Google-backed mirror.
type Options struct {
	CalendarID   string // defaults to "primary"
	Timezone     string // IANA name, defaults to "Europe/Madrid"
	TokenFile    string
	ClientID     string
	ClientSecret string
	Duration     time.Duration // event length for new bookings
}

// GoogleMirror mirrors appointments into a Google Calendar.
type GoogleMirror struct {
	service    *gcal.Service
	calendarID string
	timezone   string
	location   *time.Location
	duration   time.Duration
	logger     *logging.Logger
}

// NewGoogleMirror builds the mirror from a stored OAuth token. The token file
// must already exist; there is no interactive auth flow in the server.
func NewGoogleMirror(ctx context.Context, opts Options, logger *logging.Logger) (*GoogleMirror, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.CalendarID == "" {
		opts.CalendarID = "primary"
	}
	if opts.Timezone == "" {
		opts.Timezone = "Europe/Madrid"
	}
	if opts.Duration <= 0 {
		opts.Duration = 60 * time.Minute
	}

	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar: unknown timezone %q: %w", opts.Timezone, err)
	}

	config := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		Scopes:       []string{gcal.CalendarScope},
		Endpoint:     google.Endpoint,
	}
	token, err := tokenFromFile(opts.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("calendar: could not load token from %s: %w", opts.TokenFile, err)
	}

	service, err := gcal.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to create service: %w", err)
	}

	return &GoogleMirror{
		service:    service,
		calendarID: opts.CalendarID,
		timezone:   opts.Timezone,
		location:   loc,
		duration:   opts.Duration,
		logger:     logger,
	}, nil
}

// CreateEvent inserts an event for the booked slot and returns its identity.
func (m *GoogleMirror) CreateEvent(ctx context.Context, summary, description, dateISO, timeHHMM string, attendees []string) (*Event, error) {
	start, end, err := eventWindow(dateISO, timeHHMM, m.location, m.duration)
	if err != nil {
		return nil, err
	}

	event := &gcal.Event{
		Summary:     summary,
		Description: description,
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: m.timezone},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: m.timezone},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "popup", Minutes: 30},
				{Method: "email", Minutes: 120},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	for _, email := range attendees {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
	}

	created, err := m.service.Events.Insert(m.calendarID, event).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: insert failed: %w", err)
	}

	m.logger.Info("calendar event created", "event_id", created.Id, "start", start.Format(time.RFC3339))
	return toEvent(created), nil
}

// UpdateEvent moves an existing event to a new date and time, keeping its
// original duration.
func (m *GoogleMirror) UpdateEvent(ctx context.Context, eventID, newDateISO, newTimeHHMM string) (*Event, error) {
	event, err := m.service.Events.Get(m.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: load event %s: %w", eventID, err)
	}

	duration := m.duration
	if event.Start != nil && event.End != nil && event.Start.DateTime != "" && event.End.DateTime != "" {
		oldStart, serr := time.Parse(time.RFC3339, event.Start.DateTime)
		oldEnd, eerr := time.Parse(time.RFC3339, event.End.DateTime)
		if serr == nil && eerr == nil && oldEnd.After(oldStart) {
			duration = oldEnd.Sub(oldStart)
		}
	}

	start, end, err := eventWindow(newDateISO, newTimeHHMM, m.location, duration)
	if err != nil {
		return nil, err
	}

	event.Start = &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: m.timezone}
	event.End = &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: m.timezone}

	updated, err := m.service.Events.Update(m.calendarID, eventID, event).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: update failed: %w", err)
	}

	m.logger.Info("calendar event rescheduled", "event_id", eventID, "start", start.Format(time.RFC3339))
	return toEvent(updated), nil
}

// DeleteEvent removes the mirrored event, notifying attendees.
func (m *GoogleMirror) DeleteEvent(ctx context.Context, eventID string) error {
	err := m.service.Events.Delete(m.calendarID, eventID).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("calendar: delete failed: %w", err)
	}
	m.logger.Info("calendar event deleted", "event_id", eventID)
	return nil
}

// ListFutureEvents returns upcoming single events in start order.
func (m *GoogleMirror) ListFutureEvents(ctx context.Context, maxResults int64) ([]Event, error) {
	if maxResults <= 0 {
		maxResults = 50
	}
	now := time.Now().In(m.location).Format(time.RFC3339)
	result, err := m.service.Events.List(m.calendarID).
		TimeMin(now).
		MaxResults(maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: list failed: %w", err)
	}

	var out []Event
	for _, item := range result.Items {
		out = append(out, *toEvent(item))
	}
	return out, nil
}

// eventWindow resolves the normalized date and time strings into concrete
// start and end instants in the mirror's timezone.
func eventWindow(dateISO, timeHHMM string, loc *time.Location, duration time.Duration) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", dateISO+" "+timeHHMM, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("calendar: bad schedule %q %q: %w", dateISO, timeHHMM, err)
	}
	return start, start.Add(duration), nil
}

func toEvent(e *gcal.Event) *Event {
	out := &Event{ID: e.Id, Summary: e.Summary, HTMLLink: e.HtmlLink}
	if e.Start != nil {
		out.Start = e.Start.DateTime
	}
	if e.End != nil {
		out.End = e.End.DateTime
	}
	return out
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}
