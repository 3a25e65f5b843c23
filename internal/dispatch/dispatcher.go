package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgarridoc/citabot/internal/appointments"
	"github.com/dgarridoc/citabot/internal/calendar"
	"github.com/dgarridoc/citabot/internal/normalize"
	"github.com/dgarridoc/citabot/internal/notify"
	"github.com/dgarridoc/citabot/internal/observability/metrics"
	"github.com/dgarridoc/citabot/internal/payload"
	"github.com/dgarridoc/citabot/pkg/logging"
)

// repository is the slice of the appointments store the dispatcher uses.
type repository interface {
	Create(ctx context.Context, a *appointments.Appointment) error
	List(ctx context.Context, filter string) ([]appointments.Appointment, error)
	First(ctx context.Context, filter string) (*appointments.Appointment, error)
	UpdateSchedule(ctx context.Context, id int64, newDate, newTime string) error
	SetExternalEventID(ctx context.Context, id int64, eventID string) error
	Delete(ctx context.Context, id int64) error
}

// Dispatcher executes completed payloads against the appointment store, then
// mirrors the change to the calendar and notifies the requester. The store is
// the source of truth: mirror and email failures degrade to warnings, store
// failures abort the action.
type Dispatcher struct {
	repo    repository
	mirror  calendar.Mirror
	mail    notify.EmailSender
	metrics *metrics.ChatMetrics
	logger  *logging.Logger
	now     func() time.Time

	// InviteAttendee controls whether the requester is added as a calendar
	// attendee (triggers a Google invitation email).
	InviteAttendee bool
}

// New creates a dispatcher. mirror and mail may be nil to disable those
// side effects; metrics may be nil.
func New(repo repository, mirror calendar.Mirror, mail notify.EmailSender, m *metrics.ChatMetrics, logger *logging.Logger) *Dispatcher {
	if repo == nil {
		panic("dispatch: repository required")
	}
	if mirror == nil {
		mirror = calendar.NoopMirror{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		repo:    repo,
		mirror:  mirror,
		mail:    mail,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Dispatch executes the payload and returns the Spanish confirmation text
// shown to the user. A returned error means the store operation itself
// failed and nothing was booked.
func (d *Dispatcher) Dispatch(ctx context.Context, p payload.Payload) (string, error) {
	var (
		msg string
		err error
	)
	switch v := p.(type) {
	case payload.Create:
		msg, err = d.create(ctx, v)
	case payload.Consult:
		msg, err = d.consult(ctx, v)
	case payload.Cancel:
		msg, err = d.cancel(ctx, v)
	case payload.Modify:
		msg, err = d.modify(ctx, v)
	default:
		return "", fmt.Errorf("dispatch: unsupported payload %T", p)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	d.metrics.ObserveDispatch(string(p.Action()), outcome)
	return msg, err
}

func (d *Dispatcher) create(ctx context.Context, p payload.Create) (string, error) {
	appt := &appointments.Appointment{
		RequesterName:  p.Name,
		RequesterEmail: p.Email,
		Service:        p.Service,
		Date:           p.Date,
		Time:           p.Time,
		Notes:          p.Notes,
		Confidence:     p.Confidence,
	}
	if err := d.repo.Create(ctx, appt); err != nil {
		return "", err
	}

	d.mirrorCreate(ctx, appt)

	if d.mail != nil {
		if err := d.mail.Send(ctx, notify.ConfirmationEmail(appt)); err != nil {
			d.logger.Warn("confirmation email failed", "error", err, "appointment_id", appt.ID)
		}
	}

	return fmt.Sprintf("Tu cita de %s ha quedado registrada para el %s a las %s. Te he enviado la confirmación a %s.",
		appt.Service, appt.Date, appt.Time, appt.RequesterEmail), nil
}

func (d *Dispatcher) mirrorCreate(ctx context.Context, appt *appointments.Appointment) {
	summary := fmt.Sprintf("Cita: %s - %s", appt.Service, appt.RequesterName)
	var attendees []string
	if d.InviteAttendee {
		attendees = []string{appt.RequesterEmail}
	}
	event, err := d.mirror.CreateEvent(ctx, summary, appt.Notes, appt.Date, appt.Time, attendees)
	if err != nil {
		d.logger.Warn("calendar mirror failed", "error", err, "appointment_id", appt.ID)
		return
	}
	if event == nil {
		return
	}
	if err := d.repo.SetExternalEventID(ctx, appt.ID, event.ID); err != nil {
		d.logger.Warn("could not record calendar event id", "error", err, "appointment_id", appt.ID)
		return
	}
	appt.ExternalEventID = &event.ID
}

func (d *Dispatcher) consult(ctx context.Context, p payload.Consult) (string, error) {
	matches, err := d.repo.List(ctx, d.normalizeFilter(p.Filter))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "No he encontrado citas que coincidan con tu búsqueda.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "He encontrado %d cita(s):\n", len(matches))
	for _, a := range matches {
		fmt.Fprintf(&b, "- %s a las %s: %s", a.Date, a.Time, a.Service)
		if a.Notes != "" {
			fmt.Fprintf(&b, " (%s)", a.Notes)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (d *Dispatcher) cancel(ctx context.Context, p payload.Cancel) (string, error) {
	appt, err := d.repo.First(ctx, d.normalizeFilter(p.Filter))
	if errors.Is(err, appointments.ErrNotFound) {
		return "No encontré ninguna cita que coincida con ese criterio, así que no he cancelado nada.", nil
	}
	if err != nil {
		return "", err
	}

	if err := d.repo.Delete(ctx, appt.ID); err != nil {
		return "", err
	}
	if appt.ExternalEventID != nil {
		if err := d.mirror.DeleteEvent(ctx, *appt.ExternalEventID); err != nil {
			d.logger.Warn("calendar delete failed", "error", err, "event_id", *appt.ExternalEventID)
		}
	}

	return fmt.Sprintf("He cancelado tu cita de %s del %s a las %s.", appt.Service, appt.Date, appt.Time), nil
}

func (d *Dispatcher) modify(ctx context.Context, p payload.Modify) (string, error) {
	appt, err := d.repo.First(ctx, d.normalizeFilter(p.Filter))
	if errors.Is(err, appointments.ErrNotFound) {
		return "No encontré ninguna cita que coincida con ese criterio, así que no he cambiado nada.", nil
	}
	if err != nil {
		return "", err
	}

	newDate := normalize.Date(p.NewDate, d.now())
	if newDate == "" {
		newDate = p.NewDate
	}
	newTime := normalize.Time(p.NewTime)
	if newTime == "" {
		newTime = p.NewTime
	}

	if err := d.repo.UpdateSchedule(ctx, appt.ID, newDate, newTime); err != nil {
		return "", err
	}
	if appt.ExternalEventID != nil {
		if _, err := d.mirror.UpdateEvent(ctx, *appt.ExternalEventID, newDate, newTime); err != nil {
			d.logger.Warn("calendar update failed", "error", err, "event_id", *appt.ExternalEventID)
		}
	} else {
		// The row was never mirrored (or the mirror was down at creation);
		// rescheduling is a second chance to get the event on the calendar.
		appt.Date = newDate
		appt.Time = newTime
		d.mirrorCreate(ctx, appt)
	}

	return fmt.Sprintf("He movido tu cita de %s al %s a las %s.", appt.Service, newDate, newTime), nil
}

// normalizeFilter resolves date-like filters to ISO form so "10/12/2025" and
// "mañana" hit the exact-date query. Anything else passes through as text.
func (d *Dispatcher) normalizeFilter(filter string) string {
	filter = strings.TrimSpace(filter)
	if iso := normalize.Date(filter, d.now()); iso != "" {
		return iso
	}
	return filter
}
