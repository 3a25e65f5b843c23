package appointments

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// db is the slice of the pgx pool the repository needs. pgxmock satisfies it
// in tests.
type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var isoDateRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Repository stores appointments in Postgres.
type Repository struct {
	db db
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(db db) *Repository {
	if db == nil {
		panic("appointments: db required")
	}
	return &Repository{db: db}
}

// Create inserts the appointment and fills in its generated ID and creation
// timestamp.
func (r *Repository) Create(ctx context.Context, a *Appointment) error {
	query := `
		INSERT INTO appointments (requester_name, requester_email, service, date, time, notes, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	var (
		id        int64
		createdAt time.Time
	)
	if err := r.db.QueryRow(ctx, query,
		a.RequesterName,
		a.RequesterEmail,
		a.Service,
		a.Date,
		a.Time,
		a.Notes,
		a.Confidence,
	).Scan(&id, &createdAt); err != nil {
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	a.ID = id
	a.CreatedAt = createdAt
	return nil
}

// List returns appointments matching the free-text filter, most recent
// schedule first. A filter in ISO date form matches the date exactly; any
// other non-empty filter matches service, notes or requester email as a
// substring. An empty filter returns everything.
func (r *Repository) List(ctx context.Context, filter string) ([]Appointment, error) {
	const columns = `id, requester_name, requester_email, service, date, time, notes, confidence, external_event_id, created_at`

	var (
		rows pgx.Rows
		err  error
	)
	switch {
	case filter == "":
		rows, err = r.db.Query(ctx, `
			SELECT `+columns+` FROM appointments
			ORDER BY date DESC, time DESC
		`)
	case isoDateRE.MatchString(filter):
		rows, err = r.db.Query(ctx, `
			SELECT `+columns+` FROM appointments
			WHERE date = $1
			ORDER BY date DESC, time DESC
		`, filter)
	default:
		rows, err = r.db.Query(ctx, `
			SELECT `+columns+` FROM appointments
			WHERE service ILIKE $1 OR notes ILIKE $1 OR requester_email ILIKE $1
			ORDER BY date DESC, time DESC
		`, "%"+filter+"%")
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID,
			&a.RequesterName,
			&a.RequesterEmail,
			&a.Service,
			&a.Date,
			&a.Time,
			&a.Notes,
			&a.Confidence,
			&a.ExternalEventID,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows failed: %w", err)
	}
	return out, nil
}

// First returns the first appointment matching the filter under List's
// ordering, or ErrNotFound.
func (r *Repository) First(ctx context.Context, filter string) (*Appointment, error) {
	matches, err := r.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return &matches[0], nil
}

// UpdateSchedule replaces date and time together. Partial reschedules are not
// supported at this layer.
func (r *Repository) UpdateSchedule(ctx context.Context, id int64, newDate, newTime string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments SET date = $2, time = $3 WHERE id = $1
	`, id, newDate, newTime)
	if err != nil {
		return fmt.Errorf("appointments: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetExternalEventID records the mirrored calendar event for an appointment.
func (r *Repository) SetExternalEventID(ctx context.Context, id int64, eventID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments SET external_event_id = $2 WHERE id = $1
	`, id, eventID)
	if err != nil {
		return fmt.Errorf("appointments: set event id failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the appointment.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointments: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get loads one appointment by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, requester_name, requester_email, service, date, time, notes, confidence, external_event_id, created_at
		FROM appointments WHERE id = $1
	`, id)
	var a Appointment
	if err := row.Scan(
		&a.ID,
		&a.RequesterName,
		&a.RequesterEmail,
		&a.Service,
		&a.Date,
		&a.Time,
		&a.Notes,
		&a.Confidence,
		&a.ExternalEventID,
		&a.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return &a, nil
}
