package appointments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/dgarridoc/citabot/internal/calendar"
	"github.com/dgarridoc/citabot/pkg/logging"
)

func testAdminHandler(t *testing.T) (*Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewHandler(NewRepository(pool), nil, logging.Default()), pool
}

func appointmentRows(t *testing.T) *pgxmock.Rows {
	t.Helper()
	return pgxmock.NewRows([]string{
		"id", "requester_name", "requester_email", "service", "date", "time",
		"notes", "confidence", "external_event_id", "created_at",
	})
}

func TestListFiltersByQueryParam(t *testing.T) {
	h, pool := testAdminHandler(t)

	pool.ExpectQuery("SELECT .+ FROM appointments").
		WithArgs("%dermatología%").
		WillReturnRows(appointmentRows(t).
			AddRow(int64(7), "Ana García", "ana@example.com", "dermatología",
				"2025-12-10", "10:00", "", 0.9, (*string)(nil), time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/?filter=dermatología", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count":1`)
	require.Contains(t, rec.Body.String(), "ana@example.com")
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestGetUnknownIDReturns404(t *testing.T) {
	h, pool := testAdminHandler(t)

	pool.ExpectQuery("FROM appointments WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(appointmentRows(t))

	req := httptest.NewRequest(http.MethodGet, "/99", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRejectsMalformedID(t *testing.T) {
	h, _ := testAdminHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/abc", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteRemovesAppointment(t *testing.T) {
	h, pool := testAdminHandler(t)

	pool.ExpectExec("DELETE FROM appointments").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	req := httptest.NewRequest(http.MethodDelete, "/7", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NoError(t, pool.ExpectationsWereMet())
}

type stubMirror struct {
	events []calendar.Event
	gotMax int64
}

func (m *stubMirror) CreateEvent(context.Context, string, string, string, string, []string) (*calendar.Event, error) {
	return nil, nil
}
func (m *stubMirror) UpdateEvent(context.Context, string, string, string) (*calendar.Event, error) {
	return nil, nil
}
func (m *stubMirror) DeleteEvent(context.Context, string) error { return nil }
func (m *stubMirror) ListFutureEvents(_ context.Context, max int64) ([]calendar.Event, error) {
	m.gotMax = max
	return m.events, nil
}

func TestUpcomingListsMirroredEvents(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	mirror := &stubMirror{events: []calendar.Event{{ID: "evt-1", Summary: "Cita: dermatología - Ana"}}}
	h := NewHandler(NewRepository(pool), mirror, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/calendar?max=5", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 5, mirror.gotMax)
	require.Contains(t, rec.Body.String(), "evt-1")
}

func TestDeleteUnknownIDReturns404(t *testing.T) {
	h, pool := testAdminHandler(t)

	pool.ExpectExec("DELETE FROM appointments").
		WithArgs(int64(99)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	req := httptest.NewRequest(http.MethodDelete, "/99", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
