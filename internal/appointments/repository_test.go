package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var cols = []string{"id", "requester_name", "requester_email", "service", "date", "time", "notes", "confidence", "external_event_id", "created_at"}

func TestCreateFillsIDAndTimestamp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	created := time.Date(2025, 12, 9, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs("Ana García", "ana@example.com", "dermatología", "2025-12-10", "17:00", "", 0.9).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	repo := NewRepository(mock)
	a := &Appointment{
		RequesterName:  "Ana García",
		RequesterEmail: "ana@example.com",
		Service:        "dermatología",
		Date:           "2025-12-10",
		Time:           "17:00",
		Confidence:     0.9,
	}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID != 7 || !a.CreatedAt.Equal(created) {
		t.Errorf("generated fields not filled: %+v", a)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListByISODateFiltersExactly(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("WHERE date = \\$1").
		WithArgs("2025-12-10").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(2), "Ana", "ana@example.com", "dermatología", "2025-12-10", "17:00", "", 0.0, nil, time.Now()).
			AddRow(int64(1), "Ana", "ana@example.com", "médico", "2025-12-10", "09:00", "", 0.0, nil, time.Now()))

	repo := NewRepository(mock)
	got, err := repo.List(context.Background(), "2025-12-10")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].Time != "17:00" {
		t.Errorf("expected most recent schedule first, got %q", got[0].Time)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListFreeTextUsesSubstringMatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("service ILIKE \\$1 OR notes ILIKE \\$1 OR requester_email ILIKE \\$1").
		WithArgs("%dermat%").
		WillReturnRows(pgxmock.NewRows(cols))

	repo := NewRepository(mock)
	if _, err := repo.List(context.Background(), "dermat"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestFirstReturnsNotFoundOnEmptyResult(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT").WithArgs("%nada%").WillReturnRows(pgxmock.NewRows(cols))

	repo := NewRepository(mock)
	if _, err := repo.First(context.Background(), "nada"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateScheduleReplacesBothFields(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("UPDATE appointments SET date = \\$2, time = \\$3").
		WithArgs(int64(7), "2025-12-12", "11:30").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewRepository(mock)
	if err := repo.UpdateSchedule(context.Background(), 7, "2025-12-12", "11:30"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteMissingRowIsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("DELETE FROM appointments").
		WithArgs(int64(99)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewRepository(mock)
	if err := repo.Delete(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
