package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-api/internal/models"
)

var appointmentColumnList = []string{"id", "patient_id", "doctor_id", "slot_date", "slot_time", "amount", "payment", "cancelled", "is_completed", "patient_snapshot", "doctor_snapshot", "booked_at", "updated_at"}

func appointmentRow(id string, cancelled bool) *sqlmock.Rows {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(appointmentColumnList).
		AddRow(id, "pat-1", "doc-1", "2024-01-05", "10:00", 50.0, false, cancelled, false,
			[]byte(`{"name":"jane.doe","email":"jane.doe@example.com"}`), []byte(`{"name":"Dr. D"}`), now, now)
}

func TestAppointmentRepositoryCancelReleasesOwnSlot(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM appointments WHERE id = $1 FOR UPDATE")).
		WithArgs("apt-1").
		WillReturnRows(appointmentRow("apt-1", false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE appointments SET cancelled = TRUE")).
		WithArgs("apt-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM doctor_booked_slots WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3 AND appointment_id = $4")).
		WithArgs("doc-1", "2024-01-05", "10:00", "apt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := repo.Cancel(context.Background(), "apt-1", at)
	require.NoError(t, err)
	assert.False(t, out.AlreadyCancelled)
	assert.True(t, out.Appointment.Cancelled)
	assert.Equal(t, int64(1), out.SlotsReleased)
	assert.Equal(t, "jane.doe", out.Appointment.PatientSnapshot.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCancelTwiceStillAttemptsRelease(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("apt-1").WillReturnRows(appointmentRow("apt-1", true))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM doctor_booked_slots")).
		WithArgs("doc-1", "2024-01-05", "10:00", "apt-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	out, err := repo.Cancel(context.Background(), "apt-1", time.Now())
	require.NoError(t, err)
	assert.True(t, out.AlreadyCancelled)
	assert.Zero(t, out.SlotsReleased)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCancelRollsBackWhenReleaseFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(appointmentRow("apt-1", false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE appointments SET cancelled = TRUE")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM doctor_booked_slots")).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.Cancel(context.Background(), "apt-1", time.Now())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCancelMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Cancel(context.Background(), "apt-x", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAppointmentRepositoryBookSlotTaken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO doctor_booked_slots")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Book(context.Background(), &models.Appointment{ID: "apt-2", DoctorID: "doc-1", SlotDate: "2024-01-05", SlotTime: "10:00"})
	assert.ErrorIs(t, err, ErrSlotTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryBook(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO doctor_booked_slots")).
		WithArgs("doc-1", "2024-01-05", "10:00", "apt-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO appointments")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Book(context.Background(), &models.Appointment{ID: "apt-2", DoctorID: "doc-1", SlotDate: "2024-01-05", SlotTime: "10:00"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryBookedSlots(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM doctor_booked_slots WHERE doctor_id = $1")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"doctor_id", "slot_date", "slot_time", "appointment_id", "created_at"}).
			AddRow("doc-1", "2024-01-05", "10:00", "apt-1", now).
			AddRow("doc-1", "2024-01-05", "11:00", "apt-2", now).
			AddRow("doc-1", "2024-01-06", "09:00", "apt-3", now))

	registry, err := repo.BookedSlots(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "11:00"}, registry["2024-01-05"])
	assert.True(t, registry.Has("2024-01-06", "09:00"))
}

func TestAppointmentRepositoryReconcileDoctorSlots(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM doctor_booked_slots s")).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (doctor_id, slot_date, slot_time) DO NOTHING")).
		WithArgs("doc-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, restored, err := repo.ReconcileDoctorSlots(context.Background(), "doc-1", at)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Equal(t, int64(1), restored)
}

func TestAppointmentRepositoryListScopes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE doctor_id = $1 ORDER BY booked_at DESC, id ASC LIMIT $2")).
		WithArgs("doc-1", 5).
		WillReturnRows(appointmentRow("apt-1", false))

	items, err := repo.List(context.Background(), models.AppointmentFilter{DoctorID: "doc-1", Limit: 5})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Dr. D", items[0].DoctorSnapshot.Name)
}
