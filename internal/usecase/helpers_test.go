package usecase

import (
	"context"
	"testing"
	"time"

	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/delivery/http/middleware"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/repository"
	"go-clinic-queue/internal/service"
	"go-clinic-queue/internal/testutil"
	"go-clinic-queue/pkg/apperror"

	"gorm.io/gorm"
)

// testNow is 08:00 UTC on the clinic's "today"
var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

const (
	todayStr    = "2026-03-02"
	tomorrowStr = "2026-03-03"
)

type testEnv struct {
	db           *gorm.DB
	f            *testutil.Fixture
	deps         Dependencies
	locker       *service.KeyedLocker
	appointments AppointmentUsecase
	queue        QueueUsecase
}

func newTestEnv(t *testing.T, tweaks ...func(*Dependencies)) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	log := testutil.NewLogger()

	locker := service.NewKeyedLocker(5*time.Second, log)
	t.Cleanup(locker.Stop)

	appointmentRepo := repository.NewAppointmentRepository()
	deps := Dependencies{
		DB:              db,
		Log:             log,
		Locker:          locker,
		Sequence:        service.NewDatabaseSequence(appointmentRepo),
		Audit:           service.NewAuditService(log, repository.NewAuditLogRepository()),
		AppointmentRepo: appointmentRepo,
		QueueEntryRepo:  repository.NewQueueEntryRepository(),
		DoctorRepo:      repository.NewDoctorRepository(),
		PatientRepo:     repository.NewPatientRepository(),
		StaffRepo:       repository.NewStaffRepository(),
		Settings: Settings{
			AvgConsultationMinutes: 15,
			OperationTimeout:       5 * time.Second,
			Location:               time.UTC,
			Now:                    func() time.Time { return testNow },
		},
	}
	for _, tweak := range tweaks {
		tweak(&deps)
	}

	return &testEnv{
		db:           db,
		f:            f,
		deps:         deps,
		locker:       locker,
		appointments: NewAppointmentUsecase(deps),
		queue:        NewQueueUsecase(deps),
	}
}

func asPatient(p entity.Patient) context.Context {
	return middleware.ContextWithUser(context.Background(), *p.UserID, entity.RoleIDPatient)
}

func (e *testEnv) asDoctor() context.Context {
	return middleware.ContextWithUser(context.Background(), e.f.Doctor.UserID, entity.RoleIDDoctor)
}

func (e *testEnv) asStaff() context.Context {
	return middleware.ContextWithUser(context.Background(), e.f.Staff.UserID, entity.RoleIDStaff)
}

func (e *testEnv) asAdmin() context.Context {
	return middleware.ContextWithUser(context.Background(), e.f.AdminID, entity.RoleIDAdmin)
}

func bookingRequest(e *testEnv, date, slot string, kind entity.AppointmentType) *dto.CreateAppointmentRequest {
	return &dto.CreateAppointmentRequest{
		DoctorID:        e.f.Doctor.UserID,
		BookingFor:      string(entity.BookingForSelf),
		AppointmentDate: date,
		AppointmentTime: slot,
		Type:            string(kind),
		PaymentMode:     string(entity.PaymentModeInPerson),
	}
}

// book creates an appointment for the patient or fails the test
func (e *testEnv) book(t *testing.T, p entity.Patient, date, slot string, kind entity.AppointmentType) *dto.AppointmentResponse {
	t.Helper()
	resp, err := e.appointments.CreateAppointment(asPatient(p), bookingRequest(e, date, slot, kind))
	if err != nil {
		t.Fatalf("book %s %s for %s: %v", date, slot, p.FullName, err)
	}
	return resp
}

// checkIn books an in-person visit today and checks the patient in
func (e *testEnv) checkIn(t *testing.T, p entity.Patient, slot string) *dto.QueueStatusResponse {
	t.Helper()
	appt := e.book(t, p, todayStr, slot, entity.AppointmentTypeInPerson)
	status, err := e.queue.CheckIn(asPatient(p), &dto.CheckInRequest{AppointmentID: appt.ID})
	if err != nil {
		t.Fatalf("check in %s: %v", p.FullName, err)
	}
	return status
}

func (e *testEnv) appointment(t *testing.T, id interface{}) *entity.Appointment {
	t.Helper()
	var a entity.Appointment
	if err := e.db.Where("id = ?", id).First(&a).Error; err != nil {
		t.Fatalf("load appointment: %v", err)
	}
	return &a
}

func (e *testEnv) entry(t *testing.T, id interface{}) *entity.QueueEntry {
	t.Helper()
	var q entity.QueueEntry
	if err := e.db.Where("id = ?", id).First(&q).Error; err != nil {
		t.Fatalf("load queue entry: %v", err)
	}
	return &q
}

func (e *testEnv) waitingPositions(t *testing.T) []int {
	t.Helper()
	var entries []entity.QueueEntry
	err := e.db.Where("doctor_id = ? AND status = ?", e.f.Doctor.UserID, entity.QueueStatusWaiting).
		Order("position ASC").Find(&entries).Error
	if err != nil {
		t.Fatalf("load waiting: %v", err)
	}
	positions := make([]int, len(entries))
	for i, q := range entries {
		positions[i] = q.Position
	}
	return positions
}

func wantKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	if !apperror.IsKind(err, kind) {
		t.Fatalf("error = %v, want kind %s", err, kind)
	}
}

func assertDense(t *testing.T, positions []int) {
	t.Helper()
	for i, p := range positions {
		if p != i+1 {
			t.Fatalf("positions %v are not 1..%d", positions, len(positions))
		}
	}
}
