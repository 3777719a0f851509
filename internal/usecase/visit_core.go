package usecase

import (
	"context"
	"time"

	"go-clinic-queue/internal/delivery/http/middleware"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/domain/repository"
	"go-clinic-queue/internal/infrastructure/metrics"
	"go-clinic-queue/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultAvgConsultationMinutes = 15
	defaultOperationTimeout       = 5 * time.Second
)

// Settings tune the queue engine. Zero values fall back to defaults.
type Settings struct {
	AvgConsultationMinutes int
	OperationTimeout       time.Duration
	// Location decides which calendar day is "today"
	Location *time.Location
	Now      func() time.Time
}

// Dependencies are shared by the appointment and queue usecases
type Dependencies struct {
	DB              *gorm.DB
	Log             *logrus.Logger
	Locker          *service.KeyedLocker
	Sequence        service.SequenceAllocator
	Audit           service.AuditService
	Metrics         *metrics.Metrics
	AppointmentRepo repository.AppointmentRepository
	QueueEntryRepo  repository.QueueEntryRepository
	DoctorRepo      repository.DoctorRepository
	PatientRepo     repository.PatientRepository
	StaffRepo       repository.StaffRepository
	Settings        Settings
}

// visitCore holds the state shared by both usecases: the per-doctor-day
// critical section and the appointment/queue coupling.
type visitCore struct {
	db              *gorm.DB
	log             *logrus.Logger
	locker          *service.KeyedLocker
	sequence        service.SequenceAllocator
	audit           service.AuditService
	metrics         *metrics.Metrics
	appointmentRepo repository.AppointmentRepository
	queueRepo       repository.QueueEntryRepository
	doctorRepo      repository.DoctorRepository
	patientRepo     repository.PatientRepository
	staffRepo       repository.StaffRepository

	avgMinutes int
	opTimeout  time.Duration
	location   *time.Location
	now        func() time.Time
}

func newVisitCore(deps Dependencies) *visitCore {
	c := &visitCore{
		db:              deps.DB,
		log:             deps.Log,
		locker:          deps.Locker,
		sequence:        deps.Sequence,
		audit:           deps.Audit,
		metrics:         deps.Metrics,
		appointmentRepo: deps.AppointmentRepo,
		queueRepo:       deps.QueueEntryRepo,
		doctorRepo:      deps.DoctorRepo,
		patientRepo:     deps.PatientRepo,
		staffRepo:       deps.StaffRepo,
		avgMinutes:      deps.Settings.AvgConsultationMinutes,
		opTimeout:       deps.Settings.OperationTimeout,
		location:        deps.Settings.Location,
		now:             deps.Settings.Now,
	}
	if c.avgMinutes <= 0 {
		c.avgMinutes = defaultAvgConsultationMinutes
	}
	if c.opTimeout <= 0 {
		c.opTimeout = defaultOperationTimeout
	}
	if c.location == nil {
		c.location = time.UTC
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// caller is the identity resolved by the auth middleware
type caller struct {
	userID uuid.UUID
	roleID int
}

func (c caller) is(roleID int) bool {
	return c.roleID == roleID
}

func callerFromContext(ctx context.Context) (caller, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return caller{}, ErrUnauthenticated
	}
	roleID, ok := middleware.GetRoleIDFromContext(ctx)
	if !ok {
		return caller{}, ErrUnauthenticated
	}
	return caller{userID: userID, roleID: roleID}, nil
}

// clock returns the current instant in UTC
func (c *visitCore) clock() time.Time {
	return c.now().UTC()
}

// today is the clinic's current calendar date, stored as UTC midnight
func (c *visitCore) today() time.Time {
	return toDate(c.now().In(c.location))
}

func toDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (c *visitCore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

// inDoctorDay runs fn in a transaction while holding the doctor-day lock and
// the doctor's row lock. The doctor row is passed to fn; a missing doctor
// fails with ErrDoctorNotFound. Nothing is written unless fn returns nil.
func (c *visitCore) inDoctorDay(ctx context.Context, doctorID uuid.UUID, date time.Time, fn func(tx *gorm.DB, doctor *entity.Doctor) error) error {
	unlock, err := c.locker.Lock(ctx, service.DoctorDayKey(doctorID, date))
	if err != nil {
		return classifyStoreError(err)
	}
	defer unlock()

	tx := c.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		c.log.Warnf("Failed to begin transaction: %+v", tx.Error)
		return classifyStoreError(tx.Error)
	}
	defer tx.Rollback()

	doctor, err := c.doctorRepo.LockByUserID(tx, doctorID)
	if err != nil {
		c.log.Warnf("Failed to lock doctor %s: %+v", doctorID, err)
		return classifyStoreError(err)
	}
	if doctor == nil {
		return ErrDoctorNotFound
	}

	if err := fn(tx, doctor); err != nil {
		return classifyStoreError(err)
	}

	if err := tx.Commit().Error; err != nil {
		c.log.Warnf("Failed to commit transaction: %+v", err)
		return classifyStoreError(err)
	}
	return nil
}

// inTx runs fn in a plain transaction, for writes that do not touch queue
// numbers or positions.
func (c *visitCore) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := c.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		c.log.Warnf("Failed to begin transaction: %+v", tx.Error)
		return classifyStoreError(tx.Error)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return classifyStoreError(err)
	}
	if err := tx.Commit().Error; err != nil {
		c.log.Warnf("Failed to commit transaction: %+v", err)
		return classifyStoreError(err)
	}
	return nil
}

func (c *visitCore) findAppointment(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	appointment, err := c.appointmentRepo.FindByID(c.db.WithContext(ctx), id)
	if err != nil {
		c.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, classifyStoreError(err)
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

func (c *visitCore) findDoctor(ctx context.Context, id uuid.UUID) (*entity.Doctor, error) {
	doctor, err := c.doctorRepo.FindByUserID(c.db.WithContext(ctx), id)
	if err != nil {
		c.log.Warnf("Failed to find doctor %s: %+v", id, err)
		return nil, classifyStoreError(err)
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	return doctor, nil
}

func (c *visitCore) findPatient(ctx context.Context, id uuid.UUID) (*entity.Patient, error) {
	patient, err := c.patientRepo.FindByID(c.db.WithContext(ctx), id)
	if err != nil {
		c.log.Warnf("Failed to find patient %s: %+v", id, err)
		return nil, classifyStoreError(err)
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}
	return patient, nil
}

// worksAtClinic reports whether a staff caller belongs to the clinic
func (c *visitCore) worksAtClinic(ctx context.Context, who caller, clinicID uuid.UUID) (bool, error) {
	if !who.is(entity.RoleIDStaff) {
		return false, nil
	}
	staff, err := c.staffRepo.FindByUserID(c.db.WithContext(ctx), who.userID)
	if err != nil {
		c.log.Warnf("Failed to find staff %s: %+v", who.userID, err)
		return false, classifyStoreError(err)
	}
	return staff != nil && staff.ClinicID == clinicID, nil
}

// authorizeDoctorSide admits the doctor themself, staff of the doctor's
// clinic and admins.
func (c *visitCore) authorizeDoctorSide(ctx context.Context, who caller, doctorID, clinicID uuid.UUID) error {
	switch {
	case who.is(entity.RoleIDAdmin):
		return nil
	case who.is(entity.RoleIDDoctor) && who.userID == doctorID:
		return nil
	}
	ok, err := c.worksAtClinic(ctx, who, clinicID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// isPatientSide reports whether the caller booked the appointment or is its patient
func isPatientSide(who caller, appointment *entity.Appointment) bool {
	if appointment.BookedByUserID == who.userID {
		return true
	}
	return appointment.Patient.UserID != nil && *appointment.Patient.UserID == who.userID
}

// authorizeParticipant admits everyone with a stake in the appointment
func (c *visitCore) authorizeParticipant(ctx context.Context, who caller, appointment *entity.Appointment) error {
	if isPatientSide(who, appointment) {
		return nil
	}
	return c.authorizeDoctorSide(ctx, who, appointment.DoctorID, appointment.ClinicID)
}

// joinQueue adds a WAITING entry at the back of the doctor's queue for the
// appointment's date. The estimated wait also covers a consultation already
// in progress. Callers hold the doctor-day lock.
func (c *visitCore) joinQueue(tx *gorm.DB, appointment *entity.Appointment, checkInTime time.Time) (*entity.QueueEntry, error) {
	waiting, err := c.queueRepo.CountByDoctorDateAndStatus(tx, appointment.DoctorID, appointment.AppointmentDate, entity.QueueStatusWaiting)
	if err != nil {
		return nil, err
	}
	inProgress, err := c.queueRepo.CountByDoctorDateAndStatus(tx, appointment.DoctorID, appointment.AppointmentDate, entity.QueueStatusInProgress)
	if err != nil {
		return nil, err
	}

	position := int(waiting) + 1
	entry := &entity.QueueEntry{
		AppointmentID:        appointment.ID,
		DoctorID:             appointment.DoctorID,
		PatientID:            appointment.PatientID,
		QueueDate:            appointment.AppointmentDate,
		Status:               entity.QueueStatusWaiting,
		Position:             position,
		EstimatedWaitMinutes: (position - 1 + int(inProgress)) * c.avgMinutes,
		CheckInTime:          checkInTime,
	}
	if err := c.queueRepo.Create(tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ensureNotQueued fails with ErrAlreadyInQueue when the patient already holds
// a non-cancelled entry on the date.
func (c *visitCore) ensureNotQueued(tx *gorm.DB, patientID uuid.UUID, date time.Time) error {
	queued, err := c.isQueued(tx, patientID, date)
	if err != nil {
		return err
	}
	if queued {
		return ErrAlreadyInQueue
	}
	return nil
}

func (c *visitCore) isQueued(tx *gorm.DB, patientID uuid.UUID, date time.Time) (bool, error) {
	existing, err := c.queueRepo.FindNonCancelledByPatientAndDate(tx, patientID, date)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// closeQueueEntry cancels the appointment's open queue entry, if any, and
// closes the gap it leaves behind.
func (c *visitCore) closeQueueEntry(tx *gorm.DB, appointment *entity.Appointment) error {
	entry, err := c.queueRepo.FindByAppointmentID(tx, appointment.ID)
	if err != nil {
		return err
	}
	if entry == nil || entry.IsClosed() {
		return nil
	}

	if err := entry.Cancel(); err != nil {
		return err
	}
	if err := c.queueRepo.Update(tx, entry); err != nil {
		return err
	}
	_, err = c.queueRepo.Renumber(tx, entry.DoctorID, entry.QueueDate, c.avgMinutes)
	return err
}

// finishConsultation completes an IN_PROGRESS entry together with its appointment
func (c *visitCore) finishConsultation(tx *gorm.DB, entry *entity.QueueEntry, now time.Time) error {
	if err := entry.Complete(now); err != nil {
		return err
	}
	if err := c.queueRepo.Update(tx, entry); err != nil {
		return err
	}

	appointment, err := c.appointmentRepo.FindByID(tx, entry.AppointmentID)
	if err != nil {
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}
	if appointment.Status != entity.AppointmentStatusInProgress {
		return nil
	}
	if err := appointment.TransitionTo(entity.AppointmentStatusCompleted); err != nil {
		return err
	}
	return c.appointmentRepo.Update(tx, appointment)
}
