package usecase

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go-clinic-queue/internal/converter"
	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentUsecase interface {
	CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	ListAppointmentsForPatient(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error)
	ListMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	ListAppointmentsForDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.AppointmentListResponse, error)
	ListAppointmentsForClinic(ctx context.Context, clinicID uuid.UUID) (*dto.AppointmentListResponse, error)
	CancelAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error)
	AddMeetingLink(ctx context.Context, id uuid.UUID, req *dto.AddMeetingLinkRequest) (*dto.AppointmentResponse, error)
	RecordPayment(ctx context.Context, id uuid.UUID, req *dto.RecordPaymentRequest) (*dto.AppointmentResponse, error)
}

type appointmentUsecase struct {
	*visitCore
}

func NewAppointmentUsecase(deps Dependencies) AppointmentUsecase {
	return &appointmentUsecase{visitCore: newVisitCore(deps)}
}

// bookingInput is a CreateAppointmentRequest with every field parsed
type bookingInput struct {
	bookingFor  entity.BookingFor
	date        time.Time
	slot        string
	kind        entity.AppointmentType
	paymentMode entity.PaymentMode
	details     *dto.PatientDetailsRequest
}

func (u *appointmentUsecase) parseBooking(req *dto.CreateAppointmentRequest) (*bookingInput, error) {
	in := &bookingInput{
		bookingFor:  entity.BookingFor(req.BookingFor),
		kind:        entity.AppointmentType(req.Type),
		paymentMode: entity.PaymentMode(req.PaymentMode),
		details:     req.PatientDetails,
	}

	if !in.bookingFor.IsValid() {
		return nil, ErrInvalidBookingFor
	}
	if !in.kind.IsValid() {
		return nil, ErrInvalidAppointmentType
	}
	if !in.paymentMode.IsValid() {
		return nil, ErrInvalidPaymentMode
	}

	date, err := time.Parse("2006-01-02", req.AppointmentDate)
	if err != nil {
		return nil, ErrInvalidDate
	}
	in.date = toDate(date)
	if in.date.Before(u.today()) {
		return nil, ErrDateInPast
	}

	slot, err := time.Parse("15:04", req.AppointmentTime)
	if err != nil {
		return nil, ErrInvalidTime
	}
	in.slot = slot.Format("15:04")

	if in.bookingFor == entity.BookingForOther {
		if in.details == nil {
			return nil, ErrPatientDetailsRequired
		}
		if err := validatePatientDetails(in.details); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func validatePatientDetails(d *dto.PatientDetailsRequest) error {
	if strings.TrimSpace(d.FullName) == "" {
		return ErrInvalidPatientName
	}
	if d.Age < 0 || d.Age > 150 {
		return ErrInvalidPatientAge
	}
	switch d.Gender {
	case entity.GenderMale, entity.GenderFemale, entity.GenderOther:
	default:
		return ErrInvalidPatientGender
	}
	if len(d.PhoneNumber) < 10 || len(d.PhoneNumber) > 15 {
		return ErrInvalidPatientPhone
	}
	for _, r := range d.PhoneNumber {
		if r < '0' || r > '9' {
			return ErrInvalidPatientPhone
		}
	}
	return nil
}

// resolvePatient returns the booker's own profile, or get-or-creates the
// relative they book for.
func (u *appointmentUsecase) resolvePatient(tx *gorm.DB, bookerID uuid.UUID, in *bookingInput) (*entity.Patient, error) {
	if in.bookingFor == entity.BookingForSelf {
		patient, err := u.patientRepo.FindByUserID(tx, bookerID)
		if err != nil {
			return nil, err
		}
		if patient == nil {
			return nil, ErrPatientNotFound
		}
		return patient, nil
	}

	name := strings.TrimSpace(in.details.FullName)
	patient, err := u.patientRepo.FindDependent(tx, bookerID, name, in.details.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if patient != nil {
		return patient, nil
	}

	patient = &entity.Patient{
		ManagedByUserID: &bookerID,
		FullName:        name,
		Age:             in.details.Age,
		Gender:          in.details.Gender,
		PhoneNumber:     in.details.PhoneNumber,
	}
	if err := u.patientRepo.Create(tx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// CreateAppointment books a visit and assigns the next queue number for the
// doctor's day.
//
// Flow:
// 1. Parse and validate the request
// 2. Take the doctor-day lock, open a transaction, lock the doctor row
// 3. Reject unavailable doctors and taken slots
// 4. Allocate the queue number and insert the appointment
// 5. ONLINE visits join the queue of their date immediately
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	who, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !who.is(entity.RoleIDPatient) {
		return nil, ErrOnlyPatientsBook
	}

	in, err := u.parseBooking(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	var appointment *entity.Appointment
	err = u.inDoctorDay(ctx, req.DoctorID, in.date, func(tx *gorm.DB, doctor *entity.Doctor) error {
		if !doctor.IsAvailable {
			return ErrDoctorUnavailable
		}

		patient, err := u.resolvePatient(tx, who.userID, in)
		if err != nil {
			return err
		}

		taken, err := u.appointmentRepo.FindActiveBySlot(tx, doctor.UserID, in.date, in.slot)
		if err != nil {
			return err
		}
		if taken != nil {
			return ErrSlotTaken
		}

		// an ONLINE visit joins the queue unless the patient already holds an
		// entry that day; a later CheckIn then reports the conflict
		autoJoin := false
		if in.kind == entity.AppointmentTypeOnline {
			queued, err := u.isQueued(tx, patient.ID, in.date)
			if err != nil {
				return err
			}
			autoJoin = !queued
		}

		queueNumber, err := u.sequence.Next(ctx, tx, doctor.UserID, in.date)
		if err != nil {
			return err
		}

		appointment = &entity.Appointment{
			DoctorID:        doctor.UserID,
			PatientID:       patient.ID,
			ClinicID:        doctor.ClinicID,
			BookedByUserID:  who.userID,
			AppointmentDate: in.date,
			AppointmentTime: in.slot,
			Type:            in.kind,
			Status:          entity.AppointmentStatusBooked,
			QueueNumber:     queueNumber,
			PaymentMode:     in.paymentMode,
			PaymentStatus:   entity.PaymentStatusPending,
			Amount:          doctor.ConsultationFee,
			Notes:           strings.TrimSpace(req.Notes),
		}
		if in.kind == entity.AppointmentTypeOnline {
			appointment.MeetingPlatform = entity.DefaultMeetingPlatform
		}
		if err := u.appointmentRepo.Create(tx, appointment); err != nil {
			return err
		}

		if autoJoin {
			if _, err := u.joinQueue(tx, appointment, u.clock()); err != nil {
				return err
			}
		}

		return u.audit.LogCreate(ctx, tx, who.userID, entity.AuditActionAppointmentCreate, "appointment", appointment.ID, map[string]interface{}{
			"doctor_id":    doctor.UserID.String(),
			"date":         in.date.Format("2006-01-02"),
			"time":         in.slot,
			"queue_number": queueNumber,
		})
	})
	if err != nil {
		return nil, err
	}

	u.metrics.ObserveBooking()
	u.log.Infof("Appointment booked: id=%s, doctor=%s, date=%s, queue=%d", appointment.ID, appointment.DoctorID, in.date.Format("2006-01-02"), appointment.QueueNumber)
	return u.reload(ctx, appointment)
}

// reload re-reads an appointment with its doctor and patient for the response.
// It runs after the write has committed, so a failed read is not an error for
// the caller: the committed entity is returned without doctor and patient names.
func (u *appointmentUsecase) reload(ctx context.Context, appointment *entity.Appointment) (*dto.AppointmentResponse, error) {
	full, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointment.ID)
	if err != nil || full == nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", appointment.ID, err)
		return converter.AppointmentToResponse(appointment), nil
	}
	return converter.AppointmentToResponse(full), nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	who, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	appointment, err := u.findAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.authorizeParticipant(ctx, who, appointment); err != nil {
		return nil, err
	}
	return converter.AppointmentToResponse(appointment), nil
}

// ListAppointmentsForPatient returns a patient's visits, newest first
func (u *appointmentUsecase) ListAppointmentsForPatient(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error) {
	who, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	patient, err := u.findPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !patient.BelongsTo(who.userID) && !who.is(entity.RoleIDAdmin) && !who.is(entity.RoleIDStaff) {
		return nil, ErrForbidden
	}

	appointments, err := u.appointmentRepo.FindByPatientID(u.db.WithContext(ctx), patientID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for patient %s: %+v", patientID, err)
		return nil, classifyStoreError(err)
	}
	return converter.AppointmentsToListResponse(appointments), nil
}

// ListMyAppointments returns everything the caller booked, for themself or others
func (u *appointmentUsecase) ListMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	who, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	appointments, err := u.appointmentRepo.FindByBookedBy(u.db.WithContext(ctx), who.userID)
	if err != nil {
		u.log.Warnf("Failed to find appointments booked by %s: %+v", who.userID, err)
		return nil, classifyStoreError(err)
	}
	return converter.AppointmentsToListResponse(appointments), nil
}

// ListAppointmentsForDoctor returns a doctor's visits, newest date and time first
func (u *appointmentUsecase) ListAppointmentsForDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.AppointmentListResponse, error) {
	who, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	doctor, err := u.findDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if err := u.authorizeDoctorSide(ctx, who, doctor.UserID, doctor.ClinicID); err != nil {
		return nil, err
	}

	appointments, err := u.appointmentRepo.FindByDoctorID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for doctor %s: %+v", doctorID, err)
		return nil, classifyStoreError(err)
	}
	return converter.AppointmentsToListResponse(appointments), nil
}

// ListAppointmentsForClinic returns a clinic's visits in calendar order
func (u *appointmentUsecase) ListAppointmentsForClinic(ctx context.Context, clinicID uuid.UUID) (*dto.AppointmentListResponse, error) {
	who, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	if !who.is(entity.RoleIDAdmin) {
		ok, err := u.worksAtClinic(ctx, who, clinicID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrForbidden
		}
	}

	appointments, err := u.appointmentRepo.FindByClinicID(u.db.WithContext(ctx), clinicID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for clinic %s: %+v", clinicID, err)
		return nil, classifyStoreError(err)
	}
	return converter.AppointmentsToListResponse(appointments), nil
}

// CancelAppointment cancels a visit, drops it from the queue and refunds a
// completed payment.
func (u *appointmentUsecase) CancelAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	who, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	appointment, err := u.findAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.authorizeParticipant(ctx, who, appointment); err != nil {
		return nil, err
	}

	updated, err := u.changeStatus(ctx, who, appointment, entity.AppointmentStatusCancelled, "")
	if err != nil {
		return nil, err
	}
	return u.reload(ctx, updated)
}

// UpdateAppointmentStatus is the doctor-facing status change. Starting a
// consultation is reserved to call-next; completing one requires notes.
func (u *appointmentUsecase) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error) {
	who, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	next := entity.AppointmentStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !next.IsValid() {
		return nil, ErrInvalidStatus
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	appointment, err := u.findAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.authorizeDoctorSide(ctx, who, appointment.DoctorID, appointment.ClinicID); err != nil {
		return nil, err
	}

	updated, err := u.changeStatus(ctx, who, appointment, next, strings.TrimSpace(req.Notes))
	if err != nil {
		return nil, err
	}
	return u.reload(ctx, updated)
}

// changeStatus applies one appointment transition under the doctor-day lock
// and keeps the queue entry in step with it.
func (u *appointmentUsecase) changeStatus(ctx context.Context, who caller, appointment *entity.Appointment, next entity.AppointmentStatus, notes string) (*entity.Appointment, error) {
	var current *entity.Appointment
	err := u.inDoctorDay(ctx, appointment.DoctorID, appointment.AppointmentDate, func(tx *gorm.DB, _ *entity.Doctor) error {
		var err error
		current, err = u.appointmentRepo.FindByID(tx, appointment.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrAppointmentNotFound
		}

		if err := current.CanTransitionTo(next); err != nil {
			return err
		}
		if next == entity.AppointmentStatusInProgress {
			return ErrStartThroughCallNext
		}
		if next == entity.AppointmentStatusCompleted && notes == "" {
			return ErrNotesRequired
		}

		previous := current.Status
		if err := current.TransitionTo(next); err != nil {
			return err
		}

		switch next {
		case entity.AppointmentStatusCompleted:
			current.Notes = notes
			if err := u.completeQueueEntryFor(tx, current); err != nil {
				return err
			}
		case entity.AppointmentStatusCancelled, entity.AppointmentStatusNoShow:
			if next == entity.AppointmentStatusCancelled && current.PaymentStatus == entity.PaymentStatusCompleted {
				if err := current.ApplyPayment(entity.PaymentStatusRefunded); err != nil {
					return err
				}
			}
			if err := u.closeQueueEntry(tx, current); err != nil {
				return err
			}
		}

		if err := u.appointmentRepo.Update(tx, current); err != nil {
			return err
		}

		action := entity.AuditActionAppointmentStatus
		if next == entity.AppointmentStatusCancelled {
			action = entity.AuditActionAppointmentCancel
		}
		return u.audit.LogChange(ctx, tx, who.userID, action, "appointment", current.ID, string(previous), string(next))
	})
	if err != nil {
		return nil, err
	}

	u.metrics.ObserveStatus(string(next))
	u.log.Infof("Appointment %s moved to %s by %s", current.ID, next, who.userID)
	return current, nil
}

// completeQueueEntryFor closes the in-progress queue entry of an appointment
// the doctor completes directly.
func (u *appointmentUsecase) completeQueueEntryFor(tx *gorm.DB, appointment *entity.Appointment) error {
	entry, err := u.queueRepo.FindByAppointmentID(tx, appointment.ID)
	if err != nil {
		return err
	}
	if entry == nil || entry.Status != entity.QueueStatusInProgress {
		return nil
	}
	if err := entry.Complete(u.clock()); err != nil {
		return err
	}
	return u.queueRepo.Update(tx, entry)
}

// AddMeetingLink attaches the video link of an online consultation
func (u *appointmentUsecase) AddMeetingLink(ctx context.Context, id uuid.UUID, req *dto.AddMeetingLinkRequest) (*dto.AppointmentResponse, error) {
	who, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	link := strings.TrimSpace(req.MeetingLink)
	if !isHTTPURL(link) {
		return nil, ErrInvalidMeetingLink
	}
	platform := strings.TrimSpace(req.Platform)
	if platform == "" {
		platform = entity.DefaultMeetingPlatform
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	appointment, err := u.findAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.authorizeDoctorSide(ctx, who, appointment.DoctorID, appointment.ClinicID); err != nil {
		return nil, err
	}
	if appointment.Type != entity.AppointmentTypeOnline {
		return nil, ErrMeetingLinkOnlineOnly
	}

	err = u.inTx(ctx, func(tx *gorm.DB) error {
		current, err := u.appointmentRepo.FindByID(tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrAppointmentNotFound
		}
		if current.Status.IsTerminal() {
			return apperror.Newf(apperror.KindTerminalState, "appointment is already %s", current.Status)
		}

		old := current.MeetingLink
		current.MeetingLink = link
		current.MeetingPlatform = platform
		if err := u.appointmentRepo.Update(tx, current); err != nil {
			return err
		}
		return u.audit.LogChange(ctx, tx, who.userID, entity.AuditActionAppointmentMeeting, "appointment", current.ID, old, link)
	})
	if err != nil {
		return nil, err
	}

	return u.reload(ctx, appointment)
}

func isHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// RecordPayment applies a payment outcome reported by the front desk or the gateway
func (u *appointmentUsecase) RecordPayment(ctx context.Context, id uuid.UUID, req *dto.RecordPaymentRequest) (*dto.AppointmentResponse, error) {
	who, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !who.is(entity.RoleIDAdmin) && !who.is(entity.RoleIDStaff) {
		return nil, ErrForbidden
	}

	next := entity.PaymentStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !next.IsValid() {
		return nil, ErrInvalidPaymentStatus
	}
	if next == entity.PaymentStatusRefunded {
		return nil, ErrRefundThroughCancel
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	appointment, err := u.findAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.authorizeDoctorSide(ctx, who, appointment.DoctorID, appointment.ClinicID); err != nil {
		return nil, err
	}

	err = u.inTx(ctx, func(tx *gorm.DB) error {
		current, err := u.appointmentRepo.FindByID(tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrAppointmentNotFound
		}

		previous := current.PaymentStatus
		if err := current.ApplyPayment(next); err != nil {
			return err
		}
		if err := u.appointmentRepo.Update(tx, current); err != nil {
			return err
		}
		return u.audit.LogChange(ctx, tx, who.userID, entity.AuditActionAppointmentPayment, "appointment", current.ID, string(previous), string(next))
	})
	if err != nil {
		return nil, err
	}

	u.log.Infof("Payment for appointment %s recorded as %s", id, next)
	return u.reload(ctx, appointment)
}
