package usecase

import (
	"context"

	"go-clinic-queue/internal/converter"
	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QueueUsecase interface {
	CheckIn(ctx context.Context, req *dto.CheckInRequest) (*dto.QueueStatusResponse, error)
	MyQueueStatus(ctx context.Context, patientID uuid.UUID) (*dto.QueueStatusResponse, error)
	DoctorQueueView(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorQueueResponse, error)
	CallNext(ctx context.Context, doctorID uuid.UUID) (*dto.QueueStatusResponse, error)
	CompleteQueueEntry(ctx context.Context, entryID uuid.UUID) (*dto.QueueStatusResponse, error)
}

type queueUsecase struct {
	*visitCore
}

func NewQueueUsecase(deps Dependencies) QueueUsecase {
	return &queueUsecase{visitCore: newVisitCore(deps)}
}

// CheckIn puts a patient who arrived for today's appointment at the back of
// the doctor's queue.
//
// Flow:
// 1. Verify the caller booked the appointment (or is its patient) and it is today
// 2. Take the doctor-day lock and re-read the appointment
// 3. Reject a second active entry for the patient today
// 4. position = waiting + 1, estimated wait = (position - 1) x average
func (u *queueUsecase) CheckIn(ctx context.Context, req *dto.CheckInRequest) (*dto.QueueStatusResponse, error) {
	who, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	appointment, err := u.findAppointment(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !isPatientSide(who, appointment) {
		return nil, ErrNotAppointmentUser
	}

	today := u.today()
	if !appointment.AppointmentDate.Equal(today) {
		return nil, ErrAppointmentNotToday
	}

	var entry *entity.QueueEntry
	err = u.inDoctorDay(ctx, appointment.DoctorID, today, func(tx *gorm.DB, _ *entity.Doctor) error {
		current, err := u.appointmentRepo.FindByID(tx, appointment.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrAppointmentNotFound
		}
		switch {
		case current.Status.IsTerminal():
			return apperror.Newf(apperror.KindTerminalState, "appointment is already %s", current.Status)
		case current.Status == entity.AppointmentStatusInProgress:
			return ErrAppointmentNotCheckable
		}

		if err := u.ensureNotQueued(tx, current.PatientID, today); err != nil {
			return err
		}

		entry, err = u.joinQueue(tx, current, u.clock())
		if err != nil {
			return err
		}
		return u.audit.LogCreate(ctx, tx, who.userID, entity.AuditActionQueueCheckIn, "queue_entry", entry.ID, map[string]interface{}{
			"appointment_id": current.ID.String(),
			"position":       entry.Position,
		})
	})
	if err != nil {
		return nil, err
	}

	u.metrics.ObserveCheckIn()
	u.log.Infof("Checked in appointment %s at position %d for doctor %s", appointment.ID, entry.Position, appointment.DoctorID)
	return u.entryResponse(ctx, entry.ID)
}

// entryResponse re-reads a queue entry with its relations for the response
func (u *queueUsecase) entryResponse(ctx context.Context, id uuid.UUID) (*dto.QueueStatusResponse, error) {
	entry, err := u.queueRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to reload queue entry %s: %+v", id, err)
		return nil, classifyStoreError(err)
	}
	if entry == nil {
		return nil, ErrQueueEntryNotFound
	}
	return converter.QueueEntryToResponse(entry), nil
}

// MyQueueStatus shows a patient's entry for today
func (u *queueUsecase) MyQueueStatus(ctx context.Context, patientID uuid.UUID) (*dto.QueueStatusResponse, error) {
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

	entry, err := u.queueRepo.FindNonCancelledByPatientAndDate(u.db.WithContext(ctx), patientID, u.today())
	if err != nil {
		u.log.Warnf("Failed to find queue entry for patient %s: %+v", patientID, err)
		return nil, classifyStoreError(err)
	}
	if entry == nil {
		return nil, ErrNoQueueEntryToday
	}
	return converter.QueueEntryToResponse(entry), nil
}

// DoctorQueueView shows today's queue for a doctor: who is being seen, who is
// waiting in order, and who has been seen.
func (u *queueUsecase) DoctorQueueView(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorQueueResponse, error) {
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

	today := u.today()
	entries, err := u.queueRepo.FindByDoctorAndDate(u.db.WithContext(ctx), doctorID, today)
	if err != nil {
		u.log.Warnf("Failed to load queue for doctor %s: %+v", doctorID, err)
		return nil, classifyStoreError(err)
	}

	view := &dto.DoctorQueueResponse{
		DoctorID:  doctorID,
		Date:      today.Format("2006-01-02"),
		Waiting:   []dto.QueueStatusResponse{},
		Completed: []dto.QueueStatusResponse{},
	}
	for i := range entries {
		resp := converter.QueueEntryToResponse(&entries[i])
		switch entries[i].Status {
		case entity.QueueStatusInProgress:
			view.Current = resp
		case entity.QueueStatusWaiting:
			view.Waiting = append(view.Waiting, *resp)
		case entity.QueueStatusCompleted:
			view.Completed = append(view.Completed, *resp)
		}
	}
	view.TotalSeenToday = len(view.Completed)
	return view, nil
}

// CallNext finishes the current consultation, if any, and starts the next
// waiting patient, in one transaction. If nobody is waiting the call fails
// with ErrQueueEmpty and nothing changes.
//
// Flow:
// 1. Complete the IN_PROGRESS entry and its appointment
// 2. Pick the WAITING entry with the smallest position
// 3. Start it and its appointment
// 4. Renumber the remaining WAITING entries from 1
func (u *queueUsecase) CallNext(ctx context.Context, doctorID uuid.UUID) (*dto.QueueStatusResponse, error) {
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

	today := u.today()
	var next *entity.QueueEntry
	err = u.inDoctorDay(ctx, doctorID, today, func(tx *gorm.DB, _ *entity.Doctor) error {
		now := u.clock()

		inProgress, err := u.queueRepo.FindByDoctorDateAndStatus(tx, doctorID, today, entity.QueueStatusInProgress)
		if err != nil {
			return err
		}
		for i := range inProgress {
			if err := u.finishConsultation(tx, &inProgress[i], now); err != nil {
				return err
			}
		}

		waiting, err := u.queueRepo.FindByDoctorDateAndStatus(tx, doctorID, today, entity.QueueStatusWaiting)
		if err != nil {
			return err
		}
		if len(waiting) == 0 {
			return ErrQueueEmpty
		}

		next = &waiting[0]
		if err := next.Start(now); err != nil {
			return err
		}
		if err := u.queueRepo.Update(tx, next); err != nil {
			return err
		}

		appointment, err := u.appointmentRepo.FindByID(tx, next.AppointmentID)
		if err != nil {
			return err
		}
		if appointment == nil {
			return ErrAppointmentNotFound
		}
		if err := appointment.TransitionTo(entity.AppointmentStatusInProgress); err != nil {
			return err
		}
		if err := u.appointmentRepo.Update(tx, appointment); err != nil {
			return err
		}

		if _, err := u.queueRepo.Renumber(tx, doctorID, today, u.avgMinutes); err != nil {
			return err
		}

		return u.audit.LogChange(ctx, tx, who.userID, entity.AuditActionQueueCallNext, "queue_entry", next.ID, string(entity.QueueStatusWaiting), string(entity.QueueStatusInProgress))
	})
	if err != nil {
		if apperror.IsKind(err, apperror.KindEmptyQueue) {
			u.metrics.ObserveCallNext("empty")
		}
		return nil, err
	}

	u.metrics.ObserveCallNext("called")
	u.log.Infof("Doctor %s called queue entry %s", doctorID, next.ID)
	return u.entryResponse(ctx, next.ID)
}

// CompleteQueueEntry ends one consultation without calling the next patient
func (u *queueUsecase) CompleteQueueEntry(ctx context.Context, entryID uuid.UUID) (*dto.QueueStatusResponse, error) {
	who, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	entry, err := u.queueRepo.FindByID(u.db.WithContext(ctx), entryID)
	if err != nil {
		u.log.Warnf("Failed to find queue entry %s: %+v", entryID, err)
		return nil, classifyStoreError(err)
	}
	if entry == nil {
		return nil, ErrQueueEntryNotFound
	}
	if err := u.authorizeDoctorSide(ctx, who, entry.DoctorID, entry.Doctor.ClinicID); err != nil {
		return nil, err
	}

	err = u.inDoctorDay(ctx, entry.DoctorID, entry.QueueDate, func(tx *gorm.DB, _ *entity.Doctor) error {
		current, err := u.queueRepo.FindByID(tx, entryID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrQueueEntryNotFound
		}
		if err := u.finishConsultation(tx, current, u.clock()); err != nil {
			return err
		}
		if _, err := u.queueRepo.Renumber(tx, current.DoctorID, current.QueueDate, u.avgMinutes); err != nil {
			return err
		}
		return u.audit.LogChange(ctx, tx, who.userID, entity.AuditActionQueueComplete, "queue_entry", current.ID, string(entity.QueueStatusInProgress), string(entity.QueueStatusCompleted))
	})
	if err != nil {
		return nil, err
	}

	u.log.Infof("Queue entry %s completed", entryID)
	return u.entryResponse(ctx, entryID)
}
