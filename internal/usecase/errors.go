package usecase

import (
	"context"
	"errors"
	"strings"

	"go-clinic-queue/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUnauthenticated    = apperror.New(apperror.KindForbidden, "caller identity is missing")
	ErrForbidden          = apperror.New(apperror.KindForbidden, "you are not allowed to access this resource")
	ErrOnlyPatientsBook   = apperror.New(apperror.KindForbidden, "only patients can book appointments")
	ErrNotAppointmentUser = apperror.New(apperror.KindForbidden, "appointment does not belong to you")

	ErrAppointmentNotFound = apperror.New(apperror.KindNotFound, "appointment not found")
	ErrDoctorNotFound      = apperror.New(apperror.KindNotFound, "doctor not found")
	ErrPatientNotFound     = apperror.New(apperror.KindNotFound, "patient not found")
	ErrQueueEntryNotFound  = apperror.New(apperror.KindNotFound, "queue entry not found")
	ErrNoQueueEntryToday   = apperror.New(apperror.KindNotFound, "no active queue entry today")

	ErrDoctorUnavailable = apperror.New(apperror.KindUnavailable, "doctor is not accepting bookings")

	ErrInvalidDate             = apperror.New(apperror.KindInvalidInput, "appointment date must be formatted as YYYY-MM-DD")
	ErrInvalidTime             = apperror.New(apperror.KindInvalidInput, "appointment time must be formatted as HH:MM")
	ErrDateInPast              = apperror.New(apperror.KindInvalidInput, "appointment date cannot be in the past")
	ErrInvalidAppointmentType  = apperror.New(apperror.KindInvalidInput, "type must be IN_PERSON or ONLINE")
	ErrInvalidBookingFor       = apperror.New(apperror.KindInvalidInput, "booking_for must be SELF or OTHER")
	ErrInvalidPaymentMode      = apperror.New(apperror.KindInvalidInput, "payment_mode must be ONLINE or IN_PERSON")
	ErrPatientDetailsRequired  = apperror.New(apperror.KindInvalidInput, "patient details are required when booking for someone else")
	ErrInvalidPatientName      = apperror.New(apperror.KindInvalidInput, "patient name is required")
	ErrInvalidPatientAge       = apperror.New(apperror.KindInvalidInput, "patient age must be between 0 and 150")
	ErrInvalidPatientGender    = apperror.New(apperror.KindInvalidInput, "patient gender must be Male, Female or Other")
	ErrInvalidPatientPhone     = apperror.New(apperror.KindInvalidInput, "patient phone number must be 10 to 15 digits")
	ErrInvalidStatus           = apperror.New(apperror.KindInvalidInput, "unknown appointment status")
	ErrInvalidPaymentStatus    = apperror.New(apperror.KindInvalidInput, "unknown payment status")
	ErrNotesRequired           = apperror.New(apperror.KindInvalidInput, "completion notes are required")
	ErrInvalidMeetingLink      = apperror.New(apperror.KindInvalidInput, "meeting link must be a valid http(s) URL")
	ErrMeetingLinkOnlineOnly   = apperror.New(apperror.KindInvalidInput, "meeting links can only be added to online appointments")
	ErrAppointmentNotToday     = apperror.New(apperror.KindInvalidInput, "appointment is not scheduled for today")
	ErrStartThroughCallNext    = apperror.New(apperror.KindIllegalTransition, "an appointment starts only when the doctor calls the next patient")
	ErrAppointmentNotCheckable = apperror.New(apperror.KindConflict, "appointment is already in progress")
	ErrRefundThroughCancel     = apperror.New(apperror.KindIllegalTransition, "refunds are issued by cancelling the appointment")

	ErrSlotTaken      = apperror.New(apperror.KindConflict, "doctor already has an appointment at this date and time")
	ErrAlreadyInQueue = apperror.New(apperror.KindConflict, "patient already has an active queue entry for this date")

	ErrQueueEmpty = apperror.New(apperror.KindEmptyQueue, "no patients waiting")
)

// classifyStoreError turns a raw store failure into a typed error. Errors that
// already carry a kind pass through unchanged.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(apperror.KindTimeout, "store operation timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return apperror.Wrap(apperror.KindUnavailable, "request was cancelled", err)
	}
	if isDuplicateKeyError(err) {
		return apperror.Wrap(apperror.KindConflict, "record already exists", err)
	}
	return apperror.Wrap(apperror.KindUnavailable, "store is unavailable", err)
}

// isDuplicateKeyError checks for unique violations from PostgreSQL or SQLite
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
