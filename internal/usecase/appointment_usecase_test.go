package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/delivery/http/middleware"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/repository"
	"go-clinic-queue/internal/service"
	"go-clinic-queue/internal/testutil"
	"go-clinic-queue/pkg/apperror"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
)

func TestCreateAppointment(t *testing.T) {
	env := newTestEnv(t)

	first := env.book(t, env.f.PatientA, tomorrowStr, "09:00", entity.AppointmentTypeInPerson)
	second := env.book(t, env.f.PatientB, tomorrowStr, "09:15", entity.AppointmentTypeInPerson)

	if first.Status != string(entity.AppointmentStatusBooked) || first.PaymentStatus != string(entity.PaymentStatusPending) {
		t.Errorf("unexpected initial state: %+v", first)
	}
	if first.QueueNumber != 1 || second.QueueNumber != 2 {
		t.Errorf("queue numbers = %d, %d; want 1, 2", first.QueueNumber, second.QueueNumber)
	}
	if first.Amount != "500.00" || first.ClinicID != env.f.Clinic.ID || first.DoctorName != env.f.Doctor.FullName {
		t.Errorf("appointment not filled from doctor: %+v", first)
	}

	// another day starts from 1 again
	other := env.book(t, env.f.PatientA, todayStr, "11:00", entity.AppointmentTypeInPerson)
	if other.QueueNumber != 1 {
		t.Errorf("queue number on another date = %d, want 1", other.QueueNumber)
	}

	// in-person bookings do not join the queue
	var count int64
	env.db.Model(&entity.QueueEntry{}).Count(&count)
	if count != 0 {
		t.Errorf("queue entries = %d, want 0", count)
	}
}

func TestCreateAppointmentDoubleBooking(t *testing.T) {
	env := newTestEnv(t)

	first := env.book(t, env.f.PatientA, tomorrowStr, "10:00", entity.AppointmentTypeInPerson)

	_, err := env.appointments.CreateAppointment(asPatient(env.f.PatientB), bookingRequest(env, tomorrowStr, "10:00", entity.AppointmentTypeInPerson))
	wantKind(t, err, apperror.KindConflict)

	// a cancelled appointment frees the slot but not its number
	if _, err := env.appointments.CancelAppointment(asPatient(env.f.PatientA), first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	again := env.book(t, env.f.PatientB, tomorrowStr, "10:00", entity.AppointmentTypeInPerson)
	if again.QueueNumber != 2 {
		t.Errorf("queue number after cancel = %d, want 2", again.QueueNumber)
	}
}

func TestCreateAppointmentRejects(t *testing.T) {
	env := newTestEnv(t)

	unavailable := testutil.SeedDoctor(t, env.db, env.f.Clinic.ID, "Dr. Away")
	env.db.Model(&entity.Doctor{}).Where("user_id = ?", unavailable.UserID).Update("is_available", false)

	noProfile := middleware.ContextWithUser(context.Background(), uuid.New(), entity.RoleIDPatient)

	tests := []struct {
		name   string
		ctx    context.Context
		mutate func(*dto.CreateAppointmentRequest)
		want   apperror.Kind
	}{
		{"past date", asPatient(env.f.PatientA), func(r *dto.CreateAppointmentRequest) { r.AppointmentDate = "2026-03-01" }, apperror.KindInvalidInput},
		{"bad date", asPatient(env.f.PatientA), func(r *dto.CreateAppointmentRequest) { r.AppointmentDate = "03/04/2026" }, apperror.KindInvalidInput},
		{"bad time", asPatient(env.f.PatientA), func(r *dto.CreateAppointmentRequest) { r.AppointmentTime = "25:00" }, apperror.KindInvalidInput},
		{"bad type", asPatient(env.f.PatientA), func(r *dto.CreateAppointmentRequest) { r.Type = "PHONE" }, apperror.KindInvalidInput},
		{"bad booking for", asPatient(env.f.PatientA), func(r *dto.CreateAppointmentRequest) { r.BookingFor = "FRIEND" }, apperror.KindInvalidInput},
		{"bad payment mode", asPatient(env.f.PatientA), func(r *dto.CreateAppointmentRequest) { r.PaymentMode = "CASH" }, apperror.KindInvalidInput},
		{"other without details", asPatient(env.f.PatientA), func(r *dto.CreateAppointmentRequest) { r.BookingFor = "OTHER" }, apperror.KindInvalidInput},
		{"other with short phone", asPatient(env.f.PatientA), func(r *dto.CreateAppointmentRequest) {
			r.BookingFor = "OTHER"
			r.PatientDetails = &dto.PatientDetailsRequest{FullName: "Nani", Age: 70, Gender: "Female", PhoneNumber: "12345"}
		}, apperror.KindInvalidInput},
		{"unknown doctor", asPatient(env.f.PatientA), func(r *dto.CreateAppointmentRequest) { r.DoctorID = uuid.New() }, apperror.KindNotFound},
		{"doctor not accepting", asPatient(env.f.PatientA), func(r *dto.CreateAppointmentRequest) { r.DoctorID = unavailable.UserID }, apperror.KindUnavailable},
		{"no patient profile", noProfile, func(r *dto.CreateAppointmentRequest) {}, apperror.KindNotFound},
		{"doctor cannot book", env.asDoctor(), func(r *dto.CreateAppointmentRequest) {}, apperror.KindForbidden},
		{"anonymous", context.Background(), func(r *dto.CreateAppointmentRequest) {}, apperror.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := bookingRequest(env, tomorrowStr, "09:00", entity.AppointmentTypeInPerson)
			tt.mutate(req)
			_, err := env.appointments.CreateAppointment(tt.ctx, req)
			wantKind(t, err, tt.want)
		})
	}

	var count int64
	env.db.Model(&entity.Appointment{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected bookings left %d rows", count)
	}
}

func TestCreateAppointmentForRelative(t *testing.T) {
	env := newTestEnv(t)
	details := &dto.PatientDetailsRequest{FullName: "Nani", Age: 70, Gender: "Female", PhoneNumber: "9123456780"}

	book := func(slot string) *dto.AppointmentResponse {
		req := bookingRequest(env, tomorrowStr, slot, entity.AppointmentTypeInPerson)
		req.BookingFor = string(entity.BookingForOther)
		req.PatientDetails = details
		resp, err := env.appointments.CreateAppointment(asPatient(env.f.PatientA), req)
		if err != nil {
			t.Fatalf("book for relative: %v", err)
		}
		return resp
	}

	first := book("09:00")
	second := book("09:30")

	if first.PatientID == env.f.PatientA.ID {
		t.Fatal("relative booked as the booker")
	}
	if first.PatientID != second.PatientID {
		t.Errorf("relative profile was not reused: %s vs %s", first.PatientID, second.PatientID)
	}
	if first.BookedByUserID != *env.f.PatientA.UserID || first.PatientName != "Nani" {
		t.Errorf("unexpected relative booking: %+v", first)
	}

	// the booker may see the relative's appointments
	list, err := env.appointments.ListAppointmentsForPatient(asPatient(env.f.PatientA), first.PatientID)
	if err != nil || list.Total != 2 {
		t.Fatalf("list relative appointments = %v, %v", list, err)
	}
	// someone else may not
	_, err = env.appointments.ListAppointmentsForPatient(asPatient(env.f.PatientB), first.PatientID)
	wantKind(t, err, apperror.KindForbidden)
}

func TestCreateOnlineAppointmentJoinsQueue(t *testing.T) {
	env := newTestEnv(t)

	first := env.book(t, env.f.PatientA, todayStr, "09:00", entity.AppointmentTypeOnline)
	second := env.book(t, env.f.PatientB, todayStr, "09:30", entity.AppointmentTypeOnline)

	if first.MeetingPlatform != entity.DefaultMeetingPlatform {
		t.Errorf("meeting platform = %q", first.MeetingPlatform)
	}

	var entries []entity.QueueEntry
	env.db.Order("position ASC").Find(&entries)
	if len(entries) != 2 {
		t.Fatalf("queue entries = %d, want 2", len(entries))
	}
	if entries[0].AppointmentID != first.ID || entries[1].AppointmentID != second.ID {
		t.Error("queue order does not follow booking order")
	}
	if entries[0].Position != 1 || entries[1].Position != 2 || entries[1].EstimatedWaitMinutes != 15 {
		t.Errorf("unexpected positions: %+v", entries)
	}
	if !entries[0].CheckInTime.Equal(testNow) {
		t.Errorf("check-in time = %v, want booking time", entries[0].CheckInTime)
	}

	// already in the queue, so check-in is a conflict
	_, err := env.queue.CheckIn(asPatient(env.f.PatientA), &dto.CheckInRequest{AppointmentID: first.ID})
	wantKind(t, err, apperror.KindConflict)
}

func TestCreateSecondOnlineAppointmentSameDay(t *testing.T) {
	env := newTestEnv(t)

	first := env.book(t, env.f.PatientA, tomorrowStr, "09:00", entity.AppointmentTypeOnline)
	second, err := env.appointments.CreateAppointment(asPatient(env.f.PatientA), bookingRequest(env, tomorrowStr, "14:00", entity.AppointmentTypeOnline))
	if err != nil {
		t.Fatalf("second online booking at a free slot: %v", err)
	}
	if second.QueueNumber != first.QueueNumber+1 {
		t.Errorf("queue number = %d, want %d", second.QueueNumber, first.QueueNumber+1)
	}

	// the patient keeps one queue entry for the day
	var entries []entity.QueueEntry
	env.db.Where("patient_id = ?", env.f.PatientA.ID).Find(&entries)
	if len(entries) != 1 || entries[0].AppointmentID != first.ID {
		t.Fatalf("queue entries = %+v, want only the first booking", entries)
	}
}

func TestConcurrentBookingsGetUniqueNumbers(t *testing.T) {
	backends := []struct {
		name  string
		tweak func(t *testing.T) func(*Dependencies)
	}{
		{"database", func(t *testing.T) func(*Dependencies) { return func(*Dependencies) {} }},
		{"redis", func(t *testing.T) func(*Dependencies) {
			_, client := testutil.NewRedis(t)
			return func(d *Dependencies) {
				d.Sequence = service.NewRedisSequence(client, d.AppointmentRepo, d.Log)
			}
		}},
	}

	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			env := newTestEnv(t, backend.tweak(t))

			const n = 12
			patients := make([]entity.Patient, n)
			for i := range patients {
				patients[i] = testutil.SeedPatient(t, env.db, fmt.Sprintf("Patient %d", i))
			}

			var mu sync.Mutex
			var numbers []int
			var wg conc.WaitGroup
			for i := 0; i < n; i++ {
				i := i
				wg.Go(func() {
					slot := fmt.Sprintf("%02d:00", 8+i)
					resp, err := env.appointments.CreateAppointment(asPatient(patients[i]), bookingRequest(env, tomorrowStr, slot, entity.AppointmentTypeInPerson))
					if err != nil {
						t.Errorf("book %d: %v", i, err)
						return
					}
					mu.Lock()
					numbers = append(numbers, resp.QueueNumber)
					mu.Unlock()
				})
			}
			wg.Wait()

			sort.Ints(numbers)
			if len(numbers) != n {
				t.Fatalf("booked %d, want %d", len(numbers), n)
			}
			for i, got := range numbers {
				if got != i+1 {
					t.Fatalf("queue numbers %v are not unique 1..%d", numbers, n)
				}
			}
		})
	}
}

func TestConcurrentBookingsOfOneSlot(t *testing.T) {
	env := newTestEnv(t)

	const n = 6
	patients := make([]entity.Patient, n)
	for i := range patients {
		patients[i] = testutil.SeedPatient(t, env.db, fmt.Sprintf("Patient %d", i))
	}

	var mu sync.Mutex
	var booked, conflicts int
	var wg conc.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Go(func() {
			_, err := env.appointments.CreateAppointment(asPatient(patients[i]), bookingRequest(env, tomorrowStr, "10:00", entity.AppointmentTypeInPerson))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case apperror.IsKind(err, apperror.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
	wg.Wait()

	if booked != 1 || conflicts != n-1 {
		t.Errorf("booked=%d conflicts=%d, want 1 and %d", booked, conflicts, n-1)
	}
}

func TestUpdateAppointmentStatusCompletion(t *testing.T) {
	env := newTestEnv(t)

	status := env.checkIn(t, env.f.PatientA, "09:00")
	if _, err := env.queue.CallNext(env.asDoctor(), env.f.Doctor.UserID); err != nil {
		t.Fatalf("call next: %v", err)
	}

	// completion without notes is rejected and changes nothing
	_, err := env.appointments.UpdateAppointmentStatus(env.asDoctor(), status.AppointmentID, &dto.UpdateAppointmentStatusRequest{Status: "COMPLETED", Notes: "  "})
	wantKind(t, err, apperror.KindInvalidInput)
	if got := env.appointment(t, status.AppointmentID).Status; got != entity.AppointmentStatusInProgress {
		t.Fatalf("status after rejected completion = %s", got)
	}

	resp, err := env.appointments.UpdateAppointmentStatus(env.asDoctor(), status.AppointmentID, &dto.UpdateAppointmentStatusRequest{Status: "COMPLETED", Notes: "Viral fever, rest 3 days"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Status != string(entity.AppointmentStatusCompleted) || resp.Notes != "Viral fever, rest 3 days" {
		t.Errorf("unexpected appointment: %+v", resp)
	}

	entry := env.entry(t, status.QueueEntryID)
	if entry.Status != entity.QueueStatusCompleted || entry.CompletedTime == nil {
		t.Errorf("queue entry not completed with appointment: %+v", entry)
	}
}

func TestUpdateAppointmentStatusGuards(t *testing.T) {
	env := newTestEnv(t)
	booked := env.book(t, env.f.PatientA, tomorrowStr, "09:00", entity.AppointmentTypeInPerson)

	tests := []struct {
		name   string
		ctx    context.Context
		status string
		notes  string
		want   apperror.Kind
	}{
		{"unknown status", env.asDoctor(), "DONE", "", apperror.KindInvalidInput},
		{"start directly", env.asDoctor(), "IN_PROGRESS", "", apperror.KindIllegalTransition},
		{"complete without starting", env.asDoctor(), "COMPLETED", "notes", apperror.KindIllegalTransition},
		{"back to booked", env.asDoctor(), "BOOKED", "", apperror.KindIllegalTransition},
		{"patient may not", asPatient(env.f.PatientA), "NO_SHOW", "", apperror.KindForbidden},
		{"other doctor may not", middleware.ContextWithUser(context.Background(), uuid.New(), entity.RoleIDDoctor), "NO_SHOW", "", apperror.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.appointments.UpdateAppointmentStatus(tt.ctx, booked.ID, &dto.UpdateAppointmentStatusRequest{Status: tt.status, Notes: tt.notes})
			wantKind(t, err, tt.want)
		})
	}

	_, err := env.appointments.UpdateAppointmentStatus(env.asDoctor(), uuid.New(), &dto.UpdateAppointmentStatusRequest{Status: "NO_SHOW"})
	wantKind(t, err, apperror.KindNotFound)

	// staff of the clinic may mark a no-show, which is final
	resp, err := env.appointments.UpdateAppointmentStatus(env.asStaff(), booked.ID, &dto.UpdateAppointmentStatusRequest{Status: "no_show"})
	if err != nil {
		t.Fatalf("no show: %v", err)
	}
	if resp.Status != string(entity.AppointmentStatusNoShow) {
		t.Errorf("status = %s", resp.Status)
	}
	_, err = env.appointments.CancelAppointment(asPatient(env.f.PatientA), booked.ID)
	wantKind(t, err, apperror.KindTerminalState)
}

func TestCancelCompletedAppointment(t *testing.T) {
	env := newTestEnv(t)

	status := env.checkIn(t, env.f.PatientA, "09:00")
	env.queue.CallNext(env.asDoctor(), env.f.Doctor.UserID)
	if _, err := env.queue.CompleteQueueEntry(env.asDoctor(), status.QueueEntryID); err != nil {
		t.Fatalf("complete entry: %v", err)
	}

	_, err := env.appointments.CancelAppointment(asPatient(env.f.PatientA), status.AppointmentID)
	wantKind(t, err, apperror.KindTerminalState)

	_, err = env.appointments.UpdateAppointmentStatus(env.asDoctor(), status.AppointmentID, &dto.UpdateAppointmentStatusRequest{Status: "CANCELLED"})
	wantKind(t, err, apperror.KindTerminalState)
}

func TestCancelAppointmentLeavesQueue(t *testing.T) {
	env := newTestEnv(t)
	patientC := testutil.SeedPatient(t, env.db, "Chen")

	env.checkIn(t, env.f.PatientA, "09:00")
	b := env.checkIn(t, env.f.PatientB, "09:15")
	c := env.checkIn(t, patientC, "09:30")

	resp, err := env.appointments.CancelAppointment(asPatient(env.f.PatientB), b.AppointmentID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if resp.Status != string(entity.AppointmentStatusCancelled) {
		t.Errorf("status = %s", resp.Status)
	}

	if got := env.entry(t, b.QueueEntryID); got.Status != entity.QueueStatusCancelled || got.Position != 0 {
		t.Errorf("cancelled entry = %+v", got)
	}
	if got := env.entry(t, c.QueueEntryID); got.Position != 2 || got.EstimatedWaitMinutes != 15 {
		t.Errorf("C after cancel: position %d wait %d, want 2 and 15", got.Position, got.EstimatedWaitMinutes)
	}
	assertDense(t, env.waitingPositions(t))

	// the cancelled patient may check in again with a new booking
	env.checkIn(t, env.f.PatientB, "10:00")
	assertDense(t, env.waitingPositions(t))
}

func TestCancelInProgressAppointment(t *testing.T) {
	env := newTestEnv(t)

	a := env.checkIn(t, env.f.PatientA, "09:00")
	b := env.checkIn(t, env.f.PatientB, "09:15")
	env.queue.CallNext(env.asDoctor(), env.f.Doctor.UserID)

	if _, err := env.appointments.CancelAppointment(env.asStaff(), a.AppointmentID); err != nil {
		t.Fatalf("cancel in-progress: %v", err)
	}
	if got := env.entry(t, a.QueueEntryID).Status; got != entity.QueueStatusCancelled {
		t.Errorf("entry status = %s", got)
	}

	// the doctor is free to call B
	next, err := env.queue.CallNext(env.asDoctor(), env.f.Doctor.UserID)
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if next.QueueEntryID != b.QueueEntryID {
		t.Errorf("called %s, want B", next.QueueEntryID)
	}
}

func TestCancelRefundsCompletedPayment(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, env.f.PatientA, tomorrowStr, "09:00", entity.AppointmentTypeInPerson)

	if _, err := env.appointments.RecordPayment(env.asStaff(), appt.ID, &dto.RecordPaymentRequest{Status: "COMPLETED"}); err != nil {
		t.Fatalf("record payment: %v", err)
	}
	resp, err := env.appointments.CancelAppointment(asPatient(env.f.PatientA), appt.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if resp.PaymentStatus != string(entity.PaymentStatusRefunded) {
		t.Errorf("payment status = %s, want REFUNDED", resp.PaymentStatus)
	}
}

func TestCancelAppointmentAuthorization(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, env.f.PatientA, tomorrowStr, "09:00", entity.AppointmentTypeInPerson)

	_, err := env.appointments.CancelAppointment(asPatient(env.f.PatientB), appt.ID)
	wantKind(t, err, apperror.KindForbidden)

	otherClinicStaff := entity.StaffProfile{UserID: uuid.New(), ClinicID: uuid.New(), FullName: "Elsewhere"}
	env.db.Omit("Clinic").Create(&otherClinicStaff)
	ctx := middleware.ContextWithUser(context.Background(), otherClinicStaff.UserID, entity.RoleIDStaff)
	_, err = env.appointments.CancelAppointment(ctx, appt.ID)
	wantKind(t, err, apperror.KindForbidden)

	if _, err := env.appointments.CancelAppointment(env.asAdmin(), appt.ID); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestRecordPayment(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, env.f.PatientA, tomorrowStr, "09:00", entity.AppointmentTypeInPerson)

	steps := []struct {
		ctx    context.Context
		status string
		want   apperror.Kind
	}{
		{asPatient(env.f.PatientA), "COMPLETED", apperror.KindForbidden},
		{env.asStaff(), "PAID", apperror.KindInvalidInput},
		{env.asStaff(), "REFUNDED", apperror.KindIllegalTransition},
		{env.asStaff(), "FAILED", ""},
		{env.asStaff(), "PENDING", apperror.KindIllegalTransition},
		{env.asAdmin(), "COMPLETED", ""},
		{env.asStaff(), "FAILED", apperror.KindIllegalTransition},
	}
	for i, step := range steps {
		resp, err := env.appointments.RecordPayment(step.ctx, appt.ID, &dto.RecordPaymentRequest{Status: step.status})
		if step.want == "" {
			if err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
			if resp.PaymentStatus != step.status {
				t.Errorf("step %d: payment status = %s", i, resp.PaymentStatus)
			}
			continue
		}
		if !apperror.IsKind(err, step.want) {
			t.Fatalf("step %d: error = %v, want %s", i, err, step.want)
		}
	}
}

func TestAddMeetingLink(t *testing.T) {
	env := newTestEnv(t)
	online := env.book(t, env.f.PatientA, tomorrowStr, "09:00", entity.AppointmentTypeOnline)
	inPerson := env.book(t, env.f.PatientB, tomorrowStr, "09:30", entity.AppointmentTypeInPerson)

	_, err := env.appointments.AddMeetingLink(env.asDoctor(), inPerson.ID, &dto.AddMeetingLinkRequest{MeetingLink: "https://meet.google.com/abc-defg-hij"})
	wantKind(t, err, apperror.KindInvalidInput)

	_, err = env.appointments.AddMeetingLink(env.asDoctor(), online.ID, &dto.AddMeetingLinkRequest{MeetingLink: "meet.google.com/abc"})
	wantKind(t, err, apperror.KindInvalidInput)

	_, err = env.appointments.AddMeetingLink(asPatient(env.f.PatientA), online.ID, &dto.AddMeetingLinkRequest{MeetingLink: "https://meet.google.com/abc-defg-hij"})
	wantKind(t, err, apperror.KindForbidden)

	resp, err := env.appointments.AddMeetingLink(env.asDoctor(), online.ID, &dto.AddMeetingLinkRequest{MeetingLink: "https://meet.google.com/abc-defg-hij"})
	if err != nil {
		t.Fatalf("add link: %v", err)
	}
	if resp.MeetingLink != "https://meet.google.com/abc-defg-hij" || resp.MeetingPlatform != entity.DefaultMeetingPlatform {
		t.Errorf("unexpected meeting: %+v", resp)
	}

	resp, err = env.appointments.AddMeetingLink(env.asStaff(), online.ID, &dto.AddMeetingLinkRequest{MeetingLink: "https://zoom.us/j/123", Platform: "ZOOM"})
	if err != nil || resp.MeetingPlatform != "ZOOM" {
		t.Fatalf("replace link = %+v, %v", resp, err)
	}
}

func TestAppointmentListings(t *testing.T) {
	env := newTestEnv(t)

	today := env.book(t, env.f.PatientA, todayStr, "14:00", entity.AppointmentTypeInPerson)
	tomorrowLate := env.book(t, env.f.PatientA, tomorrowStr, "16:00", entity.AppointmentTypeInPerson)
	tomorrowEarly := env.book(t, env.f.PatientB, tomorrowStr, "08:30", entity.AppointmentTypeInPerson)

	ids := func(list *dto.AppointmentListResponse) []uuid.UUID {
		out := make([]uuid.UUID, len(list.Appointments))
		for i, a := range list.Appointments {
			out[i] = a.ID
		}
		return out
	}
	equal := func(got, want []uuid.UUID) bool {
		if len(got) != len(want) {
			return false
		}
		for i := range got {
			if got[i] != want[i] {
				return false
			}
		}
		return true
	}

	patientList, err := env.appointments.ListAppointmentsForPatient(asPatient(env.f.PatientA), env.f.PatientA.ID)
	if err != nil {
		t.Fatalf("patient list: %v", err)
	}
	if !equal(ids(patientList), []uuid.UUID{tomorrowLate.ID, today.ID}) {
		t.Errorf("patient list not newest first: %v", ids(patientList))
	}

	doctorList, err := env.appointments.ListAppointmentsForDoctor(env.asDoctor(), env.f.Doctor.UserID)
	if err != nil {
		t.Fatalf("doctor list: %v", err)
	}
	if !equal(ids(doctorList), []uuid.UUID{tomorrowLate.ID, tomorrowEarly.ID, today.ID}) {
		t.Errorf("doctor list not by date, time descending: %v", ids(doctorList))
	}

	clinicList, err := env.appointments.ListAppointmentsForClinic(env.asStaff(), env.f.Clinic.ID)
	if err != nil {
		t.Fatalf("clinic list: %v", err)
	}
	if !equal(ids(clinicList), []uuid.UUID{today.ID, tomorrowEarly.ID, tomorrowLate.ID}) {
		t.Errorf("clinic list not ascending: %v", ids(clinicList))
	}

	mine, err := env.appointments.ListMyAppointments(asPatient(env.f.PatientB))
	if err != nil || mine.Total != 1 || mine.Appointments[0].ID != tomorrowEarly.ID {
		t.Errorf("my appointments = %+v, %v", mine, err)
	}

	otherDoctor := middleware.ContextWithUser(context.Background(), uuid.New(), entity.RoleIDDoctor)
	_, err = env.appointments.ListAppointmentsForDoctor(otherDoctor, env.f.Doctor.UserID)
	wantKind(t, err, apperror.KindForbidden)

	_, err = env.appointments.ListAppointmentsForClinic(asPatient(env.f.PatientA), env.f.Clinic.ID)
	wantKind(t, err, apperror.KindForbidden)

	_, err = env.appointments.ListAppointmentsForPatient(env.asStaff(), uuid.New())
	wantKind(t, err, apperror.KindNotFound)

	got, err := env.appointments.GetAppointment(env.asDoctor(), today.ID)
	if err != nil || got.ID != today.ID {
		t.Fatalf("get appointment = %+v, %v", got, err)
	}
	_, err = env.appointments.GetAppointment(asPatient(env.f.PatientB), today.ID)
	wantKind(t, err, apperror.KindForbidden)
	_, err = env.appointments.GetAppointment(env.asAdmin(), uuid.New())
	wantKind(t, err, apperror.KindNotFound)
}

func TestAppointmentAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, env.f.PatientA, tomorrowStr, "09:00", entity.AppointmentTypeInPerson)
	env.appointments.CancelAppointment(asPatient(env.f.PatientA), appt.ID)

	repo := repository.NewAuditLogRepository()
	created, _ := repo.FindByAction(env.db, entity.AuditActionAppointmentCreate)
	cancelled, _ := repo.FindByAction(env.db, entity.AuditActionAppointmentCancel)
	if len(created) != 1 || len(cancelled) != 1 {
		t.Fatalf("audit rows: create=%d cancel=%d", len(created), len(cancelled))
	}
	if cancelled[0].UserID == nil || *cancelled[0].UserID != *env.f.PatientA.UserID {
		t.Errorf("cancel actor = %v", cancelled[0].UserID)
	}
	if cancelled[0].Metadata["new_value"] != string(entity.AppointmentStatusCancelled) {
		t.Errorf("cancel metadata = %v", cancelled[0].Metadata)
	}
}
