package converter

import (
	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/domain/entity"
)

const dateLayout = "2006-01-02"

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:              appointment.ID,
		DoctorID:        appointment.DoctorID,
		DoctorName:      appointment.Doctor.FullName,
		PatientID:       appointment.PatientID,
		PatientName:     appointment.Patient.FullName,
		ClinicID:        appointment.ClinicID,
		BookedByUserID:  appointment.BookedByUserID,
		AppointmentDate: appointment.AppointmentDate.Format(dateLayout),
		AppointmentTime: appointment.AppointmentTime,
		Type:            string(appointment.Type),
		Status:          string(appointment.Status),
		QueueNumber:     appointment.QueueNumber,
		PaymentMode:     string(appointment.PaymentMode),
		PaymentStatus:   string(appointment.PaymentStatus),
		Amount:          appointment.Amount.StringFixed(2),
		Notes:           appointment.Notes,
		MeetingLink:     appointment.MeetingLink,
		MeetingPlatform: appointment.MeetingPlatform,
		CreatedAt:       appointment.CreatedAt,
		UpdatedAt:       appointment.UpdatedAt,
	}
}

// AppointmentsToListResponse converts a slice of Appointment entities to a list DTO
func AppointmentsToListResponse(appointments []entity.Appointment) *dto.AppointmentListResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return &dto.AppointmentListResponse{
		Appointments: responses,
		Total:        len(responses),
	}
}
