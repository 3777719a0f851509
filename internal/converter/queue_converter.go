package converter

import (
	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/domain/entity"
)

// QueueEntryToResponse converts a QueueEntry entity to QueueStatusResponse DTO
func QueueEntryToResponse(entry *entity.QueueEntry) *dto.QueueStatusResponse {
	if entry == nil {
		return nil
	}

	return &dto.QueueStatusResponse{
		QueueEntryID:         entry.ID,
		AppointmentID:        entry.AppointmentID,
		DoctorID:             entry.DoctorID,
		PatientID:            entry.PatientID,
		PatientName:          entry.Patient.FullName,
		QueueNumber:          entry.Appointment.QueueNumber,
		QueueDate:            entry.QueueDate.Format(dateLayout),
		Status:               string(entry.Status),
		Position:             entry.Position,
		EstimatedWaitMinutes: entry.EstimatedWaitMinutes,
		CheckInTime:          entry.CheckInTime,
		CalledTime:           entry.CalledTime,
		CompletedTime:        entry.CompletedTime,
	}
}

// QueueEntriesToResponses converts a slice of QueueEntry entities to DTOs
func QueueEntriesToResponses(entries []entity.QueueEntry) []dto.QueueStatusResponse {
	responses := make([]dto.QueueStatusResponse, len(entries))
	for i := range entries {
		responses[i] = *QueueEntryToResponse(&entries[i])
	}
	return responses
}
