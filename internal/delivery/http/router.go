package http

import (
	"net/http"

	"go-clinic-queue/internal/delivery/http/handler"
	"go-clinic-queue/internal/delivery/http/middleware"
	"go-clinic-queue/internal/infrastructure/metrics"

	"github.com/gorilla/mux"
)

type Router struct {
	router             *mux.Router
	appointmentHandler *handler.AppointmentHandler
	queueHandler       *handler.QueueHandler
	authMiddleware     *middleware.AuthMiddleware
	corsMiddleware     *middleware.CORSMiddleware
	metrics            *metrics.Metrics
}

func NewRouter(
	appointmentHandler *handler.AppointmentHandler,
	queueHandler *handler.QueueHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	metrics *metrics.Metrics,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		appointmentHandler: appointmentHandler,
		queueHandler:       queueHandler,
		authMiddleware:     authMiddleware,
		corsMiddleware:     corsMiddleware,
		metrics:            metrics,
	}
}

func (r *Router) Setup() *mux.Router {
	r.router.Handle("/metrics", r.metrics.Handler()).Methods(http.MethodGet)

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(r.authMiddleware.Authenticate)

	// Appointments
	appointments := protected.PathPrefix("/appointments").Subrouter()
	appointments.Handle("", middleware.RequirePatient(http.HandlerFunc(r.appointmentHandler.CreateAppointment))).Methods(http.MethodPost)
	appointments.HandleFunc("/mine", r.appointmentHandler.ListMyAppointments).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}/cancel", r.appointmentHandler.CancelAppointment).Methods(http.MethodPost)
	appointments.Handle("/{id}/status", middleware.RequireClinicStaff(http.HandlerFunc(r.appointmentHandler.UpdateStatus))).Methods(http.MethodPatch)
	appointments.Handle("/{id}/meeting-link", middleware.RequireClinicStaff(http.HandlerFunc(r.appointmentHandler.AddMeetingLink))).Methods(http.MethodPatch)
	appointments.HandleFunc("/{id}/payment", r.appointmentHandler.RecordPayment).Methods(http.MethodPatch)

	protected.HandleFunc("/patients/{patientId}/appointments", r.appointmentHandler.ListForPatient).Methods(http.MethodGet)
	protected.HandleFunc("/doctors/{doctorId}/appointments", r.appointmentHandler.ListForDoctor).Methods(http.MethodGet)
	protected.HandleFunc("/clinics/{clinicId}/appointments", r.appointmentHandler.ListForClinic).Methods(http.MethodGet)

	// Queue
	queue := protected.PathPrefix("/queue").Subrouter()
	queue.Handle("/check-in", middleware.RequirePatient(http.HandlerFunc(r.queueHandler.CheckIn))).Methods(http.MethodPost)
	queue.HandleFunc("/patients/{patientId}/status", r.queueHandler.MyStatus).Methods(http.MethodGet)
	queue.HandleFunc("/doctors/{doctorId}", r.queueHandler.DoctorQueue).Methods(http.MethodGet)
	queue.Handle("/doctors/{doctorId}/call-next", middleware.RequireClinicStaff(http.HandlerFunc(r.queueHandler.CallNext))).Methods(http.MethodPost)
	queue.Handle("/entries/{id}/complete", middleware.RequireClinicStaff(http.HandlerFunc(r.queueHandler.Complete))).Methods(http.MethodPost)

	// Add CORS and request metrics middleware
	r.router.Use(r.corsMiddleware.Handle)
	r.router.Use(r.metrics.Middleware)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
