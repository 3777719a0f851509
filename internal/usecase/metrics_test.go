package usecase

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/infrastructure/metrics"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestLockWaitObservedOncePerAcquisition(t *testing.T) {
	m := metrics.New()
	env := newTestEnv(t, func(d *Dependencies) {
		d.Metrics = m
		d.Locker.OnWait(m.ObserveLockWait)
	})

	env.book(t, env.f.PatientA, tomorrowStr, "09:00", entity.AppointmentTypeInPerson)

	body := scrape(t, m)
	for _, want := range []string{
		"clinicq_queue_lock_wait_seconds_count 1",
		"clinicq_appointments_booked_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
