// Package testutil builds throwaway stores and fixtures for package tests.
package testutil

import (
	"fmt"
	"io"
	"testing"
	"time"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/infrastructure/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database private to the test.
// The pool holds one connection, so work inside a transaction must use the tx.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewRedis starts a miniredis server and returns a client connected to it
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return srv, client
}

// NewLogger returns a logger that discards output
func NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Date returns midnight UTC of the given calendar day
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Fixture is a clinic with one doctor, one staff member and two patients
type Fixture struct {
	Clinic   entity.Clinic
	Doctor   entity.Doctor
	Staff    entity.StaffProfile
	PatientA entity.Patient
	PatientB entity.Patient
	AdminID  uuid.UUID
}

// Seed inserts a Fixture. Patients A and B have their own user accounts.
func Seed(t testing.TB, db *gorm.DB) *Fixture {
	t.Helper()

	f := &Fixture{AdminID: uuid.New()}

	f.Clinic = entity.Clinic{Name: "Sunrise Clinic", Address: "12 Main Road"}
	mustCreate(t, db, &f.Clinic)

	f.Doctor = SeedDoctor(t, db, f.Clinic.ID, "Dr. Rao")

	f.Staff = entity.StaffProfile{UserID: uuid.New(), ClinicID: f.Clinic.ID, FullName: "Front Desk"}
	mustCreate(t, db, &f.Staff)

	f.PatientA = SeedPatient(t, db, "Asha")
	f.PatientB = SeedPatient(t, db, "Bilal")
	return f
}

// SeedDoctor inserts an available doctor with a 500.00 consultation fee
func SeedDoctor(t testing.TB, db *gorm.DB, clinicID uuid.UUID, name string) entity.Doctor {
	t.Helper()

	d := entity.Doctor{
		UserID:          uuid.New(),
		ClinicID:        clinicID,
		FullName:        name,
		Specialization:  "General Medicine",
		ConsultationFee: decimal.RequireFromString("500.00"),
		IsAvailable:     true,
	}
	mustCreate(t, db, &d)
	return d
}

// SeedPatient inserts a patient that owns a user account
func SeedPatient(t testing.TB, db *gorm.DB, name string) entity.Patient {
	t.Helper()

	userID := uuid.New()
	p := entity.Patient{UserID: &userID, FullName: name, Age: 30, Gender: entity.GenderOther, PhoneNumber: "9876543210"}
	mustCreate(t, db, &p)
	return p
}

func mustCreate(t testing.TB, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Omit("Clinic").Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}
