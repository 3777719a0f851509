package service

import (
	"context"
	"fmt"
	"time"

	"go-clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SequenceAllocator hands out a doctor's per-day appointment queue numbers.
// Callers hold the doctor-day lock and pass the open transaction.
type SequenceAllocator interface {
	Next(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID, date time.Time) (int, error)
}

// RedisSequenceKeyPrefix prefixes the per doctor-day counter keys
const RedisSequenceKeyPrefix = "appointment:seq:"

// nextSequenceScript raises the counter to the database floor when it is behind
// (first use, flushed cache) and then increments it. The key expires the day
// after the appointment date, and never sooner than a day from now.
//
// KEYS[1] counter, ARGV[1] floor, ARGV[2] expire-at unix seconds
var nextSequenceScript = redis.NewScript(`
	local floor = tonumber(ARGV[1])
	local current = tonumber(redis.call('GET', KEYS[1]) or '0')
	if current < floor then
		redis.call('SET', KEYS[1], floor)
	end
	local n = redis.call('INCR', KEYS[1])
	redis.call('EXPIREAT', KEYS[1], ARGV[2])
	return n
`)

type databaseSequence struct {
	appointmentRepo repository.AppointmentRepository
}

// NewDatabaseSequence allocates MAX(queue_number)+1 inside the caller's transaction
func NewDatabaseSequence(appointmentRepo repository.AppointmentRepository) SequenceAllocator {
	return &databaseSequence{appointmentRepo: appointmentRepo}
}

func (s *databaseSequence) Next(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID, date time.Time) (int, error) {
	max, err := s.appointmentRepo.MaxQueueNumber(tx, doctorID, date)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

type redisSequence struct {
	redisClient     *redis.Client
	appointmentRepo repository.AppointmentRepository
	log             *logrus.Logger
}

// NewRedisSequence allocates numbers from a Redis counter seeded from the database
func NewRedisSequence(redisClient *redis.Client, appointmentRepo repository.AppointmentRepository, log *logrus.Logger) SequenceAllocator {
	return &redisSequence{
		redisClient:     redisClient,
		appointmentRepo: appointmentRepo,
		log:             log,
	}
}

func (s *redisSequence) Next(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID, date time.Time) (int, error) {
	floor, err := s.appointmentRepo.MaxQueueNumber(tx, doctorID, date)
	if err != nil {
		return 0, err
	}

	key := SequenceKey(doctorID, date)
	expireAt := date.AddDate(0, 0, 2)
	if minExpiry := time.Now().Add(24 * time.Hour); expireAt.Before(minExpiry) {
		expireAt = minExpiry
	}

	n, err := nextSequenceScript.Run(ctx, s.redisClient, []string{key}, floor, expireAt.Unix()).Int()
	if err != nil {
		s.log.Warnf("Failed to allocate queue number from redis for %s: %+v", key, err)
		return 0, fmt.Errorf("allocate queue number: %w", err)
	}
	return n, nil
}

// SequenceKey is the Redis key of one doctor's counter for one date
func SequenceKey(doctorID uuid.UUID, date time.Time) string {
	return RedisSequenceKeyPrefix + DoctorDayKey(doctorID, date)
}
