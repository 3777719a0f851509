package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go-clinic-queue/pkg/apperror"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrLockTimeout is returned when the per-doctor-day lock cannot be taken in time
var ErrLockTimeout = apperror.New(apperror.KindUnavailable, "doctor queue is busy, please retry")

const (
	// Interval for cleaning up idle locks
	lockCleanupInterval = 10 * time.Minute

	// How long a lock must be unused before cleanup
	lockStaleThreshold = 10 * time.Minute
)

// KeyedLocker serialises queue-number and position work for one doctor on one
// day inside this process. Different keys never block each other.
//
// Lock ordering: acquire the key lock FIRST, then open the database transaction.
type KeyedLocker struct {
	timeout time.Duration
	log     *logrus.Logger

	locks sync.Map // map[string]*lockWithTimestamp

	// Optional observer for lock wait time
	observeWait func(time.Duration)

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// lockWithTimestamp is a one-slot channel so waiters can give up on a context
type lockWithTimestamp struct {
	sem      chan struct{}
	lastUsed atomic.Int64 // Unix timestamp
}

// NewKeyedLocker starts the background cleanup goroutine; call Stop on shutdown
func NewKeyedLocker(timeout time.Duration, log *logrus.Logger) *KeyedLocker {
	l := &KeyedLocker{
		timeout:  timeout,
		log:      log,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// OnWait registers a callback receiving how long each Lock call waited
func (l *KeyedLocker) OnWait(fn func(time.Duration)) {
	l.observeWait = fn
}

// Stop gracefully shuts down the locker. Safe to call multiple times.
func (l *KeyedLocker) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		close(l.stopChan)
		l.wg.Wait()
		l.log.Info("KeyedLocker stopped")
	}
}

// DoctorDayKey names the lock guarding one doctor's queue on one calendar date
func DoctorDayKey(doctorID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s:%s", doctorID, date.Format("2006-01-02"))
}

// Lock blocks until the key is free, the configured timeout passes or ctx ends.
// The returned func releases the lock.
func (l *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	return l.lockEntry(ctx, key, l.get(key))
}

// lockEntry takes lt, the entry the caller loaded for key. If cleanup dropped
// that entry while the caller waited, it is released and the current entry
// for key is taken instead, so a key never has two holders.
func (l *KeyedLocker) lockEntry(ctx context.Context, key string, lt *lockWithTimestamp) (func(), error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	for {
		select {
		case lt.sem <- struct{}{}:
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				l.log.Warnf("Timed out waiting for lock %s after %s", key, time.Since(start))
				return nil, ErrLockTimeout
			}
			return nil, ctx.Err()
		}
		if current, ok := l.locks.Load(key); ok && current == lt {
			break
		}
		<-lt.sem
		lt = l.get(key)
	}
	if l.observeWait != nil {
		l.observeWait(time.Since(start))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			lt.lastUsed.Store(time.Now().Unix())
			<-lt.sem
		})
	}, nil
}

func (l *KeyedLocker) get(key string) *lockWithTimestamp {
	v, _ := l.locks.LoadOrStore(key, &lockWithTimestamp{sem: make(chan struct{}, 1)})
	lt := v.(*lockWithTimestamp)
	lt.lastUsed.Store(time.Now().Unix())
	return lt
}

func (l *KeyedLocker) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(lockCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			l.log.Debug("Lock cleanup goroutine stopping")
			return
		case <-ticker.C:
			l.cleanupStale(time.Now().Add(-lockStaleThreshold))
		}
	}
}

// cleanupStale drops idle locks. lastUsed is checked while holding the slot so
// a concurrent Lock cannot be handed a lock that is being removed.
func (l *KeyedLocker) cleanupStale(cutoff time.Time) int {
	var cleaned int

	l.locks.Range(func(key, value any) bool {
		lt, ok := value.(*lockWithTimestamp)
		if !ok {
			return true
		}

		select {
		case lt.sem <- struct{}{}:
			if lt.lastUsed.Load() < cutoff.Unix() && l.locks.CompareAndDelete(key, lt) {
				cleaned++
			}
			<-lt.sem
		default:
			// held by someone, keep it
		}
		return true
	})

	if cleaned > 0 {
		l.log.Debugf("Cleaned up %d stale locks", cleaned)
	}
	return cleaned
}
