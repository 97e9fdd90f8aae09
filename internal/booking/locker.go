package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Locker serializes mutating operations per (doctor, date). The ledger holds
// the lock across its check-then-write sequence.
type Locker interface {
	WithDoctorDayLock(ctx context.Context, doctorID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error
}

// LocalLocker is an in-process Locker backed by keyed mutexes. It is used for
// single-node deployments without Redis and in tests. Unlike the Redis
// locker it blocks instead of failing with ErrDayBusy.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*lockEntry)}
}

func (l *LocalLocker) WithDoctorDayLock(ctx context.Context, doctorID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	key := doctorID.String() + ":" + DateKey(date)

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
