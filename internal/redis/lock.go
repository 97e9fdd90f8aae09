package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/medibook/medibook/internal/booking"
)

// doctorDayLocker guards the ledger's check-then-write sequences with a per
// (doctor, date) Redis key, so concurrent bookings against the same doctor's
// day serialize across all api-server instances.
type doctorDayLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDoctorDayLocker creates a booking.Locker backed by Redis SetNX.
func NewDoctorDayLocker(client *redis.Client, ttl time.Duration) booking.Locker {
	return &doctorDayLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *doctorDayLocker) WithDoctorDayLock(ctx context.Context, doctorID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:doctor-day:%s:%s", doctorID.String(), booking.DateKey(date))
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire doctor-day lock: %w", err)
	}
	if !ok {
		return booking.ErrDayBusy
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

// The token check keeps an expired holder from deleting a lock someone else
// now owns.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *doctorDayLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release doctor-day lock: %w", err)
	}
	return nil
}
