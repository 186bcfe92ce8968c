package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/appointment"
)

// DefaultTTL bounds how stale a cached availability answer may get when a
// write bypasses this process.
const DefaultTTL = 30 * time.Second

const anyCounselor = "*"

// CachingRepository caches CheckAvailability results in redis and drops the
// cached day whenever a write through it touches that day.
type CachingRepository struct {
	appointment.Repository
	client *redis.Client
	orgID  string
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachingRepository wraps inner. A zero ttl uses DefaultTTL.
func NewCachingRepository(inner appointment.Repository, client *redis.Client, orgID string, ttl time.Duration, logger *zap.Logger) *CachingRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingRepository{
		Repository: inner,
		client:     client,
		orgID:      orgID,
		ttl:        ttl,
		logger:     logger,
	}
}

func (c *CachingRepository) dayKey(date string) string {
	return fmt.Sprintf("clinicflow:%s:availability:%s", c.orgID, date)
}

func (c *CachingRepository) indexKey() string {
	return fmt.Sprintf("clinicflow:%s:appointment-dates", c.orgID)
}

// CheckAvailability serves from the cache when possible. Cache failures fall
// back to the wrapped repository.
func (c *CachingRepository) CheckAvailability(ctx context.Context, date time.Time, counselorID string) ([]appointment.BusySlot, error) {
	key := c.dayKey(date.Format(appointment.DateLayout))
	field := counselorID
	if field == "" {
		field = anyCounselor
	}

	raw, err := c.client.HGet(ctx, key, field).Result()
	switch {
	case err == nil:
		var busy []appointment.BusySlot
		if jerr := json.Unmarshal([]byte(raw), &busy); jerr == nil {
			return busy, nil
		}
		c.logger.Warn("discarding corrupt availability cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("availability cache read failed", zap.Error(err))
	}

	busy, err := c.Repository.CheckAvailability(ctx, date, counselorID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(busy)
	if err != nil {
		return busy, nil
	}
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, field, data)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("availability cache write failed", zap.Error(err))
	}
	return busy, nil
}

// ListAppointments records each appointment's date so later writes by id can
// invalidate the right day.
func (c *CachingRepository) ListAppointments(ctx context.Context, start, end time.Time) ([]*appointment.Appointment, error) {
	appts, err := c.Repository.ListAppointments(ctx, start, end)
	if err != nil {
		return nil, err
	}
	c.remember(ctx, appts...)
	return appts, nil
}

// CreateAppointment books through the wrapped repository and invalidates the day.
func (c *CachingRepository) CreateAppointment(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error) {
	a, err := c.Repository.CreateAppointment(ctx, req)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, a.DateString())
	c.remember(ctx, a)
	return a, nil
}

// UpdateAppointmentTime invalidates both the old and the new day.
func (c *CachingRepository) UpdateAppointmentTime(ctx context.Context, upd appointment.TimeUpdate) (*appointment.Appointment, error) {
	old := c.lookup(ctx, upd.ID)
	a, err := c.Repository.UpdateAppointmentTime(ctx, upd)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, old, a.DateString())
	c.remember(ctx, a)
	return a, nil
}

// UpdateAppointmentStatus invalidates the appointment's day.
func (c *CachingRepository) UpdateAppointmentStatus(ctx context.Context, id string, status appointment.Status) error {
	if err := c.Repository.UpdateAppointmentStatus(ctx, id, status); err != nil {
		return err
	}
	c.invalidate(ctx, c.lookup(ctx, id))
	return nil
}

// DeleteAppointment invalidates the appointment's day.
func (c *CachingRepository) DeleteAppointment(ctx context.Context, id string) error {
	day := c.lookup(ctx, id)
	if err := c.Repository.DeleteAppointment(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, day)
	c.client.HDel(ctx, c.indexKey(), id)
	return nil
}

func (c *CachingRepository) remember(ctx context.Context, appts ...*appointment.Appointment) {
	if len(appts) == 0 {
		return
	}
	values := make([]any, 0, len(appts)*2)
	for _, a := range appts {
		values = append(values, a.ID, a.DateString())
	}
	if err := c.client.HSet(ctx, c.indexKey(), values...).Err(); err != nil {
		c.logger.Warn("appointment date index write failed", zap.Error(err))
	}
}

// lookup returns the cached date of id, or "" when unknown.
func (c *CachingRepository) lookup(ctx context.Context, id string) string {
	day, err := c.client.HGet(ctx, c.indexKey(), id).Result()
	if err != nil {
		return ""
	}
	return day
}

// invalidate drops the given days. An unknown ("") day flushes every cached day.
func (c *CachingRepository) invalidate(ctx context.Context, days ...string) {
	keys := make([]string, 0, len(days))
	for _, d := range days {
		if d == "" {
			c.flush(ctx)
			return
		}
		keys = append(keys, c.dayKey(d))
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("availability cache invalidation failed", zap.Error(err))
	}
}

func (c *CachingRepository) flush(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, c.dayKey("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("availability cache scan failed", zap.Error(err))
		return
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}
