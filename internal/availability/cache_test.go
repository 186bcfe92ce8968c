package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/availability"
	"github.com/javiermolinar/clinicflow/internal/db"
)

// countingRepo counts how often availability reaches the backing store.
type countingRepo struct {
	*db.Memory
	checks int
}

func (c *countingRepo) CheckAvailability(ctx context.Context, date time.Time, counselorID string) ([]appointment.BusySlot, error) {
	c.checks++
	return c.Memory.CheckAvailability(ctx, date, counselorID)
}

type cacheFixture struct {
	mr     *miniredis.Miniredis
	inner  *countingRepo
	cache  *availability.CachingRepository
	client *appointment.Client
}

func newCacheFixture(t *testing.T) cacheFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	inner := &countingRepo{Memory: db.NewMemory()}
	client := &appointment.Client{Name: "Ana Ruiz"}
	require.NoError(t, inner.CreateClient(context.Background(), client))

	return cacheFixture{
		mr:     mr,
		inner:  inner,
		cache:  availability.NewCachingRepository(inner, rdb, "org-1", time.Minute, nil),
		client: client,
	}
}

func (f cacheFixture) book(t *testing.T, date time.Time, clock string) *appointment.Appointment {
	t.Helper()
	a, err := f.cache.CreateAppointment(context.Background(), appointment.CreateRequest{
		ClientID: f.client.ID,
		Date:     date,
		Time:     clock,
		Kind:     appointment.KindOnline,
		Duration: 50,
	})
	require.NoError(t, err)
	return a
}

var friday = time.Date(2024, 1, 19, 0, 0, 0, 0, time.Local)

func TestCacheServesRepeatedChecks(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()
	f.book(t, friday, "10:00")

	first, err := f.cache.CheckAvailability(ctx, friday, "")
	require.NoError(t, err)
	second, err := f.cache.CheckAvailability(ctx, friday, "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.inner.checks)
	assert.Equal(t, "Ana Ruiz", second[0].OccupantName)
	assert.True(t, f.mr.Exists("clinicflow:org-1:availability:2024-01-19"))
}

func TestCacheInvalidatesOnCreate(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	busy, err := f.cache.CheckAvailability(ctx, friday, "")
	require.NoError(t, err)
	assert.Empty(t, busy)

	f.book(t, friday, "10:00")

	busy, err = f.cache.CheckAvailability(ctx, friday, "")
	require.NoError(t, err)
	assert.Len(t, busy, 1)
	assert.Equal(t, 2, f.inner.checks)
}

func TestCacheInvalidatesBothDaysOnMove(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()
	a := f.book(t, friday, "10:00")
	monday := time.Date(2024, 1, 22, 0, 0, 0, 0, time.Local)

	_, err := f.cache.CheckAvailability(ctx, friday, "")
	require.NoError(t, err)
	_, err = f.cache.CheckAvailability(ctx, monday, "")
	require.NoError(t, err)

	_, err = f.cache.UpdateAppointmentTime(ctx, appointment.TimeUpdate{
		ID:       a.ID,
		Start:    monday.Add(14 * time.Hour),
		Duration: a.Duration,
	})
	require.NoError(t, err)

	fri, err := f.cache.CheckAvailability(ctx, friday, "")
	require.NoError(t, err)
	mon, err := f.cache.CheckAvailability(ctx, monday, "")
	require.NoError(t, err)

	assert.Empty(t, fri)
	require.Len(t, mon, 1)
	assert.Equal(t, "14:00", mon[0].Time)
}

func TestCacheUnknownAppointmentFlushesAllDays(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()
	a := f.book(t, friday, "10:00")

	_, err := f.cache.CheckAvailability(ctx, friday, "")
	require.NoError(t, err)

	// Forget the id index, as after a restart with a fresh redis.
	f.mr.Del("clinicflow:org-1:appointment-dates")

	require.NoError(t, f.cache.UpdateAppointmentStatus(ctx, a.ID, appointment.StatusCanceled))
	assert.False(t, f.mr.Exists("clinicflow:org-1:availability:2024-01-19"))

	busy, err := f.cache.CheckAvailability(ctx, friday, "")
	require.NoError(t, err)
	assert.Empty(t, busy)
}

func TestCacheFallsBackWhenRedisIsDown(t *testing.T) {
	f := newCacheFixture(t)
	f.book(t, friday, "10:00")
	f.mr.Close()

	busy, err := f.cache.CheckAvailability(context.Background(), friday, "")
	require.NoError(t, err)
	assert.Len(t, busy, 1)
}

func TestCacheKeysPerCounselor(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	_, err := f.cache.CheckAvailability(ctx, friday, "")
	require.NoError(t, err)
	_, err = f.cache.CheckAvailability(ctx, friday, "co-7")
	require.NoError(t, err)

	assert.Equal(t, 2, f.inner.checks)
	fields, err := f.mr.HKeys("clinicflow:org-1:availability:2024-01-19")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"*", "co-7"}, fields)
}
