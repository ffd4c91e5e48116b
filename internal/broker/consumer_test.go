package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agendly/agenda/domain"
)

// recorder collects handled bodies across goroutines.
type recorder struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (r *recorder) handle(_ context.Context, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bodies = append(r.bodies, string(body))
	return r.err
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.bodies...)
}

// memLedger is an in-memory Ledger for tests.
type memLedger struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newMemLedger() *memLedger { return &memLedger{ids: map[string]bool{}} }

func (l *memLedger) Seen(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids[id], nil
}

func (l *memLedger) Mark(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids[id] = true
	return nil
}

func newTestConsumer(t *testing.T, rdb *redis.Client, group, name string, handler Handler, ledger Ledger) *Consumer {
	t.Helper()
	c, err := NewConsumer(rdb, Options{
		Stream: "agenda.events",
		Group:  group,
		Name:   name,
		Block:  50 * time.Millisecond,
	}, handler, ledger, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Bind(context.Background()))
	return c
}

func stopConsumer(t *testing.T, c *Consumer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

func TestNewConsumerValidation(t *testing.T) {
	rdb := setupRedis(t)

	_, err := NewConsumer(rdb, Options{Group: "g"}, func(context.Context, []byte) error { return nil }, nil, nil)
	assert.Error(t, err)

	_, err = NewConsumer(rdb, Options{Stream: "s", Group: "g"}, nil, nil, nil)
	assert.Error(t, err)

	c, err := NewConsumer(rdb, Options{Stream: "s", Group: "g"}, func(context.Context, []byte) error { return nil }, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, c.opts.Name)
}

func TestBindIsIdempotent(t *testing.T) {
	rdb := setupRedis(t)
	c := newTestConsumer(t, rdb, "details-service", "c1", func(context.Context, []byte) error { return nil }, nil)

	// Repeat binding, as a reconnect would.
	require.NoError(t, c.Bind(context.Background()))
	require.NoError(t, c.Bind(context.Background()))
}

func TestBroadcastEveryGroupSeesEveryEvent(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	bus := NewBus(rdb, "agenda.events", nil)

	var details, search recorder
	c1 := newTestConsumer(t, rdb, "details-service", "d1", details.handle, nil)
	c2 := newTestConsumer(t, rdb, "search-service", "s1", search.handle, nil)

	c1.Start(ctx)
	c2.Start(ctx)
	defer stopConsumer(t, c1)
	defer stopConsumer(t, c2)

	require.NoError(t, bus.Publish(ctx, domain.AppointmentCreated{ID: 7, Description: "Dentist", Date: "2024-01-01", Time: "09:00"}))
	require.NoError(t, bus.Publish(ctx, domain.AppointmentDeleted{ID: 7}))

	assert.Eventually(t, func() bool {
		return len(details.seen()) == 2 && len(search.seen()) == 2
	}, 5*time.Second, 20*time.Millisecond, "both groups must receive both events independently")
}

func TestWorkQueueConsumersCompete(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	bus := NewBus(rdb, "agenda.events", nil)

	var a, b recorder
	c1 := newTestConsumer(t, rdb, "search-service", "s1", a.handle, nil)
	c2 := newTestConsumer(t, rdb, "search-service", "s2", b.handle, nil)

	c1.Start(ctx)
	c2.Start(ctx)
	defer stopConsumer(t, c1)
	defer stopConsumer(t, c2)

	const total = 10
	for i := 1; i <= total; i++ {
		require.NoError(t, bus.Publish(ctx, domain.DetailDeleted{ID: int64(i)}))
	}

	assert.Eventually(t, func() bool {
		return len(a.seen())+len(b.seen()) == total
	}, 5*time.Second, 20*time.Millisecond)

	// Exactly-one-of-them delivery: no entry handled twice across the group.
	combined := map[string]int{}
	for _, body := range append(a.seen(), b.seen()...) {
		combined[body]++
	}
	for body, count := range combined {
		assert.Equal(t, 1, count, "entry delivered to more than one group member: %s", body)
	}
}

func TestProcessAcksHandlerFailure(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	bus := NewBus(rdb, "agenda.events", nil)

	rec := recorder{err: assert.AnError}
	c := newTestConsumer(t, rdb, "details-service", "d1", rec.handle, nil)
	c.Start(ctx)
	defer stopConsumer(t, c)

	require.NoError(t, bus.Publish(ctx, domain.AppointmentCreated{ID: 1, Description: "x"}))
	require.NoError(t, bus.Publish(ctx, domain.AppointmentCreated{ID: 2, Description: "y"}))

	// Both entries are handled; the first failure does not poison the loop,
	// and nothing stays pending afterwards.
	assert.Eventually(t, func() bool {
		if len(rec.seen()) != 2 {
			return false
		}
		pending, err := rdb.XPending(ctx, "agenda.events", "details-service").Result()
		return err == nil && pending.Count == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestProcessDropsEntryWithoutBody(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	var rec recorder
	c := newTestConsumer(t, rdb, "details-service", "d1", rec.handle, nil)
	c.Start(ctx)
	defer stopConsumer(t, c)

	require.NoError(t, rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: "agenda.events",
		Values: map[string]interface{}{"junk": "1"},
	}).Err())

	assert.Eventually(t, func() bool {
		pending, err := rdb.XPending(ctx, "agenda.events", "details-service").Result()
		return err == nil && pending.Count == 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Empty(t, rec.seen())
}

func TestProcessSkipsEntriesInLedger(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	bus := NewBus(rdb, "agenda.events", nil)

	ledger := newMemLedger()
	var rec recorder
	c := newTestConsumer(t, rdb, "search-service", "s1", rec.handle, ledger)

	require.NoError(t, bus.Publish(ctx, domain.DetailDeleted{ID: 3}))

	entries, err := rdb.XRange(ctx, "agenda.events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, ledger.Mark(entries[0].ID))

	c.Start(ctx)
	defer stopConsumer(t, c)

	assert.Eventually(t, func() bool {
		pending, err := rdb.XPending(ctx, "agenda.events", "search-service").Result()
		return err == nil && pending.Count == 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Empty(t, rec.seen(), "already-applied entry must not reach the handler")
}

func TestProcessMarksLedgerOnSuccess(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	bus := NewBus(rdb, "agenda.events", nil)

	ledger := newMemLedger()
	var rec recorder
	c := newTestConsumer(t, rdb, "search-service", "s1", rec.handle, ledger)
	c.Start(ctx)
	defer stopConsumer(t, c)

	require.NoError(t, bus.Publish(ctx, domain.DetailDeleted{ID: 3}))

	assert.Eventually(t, func() bool { return len(rec.seen()) == 1 }, 5*time.Second, 20*time.Millisecond)

	entries, err := rdb.XRange(ctx, "agenda.events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	seen, err := ledger.Seen(entries[0].ID)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestReclaimerSweepAdoptsPendingEntries(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	bus := NewBus(rdb, "agenda.events", nil)

	var dead, alive recorder
	// A consumer reads an entry and dies before acknowledging.
	c1 := newTestConsumer(t, rdb, "search-service", "dead", dead.handle, nil)
	require.NoError(t, bus.Publish(ctx, domain.AppointmentDeleted{ID: 9}))

	_, err := rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    "search-service",
		Consumer: "dead",
		Streams:  []string{"agenda.events", ">"},
		Count:    1,
		Block:    -1,
	}).Result()
	require.NoError(t, err)
	_ = c1 // never started, never acks

	pending, err := rdb.XPending(ctx, "agenda.events", "search-service").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, pending.Count)

	c2 := newTestConsumer(t, rdb, "search-service", "alive", alive.handle, nil)
	r := &Reclaimer{consumer: c2, minIdle: time.Millisecond, logger: zap.NewNop()}

	time.Sleep(10 * time.Millisecond)
	r.Sweep(ctx)

	assert.Len(t, alive.seen(), 1)

	pending, err = rdb.XPending(ctx, "agenda.events", "search-service").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 0, pending.Count)
}
