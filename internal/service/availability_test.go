package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	calls atomic.Int32
	err   error
}

func (b *fakeBroker) Ping(ctx context.Context) error {
	b.calls.Add(1)
	return b.err
}

type fakeInspector struct {
	mu      sync.Mutex
	calls   int
	replies map[string]string
	err     error
}

func (i *fakeInspector) PingWorkers(ctx context.Context, timeout time.Duration) (map[string]string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
	return i.replies, i.err
}

func (i *fakeInspector) set(replies map[string]string, err error) {
	i.mu.Lock()
	i.replies, i.err = replies, err
	i.mu.Unlock()
}

func (i *fakeInspector) callCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.calls
}

func newTestProber(t *testing.T, broker *fakeBroker, inspector *fakeInspector) (*AvailabilityProber, *fakeClock) {
	t.Helper()
	p, err := NewAvailabilityProber(broker, inspector, AvailabilityConfig{CacheDuration: 30 * time.Second})
	require.NoError(t, err)
	clock := newFakeClock()
	p.now = clock.Now
	return p, clock
}

func TestAvailabilityProber_AvailableWhenWorkersReply(t *testing.T) {
	broker := &fakeBroker{}
	inspector := &fakeInspector{replies: map[string]string{"w1": "pong"}}
	p, _ := newTestProber(t, broker, inspector)

	assert.True(t, p.IsAvailable(context.Background()))
}

func TestAvailabilityProber_BrokerDownSkipsWorkerPing(t *testing.T) {
	broker := &fakeBroker{err: errBoom}
	inspector := &fakeInspector{replies: map[string]string{"w1": "pong"}}
	p, _ := newTestProber(t, broker, inspector)

	assert.False(t, p.IsAvailable(context.Background()))
	assert.Equal(t, 0, inspector.callCount())
}

func TestAvailabilityProber_NoWorkers(t *testing.T) {
	inspector := &fakeInspector{replies: map[string]string{}}
	p, _ := newTestProber(t, &fakeBroker{}, inspector)

	assert.False(t, p.IsAvailable(context.Background()))

	inspector.set(nil, errBoom)
	p.Invalidate()
	assert.False(t, p.IsAvailable(context.Background()))
}

func TestAvailabilityProber_CachesVerdictWithinWindow(t *testing.T) {
	broker := &fakeBroker{}
	inspector := &fakeInspector{replies: map[string]string{"w1": "pong"}}
	p, clock := newTestProber(t, broker, inspector)
	ctx := context.Background()

	require.True(t, p.IsAvailable(ctx))

	// Воркеры пропали, но окно кеша не истекло
	inspector.set(map[string]string{}, nil)
	clock.Advance(29 * time.Second)
	assert.True(t, p.IsAvailable(ctx))
	assert.Equal(t, int32(1), broker.calls.Load())

	clock.Advance(1 * time.Second)
	assert.False(t, p.IsAvailable(ctx))
	assert.Equal(t, int32(2), broker.calls.Load())
}

func TestAvailabilityProber_CachesNegativeVerdict(t *testing.T) {
	broker := &fakeBroker{err: errBoom}
	p, clock := newTestProber(t, broker, &fakeInspector{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.False(t, p.IsAvailable(ctx))
		clock.Advance(5 * time.Second)
	}
	assert.Equal(t, int32(1), broker.calls.Load())
}

func TestAvailabilityProber_InvalidateForcesProbe(t *testing.T) {
	broker := &fakeBroker{}
	p, _ := newTestProber(t, broker, &fakeInspector{replies: map[string]string{"w1": "pong"}})
	ctx := context.Background()

	p.IsAvailable(ctx)
	p.IsAvailable(ctx)
	require.Equal(t, int32(1), broker.calls.Load())

	p.Invalidate()
	p.IsAvailable(ctx)
	assert.Equal(t, int32(2), broker.calls.Load())
}

func TestAvailabilityProber_ConcurrentCallersProbeOnce(t *testing.T) {
	broker := &fakeBroker{}
	p, _ := newTestProber(t, broker, &fakeInspector{replies: map[string]string{"w1": "pong"}})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, p.IsAvailable(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), broker.calls.Load())
}

func TestNewAvailabilityProber_RequiresDependencies(t *testing.T) {
	_, err := NewAvailabilityProber(nil, &fakeInspector{}, AvailabilityConfig{})
	assert.Error(t, err)

	_, err = NewAvailabilityProber(&fakeBroker{}, nil, AvailabilityConfig{})
	assert.Error(t, err)
}
