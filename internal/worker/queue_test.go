package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
)

func newTestRedis(t *testing.T) (redis.UniversalClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	client, _ := newTestRedis(t)
	q := NewQueue(client, "test")
	ctx := context.Background()

	n := entity.NewOTPNotification("admin@example.com", "123456")
	id, err := q.Enqueue(ctx, n)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	length, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	task, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, id, task.ID)
	assert.Equal(t, 0, task.Attempt)
	assert.Equal(t, n, task.Notification)
}

func TestQueue_FIFOOrder(t *testing.T) {
	client, _ := newTestRedis(t)
	q := NewQueue(client, "test")
	ctx := context.Background()

	first, err := q.Enqueue(ctx, entity.NewOTPNotification("a@example.com", "111111"))
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, entity.NewOTPNotification("b@example.com", "222222"))
	require.NoError(t, err)

	t1, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	t2, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first, t1.ID)
	assert.Equal(t, second, t2.ID)
}

func TestQueue_EnqueueRejectsInvalidNotification(t *testing.T) {
	client, _ := newTestRedis(t)
	q := NewQueue(client, "test")

	_, err := q.Enqueue(context.Background(), entity.Notification{Kind: "sms"})
	assert.ErrorIs(t, err, entity.ErrInvalidNotification)
}

func TestQueue_EnqueueFailsWhenBrokerDown(t *testing.T) {
	client, mr := newTestRedis(t)
	q := NewQueue(client, "test")
	mr.Close()

	_, err := q.Enqueue(context.Background(), entity.NewOTPNotification("a@example.com", "111111"))
	assert.Error(t, err)
	assert.Error(t, q.Ping(context.Background()))
}

func TestQueue_ScheduleRetryAndPromoteDue(t *testing.T) {
	client, _ := newTestRedis(t)
	q := NewQueue(client, "test")
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	task := entity.Task{ID: "t-1", Notification: entity.NewOTPNotification("a@example.com", "111111"), Attempt: 1}
	require.NoError(t, q.ScheduleRetry(ctx, task, now.Add(time.Minute)))

	// Срок еще не наступил
	promoted, err := q.PromoteDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, promoted)

	promoted, err = q.PromoteDue(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	delayed, err := q.DelayedLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), delayed)

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t-1", got.ID)
	assert.Equal(t, 1, got.Attempt)
}
