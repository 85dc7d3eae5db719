// Package worker реализует асинхронную доставку уведомлений: очередь задач в Redis,
// воркер с повторными попытками и control-канал для проверки живости воркеров.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
)

// Queue: очередь уведомлений в Redis.
// Новые задачи кладутся LPUSH в список и забираются BRPOP (FIFO).
// Отложенные повторы лежат в sorted set со временем запуска в качестве score.
type Queue struct {
	client     redis.UniversalClient
	queueKey   string
	delayedKey string
	now        func() time.Time
}

// NewQueue создает очередь с ключами <prefix>:queue:emails и <prefix>:queue:emails:delayed
func NewQueue(client redis.UniversalClient, prefix string) *Queue {
	if prefix == "" {
		prefix = "portfolio"
	}
	return &Queue{
		client:     client,
		queueKey:   prefix + ":queue:emails",
		delayedKey: prefix + ":queue:emails:delayed",
		now:        time.Now,
	}
}

// Ping проверяет живость брокера
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Enqueue ставит уведомление в очередь и возвращает ID задачи.
// Возврат без ошибки означает только передачу брокеру, не отправку.
func (q *Queue) Enqueue(ctx context.Context, n entity.Notification) (string, error) {
	if err := n.Validate(); err != nil {
		return "", err
	}
	task := entity.Task{
		ID:           uuid.NewString(),
		Notification: n,
		EnqueuedAt:   q.now(),
	}
	if err := q.push(ctx, task); err != nil {
		return "", err
	}
	return task.ID, nil
}

func (q *Queue) push(ctx context.Context, task entity.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task %s: %w", task.ID, err)
	}
	if err := q.client.LPush(ctx, q.queueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", task.ID, err)
	}
	return nil
}

// Dequeue ждет задачу до wait. Возвращает nil, nil если очередь пуста.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (*entity.Task, error) {
	res, err := q.client.BRPop(ctx, wait, q.queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// BRPOP возвращает [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply: %v", res)
	}
	var task entity.Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	return &task, nil
}

// ScheduleRetry откладывает задачу до момента at
func (q *Queue) ScheduleRetry(ctx context.Context, task entity.Task, at time.Time) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task %s: %w", task.ID, err)
	}
	return q.client.ZAdd(ctx, q.delayedKey, &redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: data,
	}).Err()
}

// PromoteDue переносит наступившие отложенные задачи обратно в очередь.
// ZREM гарантирует, что при нескольких воркерах задачу перенесет только один.
func (q *Queue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, q.delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, member := range due {
		removed, err := q.client.ZRem(ctx, q.delayedKey, member).Result()
		if err != nil {
			return promoted, err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.queueKey, member).Err(); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

// Len возвращает количество задач, ожидающих обработки (без отложенных)
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueKey).Result()
}

// DelayedLen возвращает количество отложенных повторов
func (q *Queue) DelayedLen(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.delayedKey).Result()
}
