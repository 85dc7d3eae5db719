package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
)

const (
	defaultPollWait    = 2 * time.Second
	defaultSendTimeout = 30 * time.Second
)

// Sender отправляет уведомление получателю (почтовый транспорт)
type Sender interface {
	Send(ctx context.Context, n entity.Notification) error
}

// Config задает политику повторов воркера
type Config struct {
	// MaxAttempts: общее число попыток отправки одной задачи
	MaxAttempts int
	// RetryBackoff: фиксированная пауза перед следующей попыткой
	RetryBackoff time.Duration
	// PollWait: сколько ждать задачу в BRPOP за один цикл
	PollWait time.Duration
	// SendTimeout: таймаут одной попытки отправки
	SendTimeout time.Duration
}

// Worker забирает задачи из очереди и отправляет их через Sender
type Worker struct {
	queue  *Queue
	sender Sender
	cfg    Config
	now    func() time.Time
}

// NewWorker создает воркер
func NewWorker(queue *Queue, sender Sender, cfg Config) (*Worker, error) {
	if queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 60 * time.Second
	}
	if cfg.PollWait <= 0 {
		cfg.PollWait = defaultPollWait
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	return &Worker{queue: queue, sender: sender, cfg: cfg, now: time.Now}, nil
}

// Run обрабатывает задачи, пока не будет отменен ctx
func (w *Worker) Run(ctx context.Context) {
	log.Printf("[Worker] Запуск: max_attempts=%d backoff=%s", w.cfg.MaxAttempts, w.cfg.RetryBackoff)
	for {
		if ctx.Err() != nil {
			log.Println("[Worker] Контекст отменен, завершение обработки очереди")
			return
		}
		if _, err := w.ProcessNext(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[Worker] Ошибка чтения очереди: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessNext переносит наступившие повторы и обрабатывает одну задачу.
// Возвращает false, если за PollWait задач не было.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	if n, err := w.queue.PromoteDue(ctx, w.now()); err != nil {
		log.Printf("[Worker] Не удалось перенести отложенные задачи: %v", err)
	} else if n > 0 {
		log.Printf("[Worker] Возвращено в очередь отложенных задач: %d", n)
	}

	task, err := w.queue.Dequeue(ctx, w.cfg.PollWait)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	w.handle(ctx, *task)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, task entity.Task) {
	// Задача уже снята с очереди: остановка воркера не должна ее потерять
	ctx = context.WithoutCancel(ctx)
	attempt := task.Attempt + 1

	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.SendTimeout)
	err := w.sender.Send(sendCtx, task.Notification)
	cancel()

	if err == nil {
		log.Printf("[Worker] task_id=%s kind=%s to=%s attempt=%d/%d status=sent",
			task.ID, task.Notification.Kind, task.Notification.LogRecipient(), attempt, w.cfg.MaxAttempts)
		return
	}

	log.Printf("[Worker] task_id=%s kind=%s attempt=%d/%d status=failed err=%v",
		task.ID, task.Notification.Kind, attempt, w.cfg.MaxAttempts, err)

	if attempt >= w.cfg.MaxAttempts {
		log.Printf("[Worker] task_id=%s status=dropped reason=max_retries_exceeded to=%s",
			task.ID, task.Notification.LogRecipient())
		return
	}

	task.Attempt = attempt
	retryAt := w.now().Add(w.cfg.RetryBackoff)
	if err := w.queue.ScheduleRetry(ctx, task, retryAt); err != nil {
		log.Printf("[Worker] task_id=%s status=dropped reason=retry_schedule_failed err=%v", task.ID, err)
		return
	}
	log.Printf("[Worker] task_id=%s status=retry_scheduled retry_at=%s", task.ID, retryAt.Format(time.RFC3339))
}
