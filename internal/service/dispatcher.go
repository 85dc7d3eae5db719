package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
)

// Availability сообщает, доступна ли асинхронная доставка
type Availability interface {
	IsAvailable(ctx context.Context) bool
}

// Enqueuer передает уведомление воркерам; ID задачи нужен только для логов
type Enqueuer interface {
	Enqueue(ctx context.Context, n entity.Notification) (string, error)
}

// NotificationSender: синхронная отправка уведомления в текущем запросе
type NotificationSender interface {
	Send(ctx context.Context, n entity.Notification) error
}

// Deliverer: то, что нужно логину и контактной форме от доставки
type Deliverer interface {
	Deliver(ctx context.Context, n entity.Notification) bool
}

type availabilityInvalidator interface {
	Invalidate()
}

// Dispatcher выбирает путь доставки: очередь, если воркеры доступны, иначе
// синхронная отправка. Ошибка постановки в очередь не возвращается вызывающему,
// а приводит к одной синхронной попытке.
type Dispatcher struct {
	availability Availability
	enqueuer     Enqueuer
	sender       NotificationSender
	syncTimeout  time.Duration
}

// NewDispatcher создает диспетчер. availability и enqueuer могут быть nil,
// тогда доставка всегда синхронная.
func NewDispatcher(availability Availability, enqueuer Enqueuer, sender NotificationSender, syncTimeout time.Duration) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("notification sender is required")
	}
	if syncTimeout <= 0 {
		syncTimeout = 30 * time.Second
	}
	return &Dispatcher{
		availability: availability,
		enqueuer:     enqueuer,
		sender:       sender,
		syncTimeout:  syncTimeout,
	}, nil
}

// Deliver возвращает true, если какой-либо путь сообщил об успехе.
// Для очереди успех означает передачу задачи, а не фактическую отправку письма.
func (d *Dispatcher) Deliver(ctx context.Context, n entity.Notification) bool {
	if d.asyncAvailable(ctx) {
		taskID, err := d.enqueuer.Enqueue(ctx, n)
		if err == nil {
			log.Printf("[Dispatcher] path=async task_id=%s kind=%s to=%s", taskID, n.Kind, n.LogRecipient())
			return true
		}
		log.Printf("[Dispatcher] path=async status=enqueue_failed kind=%s err=%v fallback=sync", n.Kind, err)
		if inv, ok := d.availability.(availabilityInvalidator); ok {
			inv.Invalidate()
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.syncTimeout)
	defer cancel()
	if err := d.sender.Send(sendCtx, n); err != nil {
		log.Printf("[Dispatcher] path=failed kind=%s to=%s err=%v: %v", n.Kind, n.LogRecipient(), ErrDeliveryFailed, err)
		return false
	}
	log.Printf("[Dispatcher] path=sync status=sent kind=%s to=%s", n.Kind, n.LogRecipient())
	return true
}

func (d *Dispatcher) asyncAvailable(ctx context.Context) bool {
	if d.availability == nil || d.enqueuer == nil {
		return false
	}
	return d.availability.IsAvailable(ctx)
}
