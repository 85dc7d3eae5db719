package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	controlTypePing = "ping"
	controlTypePong = "pong"
)

// ControlMessage: сообщение control-канала воркеров
type ControlMessage struct {
	Type     string `json:"type"`
	ReplyTo  string `json:"reply_to,omitempty"`
	WorkerID string `json:"worker_id,omitempty"`
	Status   string `json:"status,omitempty"`
}

// ControlChannel возвращает имя канала управления для префикса очереди
func ControlChannel(prefix string) string {
	if prefix == "" {
		prefix = "portfolio"
	}
	return prefix + ":control"
}

// Responder отвечает на ping в control-канале от имени одного воркера
type Responder struct {
	client   redis.UniversalClient
	channel  string
	workerID string
	done     chan struct{}
}

// NewResponder создает отвечающего; пустой workerID заменяется сгенерированным
func NewResponder(client redis.UniversalClient, channel, workerID string) *Responder {
	if workerID == "" {
		workerID = "worker-" + uuid.NewString()[:8]
	}
	return &Responder{
		client:   client,
		channel:  channel,
		workerID: workerID,
		done:     make(chan struct{}),
	}
}

// WorkerID возвращает идентификатор воркера
func (r *Responder) WorkerID() string {
	return r.workerID
}

// Start подписывается на канал (синхронно) и обслуживает ping в фоне до отмены ctx
func (r *Responder) Start(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to control channel %s: %w", r.channel, err)
	}
	log.Printf("[Responder] %s подписан на control-канал %s", r.workerID, r.channel)

	go func() {
		defer close(r.done)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Printf("[Responder] Control-канал %s закрыт", r.channel)
					return
				}
				r.handle(ctx, msg.Payload)
			}
		}
	}()
	return nil
}

// Done закрывается после остановки фоновой обработки
func (r *Responder) Done() <-chan struct{} {
	return r.done
}

func (r *Responder) handle(ctx context.Context, payload string) {
	var msg ControlMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		log.Printf("[Responder] Ошибка десериализации control-сообщения: %v", err)
		return
	}
	if msg.Type != controlTypePing || msg.ReplyTo == "" {
		return
	}

	reply, err := json.Marshal(ControlMessage{Type: controlTypePong, WorkerID: r.workerID, Status: "ok"})
	if err != nil {
		return
	}
	if err := r.client.Publish(ctx, msg.ReplyTo, reply).Err(); err != nil {
		log.Printf("[Responder] Ошибка ответа на ping в %s: %v", msg.ReplyTo, err)
	}
}

// Inspector опрашивает воркеров через control-канал
type Inspector struct {
	client  redis.UniversalClient
	channel string
}

// NewInspector создает опрашивающего для канала
func NewInspector(client redis.UniversalClient, channel string) *Inspector {
	return &Inspector{client: client, channel: channel}
}

// PingWorkers рассылает ping и собирает ответы до timeout.
// Возвращает worker_id -> status; пустой результат означает, что живых воркеров нет.
func (i *Inspector) PingWorkers(ctx context.Context, timeout time.Duration) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	replyTo := i.channel + ":reply:" + uuid.NewString()
	pubsub := i.client.Subscribe(ctx, replyTo)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to reply channel: %w", err)
	}

	ping, err := json.Marshal(ControlMessage{Type: controlTypePing, ReplyTo: replyTo})
	if err != nil {
		return nil, err
	}
	receivers, err := i.client.Publish(ctx, i.channel, ping).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to publish ping: %w", err)
	}

	replies := make(map[string]string)
	if receivers == 0 {
		return replies, nil
	}

	msgs := pubsub.Channel()
	for int64(len(replies)) < receivers {
		select {
		case <-ctx.Done():
			return replies, nil
		case msg, ok := <-msgs:
			if !ok {
				return replies, nil
			}
			var reply ControlMessage
			if err := json.Unmarshal([]byte(msg.Payload), &reply); err != nil || reply.Type != controlTypePong {
				continue
			}
			replies[reply.WorkerID] = reply.Status
		}
	}
	return replies, nil
}
