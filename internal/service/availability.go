package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// BrokerPinger проверяет живость брокера очереди
type BrokerPinger interface {
	Ping(ctx context.Context) error
}

// WorkerInspector опрашивает воркеров; пустой результат: живых воркеров нет
type WorkerInspector interface {
	PingWorkers(ctx context.Context, timeout time.Duration) (map[string]string, error)
}

// AvailabilityConfig задает кеш и таймауты проверки
type AvailabilityConfig struct {
	CacheDuration time.Duration
	BrokerTimeout time.Duration
	WorkerTimeout time.Duration
}

// AvailabilityProber решает, можно ли сейчас отдавать уведомления в очередь.
// Вердикт кешируется на CacheDuration, поэтому брокер и воркеры опрашиваются
// не чаще одного раза за окно, сколько бы запросов ни пришло.
type AvailabilityProber struct {
	broker  BrokerPinger
	workers WorkerInspector
	cfg     AvailabilityConfig
	now     func() time.Time

	// mu защищает пару (available, checkedAt) и сериализует саму проверку
	mu        sync.Mutex
	available bool
	checkedAt time.Time
}

// NewAvailabilityProber создает проверяющего с пустым кешем (available=false)
func NewAvailabilityProber(broker BrokerPinger, workers WorkerInspector, cfg AvailabilityConfig) (*AvailabilityProber, error) {
	if broker == nil {
		return nil, fmt.Errorf("broker pinger is required")
	}
	if workers == nil {
		return nil, fmt.Errorf("worker inspector is required")
	}
	if cfg.CacheDuration <= 0 {
		cfg.CacheDuration = 30 * time.Second
	}
	if cfg.BrokerTimeout <= 0 {
		cfg.BrokerTimeout = 2 * time.Second
	}
	if cfg.WorkerTimeout <= 0 {
		cfg.WorkerTimeout = 1 * time.Second
	}
	return &AvailabilityProber{
		broker:  broker,
		workers: workers,
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

// IsAvailable возвращает закешированный вердикт или выполняет новую проверку.
// Ошибки проверки не возвращаются: они означают available=false.
func (p *AvailabilityProber) IsAvailable(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.checkedAt.IsZero() && p.now().Sub(p.checkedAt) < p.cfg.CacheDuration {
		return p.available
	}

	p.available = p.probe(ctx)
	p.checkedAt = p.now()
	return p.available
}

// Invalidate сбрасывает кеш; следующая IsAvailable выполнит проверку
func (p *AvailabilityProber) Invalidate() {
	p.mu.Lock()
	p.checkedAt = time.Time{}
	p.mu.Unlock()
}

func (p *AvailabilityProber) probe(ctx context.Context) bool {
	brokerCtx, cancel := context.WithTimeout(ctx, p.cfg.BrokerTimeout)
	err := p.broker.Ping(brokerCtx)
	cancel()
	if err != nil {
		// Без брокера опрос воркеров бессмысленен
		log.Printf("[AvailabilityProber] broker=down err=%v verdict=unavailable", err)
		return false
	}

	replies, err := p.workers.PingWorkers(ctx, p.cfg.WorkerTimeout)
	if err != nil {
		log.Printf("[AvailabilityProber] broker=up workers=error err=%v verdict=unavailable", err)
		return false
	}
	if len(replies) == 0 {
		log.Printf("[AvailabilityProber] broker=up workers=0 verdict=unavailable")
		return false
	}

	log.Printf("[AvailabilityProber] broker=up workers=%d verdict=available", len(replies))
	return true
}
