package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourusername/portfolio-api/internal/config"
	"github.com/yourusername/portfolio-api/internal/service"
	"github.com/yourusername/portfolio-api/internal/worker"
	"github.com/yourusername/portfolio-api/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Без брокера воркеру нечего делать
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	mailer, err := service.NewMailer(cfg.Email.Enabled, cfg.Email.APIKey, cfg.Email.From, cfg.Email.SiteOwner)
	if err != nil {
		log.Printf("Failed to create mailer: %v", err)
		os.Exit(1)
	}

	queue := worker.NewQueue(redisClient, cfg.Delivery.QueuePrefix)
	w, err := worker.NewWorker(queue, mailer, worker.Config{
		MaxAttempts:  cfg.Delivery.MaxAttempts,
		RetryBackoff: cfg.Delivery.RetryBackoff,
	})
	if err != nil {
		log.Printf("Failed to create worker: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Отвечаем на ping из API, чтобы он знал о живом воркере
	responder := worker.NewResponder(redisClient, worker.ControlChannel(cfg.Delivery.QueuePrefix), cfg.Delivery.WorkerID)
	if err := responder.Start(ctx); err != nil {
		log.Printf("Failed to subscribe to control channel: %v", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	log.Printf("Worker %s started (max_attempts=%d, retry_backoff=%s)",
		responder.WorkerID(), cfg.Delivery.MaxAttempts, cfg.Delivery.RetryBackoff)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down worker...")

	// Прекращаем отвечать на ping первым, чтобы API перестал отдавать задачи
	cancel()

	select {
	case <-done:
	case <-time.After(35 * time.Second):
		log.Println("Worker forced to shutdown")
	}
	select {
	case <-responder.Done():
	case <-time.After(5 * time.Second):
	}

	log.Println("Worker exited properly")
}
