package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/yourusername/portfolio-api/internal/config"
	"github.com/yourusername/portfolio-api/internal/domain/repository"
	"github.com/yourusername/portfolio-api/internal/handler"
	"github.com/yourusername/portfolio-api/internal/middleware"
	pgRepo "github.com/yourusername/portfolio-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/portfolio-api/internal/repository/redis"
	"github.com/yourusername/portfolio-api/internal/service"
	"github.com/yourusername/portfolio-api/internal/worker"
	"github.com/yourusername/portfolio-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
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

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Redis: брокер очереди уведомлений. Недоступный брокер не мешает старту:
	// уведомления уйдут синхронно.
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		if redisClient == nil {
			log.Printf("Invalid Redis configuration: %v", err)
			os.Exit(1)
		}
		log.Printf("Warning: Redis is not reachable, notifications will be sent synchronously: %v", err)
	} else {
		log.Println("Successfully connected to Redis")
	}
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	contactRepo := pgRepo.NewContactRepo(db)
	sessionRepo, err := newSessionRepo(ctx, cfg, db, redisClient)
	if err != nil {
		log.Printf("Failed to create login session repository: %v", err)
		os.Exit(1)
	}

	// Доставка уведомлений: очередь + синхронный fallback
	mailer, err := service.NewMailer(cfg.Email.Enabled, cfg.Email.APIKey, cfg.Email.From, cfg.Email.SiteOwner)
	if err != nil {
		log.Printf("Failed to create mailer: %v", err)
		os.Exit(1)
	}

	queue := worker.NewQueue(redisClient, cfg.Delivery.QueuePrefix)
	inspector := worker.NewInspector(redisClient, worker.ControlChannel(cfg.Delivery.QueuePrefix))

	prober, err := service.NewAvailabilityProber(queue, inspector, service.AvailabilityConfig{
		CacheDuration: cfg.Delivery.CacheDuration,
		BrokerTimeout: cfg.Delivery.BrokerTimeout,
		WorkerTimeout: cfg.Delivery.WorkerTimeout,
	})
	if err != nil {
		log.Printf("Failed to create availability prober: %v", err)
		os.Exit(1)
	}

	dispatcher, err := service.NewDispatcher(prober, queue, mailer, 30*time.Second)
	if err != nil {
		log.Printf("Failed to create dispatcher: %v", err)
		os.Exit(1)
	}

	// Инициализируем сервисы
	loginService, err := service.NewLoginService(userRepo, sessionRepo, service.NewOTPIssuer(), dispatcher, cfg.Auth.OTPCooldown)
	if err != nil {
		log.Printf("Failed to create login service: %v", err)
		os.Exit(1)
	}
	contactService, err := service.NewContactService(contactRepo, dispatcher)
	if err != nil {
		log.Printf("Failed to create contact service: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode

	// Инициализируем обработчики
	loginHandler := handler.NewAdminLoginHandler(loginService, isProduction)
	contactHandler := handler.NewContactHandler(contactService)
	adminContactHandler := handler.NewAdminContactHandler(contactService)
	healthHandler := handler.NewHealthHandler(prober)

	// Инициализируем роутер Gin
	router := gin.Default()

	// Production: не доверять прокси-заголовкам. Development: доверяем localhost
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// CORS нужен фронтенду сайта для контактной формы
	allowOrigins := cfg.Server.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthHandler.Health)

	sessionMiddleware := middleware.SessionCookie(isProduction)

	// Вход в админ-панель
	adminAuth := router.Group("/admin", sessionMiddleware)
	{
		adminAuth.GET("/login", loginHandler.GetLogin)
		adminAuth.POST("/login", loginHandler.PostLogin)
		adminAuth.POST("/reset", loginHandler.Reset)
		adminAuth.POST("/logout", loginHandler.Logout)
	}

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		api.POST("/contact", contactHandler.Submit)

		admin := api.Group("/admin", sessionMiddleware, middleware.RequireAdmin(loginService))
		{
			admin.GET("/contacts", adminContactHandler.List)
			admin.GET("/contacts/export", adminContactHandler.Export)
		}
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Останавливаем фоновые горутины
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}

// newSessionRepo выбирает хранилище сессий входа по конфигурации.
// Для PostgreSQL запускается периодическая очистка истекших сессий.
func newSessionRepo(ctx context.Context, cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) (repository.LoginSessionRepository, error) {
	if cfg.Auth.SessionStore == "redis" {
		repo, err := redisRepo.NewLoginSessionRepo(redisClient, cfg.Auth.SessionKeyPrefix, cfg.Auth.SessionTTL)
		if err != nil {
			return nil, err
		}
		log.Println("Login sessions are stored in Redis")
		return repo, nil
	}

	repo, err := pgRepo.NewLoginSessionRepo(db, cfg.Auth.SessionTTL)
	if err != nil {
		return nil, err
	}
	log.Println("Login sessions are stored in PostgreSQL")

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := repo.DeleteExpired(ctx); err != nil {
					log.Printf("[SessionCleanup] Ошибка удаления истекших сессий: %v", err)
				} else if n > 0 {
					log.Printf("[SessionCleanup] Удалено истекших сессий: %d", n)
				}
			}
		}
	}()
	return repo, nil
}
