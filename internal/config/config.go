package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Email    EmailConfig
	Auth     AuthConfig
	Delivery DeliveryConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
	// AllowOrigins: фронтенды, которым разрешено отправлять контактную форму
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis (брокер очереди уведомлений)
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Адрес для режима 'single'. По умолчанию 127.0.0.1:6379.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	// DB: логический номер базы Redis (namespace брокера). По умолчанию 0.
	DB int `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: Максимальное количество попыток переподключения (-1 - бесконечно). По умолчанию 0 (без ретраев).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff: Минимальный интервал между попытками (в миллисекундах).
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`

	// MaxRetryBackoff: Максимальный интервал между попытками (в миллисекундах).
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// EmailConfig содержит настройки отправки писем через Resend
type EmailConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	From    string `mapstructure:"from"`
	// SiteOwner: адрес, на который приходят уведомления контактной формы
	SiteOwner string `mapstructure:"site_owner"`
}

// AuthConfig содержит настройки входа в админ-панель
type AuthConfig struct {
	// OTPCooldown: минимальный интервал между повторными отправками кода
	OTPCooldown time.Duration `mapstructure:"otp_cooldown"`
	// SessionTTL: время жизни серверной сессии входа
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	// SessionStore: где хранить сессии входа ("postgres" или "redis"). По умолчанию "postgres",
	// чтобы вход работал и при недоступном брокере.
	SessionStore string `mapstructure:"session_store"`
	// SessionKeyPrefix: префикс ключей сессий в Redis
	SessionKeyPrefix string `mapstructure:"session_key_prefix"`
}

// DeliveryConfig содержит настройки доставки уведомлений (async очередь + sync fallback)
type DeliveryConfig struct {
	// CacheDuration: сколько держать вердикт о доступности воркеров
	CacheDuration time.Duration `mapstructure:"cache_duration"`
	// BrokerTimeout: таймаут ping брокера
	BrokerTimeout time.Duration `mapstructure:"broker_timeout"`
	// WorkerTimeout: таймаут опроса воркеров через control-канал
	WorkerTimeout time.Duration `mapstructure:"worker_timeout"`
	// MaxAttempts: количество попыток отправки на стороне воркера
	MaxAttempts int `mapstructure:"max_attempts"`
	// RetryBackoff: фиксированная задержка между попытками воркера
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	// QueuePrefix: префикс ключей очереди и каналов управления
	QueuePrefix string `mapstructure:"queue_prefix"`
	// WorkerID: идентификатор воркера (генерируется, если пуст)
	WorkerID string `mapstructure:"worker_id"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.readtimeout", 15)
	vip.SetDefault("server.writetimeout", 15)

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "file://migrations")

	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.addr", "127.0.0.1:6379")
	vip.SetDefault("redis.db", 0)

	vip.SetDefault("auth.otp_cooldown", 61*time.Second)
	vip.SetDefault("auth.session_ttl", 2*time.Hour)
	vip.SetDefault("auth.session_store", "postgres")
	vip.SetDefault("auth.session_key_prefix", "portfolio:session")

	vip.SetDefault("delivery.cache_duration", 30*time.Second)
	vip.SetDefault("delivery.broker_timeout", 2*time.Second)
	vip.SetDefault("delivery.worker_timeout", 1*time.Second)
	vip.SetDefault("delivery.max_attempts", 3)
	vip.SetDefault("delivery.retry_backoff", 60*time.Second)
	vip.SetDefault("delivery.queue_prefix", "portfolio")
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию
	setDefaults(vip)

	// 2. Привязываем переменные окружения ЯВНО
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("email.enabled", "EMAIL_ENABLED")
	vip.BindEnv("email.api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")
	vip.BindEnv("email.site_owner", "EMAIL_SITE_OWNER")

	vip.BindEnv("auth.otp_cooldown", "AUTH_OTP_COOLDOWN")
	vip.BindEnv("auth.session_ttl", "AUTH_SESSION_TTL")
	vip.BindEnv("auth.session_store", "AUTH_SESSION_STORE")

	vip.BindEnv("delivery.cache_duration", "DELIVERY_CACHE_DURATION")
	vip.BindEnv("delivery.broker_timeout", "DELIVERY_BROKER_TIMEOUT")
	vip.BindEnv("delivery.worker_timeout", "DELIVERY_WORKER_TIMEOUT")
	vip.BindEnv("delivery.max_attempts", "DELIVERY_MAX_ATTEMPTS")
	vip.BindEnv("delivery.retry_backoff", "DELIVERY_RETRY_BACKOFF")
	vip.BindEnv("delivery.queue_prefix", "DELIVERY_QUEUE_PREFIX")
	vip.BindEnv("delivery.worker_id", "WORKER_ID")

	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.allow_origins", "SERVER_ALLOW_ORIGINS")

	// 3. Пытаемся прочитать файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s (db=%d, mode=%s)", cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Mode)
		log.Printf("Email Enabled: %t, API Key Set: %t", cfg.Email.Enabled, cfg.Email.APIKey != "")
		log.Printf("OTP Cooldown: %s", cfg.Auth.OTPCooldown)
		log.Printf("Delivery Cache: %s, Max Attempts: %d, Backoff: %s",
			cfg.Delivery.CacheDuration, cfg.Delivery.MaxAttempts, cfg.Delivery.RetryBackoff)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.Email.Enabled {
		if c.Email.APIKey == "" {
			return fmt.Errorf("email is enabled but RESEND_API_KEY is not set")
		}
		if c.Email.From == "" || c.Email.SiteOwner == "" {
			return fmt.Errorf("email is enabled but from/site_owner are not set (check EMAIL_FROM, EMAIL_SITE_OWNER env vars)")
		}
	}
	if c.Auth.OTPCooldown <= 0 {
		return fmt.Errorf("auth.otp_cooldown must be positive")
	}
	if c.Auth.SessionStore != "postgres" && c.Auth.SessionStore != "redis" {
		return fmt.Errorf("auth.session_store must be 'postgres' or 'redis', got %q", c.Auth.SessionStore)
	}
	if c.Delivery.MaxAttempts <= 0 {
		return fmt.Errorf("delivery.max_attempts must be positive")
	}
	return nil
}
