package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel              string        `env:"LOG_LEVEL"`
	ChatSessionExpiration time.Duration `env:"CHAT_SESSION_EXPIRATION" envDefault:"24h"`
	HTTP                  HTTP
	Telegram              Telegram
	Redis                 Redis
	API                   API
	Cache                 Cache
	Jobs                  Jobs
	GoogleDrive           GoogleDrive
}

type HTTP struct {
	Port            int           `env:"HTTP_PORT"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`
}

type Telegram struct {
	Token      string        `env:"TELEGRAM_TOKEN"`
	UpdTimeout time.Duration `env:"TELEGRAM_UPD_TIMEOUT"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type API struct {
	Debug       bool          `env:"API_DEBUG"`
	Timeout     time.Duration `env:"API_TIMEOUT"`
	StockrApi   StockrApi
	IdentityApi IdentityApi
}

type StockrApi struct {
	Url string `env:"STOCKR_API_URL"`
}

type IdentityApi struct {
	Url          string `env:"IDENTITY_API_URL"`
	ApiKey       string `env:"IDENTITY_API_KEY"`
	RefreshToken string `env:"IDENTITY_REFRESH_TOKEN"`
}

type Cache struct {
	QuotesExpiration time.Duration `env:"CACHE_QUOTES_EXPIRATION"`
}

type Jobs struct {
	WarmQuotesCacheInterval time.Duration `env:"WARM_QUOTES_CACHE_JOB_INTERVAL"`
	DriveCleanupCrontab     string        `env:"DRIVE_CLEANUP_CRONTAB" envDefault:"0 3 * * *"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE"`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"168h"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
