package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	OAuth      OAuthConfig      `mapstructure:"oauth"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	Mail       MailConfig       `mapstructure:"mail"`
	Firebase   FirebaseConfig   `mapstructure:"firebase"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Env          string        `mapstructure:"env"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RateLimit    int           `mapstructure:"rate_limit"` // requests per minute per client IP
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql or sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig is optional; with an empty Addr counters stay in process memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig is optional; with no brokers outbox events are not published.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type JWTConfig struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessExpiry  time.Duration `mapstructure:"access_expiry"`
	RefreshExpiry time.Duration `mapstructure:"refresh_expiry"`
	Issuer        string        `mapstructure:"issuer"`
}

type OAuthConfig struct {
	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	GoogleRedirectURL  string `mapstructure:"google_redirect_url"`
	FrontendURL        string `mapstructure:"frontend_url"`
}

type CloudinaryConfig struct {
	CloudName string `mapstructure:"cloud_name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

type PaymentConfig struct {
	Provider      string        `mapstructure:"provider"` // stub or checkout
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	PaymentExpiry time.Duration `mapstructure:"payment_expiry"`
	SuccessURL    string        `mapstructure:"success_url"`
	CancelURL     string        `mapstructure:"cancel_url"`
}

type MailConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	From     string `mapstructure:"from"`
}

type FirebaseConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

type LedgerConfig struct {
	WelcomeCrushes  int `mapstructure:"welcome_crushes"`
	ReferralCrushes int `mapstructure:"referral_crushes"`
}

type WorkerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxRetries   int           `mapstructure:"max_retries"`
	BaseBackoff  time.Duration `mapstructure:"base_backoff"`
	MaxBackoff   time.Duration `mapstructure:"max_backoff"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8099")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 300)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "fitcrush:fitcrush@tcp(localhost:3306)/fitcrush?charset=utf8mb4&parseTime=True&loc=UTC")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "fitcrush.events")

	v.SetDefault("jwt.access_secret", "change-me-in-production")
	v.SetDefault("jwt.refresh_secret", "change-me-refresh")
	v.SetDefault("jwt.access_expiry", 15*time.Minute)
	v.SetDefault("jwt.refresh_expiry", 168*time.Hour)
	v.SetDefault("jwt.issuer", "fitcrush")

	v.SetDefault("oauth.google_client_id", "")
	v.SetDefault("oauth.google_client_secret", "")
	v.SetDefault("oauth.google_redirect_url", "http://localhost:8099/api/v1/auth/google/callback")
	v.SetDefault("oauth.frontend_url", "http://localhost:3000")

	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.api_key", "")
	v.SetDefault("cloudinary.api_secret", "")

	v.SetDefault("payment.provider", "stub")
	v.SetDefault("payment.base_url", "")
	v.SetDefault("payment.api_key", "")
	v.SetDefault("payment.webhook_secret", "")
	v.SetDefault("payment.payment_expiry", 30*time.Minute)
	v.SetDefault("payment.success_url", "http://localhost:3000/billing/success")
	v.SetDefault("payment.cancel_url", "http://localhost:3000/billing/cancel")

	v.SetDefault("mail.endpoint", "")
	v.SetDefault("mail.api_key", "")
	v.SetDefault("mail.from", "FitCrush <hello@fitcrush.app>")

	v.SetDefault("firebase.credentials_file", "")

	v.SetDefault("ledger.welcome_crushes", 5)
	v.SetDefault("ledger.referral_crushes", 3)

	v.SetDefault("worker.poll_interval", time.Second)
	v.SetDefault("worker.batch_size", 50)
	v.SetDefault("worker.max_retries", 5)
	v.SetDefault("worker.base_backoff", 2*time.Second)
	v.SetDefault("worker.max_backoff", 5*time.Minute)

	v.SetDefault("log.level", "info")
}

// Load reads an optional .env file, then an optional config file, then
// FITCRUSH_* environment variables (FITCRUSH_DATABASE_DSN, ...).
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("FITCRUSH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("database.driver must be mysql or sqlite, got %q", c.Database.Driver)
	}
	if c.Server.Env == "production" {
		if c.JWT.AccessSecret == "change-me-in-production" || c.JWT.RefreshSecret == "change-me-refresh" {
			return errors.New("jwt secrets must be set in production")
		}
		if c.Payment.WebhookSecret == "" {
			return errors.New("payment.webhook_secret must be set in production")
		}
	}
	if c.Worker.MaxRetries <= 0 {
		return errors.New("worker.max_retries must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
