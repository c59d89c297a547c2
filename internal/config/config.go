package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"repairhub/internal/domain"
)

// Драйверы хранилища
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Config struct {
	Server      ServerConfig       `mapstructure:"server"`
	Database    DatabaseConfig     `mapstructure:"database"`
	Redis       RedisConfig        `mapstructure:"redis"`
	Log         LogConfig          `mapstructure:"log"`
	JWT         JWTConfig          `mapstructure:"jwt"`
	Store       StoreConfig        `mapstructure:"store"`
	Loyalty     LoyaltyConfig      `mapstructure:"loyalty"`
	ServiceArea ServiceAreaConfig  `mapstructure:"service_area"`
	Pricing     map[string]float64 `mapstructure:"pricing"`
	RateLimit   RateLimitConfig    `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	DSN             string        `mapstructure:"dsn"` // mysql
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// StoreConfig повторы на границе хранилища
type StoreConfig struct {
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
}

// LoyaltyConfig ставки начисления по типу события и каталог вознаграждений
type LoyaltyConfig struct {
	Rates   map[string]int64    `mapstructure:"rates"`
	Catalog []domain.RewardTier `mapstructure:"catalog"`
}

type ServiceAreaConfig struct {
	PostalCodes []string `mapstructure:"postal_codes"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Default рабочая конфигурация для in-memory запуска
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            9091,
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverMemory,
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Channel: "repairhub:case-events",
		},
		Log: LogConfig{Level: "info", Format: "json"},
		JWT: JWTConfig{Secret: "change-me", Issuer: "repairhub"},
		Store: StoreConfig{
			MaxRetries:        3,
			InitialBackoff:    50 * time.Millisecond,
			MaxBackoff:        2 * time.Second,
			BackoffMultiplier: 2,
		},
		Loyalty: LoyaltyConfig{
			Rates: map[string]int64{
				string(domain.EventRepair):   50,
				string(domain.EventDonation): 100,
				string(domain.EventOrder):    30,
				string(domain.EventReferral): 100,
				string(domain.EventReview):   20,
			},
			Catalog: []domain.RewardTier{
				{Label: "-10%", PointsRequired: 0},
				{Label: "-20%", PointsRequired: 200},
				{Label: "-40%", PointsRequired: 800},
			},
		},
		ServiceArea: ServiceAreaConfig{
			PostalCodes: []string{
				"75001", "75002", "75003", "75004", "75005", "75006", "75007", "75008", "75009", "75010",
				"75011", "75012", "75013", "75014", "75015", "75016", "75017", "75018", "75019", "75020",
			},
		},
		Pricing: map[string]float64{
			"washing_machine": 75,
			"dishwasher":      75,
			"dryer":           70,
			"refrigerator":    90,
			"oven":            80,
			"microwave":       45,
		},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 10},
	}
}

// Load читает config.yaml из ./configs или текущего каталога поверх Default();
// переменные окружения имеют приоритет.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVariables(v)

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	_ = v.BindEnv("database.driver", "DB_DRIVER")
	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.port", "DB_PORT")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.dbname", "DB_NAME")
	_ = v.BindEnv("database.dsn", "DB_DSN")

	// Redis
	_ = v.BindEnv("redis.enabled", "REDIS_ENABLED")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")

	_ = v.BindEnv("log.level", "LOG_LEVEL")
}

// Validate отклоняет противоречивую конфигурацию
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			return fmt.Errorf("database.host and database.dbname are required for postgres")
		}
	case DriverMySQL:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for mysql")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Store.MaxRetries < 0 {
		return fmt.Errorf("store.max_retries must not be negative")
	}
	for kind, pts := range c.Loyalty.Rates {
		if !domain.EventKind(kind).Valid() {
			return fmt.Errorf("loyalty.rates: unknown event kind %q", kind)
		}
		if pts < 0 {
			return fmt.Errorf("loyalty.rates.%s must not be negative", kind)
		}
	}
	for i, t := range c.Loyalty.Catalog {
		if t.Label == "" {
			return fmt.Errorf("loyalty.catalog[%d].label is required", i)
		}
		if t.PointsRequired < 0 {
			return fmt.Errorf("loyalty.catalog[%d].points_required must not be negative", i)
		}
		if i > 0 && t.PointsRequired <= c.Loyalty.Catalog[i-1].PointsRequired {
			return fmt.Errorf("loyalty.catalog must be strictly ascending by points_required")
		}
	}
	for name, price := range c.Pricing {
		if price < 0 {
			return fmt.Errorf("pricing.%s must not be negative", name)
		}
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	return nil
}
