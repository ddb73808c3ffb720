package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/configparser"
)

// Flags
var (
	modeFlag = flag.String("mode", "", "application mode: gateway or relay")
)

// Errors
var (
	ErrModeNotProvided = errors.New("mode flag not provided")
	ErrInvalidMode     = errors.New("invalid mode")
	ErrInvalidDriver   = errors.New("invalid driver")
	ErrNoJWTSecret     = errors.New("jwt secret is required")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode     types.ServiceMode
		LogLevel string `env:"LOG_LEVEL" default:"INFO"`

		Database          DatabaseConfig
		RabbitMQ          RabbitMQConfig
		Redis             RedisConfig
		Gateway           GatewayConfig
		Feed              FeedConfig
		ExternalAPIConfig ExternalAPIConfig
		Auth              Auth
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"ridehail_user"`
		Password string `env:"DATABASE_PASSWORD" default:"ridehail_pass"`
		Database string `env:"DATABASE_DATABASE" default:"ridehail_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`

		// apply migrations/ on start
		Migrate bool `env:"DATABASE_MIGRATE" default:"false"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
	}

	RedisConfig struct {
		// empty address disables token revocation
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" default:"0"`
	}

	GatewayConfig struct {
		Port string `env:"GATEWAY_PORT" default:"3000"`
		// memory runs the gateway without a database, for local development
		Store types.StoreDriver `env:"GATEWAY_STORE" default:"postgres"`
		// comma separated websocket origins; empty allows same host only
		AllowedOrigins []string `env:"GATEWAY_ALLOWED_ORIGINS"`
		// sessions without requests or open streams for this long are signed out; 0 keeps them
		SessionIdleTimeout time.Duration `env:"GATEWAY_SESSION_IDLE_TIMEOUT" default:"30m"`
	}

	FeedConfig struct {
		Driver types.FeedDriver `env:"FEED_DRIVER" default:"postgres"`
	}

	ExternalAPIConfig struct {
		LocationIQapiKey  string `env:"LOCATIONIQ_API_KEY"`
		LocationIQBaseURL string `env:"LOCATIONIQ_BASE_URL" default:"https://us1.locationiq.com"`
	}

	Auth struct {
		JWTSecret string `env:"AUTH_JWT_SECRET"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c DatabaseConfig) PoolLimits() (maxConns, minConns int32, maxLifetime, maxIdle time.Duration) {
	return c.MaxConns, c.MinConns, c.MaxConnLifetime, c.MaxConnIdleTime
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	// Parsing flags
	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values the parser cannot.
func (c *Config) Validate() error {
	switch c.Mode {
	case types.GatewayService, types.RelayService:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}

	switch c.Feed.Driver {
	case types.FeedPostgres, types.FeedRabbitMQ:
	default:
		return fmt.Errorf("%w: feed %q", ErrInvalidDriver, c.Feed.Driver)
	}

	switch c.Gateway.Store {
	case types.StorePostgres, types.StoreMemory:
	default:
		return fmt.Errorf("%w: store %q", ErrInvalidDriver, c.Gateway.Store)
	}

	if c.Mode == types.GatewayService && c.Auth.JWTSecret == "" {
		return ErrNoJWTSecret
	}
	return nil
}

func parseFlags(cfg *Config) error {
	if modeFlag == nil || *modeFlag == "" {
		return ErrModeNotProvided
	}

	cfg.Mode = types.ServiceMode(*modeFlag)

	return nil
}

// PrintConfig prints the effective configuration with secrets masked.
func PrintConfig(cfg *Config) {
	fmt.Println("Configuration:")
	fmt.Printf("  mode:           %s\n", cfg.Mode)
	fmt.Printf("  log level:      %s\n", cfg.LogLevel)
	fmt.Printf("  database:       %s@%s:%s/%s (migrate=%t)\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database, cfg.Database.Migrate)
	fmt.Printf("  rabbitmq:       %s@%s:%s\n", cfg.RabbitMQ.User, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	fmt.Printf("  redis:          %s\n", orDisabled(cfg.Redis.Addr))
	fmt.Printf("  gateway:        :%s (store=%s, origins=%v, session idle=%s)\n", cfg.Gateway.Port, cfg.Gateway.Store, cfg.Gateway.AllowedOrigins, cfg.Gateway.SessionIdleTimeout)
	fmt.Printf("  feed driver:    %s\n", cfg.Feed.Driver)
	fmt.Printf("  locationiq key: %s\n", mask(cfg.ExternalAPIConfig.LocationIQapiKey))
	fmt.Printf("  jwt secret:     %s\n", mask(cfg.Auth.JWTSecret))
}

func mask(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "****"
}

func orDisabled(s string) string {
	if s == "" {
		return "<disabled>"
	}
	return s
}
