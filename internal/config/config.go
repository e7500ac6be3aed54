package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "AUCTION"

// Environment variable names referenced by tests and deployment docs
const (
	EnvAppEnv            = "AUCTION_APP_ENV"
	EnvPort              = "AUCTION_PORT"
	EnvLogLevel          = "AUCTION_LOG_LEVEL"
	EnvStoreDriver       = "AUCTION_STORE_DRIVER"
	EnvStoreDSN          = "AUCTION_STORE_DSN"
	EnvRedisURL          = "AUCTION_REDIS_URL"
	EnvSweepInterval     = "AUCTION_SWEEP_INTERVAL"
	EnvSweepConcurrency  = "AUCTION_SWEEP_CONCURRENCY"
	EnvCollaboratorTTL   = "AUCTION_COLLABORATOR_TIMEOUT"
	EnvBidPolicy         = "AUCTION_BID_POLICY"
	EnvJWTSecret         = "AUCTION_JWT_SECRET"
	EnvJWTIssuer         = "AUCTION_JWT_ISSUER"
	EnvGatewaySendBuffer = "AUCTION_GATEWAY_SEND_BUFFER"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	BidPolicyOpen      = "open"
	BidPolicyAscending = "ascending"

	// MinProdSecretLen is the shortest JWT secret accepted in prod
	MinProdSecretLen = 32
)

type Config struct {
	App        AppConfig
	Store      StoreConfig
	Redis      RedisConfig
	Sweeper    SweeperConfig
	Settlement SettlementConfig
	Bidding    BiddingConfig
	JWT        JWTConfig
	Gateway    GatewayConfig
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == StorePostgres && c.Store.DSN == "" {
		return fmt.Errorf("%s is required for the postgres store", EnvStoreDSN)
	}
	switch c.Bidding.Policy {
	case BidPolicyOpen, BidPolicyAscending:
	default:
		return fmt.Errorf("unsupported bid policy %q", c.Bidding.Policy)
	}
	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("%s must be positive", EnvSweepInterval)
	}
	if c.Sweeper.Concurrency <= 0 {
		return fmt.Errorf("%s must be positive", EnvSweepConcurrency)
	}
	if c.Settlement.CollaboratorTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvCollaboratorTTL)
	}
	if c.Gateway.SendBuffer <= 0 {
		return fmt.Errorf("%s must be positive", EnvGatewaySendBuffer)
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return fmt.Errorf("%s must not be empty", EnvJWTIssuer)
	}
	if c.App.IsProd() && len(c.JWT.Secret) < MinProdSecretLen {
		return fmt.Errorf("%s must be at least %d bytes in %s", EnvJWTSecret, MinProdSecretLen, AppEnvProd)
	}
	return nil
}

type AppConfig struct {
	Env      string `envconfig:"AUCTION_APP_ENV" default:"dev"`
	Port     string `envconfig:"AUCTION_PORT" default:"8080"`
	LogLevel string `envconfig:"AUCTION_LOG_LEVEL" default:"info"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Addr returns the listen address for the HTTP server
func (a AppConfig) Addr() string {
	if strings.HasPrefix(a.Port, ":") {
		return a.Port
	}
	return ":" + a.Port
}

type StoreConfig struct {
	Driver          string        `envconfig:"AUCTION_STORE_DRIVER" default:"memory"`
	DSN             string        `envconfig:"AUCTION_STORE_DSN"`
	MaxOpenConns    int           `envconfig:"AUCTION_STORE_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AUCTION_STORE_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AUCTION_STORE_CONN_MAX_LIFETIME" default:"1h"`
	AutoMigrate     bool          `envconfig:"AUCTION_STORE_AUTO_MIGRATE" default:"true"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AUCTION_REDIS_URL"`
	Address      string        `envconfig:"AUCTION_REDIS_ADDR"`
	Password     string        `envconfig:"AUCTION_REDIS_PASSWORD"`
	DB           int           `envconfig:"AUCTION_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AUCTION_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"AUCTION_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AUCTION_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"AUCTION_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a Redis endpoint was configured
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type SweeperConfig struct {
	Interval    time.Duration `envconfig:"AUCTION_SWEEP_INTERVAL" default:"1s"`
	Concurrency int           `envconfig:"AUCTION_SWEEP_CONCURRENCY" default:"4"`
	LockKey     string        `envconfig:"AUCTION_SWEEP_LOCK_KEY" default:"auction:sweeper:lock"`
	LockTTL     time.Duration `envconfig:"AUCTION_SWEEP_LOCK_TTL" default:"30s"`
}

type SettlementConfig struct {
	CollaboratorTimeout time.Duration `envconfig:"AUCTION_COLLABORATOR_TIMEOUT" default:"5s"`
}

type BiddingConfig struct {
	Policy string `envconfig:"AUCTION_BID_POLICY" default:"open"`
}

type JWTConfig struct {
	Secret string        `envconfig:"AUCTION_JWT_SECRET" required:"true"`
	Issuer string        `envconfig:"AUCTION_JWT_ISSUER" default:"auction-engine"`
	TTL    time.Duration `envconfig:"AUCTION_JWT_TTL" default:"24h"`
}

type GatewayConfig struct {
	SendBuffer     int           `envconfig:"AUCTION_GATEWAY_SEND_BUFFER" default:"64"`
	PingPeriod     time.Duration `envconfig:"AUCTION_GATEWAY_PING_PERIOD" default:"30s"`
	WriteTimeout   time.Duration `envconfig:"AUCTION_GATEWAY_WRITE_TIMEOUT" default:"10s"`
	MaxMessageSize int64         `envconfig:"AUCTION_GATEWAY_MAX_MESSAGE_BYTES" default:"4096"`
}
