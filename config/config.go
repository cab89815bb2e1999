package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Payout     PayoutConfig     `mapstructure:"payout"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// LedgerConfig holds the knobs the balance engine and maturation sweep
// depend on.
type LedgerConfig struct {
	HoldingPeriod  time.Duration `mapstructure:"holding_period"`  // pending -> available window
	MaxAttempts    int           `mapstructure:"max_attempts"`    // optimistic-concurrency retries
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`  // maturation job cadence
	SweepBatchSize int           `mapstructure:"sweep_batch_size"`
}

// SettlementConfig configures the settlement event ingress.
type SettlementConfig struct {
	Secret         string        `mapstructure:"secret"` // HMAC shared secret with the order collaborator
	DedupTTL       time.Duration `mapstructure:"dedup_ttl"`
	CommissionRate string        `mapstructure:"commission_rate"` // default rate, decimal string
}

// DefaultCommissionRate parses the configured default commission rate.
func (s SettlementConfig) DefaultCommissionRate() (decimal.Decimal, error) {
	return decimal.NewFromString(s.CommissionRate)
}

// PayoutConfig configures the payout workflow.
type PayoutConfig struct {
	MinimumThreshold string        `mapstructure:"minimum_threshold"` // decimal string
	TransferURL      string        `mapstructure:"transfer_url"`      // disbursement collaborator endpoint
	TransferSecret   string        `mapstructure:"transfer_secret"`   // HMAC key for disbursement orders
	TransferTimeout  time.Duration `mapstructure:"transfer_timeout"`
}

// Minimum parses the configured minimum payout threshold.
func (p PayoutConfig) Minimum() (decimal.Decimal, error) {
	return decimal.NewFromString(p.MinimumThreshold)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: VL_ (Vendor Ledger).
// Nested keys use underscore: VL_DATABASE_HOST, VL_LEDGER_HOLDING_PERIOD, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "vendor_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "vendor-ledger")
	v.SetDefault("ledger.holding_period", "168h") // 7 days
	v.SetDefault("ledger.max_attempts", 3)
	v.SetDefault("ledger.sweep_interval", "5m")
	v.SetDefault("ledger.sweep_batch_size", 500)
	v.SetDefault("settlement.secret", "")
	v.SetDefault("settlement.dedup_ttl", "24h")
	v.SetDefault("settlement.commission_rate", "0.10")
	v.SetDefault("payout.minimum_threshold", "50")
	v.SetDefault("payout.transfer_url", "")
	v.SetDefault("payout.transfer_secret", "")
	v.SetDefault("payout.transfer_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: VL_DATABASE_HOST -> database.host
	v.SetEnvPrefix("VL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
