package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Env             string        `mapstructure:"env"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig пустой Addr: блокировка корзины в памяти процесса
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// KafkaConfig пустой список брокеров: события не публикуются
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SeedConfig struct {
	Discounts []SeedDiscount `mapstructure:"discounts"`
}

type SeedDiscount struct {
	Code   string `mapstructure:"code"`
	Type   string `mapstructure:"type"`
	Amount string `mapstructure:"amount"`
	// RFC3339, empty means unbounded
	Begins string `mapstructure:"begins"`
	Ends   string `mapstructure:"ends"`
}

// Window разбирает границы действия скидки; пустая граница даёт nil
func (d SeedDiscount) Window() (begins, ends *time.Time, err error) {
	if begins, err = parseBound(d.Begins); err != nil {
		return nil, nil, fmt.Errorf("begins: %w", err)
	}
	if ends, err = parseBound(d.Ends); err != nil {
		return nil, nil, fmt.Errorf("ends: %w", err)
	}
	if begins != nil && ends != nil && ends.Before(*begins) {
		return nil, nil, errors.New("ends before begins")
	}
	return begins, ends, nil
}

// Validate проверяет код, тип, сумму и окно действия
func (d SeedDiscount) Validate() error {
	if d.Code == "" {
		return errors.New("seed discount without code")
	}
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return fmt.Errorf("seed discount %s: amount: %w", d.Code, err)
	}
	if d.Type != "percentage" && d.Type != "amount" {
		return fmt.Errorf("seed discount %s: type must be percentage or amount", d.Code)
	}
	if amount.IsNegative() {
		return fmt.Errorf("seed discount %s: amount must not be negative", d.Code)
	}
	if d.Type == "percentage" && amount.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("seed discount %s: percentage must not exceed 100", d.Code)
	}
	if _, _, err := d.Window(); err != nil {
		return fmt.Errorf("seed discount %s: %w", d.Code, err)
	}
	return nil
}

func parseBound(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":9091")
	v.SetDefault("server.env", "dev")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 5*time.Second)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "orders.placed")
}

// Load читает config.yaml (или CONFIG_FILE), переменные окружения BOUQUET_* имеют приоритет
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if f := os.Getenv("CONFIG_FILE"); f != "" {
		v.SetConfigFile(f)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("BOUQUET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// env lists arrive as a single comma separated string
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.Server.CORSOrigins = splitList(cfg.Server.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres, DriverMySQL:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when brokers are set")
	}
	for _, d := range c.Seed.Discounts {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}
