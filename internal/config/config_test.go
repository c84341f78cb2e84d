package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9091", cfg.Server.Addr)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Redis.LockTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bouquet.yaml")
	yaml := `
server:
  addr: ":8080"
database:
  driver: postgres
  dsn: "postgres://u:p@localhost/db"
kafka:
  brokers: ["k1:9092"]
seed:
  discounts:
    - code: SPRING
      type: percentage
      amount: "15"
      begins: "2025-03-01T00:00:00Z"
      ends: "2025-05-31T23:59:59Z"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("BOUQUET_SERVER_ADDR", ":7070")
	t.Setenv("BOUQUET_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, []string{"k1:9092"}, cfg.Kafka.Brokers)
	require.Len(t, cfg.Seed.Discounts, 1)

	begins, ends, err := cfg.Seed.Discounts[0].Window()
	require.NoError(t, err)
	require.NotNil(t, begins)
	require.NotNil(t, ends)
	assert.Equal(t, 2025, begins.Year())
	assert.True(t, ends.After(*begins))

	begins, ends, err = SeedDiscount{Code: "OPEN", Type: "amount", Amount: "5"}.Window()
	require.NoError(t, err)
	assert.Nil(t, begins)
	assert.Nil(t, ends)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Database: DatabaseConfig{Driver: DriverMemory}}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"memory", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, true},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = DriverPostgres }, true},
		{"mysql with dsn", func(c *Config) { c.Database.Driver = DriverMySQL; c.Database.DSN = "u:p@/db" }, false},
		{"kafka without topic", func(c *Config) { c.Kafka.Brokers = []string{"k:9092"} }, true},
		{"seed ok", func(c *Config) {
			c.Seed.Discounts = []SeedDiscount{{Code: "A", Type: "amount", Amount: "5"}}
		}, false},
		{"seed bad amount", func(c *Config) {
			c.Seed.Discounts = []SeedDiscount{{Code: "A", Type: "amount", Amount: "five"}}
		}, true},
		{"seed bad type", func(c *Config) {
			c.Seed.Discounts = []SeedDiscount{{Code: "A", Type: "bogo", Amount: "5"}}
		}, true},
		{"seed bad window", func(c *Config) {
			c.Seed.Discounts = []SeedDiscount{{Code: "A", Type: "amount", Amount: "5", Ends: "tomorrow"}}
		}, true},
		{"seed negative amount", func(c *Config) {
			c.Seed.Discounts = []SeedDiscount{{Code: "A", Type: "amount", Amount: "-5"}}
		}, true},
		{"seed percentage over 100", func(c *Config) {
			c.Seed.Discounts = []SeedDiscount{{Code: "A", Type: "percentage", Amount: "100.01"}}
		}, true},
		{"seed full percentage", func(c *Config) {
			c.Seed.Discounts = []SeedDiscount{{Code: "A", Type: "percentage", Amount: "100"}}
		}, false},
		{"seed amount over 100", func(c *Config) {
			c.Seed.Discounts = []SeedDiscount{{Code: "A", Type: "amount", Amount: "250"}}
		}, false},
		{"seed ends before begins", func(c *Config) {
			c.Seed.Discounts = []SeedDiscount{{Code: "A", Type: "amount", Amount: "5",
				Begins: "2025-05-01T00:00:00Z", Ends: "2025-04-01T00:00:00Z"}}
		}, true},
		{"seed without code", func(c *Config) {
			c.Seed.Discounts = []SeedDiscount{{Type: "amount", Amount: "5"}}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", "", "c"}))
	assert.Empty(t, splitList(nil))
}
