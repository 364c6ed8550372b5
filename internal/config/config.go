package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration. It is read once at startup and never
// mutated afterwards.
type Config struct {
	DataDir  string
	Database DatabaseConfig
	Log      LogConfig
	HTTP     struct {
		Addr string
	}
}

// DatabaseConfig is the `database` namespace.
type DatabaseConfig struct {
	// Type selects the backend: MySQL or SQLite, case-insensitive.
	Type    string
	MySQL   MySQLConfig
	SQLite  SQLiteConfig
	DataDir string
}

// MySQLConfig holds the server backend connection parameters.
type MySQLConfig struct {
	// Host is a "host:port" pair. The port defaults to 3306 when omitted.
	Host     string
	Database string
	Username string
	Password string
	Pool     PoolConfig
}

// PoolConfig is the fixed pool policy for the server backend.
type PoolConfig struct {
	MaxOpen        int
	MinIdle        int
	IdleTimeout    time.Duration
	MaxLifetime    time.Duration
	AcquireTimeout time.Duration
	// LeakThreshold is how long a handle may be held before the watchdog
	// reports it. Zero disables the watchdog.
	LeakThreshold time.Duration
}

// SQLiteConfig holds the embedded backend parameters.
type SQLiteConfig struct {
	File string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

// DefaultPool mirrors the pool policy the plugin has always shipped with:
// a small pool tuned for many short statements.
func DefaultPool() PoolConfig {
	return PoolConfig{
		MaxOpen:        5,
		MinIdle:        1,
		IdleTimeout:    30 * time.Second,
		MaxLifetime:    30 * time.Minute,
		AcquireTimeout: 30 * time.Second,
		LeakThreshold:  5 * time.Minute,
	}
}

// SQLitePath resolves the SQLite file against the data directory.
func (c DatabaseConfig) SQLitePath() string {
	if filepath.IsAbs(c.SQLite.File) {
		return c.SQLite.File
	}
	return filepath.Join(c.DataDir, c.SQLite.File)
}

// Load reads config from environment (SMASH_ prefix) and an optional YAML
// file. When path is empty, smashdb.yaml is looked up in the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SMASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("smashdb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		_ = v.ReadInConfig() // optional config file
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	pool := DefaultPool()

	v.SetDefault("data_dir", ".")
	v.SetDefault("http.addr", ":9090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.mysql.host", "localhost:3306")
	v.SetDefault("database.sqlite.file", "database.db")
	v.SetDefault("database.mysql.pool.max_open", pool.MaxOpen)
	v.SetDefault("database.mysql.pool.min_idle", pool.MinIdle)
	v.SetDefault("database.mysql.pool.idle_timeout", pool.IdleTimeout.String())
	v.SetDefault("database.mysql.pool.max_lifetime", pool.MaxLifetime.String())
	v.SetDefault("database.mysql.pool.acquire_timeout", pool.AcquireTimeout.String())
	v.SetDefault("database.mysql.pool.leak_threshold", pool.LeakThreshold.String())

	cfg := &Config{}
	cfg.DataDir = v.GetString("data_dir")
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")

	// viper keys are case-insensitive, so database.MySQL.host and
	// database.mysql.host address the same value.
	db := &cfg.Database
	db.Type = strings.TrimSpace(v.GetString("database.type"))
	db.DataDir = cfg.DataDir
	db.MySQL.Host = v.GetString("database.mysql.host")
	db.MySQL.Database = v.GetString("database.mysql.database")
	db.MySQL.Username = v.GetString("database.mysql.username")
	db.MySQL.Password = v.GetString("database.mysql.password")
	db.SQLite.File = v.GetString("database.sqlite.file")

	p := &db.MySQL.Pool
	p.MaxOpen = v.GetInt("database.mysql.pool.max_open")
	p.MinIdle = v.GetInt("database.mysql.pool.min_idle")

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"database.mysql.pool.idle_timeout", &p.IdleTimeout},
		{"database.mysql.pool.max_lifetime", &p.MaxLifetime},
		{"database.mysql.pool.acquire_timeout", &p.AcquireTimeout},
		{"database.mysql.pool.leak_threshold", &p.LeakThreshold},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if p.MaxOpen < 1 {
		return nil, fmt.Errorf("database.MySQL.pool.max_open must be at least 1, got %d", p.MaxOpen)
	}
	if p.MinIdle < 0 || p.MinIdle > p.MaxOpen {
		return nil, fmt.Errorf("database.MySQL.pool.min_idle must be between 0 and max_open, got %d", p.MinIdle)
	}

	return cfg, nil
}
