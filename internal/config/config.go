// Package config provides Viper-based configuration loading for the tile world server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Name identifies this server instance in logs.
	Name string `mapstructure:"name"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Storage drivers for the orphan ledger.
const (
	StoragePostgres = "postgres"
	StorageBolt     = "bolt"
	StorageNone     = "none"
)

// StorageConfig selects where orphaned items are recorded.
type StorageConfig struct {
	// Driver is one of "postgres", "bolt" or "none".
	Driver string `mapstructure:"driver"`
	// BoltPath is the database file used by the bolt driver.
	BoltPath string `mapstructure:"bolt_path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Components overrides Level per named component, e.g. {"spawn": "debug"}.
	Components map[string]string `mapstructure:"components"`
}

// CostsConfig holds the exhaustion each kind of operation costs.
type CostsConfig struct {
	Action         time.Duration `mapstructure:"action"`
	Use            time.Duration `mapstructure:"use"`
	Speech         time.Duration `mapstructure:"speech"`
	Push           time.Duration `mapstructure:"push"`
	DiagonalFactor int           `mapstructure:"diagonal_factor"`
}

// GameConfig holds world content and simulation timing.
type GameConfig struct {
	// ItemsDir holds the item type catalog YAML files.
	ItemsDir string `mapstructure:"items_dir"`
	// MapsDir holds the zone YAML files.
	MapsDir string      `mapstructure:"maps_dir"`
	Costs   CostsConfig `mapstructure:"costs"`
	// LightTick is how often the hour of the day advances.
	LightTick time.Duration `mapstructure:"light_tick"`
	// StartHour is the hour of the day the world starts at, 0-23.
	StartHour int `mapstructure:"start_hour"`
	// IdleTimeout is the inactivity after which a player is warned.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// IdleGracePeriod is the further inactivity after the warning before logout.
	IdleGracePeriod time.Duration `mapstructure:"idle_grace_period"`
	IdleSweep       time.Duration `mapstructure:"idle_sweep"`
	// SpawnInterval is how often spawn points are checked for missing creatures.
	SpawnInterval time.Duration `mapstructure:"spawn_interval"`
	// ConnectionBuffer is the number of notification batches a connection queues.
	ConnectionBuffer int `mapstructure:"connection_buffer"`
	// CreatureIDBase is the first id handed to spawned creatures.
	CreatureIDBase uint32 `mapstructure:"creature_id_base"`
}

// ScriptingConfig holds Lua rule settings.
type ScriptingConfig struct {
	// Root holds global scripts loaded for every zone without its own.
	Root string `mapstructure:"root"`
	// InstructionLimit bounds each hook call; zero uses the engine default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (m MetricsConfig) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Game      GameConfig      `mapstructure:"game"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if c.Server.Name == "" {
		errs = append(errs, "server.name must not be empty")
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	// The database is only dialled by the postgres driver.
	if c.Storage.Driver == StoragePostgres {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Sprintf("metrics.port must be 1-65535, got %d", c.Metrics.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	switch s.Driver {
	case StoragePostgres, StorageNone:
		return nil
	case StorageBolt:
		if s.BoltPath == "" {
			return errors.New("storage.bolt_path must not be empty for the bolt driver")
		}
		return nil
	default:
		return fmt.Errorf("storage.driver must be one of [postgres, bolt, none], got %q", s.Driver)
	}
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.ItemsDir == "" {
		errs = append(errs, "game.items_dir must not be empty")
	}
	if g.MapsDir == "" {
		errs = append(errs, "game.maps_dir must not be empty")
	}
	costs := map[string]time.Duration{
		"action": g.Costs.Action,
		"use":    g.Costs.Use,
		"speech": g.Costs.Speech,
		"push":   g.Costs.Push,
	}
	for _, name := range []string{"action", "use", "speech", "push"} {
		if costs[name] < 0 {
			errs = append(errs, fmt.Sprintf("game.costs.%s must not be negative", name))
		}
	}
	if g.Costs.DiagonalFactor < 1 {
		errs = append(errs, fmt.Sprintf("game.costs.diagonal_factor must be >= 1, got %d", g.Costs.DiagonalFactor))
	}
	if g.StartHour < 0 || g.StartHour > 23 {
		errs = append(errs, fmt.Sprintf("game.start_hour must be 0-23, got %d", g.StartHour))
	}
	positive := []struct {
		name string
		d    time.Duration
	}{
		{"light_tick", g.LightTick},
		{"idle_timeout", g.IdleTimeout},
		{"idle_sweep", g.IdleSweep},
		{"spawn_interval", g.SpawnInterval},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, fmt.Sprintf("game.%s must be positive", p.name))
		}
	}
	if g.IdleGracePeriod < 0 {
		errs = append(errs, "game.idle_grace_period must not be negative")
	}
	if g.ConnectionBuffer < 1 {
		errs = append(errs, fmt.Sprintf("game.connection_buffer must be >= 1, got %d", g.ConnectionBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	for name, level := range l.Components {
		if !validLevels[level] {
			return fmt.Errorf("logging.components.%s must be one of [debug, info, warn, error], got %q", name, level)
		}
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with TILEMUD_ prefix
	v.SetEnvPrefix("TILEMUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default values.
//
// Postcondition: LoadFromViper(Defaults()) succeeds.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "tilemud")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tilemud")
	v.SetDefault("database.password", "tilemud")
	v.SetDefault("database.name", "tilemud")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("storage.driver", StorageNone)
	v.SetDefault("storage.bolt_path", "tilemud.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("game.items_dir", "content/items")
	v.SetDefault("game.maps_dir", "content/maps")
	v.SetDefault("game.costs.action", "200ms")
	v.SetDefault("game.costs.use", "1s")
	v.SetDefault("game.costs.speech", "1s")
	v.SetDefault("game.costs.push", "2s")
	v.SetDefault("game.costs.diagonal_factor", 2)
	v.SetDefault("game.light_tick", "2m30s")
	v.SetDefault("game.start_hour", 12)
	v.SetDefault("game.idle_timeout", "15m")
	v.SetDefault("game.idle_grace_period", "1m")
	v.SetDefault("game.idle_sweep", "10s")
	v.SetDefault("game.spawn_interval", "5s")
	v.SetDefault("game.connection_buffer", 64)
	v.SetDefault("game.creature_id_base", 0x40000000)

	v.SetDefault("scripting.root", "")
	v.SetDefault("scripting.instruction_limit", 0)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.host", "127.0.0.1")
	v.SetDefault("metrics.port", 9100)
}
