// Package config defines process configuration and its loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and SUNWATCH_ env vars.
// - Validation failures wrap ErrInvalidConfig; loader failures wrap ErrLoadConfig.
package config

import "time"

// Transport kinds.
const (
	TransportMemory = "memory"
	TransportAMQP   = "amqp"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Location is the preferred location key into the weather cache.
	Location string `koanf:"location" validate:"required"`

	// Units selects the temperature unit published to the watch: metric or imperial.
	Units string `koanf:"units" validate:"oneof=metric imperial"`

	// SyncIntervalSec sets how often the producer pushes the cached weather.
	SyncIntervalSec int `koanf:"sync_interval_sec" validate:"gte=1"`

	// Transport selects the paired-device channel: memory or amqp.
	Transport string `koanf:"transport" validate:"oneof=memory amqp"`

	// AMQP broker settings, used when Transport is amqp.
	AMQPDSN      string `koanf:"amqp_dsn" validate:"required_if=Transport amqp"`
	AMQPExchange string `koanf:"amqp_exchange" validate:"required_if=Transport amqp"`
	AMQPTLS      bool   `koanf:"amqp_tls"`

	// AMQPConfirmTimeoutMS bounds how long a publish waits for the broker confirm.
	AMQPConfirmTimeoutMS int `koanf:"amqp_confirm_timeout_ms" validate:"gte=1"`

	// EventBuffer bounds the in-memory transport dispatch buffer.
	EventBuffer int `koanf:"event_buffer" validate:"gte=1"`

	// StoreDriver and StoreDSN configure the local weather cache.
	StoreDriver string `koanf:"store_driver" validate:"oneof=sqlite mysql"`
	StoreDSN    string `koanf:"store_dsn" validate:"required"`

	// StoreMaxOpenConns caps the cache's connection pool.
	StoreMaxOpenConns int `koanf:"store_max_open_conns" validate:"gte=1"`

	// TickMS is the interactive watch-face tick rate in milliseconds.
	TickMS int `koanf:"tick_ms" validate:"gte=10"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		Location:             "94043",
		Units:                "metric",
		SyncIntervalSec:      15 * 60,
		Transport:            TransportMemory,
		AMQPExchange:         "sunwatch",
		AMQPConfirmTimeoutMS: 5000,
		EventBuffer:          1024,
		StoreDriver:          DriverSQLite,
		StoreDSN:             "sunwatch.db",
		StoreMaxOpenConns:    4,
		TickMS:               1000,
	}
}

// SyncInterval returns SyncIntervalSec as a duration.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSec) * time.Second
}

// AMQPConfirmTimeout returns AMQPConfirmTimeoutMS as a duration.
func (c *Config) AMQPConfirmTimeout() time.Duration {
	return time.Duration(c.AMQPConfirmTimeoutMS) * time.Millisecond
}

// TickInterval returns TickMS as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}
