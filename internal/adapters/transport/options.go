package transport

import (
	"crypto/tls"
	"time"

	"github.com/okian/sunwatch/pkg/logger"
)

// MemoryOption applies a configuration option to the Memory transport.
type MemoryOption func(*Memory)

// WithBufferSize sets how many items may wait for dispatch.
func WithBufferSize(size int) MemoryOption {
	return func(m *Memory) {
		if size > 0 {
			m.bufferSize = size
		}
	}
}

// WithMemoryLogger sets a custom logger.
func WithMemoryLogger(l logger.Logger) MemoryOption {
	return func(m *Memory) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock sets the clock used to stamp items.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// AMQPOption applies a configuration option to the AMQP transport.
type AMQPOption func(*AMQP)

// WithExchange sets the topic exchange items are published to.
func WithExchange(name string) AMQPOption {
	return func(a *AMQP) {
		if name != "" {
			a.exchange = name
		}
	}
}

// WithTLS dials the broker over TLS. A nil config uses the defaults.
func WithTLS(cfg *tls.Config) AMQPOption {
	return func(a *AMQP) {
		a.useTLS = true
		a.tlsConfig = cfg
	}
}

// WithRetry sets how often and how far apart broker setup is retried.
func WithRetry(attempts uint, delay time.Duration) AMQPOption {
	return func(a *AMQP) {
		if attempts > 0 {
			a.retryAttempts = attempts
		}
		if delay > 0 {
			a.retryDelay = delay
		}
	}
}

// WithConfirmTimeout bounds how long a publish waits for a broker confirm.
func WithConfirmTimeout(d time.Duration) AMQPOption {
	return func(a *AMQP) {
		if d > 0 {
			a.confirmTimeout = d
		}
	}
}

// WithAMQPLogger sets a custom logger.
func WithAMQPLogger(l logger.Logger) AMQPOption {
	return func(a *AMQP) {
		if l != nil {
			a.logger = l
		}
	}
}
