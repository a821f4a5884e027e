package blastxml

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/rueidis"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs      []string
	password   string
	standalone bool
	client     rueidis.Client

	keyPrefix string
	ttl       time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis connects the client to a Redis instance or cluster seed.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey connects the client to a Valkey instance or cluster seed.
func WithValkey(addr, password string) Option {
	return WithRedis(addr, password)
}

// WithRedisClient reuses an existing rueidis client. Close leaves it open.
func WithRedisClient(client rueidis.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.client = client
	})
}

// WithStandalone disables cluster topology discovery.
func WithStandalone() Option {
	return optionFunc(func(c *clientConfig) {
		c.standalone = true
	})
}

// WithKeyPrefix namespaces every stored key. Default: "blastxml:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithTTL expires stored reports after d. Zero keeps them forever.
func WithTTL(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.ttl = d
	})
}

// WithLogger enables structured logging of client operations.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer.
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
