package bucket

import (
	"time"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/version"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Config struct {
	// Name identifies the store among the others running on the same member.
	// It labels metrics and keys the persisted version.
	Name string
	// Address is the address of the local member.
	Address address.Address
	// Interval is the period between anti-entropy exchanges with a random peer.
	Interval time.Duration
	// Transport carries gossip to and from peers.
	Transport Transport
	// Versions persists the local bucket's version across restarts. If nil,
	// the local bucket starts at version 0.
	Versions version.Store
	// Metrics registers the store's collectors. If nil, metrics are collected
	// but not exported.
	Metrics prometheus.Registerer
	// MailboxSize is the number of requests that may queue for the store
	// before callers block.
	MailboxSize int
	Logger      *zap.Logger
}

func (cfg Config) Merge(def Config) Config {
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Interval == 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MailboxSize == 0 {
		cfg.MailboxSize = def.MailboxSize
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.Transport == nil {
		cfg.Transport = def.Transport
	}
	if cfg.Versions == nil {
		cfg.Versions = def.Versions
	}
	if cfg.Metrics == nil {
		cfg.Metrics = def.Metrics
	}
	return cfg
}

func (cfg Config) Validate() error {
	if cfg.Address == "" {
		return errors.New("[bucket] - address required")
	}
	if cfg.Transport == nil {
		return errors.New("[bucket] - transport required")
	}
	if cfg.Interval <= 0 {
		return errors.New("[bucket] - interval must be positive")
	}
	if cfg.MailboxSize <= 0 {
		return errors.New("[bucket] - mailbox size must be positive")
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		Name:        "default",
		Interval:    1 * time.Second,
		MailboxSize: 1024,
		Logger:      zap.NewNop(),
	}
}
