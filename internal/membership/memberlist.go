package membership

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/cenkalti/backoff"
	"github.com/cockroachdb/errors"
	"github.com/hashicorp/memberlist"
	"go.uber.org/zap"
)

type MemberlistConfig struct {
	// Address is the local member's gossip address. It is advertised as the
	// memberlist node name, so peers learn where to send gossip.
	Address address.Address
	// BindAddr and BindPort are where memberlist itself listens. A BindPort
	// of 0 picks a free port.
	BindAddr string
	BindPort int
	// JoinTimeout bounds the time spent retrying a join.
	JoinTimeout time.Duration
	// LeaveTimeout bounds the time spent broadcasting our departure.
	LeaveTimeout time.Duration
	Logger       *zap.Logger
}

func (cfg MemberlistConfig) Merge(def MemberlistConfig) MemberlistConfig {
	if cfg.BindAddr == "" {
		cfg.BindAddr = def.BindAddr
	}
	if cfg.JoinTimeout == 0 {
		cfg.JoinTimeout = def.JoinTimeout
	}
	if cfg.LeaveTimeout == 0 {
		cfg.LeaveTimeout = def.LeaveTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return cfg
}

func (cfg MemberlistConfig) Validate() error {
	if cfg.Address == "" {
		return errors.New("[membership] - address required")
	}
	return cfg.Address.Validate()
}

func DefaultMemberlistConfig() MemberlistConfig {
	return MemberlistConfig{
		BindAddr:     "0.0.0.0",
		JoinTimeout:  30 * time.Second,
		LeaveTimeout: 5 * time.Second,
		Logger:       zap.NewNop(),
	}
}

// Memberlist is a Source backed by hashicorp/memberlist.
type Memberlist struct {
	MemberlistConfig
	list *memberlist.Memberlist
	feed *Feed
}

var _ Source = (*Memberlist)(nil)

// NewMemberlist starts a memberlist agent. The agent is alone in its cluster
// until Join is called.
func NewMemberlist(cfg MemberlistConfig) (*Memberlist, error) {
	cfg = cfg.Merge(DefaultMemberlistConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Memberlist{MemberlistConfig: cfg, feed: NewFeed()}
	conf := memberlist.DefaultLANConfig()
	conf.Name = cfg.Address.String()
	conf.BindAddr = cfg.BindAddr
	conf.BindPort = cfg.BindPort
	conf.AdvertisePort = cfg.BindPort
	conf.Events = &eventDelegate{feed: m.feed, logger: cfg.Logger}
	conf.Logger = zap.NewStdLog(cfg.Logger.Named("memberlist"))
	list, err := memberlist.Create(conf)
	if err != nil {
		m.feed.Close()
		return nil, errors.Wrap(err, "[membership] - failed to start memberlist")
	}
	m.list = list
	return m, nil
}

// Events implements Source.
func (m *Memberlist) Events() <-chan Event { return m.feed.Events() }

// BindAddress returns the address memberlist listens on, suitable for passing
// to another agent's Join.
func (m *Memberlist) BindAddress() string {
	n := m.list.LocalNode()
	return net.JoinHostPort(n.Addr.String(), strconv.Itoa(int(n.Port)))
}

// Members returns the gossip addresses of the live members, including the
// local one.
func (m *Memberlist) Members() []address.Address {
	nodes := m.list.Members()
	addrs := make([]address.Address, len(nodes))
	for i, n := range nodes {
		addrs[i] = address.Address(n.Name)
	}
	return addrs
}

// Join contacts the given memberlist agents, retrying with exponential backoff
// until at least one answers, JoinTimeout elapses, or ctx is cancelled.
func (m *Memberlist) Join(ctx context.Context, peers []string) error {
	if len(peers) == 0 {
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = m.JoinTimeout
	return backoff.Retry(func() error {
		n, err := m.list.Join(peers)
		if n > 0 {
			if err != nil {
				m.Logger.Warn("failed to join some peers", zap.Error(err))
			}
			m.Logger.Info("joined cluster", zap.Int("contacted", n))
			return nil
		}
		m.Logger.Debug("failed to join cluster, retrying", zap.Error(err))
		return errors.Wrap(err, "[membership] - failed to join cluster")
	}, backoff.WithContext(b, ctx))
}

// Close broadcasts our departure, shuts the agent down, and closes the events
// channel.
func (m *Memberlist) Close() error {
	defer m.feed.Close()
	if err := m.list.Leave(m.LeaveTimeout); err != nil {
		m.Logger.Warn("failed to leave cluster gracefully", zap.Error(err))
	}
	return m.list.Shutdown()
}

type eventDelegate struct {
	feed   *Feed
	logger *zap.Logger
}

func (d *eventDelegate) NotifyJoin(n *memberlist.Node) {
	d.logger.Debug("node joined", zap.String("node", n.Name))
	d.feed.Publish(Event{Address: address.Address(n.Name), Kind: Joined})
}

func (d *eventDelegate) NotifyLeave(n *memberlist.Node) {
	d.logger.Debug("node left", zap.String("node", n.Name))
	d.feed.Publish(Event{Address: address.Address(n.Name), Kind: Left})
}

func (d *eventDelegate) NotifyUpdate(*memberlist.Node) {}
