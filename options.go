package relay

import (
	"fmt"
	"time"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/bucket"
	"github.com/arya-analytics/relay/internal/membership"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Option func(*options)

type options struct {
	// dirname is the directory where relay persists bucket versions.
	dirname string
	// addr is the gossip address of the host member.
	addr address.Address
	// peers are the members the host knows of at startup.
	peers []address.Address
	// sources emit membership changes after startup.
	sources []membership.Source
	// fs is the filesystem versions are persisted on.
	fs vfs.FS
	// transport carries gossip between members.
	transport Transport
	// propagation configures how quickly changes spread.
	propagation PropagationConfig
	// rpcRegistrar receives remote RPC endpoints.
	rpcRegistrar RPCRegistrar
	// actionRegistrar receives remote Action endpoints.
	actionRegistrar ActionRegistrar
	// metrics registers Prometheus collectors. If nil, metrics aren't
	// exported.
	metrics prometheus.Registerer
	logger  *zap.Logger
}

// PropagationConfig tunes the rate at which routing changes spread.
type PropagationConfig struct {
	// GossipInterval is the period between anti-entropy exchanges.
	GossipInterval time.Duration
}

func newOptions(dirname string, addr address.Address, opts ...Option) *options {
	o := &options{dirname: dirname, addr: addr}
	for _, opt := range opts {
		opt(o)
	}
	mergeDefaultOptions(o)
	return o
}

func (o *options) validate() error {
	if err := o.addr.Validate(); err != nil {
		return err
	}
	if o.transport == nil {
		return errors.New("[relay] - transport required")
	}
	return nil
}

func (o *options) bucketConfig(name string) bucket.Config {
	return bucket.Config{
		Name:      name,
		Address:   o.addr,
		Interval:  o.propagation.GossipInterval,
		Transport: o.transport.Gossip(name),
		Metrics:   o.metrics,
		Logger:    o.logger,
	}
}

func (o *options) String() string {
	return fmt.Sprintf(
		"addr: %s, dirname: %q, peers: %v, transport: %s, gossipInterval: %s",
		o.addr, o.dirname, o.peers, o.transport, o.propagation.GossipInterval,
	)
}

func mergeDefaultOptions(o *options) {
	def := defaultOptions()

	// |||| DIRNAME ||||

	if o.dirname == "" {
		o.dirname = def.dirname
	}

	// |||| FS ||||

	if o.fs == nil {
		o.fs = def.fs
	}

	// |||| LOGGER ||||

	if o.logger == nil {
		o.logger = def.logger
	}

	// |||| PROPAGATION ||||

	if o.propagation.GossipInterval == 0 {
		o.propagation.GossipInterval = def.propagation.GossipInterval
	}

	// |||| REGISTRARS ||||

	if o.rpcRegistrar == nil || o.actionRegistrar == nil {
		lr := &LogRegistrar{Logger: o.logger}
		if o.rpcRegistrar == nil {
			o.rpcRegistrar = lr
		}
		if o.actionRegistrar == nil {
			o.actionRegistrar = lr
		}
	}
}

func defaultOptions() *options {
	return &options{
		dirname:     "relay",
		fs:          vfs.Default,
		logger:      zap.NewNop(),
		propagation: PropagationConfig{GossipInterval: bucket.DefaultConfig().Interval},
	}
}

// WithLogger sets the logger relay uses.
func WithLogger(logger *zap.Logger) Option { return func(o *options) { o.logger = logger } }

// WithTransport sets the transport gossip travels over.
func WithTransport(t Transport) Option { return func(o *options) { o.transport = t } }

// WithPropagationConfig tunes how quickly routing changes spread.
func WithPropagationConfig(cfg PropagationConfig) Option {
	return func(o *options) { o.propagation = cfg }
}

// WithPeers sets the members the host knows of at startup.
func WithPeers(peers ...address.Address) Option {
	return func(o *options) { o.peers = append(o.peers, peers...) }
}

// WithMembership adds a source of membership changes.
func WithMembership(src membership.Source) Option {
	return func(o *options) { o.sources = append(o.sources, src) }
}

// WithRegistrars sets the receivers of remote endpoints. A nil registrar
// logs the endpoints instead.
func WithRegistrars(rpc RPCRegistrar, action ActionRegistrar) Option {
	return func(o *options) {
		o.rpcRegistrar = rpc
		o.actionRegistrar = action
	}
}

// WithMetrics registers relay's Prometheus collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option { return func(o *options) { o.metrics = reg } }

// MemBacked keeps persisted versions in memory. Relays opened with the same
// Option share the in-memory filesystem, so versions survive a Close and
// re-Open but not the process.
func MemBacked() Option {
	fs := vfs.NewMem()
	return func(o *options) { o.fs = fs }
}
