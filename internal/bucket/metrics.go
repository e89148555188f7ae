package bucket

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	merged         prometheus.Counter
	stale          prometheus.Counter
	decodeFailures prometheus.Counter
	exchanges      prometheus.Counter
	sendFailures   prometheus.Counter
	removed        prometheus.Counter
	peers          prometheus.Gauge
	version        prometheus.Gauge
}

func newMetrics(name string, reg prometheus.Registerer) (*metrics, error) {
	labels := prometheus.Labels{"store": name}
	counter := func(n, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "relay",
			Subsystem:   "bucket",
			Name:        n,
			Help:        help,
			ConstLabels: labels,
		})
	}
	gauge := func(n, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "relay",
			Subsystem:   "bucket",
			Name:        n,
			Help:        help,
			ConstLabels: labels,
		})
	}
	m := &metrics{
		merged:         counter("merged_total", "Peer buckets installed."),
		stale:          counter("stale_total", "Peer buckets discarded for carrying an old version."),
		decodeFailures: counter("decode_failures_total", "Peer buckets that failed to decode or resolve."),
		exchanges:      counter("exchanges_total", "Anti-entropy exchanges initiated."),
		sendFailures:   counter("send_failures_total", "Gossip messages that failed to reach a peer."),
		removed:        counter("removed_total", "Peer buckets dropped after the owner left the cluster."),
		peers:          gauge("peers", "Peer buckets currently held."),
		version:        gauge("local_version", "Version of the local bucket."),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.merged, m.stale, m.decodeFailures, m.exchanges,
		m.sendFailures, m.removed, m.peers, m.version,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "[bucket] - failed to register metrics")
		}
	}
	return m, nil
}
