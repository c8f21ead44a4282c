package node

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// nodeMetrics collects the node's operational counters and gauges in its own
// metrics set, so several nodes in one process (as in tests) never collide.
type nodeMetrics struct {
	set *metrics.Set

	getHits   *metrics.Counter
	getMisses *metrics.Counter
	puts      *metrics.Counter
	deletes   *metrics.Counter
	evictions *metrics.Counter
}

func newNodeMetrics(n *Node) *nodeMetrics {
	set := metrics.NewSet()
	id := n.config.ID

	m := &nodeMetrics{
		set:       set,
		getHits:   set.NewCounter(name("hivecache_get_hits_total", id)),
		getMisses: set.NewCounter(name("hivecache_get_misses_total", id)),
		puts:      set.NewCounter(name("hivecache_puts_total", id)),
		deletes:   set.NewCounter(name("hivecache_deletes_total", id)),
		evictions: set.NewCounter(name("hivecache_evictions_total", id)),
	}

	// gauges read the live state on scrape
	set.NewGauge(name("hivecache_entries", id), func() float64 {
		return float64(n.engine.Len())
	})
	set.NewGauge(name("hivecache_size_bytes", id), func() float64 {
		return float64(n.engine.SizeBytes())
	})
	set.NewGauge(name("hivecache_peers", id), func() float64 {
		return float64(n.registry.Len())
	})
	set.NewGauge(name("hivecache_peers_alive", id), func() float64 {
		return float64(len(n.registry.AlivePeers()))
	})
	set.NewGauge(name("hivecache_messages_sent_total", id), func() float64 {
		sent, _ := n.broadcaster.Stats()
		return float64(sent)
	})
	set.NewGauge(name("hivecache_messages_dropped_total", id), func() float64 {
		_, dropped := n.broadcaster.Stats()
		return float64(dropped)
	})
	set.NewGauge(name("hivecache_messages_applied_total", id), func() float64 {
		applied, _, _ := n.receiver.Stats()
		return float64(applied)
	})
	set.NewGauge(name("hivecache_messages_rejected_total", id), func() float64 {
		_, rejected, _ := n.receiver.Stats()
		return float64(rejected)
	})
	set.NewGauge(name("hivecache_messages_malformed_total", id), func() float64 {
		_, _, malformed := n.receiver.Stats()
		return float64(malformed)
	})

	return m
}

// WritePrometheus writes all metrics of this node in Prometheus text format
func (m *nodeMetrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

func name(metric, nodeID string) string {
	return fmt.Sprintf(`%s{node=%q}`, metric, nodeID)
}
