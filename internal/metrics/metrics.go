package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/umalmyha/customer-registry/internal/model"
)

// Metrics provides observability for customer registry.
// Tracks store mutations and snapshot rebuilds.
type Metrics struct {
	CustomersSaved    *prometheus.CounterVec
	CustomersDeleted  prometheus.Counter
	SnapshotRebuilds  prometheus.Counter
	SnapshotCustomers prometheus.Gauge
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
}

// New creates Metrics with all metrics registered in reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CustomersSaved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "customers_saved_total",
			Help: "Total number of saved customers by change operation",
		}, []string{"op"}),
		CustomersDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "customers_deleted_total",
			Help: "Total number of deleted customers",
		}),
		SnapshotRebuilds: f.NewCounter(prometheus.CounterOpts{
			Name: "customers_snapshot_rebuilds_total",
			Help: "Total number of customer list rebuilds caused by change notifications",
		}),
		SnapshotCustomers: f.NewGauge(prometheus.GaugeOpts{
			Name: "customers_snapshot_size",
			Help: "Number of customers in the latest snapshot",
		}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "customers_cache_hits_total",
			Help: "Total number of customers served from cache",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "customers_cache_misses_total",
			Help: "Total number of customer cache misses",
		}),
	}
}

// IncrementSaved records successful save
func (m *Metrics) IncrementSaved(op model.ChangeOp) {
	m.CustomersSaved.WithLabelValues(string(op)).Inc()
}

// IncrementDeleted records successful deletion
func (m *Metrics) IncrementDeleted() {
	m.CustomersDeleted.Inc()
}

// ObserveSnapshot records rebuilt snapshot of size n
func (m *Metrics) ObserveSnapshot(n int) {
	m.SnapshotRebuilds.Inc()
	m.SnapshotCustomers.Set(float64(n))
}

// ObserveCache records cache lookup outcome
func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
}
