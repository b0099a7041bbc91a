package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics tracks the notification dispatcher. Labels use the
// subscriber class (role:view), never the subscriber id.
type DispatchMetrics struct {
	emitted       *prometheus.CounterVec
	fetchFailures prometheus.Counter
	headRevision  prometheus.Gauge
	subscribers   prometheus.Gauge
}

// NewDispatchMetrics registers the dispatcher metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	emitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_emitted_total",
		Help:      "Notifications created by the dispatcher.",
	}, []string{"class", "kind"})
	fetchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatch_fetch_failures_total",
		Help:      "Poll cycles skipped because the order source was unavailable.",
	})
	headRevision := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dispatch_head_revision",
		Help:      "Latest order revision observed by the dispatcher.",
	})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dispatch_subscribers",
		Help:      "Subscriptions evaluated in the last poll.",
	})
	reg.MustRegister(emitted, fetchFailures, headRevision, subscribers)
	return &DispatchMetrics{
		emitted:       emitted,
		fetchFailures: fetchFailures,
		headRevision:  headRevision,
		subscribers:   subscribers,
	}
}

// IncEmitted counts one notification for the class and kind.
func (d *DispatchMetrics) IncEmitted(class, kind string) {
	if d == nil || d.emitted == nil {
		return
	}
	d.emitted.WithLabelValues(normalizeLabel(class), normalizeLabel(kind)).Inc()
}

// IncFetchFailure counts a poll whose fetch failed.
func (d *DispatchMetrics) IncFetchFailure() {
	if d == nil || d.fetchFailures == nil {
		return
	}
	d.fetchFailures.Inc()
}

// SetHeadRevision records the latest revision seen.
func (d *DispatchMetrics) SetHeadRevision(revision int64) {
	if d == nil || d.headRevision == nil {
		return
	}
	d.headRevision.Set(float64(revision))
}

// SetSubscribers records how many subscriptions were evaluated.
func (d *DispatchMetrics) SetSubscribers(count int) {
	if d == nil || d.subscribers == nil {
		return
	}
	d.subscribers.Set(float64(count))
}
