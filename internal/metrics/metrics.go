package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors
type Metrics struct {
	AdmissionAllowed     prometheus.Counter
	AdmissionRejected    prometheus.Counter
	DirectorySubscribers prometheus.Gauge
	SubscribersEvicted   prometheus.Counter
	RoomsByStage         *prometheus.GaugeVec
	Transitions          prometheus.Counter
	TransitionAborts     prometheus.Counter
}

// New registers the server's collectors with the given registerer.
// Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AdmissionAllowed: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_admission_allowed_total",
			Help: "Requests admitted by the rate limit gate",
		}),
		AdmissionRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_admission_rejected_total",
			Help: "Requests rejected by the rate limit gate",
		}),
		DirectorySubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arena_directory_subscribers",
			Help: "Currently connected directory subscribers",
		}),
		SubscribersEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_directory_subscribers_evicted_total",
			Help: "Directory subscribers disconnected for not draining their stream",
		}),
		RoomsByStage: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arena_rooms",
			Help: "Live room instances by pipeline stage",
		}, []string{"stage"}),
		Transitions: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_transitions_total",
			Help: "Completed group transitions between pipeline stages",
		}),
		TransitionAborts: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_transition_aborts_total",
			Help: "Transitions abandoned after exhausting retries",
		}),
	}
}
