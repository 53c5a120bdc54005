package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawboard",
			Name:      "fetch_total",
			Help:      "Count of upstream fetches by kind and result.",
		},
		[]string{"kind", "result"},
	)

	staleDiscards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawboard",
			Name:      "stale_response_discarded_total",
			Help:      "Count of fetch responses discarded because the window moved on.",
		},
		[]string{"kind"},
	)

	unclassifiedBookings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pawboard",
			Name:      "unclassified_bookings_total",
			Help:      "Count of booking rows whose service label matched no bucket.",
		},
	)

	actionDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawboard",
			Name:      "action_dispatched_total",
			Help:      "Count of admin actions dispatched to the daycare server.",
		},
		[]string{"action"},
	)

	actionDeclined = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawboard",
			Name:      "action_declined_total",
			Help:      "Count of admin actions stopped at the confirmation gate.",
		},
		[]string{"action"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawboard",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(fetchTotal, staleDiscards, unclassifiedBookings, actionDispatched, actionDeclined, httpRequests)
	})
}

func IncFetch(kind, result string) {
	fetchTotal.WithLabelValues(kind, result).Inc()
}

func IncStaleDiscard(kind string) {
	staleDiscards.WithLabelValues(kind).Inc()
}

func AddUnclassified(n int) {
	unclassifiedBookings.Add(float64(n))
}

func IncActionDispatched(action string) {
	actionDispatched.WithLabelValues(action).Inc()
}

func IncActionDeclined(action string) {
	actionDeclined.WithLabelValues(action).Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
