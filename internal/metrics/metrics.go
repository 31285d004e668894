package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	MembershipTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "projectstack_membership_transitions_total", Help: "Application state transitions by outcome"},
		[]string{"transition", "outcome"},
	)
	LikeToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "projectstack_like_toggles_total", Help: "Like toggles by resulting state"},
		[]string{"state"},
	)
	NotificationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "projectstack_notifications_dropped_total", Help: "Best-effort notifications that failed to persist"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "projectstack_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(MembershipTransitions, LikeToggles, NotificationsDropped, HTTPRequestDuration)
}
