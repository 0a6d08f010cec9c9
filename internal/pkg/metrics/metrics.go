package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	invitationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_invitation_transitions_total",
			Help: "Invitation state transitions by target status",
		},
		[]string{"status"},
	)
	membershipJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_membership_joins_total",
			Help: "Membership joins by whether an association was added",
		},
		[]string{"added"},
	)
	emailDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_email_dispatch_total",
			Help: "Outgoing emails by template and outcome",
		},
		[]string{"template", "success"},
	)
)

// RecordInvitationTransition counts n invitations moved to status.
func RecordInvitationTransition(status string, n int64) {
	if n <= 0 {
		return
	}
	invitationTransitions.WithLabelValues(status).Add(float64(n))
}

func RecordMembershipJoin(added bool) {
	membershipJoins.WithLabelValues(strconv.FormatBool(added)).Inc()
}

func RecordEmailDispatch(template string, success bool) {
	emailDispatches.WithLabelValues(template, strconv.FormatBool(success)).Inc()
}
