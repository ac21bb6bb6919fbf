package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AssignmentMetrics records assignment lifecycle transitions.
type AssignmentMetrics struct {
	transitions *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	expired     prometheus.Counter
}

// NewAssignmentMetrics registers the assignment metrics on the provided registerer.
func NewAssignmentMetrics(reg prometheus.Registerer) *AssignmentMetrics {
	if reg == nil {
		return &AssignmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_transitions_total",
		Help: "Assignment status transitions by service type and target status.",
	}, []string{"service_type", "status"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_conflicts_total",
		Help: "Assignment operations rejected by concurrency guards.",
	}, []string{"operation"})
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assignments_expired_total",
		Help: "Pending assignments recycled by the expiry sweep.",
	})
	reg.MustRegister(transitions, conflicts, expired)
	return &AssignmentMetrics{
		transitions: transitions,
		conflicts:   conflicts,
		expired:     expired,
	}
}

// IncTransition records a successful lifecycle transition.
func (m *AssignmentMetrics) IncTransition(serviceType, status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(serviceType), normalizeLabel(status)).Inc()
}

// IncConflict records an operation lost to a concurrent writer.
func (m *AssignmentMetrics) IncConflict(operation string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

// AddExpired records pending assignments recycled by the sweep.
func (m *AssignmentMetrics) AddExpired(n int) {
	if m == nil || m.expired == nil || n <= 0 {
		return
	}
	m.expired.Add(float64(n))
}
