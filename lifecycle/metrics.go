package lifecycle

import (
	"time"

	"github.com/fiware/agent-trust-registry/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the credential request lifecycle
type Metrics struct {
	Transitions      *prometheus.CounterVec
	Failures         *prometheus.CounterVec
	AgentTrustScore  *prometheus.GaugeVec
	ApprovalDuration prometheus.Histogram
}

// NewMetrics creates the metrics and registers them at the given registerer
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trust_registry_request_transitions_total",
				Help: "Total number of credential requests moved into a status",
			},
			[]string{"type", "status"}, // status: PENDING, APPROVED, REJECTED
		),
		Failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trust_registry_request_failures_total",
				Help: "Total number of failed lifecycle operations",
			},
			[]string{"operation", "reason"}, // reason: validation, invalid_state, not_found, persistence, upstream
		),
		AgentTrustScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trust_registry_agent_trust_score",
				Help: "Trust score of an agent as set by the last approval",
			},
			[]string{"agent_id"},
		),
		ApprovalDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trust_registry_approval_duration_seconds",
				Help:    "Duration of credential approvals, including issuance at the did registry",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (m *Metrics) transition(credentialType model.CredentialType, status model.RequestStatus) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(string(credentialType), string(status)).Inc()
}

func (m *Metrics) failure(operation string, err error) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(operation, failureReason(err)).Inc()
}

func (m *Metrics) approved(agentId string, trustScore int, started time.Time) {
	if m == nil {
		return
	}
	m.AgentTrustScore.WithLabelValues(agentId).Set(float64(trustScore))
	m.ApprovalDuration.Observe(time.Since(started).Seconds())
}

func failureReason(err error) string {
	switch err.(type) {
	case *model.ValidationError:
		return "validation"
	case *model.InvalidStateError:
		return "invalid_state"
	case *model.NotFoundError:
		return "not_found"
	case *model.UpstreamError:
		return "upstream"
	default:
		return "persistence"
	}
}
