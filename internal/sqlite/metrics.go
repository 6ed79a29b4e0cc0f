package sqlite

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

type backendMetrics struct {
	intake      *prometheus.CounterVec
	adoption    *prometheus.CounterVec
	vaccination *prometheus.CounterVec
	auth        *prometheus.CounterVec
	txDuration  *prometheus.HistogramVec
}

func newBackendMetrics(registry prometheus.Registerer) *backendMetrics {
	factory := promauto.With(registry)
	return &backendMetrics{
		intake: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shelter_intake_total",
			Help: "Intake attempts by result",
		}, []string{"result"}),
		adoption: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shelter_adoption_total",
			Help: "Adoption attempts by result",
		}, []string{"result"}),
		vaccination: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shelter_vaccination_total",
			Help: "Vaccination attempts by result",
		}, []string{"result"}),
		auth: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shelter_authentication_total",
			Help: "Authentication attempts by result",
		}, []string{"result"}),
		txDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shelter_transaction_duration_seconds",
			Help:    "Duration of storage transactions by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *backendMetrics) observeTx(op string, d time.Duration) {
	m.txDuration.WithLabelValues(op).Observe(d.Seconds())
}

// resultLabel maps an operation outcome onto a small fixed label set.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrNoCapacity):
		return "no_capacity"
	case errors.Is(err, types.ErrAnimalNotFound):
		return "animal_not_found"
	case errors.Is(err, types.ErrPersonNotFound):
		return "person_not_found"
	case errors.Is(err, types.ErrVaccineNotFound):
		return "vaccine_not_found"
	case errors.Is(err, types.ErrAlreadyAdopted):
		return "already_adopted"
	case errors.Is(err, types.ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, types.ErrInvalidData):
		return "invalid_data"
	default:
		return "error"
	}
}
