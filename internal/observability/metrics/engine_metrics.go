package metrics

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	pkgdb "github.com/smallbiznis/stockroute/pkg/db"
)

// Config carries the constant labels attached to every engine metric.
type Config struct {
	ServiceName string
	Environment string
}

const (
	StoreErrorReasonLockTimeout          = "lock_timeout"
	StoreErrorReasonSerializationFailure = "serialization_failure"
	StoreErrorReasonUniqueViolation      = "unique_violation"
	StoreErrorReasonForeignKeyViolation  = "foreign_key_violation"
	StoreErrorReasonUnavailable          = "unavailable"
	StoreErrorReasonDeadlineExceeded     = "deadline_exceeded"
	StoreErrorReasonUnknown              = "unknown"
)

// EngineMetrics counts allocation and fulfillment outcomes.
type EngineMetrics struct {
	ordersCompleted      prometheus.Counter
	unitsMoved           prometheus.Counter
	reservationConflicts prometheus.Counter
	shortfalls           *prometheus.CounterVec
	criticalBreach       *prometheus.GaugeVec
	storeErrors          *prometheus.CounterVec
}

func NewEngineMetrics(registerer prometheus.Registerer, cfg Config) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "stockroute"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &EngineMetrics{
		ordersCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "stockroute_orders_completed_total",
			Help:        "Orders transitioned from open to completed.",
			ConstLabels: constLabels,
		}),
		unitsMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "stockroute_units_moved_total",
			Help:        "Units recorded in movement history at completion.",
			ConstLabels: constLabels,
		}),
		reservationConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "stockroute_reservation_conflicts_total",
			Help:        "Reservations rejected because a unit was no longer free.",
			ConstLabels: constLabels,
		}),
		shortfalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stockroute_allocation_shortfalls_total",
			Help:        "Committed reservations that left a line item below its requested quantity.",
			ConstLabels: constLabels,
		}, []string{"type"}),
		criticalBreach: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "stockroute_critical_breach",
			Help:        "1 when functional stock of the type was below its critical level at the last statistics read.",
			ConstLabels: constLabels,
		}, []string{"business", "type"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stockroute_store_errors_total",
			Help:        "Failed engine transactions by operation and low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"operation", "reason"}),
	}

	registerer.MustRegister(
		m.ordersCompleted,
		m.unitsMoved,
		m.reservationConflicts,
		m.shortfalls,
		m.criticalBreach,
		m.storeErrors,
	)
	return m
}

func (m *EngineMetrics) RecordCompletion(moved int) {
	if m == nil {
		return
	}
	m.ordersCompleted.Inc()
	if moved > 0 {
		m.unitsMoved.Add(float64(moved))
	}
}

func (m *EngineMetrics) IncReservationConflict() {
	if m == nil {
		return
	}
	m.reservationConflicts.Inc()
}

func (m *EngineMetrics) IncShortfall(typeName string) {
	if m == nil {
		return
	}
	m.shortfalls.WithLabelValues(typeName).Inc()
}

// SetCriticalBreach records the current breach state of a (business, type)
// pair. Repeated reads overwrite the value.
func (m *EngineMetrics) SetCriticalBreach(business, typeName string, breached bool) {
	if m == nil {
		return
	}
	value := 0.0
	if breached {
		value = 1
	}
	m.criticalBreach.WithLabelValues(business, typeName).Set(value)
}

// IncStoreError counts a failed transaction. Domain rule violations are not
// store errors and should not be passed here.
func (m *EngineMetrics) IncStoreError(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation, ClassifyStoreError(err)).Inc()
}

// ClassifyStoreError maps a store failure onto a fixed reason label.
func ClassifyStoreError(err error) string {
	if err == nil {
		return StoreErrorReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StoreErrorReasonDeadlineExceeded
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return StoreErrorReasonLockTimeout
		case "40001", "40P01":
			return StoreErrorReasonSerializationFailure
		}
	}

	switch {
	case pkgdb.IsDuplicateKeyErr(err) || errors.Is(err, pkgdb.ErrDuplicateKey):
		return StoreErrorReasonUniqueViolation
	case pkgdb.IsForeignKeyErr(err) || errors.Is(err, pkgdb.ErrForeignKeyConflict):
		return StoreErrorReasonForeignKeyViolation
	case pkgdb.IsUnavailableErr(err) || errors.Is(err, pkgdb.ErrStoreUnavailable):
		return StoreErrorReasonUnavailable
	}
	return StoreErrorReasonUnknown
}
