package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Subsystem: "meetings",
		Name:      "operation_count",
	}, []string{"operation", "result"})
	ConflictCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Subsystem: "meetings",
		Name:      "conflict_count",
	}, []string{"operation"})
	BestEffortErrCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Subsystem: "remote",
		Name:      "best_effort_err_count",
	}, []string{"call"})
	CalendarDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Subsystem: "calendar",
		Name:      "call_duration",
	}, []string{"method"})
	StoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Subsystem: "store",
		Name:      "duration",
	}, []string{"backend", "method"})
	StoreErrCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Subsystem: "store",
		Name:      "err_count",
	}, []string{"backend", "method"})
	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scheduler",
		Subsystem: "worker",
		Name:      "reminders_sent",
	})
)
