package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// NotificationsTotal counts webhook notifications handled, valid or not.
	NotificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskchain_notifications_total",
		Help: "Webhook notifications processed.",
	})

	// SuccessorsCreatedTotal counts successor tasks created by the dispatcher.
	SuccessorsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskchain_successors_created_total",
		Help: "Successor tasks created from chain rules.",
	})

	// SuccessorsSkippedTotal counts successor creations skipped because the
	// task already existed in the target list.
	SuccessorsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskchain_successors_skipped_total",
		Help: "Successor creations skipped by the existence check.",
	})

	// RecurringTasksCreatedTotal counts tasks created by scheduled jobs.
	RecurringTasksCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskchain_recurring_tasks_created_total",
		Help: "Tasks created by recurring jobs.",
	})

	// SubscriptionsRenewedTotal counts webhook subscription renewals.
	SubscriptionsRenewedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskchain_subscriptions_renewed_total",
		Help: "Webhook subscriptions renewed before expiry.",
	})

	// OperationFailuresTotal counts failed operations by failure kind.
	OperationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskchain_operation_failures_total",
		Help: "Failed operations by failure kind.",
	}, []string{"kind"})
)

// Handler exposes the default Prometheus registry for a gin route.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
