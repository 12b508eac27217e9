/*
metrics.go - Prometheus counters for the points economy

PURPOSE:
  Operational counters for the workflows that move points. Registered on
  the default registry and exposed on /metrics by the router.
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	redemptionsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "points_redemptions_created_total",
		Help: "Redemptions created, labeled by the status they entered in.",
	}, []string{"status"})

	redemptionDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "points_redemption_decisions_total",
		Help: "Approve/reject decisions applied to pending redemptions.",
	}, []string{"decision"})

	taskCreditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "points_task_credits_total",
		Help: "Task completions that credited the assignee's balance.",
	})

	insufficientBalanceTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "points_insufficient_balance_total",
		Help: "Debits refused because the balance would have gone negative.",
	})
)
