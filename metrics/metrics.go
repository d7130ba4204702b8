// Package metrics 提供奖金服务的Prometheus指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExternalRequestsTotal 外部系统调用次数
	ExternalRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sales_bonus",
			Subsystem: "external",
			Name:      "requests_total",
			Help:      "Total number of calls to the HR and CRM systems",
		},
		[]string{"system", "operation", "outcome"},
	)

	// ExternalRequestDuration 外部系统调用耗时
	ExternalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sales_bonus",
			Subsystem: "external",
			Name:      "request_duration_seconds",
			Help:      "Duration of calls to the HR and CRM systems in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"system", "operation"},
	)

	// OrdersSyncedTotal 同步写入的订单绩效数量
	OrdersSyncedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sales_bonus",
			Subsystem: "sync",
			Name:      "orders_total",
			Help:      "Total number of order performance records upserted from the CRM",
		},
	)

	// EmployeesSyncedTotal 同步写入的销售员数量
	EmployeesSyncedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sales_bonus",
			Subsystem: "sync",
			Name:      "employees_total",
			Help:      "Total number of salesmen upserted from the HR system",
		},
	)

	// ApprovalsTotal 审批次数
	ApprovalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sales_bonus",
			Subsystem: "approval",
			Name:      "transitions_total",
			Help:      "Total number of approval transitions by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)
)

// Outcome 把错误转换成标签值
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
