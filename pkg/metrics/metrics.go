package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 课程核心的 Prometheus 指标，经 GET /metrics 暴露

var (
	// HTTPRequests 按路由与状态码统计请求数
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_core_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration 请求耗时
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "course_core_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// EntitlementDecisions 访问级别判定结果，reason: anonymous/owner/enrolled/unentitled/lookup_failed
	EntitlementDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_core_entitlement_decisions_total",
			Help: "Entitlement decisions by resulting access level and reason",
		},
		[]string{"access", "reason"},
	)

	// EnrollmentLookups 选课查询结果：success/failure/rejected
	EnrollmentLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_core_enrollment_lookups_total",
			Help: "Enrollment store lookups by outcome",
		},
		[]string{"outcome"},
	)

	// CircuitBreakerState 熔断器状态 (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "course_core_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CourseWriteConflicts 课程文档乐观锁冲突次数，op: rating/lecture/transcode
	CourseWriteConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_core_course_write_conflicts_total",
			Help: "Optimistic lock conflicts on course document writes",
		},
		[]string{"op"},
	)

	// IngestionWarnings 课程创建后的旁路失败（队列 / 索引）
	IngestionWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_core_ingestion_warnings_total",
			Help: "Non-fatal failures after course creation by collaborator",
		},
		[]string{"collaborator"},
	)

	// ProgressWrites 进度上报写入次数
	ProgressWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "course_core_progress_writes_total",
			Help: "Total number of accepted playback progress writes",
		},
	)
)
