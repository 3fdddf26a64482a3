package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"edustream/backend/config"
	"edustream/backend/pkg/metrics"
)

const enrollmentBreakerName = "enrollment-store"

// guardedEnrollments 为选课查询增加超时与熔断
type guardedEnrollments struct {
	inner   EnrollmentChecker
	cb      *gobreaker.CircuitBreaker[bool]
	timeout time.Duration
	logger  *zap.Logger
}

type lookupResult struct {
	ok  bool
	err error
}

// NewGuardedEnrollmentChecker 包装选课查询
//   - 每次查询最多等待 timeout，即使底层实现不响应 ctx 也会按时返回
//   - 失败率达到阈值后熔断，熔断期间直接返回错误，不再访问选课库
func NewGuardedEnrollmentChecker(inner EnrollmentChecker, cfg *config.BreakerConfig, timeout time.Duration, logger *zap.Logger) EnrollmentChecker {
	metrics.CircuitBreakerState.WithLabelValues(enrollmentBreakerName).Set(0)

	minRequests := cfg.MinRequests
	failureRatio := cfg.FailureRatio

	cb := gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        enrollmentBreakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("熔断器状态变化",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})

	return &guardedEnrollments{inner: inner, cb: cb, timeout: timeout, logger: logger}
}

func (g *guardedEnrollments) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	ok, err := g.cb.Execute(func() (bool, error) {
		return g.lookup(ctx, studentID, courseID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.EnrollmentLookups.WithLabelValues("rejected").Inc()
		} else {
			metrics.EnrollmentLookups.WithLabelValues("failure").Inc()
		}
		return false, fmt.Errorf("%w: 选课查询失败: %v", ErrUpstreamUnavailable, err)
	}
	metrics.EnrollmentLookups.WithLabelValues("success").Inc()
	return ok, nil
}

func (g *guardedEnrollments) lookup(ctx context.Context, studentID, courseID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan lookupResult, 1)
	go func() {
		ok, err := g.inner.Exists(ctx, studentID, courseID)
		done <- lookupResult{ok: ok, err: err}
	}()

	select {
	case res := <-done:
		return res.ok, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
