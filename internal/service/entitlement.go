package service

import (
	"context"

	"go.uber.org/zap"

	"edustream/backend/internal/dto"
	"edustream/backend/internal/model"
	"edustream/backend/pkg/metrics"
)

// 访问级别
const (
	AccessDemo = dto.AccessDemo
	AccessFull = dto.AccessFull
)

// Standing 调用方相对于某门课程的身份，封闭集合
type Standing int

const (
	StandingAnonymous Standing = iota
	StandingOwner
	StandingEnrolled
	StandingUnentitled
)

func (s Standing) String() string {
	switch s {
	case StandingAnonymous:
		return "anonymous"
	case StandingOwner:
		return "owner"
	case StandingEnrolled:
		return "enrolled"
	default:
		return "unentitled"
	}
}

// DecideAccess 由身份决定访问级别：只有课程所有者与已选课学员可见完整内容
func DecideAccess(s Standing) string {
	switch s {
	case StandingOwner, StandingEnrolled:
		return AccessFull
	default:
		return AccessDemo
	}
}

// ClassifyCaller 按固定优先级归类调用方：匿名 > 所有者 > 已选课 > 未授权
// 前两级命中时不会触发选课查询；查询失败时归为未授权并返回错误供调用方记录
func ClassifyCaller(caller *Caller, teacherID string, enrolled func() (bool, error)) (Standing, error) {
	if caller == nil || caller.UserID == "" {
		return StandingAnonymous, nil
	}
	if caller.UserID == teacherID {
		return StandingOwner, nil
	}
	ok, err := enrolled()
	if err != nil {
		return StandingUnentitled, err
	}
	if ok {
		return StandingEnrolled, nil
	}
	return StandingUnentitled, nil
}

// EntitlementResolver 课程访问级别判定
type EntitlementResolver struct {
	enrollments EnrollmentChecker
	logger      *zap.Logger
}

// NewEntitlementResolver 创建访问判定器
// enrollments 应已带超时保护（见 NewGuardedEnrollmentChecker）
func NewEntitlementResolver(enrollments EnrollmentChecker, logger *zap.Logger) *EntitlementResolver {
	return &EntitlementResolver{enrollments: enrollments, logger: logger}
}

// Resolve 返回 demo 或 full，只读无副作用
// 选课查询失败或超时一律按 demo 处理，不向上传播错误
func (r *EntitlementResolver) Resolve(ctx context.Context, course *model.Course, caller *Caller) string {
	standing, err := ClassifyCaller(caller, course.TeacherID, func() (bool, error) {
		return r.enrollments.Exists(ctx, caller.UserID, course.CourseID)
	})

	reason := standing.String()
	if err != nil {
		reason = "lookup_failed"
		r.logger.Warn("选课查询失败，降级为试看",
			zap.String("course_id", course.CourseID),
			zap.String("user_id", caller.UserID),
			zap.Error(err),
		)
	}

	access := DecideAccess(standing)
	metrics.EntitlementDecisions.WithLabelValues(access, reason).Inc()
	return access
}
