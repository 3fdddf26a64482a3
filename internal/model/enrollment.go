package model

import "time"

// Enrollment 选课记录：对应 enrollments
// 由支付服务写入，(student_id, course_id) 唯一
type Enrollment struct {
	EnrollmentID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"                     json:"enrollment_id"`
	StudentID    string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_enrollments_student_course" json:"student_id"`
	CourseID     string    `gorm:"type:uuid;not null;uniqueIndex:uk_enrollments_student_course"        json:"course_id"`
	EnrolledAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                                  json:"enrolled_at"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }
