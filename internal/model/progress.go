package model

import "time"

// LectureProgress 播放进度：对应 lecture_progress
// (user_id, course_id, lecture_id) 唯一，后写覆盖先写
type LectureProgress struct {
	ProgressID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"              json:"progress_id"`
	UserID        string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_lecture_progress_key" json:"user_id"`
	CourseID      string    `gorm:"type:uuid;not null;uniqueIndex:uk_lecture_progress_key"        json:"course_id"`
	LectureID     string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_lecture_progress_key" json:"lecture_id"`
	OffsetSeconds float64   `gorm:"not null"                                                      json:"offset_seconds"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                            json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                            json:"updated_at"`
}

// TableName 指定表名
func (LectureProgress) TableName() string { return "lecture_progress" }
