package model

import (
	"time"

	"gorm.io/datatypes"
)

// Course 课程文档：对应 courses
// 讲次、评分、资源链接均内嵌为 JSONB，随课程整体读写
type Course struct {
	CourseID         string                        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	Title            string                        `gorm:"type:varchar(200);not null"                     json:"title"`
	Description      string                        `gorm:"type:text;not null;default:''"                  json:"description"`
	ShortDescription string                        `gorm:"type:varchar(500);not null;default:''"          json:"short_description"`
	Thumbnail        string                        `gorm:"type:text;not null;default:''"                  json:"thumbnail"`
	DemoVideoURL     string                        `gorm:"type:text;not null;default:''"                  json:"demo_video_url"`
	SourceVideoURL   string                        `gorm:"type:text;not null;default:''"                  json:"source_video_url"`
	FullVideoURL     string                        `gorm:"type:text;not null;default:''"                  json:"full_video_url"` // 转码完成后回填
	TeacherID        string                        `gorm:"type:varchar(64);not null;index"                json:"teacher_id"`
	Lectures         datatypes.JSONSlice[Lecture]  `gorm:"type:jsonb;not null;default:'[]'"               json:"lectures"`
	Ratings          datatypes.JSONSlice[Rating]   `gorm:"type:jsonb;not null;default:'[]'"               json:"ratings"`
	Resources        datatypes.JSONSlice[string]   `gorm:"type:jsonb;not null;default:'[]'"               json:"resources"`
	AverageRating    float64                       `gorm:"not null;default:0"                             json:"average_rating"`
	RatingCount      int                           `gorm:"not null;default:0"                             json:"rating_count"`
	VersionedModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// Lecture 讲次，仅存在于所属课程内部
// ID 分配后不再变化；位置即其在 Lectures 中的下标
type Lecture struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	VideoURL  string `json:"video_url"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Rating 单个学员对课程的评分，每个 RaterID 至多一条
type Rating struct {
	RaterID string    `json:"rater_id"`
	Value   int       `json:"value"`
	RatedAt time.Time `json:"rated_at"`
}

// LectureIndex 返回讲次下标，不存在时返回 -1
func (c *Course) LectureIndex(lectureID string) int {
	for i := range c.Lectures {
		if c.Lectures[i].ID == lectureID {
			return i
		}
	}
	return -1
}

// UpsertRating 写入评分：已评分则覆盖，否则追加；随后重算均分
func (c *Course) UpsertRating(raterID string, value int, at time.Time) {
	replaced := false
	for i := range c.Ratings {
		if c.Ratings[i].RaterID == raterID {
			c.Ratings[i].Value = value
			c.Ratings[i].RatedAt = at
			replaced = true
			break
		}
	}
	if !replaced {
		c.Ratings = append(c.Ratings, Rating{RaterID: raterID, Value: value, RatedAt: at})
	}
	c.RecomputeRating()
}

// RecomputeRating 按当前评分集合重算均分与人数，空集合时均分为 0
func (c *Course) RecomputeRating() {
	c.RatingCount = len(c.Ratings)
	if c.RatingCount == 0 {
		c.AverageRating = 0
		return
	}
	sum := 0
	for _, r := range c.Ratings {
		sum += r.Value
	}
	c.AverageRating = float64(sum) / float64(c.RatingCount)
}

// Clone 深拷贝，内嵌切片不与原对象共享底层数组
func (c *Course) Clone() *Course {
	cp := *c
	cp.Lectures = append(datatypes.JSONSlice[Lecture]{}, c.Lectures...)
	cp.Ratings = append(datatypes.JSONSlice[Rating]{}, c.Ratings...)
	cp.Resources = append(datatypes.JSONSlice[string]{}, c.Resources...)
	return &cp
}
