package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"edustream/backend/internal/dto"
	"edustream/backend/internal/model"
	"edustream/backend/internal/repository"
	"edustream/backend/pkg/storage"
)

// ── 讲次模块业务错误 ──

var (
	ErrLectureNotFound      = errors.New("讲次不存在")
	ErrLectureVideoRequired = errors.New("请提供讲次视频地址或上传视频文件")
)

// LectureService 讲次业务接口
// 讲次只存在于课程文档内部，所有修改都走 mutateCourse，保证并发下不丢更新
type LectureService interface {
	Add(ctx context.Context, courseID string, req *dto.AddLectureRequest, video *MediaFile, caller *Caller) (*dto.LectureResponse, error)
	Replace(ctx context.Context, courseID, lectureID string, req *dto.ReplaceLectureRequest, video *MediaFile, caller *Caller) (*dto.LectureResponse, error)
	Remove(ctx context.Context, courseID, lectureID string, caller *Caller) error
}

type lectureService struct {
	repo       *repository.Repository
	media      MediaService
	maxRetries int
	logger     *zap.Logger
}

// NewLectureService 创建 LectureService 实例
func NewLectureService(repo *repository.Repository, media MediaService, maxRetries int, logger *zap.Logger) LectureService {
	return &lectureService{repo: repo, media: media, maxRetries: maxRetries, logger: logger}
}

// ────────────────────── Add ──────────────────────

// Add 追加讲次到末尾，返回新讲次（含分配的 ID 与位置）
func (s *lectureService) Add(ctx context.Context, courseID string, req *dto.AddLectureRequest, video *MediaFile, caller *Caller) (*dto.LectureResponse, error) {
	if err := s.authorize(ctx, courseID, caller); err != nil {
		return nil, err
	}

	videoURL := req.VideoURL
	if video != nil {
		uploaded, err := s.uploadLectureVideo(ctx, courseID, video)
		if err != nil {
			return nil, err
		}
		videoURL = uploaded
	}
	if videoURL == "" {
		return nil, ErrLectureVideoRequired
	}

	lecture := model.Lecture{
		ID:        uuid.NewString(),
		Title:     req.Title,
		VideoURL:  videoURL,
		Thumbnail: req.Thumbnail,
	}

	var position int
	_, err := s.mutate(ctx, courseID, "lecture_add", caller, func(c *model.Course) error {
		c.Lectures = append(c.Lectures, lecture)
		position = len(c.Lectures) - 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("讲次已新增",
		zap.String("course_id", courseID),
		zap.String("lecture_id", lecture.ID),
		zap.Int("position", position),
	)
	resp := toLectureResponse(&lecture, position)
	return &resp, nil
}

// ────────────────────── Replace ──────────────────────

// Replace 原位替换讲次内容，ID 与位置保持不变
func (s *lectureService) Replace(ctx context.Context, courseID, lectureID string, req *dto.ReplaceLectureRequest, video *MediaFile, caller *Caller) (*dto.LectureResponse, error) {
	if err := s.authorize(ctx, courseID, caller); err != nil {
		return nil, err
	}

	videoURL := req.VideoURL
	if video != nil {
		uploaded, err := s.uploadLectureVideo(ctx, courseID, video)
		if err != nil {
			return nil, err
		}
		videoURL = &uploaded
	}

	var (
		updated  model.Lecture
		position int
	)
	_, err := s.mutate(ctx, courseID, "lecture_replace", caller, func(c *model.Course) error {
		idx := c.LectureIndex(lectureID)
		if idx < 0 {
			return ErrLectureNotFound
		}
		l := &c.Lectures[idx]
		if req.Title != nil {
			l.Title = *req.Title
		}
		if videoURL != nil {
			l.VideoURL = *videoURL
		}
		if req.Thumbnail != nil {
			l.Thumbnail = *req.Thumbnail
		}
		updated = *l
		position = idx
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("讲次已替换", zap.String("course_id", courseID), zap.String("lecture_id", lectureID))
	resp := toLectureResponse(&updated, position)
	return &resp, nil
}

// ────────────────────── Remove ──────────────────────

// Remove 删除讲次，其余讲次相对顺序不变
// 讲次不存在时静默成功，课程不做任何修改
func (s *lectureService) Remove(ctx context.Context, courseID, lectureID string, caller *Caller) error {
	_, err := s.mutate(ctx, courseID, "lecture_remove", caller, func(c *model.Course) error {
		idx := c.LectureIndex(lectureID)
		if idx < 0 {
			return errNoChange
		}
		c.Lectures = append(c.Lectures[:idx], c.Lectures[idx+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("讲次已删除", zap.String("course_id", courseID), zap.String("lecture_id", lectureID))
	return nil
}

// ────────────────────── 内部辅助 ──────────────────────

// authorize 预检课程存在与操作权限，避免无权调用方触发视频上传
func (s *lectureService) authorize(ctx context.Context, courseID string, caller *Caller) error {
	if caller == nil {
		return ErrUnauthenticated
	}
	course, err := loadCourse(ctx, s.repo.Course, courseID, s.logger)
	if err != nil {
		return err
	}
	if !canManageCourse(caller, course) {
		return ErrNotCourseOwner
	}
	return nil
}

// mutate 在每次重放时都重新校验权限
func (s *lectureService) mutate(ctx context.Context, courseID, op string, caller *Caller, apply func(c *model.Course) error) (*model.Course, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	return mutateCourse(ctx, s.repo.Course, courseID, s.maxRetries, op, s.logger, func(c *model.Course) error {
		if !canManageCourse(caller, c) {
			return ErrNotCourseOwner
		}
		if err := apply(c); err != nil {
			return err
		}
		c.UpdatedBy = &caller.UserID
		return nil
	})
}

func (s *lectureService) uploadLectureVideo(ctx context.Context, courseID string, video *MediaFile) (string, error) {
	resp, err := s.media.IngestInto(ctx, video, string(storage.KindVideo), "courses/"+courseID)
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}
