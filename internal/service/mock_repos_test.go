package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"edustream/backend/config"
	"edustream/backend/internal/model"
	"edustream/backend/internal/repository"
	pkgerrors "edustream/backend/pkg/errors"
	"edustream/backend/pkg/storage"
)

// ── Mock CourseRepository ──
// 读写都做深拷贝，Update 校验版本号，行为与 courseRepo 的乐观锁一致

type mockCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*model.Course
	updates int
	// beforeUpdate 在版本校验之前调用（不持锁），用于构造交错写入
	beforeUpdate func(c *model.Course)
	// alwaysConflict 模拟持续的并发写入
	alwaysConflict bool
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course)}
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if course.CourseID == "" {
		course.CourseID = uuid.NewString()
	}
	if course.Lectures == nil {
		course.Lectures = datatypes.JSONSlice[model.Lecture]{}
	}
	if course.Ratings == nil {
		course.Ratings = datatypes.JSONSlice[model.Rating]{}
	}
	if course.Resources == nil {
		course.Resources = datatypes.JSONSlice[string]{}
	}
	course.Version = 1
	course.CreatedAt = time.Now()
	course.UpdatedAt = course.CreatedAt
	m.courses[course.CourseID] = course.Clone()
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.courses[id]; ok {
		return c.Clone(), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) List(_ context.Context, teacherID string, offset, limit int) ([]model.Course, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Course
	for _, c := range m.courses {
		if teacherID != "" && c.TeacherID != teacherID {
			continue
		}
		all = append(all, *c.Clone())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Course{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate(course)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alwaysConflict {
		return pkgerrors.ErrOptimisticLock
	}
	stored, ok := m.courses[course.CourseID]
	if !ok || stored.Version != course.Version {
		return pkgerrors.ErrOptimisticLock
	}
	course.Version++
	course.UpdatedAt = time.Now()
	m.courses[course.CourseID] = course.Clone()
	m.updates++
	return nil
}

func (m *mockCourseRepo) stored(id string) *model.Course {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.courses[id].Clone()
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	mu       sync.Mutex
	enrolled map[string]bool
	calls    int
	err      error
	delay    time.Duration
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{enrolled: make(map[string]bool)}
}

func (m *mockEnrollmentRepo) enroll(studentID, courseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrolled[studentID+"|"+courseID] = true
}

// Exists 故意不响应 ctx，用于验证超时保护
func (m *mockEnrollmentRepo) Exists(_ context.Context, studentID, courseID string) (bool, error) {
	m.mu.Lock()
	m.calls++
	delay, err := m.delay, m.err
	ok := m.enrolled[studentID+"|"+courseID]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (m *mockEnrollmentRepo) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ── Mock ProgressRepository ──

type mockProgressRepo struct {
	mu      sync.Mutex
	records map[string]*model.LectureProgress
}

func newMockProgressRepo() *mockProgressRepo {
	return &mockProgressRepo{records: make(map[string]*model.LectureProgress)}
}

func progressKey(userID, courseID, lectureID string) string {
	return strings.Join([]string{userID, courseID, lectureID}, "|")
}

func (m *mockProgressRepo) Upsert(_ context.Context, p *model.LectureProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := progressKey(p.UserID, p.CourseID, p.LectureID)
	if existing, ok := m.records[key]; ok {
		existing.OffsetSeconds = p.OffsetSeconds
		existing.UpdatedAt = p.UpdatedAt
		return nil
	}
	cp := *p
	cp.ProgressID = uuid.NewString()
	cp.CreatedAt = time.Now()
	m.records[key] = &cp
	return nil
}

func (m *mockProgressRepo) ListByUserAndCourse(_ context.Context, userID, courseID string) ([]model.LectureProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.LectureProgress
	for _, p := range m.records {
		if p.UserID == userID && p.CourseID == courseID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })
	return result, nil
}

func (m *mockProgressRepo) ListByCourse(_ context.Context, courseID string) ([]model.LectureProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.LectureProgress
	for _, p := range m.records {
		if p.CourseID == courseID {
			result = append(result, *p)
		}
	}
	return result, nil
}

// ── 外部协作方 Mock ──

type mockQueue struct {
	mu   sync.Mutex
	jobs []interface{}
	err  error
}

func (m *mockQueue) Enqueue(_ context.Context, _ string, payload interface{}) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.jobs = append(m.jobs, payload)
	return uuid.NewString(), nil
}

type mockIndexer struct {
	mu   sync.Mutex
	docs map[string]map[string]interface{}
	err  error
}

func (m *mockIndexer) IndexDocument(_ context.Context, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.docs == nil {
		m.docs = make(map[string]map[string]interface{})
	}
	m.docs[id] = fields
	return nil
}

type mockBlob struct {
	uploads []string
	err     error
}

func (m *mockBlob) Upload(_ context.Context, r io.Reader, _ int64, kind storage.Kind, folder, filename string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	url := "https://cdn.example.com/" + storage.ObjectKey(kind, folder, filename)
	m.uploads = append(m.uploads, url)
	return url, nil
}

var errMockDown = errors.New("mock: 服务不可用")

// ── 测试环境 ──

const (
	testTeacherID = "teacher-1"
	testStudentID = "student-1"
	testAdminID   = "admin-1"
)

var (
	teacherCaller = &Caller{UserID: testTeacherID, Role: RoleTeacher}
	studentCaller = &Caller{UserID: testStudentID, Role: RoleStudent}
	adminCaller   = &Caller{UserID: testAdminID, Role: RoleAdmin}
)

type testEnv struct {
	svc         *Service
	courses     *mockCourseRepo
	enrollments *mockEnrollmentRepo
	progress    *mockProgressRepo
	queue       *mockQueue
	indexer     *mockIndexer
	blob        *mockBlob
}

func testConfig() *config.Config {
	return &config.Config{
		Queue: config.QueueConfig{TranscodeQueue: "videoProcessing"},
		Course: config.CourseConfig{
			EnrollmentLookupTimeout: 100 * time.Millisecond,
			RatingMaxRetries:        5,
		},
		Breaker: config.BreakerConfig{
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      time.Minute,
			MinRequests:  1000,
			FailureRatio: 0.5,
		},
	}
}

func setupTestEnv() *testEnv {
	return setupTestEnvWithConfig(testConfig())
}

func setupTestEnvWithConfig(cfg *config.Config) *testEnv {
	env := &testEnv{
		courses:     newMockCourseRepo(),
		enrollments: newMockEnrollmentRepo(),
		progress:    newMockProgressRepo(),
		queue:       &mockQueue{},
		indexer:     &mockIndexer{},
		blob:        &mockBlob{},
	}
	repo := &repository.Repository{
		Course:     env.courses,
		Enrollment: env.enrollments,
		Progress:   env.progress,
	}
	env.svc = NewService(cfg, repo, Collaborators{
		Blob:   env.blob,
		Queue:  env.queue,
		Search: env.indexer,
	}, zap.NewNop())
	return env
}

// seedCourse 直接写入一门属于 testTeacherID 的课程，带两个讲次
func (e *testEnv) seedCourse() *model.Course {
	c := &model.Course{
		Title:        "Go 并发编程",
		Description:  "从 goroutine 到 channel",
		DemoVideoURL: "https://cdn.example.com/demo.mp4",
		FullVideoURL: "https://cdn.example.com/full.m3u8",
		TeacherID:    testTeacherID,
		Lectures: datatypes.JSONSlice[model.Lecture]{
			{ID: "lec-1", Title: "第一讲", VideoURL: "https://cdn.example.com/1.mp4"},
			{ID: "lec-2", Title: "第二讲", VideoURL: "https://cdn.example.com/2.mp4"},
		},
		Resources: datatypes.JSONSlice[string]{"https://example.com/slides.pdf"},
	}
	_ = e.courses.Create(context.Background(), c)
	return c
}
