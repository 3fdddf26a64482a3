package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"edustream/backend/internal/dto"
	"edustream/backend/internal/service"
	"edustream/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock CourseService ──

type mockCourseService struct {
	createResult *dto.CreateCourseResponse
	createErr    error
	listResult   []dto.CourseSummaryResponse
	listTotal    int64
	listErr      error
	getResult    dto.CourseView
	getErr       error
	markResult   *dto.CourseFullResponse
	markErr      error

	lastCaller *service.Caller
}

func (m *mockCourseService) Create(_ context.Context, _ *dto.CreateCourseRequest, caller *service.Caller) (*dto.CreateCourseResponse, error) {
	m.lastCaller = caller
	return m.createResult, m.createErr
}
func (m *mockCourseService) List(_ context.Context, _ *dto.CourseListRequest) ([]dto.CourseSummaryResponse, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockCourseService) Get(_ context.Context, _ string, caller *service.Caller) (dto.CourseView, error) {
	m.lastCaller = caller
	return m.getResult, m.getErr
}
func (m *mockCourseService) MarkTranscoded(_ context.Context, _ *dto.TranscodeCompleteRequest, _ *service.Caller) (*dto.CourseFullResponse, error) {
	return m.markResult, m.markErr
}

// ── Mock LectureService ──

type mockLectureService struct {
	result    *dto.LectureResponse
	err       error
	lastVideo []byte
	lastTitle string
}

func (m *mockLectureService) Add(_ context.Context, _ string, req *dto.AddLectureRequest, video *service.MediaFile, _ *service.Caller) (*dto.LectureResponse, error) {
	m.lastTitle = req.Title
	if video != nil {
		m.lastVideo, _ = io.ReadAll(video.Reader)
	}
	return m.result, m.err
}
func (m *mockLectureService) Replace(_ context.Context, _, _ string, _ *dto.ReplaceLectureRequest, _ *service.MediaFile, _ *service.Caller) (*dto.LectureResponse, error) {
	return m.result, m.err
}
func (m *mockLectureService) Remove(_ context.Context, _, _ string, _ *service.Caller) error {
	return m.err
}

// ── Mock ProgressService ──

type mockProgressService struct {
	result     *dto.ProgressResponse
	list       []dto.ProgressResponse
	err        error
	lastOffset float64
}

func (m *mockProgressService) Record(_ context.Context, _ *service.Caller, _, _ string, offset float64) (*dto.ProgressResponse, error) {
	m.lastOffset = offset
	return m.result, m.err
}
func (m *mockProgressService) List(_ context.Context, _ *service.Caller, _ string) ([]dto.ProgressResponse, error) {
	return m.list, m.err
}

// ── Mock RatingService ──

type mockRatingService struct {
	result *dto.RatingAggregateResponse
	err    error
	called bool
}

func (m *mockRatingService) Submit(_ context.Context, _ *service.Caller, _ string, _ int) (*dto.RatingAggregateResponse, error) {
	m.called = true
	return m.result, m.err
}

// ── Mock MediaService ──

type mockMediaService struct {
	result *dto.UploadResponse
	err    error
}

func (m *mockMediaService) Ingest(_ context.Context, _ *service.MediaFile, _ string) (*dto.UploadResponse, error) {
	return m.result, m.err
}
func (m *mockMediaService) IngestInto(_ context.Context, _ *service.MediaFile, _, _ string) (*dto.UploadResponse, error) {
	return m.result, m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportCourseReport(_ context.Context, _ string, _ *service.Caller) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

// withAuth 模拟 JWT 中间件注入身份
func withAuth(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func doJSON(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const testCourseID = "11111111-1111-1111-1111-111111111111"

// ═══════════════════════════════════════════════════════════
// CourseHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCourseHandler_GetCourse_Anonymous(t *testing.T) {
	mock := &mockCourseService{getResult: &dto.CourseDemoResponse{Title: "Go", Access: dto.AccessDemo}}
	h := NewCourseHandler(mock)

	r := gin.New()
	r.GET("/courses/:id", h.GetCourse)
	w := doJSON(r, "GET", "/courses/"+testCourseID, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastCaller != nil {
		t.Errorf("expected anonymous caller, got %+v", mock.lastCaller)
	}
	data := parseResponse(w).Data.(map[string]interface{})
	if data["access"] != "demo" {
		t.Errorf("expected access demo, got %v", data["access"])
	}
	if _, leaked := data["full_video_url"]; leaked {
		t.Error("demo view must not contain full_video_url")
	}
}

func TestCourseHandler_GetCourse_PassesCaller(t *testing.T) {
	mock := &mockCourseService{getResult: &dto.CourseFullResponse{Access: dto.AccessFull}}
	h := NewCourseHandler(mock)

	r := gin.New()
	r.GET("/courses/:id", withAuth("u-1", "student"), h.GetCourse)
	w := doJSON(r, "GET", "/courses/"+testCourseID, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastCaller == nil || mock.lastCaller.UserID != "u-1" || mock.lastCaller.Role != "student" {
		t.Errorf("caller not propagated: %+v", mock.lastCaller)
	}
}

func TestCourseHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHTTP int
		wantCode int
	}{
		{"not found", service.ErrCourseNotFound, http.StatusNotFound, 11001},
		{"not owner", service.ErrNotCourseOwner, http.StatusForbidden, 11002},
		{"create forbidden", service.ErrCourseCreateForbidden, http.StatusForbidden, 11003},
		{"conflict", service.ErrConcurrencyConflict, http.StatusConflict, 11004},
		{"upstream", service.ErrUpstreamUnavailable, http.StatusServiceUnavailable, 11005},
		{"unknown", io.ErrUnexpectedEOF, http.StatusInternalServerError, 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCourseHandler(&mockCourseService{getErr: tt.err})
			r := gin.New()
			r.GET("/courses/:id", h.GetCourse)
			w := doJSON(r, "GET", "/courses/"+testCourseID, nil)

			if w.Code != tt.wantHTTP {
				t.Errorf("expected %d, got %d", tt.wantHTTP, w.Code)
			}
			if tt.wantHTTP != http.StatusInternalServerError && parseResponse(w).Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, parseResponse(w).Code)
			}
		})
	}
}

func TestCourseHandler_CreateCourse(t *testing.T) {
	mock := &mockCourseService{createResult: &dto.CreateCourseResponse{
		Course:   &dto.CourseFullResponse{ID: testCourseID},
		Warnings: []string{"写入搜索索引失败，课程暂不可被搜索"},
	}}
	h := NewCourseHandler(mock)

	r := gin.New()
	r.POST("/courses", withAuth("t-1", "teacher"), h.CreateCourse)
	w := doJSON(r, "POST", "/courses", jsonBody(dto.CreateCourseRequest{
		Title:    "分布式系统",
		VideoURL: "https://cdn.example.com/source.mov",
	}))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := parseResponse(w).Data.(map[string]interface{})
	if warnings, _ := data["warnings"].([]interface{}); len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", data["warnings"])
	}
}

func TestCourseHandler_CreateCourse_Validation(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{})
	r := gin.New()
	r.POST("/courses", withAuth("t-1", "teacher"), h.CreateCourse)

	bodies := []string{
		`not json`,
		`{"description":"no title"}`,
		`{"title":"x","video_url":"not-a-url"}`,
	}
	for _, body := range bodies {
		w := doJSON(r, "POST", "/courses", strings.NewReader(body))
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestCourseHandler_CreateCourse_Unauthenticated(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{})
	r := gin.New()
	r.POST("/courses", h.CreateCourse)

	w := doJSON(r, "POST", "/courses", jsonBody(dto.CreateCourseRequest{Title: "x"}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCourseHandler_ListCourses(t *testing.T) {
	mock := &mockCourseService{
		listResult: []dto.CourseSummaryResponse{{ID: testCourseID, Title: "Go"}},
		listTotal:  1,
	}
	h := NewCourseHandler(mock)
	r := gin.New()
	r.GET("/courses", h.ListCourses)

	w := doJSON(r, "GET", "/courses?page=1&page_size=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := parseResponse(w).Data.(map[string]interface{})
	if data["pagination"] == nil {
		t.Error("expected pagination block")
	}
}

// ═══════════════════════════════════════════════════════════
// LectureHandler Tests
// ═══════════════════════════════════════════════════════════

func TestLectureHandler_AddLecture_JSON(t *testing.T) {
	mock := &mockLectureService{result: &dto.LectureResponse{ID: "lec-9", Position: 2}}
	h := NewLectureHandler(mock)

	r := gin.New()
	r.POST("/courses/:id/lectures", withAuth("t-1", "teacher"), h.AddLecture)
	w := doJSON(r, "POST", "/courses/"+testCourseID+"/lectures", jsonBody(dto.AddLectureRequest{
		Title:    "第三讲",
		VideoURL: "https://cdn.example.com/3.mp4",
	}))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if mock.lastTitle != "第三讲" {
		t.Errorf("expected title forwarded, got %q", mock.lastTitle)
	}
}

func TestLectureHandler_AddLecture_Multipart(t *testing.T) {
	mock := &mockLectureService{result: &dto.LectureResponse{ID: "lec-9"}}
	h := NewLectureHandler(mock)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	_ = mw.WriteField("title", "上传讲次")
	fw, _ := mw.CreateFormFile("video", "lesson.mp4")
	_, _ = fw.Write([]byte("fake-video"))
	_ = mw.Close()

	r := gin.New()
	r.POST("/courses/:id/lectures", withAuth("t-1", "teacher"), h.AddLecture)
	req := httptest.NewRequest("POST", "/courses/"+testCourseID+"/lectures", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if string(mock.lastVideo) != "fake-video" {
		t.Errorf("expected uploaded video forwarded, got %q", mock.lastVideo)
	}
}

func TestLectureHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err      error
		wantHTTP int
	}{
		{service.ErrLectureNotFound, http.StatusNotFound},
		{service.ErrLectureVideoRequired, http.StatusBadRequest},
		{service.ErrNotCourseOwner, http.StatusForbidden},
		{service.ErrConcurrencyConflict, http.StatusConflict},
	}
	for _, tt := range tests {
		h := NewLectureHandler(&mockLectureService{err: tt.err})
		r := gin.New()
		r.PUT("/courses/:id/lectures/:lectureId", withAuth("t-1", "teacher"), h.ReplaceLecture)
		w := doJSON(r, "PUT", "/courses/"+testCourseID+"/lectures/lec-1", strings.NewReader(`{"title":"x"}`))
		if w.Code != tt.wantHTTP {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.wantHTTP, w.Code)
		}
	}
}

func TestLectureHandler_RemoveLecture(t *testing.T) {
	h := NewLectureHandler(&mockLectureService{})
	r := gin.New()
	r.DELETE("/courses/:id/lectures/:lectureId", withAuth("t-1", "teacher"), h.RemoveLecture)

	w := doJSON(r, "DELETE", "/courses/"+testCourseID+"/lectures/missing", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ProgressHandler / RatingHandler Tests
// ═══════════════════════════════════════════════════════════

func TestProgressHandler_RecordProgress(t *testing.T) {
	mock := &mockProgressService{result: &dto.ProgressResponse{Time: 0}}
	h := NewProgressHandler(mock)
	r := gin.New()
	r.POST("/courses/:id/lectures/:lectureId/progress", withAuth("s-1", "student"), h.RecordProgress)
	path := "/courses/" + testCourseID + "/lectures/lec-1/progress"

	if w := doJSON(r, "POST", path, strings.NewReader(`{"time":0}`)); w.Code != http.StatusOK {
		t.Errorf("time=0 expected 200, got %d", w.Code)
	}
	if w := doJSON(r, "POST", path, strings.NewReader(`{}`)); w.Code != http.StatusBadRequest {
		t.Errorf("missing time expected 400, got %d", w.Code)
	}
	if w := doJSON(r, "POST", path, strings.NewReader(`{"time":"abc"}`)); w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric time expected 400, got %d", w.Code)
	}

	mock.err = service.ErrInvalidOffset
	if w := doJSON(r, "POST", path, strings.NewReader(`{"time":-1}`)); w.Code != http.StatusBadRequest {
		t.Errorf("negative time expected 400, got %d", w.Code)
	}
	if mock.lastOffset != -1 {
		t.Errorf("expected offset forwarded, got %v", mock.lastOffset)
	}
}

func TestProgressHandler_Unauthenticated(t *testing.T) {
	h := NewProgressHandler(&mockProgressService{})
	r := gin.New()
	r.GET("/courses/:id/progress", h.ListProgress)

	if w := doJSON(r, "GET", "/courses/"+testCourseID+"/progress", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestRatingHandler_SubmitRating(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantHTTP int
		wantCall bool
	}{
		{"ok", `{"rating":4}`, nil, http.StatusOK, true},
		{"fractional", `{"rating":4.5}`, nil, http.StatusBadRequest, false},
		{"missing", `{}`, nil, http.StatusBadRequest, false},
		{"out of range", `{"rating":6}`, service.ErrInvalidRating, http.StatusBadRequest, true},
		{"not enrolled", `{"rating":3}`, service.ErrNotEnrolled, http.StatusForbidden, true},
		{"conflict", `{"rating":3}`, service.ErrRatingConflict, http.StatusConflict, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockRatingService{result: &dto.RatingAggregateResponse{AverageRating: 4, RatingCount: 1}, err: tt.err}
			h := NewRatingHandler(mock)
			r := gin.New()
			r.POST("/courses/:id/rate", withAuth("s-1", "student"), h.SubmitRating)

			w := doJSON(r, "POST", "/courses/"+testCourseID+"/rate", strings.NewReader(tt.body))
			if w.Code != tt.wantHTTP {
				t.Errorf("expected %d, got %d", tt.wantHTTP, w.Code)
			}
			if mock.called != tt.wantCall {
				t.Errorf("expected service called=%v, got %v", tt.wantCall, mock.called)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// MediaHandler / ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestMediaHandler_Upload(t *testing.T) {
	h := NewMediaHandler(&mockMediaService{result: &dto.UploadResponse{URL: "https://cdn.example.com/a.png", Kind: "image"}})
	r := gin.New()
	r.POST("/courses/upload", withAuth("t-1", "teacher"), h.Upload)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	_ = mw.WriteField("kind", "image")
	fw, _ := mw.CreateFormFile("file", "a.png")
	_, _ = fw.Write([]byte("png"))
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/courses/upload", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	if w := doJSON(r, "POST", "/courses/upload", strings.NewReader(`{}`)); w.Code != http.StatusBadRequest {
		t.Errorf("non-multipart expected 400, got %d", w.Code)
	}
}

func TestExportHandler_ExportCourseReport(t *testing.T) {
	h := NewExportHandler(&mockExportService{buf: bytes.NewBufferString("xlsx"), filename: "课程报告_Go.xlsx"})
	r := gin.New()
	r.GET("/courses/:id/report/export", withAuth("t-1", "teacher"), h.ExportCourseReport)

	w := doJSON(r, "GET", "/courses/"+testCourseID+"/report/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename*=UTF-8''") {
		t.Errorf("unexpected content disposition %s", cd)
	}

	h = NewExportHandler(&mockExportService{err: service.ErrNotCourseOwner})
	r = gin.New()
	r.GET("/courses/:id/report/export", withAuth("s-1", "student"), h.ExportCourseReport)
	if w := doJSON(r, "GET", "/courses/"+testCourseID+"/report/export", nil); w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}
