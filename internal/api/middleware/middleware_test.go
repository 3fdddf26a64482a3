package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"edustream/backend/config"
	"edustream/backend/pkg/jwt"
)

const (
	testSecret = "middleware-test-secret-0123456789"
	testIssuer = "edustream-auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{JWTSecret: testSecret, Issuer: testIssuer})
}

func bearer(t *testing.T, userID, role string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	token, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwt.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwtv5.RegisteredClaims{
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
			Issuer:    testIssuer,
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("签发测试 Token 失败: %v", err)
	}
	return "Bearer " + token
}

// whoami 返回上下文中的 user_id，匿名时为空
func whoami(c *gin.Context) {
	c.String(http.StatusOK, c.GetString(ContextUserID))
}

func serve(r *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func TestJWTAuth(t *testing.T) {
	r := gin.New()
	r.GET("/p", JWTAuth(newTestJWT()), whoami)

	tests := []struct {
		name       string
		auth       string
		wantStatus int
		wantBody   string
	}{
		{"有效 Token", bearer(t, "u-1", "student", time.Hour), http.StatusOK, "u-1"},
		{"缺少认证头", "", http.StatusUnauthorized, ""},
		{"格式错误", "Token abc", http.StatusUnauthorized, ""},
		{"已过期", bearer(t, "u-1", "student", -time.Minute), http.StatusUnauthorized, ""},
		{"签名错误", "Bearer " + strings.Repeat("x", 20), http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, "/p", tt.auth)
			if w.Code != tt.wantStatus {
				t.Errorf("期望状态码 %d，实际 %d", tt.wantStatus, w.Code)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("期望 %s，实际 %s", tt.wantBody, w.Body.String())
			}
		})
	}
}

// ── OptionalJWTAuth ──

func TestOptionalJWTAuth_DegradesToAnonymous(t *testing.T) {
	r := gin.New()
	r.GET("/o", OptionalJWTAuth(newTestJWT()), whoami)

	w := serve(r, http.MethodGet, "/o", bearer(t, "u-2", "student", time.Hour))
	if w.Code != http.StatusOK || w.Body.String() != "u-2" {
		t.Errorf("有效 Token 应注入身份，实际 %d %s", w.Code, w.Body.String())
	}

	for _, auth := range []string{"", "Bearer broken", bearer(t, "u-2", "student", -time.Minute)} {
		w := serve(r, http.MethodGet, "/o", auth)
		if w.Code != http.StatusOK || w.Body.String() != "" {
			t.Errorf("auth=%q 应按匿名放行，实际 %d %s", auth, w.Code, w.Body.String())
		}
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	mgr := newTestJWT()
	r := gin.New()
	r.POST("/c", JWTAuth(mgr), RoleAuth("teacher", "admin"), whoami)

	if w := serve(r, http.MethodPost, "/c", bearer(t, "t-1", "teacher", time.Hour)); w.Code != http.StatusOK {
		t.Errorf("教师应放行，实际 %d", w.Code)
	}
	if w := serve(r, http.MethodPost, "/c", bearer(t, "s-1", "student", time.Hour)); w.Code != http.StatusForbidden {
		t.Errorf("学生应返回 403，实际 %d", w.Code)
	}
}

// ── RateLimit ──

type countingLimiter struct {
	counts map[string]int
	err    error
}

func (l *countingLimiter) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.counts[key]++
	return l.counts[key] <= limit, nil
}

func TestRateLimit_PerUser(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int{}}
	mgr := newTestJWT()
	r := gin.New()
	r.POST("/progress", JWTAuth(mgr), RateLimit(limiter, 2, time.Minute, zap.NewNop()), whoami)

	alice := bearer(t, "alice", "student", time.Hour)
	bob := bearer(t, "bob", "student", time.Hour)

	for i := 0; i < 2; i++ {
		if w := serve(r, http.MethodPost, "/progress", alice); w.Code != http.StatusOK {
			t.Fatalf("第 %d 次请求应放行，实际 %d", i+1, w.Code)
		}
	}
	if w := serve(r, http.MethodPost, "/progress", alice); w.Code != http.StatusTooManyRequests {
		t.Errorf("超出限额应返回 429，实际 %d", w.Code)
	}
	if w := serve(r, http.MethodPost, "/progress", bob); w.Code != http.StatusOK {
		t.Errorf("其他用户不受影响，实际 %d", w.Code)
	}
}

func TestRateLimit_FailOpen(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimit(&countingLimiter{err: errors.New("redis down")}, 1, time.Minute, zap.NewNop()), whoami)
	r.GET("/y", RateLimit(nil, 1, time.Minute, zap.NewNop()), whoami)

	for _, path := range []string{"/x", "/x", "/y", "/y"} {
		if w := serve(r, http.MethodGet, path, ""); w.Code != http.StatusOK {
			t.Errorf("%s 限流后端不可用时应放行，实际 %d", path, w.Code)
		}
	}
}

// ── RequestID / BodyLimit ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/r", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set(requestIDHeader, "upstream-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "upstream-id" || w.Header().Get(requestIDHeader) != "upstream-id" {
		t.Errorf("应沿用上游 ID，实际 %s", w.Body.String())
	}

	w = serve(r, http.MethodGet, "/r", "")
	if len(w.Body.String()) != 36 {
		t.Errorf("应生成 UUID，实际 %q", w.Body.String())
	}
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.POST("/b", BodyLimit(8), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/b", strings.NewReader(strings.Repeat("a", 64)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("期望 413，实际 %d", w.Code)
	}
}
