package jwt

import (
	"errors"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"edustream/backend/config"
)

const testSecret = "test-secret-key-for-unit-testing-2026"

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret: testSecret,
		Issuer:    "edustream-auth",
	})
}

// signToken 模拟签发方签发 Token
func signToken(t *testing.T, secret, issuer, userID, role string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwtv5.RegisteredClaims{
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}
	s, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("签发测试 Token 失败: %v", err)
	}
	return s
}

func TestParseToken_Valid(t *testing.T) {
	m := newTestManager()
	token := signToken(t, testSecret, "edustream-auth", "user-1", "student", 15*time.Minute)

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("期望 UserID=user-1，实际=%s", claims.UserID)
	}
	if claims.Role != "student" {
		t.Errorf("期望 Role=student，实际=%s", claims.Role)
	}
}

func TestParseToken_Expired(t *testing.T) {
	m := newTestManager()
	token := signToken(t, testSecret, "edustream-auth", "user-1", "student", -time.Minute)

	_, err := m.ParseToken(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("期望 ErrTokenExpired，实际: %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	m := newTestManager()
	token := signToken(t, "another-secret-key-of-enough-length", "edustream-auth", "user-1", "student", time.Minute)

	_, err := m.ParseToken(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("期望 ErrTokenInvalid，实际: %v", err)
	}
}

func TestParseToken_WrongIssuer(t *testing.T) {
	m := newTestManager()
	token := signToken(t, testSecret, "someone-else", "user-1", "student", time.Minute)

	if _, err := m.ParseToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("期望 ErrTokenInvalid，实际: %v", err)
	}
}

func TestParseToken_Garbage(t *testing.T) {
	m := newTestManager()
	if _, err := m.ParseToken("not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("期望 ErrTokenInvalid，实际: %v", err)
	}
}

func TestVerify(t *testing.T) {
	m := newTestManager()
	valid := signToken(t, testSecret, "edustream-auth", "teacher-9", "teacher", time.Minute)

	tests := []struct {
		name    string
		header  string
		wantID  string
		wantErr error
	}{
		{"无凭证为匿名", "", "", nil},
		{"合法凭证", "Bearer " + valid, "teacher-9", nil},
		{"缺少 Bearer 前缀", valid, "", ErrTokenInvalid},
		{"Bearer 后为空", "Bearer ", "", ErrTokenInvalid},
		{"错误 scheme", "Basic abc", "", ErrTokenInvalid},
		{"无效 Token", "Bearer abc.def.ghi", "", ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := m.Verify(tt.header)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("期望错误 %v，实际 %v", tt.wantErr, err)
			}
			if tt.wantID == "" {
				if id != nil {
					t.Errorf("期望匿名，实际 %+v", id)
				}
				return
			}
			if id == nil || id.UserID != tt.wantID {
				t.Errorf("期望 UserID=%s，实际 %+v", tt.wantID, id)
			}
		})
	}
}
