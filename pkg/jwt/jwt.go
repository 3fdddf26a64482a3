package jwt

import (
	"errors"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"edustream/backend/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// Claims 签发方写入的 JWT 声明
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwtv5.RegisteredClaims
}

// Identity 已验证的调用方身份
type Identity struct {
	UserID string
	Role   string
}

// Manager JWT 校验器
// 校验是 Token 与密钥的纯函数，不持有会话状态
type Manager struct {
	secret []byte
	issuer string
}

// NewManager 创建 JWT 校验器
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
	}
}

// ParseToken 解析并验证 Token
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	opts := []jwtv5.ParserOption{jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(m.issuer))
	}

	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// Verify 校验 Authorization 头中的 Bearer 凭证
//   - 头为空：返回 (nil, nil)，即匿名
//   - 格式错误 / 签名错误 / 过期：返回错误，由调用方决定降级为匿名还是拒绝
func (m *Manager) Verify(authHeader string) (*Identity, error) {
	if authHeader == "" {
		return nil, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return nil, ErrTokenInvalid
	}

	claims, err := m.ParseToken(parts[1])
	if err != nil {
		return nil, err
	}

	return &Identity{UserID: claims.UserID, Role: claims.Role}, nil
}
