package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edustream/backend/pkg/jwt"
	"edustream/backend/pkg/response"
)

// 上下文键
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// JWTAuth 强制认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Token，缺失或无效返回 401
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := jwtMgr.Verify(c.GetHeader("Authorization"))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Unauthorized(c, 10002, "Token 已过期")
			} else {
				response.Unauthorized(c, 10002, "Token 无效")
			}
			c.Abort()
			return
		}
		if identity == nil {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalJWTAuth 可选认证中间件
// 凭证缺失或无效时按匿名处理，不中断请求
func OptionalJWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := jwtMgr.Verify(c.GetHeader("Authorization"))
		if err == nil && identity != nil {
			setIdentity(c, identity)
		}
		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString(ContextRole)
		if _, exists := c.Get(ContextUserID); !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}

func setIdentity(c *gin.Context, identity *jwt.Identity) {
	c.Set(ContextUserID, identity.UserID)
	c.Set(ContextRole, identity.Role)
}
