package middleware

import (
	"net/http"

	"github.com/chessedu/chessedu-backend/internal/models"
	jwtutil "github.com/chessedu/chessedu-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// gin context 키
const (
	ContextUserID = "userId"
	ContextRole   = "role"
)

// TokenVerifier bearer 토큰 검증
type TokenVerifier interface {
	Verify(token string) (*jwtutil.Claims, error)
}

// Auth JWT 인증 미들웨어
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthenticated(c, "Authorization header required")
			return
		}

		// "Bearer <token>" 형식 파싱
		token, ok := jwtutil.ExtractBearer(authHeader)
		if !ok {
			abortUnauthenticated(c, "Invalid authorization header format")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			abortUnauthenticated(c, "Invalid or expired token")
			return
		}

		// 검증 성공 - 사용자 정보를 context에 저장
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// RequireRole 역할 계층에서 required 이상만 통과 (Auth 뒤에 사용)
func RequireRole(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.Role(c.GetString(ContextRole))
		if !role.AtLeast(required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
				"code":  "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": msg,
		"code":  "UNAUTHENTICATED",
	})
}
