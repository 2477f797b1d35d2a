package middleware

import (
	"net/http"
	"strings"

	"lead-chat/internal/repository"
	"lead-chat/pkg/utils"

	"github.com/gin-gonic/gin"
)

// 从 Authorization 头读取令牌, websocket 握手时浏览器无法设置请求头, 允许使用 ?token=
func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, ""
		}
		return "", "authorization header is required"
	}

	// 通常Authorization格式为: "Bearer token"
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return "", "invalid authorization format"
	}
	return parts[1], ""
}

// 验证JWT中间件
func AuthMiddleware(userRepo *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := bearerToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": problem})
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		user, err := userRepo.FindByID(claims.UserID)
		if err != nil || user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("user", user)

		c.Next()
	}
}
