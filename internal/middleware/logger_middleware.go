package middleware

import (
	"net/http"
	"net/url"
	"time"

	"lead-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 这些查询参数不写入日志
var sensitiveParams = []string{"token", "sig"}

// GinZapLogger 请求结束后记录一条访问日志, 级别由状态码决定
func GinZapLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if route := c.FullPath(); route != "" {
			fields = append(fields, zap.String("route", route))
		}
		if leadID := c.Param("lead_id"); leadID != "" {
			fields = append(fields, zap.String("leadID", leadID))
		}
		if query := loggableQuery(c.Request.URL); query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if userID := c.GetUint("userID"); userID != 0 {
			fields = append(fields, zap.Uint("userID", userID))
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, zap.String("error", errs))
		}

		if ce := logger.L.Check(levelFor(status), "Request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// 含凭据的查询串整体丢弃
func loggableQuery(u *url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	values := u.Query()
	for _, key := range sensitiveParams {
		if values.Has(key) {
			return ""
		}
	}
	return u.RawQuery
}
