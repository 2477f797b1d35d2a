package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter 按用户的令牌桶限流
type UserRateLimiter struct {
	mu       sync.Mutex
	visitors map[uint]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
}

func NewUserRateLimiter(perSecond float64, burst int) *UserRateLimiter {
	return &UserRateLimiter{
		visitors: make(map[uint]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idleTTL:  10 * time.Minute,
	}
}

func (l *UserRateLimiter) limiterFor(userID uint) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	v, ok := l.visitors[userID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[userID] = v
	}
	v.lastSeen = now

	// 顺带清理长时间未出现的用户
	for id, other := range l.visitors {
		if now.Sub(other.lastSeen) > l.idleTTL {
			delete(l.visitors, id)
		}
	}
	return v.limiter
}

// Allow 报告该用户当前是否还有可用的令牌
func (l *UserRateLimiter) Allow(userID uint) bool {
	return l.limiterFor(userID).Allow()
}

// Middleware 必须放在 AuthMiddleware 之后
func (l *UserRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID")
		if !l.Allow(userID) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
