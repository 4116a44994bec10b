package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"formflow/backend/pkg/redis"
	"formflow/backend/pkg/response"
)

const rateLimitPrefix = "formflow:ratelimit:"

// RateLimit 固定窗口限流，按客户端 IP 与路由模板计数
// rdb 为 nil 或 Redis 出错时放行，与 JWTAuth 的黑名单降级一致
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		key := rateLimitPrefix + c.FullPath() + ":" + c.ClientIP()
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err == nil && !allowed {
			response.TooManyRequests(c)
			c.Abort()
			return
		}

		c.Next()
	}
}
