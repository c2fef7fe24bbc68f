package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/masoommulla/project-sub001/internal/pkg/metrics"
)

// Metrics 记录请求数与耗时，路由取注册时的模板（如 /api/moods/:id），未匹配的记为 "unmatched"。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.HTTPInFlight.Inc()
		defer metrics.HTTPInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
