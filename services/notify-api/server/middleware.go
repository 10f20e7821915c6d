package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/notify"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/logx"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/metrics"
)

const unmatchedRoute = "unmatched"

func Observability() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.Request.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", rid)

		c.Set("request_id", rid)
		c.Next()

		lat := time.Since(start).Seconds()
		status := c.Writer.Status()
		// metrics are labelled by route template, never the raw URL
		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}

		metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(c.Request.Method, path).Observe(lat)

		logx.L().Infow("http_access",
			"rid", rid,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", path,
			"status", status,
			"duration", lat,
			"client_ip", c.ClientIP(),
		)
	}
}

// recoverJSON answers a panic with the generic 500 body the endpoints use.
func recoverJSON(c *gin.Context, rec any) {
	logx.L().Errorw("panic_recovered",
		"rid", c.GetString("request_id"),
		"path", c.Request.URL.Path,
		"panic", rec,
	)
	c.AbortWithStatusJSON(500, notify.ErrorResp{Error: "Internal server error"})
}
