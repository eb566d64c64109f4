package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/doitto/webapp/internal/metrics"
)

// Metrics returns a gin middleware that counts requests and observes their
// latency, labelled by method, route template and status. Unmatched requests
// share the "unmatched" route so arbitrary paths cannot grow the label set.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		labels := prometheus.Labels{
			metrics.LabelMethod: c.Request.Method,
			metrics.LabelRoute:  routeOf(c),
		}
		metrics.HTTPDuration.With(labels).Observe(time.Since(start).Seconds())

		labels[metrics.LabelStatus] = strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequests.With(labels).Inc()
	}
}
