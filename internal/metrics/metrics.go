// Package metrics holds the Prometheus collectors of the application. They are
// registered with the default registry, which /metrics exposes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "webapp"

const (
	NameCrudOperations = "crud_operations_total"
	NameHTTPRequests   = "http_requests_total"
	NameHTTPDuration   = "http_request_duration_seconds"
	NameRateLimited    = "http_rate_limited_total"
	LabelEntity        = "entity"
	LabelOperation     = "operation"
	LabelOutcome       = "outcome"
	LabelMethod        = "method"
	LabelRoute         = "route"
	LabelStatus        = "status"
	OutcomeSuccess     = "success"
	OutcomeNotFound    = "not_found"
	OutcomeConflict    = "conflict"
	OutcomeInvalid     = "invalid"
	OutcomeTimeout     = "timeout"
	OutcomeError       = "error"
)

var CrudOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      NameCrudOperations,
		Help:      "Data-access operations by entity, operation and outcome",
		Namespace: Namespace,
	},
	[]string{LabelEntity, LabelOperation, LabelOutcome},
)

var HTTPRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      NameHTTPRequests,
		Help:      "HTTP requests by method, route and status",
		Namespace: Namespace,
	},
	[]string{LabelMethod, LabelRoute, LabelStatus},
)

var HTTPDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:      NameHTTPDuration,
		Help:      "HTTP request latency",
		Namespace: Namespace,
		Buckets:   prometheus.DefBuckets,
	},
	[]string{LabelMethod, LabelRoute},
)

var RateLimited = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      NameRateLimited,
		Help:      "Requests rejected by the rate limiter",
		Namespace: Namespace,
	},
)
