package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/doitto/webapp/internal/crud"
	"github.com/doitto/webapp/internal/pkg"
)

// APIPrefix is the group every resource is mounted under.
const APIPrefix = "/api/v1"

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Registry *crud.Registry
	DB       *gorm.DB
	// MetricsPath exposes the Prometheus registry when non-empty.
	MetricsPath string
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if deps.Registry == nil || len(deps.Registry.Resources()) == 0 {
		return errors.New("at least one resource is required")
	}

	r.GET("/health", healthHandler(deps.DB))

	if deps.MetricsPath != "" {
		r.GET(deps.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group(APIPrefix)
	for i, res := range deps.Registry.Resources() {
		if res == nil {
			return fmt.Errorf("resource at index %d is nil", i)
		}
		res.RegisterRoutes(api)
	}

	r.NoRoute(noRouteHandler())

	return nil
}

// healthHandler returns a handler that pings the database and reports status.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "ok"
		if err := pingDB(c.Request.Context(), db); err != nil {
			dbStatus = "error"
		}

		status, code := "ok", http.StatusOK
		if dbStatus != "ok" {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status": status,
			"components": gin.H{
				"database": dbStatus,
			},
		})
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// noRouteHandler answers unknown paths with a 404 envelope in the negotiated
// representation.
func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		pkg.Abort(c, http.StatusNotFound, "not found")
	}
}
