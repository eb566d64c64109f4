package crud

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Module mounts the REST resource of one entity type.
type Module[T any, P Model[T]] struct {
	handler *Handler[T, P]
	desc    *Descriptor[T]
}

// NewModule wires repository, service and handler for desc on db.
// It panics if db is nil or desc is incomplete.
func NewModule[T any, P Model[T]](db *gorm.DB, desc Descriptor[T]) *Module[T, P] {
	repo := NewRepository[T, P](db, desc)
	svc := NewService(repo)
	return &Module[T, P]{handler: NewHandler(svc), desc: repo.Descriptor()}
}

// Path returns the base path of the resource.
func (m *Module[T, P]) Path() string { return m.desc.Path }

// Models returns the value AutoMigrate needs for the entity table.
func (m *Module[T, P]) Models() []any { return []any{new(T)} }

// Service exposes the data-access layer to other modules.
func (m *Module[T, P]) Service() *Service[T, P] { return m.handler.svc }

// RegisterRoutes registers the resource below api.
func (m *Module[T, P]) RegisterRoutes(api *gin.RouterGroup) {
	g := api.Group(m.desc.Path)
	h := m.handler

	g.GET("", h.List)
	g.GET("/", h.List)
	g.POST("", h.Create)
	g.POST("/", h.Create)

	g.GET("/count", h.Count)
	g.GET("/before", h.Before)
	g.GET("/since", h.Since)
	g.GET("/during", h.During)
	g.GET("/notduring", h.NotDuring)
	g.GET("/search", h.Search)
	g.GET("/:id", h.Get)
	g.GET("/:id/:max", h.Range)

	g.PUT("/named", h.Named)
	g.PUT("/named/:first/:max", h.NamedRange)
	g.PUT("/:id", h.Update)

	g.DELETE("/:id", h.Delete)
}
