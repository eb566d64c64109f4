package crud

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
)

// Resource is what the registry needs from a Module.
type Resource interface {
	Path() string
	Models() []any
	RegisterRoutes(api *gin.RouterGroup)
}

// Registry collects the resources an application serves. Base paths must be
// unique.
type Registry struct {
	resources []Resource
	paths     map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{paths: make(map[string]struct{})}
}

// Register adds res to the registry.
func (r *Registry) Register(res Resource) error {
	if res == nil {
		return errors.New("resource is nil")
	}
	if _, dup := r.paths[res.Path()]; dup {
		return fmt.Errorf("path %q is already registered", res.Path())
	}
	r.paths[res.Path()] = struct{}{}
	r.resources = append(r.resources, res)
	return nil
}

// Resources returns the registered resources in registration order.
func (r *Registry) Resources() []Resource {
	return r.resources
}

// Models returns the AutoMigrate values of every resource.
func (r *Registry) Models() []any {
	var models []any
	for _, res := range r.resources {
		models = append(models, res.Models()...)
	}
	return models
}
