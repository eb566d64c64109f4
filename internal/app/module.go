package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/doitto/webapp/internal/crud"
	"github.com/doitto/webapp/internal/module/note"
	"github.com/doitto/webapp/internal/module/tag"
)

// newRegistry collects the resources served under /api/v1. Adding an entity
// type to the application means adding its module here.
func newRegistry(db *gorm.DB) (*crud.Registry, error) {
	reg := crud.NewRegistry()
	for _, res := range []crud.Resource{
		note.NewModule(db),
		tag.NewModule(db),
	} {
		if err := reg.Register(res); err != nil {
			return nil, fmt.Errorf("register %s: %w", res.Path(), err)
		}
	}
	return reg, nil
}
