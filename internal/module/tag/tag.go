// Package tag is a label resource. Updates may only rename a tag.
package tag

import (
	"encoding/xml"

	"gorm.io/gorm"

	"github.com/doitto/webapp/internal/crud"
	"github.com/doitto/webapp/internal/domain"
)

type Tag struct {
	XMLName xml.Name `gorm:"-" json:"-" xml:"tag"`
	domain.Entity
	Colour string `gorm:"size:7" json:"colour,omitempty" xml:"colour,omitempty" binding:"omitempty,hexcolor"`
}

func New(name, colour string) *Tag {
	return &Tag{Entity: domain.NewEntity(name), Colour: colour}
}

func (t *Tag) Clone() *Tag {
	return &Tag{Entity: t.Entity.Copy(), Colour: t.Colour}
}

func (t *Tag) String() string {
	return domain.Describe(t)
}

var Descriptor = crud.Descriptor[Tag]{
	Entity: "tag",
	Path:   "/tags",
	NamedQueries: map[string]crud.NamedQuery{
		"byColour": {Where: "colour = @colour"},
	},
}

func NewModule(db *gorm.DB) *crud.Module[Tag, *Tag] {
	return crud.NewModule[Tag, *Tag](db, Descriptor)
}
