// Package note is a free-text note resource. Updates may change the name and
// the body.
package note

import (
	"encoding/xml"

	"gorm.io/gorm"

	"github.com/doitto/webapp/internal/crud"
	"github.com/doitto/webapp/internal/domain"
)

// Note is a titled piece of text.
type Note struct {
	XMLName xml.Name `gorm:"-" json:"-" xml:"note"`
	domain.Entity
	Body string `gorm:"type:text" json:"body" xml:"body" binding:"max=65535"`
}

// New returns an unsaved note.
func New(name, body string) *Note {
	return &Note{Entity: domain.NewEntity(name), Body: body}
}

// Clone returns an independent copy of n.
func (n *Note) Clone() *Note {
	return &Note{Entity: n.Entity.Copy(), Body: n.Body}
}

func (n *Note) String() string {
	return domain.Describe(n)
}

// FieldBody makes the body searchable.
var FieldBody = domain.TextField{Name: "body", Column: "body"}

// Descriptor configures the generic engine for notes.
var Descriptor = crud.Descriptor[Note]{
	Entity:     "note",
	Path:       "/notes",
	TextFields: []domain.TextField{domain.FieldName, FieldBody},
	NamedQueries: map[string]crud.NamedQuery{
		"byName":         {Where: "name = @name"},
		"createdBetween": {Where: "created >= @from AND created <= @to"},
		"accessedSince":  {Where: "accessed >= @since", Order: "accessed desc, id asc"},
	},
	Overlay: overlay,
}

// overlay copies the name and the body when the client sent them.
func overlay(incoming, existing *Note) {
	crud.DefaultOverlay[Note, *Note](incoming, existing)
	if incoming.Body != "" {
		existing.Body = incoming.Body
	}
}

// NewModule wires the note resource on db.
func NewModule(db *gorm.DB) *crud.Module[Note, *Note] {
	return crud.NewModule[Note, *Note](db, Descriptor)
}
