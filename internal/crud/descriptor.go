// Package crud is a generic data-access engine and REST resource for any type
// that embeds domain.Entity. A Descriptor carries everything that differs
// between entity types.
package crud

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/doitto/webapp/internal/domain"
)

// Model is satisfied by *T when T embeds domain.Entity.
type Model[T any] interface {
	*T
	domain.Persistent
}

// NamedQuery is a predefined filter. Where is a gorm condition whose
// parameters are written as @name and bound from the caller's parameter map.
type NamedQuery struct {
	Where string
	// Order defaults to ascending identity.
	Order string
}

var placeholderPattern = regexp.MustCompile(`@(\w+)`)

// Params returns the placeholder names used by q, in order of first use.
func (q NamedQuery) Params() []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(q.Where, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// Descriptor configures the engine for one entity type.
type Descriptor[T any] struct {
	// Entity is the singular display name used in logs, metrics and errors.
	Entity string
	// Path is the base path below the API group, e.g. "/notes".
	Path string
	// TextFields are the attributes accepted by the search endpoints.
	// Defaults to domain.FieldName.
	TextFields []domain.TextField
	// NamedQueries is the catalogue served by the /named endpoints.
	NamedQueries map[string]NamedQuery
	// Overlay copies the client-modifiable fields of incoming onto existing.
	// Defaults to DefaultOverlay.
	Overlay func(incoming, existing *T)
}

// DefaultOverlay copies the name when the client sent one.
func DefaultOverlay[T any, P Model[T]](incoming, existing *T) {
	if name := P(incoming).Meta().Name; name != "" {
		P(existing).Meta().Name = name
	}
}

// normalize fills defaults and rejects incomplete descriptors.
func normalize[T any, P Model[T]](d Descriptor[T]) Descriptor[T] {
	d.Entity = strings.TrimSpace(d.Entity)
	if d.Entity == "" {
		panic("crud: descriptor entity name must not be empty")
	}
	d.Path = "/" + strings.Trim(strings.TrimSpace(d.Path), "/")
	if d.Path == "/" {
		panic(fmt.Sprintf("crud: descriptor %q needs a base path", d.Entity))
	}
	if len(d.TextFields) == 0 {
		d.TextFields = []domain.TextField{domain.FieldName}
	}
	for _, f := range d.TextFields {
		if f.Name == "" || f.Column == "" {
			panic(fmt.Sprintf("crud: descriptor %q has an incomplete text field %+v", d.Entity, f))
		}
	}
	for name, q := range d.NamedQueries {
		if strings.TrimSpace(q.Where) == "" {
			panic(fmt.Sprintf("crud: named query %q of %q has no condition", name, d.Entity))
		}
	}
	if d.Overlay == nil {
		d.Overlay = DefaultOverlay[T, P]
	}
	return d
}

// TextField resolves a client-facing attribute name.
func (d *Descriptor[T]) TextField(name string) (domain.TextField, bool) {
	name = strings.TrimSpace(name)
	for _, f := range d.TextFields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return domain.TextField{}, false
}

func (d *Descriptor[T]) hasTextField(field domain.TextField) bool {
	return slices.Contains(d.TextFields, field)
}
