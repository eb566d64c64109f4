package domain

import (
	"encoding/xml"
	"fmt"
	"reflect"
	"slices"
	"time"
)

// Entity is the common base for every persistent type. Embed it anonymously:
//
//	type Note struct {
//		domain.Entity
//		Body string
//	}
//
// Timestamps are stored as epoch milliseconds and are only changed by callers;
// nothing refreshes them implicitly on mutation.
type Entity struct {
	// ID is assigned by the database on first insert. Zero means unassigned;
	// read it through Identity.
	ID         uint64 `gorm:"primaryKey" json:"id,omitempty" xml:"id,omitempty"`
	Version    int    `gorm:"not null" json:"version" xml:"version"`
	Name       string `gorm:"size:255;index" json:"name" xml:"name"`
	CreatedMs  int64  `gorm:"column:created;not null;index" json:"created" xml:"created"`
	ModifiedMs int64  `gorm:"column:modified;not null;index" json:"modified" xml:"modified"`
	AccessedMs int64  `gorm:"column:accessed;not null;index" json:"accessed" xml:"accessed"`
}

// Persistent is implemented by every type embedding Entity.
type Persistent interface {
	Meta() *Entity
}

// NewEntity returns an unsaved entity with all three timestamps set to now.
func NewEntity(name string) Entity {
	now := time.Now().UnixMilli()
	return Entity{
		Name:       name,
		CreatedMs:  now,
		ModifiedMs: now,
		AccessedMs: now,
	}
}

// CopyOf duplicates src. The identity travels with the copy only when src has
// been persisted.
func CopyOf(src *Entity) Entity {
	if src == nil {
		panic("domain.CopyOf: source entity must not be nil")
	}
	dst := Entity{
		Version:    src.Version,
		Name:       src.Name,
		CreatedMs:  src.CreatedMs,
		ModifiedMs: src.ModifiedMs,
		AccessedMs: src.AccessedMs,
	}
	if !src.IsNew() {
		dst.ID = src.ID
	}
	return dst
}

// Copy duplicates every field, identity included.
func (e *Entity) Copy() Entity { return *e }

// Meta gives generic code access to the embedded base.
func (e *Entity) Meta() *Entity { return e }

// Identity returns the surrogate key, or NoID before the first create.
func (e *Entity) Identity() ID { return NewID(e.ID) }

// IsNew reports whether the entity has never been persisted.
func (e *Entity) IsNew() bool { return !e.Identity().IsSet() }

func (e *Entity) Created() time.Time  { return time.UnixMilli(e.CreatedMs) }
func (e *Entity) Modified() time.Time { return time.UnixMilli(e.ModifiedMs) }
func (e *Entity) Accessed() time.Time { return time.UnixMilli(e.AccessedMs) }

func (e *Entity) SetName(name string) { e.Name = name }

func (e *Entity) SetCreated(t time.Time)  { e.CreatedMs = t.UnixMilli() }
func (e *Entity) SetModified(t time.Time) { e.ModifiedMs = t.UnixMilli() }
func (e *Entity) SetAccessed(t time.Time) { e.AccessedMs = t.UnixMilli() }

// Touch marks the entity as modified and accessed now.
func (e *Entity) Touch() {
	now := time.Now()
	e.SetModified(now)
	e.SetAccessed(now)
}

// Stamp returns the value of the given audit timestamp.
func (e *Entity) Stamp(ts TimeStamp) time.Time {
	switch ts {
	case StampCreated:
		return e.Created()
	case StampModified:
		return e.Modified()
	case StampAccessed:
		return e.Accessed()
	default:
		panic(fmt.Sprintf("domain.Entity.Stamp: unknown timestamp %d", int(ts)))
	}
}

// Equal reports identity equality. Two unsaved entities both lack an identity
// and are therefore equal, so a copy of an unsaved entity equals its source.
// The concrete type is not compared; use Same for that.
func (e *Entity) Equal(other *Entity) bool {
	if e == other {
		return true
	}
	if e == nil || other == nil {
		return false
	}
	return e.Identity() == other.Identity()
}

// Same reports whether a and b are of the same concrete type and Equal.
func Same(a, b Persistent) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return a.Meta().Equal(b.Meta())
}

// Hash agrees with Equal. Unsaved entities hash to 0.
func (e *Entity) Hash() uint64 {
	v, _ := e.Identity().Value()
	return v
}

// Compare orders entities by ascending identity. It returns ErrNoIdentity when
// either entity is unsaved, except when both operands are the same instance.
func (e *Entity) Compare(other *Entity) (int, error) {
	if e == other {
		return 0, nil
	}
	if e == nil || other == nil {
		return 0, ErrNoIdentity
	}
	return e.Identity().Compare(other.Identity())
}

func (e *Entity) String() string {
	return describe("Entity", e)
}

// Describe renders p as "[Type: id vVersion - name]".
func Describe(p Persistent) string {
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return describe(t.Name(), p.Meta())
}

func describe(kind string, e *Entity) string {
	return fmt.Sprintf("[%s: %s v%d - %s]", kind, e.Identity(), e.Version, e.Name)
}

// SortByIdentity sorts items in ascending identity order. Nothing is moved when
// any item is unsaved.
func SortByIdentity[P Persistent](items []P) error {
	for _, it := range items {
		if it.Meta().IsNew() {
			return ErrNoIdentity
		}
	}
	slices.SortFunc(items, func(a, b P) int {
		c, _ := a.Meta().Compare(b.Meta())
		return c
	})
	return nil
}

// List wraps a result set so that it has a single XML root element.
type List[T any] struct {
	XMLName xml.Name `xml:"list"`
	Items   []T      `xml:"item"`
}
