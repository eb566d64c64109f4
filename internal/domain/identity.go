package domain

import (
	"cmp"
	"errors"
	"strconv"
)

// ErrNoIdentity is returned when an operation needs an identity that has not
// been assigned yet, such as ordering an entity that was never persisted.
var ErrNoIdentity = errors.New("entity has no identity")

// ID is an optional surrogate key. The zero value is NoID.
type ID struct {
	value uint64
	set   bool
}

// NoID is the identity of an entity that has not been persisted.
var NoID = ID{}

// NewID returns an assigned identity. Zero is reserved for "unassigned" by the
// persistence layer and yields NoID.
func NewID(v uint64) ID {
	if v == 0 {
		return NoID
	}
	return ID{value: v, set: true}
}

// Value returns the key and whether it is assigned.
func (id ID) Value() (uint64, bool) {
	return id.value, id.set
}

// IsSet reports whether the identity has been assigned.
func (id ID) IsSet() bool {
	return id.set
}

// Compare orders identities ascending. It fails with ErrNoIdentity when either
// side is unassigned.
func (id ID) Compare(other ID) (int, error) {
	if !id.set || !other.set {
		return 0, ErrNoIdentity
	}
	return cmp.Compare(id.value, other.value), nil
}

func (id ID) String() string {
	if !id.set {
		return "null"
	}
	return strconv.FormatUint(id.value, 10)
}
