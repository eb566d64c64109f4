package domain

import (
	"fmt"
	"strings"
)

// TimeStamp selects one of the three audit timestamps of an Entity.
type TimeStamp int

const (
	StampCreated TimeStamp = iota + 1
	StampModified
	StampAccessed
)

var timeStampNames = map[TimeStamp]string{
	StampCreated:  "created",
	StampModified: "modified",
	StampAccessed: "accessed",
}

// ParseTimeStamp resolves an attribute name (case-insensitive) to a TimeStamp.
func ParseTimeStamp(s string) (TimeStamp, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for ts, n := range timeStampNames {
		if n == name {
			return ts, nil
		}
	}
	return 0, NewAppError(CodeValidation, fmt.Sprintf("unknown timestamp attribute %q", s), nil)
}

// Valid reports whether ts names one of the audit timestamps.
func (ts TimeStamp) Valid() bool {
	_, ok := timeStampNames[ts]
	return ok
}

// Column returns the database column backing ts.
func (ts TimeStamp) Column() string {
	name, ok := timeStampNames[ts]
	if !ok {
		panic(fmt.Sprintf("domain.TimeStamp.Column: unknown timestamp %d", int(ts)))
	}
	return name
}

func (ts TimeStamp) String() string {
	if name, ok := timeStampNames[ts]; ok {
		return name
	}
	return fmt.Sprintf("TimeStamp(%d)", int(ts))
}

// TextField is a string attribute that can be searched. Name is what clients
// send; Column is the database column it maps to.
type TextField struct {
	Name   string
	Column string
}

// FieldName is the text field every entity has.
var FieldName = TextField{Name: "name", Column: "name"}
