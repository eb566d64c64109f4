package crud

import (
	"encoding/xml"
	"errors"
	"fmt"
	"slices"
	"time"
)

// idURI binds the identity segment of /:id. Identities live in a signed
// 64-bit column, so larger values are rejected.
type idURI struct {
	ID uint64 `uri:"id" binding:"max=9223372036854775807"`
}

// rangeURI binds GET /:id/:max, where the first segment is the offset.
type rangeURI struct {
	First int `uri:"id" binding:"min=0"`
	Max   int `uri:"max" binding:"min=0"`
}

// namedRangeURI binds PUT /named/:first/:max.
type namedRangeURI struct {
	First int `uri:"first" binding:"min=0"`
	Max   int `uri:"max" binding:"min=0"`
}

// dateQuery binds /before and /since.
type dateQuery struct {
	Attribute string `form:"attribute" binding:"required"`
	Date      *int64 `form:"date" binding:"required"`
}

// periodQuery binds /during and /notduring.
type periodQuery struct {
	Attribute string `form:"attribute" binding:"required"`
	Date1     *int64 `form:"date1" binding:"required"`
	Date2     *int64 `form:"date2" binding:"required"`
}

// searchQuery binds /search.
type searchQuery struct {
	Attribute   string `form:"attribute" binding:"required"`
	QueryString string `form:"querystring"`
	Insensitive bool   `form:"insensitive"`
}

func epochMillis(ms *int64) time.Time {
	return time.UnixMilli(*ms)
}

// NamedQueryRequest is the body of PUT /named:
//
//	{"name": "byBody", "parameters": {"body": "groceries"}}
//
//	<query><name>byBody</name><parameter key="body">groceries</parameter></query>
type NamedQueryRequest struct {
	XMLName    xml.Name `json:"-" xml:"query"`
	Name       string   `json:"name" xml:"name" binding:"required"`
	Parameters Params   `json:"parameters" xml:"parameter"`
}

// Params are the bound values of a named query. XML values are always strings.
type Params map[string]any

type xmlParam struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// UnmarshalXML decodes one <parameter key="..."> element per call.
func (p *Params) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var kv xmlParam
	if err := d.DecodeElement(&kv, &start); err != nil {
		return err
	}
	if kv.Key == "" {
		return errors.New("parameter element without key attribute")
	}
	if *p == nil {
		*p = Params{}
	}
	(*p)[kv.Key] = kv.Value
	return nil
}

// MarshalXML encodes each entry as a <parameter key="..."> element, sorted by key.
func (p Params) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		el := xml.StartElement{Name: start.Name, Attr: []xml.Attr{{Name: xml.Name{Local: "key"}, Value: k}}}
		if err := e.EncodeElement(fmt.Sprint(p[k]), el); err != nil {
			return err
		}
	}
	return nil
}

func (r *NamedQueryRequest) params() map[string]any {
	if r.Parameters == nil {
		return map[string]any{}
	}
	return r.Parameters
}
