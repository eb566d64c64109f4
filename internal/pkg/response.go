package pkg

import (
	"encoding/xml"
	"errors"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/doitto/webapp/internal/domain"
)

// Offered lists the representations every resource can produce, in order of
// preference.
var Offered = []string{binding.MIMEJSON, binding.MIMEXML}

// Response is the envelope used for error responses.
type Response struct {
	XMLName xml.Name `json:"-" xml:"response"`
	Code    int      `json:"code" xml:"code"`
	Message string   `json:"message" xml:"message"`
	Data    any      `json:"data" xml:"data,omitempty"`
}

// ValidationErrorResponse is the envelope for validation failures.
type ValidationErrorResponse struct {
	XMLName xml.Name    `json:"-" xml:"response"`
	Code    int         `json:"code" xml:"code"`
	Message string      `json:"message" xml:"message"`
	Errors  FieldErrors `json:"errors" xml:"errors"`
}

// FieldErrors maps a request field to the rule it violated.
type FieldErrors map[string]string

// MarshalXML renders the map as <error field="...">rule</error> elements in
// field order.
func (fe FieldErrors) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		el := xml.StartElement{
			Name: xml.Name{Local: "error"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "field"}, Value: k}},
		}
		if err := e.EncodeElement(fe[k], el); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// Render writes v as JSON or XML, whichever the client accepts. JSON is the
// default.
func Render(c *gin.Context, status int, v any) {
	c.Negotiate(status, gin.Negotiate{
		Offered:  Offered,
		JSONData: v,
		XMLData:  v,
	})
}

// Success sends a 200 response carrying v.
func Success(c *gin.Context, v any) {
	Render(c, http.StatusOK, v)
}

// Items sends a 200 response carrying a result list. JSON clients get a bare
// array, XML clients a <list> document.
func Items[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.Negotiate(http.StatusOK, gin.Negotiate{
		Offered:  Offered,
		JSONData: items,
		XMLData:  domain.List[T]{Items: items},
	})
}

// Error sends an error envelope. If err is a *domain.AppError, its code is
// mapped to the appropriate HTTP status; otherwise 500 is returned.
func Error(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)

	var appErr *domain.AppError
	msg := "internal error"
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	Render(c, status, Response{
		Code:    status,
		Message: msg,
	})
}

// Abort stops the handler chain with an error envelope. Unlike Render it never
// answers 406: clients that accept neither JSON nor XML get JSON.
func Abort(c *gin.Context, status int, msg string) {
	body := Response{Code: status, Message: msg}
	if c.NegotiateFormat(Offered...) == binding.MIMEXML {
		c.Abort()
		c.XML(status, body)
		return
	}
	c.AbortWithStatusJSON(status, body)
}

// ValidationError sends a 400 response with per-field validation error details.
func ValidationError(c *gin.Context, err error) {
	validationErrorWithType(c, err, nil)
}

// BindAndValidate binds the request body (JSON or XML, by Content-Type) to obj
// and validates it. On failure it sends a ValidationError response and returns
// false.
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		validationErrorWithType(c, err, obj)
		return false
	}
	return true
}

// BindURI binds path parameters to obj; see BindAndValidate.
func BindURI(c *gin.Context, obj any) bool {
	if err := c.ShouldBindUri(obj); err != nil {
		validationErrorWithType(c, err, obj)
		return false
	}
	return true
}

// BindQuery binds query parameters to obj; see BindAndValidate.
func BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		validationErrorWithType(c, err, obj)
		return false
	}
	return true
}

func validationErrorWithType(c *gin.Context, err error, obj any) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		Render(c, http.StatusBadRequest, Response{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		})
		return
	}

	names := buildFieldNameMap(obj)

	fieldErrors := make(FieldErrors, len(ve))
	for _, fe := range ve {
		name, ok := names[fe.StructField()]
		if !ok {
			name = strings.ToLower(fe.Field())
		}
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		fieldErrors[name] = msg
	}

	Render(c, http.StatusBadRequest, ValidationErrorResponse{
		Code:    http.StatusBadRequest,
		Message: "validation error",
		Errors:  fieldErrors,
	})
}

// fieldNameTags lists the struct tags consulted for client-facing field names.
var fieldNameTags = []string{"json", "uri", "form", "xml"}

// buildFieldNameMap maps struct field names to the name the client used.
func buildFieldNameMap(obj any) map[string]string {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	m := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		for _, key := range fieldNameTags {
			if name := parseTagName(f.Tag.Get(key)); name != "" {
				m[f.Name] = name
				break
			}
		}
	}
	return m
}

func parseTagName(tag string) string {
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return ""
	}
	return name
}
