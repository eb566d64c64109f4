package pkg

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/doitto/webapp/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testInput is used to generate real validator.ValidationErrors.
type testInput struct {
	Name  string `json:"name" xml:"name" validate:"required" binding:"required"`
	Title string `json:"title" xml:"title" binding:"required,min=2"`
}

type testPath struct {
	ID uint64 `uri:"id" binding:"required,min=1"`
}

// newResponseTestContext creates a gin context backed by an httptest.ResponseRecorder.
func newResponseTestContext(accept string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if accept != "" {
		c.Request.Header.Set("Accept", accept)
	}
	return c, w
}

func newResponseTestContextWithBody(contentType, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", contentType)
	return c, w
}

type sample struct {
	XMLName xml.Name `json:"-" xml:"sample"`
	domain.Entity
}

func TestSuccess_DefaultsToJSON(t *testing.T) {
	c, w := newResponseTestContext("")
	s := sample{Entity: domain.NewEntity("alpha")}
	s.ID = 4

	Success(c, s)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("Content-Type = %q; want application/json", ct)
	}
	var got sample
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != 4 || got.Name != "alpha" {
		t.Errorf("got %+v", got)
	}
}

func TestSuccess_XML(t *testing.T) {
	c, w := newResponseTestContext("application/xml")
	s := sample{Entity: domain.NewEntity("alpha")}
	s.ID = 4

	Success(c, s)

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Fatalf("Content-Type = %q; want application/xml", ct)
	}
	var got sample
	if err := xml.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v (body %s)", err, w.Body.String())
	}
	if got.ID != 4 || got.Name != "alpha" {
		t.Errorf("got %+v", got)
	}
}

func TestItems_JSONArray(t *testing.T) {
	c, w := newResponseTestContext("application/json")
	Items(c, []sample{{Entity: domain.NewEntity("a")}, {Entity: domain.NewEntity("b")}})

	var got []sample
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 || got[1].Name != "b" {
		t.Errorf("got %+v", got)
	}
}

func TestItems_NilBecomesEmptyArray(t *testing.T) {
	c, w := newResponseTestContext("")
	Items[sample](c, nil)

	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %q; want []", w.Body.String())
	}
}

func TestItems_XMLList(t *testing.T) {
	c, w := newResponseTestContext("application/xml")
	Items(c, []sample{{Entity: domain.NewEntity("a")}, {Entity: domain.NewEntity("b")}})

	body := w.Body.String()
	if !strings.Contains(body, "<list>") || strings.Count(body, "<sample>") != 2 {
		t.Errorf("unexpected body %s", body)
	}
}

func TestRender_NotAcceptable(t *testing.T) {
	c, w := newResponseTestContext("text/csv")
	Success(c, sample{})
	if w.Code != http.StatusNotAcceptable {
		t.Errorf("status = %d; want 406", w.Code)
	}
}

func TestError_AppErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound, "not found"},
		{"conflict", domain.NewAppError(domain.CodeConflict, "note 3 was modified concurrently", nil), http.StatusConflict, "note 3 was modified concurrently"},
		{"validation", domain.ErrValidation, http.StatusBadRequest, "validation error"},
		{"generic error hides details", errors.New("sql: connection refused"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newResponseTestContext("")
			Error(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d; want %d", w.Code, tt.wantStatus)
			}
			var resp Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Code != tt.wantStatus || resp.Message != tt.wantMsg {
				t.Errorf("resp = %+v; want code %d message %q", resp, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

func TestError_XML(t *testing.T) {
	c, w := newResponseTestContext("application/xml")
	Error(c, domain.ErrNotFound)

	var resp Response
	if err := xml.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v (body %s)", err, w.Body.String())
	}
	if resp.Code != http.StatusNotFound || resp.Message != "not found" {
		t.Errorf("resp = %+v", resp)
	}
}

func makeValidationErrors(t *testing.T) validator.ValidationErrors {
	t.Helper()
	err := validator.New().Struct(testInput{})
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("expected validator.ValidationErrors, got %T", err)
	}
	return ve
}

func TestValidationError_WithValidatorErrors(t *testing.T) {
	c, w := newResponseTestContext("")
	ValidationError(c, makeValidationErrors(t))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
	var resp ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Message != "validation error" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Errors["name"] != "required" {
		t.Errorf("errors = %v; want name=required", resp.Errors)
	}
}

func TestValidationError_NonValidationError(t *testing.T) {
	c, w := newResponseTestContext("")
	ValidationError(c, errors.New("unexpected EOF"))

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.Code != http.StatusBadRequest || resp.Message != "unexpected EOF" {
		t.Errorf("status %d resp %+v", w.Code, resp)
	}
}

func TestFieldErrors_MarshalXML(t *testing.T) {
	raw, err := xml.Marshal(ValidationErrorResponse{
		Code:    400,
		Message: "validation error",
		Errors:  FieldErrors{"title": "min=2", "name": "required"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `<errors><error field="name">required</error><error field="title">min=2</error></errors>`
	if !strings.Contains(string(raw), want) {
		t.Errorf("xml %s does not contain %s", raw, want)
	}
}

func TestBindAndValidate_JSON(t *testing.T) {
	c, w := newResponseTestContextWithBody("application/json", `{"name":"a","title":"x"}`)
	var in testInput
	if BindAndValidate(c, &in) {
		t.Fatal("expected failure for short title")
	}
	var resp ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Errors["title"] != "min=2" {
		t.Errorf("errors = %v", resp.Errors)
	}
}

func TestBindAndValidate_XMLBody(t *testing.T) {
	c, _ := newResponseTestContextWithBody("application/xml", `<testInput><name>n</name><title>long</title></testInput>`)
	var in testInput
	if !BindAndValidate(c, &in) {
		t.Fatal("expected XML body to bind")
	}
	if in.Name != "n" || in.Title != "long" {
		t.Errorf("bound %+v", in)
	}
}

func TestBindAndValidate_MalformedJSON(t *testing.T) {
	c, w := newResponseTestContextWithBody("application/json", `{"name":`)
	var in testInput
	if BindAndValidate(c, &in) {
		t.Fatal("expected failure")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", w.Code)
	}
}

func TestBindURI(t *testing.T) {
	r := gin.New()
	r.GET("/:id", func(c *gin.Context) {
		var p testPath
		if !BindURI(c, &p) {
			return
		}
		c.String(http.StatusOK, "ok")
	})

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/12", http.StatusOK},
		{"/0", http.StatusBadRequest},
		{"/abc", http.StatusBadRequest},
		{"/-3", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if w.Code != tt.wantStatus {
			t.Errorf("GET %s status = %d; want %d", tt.path, w.Code, tt.wantStatus)
		}
	}
}

func TestBuildFieldNameMap_PrefersJSONThenURI(t *testing.T) {
	m := buildFieldNameMap(&struct {
		A string `json:"alpha" uri:"a"`
		B int    `uri:"beta"`
		C int    `json:"-" form:"gamma"`
		D int
	}{})
	if m["A"] != "alpha" || m["B"] != "beta" || m["C"] != "gamma" {
		t.Errorf("map = %v", m)
	}
	if _, ok := m["D"]; ok {
		t.Error("untagged field should not be mapped")
	}
}

func TestAbort(t *testing.T) {
	tests := []struct {
		accept      string
		wantType    string
		wantContain string
	}{
		{"", "application/json", `"message":"slow down"`},
		{"application/xml", "application/xml", "<message>slow down</message>"},
		{"text/html", "application/json", `"code":429`},
	}

	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			c, w := newResponseTestContext(tt.accept)
			Abort(c, http.StatusTooManyRequests, "slow down")

			if !c.IsAborted() {
				t.Error("context should be aborted")
			}
			if w.Code != http.StatusTooManyRequests {
				t.Errorf("status = %d; want 429", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.wantType) {
				t.Errorf("Content-Type = %q; want %s", ct, tt.wantType)
			}
			if !strings.Contains(w.Body.String(), tt.wantContain) {
				t.Errorf("body %s missing %s", w.Body.String(), tt.wantContain)
			}
		})
	}
}
