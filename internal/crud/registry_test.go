package crud

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRegistry(t *testing.T) {
	db := setupTestDB(t)
	reg := NewRegistry()

	gadgets := NewModule[gadget, *gadget](db, gadgetDescriptor())
	if err := reg.Register(gadgets); err != nil {
		t.Fatalf("Register: %v", err)
	}

	dup := gadgetDescriptor()
	dup.Entity = "other"
	if err := reg.Register(NewModule[gadget, *gadget](db, dup)); err == nil {
		t.Error("expected an error for a duplicate path")
	}
	if err := reg.Register(nil); err == nil {
		t.Error("expected an error for a nil resource")
	}

	if got := len(reg.Resources()); got != 1 {
		t.Fatalf("Resources() has %d entries; want 1", got)
	}
	models := reg.Models()
	if len(models) != 1 {
		t.Fatalf("Models() = %v", models)
	}
	if _, ok := models[0].(*gadget); !ok {
		t.Errorf("Models()[0] is %T; want *gadget", models[0])
	}

	r := gin.New()
	api := r.Group("/api/v1")
	for _, res := range reg.Resources() {
		res.RegisterRoutes(api)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/gadgets/count", nil))
	if w.Code != http.StatusOK || w.Body.String() != "0" {
		t.Errorf("count: status %d body %q", w.Code, w.Body.String())
	}
}
