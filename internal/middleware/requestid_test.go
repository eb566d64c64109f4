package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRequestIDRouter(cfg RequestIDConfig) *gin.Engine {
	r := gin.New()
	r.Use(RequestIDWithConfig(cfg))
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})
	r.GET("/ctx", func(c *gin.Context) {
		c.String(http.StatusOK, findAttrValue(logger.FromContext(c.Request.Context()), "request_id"))
	})
	return r
}

func findAttrValue(attrs []slog.Attr, key string) string {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value.String()
		}
	}
	return ""
}

func requestWithID(r *gin.Engine, path, upstream string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if upstream != "" {
		req.Header.Set(requestIDHeader, upstream)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID_GeneratedIDIsEchoed(t *testing.T) {
	w := requestWithID(setupRequestIDRouter(RequestIDConfig{}), "/test", "")

	id := w.Body.String()
	if len(id) != 2*requestIDBytes {
		t.Fatalf("id %q has length %d; want %d", id, len(id), 2*requestIDBytes)
	}
	if got := w.Header().Get(requestIDHeader); got != id {
		t.Errorf("%s header = %q; want %q", requestIDHeader, got, id)
	}
}

func TestRequestID_UpstreamHandling(t *testing.T) {
	tests := []struct {
		name     string
		trust    bool
		upstream string
		reused   bool
	}{
		{"ignored by default", false, "upstream-id-123", false},
		{"trusted", true, "upstream-id-123", true},
		{"trusted at 64 chars", true, strings.Repeat("a", 64), true},
		{"too long", true, strings.Repeat("a", 65), false},
		{"bad charset", true, "bad_id", false},
		{"header injection", true, "id\r\nX-Evil: 1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := requestWithID(setupRequestIDRouter(RequestIDConfig{TrustUpstream: tt.trust}), "/test", tt.upstream)

			id := w.Body.String()
			if tt.reused {
				if id != tt.upstream {
					t.Errorf("id = %q; want upstream %q", id, tt.upstream)
				}
				return
			}
			if id == tt.upstream {
				t.Fatalf("upstream id %q was reused", tt.upstream)
			}
			if len(id) != 2*requestIDBytes {
				t.Errorf("generated id %q has length %d; want %d", id, len(id), 2*requestIDBytes)
			}
		})
	}
}

func TestRequestID_AttachedToLogContext(t *testing.T) {
	w := requestWithID(setupRequestIDRouter(RequestIDConfig{TrustUpstream: true}), "/ctx", "ctx-test-456")
	if got := w.Body.String(); got != "ctx-test-456" {
		t.Errorf("request_id log attr = %q; want %q", got, "ctx-test-456")
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	r := setupRequestIDRouter(RequestIDConfig{})

	seen := make(map[string]bool)
	for range 100 {
		id := requestWithID(r, "/test", "").Body.String()
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}

func TestRequestID_CustomGenerator(t *testing.T) {
	r := setupRequestIDRouter(RequestIDConfig{Generate: func() string { return "fixed-id" }})

	w := requestWithID(r, "/test", "ignored-upstream")
	if w.Body.String() != "fixed-id" {
		t.Errorf("id = %q; want %q", w.Body.String(), "fixed-id")
	}
	if got := w.Header().Get(requestIDHeader); got != "fixed-id" {
		t.Errorf("%s header = %q; want %q", requestIDHeader, got, "fixed-id")
	}
}

func TestRequestID_DefaultConstructor(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := requestWithID(r, "/test", "upstream-id-123")
	if w.Body.String() == "upstream-id-123" {
		t.Error("RequestID should not trust upstream ids")
	}
}

func TestGetRequestID_WithoutMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/no-id", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	if got := requestWithID(r, "/no-id", "").Body.String(); got != "" {
		t.Errorf("id = %q; want empty", got)
	}
}

func TestNewRequestID_Format(t *testing.T) {
	id := newRequestID()
	if len(id) != 2*requestIDBytes {
		t.Fatalf("id %q has length %d; want %d", id, len(id), 2*requestIDBytes)
	}
	if !requestIDPattern.MatchString(id) {
		t.Errorf("generated id %q does not match the accepted pattern", id)
	}
}
