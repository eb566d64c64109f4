package crud

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/doitto/webapp/internal/domain"
	"github.com/doitto/webapp/internal/pkg"
)

// Handler serves the REST resource of one entity type.
type Handler[T any, P Model[T]] struct {
	svc *Service[T, P]
}

// NewHandler creates a Handler with the given service.
func NewHandler[T any, P Model[T]](svc *Service[T, P]) *Handler[T, P] {
	if svc == nil {
		panic("crud.NewHandler: service must not be nil")
	}
	return &Handler[T, P]{svc: svc}
}

// Count handles GET /count with a text/plain body.
func (h *Handler[T, P]) Count(c *gin.Context) {
	n, err := h.svc.Count(c.Request.Context())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	c.String(http.StatusOK, strconv.FormatInt(n, 10))
}

// Get handles GET /:id.
func (h *Handler[T, P]) Get(c *gin.Context) {
	var uri idURI
	if !pkg.BindURI(c, &uri) {
		return
	}
	t, err := h.svc.Find(c.Request.Context(), uri.ID)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, t)
}

// List handles GET /.
func (h *Handler[T, P]) List(c *gin.Context) {
	items, err := h.svc.FindAll(c.Request.Context())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Items(c, items)
}

// Range handles GET /:first/:max.
func (h *Handler[T, P]) Range(c *gin.Context) {
	var uri rangeURI
	if !pkg.BindURI(c, &uri) {
		return
	}
	items, err := h.svc.FindAllRange(c.Request.Context(), uri.First, uri.Max)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Items(c, items)
}

// Create handles POST /. Timestamps the client leaves out default to now.
func (h *Handler[T, P]) Create(c *gin.Context) {
	t := h.blank()
	if !pkg.BindAndValidate(c, t) {
		return
	}
	if err := h.svc.Create(c.Request.Context(), t); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Render(c, http.StatusCreated, t)
}

// Update handles PUT /:id. Only the fields chosen by the descriptor's overlay
// reach the stored entity.
func (h *Handler[T, P]) Update(c *gin.Context) {
	var uri idURI
	if !pkg.BindURI(c, &uri) {
		return
	}
	incoming := new(T)
	if !pkg.BindAndValidate(c, incoming) {
		return
	}
	t, err := h.svc.Merge(c.Request.Context(), uri.ID, incoming)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, t)
}

// Delete handles DELETE /:id.
func (h *Handler[T, P]) Delete(c *gin.Context) {
	var uri idURI
	if !pkg.BindURI(c, &uri) {
		return
	}
	if err := h.svc.Remove(c.Request.Context(), uri.ID); err != nil {
		pkg.Error(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Named handles PUT /named.
func (h *Handler[T, P]) Named(c *gin.Context) {
	var req NamedQueryRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	items, err := h.svc.FindByNamedQuery(c.Request.Context(), req.Name, req.params())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Items(c, items)
}

// NamedRange handles PUT /named/:first/:max.
func (h *Handler[T, P]) NamedRange(c *gin.Context) {
	var uri namedRangeURI
	if !pkg.BindURI(c, &uri) {
		return
	}
	var req NamedQueryRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	items, err := h.svc.FindByNamedQueryRange(c.Request.Context(), req.Name, req.params(), uri.First, uri.Max)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Items(c, items)
}

// Before handles GET /before?attribute=&date=.
func (h *Handler[T, P]) Before(c *gin.Context) {
	var q dateQuery
	if !pkg.BindQuery(c, &q) {
		return
	}
	attr, err := domain.ParseTimeStamp(q.Attribute)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	items, err := h.svc.Before(c.Request.Context(), attr, epochMillis(q.Date))
	h.respond(c, items, err)
}

// Since handles GET /since?attribute=&date=.
func (h *Handler[T, P]) Since(c *gin.Context) {
	var q dateQuery
	if !pkg.BindQuery(c, &q) {
		return
	}
	attr, err := domain.ParseTimeStamp(q.Attribute)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	items, err := h.svc.Since(c.Request.Context(), attr, epochMillis(q.Date))
	h.respond(c, items, err)
}

// During handles GET /during?attribute=&date1=&date2=.
func (h *Handler[T, P]) During(c *gin.Context) {
	var q periodQuery
	if !pkg.BindQuery(c, &q) {
		return
	}
	attr, err := domain.ParseTimeStamp(q.Attribute)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	items, err := h.svc.During(c.Request.Context(), attr, epochMillis(q.Date1), epochMillis(q.Date2))
	h.respond(c, items, err)
}

// NotDuring handles GET /notduring?attribute=&date1=&date2=.
func (h *Handler[T, P]) NotDuring(c *gin.Context) {
	var q periodQuery
	if !pkg.BindQuery(c, &q) {
		return
	}
	attr, err := domain.ParseTimeStamp(q.Attribute)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	items, err := h.svc.NotDuring(c.Request.Context(), attr, epochMillis(q.Date1), epochMillis(q.Date2))
	h.respond(c, items, err)
}

// Search handles GET /search?attribute=&querystring=[&insensitive=true].
func (h *Handler[T, P]) Search(c *gin.Context) {
	var q searchQuery
	if !pkg.BindQuery(c, &q) {
		return
	}
	field, ok := h.svc.Descriptor().TextField(q.Attribute)
	if !ok {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation,
			fmt.Sprintf("%s has no searchable attribute %q", h.svc.Descriptor().Entity, q.Attribute), nil))
		return
	}

	var (
		items []T
		err   error
	)
	if q.Insensitive {
		items, err = h.svc.SearchInsensitive(c.Request.Context(), field, q.QueryString)
	} else {
		items, err = h.svc.Search(c.Request.Context(), field, q.QueryString)
	}
	h.respond(c, items, err)
}

func (h *Handler[T, P]) respond(c *gin.Context, items []T, err error) {
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Items(c, items)
}

// blank returns a new entity with every timestamp set to now.
func (h *Handler[T, P]) blank() *T {
	t := new(T)
	*P(t).Meta() = domain.NewEntity("")
	return t
}
