package crud

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/doitto/webapp/internal/domain"
	"github.com/doitto/webapp/internal/metrics"
	"github.com/doitto/webapp/internal/pkg"
)

// maxStoredID is the largest identity a signed 64-bit key column can hold.
const maxStoredID = math.MaxInt64

// Repository implements domain.Crud with GORM for one entity type.
type Repository[T any, P Model[T]] struct {
	db   *gorm.DB
	desc Descriptor[T]
}

// NewRepository creates a Repository. It panics if db is nil or desc is
// incomplete.
func NewRepository[T any, P Model[T]](db *gorm.DB, desc Descriptor[T]) *Repository[T, P] {
	if db == nil {
		panic("crud.NewRepository: db must not be nil")
	}
	return &Repository[T, P]{db: db, desc: normalize[T, P](desc)}
}

// WithDB returns a copy of r that runs on db, typically a transaction.
func (r *Repository[T, P]) WithDB(db *gorm.DB) *Repository[T, P] {
	return &Repository[T, P]{db: db, desc: r.desc}
}

// Descriptor returns the normalized descriptor.
func (r *Repository[T, P]) Descriptor() *Descriptor[T] {
	return &r.desc
}

// Create inserts t and assigns its identity.
func (r *Repository[T, P]) Create(ctx context.Context, t *T) error {
	if t == nil {
		panic("crud.Repository.Create: entity must not be nil")
	}
	if !P(t).Meta().IsNew() {
		return r.observe("create", domain.NewAppError(domain.CodeValidation,
			fmt.Sprintf("%s %d is already persisted", r.desc.Entity, P(t).Meta().ID), nil))
	}
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return r.observe("create", mapError(err))
	}
	return r.observe("create", nil)
}

// Remove deletes the entity with the given identity.
func (r *Repository[T, P]) Remove(ctx context.Context, id uint64) error {
	if id > maxStoredID {
		return r.observe("remove", r.notFound(id))
	}
	result := r.db.WithContext(ctx).Delete(new(T), id)
	if result.Error != nil {
		return r.observe("remove", mapError(result.Error))
	}
	if result.RowsAffected == 0 {
		return r.observe("remove", r.notFound(id))
	}
	return r.observe("remove", nil)
}

// Update writes every column of t and increments its version, provided the
// stored version still equals t's. A stale version yields domain.ErrConflict
// and leaves t unchanged.
func (r *Repository[T, P]) Update(ctx context.Context, t *T) (*T, error) {
	if t == nil {
		panic("crud.Repository.Update: entity must not be nil")
	}
	meta := P(t).Meta()
	if meta.IsNew() {
		return nil, r.observe("update", domain.NewAppError(domain.CodeValidation,
			fmt.Sprintf("%s has not been persisted", r.desc.Entity), nil))
	}

	db := r.db.WithContext(ctx)
	seen := meta.Version
	meta.Version = seen + 1
	result := db.Model(t).Where("version = ?", seen).Select("*").Updates(t)
	if result.Error != nil {
		meta.Version = seen
		return nil, r.observe("update", mapError(result.Error))
	}
	if result.RowsAffected == 1 {
		return t, r.observe("update", nil)
	}

	meta.Version = seen
	var n int64
	if err := db.Model(new(T)).Where("id = ?", meta.ID).Count(&n).Error; err != nil {
		return nil, r.observe("update", mapError(err))
	}
	if n == 0 {
		return nil, r.observe("update", r.notFound(meta.ID))
	}
	return nil, r.observe("update", domain.NewAppError(domain.CodeConflict,
		fmt.Sprintf("%s %d was modified concurrently (version %d is stale)", r.desc.Entity, meta.ID, seen), nil))
}

// Count returns the number of stored entities.
func (r *Repository[T, P]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(new(T)).Count(&n).Error; err != nil {
		return 0, r.observe("count", mapError(err))
	}
	return n, r.observe("count", nil)
}

// Find retrieves an entity by identity.
func (r *Repository[T, P]) Find(ctx context.Context, id uint64) (*T, error) {
	if id > maxStoredID {
		return nil, r.observe("find", r.notFound(id))
	}
	var t T
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, r.observe("find", r.notFound(id))
		}
		return nil, r.observe("find", mapError(err))
	}
	return &t, r.observe("find", nil)
}

func (r *Repository[T, P]) FindAll(ctx context.Context) ([]T, error) {
	return r.list("find_all", r.db.WithContext(ctx).Scopes(pkg.ByIdentity))
}

// FindAllRange skips first entities and returns at most max.
func (r *Repository[T, P]) FindAllRange(ctx context.Context, first, max int) ([]T, error) {
	window := pkg.Window(first, max)
	return r.list("find_range", r.db.WithContext(ctx).Scopes(pkg.ByIdentity, window))
}

// FindByNamedQuery runs a query from the descriptor's catalogue. Unknown
// names and missing parameters are validation errors.
func (r *Repository[T, P]) FindByNamedQuery(ctx context.Context, name string, params map[string]any) ([]T, error) {
	q, err := r.named(name, params)
	if err != nil {
		return nil, r.observe("named", err)
	}
	return r.list("named", r.db.WithContext(ctx).Scopes(q.scope(params)))
}

// FindByNamedQueryRange is FindByNamedQuery with the FindAllRange window.
func (r *Repository[T, P]) FindByNamedQueryRange(ctx context.Context, name string, params map[string]any, first, max int) ([]T, error) {
	window := pkg.Window(first, max)
	q, err := r.named(name, params)
	if err != nil {
		return nil, r.observe("named_range", err)
	}
	return r.list("named_range", r.db.WithContext(ctx).Scopes(q.scope(params), window))
}

func (r *Repository[T, P]) Before(ctx context.Context, attr domain.TimeStamp, t time.Time) ([]T, error) {
	return r.list("before", r.db.WithContext(ctx).
		Where(attr.Column()+" < ?", t.UnixMilli()).
		Scopes(pkg.ByIdentity))
}

func (r *Repository[T, P]) Since(ctx context.Context, attr domain.TimeStamp, t time.Time) ([]T, error) {
	return r.list("since", r.db.WithContext(ctx).
		Where(attr.Column()+" >= ?", t.UnixMilli()).
		Scopes(pkg.ByIdentity))
}

func (r *Repository[T, P]) During(ctx context.Context, attr domain.TimeStamp, t1, t2 time.Time) ([]T, error) {
	col := attr.Column()
	return r.list("during", r.db.WithContext(ctx).
		Where(col+" >= ? AND "+col+" <= ?", t1.UnixMilli(), t2.UnixMilli()).
		Scopes(pkg.ByIdentity))
}

func (r *Repository[T, P]) NotDuring(ctx context.Context, attr domain.TimeStamp, t1, t2 time.Time) ([]T, error) {
	col := attr.Column()
	return r.list("not_during", r.db.WithContext(ctx).
		Where(col+" < ? OR "+col+" > ?", t1.UnixMilli(), t2.UnixMilli()).
		Scopes(pkg.ByIdentity))
}

// Search matches entities whose field contains query, respecting case.
func (r *Repository[T, P]) Search(ctx context.Context, field domain.TextField, query string) ([]T, error) {
	col := r.searchColumn(field)
	fn := "instr"
	if r.db.Dialector.Name() == "postgres" {
		fn = "strpos"
	}
	return r.list("search", r.db.WithContext(ctx).
		Where(fmt.Sprintf("%s(%s, ?) > 0", fn, col), query).
		Scopes(pkg.ByIdentity))
}

// SearchInsensitive matches entities whose field contains query, ignoring case.
func (r *Repository[T, P]) SearchInsensitive(ctx context.Context, field domain.TextField, query string) ([]T, error) {
	col := r.searchColumn(field)
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	return r.list("search_insensitive", r.db.WithContext(ctx).
		Where(fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col), pattern).
		Scopes(pkg.ByIdentity))
}

func (r *Repository[T, P]) list(op string, db *gorm.DB) ([]T, error) {
	items := []T{}
	if err := db.Find(&items).Error; err != nil {
		return nil, r.observe(op, mapError(err))
	}
	return items, r.observe(op, nil)
}

func (r *Repository[T, P]) named(name string, params map[string]any) (NamedQuery, error) {
	if params == nil {
		panic("crud.Repository: named query parameters must not be nil")
	}
	q, ok := r.desc.NamedQueries[name]
	if !ok {
		return NamedQuery{}, domain.NewAppError(domain.CodeValidation,
			fmt.Sprintf("unknown named query %q for %s", name, r.desc.Entity), nil)
	}
	for _, p := range q.Params() {
		if _, ok := params[p]; !ok {
			return NamedQuery{}, domain.NewAppError(domain.CodeValidation,
				fmt.Sprintf("named query %q requires parameter %q", name, p), nil)
		}
	}
	return q, nil
}

// scope applies the condition and the order of q. Parameters are bound only
// when the condition has placeholders.
func (q NamedQuery) scope(params map[string]any) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(q.Params()) > 0 {
			db = db.Where(q.Where, params)
		} else {
			db = db.Where(q.Where)
		}
		if q.Order == "" {
			return pkg.ByIdentity(db)
		}
		return db.Order(q.Order)
	}
}

// searchColumn returns the column of a field registered in the descriptor.
// Any other field is a programming error.
func (r *Repository[T, P]) searchColumn(field domain.TextField) string {
	if !r.desc.hasTextField(field) {
		panic(fmt.Sprintf("crud.Repository: %s has no searchable field %+v", r.desc.Entity, field))
	}
	return field.Column
}

func (r *Repository[T, P]) notFound(id uint64) error {
	return domain.NewAppError(domain.CodeNotFound, fmt.Sprintf("%s %d not found", r.desc.Entity, id), nil)
}

// observe counts the outcome of op and returns err unchanged.
func (r *Repository[T, P]) observe(op string, err error) error {
	metrics.CrudOperations.With(prometheus.Labels{
		metrics.LabelEntity:    r.desc.Entity,
		metrics.LabelOperation: op,
		metrics.LabelOutcome:   outcome(err),
	}).Inc()
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case domain.IsNotFound(err):
		return metrics.OutcomeNotFound
	case domain.IsConflict(err):
		return metrics.OutcomeConflict
	case domain.IsValidation(err):
		return metrics.OutcomeInvalid
	case domain.IsUnavailable(err):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeError
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// mapError converts GORM errors to domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewAppError(domain.CodeUnavailable, "request timed out", err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeAlreadyExists, "already exists", err)
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}

// isDuplicateKeyError detects unique constraint violations by examining the
// error message. This is needed because not all GORM dialectors translate
// driver-level errors to gorm.ErrDuplicatedKey (e.g. the pure-Go SQLite driver).
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
