package crud

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/doitto/webapp/internal/domain"
	"github.com/doitto/webapp/internal/pkg"
)

// Service adds the REST workflows on top of a Repository. Queries are promoted
// from the embedded Repository unchanged.
type Service[T any, P Model[T]] struct {
	*Repository[T, P]
}

// NewService creates a Service backed by repo. It panics if repo is nil.
func NewService[T any, P Model[T]](repo *Repository[T, P]) *Service[T, P] {
	if repo == nil {
		panic("crud.NewService: repository must not be nil")
	}
	return &Service[T, P]{Repository: repo}
}

// Create persists t. Its identity and version are reset first, so a client
// can never choose them.
func (s *Service[T, P]) Create(ctx context.Context, t *T) error {
	if t == nil {
		panic("crud.Service.Create: entity must not be nil")
	}
	meta := P(t).Meta()
	meta.ID = 0
	meta.Version = 0
	if err := s.Repository.Create(ctx, t); err != nil {
		return err
	}
	slog.InfoContext(ctx, "entity created",
		slog.String("entity", s.desc.Entity),
		slog.Uint64("id", meta.ID),
	)
	return nil
}

// Remove deletes the entity with the given identity.
func (s *Service[T, P]) Remove(ctx context.Context, id uint64) error {
	if err := s.Repository.Remove(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "entity removed",
		slog.String("entity", s.desc.Entity),
		slog.Uint64("id", id),
	)
	return nil
}

// Merge loads the entity with the given identity, applies the descriptor's
// overlay with incoming and saves the result, all in one transaction.
//
// A non-zero version in incoming must equal the stored version, otherwise the
// client edited a stale copy and Merge fails with a conflict.
func (s *Service[T, P]) Merge(ctx context.Context, id uint64, incoming *T) (*T, error) {
	if incoming == nil {
		panic("crud.Service.Merge: incoming entity must not be nil")
	}

	var merged *T
	err := pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := s.WithDB(tx)
		existing, err := repo.Find(ctx, id)
		if err != nil {
			return err
		}
		stored := P(existing).Meta().Version
		if v := P(incoming).Meta().Version; v != 0 && v != stored {
			return domain.NewAppError(domain.CodeConflict,
				fmt.Sprintf("%s %d is at version %d, not %d", s.desc.Entity, id, stored, v), nil)
		}
		s.desc.Overlay(incoming, existing)
		merged, err = repo.Update(ctx, existing)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "entity updated",
		slog.String("entity", s.desc.Entity),
		slog.Uint64("id", id),
		slog.Int("version", P(merged).Meta().Version),
	)
	return merged, nil
}
