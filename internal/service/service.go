package service

import (
	"context"
	"errors"
	"strings"

	"officine/internal/apierror"
	"officine/internal/authz"
	"officine/internal/metrics"
	"officine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role authz.Role
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (in-memory mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// translate turns repository errors into classified errors. what names the
// entity in messages. Unclassified errors are returned unchanged and end up
// as a 500.
func translate(err error, what string) error {
	var apiErr *apierror.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apierror.NotFound(what + " not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apierror.Validation(what + " already exists")
	case errors.Is(err, repository.ErrInsufficientStock):
		return apierror.InsufficientStock("insufficient stock")
	case errors.Is(err, repository.ErrStaleState):
		return apierror.InvalidState(what + " was modified by another request")
	}
	return err
}

// stockConflict counts a refused decrement before translating it.
func stockConflict(err error, operation string) error {
	if errors.Is(err, repository.ErrInsufficientStock) || apierror.Is(err, apierror.KindInsufficientStock) {
		metrics.StockConflicts.WithLabelValues(operation).Inc()
	}
	return translate(err, operation)
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apierror.FieldErrors(map[string]string{field: "uuid"})
	}
	return id, nil
}

func parseOptionalID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := parseID(*raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
