package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrInsufficientStock is returned when a stock change would make stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStaleState is returned when a conditional status update matched no row
	// because another request changed the record first.
	ErrStaleState = errors.New("record state changed concurrently")
)

// Page normalizes pagination input and returns (page, limit, offset).
func Page(page, limit, def, max int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > max {
		limit = def
	}
	return page, limit, (page - 1) * limit
}

// conn returns tx when the caller is inside a transaction, db otherwise.
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
