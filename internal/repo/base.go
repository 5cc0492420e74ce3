// Package repo holds the shared embedding base for domain repositories.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the GORM handle for a repository. Domain repositories embed
// it and go through DB so every query is context-bound.
type Base struct {
	db *gorm.DB
}

// NewBase wraps a GORM connection or transaction.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the handle bound to ctx. A nil context returns the raw handle,
// which only tests should rely on.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
