package db

import (
	"context"

	"gorm.io/gorm"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying gorm handle
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Transaction runs fn inside a database transaction. Repositories built from
// the Repository passed to fn share that transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// Page bounds a list query. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	return q
}

// Count pairs an entity id with an aggregate count
type Count struct {
	ID    int64 `gorm:"column:id"`
	Count int64 `gorm:"column:count"`
}
