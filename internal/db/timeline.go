package db

import (
	"context"

	"github.com/steemit/simpleforum/internal/models"
)

// TimelineRepository provides activity log operations
type TimelineRepository struct {
	*Repository
}

// NewTimelineRepository creates a new timeline repository
func NewTimelineRepository(repo *Repository) *TimelineRepository {
	return &TimelineRepository{Repository: repo}
}

// Append inserts a timeline entry. Entries are never updated.
func (r *TimelineRepository) Append(ctx context.Context, entry *models.Timeline) error {
	return r.db.WithContext(ctx).Omit("User").Create(entry).Error
}

// ListByUser returns a user's entries newest first
func (r *TimelineRepository) ListByUser(ctx context.Context, userID int64, page Page) ([]models.Timeline, error) {
	var entries []models.Timeline
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_on DESC, id DESC")
	err := page.apply(q).Find(&entries).Error
	return entries, err
}

// ListByTarget returns the entries about one entity newest first
func (r *TimelineRepository) ListByTarget(ctx context.Context, kind models.TargetKind, id int64) ([]models.Timeline, error) {
	var entries []models.Timeline
	err := r.db.WithContext(ctx).Where("target_kind = ? AND target_id = ?", kind, id).
		Order("created_on DESC, id DESC").Find(&entries).Error
	return entries, err
}
