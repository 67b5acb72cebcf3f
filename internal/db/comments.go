package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/steemit/simpleforum/internal/models"
)

// CommentRepository provides comment database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// GetByID retrieves a comment with its author and mentions
func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Preload("CommentedBy").Preload("Mentioned").First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// ListByTopic returns every comment of a topic, oldest first
func (r *CommentRepository) ListByTopic(ctx context.Context, topicID int64) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).Preload("CommentedBy").Preload("Mentioned").
		Where("topic_id = ?", topicID).Order("created_on, id").Find(&comments).Error
	return comments, err
}

// ListByAuthor returns the comments written by userID
func (r *CommentRepository) ListByAuthor(ctx context.Context, userID int64) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).Where("commented_by_id = ?", userID).Order("id").Find(&comments).Error
	return comments, err
}

// CountByTopic returns the number of comments on a topic
func (r *CommentRepository) CountByTopic(ctx context.Context, topicID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("topic_id = ?", topicID).Count(&n).Error
	return n, err
}

// CommenterIDs returns the distinct authors of comments on a topic
func (r *CommentRepository) CommenterIDs(ctx context.Context, topicID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("topic_id = ?", topicID).
		Distinct().Pluck("commented_by_id", &ids).Error
	return ids, err
}

// Create inserts a comment with its mention links
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Omit("CommentedBy", "Topic", "Votes", "Mentioned.*").Create(comment).Error
}

// Save persists comment columns, leaving associations untouched
func (r *CommentRepository) Save(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Omit("CommentedBy", "Topic", "Mentioned", "Votes").Save(comment).Error
}

// ReplaceMentions sets the mentioned users of a comment
func (r *CommentRepository) ReplaceMentions(ctx context.Context, comment *models.Comment, users []models.User) error {
	return r.db.WithContext(ctx).Model(comment).Omit("Mentioned.*").Association("Mentioned").Replace(users)
}

// DeleteRows removes comments by id together with their mention links and votes
func (r *CommentRepository) DeleteRows(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx := r.db.WithContext(ctx)
	var voteIDs []int64
	if err := tx.Table("forum_comment_votes").Where("comment_id IN ?", ids).Pluck("vote_id", &voteIDs).Error; err != nil {
		return fmt.Errorf("failed to load comment votes: %w", err)
	}
	if err := tx.Exec("DELETE FROM forum_comment_votes WHERE comment_id IN ?", ids).Error; err != nil {
		return fmt.Errorf("failed to delete comment vote links: %w", err)
	}
	if len(voteIDs) > 0 {
		if err := tx.Where("id IN ?", voteIDs).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("failed to delete comment votes: %w", err)
		}
	}
	if err := tx.Exec("DELETE FROM forum_comment_mentions WHERE comment_id IN ?", ids).Error; err != nil {
		return fmt.Errorf("failed to delete comment mentions: %w", err)
	}
	// leaves first
	for i := len(ids) - 1; i >= 0; i-- {
		if err := tx.Delete(&models.Comment{}, ids[i]).Error; err != nil {
			return fmt.Errorf("failed to delete comment %d: %w", ids[i], err)
		}
	}
	return nil
}
