package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/steemit/simpleforum/internal/models"
)

// TopicRepository provides topic database operations
type TopicRepository struct {
	*Repository
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(repo *Repository) *TopicRepository {
	return &TopicRepository{Repository: repo}
}

// TopicFilter narrows topic listings. Statuses restricts the status column;
// DraftsOf additionally admits Draft topics created by that user.
type TopicFilter struct {
	Statuses    []string
	DraftsOf    int64
	CategoryIDs []int64
	TagID       int64
	CreatedByID int64
	IDs         []int64
	ExcludeID   int64
	Search      string
}

func (r *TopicRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Category").
		Preload("CreatedBy").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("forum_tags.title") })
}

// GetByID retrieves a topic by ID
func (r *TopicRepository) GetByID(ctx context.Context, id int64) (*models.Topic, error) {
	var topic models.Topic
	if err := r.preloaded(ctx).First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &topic, nil
}

// GetBySlug retrieves a topic by slug
func (r *TopicRepository) GetBySlug(ctx context.Context, slug string) (*models.Topic, error) {
	var topic models.Topic
	if err := r.preloaded(ctx).Where("forum_topics.slug = ?", slug).First(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &topic, nil
}

// SlugTaken reports whether another topic already uses slug
func (r *TopicRepository) SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Topic{}).
		Where("slug = ? AND id <> ?", slug, excludeID).Count(&n).Error
	return n > 0, err
}

func (r *TopicRepository) filtered(q *gorm.DB, f TopicFilter) *gorm.DB {
	switch {
	case len(f.Statuses) > 0 && f.DraftsOf != 0:
		q = q.Where("(forum_topics.status IN ? OR (forum_topics.status = ? AND forum_topics.created_by_id = ?))",
			f.Statuses, models.StatusDraft, f.DraftsOf)
	case len(f.Statuses) > 0:
		q = q.Where("forum_topics.status IN ?", f.Statuses)
	}
	if len(f.CategoryIDs) > 0 {
		q = q.Where("forum_topics.category_id IN ?", f.CategoryIDs)
	}
	if f.TagID != 0 {
		q = q.Where("forum_topics.id IN (?)",
			r.db.Table("forum_topic_tags").Select("topic_id").Where("tag_id = ?", f.TagID))
	}
	if f.CreatedByID != 0 {
		q = q.Where("forum_topics.created_by_id = ?", f.CreatedByID)
	}
	if f.IDs != nil {
		q = q.Where("forum_topics.id IN ?", append([]int64{0}, f.IDs...))
	}
	if f.ExcludeID != 0 {
		q = q.Where("forum_topics.id <> ?", f.ExcludeID)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("(forum_topics.title LIKE ? OR forum_topics.created_by_id IN (?))",
			like, r.db.Model(&models.User{}).Select("id").Where("username LIKE ?", like))
	}
	return q
}

// List returns topics matching f, newest first
func (r *TopicRepository) List(ctx context.Context, f TopicFilter, page Page) ([]models.Topic, error) {
	var topics []models.Topic
	q := r.filtered(r.preloaded(ctx).Model(&models.Topic{}), f)
	err := page.apply(q.Order("forum_topics.created_on DESC, forum_topics.id DESC")).Find(&topics).Error
	return topics, err
}

// Count returns the number of topics matching f
func (r *TopicRepository) Count(ctx context.Context, f TopicFilter) (int64, error) {
	var n int64
	err := r.filtered(r.db.WithContext(ctx).Model(&models.Topic{}), f).Count(&n).Error
	return n, err
}

// Create inserts a topic together with its tag links
func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	return r.db.WithContext(ctx).Omit("Category", "CreatedBy", "Votes", "Tags.*").Create(topic).Error
}

// Save persists topic columns, leaving associations untouched
func (r *TopicRepository) Save(ctx context.Context, topic *models.Topic) error {
	return r.db.WithContext(ctx).Omit(
		"Category", "CreatedBy", "Tags", "Votes",
	).Save(topic).Error
}

// UpdateStatus sets a topic's status
func (r *TopicRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).Model(&models.Topic{}).Where("id = ?", id).Update("status", status).Error
}

// IncrementViews adds one view to the topic
func (r *TopicRepository) IncrementViews(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&models.Topic{}).Where("id = ?", id).
		UpdateColumn("no_of_views", gorm.Expr("no_of_views + ?", 1)).Error
}

// AddLikes adjusts the like counter by delta in one statement
func (r *TopicRepository) AddLikes(ctx context.Context, id int64, delta int) error {
	return r.db.WithContext(ctx).Model(&models.Topic{}).Where("id = ?", id).
		UpdateColumn("no_of_likes", gorm.Expr("no_of_likes + ?", delta)).Error
}

// Likes reads the current like counter
func (r *TopicRepository) Likes(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Topic{}).Where("id = ?", id).
		Select("no_of_likes").Scan(&n).Error
	return n, err
}

// AddTags links tags to the topic
func (r *TopicRepository) AddTags(ctx context.Context, topic *models.Topic, tags []models.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(topic).Omit("Tags.*").Association("Tags").Append(tags)
}

// RemoveTags unlinks tags from the topic without deleting them
func (r *TopicRepository) RemoveTags(ctx context.Context, topic *models.Topic, tags []models.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(topic).Association("Tags").Delete(tags)
}

// CategoryIDsOf returns the distinct categories of a user's topics
func (r *TopicRepository) CategoryIDsOf(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Topic{}).Where("created_by_id = ?", userID).
		Distinct().Pluck("category_id", &ids).Error
	return ids, err
}

// TagIDsOf returns the distinct tags of a user's topics
func (r *TopicRepository) TagIDsOf(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Table("forum_topic_tags").
		Joins("JOIN forum_topics ON forum_topics.id = forum_topic_tags.topic_id").
		Where("forum_topics.created_by_id = ?", userID).
		Distinct().Pluck("forum_topic_tags.tag_id", &ids).Error
	return ids, err
}

// IDsByCreator returns the ids of every topic created by userID
func (r *TopicRepository) IDsByCreator(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Topic{}).Where("created_by_id = ?", userID).Pluck("id", &ids).Error
	return ids, err
}

// IDsByCategory returns the ids of every topic in a category
func (r *TopicRepository) IDsByCategory(ctx context.Context, categoryID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Topic{}).Where("category_id = ?", categoryID).Pluck("id", &ids).Error
	return ids, err
}

// DeleteRows removes a topic with its tag links, votes and follow/like rows.
// Comments must be removed by the caller first.
func (r *TopicRepository) DeleteRows(ctx context.Context, topicID int64) error {
	tx := r.db.WithContext(ctx)
	var voteIDs []int64
	if err := tx.Table("forum_topic_votes").Where("topic_id = ?", topicID).Pluck("vote_id", &voteIDs).Error; err != nil {
		return fmt.Errorf("failed to load topic votes: %w", err)
	}
	if err := tx.Exec("DELETE FROM forum_topic_votes WHERE topic_id = ?", topicID).Error; err != nil {
		return fmt.Errorf("failed to delete topic vote links: %w", err)
	}
	if len(voteIDs) > 0 {
		if err := tx.Where("id IN ?", voteIDs).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("failed to delete topic votes: %w", err)
		}
	}
	if err := tx.Exec("DELETE FROM forum_topic_tags WHERE topic_id = ?", topicID).Error; err != nil {
		return fmt.Errorf("failed to delete topic tags: %w", err)
	}
	if err := tx.Where("topic_id = ?", topicID).Delete(&models.UserTopic{}).Error; err != nil {
		return fmt.Errorf("failed to delete user topics: %w", err)
	}
	if err := tx.Delete(&models.Topic{}, topicID).Error; err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	return nil
}
