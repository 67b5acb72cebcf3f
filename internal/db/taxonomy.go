package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/steemit/simpleforum/internal/models"
)

// CategoryRepository provides category database operations
type CategoryRepository struct {
	*Repository
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(repo *Repository) *CategoryRepository {
	return &CategoryRepository{Repository: repo}
}

// CategoryFilter narrows category listings. Roots selects top level
// categories when true and nested ones when false.
type CategoryFilter struct {
	Active  *bool
	Votable *bool
	Roots   *bool
	Search  string
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.ForumCategory, error) {
	var category models.ForumCategory
	if err := r.db.WithContext(ctx).Preload("Parent").First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// GetBySlug retrieves a category by slug
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.ForumCategory, error) {
	var category models.ForumCategory
	if err := r.db.WithContext(ctx).Preload("Parent").Where("slug = ?", slug).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// SlugTaken reports whether another category already uses slug
func (r *CategoryRepository) SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ForumCategory{}).
		Where("slug = ? AND id <> ?", slug, excludeID).Count(&n).Error
	return n > 0, err
}

func (r *CategoryRepository) filtered(q *gorm.DB, f CategoryFilter) *gorm.DB {
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if f.Votable != nil {
		q = q.Where("is_votable = ?", *f.Votable)
	}
	if f.Roots != nil {
		if *f.Roots {
			q = q.Where("parent_id IS NULL")
		} else {
			q = q.Where("parent_id IS NOT NULL")
		}
	}
	if f.Search != "" {
		q = q.Where("title LIKE ?", "%"+f.Search+"%")
	}
	return q
}

// List returns categories newest first
func (r *CategoryRepository) List(ctx context.Context, f CategoryFilter, page Page) ([]models.ForumCategory, error) {
	var categories []models.ForumCategory
	q := r.filtered(r.db.WithContext(ctx).Model(&models.ForumCategory{}).Preload("Parent"), f)
	err := page.apply(q.Order("created_on DESC, id DESC")).Find(&categories).Error
	return categories, err
}

// Count returns the number of categories matching f
func (r *CategoryRepository) Count(ctx context.Context, f CategoryFilter) (int64, error) {
	var n int64
	err := r.filtered(r.db.WithContext(ctx).Model(&models.ForumCategory{}), f).Count(&n).Error
	return n, err
}

// ListByIDs returns categories by id
func (r *CategoryRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.ForumCategory, error) {
	var categories []models.ForumCategory
	if len(ids) == 0 {
		return categories, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&categories).Error
	return categories, err
}

// Children returns the direct sub-categories of id
func (r *CategoryRepository) Children(ctx context.Context, id int64) ([]models.ForumCategory, error) {
	var categories []models.ForumCategory
	err := r.db.WithContext(ctx).Where("parent_id = ?", id).Order("id").Find(&categories).Error
	return categories, err
}

// Create inserts a category
func (r *CategoryRepository) Create(ctx context.Context, category *models.ForumCategory) error {
	return r.db.WithContext(ctx).Omit("Parent", "CreatedBy").Create(category).Error
}

// Save persists every column of category
func (r *CategoryRepository) Save(ctx context.Context, category *models.ForumCategory) error {
	return r.db.WithContext(ctx).Omit("Parent", "CreatedBy").Save(category).Error
}

// Delete removes a category row. Nested categories are detached and keep existing.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Model(&models.ForumCategory{}).Where("parent_id = ?", id).Update("parent_id", nil).Error; err != nil {
		return err
	}
	return tx.Delete(&models.ForumCategory{}, id).Error
}

// ReassignCreator moves ownership of every category created by from to to
func (r *CategoryRepository) ReassignCreator(ctx context.Context, from, to int64) error {
	return r.db.WithContext(ctx).Model(&models.ForumCategory{}).
		Where("created_by_id = ?", from).Update("created_by_id", to).Error
}

// TopByTopicCount returns active category ids ordered by topic count
func (r *CategoryRepository) TopByTopicCount(ctx context.Context, limit int) ([]Count, error) {
	var counts []Count
	err := r.db.WithContext(ctx).Table("forum_topics").
		Select("forum_topics.category_id AS id, COUNT(*) AS count").
		Joins("JOIN forum_categories ON forum_categories.id = forum_topics.category_id").
		Where("forum_categories.is_active = ?", true).
		Group("forum_topics.category_id").Order("count DESC, forum_topics.category_id").
		Limit(limit).Scan(&counts).Error
	return counts, err
}

// TagRepository provides tag database operations
type TagRepository struct {
	*Repository
}

// NewTagRepository creates a new tag repository
func NewTagRepository(repo *Repository) *TagRepository {
	return &TagRepository{Repository: repo}
}

// GetBySlug retrieves a tag by slug
func (r *TagRepository) GetBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tag, nil
}

// Create inserts a tag
func (r *TagRepository) Create(ctx context.Context, tag *models.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

// List returns tags ordered by title. A single-letter prefix filters by first letter.
func (r *TagRepository) List(ctx context.Context, prefix string) ([]models.Tag, error) {
	var tags []models.Tag
	q := r.db.WithContext(ctx).Model(&models.Tag{})
	if prefix != "" {
		q = q.Where("LOWER(title) LIKE ?", strings.ToLower(prefix)+"%")
	}
	err := q.Order("title").Find(&tags).Error
	return tags, err
}

// ListByIDs returns tags by id
func (r *TagRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.Tag, error) {
	var tags []models.Tag
	if len(ids) == 0 {
		return tags, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("title").Find(&tags).Error
	return tags, err
}

// TopByTopicCount returns tag ids ordered by the number of topics using them
func (r *TagRepository) TopByTopicCount(ctx context.Context, limit int) ([]Count, error) {
	var counts []Count
	err := r.db.WithContext(ctx).Table("forum_topic_tags").
		Select("tag_id AS id, COUNT(*) AS count").
		Group("tag_id").Order("count DESC, tag_id").
		Limit(limit).Scan(&counts).Error
	return counts, err
}

// BadgeRepository provides badge database operations
type BadgeRepository struct {
	*Repository
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(repo *Repository) *BadgeRepository {
	return &BadgeRepository{Repository: repo}
}

// GetBySlug retrieves a badge by slug
func (r *BadgeRepository) GetBySlug(ctx context.Context, slug string) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&badge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &badge, nil
}

// SlugTaken reports whether another badge already uses slug
func (r *BadgeRepository) SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Badge{}).
		Where("slug = ? AND id <> ?", slug, excludeID).Count(&n).Error
	return n > 0, err
}

// List returns badges ordered by id. prefix filters by first letter, search by substring.
func (r *BadgeRepository) List(ctx context.Context, prefix, search string, page Page) ([]models.Badge, error) {
	var badges []models.Badge
	q := r.db.WithContext(ctx).Model(&models.Badge{})
	if prefix != "" {
		q = q.Where("LOWER(title) LIKE ?", strings.ToLower(prefix)+"%")
	}
	if search != "" {
		q = q.Where("title LIKE ?", "%"+search+"%")
	}
	err := page.apply(q.Order("id")).Find(&badges).Error
	return badges, err
}

// ListByIDs returns badges by id
func (r *BadgeRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.Badge, error) {
	var badges []models.Badge
	if len(ids) == 0 {
		return badges, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&badges).Error
	return badges, err
}

// Holders returns the profiles carrying a badge
func (r *BadgeRepository) Holders(ctx context.Context, badgeID int64) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	err := r.db.WithContext(ctx).Preload("User").
		Joins("JOIN forum_profile_badges ON forum_profile_badges.user_profile_id = forum_user_profiles.id").
		Where("forum_profile_badges.badge_id = ?", badgeID).
		Order("forum_user_profiles.id").Find(&profiles).Error
	return profiles, err
}

// Create inserts a badge
func (r *BadgeRepository) Create(ctx context.Context, badge *models.Badge) error {
	return r.db.WithContext(ctx).Create(badge).Error
}

// Save persists every column of badge
func (r *BadgeRepository) Save(ctx context.Context, badge *models.Badge) error {
	return r.db.WithContext(ctx).Save(badge).Error
}

// Delete removes a badge and its profile links
func (r *BadgeRepository) Delete(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Exec("DELETE FROM forum_profile_badges WHERE badge_id = ?", id).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Badge{}, id).Error
}
