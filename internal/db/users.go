package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/steemit/simpleforum/internal/models"
)

// UserRepository provides user and profile database operations
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(repo *Repository) *UserRepository {
	return &UserRepository{Repository: repo}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves the oldest user with the given email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).Order("id").First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ListByUsernames returns the users whose username is in names
func (r *UserRepository) ListByUsernames(ctx context.Context, names []string) ([]models.User, error) {
	var users []models.User
	if len(names) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("username IN ?", names).Order("id").Find(&users).Error
	return users, err
}

// ListByIDs returns users by id, ordered by id
func (r *UserRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&users).Error
	return users, err
}

// Search lists users whose email or username contains query. An empty query lists everyone.
func (r *UserRepository) Search(ctx context.Context, query string, page Page) ([]models.User, error) {
	var users []models.User
	q := r.db.WithContext(ctx).Model(&models.User{})
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("email LIKE ? OR username LIKE ?", like, like)
	}
	err := page.apply(q.Order("id DESC")).Find(&users).Error
	return users, err
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Save persists every column of user
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// UpdateFields updates the given columns on a user row
func (r *UserRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

// GetProfile retrieves the profile of a user with its badges
func (r *UserRepository) GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).Preload("Badges").Preload("User").
		Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// EnsureProfile returns the user's profile, creating one with the given role if missing
func (r *UserRepository) EnsureProfile(ctx context.Context, userID int64, role string) (*models.UserProfile, error) {
	profile, err := r.GetProfile(ctx, userID)
	if err != nil || profile != nil {
		return profile, err
	}
	profile = &models.UserProfile{UserID: userID, UserRoles: role}
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

// ListProfiles returns profiles (with users and badges) for the given user ids
func (r *UserRepository) ListProfiles(ctx context.Context, userIDs []int64) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	if len(userIDs) == 0 {
		return profiles, nil
	}
	err := r.db.WithContext(ctx).Preload("User").Preload("Badges").
		Where("user_id IN ?", userIDs).Order("user_id").Find(&profiles).Error
	return profiles, err
}

// SaveProfile persists profile columns, leaving badges untouched
func (r *UserRepository) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).Omit("Badges", "User").Save(profile).Error
}

// ReplaceBadges sets the profile's badge set
func (r *UserRepository) ReplaceBadges(ctx context.Context, profile *models.UserProfile, badges []models.Badge) error {
	return r.db.WithContext(ctx).Model(profile).Association("Badges").Replace(badges)
}

// TopByTopicCount returns user ids ordered by number of created topics
func (r *UserRepository) TopByTopicCount(ctx context.Context, limit int) ([]Count, error) {
	var counts []Count
	err := r.db.WithContext(ctx).Model(&models.Topic{}).
		Select("created_by_id AS id, COUNT(*) AS count").
		Group("created_by_id").Order("count DESC, created_by_id").
		Limit(limit).Scan(&counts).Error
	return counts, err
}

// SaveFacebook overwrites the user's Facebook snapshot
func (r *UserRepository) SaveFacebook(ctx context.Context, fb *models.Facebook) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("user_id = ?", fb.UserID).Delete(&models.Facebook{}).Error; err != nil {
		return err
	}
	return tx.Create(fb).Error
}

// SaveGoogle overwrites the user's Google snapshot
func (r *UserRepository) SaveGoogle(ctx context.Context, g *models.Google) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("user_id = ?", g.UserID).Delete(&models.Google{}).Error; err != nil {
		return err
	}
	return tx.Create(g).Error
}

// DeleteAccountRows removes the user row and the rows owned only by it:
// profile, badge links, social snapshots, follow/like rows, mentions and timeline.
// Topics, comments and votes must be removed by the caller first.
func (r *UserRepository) DeleteAccountRows(ctx context.Context, userID int64) error {
	tx := r.db.WithContext(ctx)
	var profileIDs []int64
	if err := tx.Model(&models.UserProfile{}).Where("user_id = ?", userID).Pluck("id", &profileIDs).Error; err != nil {
		return err
	}
	steps := []struct {
		name string
		run  func() error
	}{
		{"profile badges", func() error {
			if len(profileIDs) == 0 {
				return nil
			}
			return tx.Exec("DELETE FROM forum_profile_badges WHERE user_profile_id IN ?", profileIDs).Error
		}},
		{"profile", func() error { return tx.Where("user_id = ?", userID).Delete(&models.UserProfile{}).Error }},
		{"facebook", func() error { return tx.Where("user_id = ?", userID).Delete(&models.Facebook{}).Error }},
		{"google", func() error { return tx.Where("user_id = ?", userID).Delete(&models.Google{}).Error }},
		{"user topics", func() error { return tx.Where("user_id = ?", userID).Delete(&models.UserTopic{}).Error }},
		{"mentions", func() error {
			return tx.Exec("DELETE FROM forum_comment_mentions WHERE user_id = ?", userID).Error
		}},
		{"timeline", func() error { return tx.Where("user_id = ?", userID).Delete(&models.Timeline{}).Error }},
		{"user", func() error { return tx.Delete(&models.User{}, userID).Error }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", step.name, err)
		}
	}
	return nil
}
