package forum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/steemit/simpleforum/internal/cache"
	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/models"
)

const (
	sidebarKey   = "sidebar"
	sidebarTTL   = 5 * time.Minute
	sidebarLimit = 10
)

// CategoryCount is a category with its topic count
type CategoryCount struct {
	Category models.ForumCategory `json:"category"`
	Topics   int64                `json:"topics"`
}

// TagCount is a tag with its topic count
type TagCount struct {
	Tag    models.Tag `json:"tag"`
	Topics int64      `json:"topics"`
}

// UserCount is a user with the number of topics they created
type UserCount struct {
	User   models.User `json:"user"`
	Topics int64       `json:"topics"`
}

// Sidebar is the set of leaderboards shown next to public pages
type Sidebar struct {
	Categories []CategoryCount `json:"categories"`
	Tags       []TagCount      `json:"tags"`
	Users      []UserCount     `json:"users"`
	Badges     []models.Badge  `json:"badges"`
}

// Sidebar returns the leaderboards, served from the cache when possible
func (s *Service) Sidebar(ctx context.Context) (*Sidebar, error) {
	var cached Sidebar
	err := s.cache.GetJSON(ctx, sidebarKey, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Sidebar cache read failed", zap.Error(err))
	}

	sidebar, err := s.buildSidebar(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, sidebarKey, sidebar, sidebarTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Sidebar cache write failed", zap.Error(err))
	}
	return sidebar, nil
}

// invalidateSidebar drops the cached leaderboards after a write that changes them
func (s *Service) invalidateSidebar(ctx context.Context) {
	if err := s.cache.Delete(ctx, sidebarKey); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Sidebar cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) buildSidebar(ctx context.Context) (*Sidebar, error) {
	sidebar := &Sidebar{}

	categoryRepo := db.NewCategoryRepository(s.repo)
	counts, err := categoryRepo.TopByTopicCount(ctx, sidebarLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank categories: %w", err)
	}
	categories, err := categoryRepo.ListByIDs(ctx, countIDs(counts))
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	byID := make(map[int64]models.ForumCategory, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	for _, cnt := range counts {
		if c, ok := byID[cnt.ID]; ok {
			sidebar.Categories = append(sidebar.Categories, CategoryCount{Category: c, Topics: cnt.Count})
		}
	}

	tagRepo := db.NewTagRepository(s.repo)
	if counts, err = tagRepo.TopByTopicCount(ctx, sidebarLimit); err != nil {
		return nil, fmt.Errorf("failed to rank tags: %w", err)
	}
	tags, err := tagRepo.ListByIDs(ctx, countIDs(counts))
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	tagsByID := make(map[int64]models.Tag, len(tags))
	for _, t := range tags {
		tagsByID[t.ID] = t
	}
	for _, cnt := range counts {
		if t, ok := tagsByID[cnt.ID]; ok {
			sidebar.Tags = append(sidebar.Tags, TagCount{Tag: t, Topics: cnt.Count})
		}
	}

	userRepo := db.NewUserRepository(s.repo)
	if counts, err = userRepo.TopByTopicCount(ctx, sidebarLimit); err != nil {
		return nil, fmt.Errorf("failed to rank users: %w", err)
	}
	users, err := userRepo.ListByIDs(ctx, countIDs(counts))
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	usersByID := make(map[int64]models.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}
	for _, cnt := range counts {
		if u, ok := usersByID[cnt.ID]; ok {
			sidebar.Users = append(sidebar.Users, UserCount{User: u, Topics: cnt.Count})
		}
	}

	if sidebar.Badges, err = db.NewBadgeRepository(s.repo).List(ctx, "", "", db.Page{Limit: sidebarLimit}); err != nil {
		return nil, fmt.Errorf("failed to load badges: %w", err)
	}
	return sidebar, nil
}

func countIDs(counts []db.Count) []int64 {
	ids := make([]int64, 0, len(counts))
	for _, c := range counts {
		ids = append(ids, c.ID)
	}
	return ids
}
