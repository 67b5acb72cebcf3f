package forum

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/models"
)

const (
	categoryExists = "Category with this Name already exists."
	badgeExists    = "Badge with this Name already exists."
)

func boolPtr(b bool) *bool { return &b }

// Pagination describes one page of a listing
type Pagination struct {
	Page    int
	Pages   int
	Total   int64
	HasPrev bool
	HasNext bool
}

// Paginate bounds a listing to page (1-based) of PageSize rows
func Paginate(page int, total int64) (db.Page, Pagination) {
	if page < 1 {
		page = 1
	}
	pages := int((total + PageSize - 1) / PageSize)
	if pages < 1 {
		pages = 1
	}
	if page > pages {
		page = pages
	}
	return db.Page{Limit: PageSize, Offset: (page - 1) * PageSize}, Pagination{
		Page:    page,
		Pages:   pages,
		Total:   total,
		HasPrev: page > 1,
		HasNext: page < pages,
	}
}

// GetCategory loads a category by slug
func (s *Service) GetCategory(ctx context.Context, slug string) (*models.ForumCategory, error) {
	category, err := db.NewCategoryRepository(s.repo).GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	if category == nil {
		return nil, ErrNotFound
	}
	return category, nil
}

// CreateCategory adds a category owned by admin
func (s *Service) CreateCategory(ctx context.Context, admin *models.User, in CategoryInput) (*models.ForumCategory, error) {
	parentID, err := s.checkCategoryForm(ctx, &in, 0)
	if err != nil {
		return nil, err
	}
	category := &models.ForumCategory{
		Title:       in.Title,
		Slug:        Slugify(in.Title),
		Description: in.Description,
		Color:       in.Color,
		IsActive:    formTrue(in.IsActive),
		IsVotable:   formTrue(in.IsVotable),
		ParentID:    parentID,
		CreatedByID: admin.ID,
		CreatedOn:   s.now(),
	}
	if category.Color == "" {
		category.Color = models.DefaultCategoryColor
	}
	if err := db.NewCategoryRepository(s.repo).Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	s.invalidateSidebar(ctx)
	return category, nil
}

// UpdateCategory edits a category. The slug is kept.
func (s *Service) UpdateCategory(ctx context.Context, slug string, in CategoryInput) (*models.ForumCategory, error) {
	category, err := s.GetCategory(ctx, slug)
	if err != nil {
		return nil, err
	}
	parentID, err := s.checkCategoryForm(ctx, &in, category.ID)
	if err != nil {
		return nil, err
	}
	category.Title = in.Title
	category.Description = in.Description
	if in.Color != "" {
		category.Color = in.Color
	}
	category.IsActive = formTrue(in.IsActive)
	category.IsVotable = formTrue(in.IsVotable)
	if parentID != nil {
		category.ParentID = parentID
	}
	category.Parent = nil
	if err := db.NewCategoryRepository(s.repo).Save(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to save category: %w", err)
	}
	s.invalidateSidebar(ctx)
	return category, nil
}

func (s *Service) checkCategoryForm(ctx context.Context, in *CategoryInput, selfID int64) (*int64, error) {
	errs, err := checkForm(in)
	if err != nil {
		return nil, err
	}
	categories := db.NewCategoryRepository(s.repo)
	if in.Title != "" {
		taken, err := categories.SlugTaken(ctx, Slugify(in.Title), selfID)
		if err != nil {
			return nil, fmt.Errorf("failed to check category slug: %w", err)
		}
		if taken {
			errs.Add("title", categoryExists)
		}
	}

	var parentID *int64
	if raw := strings.TrimSpace(in.Parent); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id == selfID {
			errs.Add("parent", invalidChoice)
		} else {
			parent, err := categories.GetByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to load parent category: %w", err)
			}
			if parent == nil || isCategoryAncestor(ctx, categories, selfID, parent) {
				errs.Add("parent", invalidChoice)
			} else {
				parentID = &id
			}
		}
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return parentID, nil
}

// isCategoryAncestor reports whether selfID appears on the parent chain
// starting at parent. Each category is visited once.
func isCategoryAncestor(ctx context.Context, repo *db.CategoryRepository, selfID int64, parent *models.ForumCategory) bool {
	if selfID == 0 {
		return false
	}
	visited := make(map[int64]bool)
	for cur := parent; cur != nil && !visited[cur.ID]; {
		if cur.ID == selfID {
			return true
		}
		visited[cur.ID] = true
		if cur.ParentID == nil {
			return false
		}
		next, err := repo.GetByID(ctx, *cur.ParentID)
		if err != nil {
			return false
		}
		cur = next
	}
	return false
}

// DeleteCategory removes a category and the topics filed under it
func (s *Service) DeleteCategory(ctx context.Context, slug string) error {
	category, err := s.GetCategory(ctx, slug)
	if err != nil {
		return err
	}
	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		ids, err := db.NewTopicRepository(tx).IDsByCategory(ctx, category.ID)
		if err != nil {
			return fmt.Errorf("failed to load category topics: %w", err)
		}
		for _, id := range ids {
			if err := deleteTopicRows(ctx, tx, id); err != nil {
				return err
			}
		}
		return db.NewCategoryRepository(tx).Delete(ctx, category.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete category %s: %w", slug, err)
	}
	s.invalidateSidebar(ctx)
	s.logger.Info("Category deleted", zap.String("slug", slug))
	return nil
}

// CategoryDetail is the dashboard view of a category
type CategoryDetail struct {
	Category *models.ForumCategory
	Children []models.ForumCategory
	Topics   int64
}

// ViewCategory loads a category with its sub-categories and topic count
func (s *Service) ViewCategory(ctx context.Context, slug string) (*CategoryDetail, error) {
	category, err := s.GetCategory(ctx, slug)
	if err != nil {
		return nil, err
	}
	children, err := db.NewCategoryRepository(s.repo).Children(ctx, category.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sub-categories: %w", err)
	}
	n, err := db.NewTopicRepository(s.repo).Count(ctx, db.TopicFilter{CategoryIDs: []int64{category.ID}})
	if err != nil {
		return nil, fmt.Errorf("failed to count topics: %w", err)
	}
	return &CategoryDetail{Category: category, Children: children, Topics: n}, nil
}

// DashboardCategories lists categories for admins. Without filters only top
// level categories are shown.
func (s *Service) DashboardCategories(ctx context.Context, activeOnly bool, search string) ([]models.ForumCategory, error) {
	f := db.CategoryFilter{Search: strings.TrimSpace(search)}
	if activeOnly {
		f.Active = boolPtr(true)
	}
	if !activeOnly && f.Search == "" {
		f.Roots = boolPtr(true)
	}
	categories, err := db.NewCategoryRepository(s.repo).List(ctx, f, db.Page{})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// PublicCategories lists active votable categories newest first
func (s *Service) PublicCategories(ctx context.Context, page int) ([]models.ForumCategory, Pagination, error) {
	repo := db.NewCategoryRepository(s.repo)
	f := db.CategoryFilter{Active: boolPtr(true), Votable: boolPtr(true)}
	total, err := repo.Count(ctx, f)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count categories: %w", err)
	}
	bounds, pg := Paginate(page, total)
	categories, err := repo.List(ctx, f, bounds)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, pg, nil
}

// TopicCategories returns the categories offered on the topic form: active
// votable top level categories and their active votable sub-categories.
func (s *Service) TopicCategories(ctx context.Context) (roots, subs []models.ForumCategory, err error) {
	repo := db.NewCategoryRepository(s.repo)
	f := db.CategoryFilter{Active: boolPtr(true), Votable: boolPtr(true), Roots: boolPtr(true)}
	if roots, err = repo.List(ctx, f, db.Page{}); err != nil {
		return nil, nil, fmt.Errorf("failed to list categories: %w", err)
	}
	f.Roots = boolPtr(false)
	if subs, err = repo.List(ctx, f, db.Page{}); err != nil {
		return nil, nil, fmt.Errorf("failed to list sub-categories: %w", err)
	}
	return roots, subs, nil
}

// AllCategories lists top level categories for parent pickers
func (s *Service) AllCategories(ctx context.Context) ([]models.ForumCategory, error) {
	return db.NewCategoryRepository(s.repo).List(ctx, db.CategoryFilter{Roots: boolPtr(true)}, db.Page{})
}

// Tags lists tags; alphabet filters by first letter unless it is "all" or empty
func (s *Service) Tags(ctx context.Context, alphabet string) ([]models.Tag, error) {
	prefix := alphabetPrefix(alphabet)
	tags, err := db.NewTagRepository(s.repo).List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

func alphabetPrefix(alphabet string) string {
	alphabet = strings.TrimSpace(alphabet)
	if alphabet == "" || strings.EqualFold(alphabet, "all") {
		return ""
	}
	return alphabet
}

// GetBadge loads a badge by slug
func (s *Service) GetBadge(ctx context.Context, slug string) (*models.Badge, error) {
	badge, err := db.NewBadgeRepository(s.repo).GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge: %w", err)
	}
	if badge == nil {
		return nil, ErrNotFound
	}
	return badge, nil
}

// Badges lists badges filtered by first letter and substring
func (s *Service) Badges(ctx context.Context, alphabet, search string) ([]models.Badge, error) {
	badges, err := db.NewBadgeRepository(s.repo).List(ctx, alphabetPrefix(alphabet), strings.TrimSpace(search), db.Page{})
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	return badges, nil
}

// BadgeDetail is a badge with the users holding it
type BadgeDetail struct {
	Badge   *models.Badge
	Holders []models.UserProfile
}

// ViewBadge loads a badge and its holders
func (s *Service) ViewBadge(ctx context.Context, slug string) (*BadgeDetail, error) {
	badge, err := s.GetBadge(ctx, slug)
	if err != nil {
		return nil, err
	}
	holders, err := db.NewBadgeRepository(s.repo).Holders(ctx, badge.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge holders: %w", err)
	}
	return &BadgeDetail{Badge: badge, Holders: holders}, nil
}

// CreateBadge adds a badge
func (s *Service) CreateBadge(ctx context.Context, in BadgeInput) (*models.Badge, error) {
	if err := s.checkBadgeForm(ctx, &in, 0); err != nil {
		return nil, err
	}
	badge := &models.Badge{Title: in.Title, Slug: Slugify(in.Title)}
	if err := db.NewBadgeRepository(s.repo).Create(ctx, badge); err != nil {
		return nil, fmt.Errorf("failed to create badge: %w", err)
	}
	s.invalidateSidebar(ctx)
	return badge, nil
}

// UpdateBadge renames a badge. The slug is kept.
func (s *Service) UpdateBadge(ctx context.Context, slug string, in BadgeInput) (*models.Badge, error) {
	badge, err := s.GetBadge(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.checkBadgeForm(ctx, &in, badge.ID); err != nil {
		return nil, err
	}
	badge.Title = in.Title
	if err := db.NewBadgeRepository(s.repo).Save(ctx, badge); err != nil {
		return nil, fmt.Errorf("failed to save badge: %w", err)
	}
	s.invalidateSidebar(ctx)
	return badge, nil
}

// DeleteBadge removes a badge from every profile and deletes it
func (s *Service) DeleteBadge(ctx context.Context, slug string) error {
	badge, err := s.GetBadge(ctx, slug)
	if err != nil {
		return err
	}
	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		return db.NewBadgeRepository(tx).Delete(ctx, badge.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete badge %s: %w", slug, err)
	}
	s.invalidateSidebar(ctx)
	return nil
}

func (s *Service) checkBadgeForm(ctx context.Context, in *BadgeInput, selfID int64) error {
	errs, err := checkForm(in)
	if err != nil {
		return err
	}
	if in.Title != "" {
		taken, err := db.NewBadgeRepository(s.repo).SlugTaken(ctx, Slugify(in.Title), selfID)
		if err != nil {
			return fmt.Errorf("failed to check badge slug: %w", err)
		}
		if taken {
			errs.Add("title", badgeExists)
		}
	}
	return errs.OrNil()
}
