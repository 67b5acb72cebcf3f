package forum

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/models"
	"github.com/steemit/simpleforum/pkg/telemetry"
)

const (
	invalidChoice  = "Select a valid choice. That choice is not one of the available choices."
	topicExists    = "Topic with this Name already exists."
	updateDenied   = "You don't have permission to update this topic"
	topicDelDenied = "You don't have permission to delete this topic"
)

// PageSize is the number of rows on a listing page
const PageSize = 10

// GetTopic loads a topic by slug
func (s *Service) GetTopic(ctx context.Context, slug string) (*models.Topic, error) {
	topic, err := db.NewTopicRepository(s.repo).GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}
	if topic == nil {
		return nil, ErrNotFound
	}
	return topic, nil
}

// CreateTopic validates the form and creates a Draft topic with its tags
func (s *Service) CreateTopic(ctx context.Context, user *models.User, in TopicInput) (*models.Topic, error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.CreateTopic")
	defer span.End()

	categoryID, err := s.checkTopicForm(ctx, &in, 0)
	if err != nil {
		return nil, err
	}

	now := s.now()
	topic := &models.Topic{
		Title:       in.Title,
		Slug:        Slugify(in.Title),
		Description: in.Description,
		Status:      models.StatusDraft,
		CategoryID:  categoryID,
		CreatedByID: user.ID,
		CreatedOn:   now,
		UpdatedOn:   now,
	}
	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		if err := db.NewTopicRepository(tx).Create(ctx, topic); err != nil {
			return fmt.Errorf("failed to create topic: %w", err)
		}
		if err := s.reconcileTags(ctx, tx, topic, splitTags(in.Tags)); err != nil {
			return err
		}
		return s.record(ctx, tx, user.ID, models.TargetTopic, topic.ID,
			models.NamespaceTopicCreate, models.EventTopicCreate)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateSidebar(ctx)
	s.logger.Info("Topic created", zap.Int64("topic_id", topic.ID), zap.String("slug", topic.Slug))
	return topic, nil
}

// UpdateTopic edits a topic. Only its creator or a superuser may do so.
func (s *Service) UpdateTopic(ctx context.Context, user *models.User, slug string, in TopicInput) (*models.Topic, error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.UpdateTopic")
	defer span.End()

	topic, err := s.GetTopic(ctx, slug)
	if err != nil {
		return nil, err
	}
	if topic.CreatedByID != user.ID && !user.IsSuperuser {
		return nil, &Denied{Reason: updateDenied}
	}
	categoryID, err := s.checkTopicForm(ctx, &in, topic.ID)
	if err != nil {
		return nil, err
	}

	topic.Title = in.Title
	topic.Slug = Slugify(in.Title)
	topic.Description = in.Description
	topic.CategoryID = categoryID
	topic.UpdatedOn = s.now()
	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		if err := db.NewTopicRepository(tx).Save(ctx, topic); err != nil {
			return fmt.Errorf("failed to save topic: %w", err)
		}
		if err := s.reconcileTags(ctx, tx, topic, splitTags(in.Tags)); err != nil {
			return err
		}
		return s.record(ctx, tx, user.ID, models.TargetTopic, topic.ID,
			models.NamespaceTopicUpdate, models.EventTopicUpdate)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateSidebar(ctx)
	return topic, nil
}

// checkTopicForm validates in and returns the category the topic goes into.
// A valid sub_category overrides category.
func (s *Service) checkTopicForm(ctx context.Context, in *TopicInput, topicID int64) (int64, error) {
	errs, err := checkForm(in)
	if err != nil {
		return 0, err
	}

	if in.Title != "" {
		slug := Slugify(in.Title)
		if slug == "" {
			errs.Add("title", "Enter a valid value.")
		} else {
			taken, err := db.NewTopicRepository(s.repo).SlugTaken(ctx, slug, topicID)
			if err != nil {
				return 0, fmt.Errorf("failed to check topic slug: %w", err)
			}
			if taken {
				errs.Add("title", topicExists)
			}
		}
	}

	categories := db.NewCategoryRepository(s.repo)
	var categoryID int64
	if in.Category != "" {
		category, err := s.categoryByID(ctx, categories, in.Category)
		if err != nil {
			return 0, err
		}
		if category == nil {
			errs.Add("category", invalidChoice)
		} else {
			categoryID = category.ID
		}
	}
	if in.SubCategory != "" {
		sub, err := s.categoryByID(ctx, categories, in.SubCategory)
		if err != nil {
			return 0, err
		}
		if sub == nil {
			errs.Add("sub_category", invalidChoice)
		} else {
			categoryID = sub.ID
		}
	}
	if err := errs.OrNil(); err != nil {
		return 0, err
	}
	return categoryID, nil
}

func (s *Service) categoryByID(ctx context.Context, repo *db.CategoryRepository, raw string) (*models.ForumCategory, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, nil
	}
	category, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	return category, nil
}

// reconcileTags makes the topic's tag set equal to titles: missing tags are
// linked (reusing a tag with the same slug, else creating it) and tags no
// longer named are unlinked.
func (s *Service) reconcileTags(ctx context.Context, tx *db.Repository, topic *models.Topic, titles []string) error {
	tags := db.NewTagRepository(tx)
	topics := db.NewTopicRepository(tx)

	current := make(map[string]models.Tag, len(topic.Tags))
	for _, tag := range topic.Tags {
		current[tag.Slug] = tag
	}
	wanted := make(map[string]bool, len(titles))

	var add []models.Tag
	for _, title := range titles {
		slug := Slugify(title)
		wanted[slug] = true
		if _, ok := current[slug]; ok {
			continue
		}
		tag, err := tags.GetBySlug(ctx, slug)
		if err != nil {
			return fmt.Errorf("failed to load tag %q: %w", slug, err)
		}
		if tag == nil {
			tag = &models.Tag{Title: title, Slug: slug}
			if err := tags.Create(ctx, tag); err != nil {
				return fmt.Errorf("failed to create tag %q: %w", slug, err)
			}
		}
		add = append(add, *tag)
	}

	var remove []models.Tag
	kept := make([]models.Tag, 0, len(titles))
	for slug, tag := range current {
		if wanted[slug] {
			kept = append(kept, tag)
		} else {
			remove = append(remove, tag)
		}
	}

	if err := topics.RemoveTags(ctx, topic, remove); err != nil {
		return fmt.Errorf("failed to unlink tags: %w", err)
	}
	if err := topics.AddTags(ctx, topic, add); err != nil {
		return fmt.Errorf("failed to link tags: %w", err)
	}
	topic.Tags = append(kept, add...)
	return nil
}

// DeleteTopic removes a topic on behalf of its creator or a superuser
func (s *Service) DeleteTopic(ctx context.Context, user *models.User, slug string) error {
	topic, err := s.GetTopic(ctx, slug)
	if err != nil {
		return err
	}
	if topic.CreatedByID != user.ID && !user.IsSuperuser {
		return &Denied{Reason: topicDelDenied}
	}
	return s.removeTopic(ctx, topic.ID)
}

// AdminDeleteTopic removes a topic from the dashboard
func (s *Service) AdminDeleteTopic(ctx context.Context, slug string) error {
	topic, err := s.GetTopic(ctx, slug)
	if err != nil {
		return err
	}
	return s.removeTopic(ctx, topic.ID)
}

func (s *Service) removeTopic(ctx context.Context, topicID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "forum.DeleteTopic")
	defer span.End()

	err := s.repo.Transaction(ctx, func(tx *db.Repository) error {
		return deleteTopicRows(ctx, tx, topicID)
	})
	if err != nil {
		return err
	}
	s.invalidateSidebar(ctx)
	return nil
}

// deleteTopicRows removes a topic, its comments and everything attached to them
func deleteTopicRows(ctx context.Context, tx *db.Repository, topicID int64) error {
	comments := db.NewCommentRepository(tx)
	all, err := comments.ListByTopic(ctx, topicID)
	if err != nil {
		return fmt.Errorf("failed to load topic comments: %w", err)
	}
	ids := flatten(CommentTree(all))
	if err := comments.DeleteRows(ctx, ids); err != nil {
		return err
	}
	return db.NewTopicRepository(tx).DeleteRows(ctx, topicID)
}

// flatten lists node ids parents first
func flatten(nodes []*CommentNode) []int64 {
	var ids []int64
	for _, n := range nodes {
		ids = append(ids, n.Comment.ID)
		ids = append(ids, flatten(n.Children)...)
	}
	return ids
}

// RotateTopicStatus moves the topic to its next status and returns it
func (s *Service) RotateTopicStatus(ctx context.Context, slug string) (string, error) {
	topic, err := s.GetTopic(ctx, slug)
	if err != nil {
		return "", err
	}
	next := models.NextStatus(topic.Status)
	if err := db.NewTopicRepository(s.repo).UpdateStatus(ctx, topic.ID, next); err != nil {
		return "", fmt.Errorf("failed to update topic status: %w", err)
	}
	s.logger.Info("Topic status changed",
		zap.String("slug", slug), zap.String("from", topic.Status), zap.String("to", next))
	return next, nil
}

// ListTopics is the main topic listing: published topics, plus the viewer's
// own drafts when viewer is not nil.
func (s *Service) ListTopics(ctx context.Context, viewer *models.User, page db.Page) ([]models.Topic, error) {
	f := db.TopicFilter{Statuses: []string{models.StatusPublished}}
	if viewer != nil {
		f.DraftsOf = viewer.ID
	}
	topics, err := db.NewTopicRepository(s.repo).List(ctx, f, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return topics, nil
}

// TopicsPage is ListTopics bounded to one page of PageSize topics
func (s *Service) TopicsPage(ctx context.Context, viewer *models.User, page int) ([]models.Topic, Pagination, error) {
	f := db.TopicFilter{Statuses: []string{models.StatusPublished}}
	if viewer != nil {
		f.DraftsOf = viewer.ID
	}
	total, err := db.NewTopicRepository(s.repo).Count(ctx, f)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count topics: %w", err)
	}
	bounds, pg := Paginate(page, total)
	topics, err := s.ListTopics(ctx, viewer, bounds)
	if err != nil {
		return nil, Pagination{}, err
	}
	return topics, pg, nil
}

// CategoryTopics returns a category with its published topics
func (s *Service) CategoryTopics(ctx context.Context, slug string) (*models.ForumCategory, []models.Topic, error) {
	category, err := db.NewCategoryRepository(s.repo).GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load category: %w", err)
	}
	if category == nil {
		return nil, nil, ErrNotFound
	}
	topics, err := db.NewTopicRepository(s.repo).List(ctx, db.TopicFilter{
		Statuses:    []string{models.StatusPublished},
		CategoryIDs: []int64{category.ID},
	}, db.Page{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list category topics: %w", err)
	}
	return category, topics, nil
}

// TagTopics returns a tag with its published topics
func (s *Service) TagTopics(ctx context.Context, slug string) (*models.Tag, []models.Topic, error) {
	tag, err := db.NewTagRepository(s.repo).GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tag: %w", err)
	}
	if tag == nil {
		return nil, nil, ErrNotFound
	}
	topics, err := db.NewTopicRepository(s.repo).List(ctx, db.TopicFilter{
		Statuses: []string{models.StatusPublished},
		TagID:    tag.ID,
	}, db.Page{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list tag topics: %w", err)
	}
	return tag, topics, nil
}

// DashboardTopics lists every topic for admins, optionally filtered by
// title or creator username
func (s *Service) DashboardTopics(ctx context.Context, search string, page db.Page) ([]models.Topic, error) {
	topics, err := db.NewTopicRepository(s.repo).List(ctx, db.TopicFilter{Search: strings.TrimSpace(search)}, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return topics, nil
}

// DashboardTopicsPage is DashboardTopics bounded to one page
func (s *Service) DashboardTopicsPage(ctx context.Context, search string, page int) ([]models.Topic, Pagination, error) {
	total, err := db.NewTopicRepository(s.repo).Count(ctx, db.TopicFilter{Search: strings.TrimSpace(search)})
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count topics: %w", err)
	}
	bounds, pg := Paginate(page, total)
	topics, err := s.DashboardTopics(ctx, search, bounds)
	if err != nil {
		return nil, Pagination{}, err
	}
	return topics, pg, nil
}

// TopicDetail is everything shown on a topic page
type TopicDetail struct {
	Topic        *models.Topic
	Comments     []*CommentNode
	CommentCount int
	Suggested    []models.Topic
	Participants []models.User
	UpVotes      int64
	DownVotes    int64
	MinifiedURL  string
}

// ViewTopic loads a topic page and counts the view
func (s *Service) ViewTopic(ctx context.Context, slug string) (*TopicDetail, error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.ViewTopic")
	defer span.End()

	topic, err := s.GetTopic(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := db.NewTopicRepository(s.repo).IncrementViews(ctx, topic.ID); err != nil {
		return nil, fmt.Errorf("failed to count view: %w", err)
	}
	topic.NoOfViews++
	return s.topicDetail(ctx, topic)
}

// GetTopicDetail loads a topic page without counting a view
func (s *Service) GetTopicDetail(ctx context.Context, slug string) (*TopicDetail, error) {
	topic, err := s.GetTopic(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.topicDetail(ctx, topic)
}

func (s *Service) topicDetail(ctx context.Context, topic *models.Topic) (*TopicDetail, error) {
	topics := db.NewTopicRepository(s.repo)
	comments, err := db.NewCommentRepository(s.repo).ListByTopic(ctx, topic.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	suggested, err := topics.List(ctx, db.TopicFilter{
		Statuses:    []string{models.StatusPublished},
		CategoryIDs: []int64{topic.CategoryID},
		ExcludeID:   topic.ID,
	}, db.Page{Limit: PageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to load suggested topics: %w", err)
	}
	participants, err := s.Participants(ctx, topic)
	if err != nil {
		return nil, err
	}
	up, down, err := db.NewVoteRepository(s.repo).Tally(ctx, db.TopicVotes, topic.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}

	return &TopicDetail{
		Topic:        topic,
		Comments:     CommentTree(comments),
		CommentCount: len(comments),
		Suggested:    suggested,
		Participants: participants,
		UpVotes:      up,
		DownVotes:    down,
		MinifiedURL:  s.shortener.Shorten(ctx, s.absoluteURL(TopicPath(topic.Slug))),
	}, nil
}
