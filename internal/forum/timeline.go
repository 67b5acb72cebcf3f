package forum

import (
	"context"
	"fmt"

	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/models"
)

// record appends an activity entry using repo, which may be a transaction
func (s *Service) record(ctx context.Context, repo *db.Repository, userID int64, kind models.TargetKind, targetID int64, namespace, event string) error {
	uid := userID
	entry := &models.Timeline{
		TargetKind: kind,
		TargetID:   targetID,
		Namespace:  namespace,
		EventType:  event,
		UserID:     &uid,
		CreatedOn:  s.now(),
	}
	if err := db.NewTimelineRepository(repo).Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to record %s: %w", event, err)
	}
	return nil
}

// Activity is a timeline entry with its target resolved
type Activity struct {
	Entry  models.Timeline
	Target interface{}
}

// Title is a display label for the resolved target
func (a Activity) Title() string {
	switch t := a.Target.(type) {
	case *models.User:
		return t.FullName()
	case *models.Topic:
		return t.Title
	case *models.Comment:
		return t.Body
	case *models.ForumCategory:
		return t.Title
	case *models.Badge:
		return t.Title
	}
	return ""
}

// ResolveTarget loads the entity a timeline entry refers to. It returns nil
// when the entity no longer exists.
func (s *Service) ResolveTarget(ctx context.Context, entry models.Timeline) (interface{}, error) {
	var (
		target interface{}
		err    error
	)
	switch entry.TargetKind {
	case models.TargetUser:
		var u *models.User
		u, err = db.NewUserRepository(s.repo).GetByID(ctx, entry.TargetID)
		if u != nil {
			target = u
		}
	case models.TargetTopic:
		var t *models.Topic
		t, err = db.NewTopicRepository(s.repo).GetByID(ctx, entry.TargetID)
		if t != nil {
			target = t
		}
	case models.TargetComment:
		var c *models.Comment
		c, err = db.NewCommentRepository(s.repo).GetByID(ctx, entry.TargetID)
		if c != nil {
			target = c
		}
	case models.TargetCategory:
		var c *models.ForumCategory
		c, err = db.NewCategoryRepository(s.repo).GetByID(ctx, entry.TargetID)
		if c != nil {
			target = c
		}
	case models.TargetBadge:
		var b []models.Badge
		b, err = db.NewBadgeRepository(s.repo).ListByIDs(ctx, []int64{entry.TargetID})
		if len(b) > 0 {
			target = &b[0]
		}
	default:
		return nil, fmt.Errorf("unknown timeline target kind %q", entry.TargetKind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s %d: %w", entry.TargetKind, entry.TargetID, err)
	}
	return target, nil
}

// UserActivity returns a user's timeline newest first with targets resolved.
// Entries whose target is gone are skipped.
func (s *Service) UserActivity(ctx context.Context, userID int64, limit int) ([]Activity, error) {
	entries, err := db.NewTimelineRepository(s.repo).ListByUser(ctx, userID, db.Page{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}
	activities := make([]Activity, 0, len(entries))
	for _, entry := range entries {
		target, err := s.ResolveTarget(ctx, entry)
		if err != nil {
			return nil, err
		}
		if target == nil {
			continue
		}
		activities = append(activities, Activity{Entry: entry, Target: target})
	}
	return activities, nil
}
