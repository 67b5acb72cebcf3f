package forum

import (
	"context"
	"fmt"

	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/models"
	"github.com/steemit/simpleforum/pkg/telemetry"
)

// FollowResult is the follow state after a toggle
type FollowResult struct {
	IsFollowed bool
}

// LikeResult is the like state after a toggle
type LikeResult struct {
	IsLike    bool
	NoOfLikes int64
	NoOfUsers int
}

// ToggleFollow flips user's follow flag on the topic
func (s *Service) ToggleFollow(ctx context.Context, user *models.User, slug string) (*FollowResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.ToggleFollow")
	defer span.End()

	topic, err := db.NewTopicRepository(s.repo).GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}
	if topic == nil {
		return nil, ErrNotFound
	}

	result := &FollowResult{}
	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		rows := db.NewUserTopicRepository(tx)
		row, err := rows.GetOrCreate(ctx, user.ID, topic.ID)
		if err != nil {
			return fmt.Errorf("failed to load user topic: %w", err)
		}

		namespace, event := models.NamespaceFollow, models.EventFollowTopic
		if row.IsFollowed {
			row.IsFollowed = false
			row.FollowedOn = nil
			namespace, event = models.NamespaceUnfollow, models.EventUnfollowTopic
		} else {
			now := s.now()
			row.IsFollowed = true
			row.FollowedOn = &now
		}
		if err := rows.Save(ctx, row); err != nil {
			return fmt.Errorf("failed to save user topic: %w", err)
		}
		result.IsFollowed = row.IsFollowed
		return s.record(ctx, tx, user.ID, models.TargetTopic, topic.ID, namespace, event)
	})
	if err != nil {
		return nil, err
	}
	telemetry.RecordFollow(ctx, result.IsFollowed)
	return result, nil
}

// ToggleLike flips user's like flag on the topic and moves the like counter with it
func (s *Service) ToggleLike(ctx context.Context, user *models.User, slug string) (*LikeResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.ToggleLike")
	defer span.End()

	topic, err := db.NewTopicRepository(s.repo).GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}
	if topic == nil {
		return nil, ErrNotFound
	}

	result := &LikeResult{}
	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		rows := db.NewUserTopicRepository(tx)
		topics := db.NewTopicRepository(tx)
		row, err := rows.GetOrCreate(ctx, user.ID, topic.ID)
		if err != nil {
			return fmt.Errorf("failed to load user topic: %w", err)
		}

		delta := 1
		namespace, event := models.NamespaceLike, models.EventLikeTopic
		if row.IsLike {
			delta = -1
			namespace, event = models.NamespaceUnlike, models.EventUnlikeTopic
		}
		row.IsLike = !row.IsLike
		if err := rows.Save(ctx, row); err != nil {
			return fmt.Errorf("failed to save user topic: %w", err)
		}
		if err := topics.AddLikes(ctx, topic.ID, delta); err != nil {
			return fmt.Errorf("failed to update likes: %w", err)
		}
		if result.NoOfLikes, err = topics.Likes(ctx, topic.ID); err != nil {
			return fmt.Errorf("failed to read likes: %w", err)
		}
		result.IsLike = row.IsLike
		ids, err := participantIDs(ctx, tx, topic)
		if err != nil {
			return err
		}
		result.NoOfUsers = len(ids)
		return s.record(ctx, tx, user.ID, models.TargetTopic, topic.ID, namespace, event)
	})
	if err != nil {
		return nil, err
	}
	telemetry.RecordLike(ctx, result.IsLike)
	return result, nil
}

// participantIDs is the set of commenters, likers, followers and the creator of a topic
func participantIDs(ctx context.Context, repo *db.Repository, topic *models.Topic) ([]int64, error) {
	commenters, err := db.NewCommentRepository(repo).CommenterIDs(ctx, topic.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load commenters: %w", err)
	}
	rows := db.NewUserTopicRepository(repo)
	likers, err := rows.UserIDs(ctx, topic.ID, db.FlagLike)
	if err != nil {
		return nil, fmt.Errorf("failed to load likers: %w", err)
	}
	followers, err := rows.UserIDs(ctx, topic.ID, db.FlagFollow)
	if err != nil {
		return nil, fmt.Errorf("failed to load followers: %w", err)
	}
	return uniqueIDs(commenters, likers, followers, []int64{topic.CreatedByID}), nil
}

// Participants returns the distinct users engaged with a topic
func (s *Service) Participants(ctx context.Context, topic *models.Topic) ([]models.User, error) {
	ids, err := participantIDs(ctx, s.repo, topic)
	if err != nil {
		return nil, err
	}
	users, err := db.NewUserRepository(s.repo).ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	return users, nil
}
