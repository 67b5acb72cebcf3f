package forum

import (
	"context"
	"fmt"

	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/models"
	"github.com/steemit/simpleforum/pkg/telemetry"
)

// VoteStatus is the outcome of a vote cast
type VoteStatus string

// Vote outcomes
const (
	VoteStatusUp      VoteStatus = "up"
	VoteStatusDown    VoteStatus = "down"
	VoteStatusRemoved VoteStatus = "removed"
	VoteStatusNeutral VoteStatus = "neutral"
)

const votingDisabled = "Voting is disabled for this category"

// VoteResult carries the outcome and the target's tally after the cast
type VoteResult struct {
	Status    VoteStatus
	UpVotes   int64
	DownVotes int64
}

// VoteTopic casts user's vote on the topic with the given slug.
// direction is models.VoteUp or models.VoteDown.
func (s *Service) VoteTopic(ctx context.Context, user *models.User, slug, direction string) (*VoteResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.VoteTopic")
	defer span.End()

	topic, err := db.NewTopicRepository(s.repo).GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}
	if topic == nil {
		return nil, ErrNotFound
	}
	if topic.Category != nil && !topic.Category.IsVotable {
		return nil, &Denied{Reason: votingDisabled}
	}
	result, err := s.castVote(ctx, db.TopicVotes, topic.ID, user.ID, direction)
	if err != nil {
		return nil, err
	}
	telemetry.RecordVote(ctx, "topic", string(result.Status))
	return result, nil
}

// VoteComment casts user's vote on a comment
func (s *Service) VoteComment(ctx context.Context, user *models.User, commentID int64, direction string) (*VoteResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.VoteComment")
	defer span.End()

	comment, err := db.NewCommentRepository(s.repo).GetByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	if comment == nil {
		return nil, ErrNotFound
	}
	topic, err := db.NewTopicRepository(s.repo).GetByID(ctx, comment.TopicID)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}
	if topic != nil && topic.Category != nil && !topic.Category.IsVotable {
		return nil, &Denied{Reason: votingDisabled}
	}
	result, err := s.castVote(ctx, db.CommentVotes, comment.ID, user.ID, direction)
	if err != nil {
		return nil, err
	}
	telemetry.RecordVote(ctx, "comment", string(result.Status))
	return result, nil
}

// castVote applies the ledger rules: no vote creates one, an opposite vote
// removes the existing one, a repeated vote changes nothing.
func (s *Service) castVote(ctx context.Context, target db.VoteTarget, targetID, userID int64, direction string) (*VoteResult, error) {
	if direction != models.VoteUp && direction != models.VoteDown {
		return nil, fmt.Errorf("invalid vote direction %q", direction)
	}

	result := &VoteResult{}
	err := s.repo.Transaction(ctx, func(tx *db.Repository) error {
		votes := db.NewVoteRepository(tx)
		existing, err := votes.Find(ctx, target, targetID, userID)
		if err != nil {
			return fmt.Errorf("failed to find vote: %w", err)
		}

		switch {
		case existing == nil:
			vote := &models.Vote{UserID: userID, Type: direction, CreatedOn: s.now()}
			if err := votes.Attach(ctx, target, targetID, vote); err != nil {
				return fmt.Errorf("failed to attach vote: %w", err)
			}
			if direction == models.VoteUp {
				result.Status = VoteStatusUp
			} else {
				result.Status = VoteStatusDown
			}
		case existing.Type != direction:
			if err := votes.Detach(ctx, target, targetID, existing); err != nil {
				return fmt.Errorf("failed to detach vote: %w", err)
			}
			result.Status = VoteStatusRemoved
		default:
			result.Status = VoteStatusNeutral
		}

		result.UpVotes, result.DownVotes, err = votes.Tally(ctx, target, targetID)
		if err != nil {
			return fmt.Errorf("failed to tally votes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
