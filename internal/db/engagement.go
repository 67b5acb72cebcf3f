package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/steemit/simpleforum/internal/models"
)

// VoteTarget selects which join table a vote lives in
type VoteTarget struct {
	JoinTable string
	Column    string
}

// Vote join tables
var (
	TopicVotes   = VoteTarget{JoinTable: "forum_topic_votes", Column: "topic_id"}
	CommentVotes = VoteTarget{JoinTable: "forum_comment_votes", Column: "comment_id"}
)

// VoteRepository provides vote ledger operations
type VoteRepository struct {
	*Repository
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(repo *Repository) *VoteRepository {
	return &VoteRepository{Repository: repo}
}

// Find returns the user's vote on the target, or nil
func (r *VoteRepository) Find(ctx context.Context, target VoteTarget, targetID, userID int64) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Joins("JOIN "+target.JoinTable+" ON "+target.JoinTable+".vote_id = forum_votes.id").
		Where(target.JoinTable+"."+target.Column+" = ? AND forum_votes.user_id = ?", targetID, userID).
		Order("forum_votes.id").
		First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vote, nil
}

// Attach creates vote and links it to the target
func (r *VoteRepository) Attach(ctx context.Context, target VoteTarget, targetID int64, vote *models.Vote) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Omit("User").Create(vote).Error; err != nil {
		return err
	}
	return tx.Exec("INSERT INTO "+target.JoinTable+" ("+target.Column+", vote_id) VALUES (?, ?)", targetID, vote.ID).Error
}

// Detach unlinks the vote from the target and deletes it
func (r *VoteRepository) Detach(ctx context.Context, target VoteTarget, targetID int64, vote *models.Vote) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Exec("DELETE FROM "+target.JoinTable+" WHERE "+target.Column+" = ? AND vote_id = ?", targetID, vote.ID).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Vote{}, vote.ID).Error
}

// Tally counts the target's up and down votes
func (r *VoteRepository) Tally(ctx context.Context, target VoteTarget, targetID int64) (up, down int64, err error) {
	var rows []struct {
		Type  string
		Count int64
	}
	err = r.db.WithContext(ctx).Model(&models.Vote{}).
		Select("forum_votes.type AS type, COUNT(*) AS count").
		Joins("JOIN "+target.JoinTable+" ON "+target.JoinTable+".vote_id = forum_votes.id").
		Where(target.JoinTable+"."+target.Column+" = ?", targetID).
		Group("forum_votes.type").Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		switch row.Type {
		case models.VoteUp:
			up = row.Count
		case models.VoteDown:
			down = row.Count
		}
	}
	return up, down, nil
}

// TallyByUser counts the up and down votes a user has cast anywhere
func (r *VoteRepository) TallyByUser(ctx context.Context, userID int64) (up, down int64, err error) {
	var rows []struct {
		Type  string
		Count int64
	}
	err = r.db.WithContext(ctx).Model(&models.Vote{}).
		Select("type, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("type").Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		switch row.Type {
		case models.VoteUp:
			up = row.Count
		case models.VoteDown:
			down = row.Count
		}
	}
	return up, down, nil
}

// DeleteByUser removes every vote cast by userID with its links
func (r *VoteRepository) DeleteByUser(ctx context.Context, userID int64) error {
	tx := r.db.WithContext(ctx)
	sub := tx.Model(&models.Vote{}).Select("id").Where("user_id = ?", userID)
	if err := tx.Exec("DELETE FROM forum_topic_votes WHERE vote_id IN (?)", sub).Error; err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM forum_comment_votes WHERE vote_id IN (?)", sub).Error; err != nil {
		return err
	}
	return tx.Where("user_id = ?", userID).Delete(&models.Vote{}).Error
}

// UserTopicRepository provides follow/like row operations
type UserTopicRepository struct {
	*Repository
}

// NewUserTopicRepository creates a new user-topic repository
func NewUserTopicRepository(repo *Repository) *UserTopicRepository {
	return &UserTopicRepository{Repository: repo}
}

// GetOrCreate fetches the (user, topic) row, inserting an empty one if missing
func (r *UserTopicRepository) GetOrCreate(ctx context.Context, userID, topicID int64) (*models.UserTopic, error) {
	row := models.UserTopic{UserID: userID, TopicID: topicID}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND topic_id = ?", userID, topicID).
		FirstOrCreate(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Get returns the (user, topic) row or nil
func (r *UserTopicRepository) Get(ctx context.Context, userID, topicID int64) (*models.UserTopic, error) {
	var row models.UserTopic
	err := r.db.WithContext(ctx).Where("user_id = ? AND topic_id = ?", userID, topicID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Save persists a user-topic row
func (r *UserTopicRepository) Save(ctx context.Context, row *models.UserTopic) error {
	return r.db.WithContext(ctx).Omit("User", "Topic").Save(row).Error
}

// UserIDs returns users with the flag set ("is_like" or "is_followed") on a topic
func (r *UserTopicRepository) UserIDs(ctx context.Context, topicID int64, flag string) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.UserTopic{}).
		Where("topic_id = ? AND "+flag+" = ?", topicID, true).
		Pluck("user_id", &ids).Error
	return ids, err
}

// TopicIDs returns topics the user has the flag set on
func (r *UserTopicRepository) TopicIDs(ctx context.Context, userID int64, flag string) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.UserTopic{}).
		Where("user_id = ? AND "+flag+" = ?", userID, true).
		Pluck("topic_id", &ids).Error
	return ids, err
}

// User-topic flag columns
const (
	FlagLike   = "is_like"
	FlagFollow = "is_followed"
)
