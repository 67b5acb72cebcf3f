package models

import (
	"time"
)

// Vote directions
const (
	VoteUp   = "U"
	VoteDown = "D"
)

// Vote is one ledger entry. It is attached to exactly one topic or comment
// through forum_topic_votes or forum_comment_votes.
type Vote struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    int64     `gorm:"index;not null;column:user_id"`
	Type      string    `gorm:"type:varchar(1);not null;column:type"`
	CreatedOn time.Time `gorm:"not null;column:created_on"`

	User *User `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for Vote
func (Vote) TableName() string {
	return "forum_votes"
}

// UserTopic records a user's follow and like state on a topic. One row per pair.
type UserTopic struct {
	ID         int64      `gorm:"primaryKey;autoIncrement;column:id"`
	UserID     int64      `gorm:"uniqueIndex:idx_user_topic;not null;column:user_id"`
	TopicID    int64      `gorm:"uniqueIndex:idx_user_topic;not null;column:topic_id"`
	IsFollowed bool       `gorm:"not null;default:false;column:is_followed"`
	FollowedOn *time.Time `gorm:"column:followed_on"`
	IsLike     bool       `gorm:"not null;default:false;column:is_like"`

	User  *User  `gorm:"foreignKey:UserID;references:ID"`
	Topic *Topic `gorm:"foreignKey:TopicID;references:ID"`
}

// TableName specifies the table name for UserTopic
func (UserTopic) TableName() string {
	return "forum_user_topics"
}
