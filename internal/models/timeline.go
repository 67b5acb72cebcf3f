package models

import (
	"time"
)

// TargetKind names the entity a timeline entry refers to
type TargetKind string

// Timeline target kinds
const (
	TargetUser     TargetKind = "user"
	TargetTopic    TargetKind = "topic"
	TargetComment  TargetKind = "comment"
	TargetCategory TargetKind = "category"
	TargetBadge    TargetKind = "badge"
)

// Timeline event types and their display namespaces
const (
	EventUserCreate    = "user-create"
	EventTopicCreate   = "topic-create"
	EventTopicUpdate   = "topic-update"
	EventCommentCreate = "comment-create"
	EventCommentEdit   = "comment-edit"
	EventLikeTopic     = "like-topic"
	EventUnlikeTopic   = "unlike-topic"
	EventFollowTopic   = "follow-topic"
	EventUnfollowTopic = "unfollow-topic"

	NamespaceUserCreate    = "created on"
	NamespaceTopicCreate   = "created topic on"
	NamespaceTopicUpdate   = "updated topic on"
	NamespaceCommentCreate = "commented for the"
	NamespaceCommentEdit   = "edited comment for the"
	NamespaceLike          = "like the"
	NamespaceUnlike        = "unlike the"
	NamespaceFollow        = "follow the"
	NamespaceUnfollow      = "unfollow the"
)

// Timeline is an append-only activity record.
type Timeline struct {
	ID         int64      `gorm:"primaryKey;autoIncrement;column:id"`
	TargetKind TargetKind `gorm:"type:varchar(20);not null;index:idx_timeline_target;column:target_kind"`
	TargetID   int64      `gorm:"not null;index:idx_timeline_target;column:target_id"`
	Namespace  string     `gorm:"type:varchar(250);not null;default:'default';index:idx_timeline_target;column:namespace"`
	EventType  string     `gorm:"type:varchar(250);not null;index;column:event_type"`
	UserID     *int64     `gorm:"index;column:user_id"`
	Data       string     `gorm:"type:text;not null;default:'';column:data"`
	IsRead     bool       `gorm:"not null;default:false;column:is_read"`
	CreatedOn  time.Time  `gorm:"not null;index;column:created_on"`

	User *User `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for Timeline
func (Timeline) TableName() string {
	return "forum_timelines"
}
