package models

import (
	"time"
)

// Comment is a reply on a topic, optionally nested under another comment.
type Comment struct {
	ID            int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Body          string    `gorm:"type:text;not null;default:'';column:comment" json:"comment"`
	CommentedByID int64     `gorm:"index;not null;column:commented_by_id" json:"commented_by_id"`
	TopicID       int64     `gorm:"index;not null;column:topic_id" json:"topic_id"`
	ParentID      *int64    `gorm:"index;column:parent_id" json:"parent_id,omitempty"`
	CreatedOn     time.Time `gorm:"not null;column:created_on" json:"created_on"`
	UpdatedOn     time.Time `gorm:"not null;column:updated_on" json:"updated_on"`

	CommentedBy *User  `gorm:"foreignKey:CommentedByID;references:ID" json:"-"`
	Topic       *Topic `gorm:"foreignKey:TopicID;references:ID" json:"-"`
	Mentioned   []User `gorm:"many2many:forum_comment_mentions;" json:"-"`
	Votes       []Vote `gorm:"many2many:forum_comment_votes;" json:"-"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "forum_comments"
}
