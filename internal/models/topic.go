package models

import (
	"time"
)

// Topic status values
const (
	StatusDraft     = "Draft"
	StatusPublished = "Published"
	StatusDisabled  = "Disabled"
)

// Statuses lists every valid topic status in rotation order.
var Statuses = []string{StatusDraft, StatusPublished, StatusDisabled}

// NextStatus returns the status an admin toggle moves a topic to:
// Draft -> Published -> Disabled -> Draft. Unknown values restart at Draft.
func NextStatus(status string) string {
	switch status {
	case StatusDraft:
		return StatusPublished
	case StatusPublished:
		return StatusDisabled
	default:
		return StatusDraft
	}
}

// Topic is a discussion thread.
type Topic struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Title       string    `gorm:"type:varchar(2000);not null;column:title" json:"title"`
	Slug        string    `gorm:"type:varchar(1000);uniqueIndex;not null;column:slug" json:"slug"`
	Description string    `gorm:"type:text;not null;default:'';column:description" json:"description"`
	Status      string    `gorm:"type:varchar(10);index;not null;default:'Draft';column:status" json:"status"`
	CategoryID  int64     `gorm:"index;not null;column:category_id" json:"category_id"`
	CreatedByID int64     `gorm:"index;not null;column:created_by_id" json:"created_by_id"`
	CreatedOn   time.Time `gorm:"not null;column:created_on" json:"created_on"`
	UpdatedOn   time.Time `gorm:"not null;column:updated_on" json:"updated_on"`
	NoOfViews   int64     `gorm:"not null;default:0;column:no_of_views" json:"no_of_views"`
	NoOfLikes   int64     `gorm:"not null;default:0;column:no_of_likes" json:"no_of_likes"`

	Category  *ForumCategory `gorm:"foreignKey:CategoryID;references:ID" json:"-"`
	CreatedBy *User          `gorm:"foreignKey:CreatedByID;references:ID" json:"-"`
	Tags      []Tag          `gorm:"many2many:forum_topic_tags;" json:"tags,omitempty"`
	Votes     []Vote         `gorm:"many2many:forum_topic_votes;" json:"-"`
}

// TableName specifies the table name for Topic
func (Topic) TableName() string {
	return "forum_topics"
}

// TagTitles returns the titles of the loaded tags.
func (t *Topic) TagTitles() []string {
	titles := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		titles = append(titles, tag.Title)
	}
	return titles
}
