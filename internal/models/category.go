package models

import (
	"time"
)

// DefaultCategoryColor is used when a category is created without a color
const DefaultCategoryColor = "#999999"

// ForumCategory groups topics. Categories may nest through ParentID.
type ForumCategory struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Title       string    `gorm:"type:varchar(1000);not null;column:title" json:"title"`
	Slug        string    `gorm:"type:varchar(1000);uniqueIndex;not null;column:slug" json:"slug"`
	Description string    `gorm:"type:text;not null;default:'';column:description" json:"description"`
	Color       string    `gorm:"type:varchar(20);not null;default:'#999999';column:color" json:"color"`
	IsActive    bool      `gorm:"not null;default:false;column:is_active" json:"is_active"`
	IsVotable   bool      `gorm:"not null;default:false;column:is_votable" json:"is_votable"`
	ParentID    *int64    `gorm:"index;column:parent_id" json:"parent_id,omitempty"`
	CreatedByID int64     `gorm:"not null;column:created_by_id" json:"created_by_id"`
	CreatedOn   time.Time `gorm:"not null;column:created_on" json:"created_on"`

	Parent    *ForumCategory `gorm:"foreignKey:ParentID;references:ID" json:"-"`
	CreatedBy *User          `gorm:"foreignKey:CreatedByID;references:ID" json:"-"`
}

// TableName specifies the table name for ForumCategory
func (ForumCategory) TableName() string {
	return "forum_categories"
}

// Tag labels topics. Tags are created lazily when a topic names them.
type Tag struct {
	ID    int64  `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Title string `gorm:"type:varchar(50);uniqueIndex;not null;column:title" json:"title"`
	Slug  string `gorm:"type:varchar(50);uniqueIndex;not null;column:slug" json:"slug"`
}

// TableName specifies the table name for Tag
func (Tag) TableName() string {
	return "forum_tags"
}
