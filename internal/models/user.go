package models

import (
	"strings"
	"time"
)

// User is a forum account. Password holds a bcrypt hash.
type User struct {
	ID          int64      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Username    string     `gorm:"type:varchar(150);uniqueIndex;not null;column:username" json:"username"`
	Email       string     `gorm:"type:varchar(254);index;not null;default:'';column:email" json:"email"`
	FirstName   string     `gorm:"type:varchar(150);not null;default:'';column:first_name" json:"first_name"`
	LastName    string     `gorm:"type:varchar(150);not null;default:'';column:last_name" json:"last_name"`
	Password    string     `gorm:"type:varchar(128);not null;default:'';column:password" json:"-"`
	IsActive    bool       `gorm:"not null;default:true;column:is_active" json:"is_active"`
	IsSuperuser bool       `gorm:"not null;default:false;column:is_superuser" json:"is_superuser"`
	LastLogin   *time.Time `gorm:"column:last_login" json:"last_login,omitempty"`
	DateJoined  time.Time  `gorm:"not null;column:date_joined" json:"date_joined"`

	Profile *UserProfile `gorm:"foreignKey:UserID;references:ID" json:"-"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "forum_users"
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// MentionHandle is the part of the email before '@', used in mention autocompletion.
func (u *User) MentionHandle() string {
	if i := strings.Index(u.Email, "@"); i >= 0 {
		return u.Email[:i]
	}
	return u.Email
}

// User roles stored on the profile
const (
	RoleAdmin     = "Admin"
	RolePublisher = "Publisher"
)

// UserProfile carries per-user forum settings. One per user.
type UserProfile struct {
	ID                    int64   `gorm:"primaryKey;autoIncrement;column:id"`
	UserID                int64   `gorm:"uniqueIndex;not null;column:user_id"`
	UserRoles             string  `gorm:"type:varchar(10);not null;default:'Publisher';column:user_roles"`
	ProfilePic            string  `gorm:"type:varchar(500);not null;default:'';column:profile_pic"`
	SendMailNotifications bool    `gorm:"not null;default:false;column:send_mail_notifications"`
	Badges                []Badge `gorm:"many2many:forum_profile_badges;"`

	User *User `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for UserProfile
func (UserProfile) TableName() string {
	return "forum_user_profiles"
}

// Badge is an admin-managed award attached to profiles.
type Badge struct {
	ID    int64  `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Title string `gorm:"type:varchar(50);uniqueIndex;not null;column:title" json:"title"`
	Slug  string `gorm:"type:varchar(50);uniqueIndex;not null;column:slug" json:"slug"`
}

// TableName specifies the table name for Badge
func (Badge) TableName() string {
	return "forum_badges"
}
