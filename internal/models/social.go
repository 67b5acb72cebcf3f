package models

// Facebook is the last Facebook profile seen for a user. Overwritten on each login.
type Facebook struct {
	ID          int64  `gorm:"primaryKey;autoIncrement;column:id"`
	UserID      int64  `gorm:"index;not null;column:user_id"`
	FacebookID  string `gorm:"type:varchar(100);not null;column:facebook_id"`
	FacebookURL string `gorm:"type:varchar(200);not null;default:'';column:facebook_url"`
	FirstName   string `gorm:"type:varchar(200);not null;default:'';column:first_name"`
	LastName    string `gorm:"type:varchar(200);not null;default:'';column:last_name"`
	Verified    string `gorm:"type:varchar(200);not null;default:'';column:verified"`
	Name        string `gorm:"type:varchar(200);not null;default:'';column:name"`
	Language    string `gorm:"type:varchar(200);not null;default:'';column:language"`
	Hometown    string `gorm:"type:varchar(200);not null;default:'';column:hometown"`
	Email       string `gorm:"type:varchar(200);not null;default:'';index;column:email"`
	Gender      string `gorm:"type:varchar(200);not null;default:'';column:gender"`
	Location    string `gorm:"type:varchar(200);not null;default:'';column:location"`
	Timezone    string `gorm:"type:varchar(200);not null;default:'';column:timezone"`
	AccessToken string `gorm:"type:varchar(2000);not null;default:'';column:accesstoken"`
}

// TableName specifies the table name for Facebook
func (Facebook) TableName() string {
	return "forum_facebook"
}

// Google is the last Google profile seen for a user. Overwritten on each login.
type Google struct {
	ID            int64  `gorm:"primaryKey;autoIncrement;column:id"`
	UserID        int64  `gorm:"index;not null;column:user_id"`
	GoogleID      string `gorm:"type:varchar(200);not null;default:'';column:google_id"`
	GoogleURL     string `gorm:"type:varchar(1000);not null;default:'';column:google_url"`
	VerifiedEmail string `gorm:"type:varchar(200);not null;default:'';column:verified_email"`
	FamilyName    string `gorm:"type:varchar(200);not null;default:'';column:family_name"`
	GivenName     string `gorm:"type:varchar(200);not null;default:'';column:given_name"`
	Name          string `gorm:"type:varchar(200);not null;default:'';column:name"`
	Picture       string `gorm:"type:varchar(200);not null;default:'';column:picture"`
	Gender        string `gorm:"type:varchar(10);not null;default:'';column:gender"`
	Email         string `gorm:"type:varchar(200);not null;default:'';index;column:email"`
}

// TableName specifies the table name for Google
func (Google) TableName() string {
	return "forum_google"
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{}, &Badge{}, &UserProfile{},
		&ForumCategory{}, &Tag{},
		&Topic{}, &Vote{}, &Comment{},
		&UserTopic{}, &Timeline{},
		&Facebook{}, &Google{},
	}
}
