package forum

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/steemit/simpleforum/internal/auth"
	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/models"
	"github.com/steemit/simpleforum/internal/social"
	"github.com/steemit/simpleforum/pkg/telemetry"
)

const (
	usernameTaken     = "A user with that username already exists."
	emailTaken        = "User with this Email already exists."
	emailUnknown      = "Email is not registered."
	accountInactive   = "Your account is not activated yet!"
	badCredentials    = "Please enter a correct email and password."
	dashboardDenied   = "You dont have access to login to dashboard"
	oldPasswordWrong  = "Invalid old password"
	passwordsMismatch = "New password and Confirm Passwords did not match"
	resetUnknownEmail = "User With this email id doesn't exists!!!"
	selfDeleteDenied  = "You can't delete your own account"

	resetPasswordLength = 6
	profilePicDir       = "profile_pics"
)

// GetUser loads a user by id
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := db.NewUserRepository(s.repo).GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// GetUserByName loads a user by username
func (s *Service) GetUserByName(ctx context.Context, username string) (*models.User, error) {
	user, err := db.NewUserRepository(s.repo).GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// Register creates an active account with a Publisher profile
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.Register")
	defer span.End()

	errs, err := checkForm(&in)
	if err != nil {
		return nil, err
	}
	users := db.NewUserRepository(s.repo)
	if in.Username != "" {
		existing, err := users.GetByUsername(ctx, in.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if existing != nil {
			errs.Add("username", usernameTaken)
		}
	}
	if _, bad := errs["email"]; !bad && in.Email != "" {
		existing, err := users.GetByEmail(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if existing != nil {
			errs.Add("email", emailTaken)
		}
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &models.User{
		Username:   in.Username,
		Email:      in.Email,
		FirstName:  in.FirstName,
		Password:   hash,
		IsActive:   true,
		DateJoined: now,
		LastLogin:  &now,
	}
	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		txUsers := db.NewUserRepository(tx)
		if err := txUsers.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if _, err := txUsers.EnsureProfile(ctx, user.ID, models.RolePublisher); err != nil {
			return err
		}
		return s.record(ctx, tx, user.ID, models.TargetUser, user.ID,
			models.NamespaceUserCreate, models.EventUserCreate)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("User registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// Authenticate checks login credentials. The username field carries the email.
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (*models.User, error) {
	if err := validateForm(&in); err != nil {
		return nil, err
	}
	users := db.NewUserRepository(s.repo)
	user, err := users.GetByEmail(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, FormErrors{"username": {emailUnknown}}
	}
	if !user.IsActive {
		return nil, FormErrors{"username": {accountInactive}}
	}
	if !auth.CheckPassword(user.Password, in.Password) {
		return nil, FormErrors{"__all__": {badCredentials}}
	}
	now := s.now()
	user.LastLogin = &now
	if err := users.UpdateFields(ctx, user.ID, map[string]interface{}{"last_login": now}); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	return user, nil
}

// AuthenticateAdmin is Authenticate restricted to superusers
func (s *Service) AuthenticateAdmin(ctx context.Context, in LoginInput) (*models.User, error) {
	user, err := s.Authenticate(ctx, in)
	if err != nil {
		return nil, err
	}
	if !user.IsSuperuser {
		return nil, &Denied{Reason: dashboardDenied}
	}
	return user, nil
}

// ChangePassword sets a new password. The old password is verified when
// requireOld is set.
func (s *Service) ChangePassword(ctx context.Context, user *models.User, in ChangePasswordInput, requireOld bool) error {
	errs, err := checkForm(&in)
	if err != nil {
		return err
	}
	if requireOld && !auth.CheckPassword(user.Password, in.OldPassword) {
		errs.Add("oldpassword", oldPasswordWrong)
	}
	if in.NewPassword != in.RetypePassword {
		errs.Add("newpassword", passwordsMismatch)
	}
	if err := errs.OrNil(); err != nil {
		return err
	}
	return s.setPassword(ctx, user, in.NewPassword)
}

func (s *Service) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := db.NewUserRepository(s.repo).UpdateFields(ctx, user.ID, map[string]interface{}{"password": hash}); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	user.Password = hash
	return nil
}

// ForgotPassword mails a fresh random password to the account owning the email
func (s *Service) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	if err := validateForm(&in); err != nil {
		return err
	}
	user, err := db.NewUserRepository(s.repo).GetByEmail(ctx, in.Email)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return &Denied{Reason: resetUnknownEmail}
	}
	password, err := auth.RandomPassword(resetPasswordLength)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, user, password); err != nil {
		return err
	}
	return s.sendPasswordReset(ctx, user, password)
}

// ProfileSummary is everything shown on a user profile
type ProfileSummary struct {
	User       *models.User
	Profile    *models.UserProfile
	Created    []models.Topic
	Followed   []models.Topic
	Liked      []models.Topic
	Suggested  []models.Topic
	Tags       []models.Tag
	Categories []models.ForumCategory
	Activity   []Activity
	UpVotes    int64
	DownVotes  int64
	PictureURL string
}

// Profile collects a user's topics, engagement and activity
func (s *Service) Profile(ctx context.Context, user *models.User) (*ProfileSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.Profile")
	defer span.End()

	users := db.NewUserRepository(s.repo)
	topics := db.NewTopicRepository(s.repo)
	rows := db.NewUserTopicRepository(s.repo)

	profile, err := users.EnsureProfile(ctx, user.ID, models.RolePublisher)
	if err != nil {
		return nil, err
	}
	summary := &ProfileSummary{User: user, Profile: profile, PictureURL: s.ProfilePicURL(profile)}

	if summary.Created, err = topics.List(ctx, db.TopicFilter{CreatedByID: user.ID}, db.Page{}); err != nil {
		return nil, fmt.Errorf("failed to load created topics: %w", err)
	}
	followedIDs, err := rows.TopicIDs(ctx, user.ID, db.FlagFollow)
	if err != nil {
		return nil, fmt.Errorf("failed to load followed topics: %w", err)
	}
	if summary.Followed, err = s.topicsByIDs(ctx, followedIDs); err != nil {
		return nil, err
	}
	likedIDs, err := rows.TopicIDs(ctx, user.ID, db.FlagLike)
	if err != nil {
		return nil, fmt.Errorf("failed to load liked topics: %w", err)
	}
	if summary.Liked, err = s.topicsByIDs(ctx, likedIDs); err != nil {
		return nil, err
	}

	categoryIDs, err := topics.CategoryIDsOf(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user categories: %w", err)
	}
	if summary.Categories, err = db.NewCategoryRepository(s.repo).ListByIDs(ctx, categoryIDs); err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	tagIDs, err := topics.TagIDsOf(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user tags: %w", err)
	}
	if summary.Tags, err = db.NewTagRepository(s.repo).ListByIDs(ctx, tagIDs); err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	if len(categoryIDs) > 0 {
		summary.Suggested, err = topics.List(ctx, db.TopicFilter{
			Statuses:    []string{models.StatusPublished},
			CategoryIDs: categoryIDs,
		}, db.Page{Limit: PageSize})
		if err != nil {
			return nil, fmt.Errorf("failed to load suggested topics: %w", err)
		}
	}

	if summary.Activity, err = s.UserActivity(ctx, user.ID, 50); err != nil {
		return nil, err
	}
	if summary.UpVotes, summary.DownVotes, err = db.NewVoteRepository(s.repo).TallyByUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to tally user votes: %w", err)
	}
	return summary, nil
}

func (s *Service) topicsByIDs(ctx context.Context, ids []int64) ([]models.Topic, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	topics, err := db.NewTopicRepository(s.repo).List(ctx, db.TopicFilter{IDs: ids}, db.Page{})
	if err != nil {
		return nil, fmt.Errorf("failed to load topics: %w", err)
	}
	return topics, nil
}

// ProfilePicURL returns the public URL of a profile picture, or "" when unset.
// Pictures taken from a social login are stored as absolute URLs.
func (s *Service) ProfilePicURL(profile *models.UserProfile) string {
	if profile == nil || profile.ProfilePic == "" {
		return ""
	}
	if strings.HasPrefix(profile.ProfilePic, "http://") || strings.HasPrefix(profile.ProfilePic, "https://") {
		return profile.ProfilePic
	}
	return strings.TrimRight(s.mediaURL, "/") + "/" + profile.ProfilePic
}

// UploadProfilePic stores an uploaded picture under the media directory and
// points the user's profile at it
func (s *Service) UploadProfilePic(ctx context.Context, user *models.User, filename string, r io.Reader) (string, error) {
	base := filepath.Base(filepath.Clean("/" + filename))
	base = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < ' ' {
			return -1
		}
		return r
	}, base)
	if base == "" || base == "." || base == "/" {
		base = "picture"
	}
	rel := path.Join(profilePicDir, uuid.NewString()+"_"+base)

	dst := filepath.Join(s.mediaDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", rel, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", rel, err)
	}

	users := db.NewUserRepository(s.repo)
	profile, err := users.EnsureProfile(ctx, user.ID, models.RolePublisher)
	if err != nil {
		return "", err
	}
	old := profile.ProfilePic
	profile.ProfilePic = rel
	if err := users.SaveProfile(ctx, profile); err != nil {
		return "", fmt.Errorf("failed to save profile: %w", err)
	}
	if old != "" && strings.HasPrefix(old, profilePicDir+"/") {
		if err := os.Remove(filepath.Join(s.mediaDir, filepath.FromSlash(old))); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove old profile picture", zap.String("path", old), zap.Error(err))
		}
	}
	return s.ProfilePicURL(profile), nil
}

// ToggleMailNotifications flips the user's notification preference
func (s *Service) ToggleMailNotifications(ctx context.Context, user *models.User) (bool, error) {
	users := db.NewUserRepository(s.repo)
	profile, err := users.EnsureProfile(ctx, user.ID, models.RolePublisher)
	if err != nil {
		return false, err
	}
	profile.SendMailNotifications = !profile.SendMailNotifications
	if err := users.SaveProfile(ctx, profile); err != nil {
		return false, fmt.Errorf("failed to save profile: %w", err)
	}
	return profile.SendMailNotifications, nil
}

// SocialLogin finds or creates the account for a provider profile, keeps a
// snapshot of the profile and returns the user to log in
func (s *Service) SocialLogin(ctx context.Context, p *social.Profile) (*models.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.SocialLogin")
	defer span.End()

	if p.Email == "" {
		return nil, fmt.Errorf("%s profile has no email", p.Provider)
	}

	var user *models.User
	err := s.repo.Transaction(ctx, func(tx *db.Repository) error {
		users := db.NewUserRepository(tx)
		var err error
		if user, err = users.GetByEmail(ctx, p.Email); err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}
		if user == nil {
			if user, err = users.GetByUsername(ctx, p.Email); err != nil {
				return fmt.Errorf("failed to load user: %w", err)
			}
		}

		now := s.now()
		if user == nil {
			user = &models.User{
				Username:   p.Email,
				Email:      p.Email,
				FirstName:  p.FirstName,
				LastName:   p.LastName,
				IsActive:   true,
				DateJoined: now,
			}
			if err := users.Create(ctx, user); err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			if err := s.record(ctx, tx, user.ID, models.TargetUser, user.ID,
				models.NamespaceUserCreate, models.EventUserCreate); err != nil {
				return err
			}
		} else {
			if !user.IsActive {
				return &Denied{Reason: accountInactive}
			}
			if p.FirstName != "" {
				user.FirstName = p.FirstName
			}
			if p.LastName != "" {
				user.LastName = p.LastName
			}
		}
		user.LastLogin = &now
		if err := users.UpdateFields(ctx, user.ID, map[string]interface{}{
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"last_login": now,
		}); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		profile, err := users.EnsureProfile(ctx, user.ID, models.RolePublisher)
		if err != nil {
			return err
		}
		if profile.ProfilePic == "" && p.Picture != "" {
			profile.ProfilePic = p.Picture
			if err := users.SaveProfile(ctx, profile); err != nil {
				return fmt.Errorf("failed to save profile: %w", err)
			}
		}
		return saveSnapshot(ctx, users, user.ID, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Social login", zap.String("provider", p.Provider), zap.Int64("user_id", user.ID))
	return user, nil
}

func saveSnapshot(ctx context.Context, users *db.UserRepository, userID int64, p *social.Profile) error {
	switch p.Provider {
	case "facebook":
		err := users.SaveFacebook(ctx, &models.Facebook{
			UserID:      userID,
			FacebookID:  p.ID,
			FacebookURL: p.Link,
			FirstName:   p.FirstName,
			LastName:    p.LastName,
			Verified:    p.Verified,
			Name:        p.Name,
			Language:    p.Locale,
			Hometown:    p.Hometown,
			Email:       p.Email,
			Gender:      p.Gender,
			Location:    p.Location,
			Timezone:    p.Timezone,
			AccessToken: p.AccessToken,
		})
		if err != nil {
			return fmt.Errorf("failed to save facebook profile: %w", err)
		}
	case "google":
		err := users.SaveGoogle(ctx, &models.Google{
			UserID:        userID,
			GoogleID:      p.ID,
			GoogleURL:     p.Link,
			VerifiedEmail: p.Verified,
			FamilyName:    p.LastName,
			GivenName:     p.FirstName,
			Name:          p.Name,
			Picture:       p.Picture,
			Gender:        p.Gender,
			Email:         p.Email,
		})
		if err != nil {
			return fmt.Errorf("failed to save google profile: %w", err)
		}
	default:
		return fmt.Errorf("unknown social provider %q", p.Provider)
	}
	return nil
}

// ListUsers lists accounts for admins, optionally filtered by email or username
func (s *Service) ListUsers(ctx context.Context, search string) ([]models.User, error) {
	users, err := db.NewUserRepository(s.repo).Search(ctx, strings.TrimSpace(search), db.Page{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ToggleUserStatus activates or deactivates an account and returns the new state
func (s *Service) ToggleUserStatus(ctx context.Context, userID int64) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	active := !user.IsActive
	if err := db.NewUserRepository(s.repo).UpdateFields(ctx, user.ID, map[string]interface{}{"is_active": active}); err != nil {
		return false, fmt.Errorf("failed to update user status: %w", err)
	}
	s.logger.Info("User status changed", zap.Int64("user_id", user.ID), zap.Bool("active", active))
	return active, nil
}

// SetUserBadges replaces the badge set of a user's profile
func (s *Service) SetUserBadges(ctx context.Context, userID int64, badgeIDs []int64) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.Transaction(ctx, func(tx *db.Repository) error {
		users := db.NewUserRepository(tx)
		profile, err := users.EnsureProfile(ctx, user.ID, models.RolePublisher)
		if err != nil {
			return err
		}
		badges, err := db.NewBadgeRepository(tx).ListByIDs(ctx, badgeIDs)
		if err != nil {
			return fmt.Errorf("failed to load badges: %w", err)
		}
		if len(badges) != len(uniqueIDs(badgeIDs)) {
			return FormErrors{"badges": {invalidChoice}}
		}
		if err := users.ReplaceBadges(ctx, profile, badges); err != nil {
			return fmt.Errorf("failed to replace badges: %w", err)
		}
		return nil
	})
}

// DeleteUser removes an account with its topics, comments, votes and
// engagement. Categories it created are handed to admin.
func (s *Service) DeleteUser(ctx context.Context, admin *models.User, userID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "forum.DeleteUser")
	defer span.End()

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.ID == admin.ID {
		return &Denied{Reason: selfDeleteDenied}
	}

	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		if err := db.NewCategoryRepository(tx).ReassignCreator(ctx, user.ID, admin.ID); err != nil {
			return fmt.Errorf("failed to reassign categories: %w", err)
		}

		topicIDs, err := db.NewTopicRepository(tx).IDsByCreator(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to load user topics: %w", err)
		}
		for _, id := range topicIDs {
			if err := deleteTopicRows(ctx, tx, id); err != nil {
				return err
			}
		}

		comments := db.NewCommentRepository(tx)
		authored, err := comments.ListByAuthor(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to load user comments: %w", err)
		}
		done := make(map[int64]bool)
		for _, c := range authored {
			if done[c.ID] {
				continue
			}
			all, err := comments.ListByTopic(ctx, c.TopicID)
			if err != nil {
				return fmt.Errorf("failed to load topic comments: %w", err)
			}
			ids := append([]int64{c.ID}, Descendants(all, c.ID)...)
			var pending []int64
			for _, id := range ids {
				if !done[id] {
					done[id] = true
					pending = append(pending, id)
				}
			}
			if err := comments.DeleteRows(ctx, pending); err != nil {
				return err
			}
		}

		if err := db.NewVoteRepository(tx).DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to delete votes: %w", err)
		}
		return db.NewUserRepository(tx).DeleteAccountRows(ctx, user.ID)
	})
	if err != nil {
		return err
	}
	s.invalidateSidebar(ctx)
	s.logger.Info("User deleted", zap.Int64("user_id", user.ID), zap.Int64("by", admin.ID))
	return nil
}
