package forum

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/steemit/simpleforum/internal/auth"
	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/models"
	"github.com/steemit/simpleforum/internal/social"
)

func register(t *testing.T, s *Service, username string) *models.User {
	t.Helper()
	u, err := s.Register(context.Background(), RegisterInput{
		Email:     username + "@example.com",
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		Username:  username,
		Password:  "secret-" + username,
	})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", username, err)
	}
	return u
}

func TestRegister(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, s, "alice")

	if !u.IsActive || u.Password == "secret-alice" || !auth.CheckPassword(u.Password, "secret-alice") {
		t.Errorf("registered user = %+v", u)
	}
	profile, err := db.NewUserRepository(s.repo).GetProfile(ctx, u.ID)
	if err != nil || profile == nil || profile.UserRoles != models.RolePublisher {
		t.Errorf("profile = %+v, %v, want Publisher", profile, err)
	}

	tests := []struct {
		name  string
		in    RegisterInput
		field string
		msg   string
	}{
		{"taken username", RegisterInput{Email: "new@example.com", FirstName: "N", Username: "alice", Password: "p"}, "username", usernameTaken},
		{"taken email", RegisterInput{Email: "alice@example.com", FirstName: "N", Username: "new", Password: "p"}, "email", emailTaken},
		{"bad email", RegisterInput{Email: "nope", FirstName: "N", Username: "new", Password: "p"}, "email", "Enter a valid email address."},
		{"missing password", RegisterInput{Email: "n@example.com", FirstName: "N", Username: "new"}, "password", "This field is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(ctx, tt.in)
			var form FormErrors
			if !errors.As(err, &form) {
				t.Fatalf("Register() error = %v, want form errors", err)
			}
			if msgs := form[tt.field]; len(msgs) == 0 || msgs[0] != tt.msg {
				t.Errorf("errors[%s] = %v, want %q", tt.field, msgs, tt.msg)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")
	if _, err := s.ToggleUserStatus(ctx, bob.ID); err != nil {
		t.Fatalf("ToggleUserStatus() error = %v", err)
	}

	tests := []struct {
		name  string
		in    LoginInput
		field string
		msg   string
	}{
		{"unknown email", LoginInput{Username: "carol@example.com", Password: "x"}, "username", emailUnknown},
		{"inactive", LoginInput{Username: "bob@example.com", Password: "secret-bob"}, "username", accountInactive},
		{"wrong password", LoginInput{Username: "alice@example.com", Password: "wrong"}, "__all__", badCredentials},
		{"empty", LoginInput{}, "username", "This field is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Authenticate(ctx, tt.in)
			var form FormErrors
			if !errors.As(err, &form) {
				t.Fatalf("Authenticate() error = %v, want form errors", err)
			}
			if msgs := form[tt.field]; len(msgs) == 0 || msgs[0] != tt.msg {
				t.Errorf("errors[%s] = %v, want %q", tt.field, msgs, tt.msg)
			}
		})
	}

	got, err := s.Authenticate(ctx, LoginInput{Username: "alice@example.com", Password: "secret-alice"})
	if err != nil || got.ID != alice.ID || got.LastLogin == nil {
		t.Errorf("Authenticate(alice) = %+v, %v", got, err)
	}

	_, err = s.AuthenticateAdmin(ctx, LoginInput{Username: "alice@example.com", Password: "secret-alice"})
	var denied *Denied
	if !errors.As(err, &denied) || denied.Reason != dashboardDenied {
		t.Errorf("AuthenticateAdmin(alice) error = %v, want %q", err, dashboardDenied)
	}
}

func TestChangePassword(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, s, "alice")

	err := s.ChangePassword(ctx, u, ChangePasswordInput{OldPassword: "bad", NewPassword: "a", RetypePassword: "b"}, true)
	var form FormErrors
	if !errors.As(err, &form) {
		t.Fatalf("ChangePassword() error = %v, want form errors", err)
	}
	if form["oldpassword"][0] != oldPasswordWrong || form["newpassword"][0] != passwordsMismatch {
		t.Errorf("errors = %v", form)
	}

	if err := s.ChangePassword(ctx, u, ChangePasswordInput{NewPassword: "fresh", RetypePassword: "fresh"}, false); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := s.Authenticate(ctx, LoginInput{Username: "alice@example.com", Password: "fresh"}); err != nil {
		t.Errorf("Authenticate() with new password error = %v", err)
	}
}

func TestForgotPassword(t *testing.T) {
	s, outbox := newTestService(t)
	ctx := context.Background()
	register(t, s, "alice")

	err := s.ForgotPassword(ctx, ForgotPasswordInput{Email: "ghost@example.com"})
	var denied *Denied
	if !errors.As(err, &denied) || denied.Reason != resetUnknownEmail {
		t.Fatalf("ForgotPassword(ghost) error = %v, want %q", err, resetUnknownEmail)
	}

	if err := s.ForgotPassword(ctx, ForgotPasswordInput{Email: "alice@example.com"}); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}
	msgs := outbox.Messages()
	if len(msgs) != 1 || msgs[0].Subject != "Password Reset" || msgs[0].To[0] != "alice@example.com" {
		t.Fatalf("messages = %+v", msgs)
	}
	m := regexp.MustCompile(`<strong>([A-Za-z0-9]{6})</strong>`).FindStringSubmatch(msgs[0].HTML)
	if m == nil {
		t.Fatalf("reset mail carries no password: %s", msgs[0].HTML)
	}
	if _, err := s.Authenticate(ctx, LoginInput{Username: "alice@example.com", Password: m[1]}); err != nil {
		t.Errorf("Authenticate() with reset password error = %v", err)
	}
}

func TestProfile(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	admin := createUser(t, s, "admin", true)
	alice := register(t, s, "alice")
	category := createCategory(t, s, admin, "General", true)
	own := createTopic(t, s, alice, category, "Alice writes", "go")
	other := createTopic(t, s, admin, category, "Admin writes", "")
	publish(t, s, other)

	if _, err := s.ToggleLike(ctx, alice, other.Slug); err != nil {
		t.Fatalf("ToggleLike() error = %v", err)
	}
	if _, err := s.ToggleFollow(ctx, alice, other.Slug); err != nil {
		t.Fatalf("ToggleFollow() error = %v", err)
	}
	if _, err := s.VoteTopic(ctx, alice, other.Slug, models.VoteUp); err != nil {
		t.Fatalf("VoteTopic() error = %v", err)
	}

	p, err := s.Profile(ctx, alice)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if len(p.Created) != 1 || p.Created[0].ID != own.ID {
		t.Errorf("Created = %v", p.Created)
	}
	if len(p.Liked) != 1 || len(p.Followed) != 1 || p.Liked[0].ID != other.ID {
		t.Errorf("Liked = %v Followed = %v", p.Liked, p.Followed)
	}
	if len(p.Tags) != 1 || p.Tags[0].Slug != "go" || len(p.Categories) != 1 {
		t.Errorf("Tags = %v Categories = %v", p.Tags, p.Categories)
	}
	if p.UpVotes != 1 || p.DownVotes != 0 {
		t.Errorf("votes = %d/%d, want 1/0", p.UpVotes, p.DownVotes)
	}
	// user-create, topic-create, like, follow
	if len(p.Activity) != 4 {
		t.Errorf("Activity = %d entries, want 4", len(p.Activity))
	}
}

func TestUploadProfilePic(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	alice := register(t, s, "alice")

	url, err := s.UploadProfilePic(ctx, alice, "../../me.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("UploadProfilePic() error = %v", err)
	}
	if !strings.HasPrefix(url, "/media/profile_pics/") || !strings.HasSuffix(url, "_me.png") {
		t.Errorf("url = %q", url)
	}
	rel := strings.TrimPrefix(url, "/media/")
	data, err := os.ReadFile(filepath.Join(s.mediaDir, filepath.FromSlash(rel)))
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("stored file = %q, %v", data, err)
	}

	if got := s.ProfilePicURL(&models.UserProfile{ProfilePic: "https://cdn.example.com/a.jpg"}); got != "https://cdn.example.com/a.jpg" {
		t.Errorf("ProfilePicURL(absolute) = %q", got)
	}
}

func TestToggleMailNotifications(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	alice := register(t, s, "alice")
	for _, want := range []bool{true, false} {
		got, err := s.ToggleMailNotifications(ctx, alice)
		if err != nil || got != want {
			t.Errorf("ToggleMailNotifications() = %v, %v, want %v", got, err, want)
		}
	}
}

func TestSocialLogin(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	existing := register(t, s, "alice")

	fb := &social.Profile{Provider: "facebook", ID: "fb1", Email: "alice@example.com", FirstName: "Alicia", Picture: "https://graph.example.com/p.jpg"}
	got, err := s.SocialLogin(ctx, fb)
	if err != nil {
		t.Fatalf("SocialLogin(existing) error = %v", err)
	}
	if got.ID != existing.ID || got.FirstName != "Alicia" {
		t.Errorf("SocialLogin(existing) = %+v", got)
	}

	google := &social.Profile{Provider: "google", ID: "g1", Email: "newbie@example.com", FirstName: "New", LastName: "Bie"}
	created, err := s.SocialLogin(ctx, google)
	if err != nil {
		t.Fatalf("SocialLogin(new) error = %v", err)
	}
	if created.Username != "newbie@example.com" || !created.IsActive {
		t.Errorf("SocialLogin(new) = %+v", created)
	}
	again, err := s.SocialLogin(ctx, google)
	if err != nil || again.ID != created.ID {
		t.Errorf("second SocialLogin() = %+v, %v", again, err)
	}

	var n int64
	s.repo.DB().Model(&models.Google{}).Where("user_id = ?", created.ID).Count(&n)
	if n != 1 {
		t.Errorf("google snapshots = %d, want 1", n)
	}

	if _, err := s.ToggleUserStatus(ctx, created.ID); err != nil {
		t.Fatalf("ToggleUserStatus() error = %v", err)
	}
	if _, err := s.SocialLogin(ctx, google); !errors.Is(err, ErrForbidden) {
		t.Errorf("SocialLogin(inactive) error = %v, want forbidden", err)
	}
}

func TestDeleteUser(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	admin := createUser(t, s, "admin", true)
	alice := register(t, s, "alice")
	category, err := s.CreateCategory(ctx, alice, CategoryInput{Title: "Alice's", IsActive: "True", IsVotable: "True"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	own := createTopic(t, s, alice, category, "Hers", "")
	theirs := createTopic(t, s, admin, category, "His", "")
	root, err := s.AddComment(ctx, alice, CommentInput{Topic: theirs.ID, Comment: "from alice"})
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if _, err := s.AddComment(ctx, admin, CommentInput{
		Topic: theirs.ID, Comment: "reply", Parent: strconv.FormatInt(root.ID, 10),
	}); err != nil {
		t.Fatalf("AddComment(reply) error = %v", err)
	}
	if _, err := s.VoteTopic(ctx, alice, theirs.Slug, models.VoteUp); err != nil {
		t.Fatalf("VoteTopic() error = %v", err)
	}

	if err := s.DeleteUser(ctx, admin, admin.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("DeleteUser(self) error = %v, want forbidden", err)
	}
	if err := s.DeleteUser(ctx, admin, alice.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	if _, err := s.GetUser(ctx, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser() after delete error = %v", err)
	}
	if _, err := s.GetTopic(ctx, own.Slug); !errors.Is(err, ErrNotFound) {
		t.Errorf("own topic survived: %v", err)
	}
	kept, err := s.GetCategory(ctx, category.Slug)
	if err != nil || kept.CreatedByID != admin.ID {
		t.Errorf("category = %+v, %v, want reassigned to admin", kept, err)
	}
	n, err := db.NewCommentRepository(s.repo).CountByTopic(ctx, theirs.ID)
	if err != nil || n != 0 {
		t.Errorf("comments on survivor = %d, %v, want 0", n, err)
	}
	up, _, err := db.NewVoteRepository(s.repo).Tally(ctx, db.TopicVotes, theirs.ID)
	if err != nil || up != 0 {
		t.Errorf("votes on survivor = %d, %v, want 0", up, err)
	}
}

func TestSetUserBadges(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	alice := register(t, s, "alice")
	gold, err := s.CreateBadge(ctx, BadgeInput{Title: "Gold"})
	if err != nil {
		t.Fatalf("CreateBadge() error = %v", err)
	}

	if err := s.SetUserBadges(ctx, alice.ID, []int64{gold.ID}); err != nil {
		t.Fatalf("SetUserBadges() error = %v", err)
	}
	detail, err := s.ViewBadge(ctx, gold.Slug)
	if err != nil || len(detail.Holders) != 1 {
		t.Errorf("holders = %+v, %v, want 1", detail, err)
	}
	if err := s.SetUserBadges(ctx, alice.ID, []int64{gold.ID, 999}); err == nil {
		t.Error("SetUserBadges() with an unknown badge should fail")
	}
}
