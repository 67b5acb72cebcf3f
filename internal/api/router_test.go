package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/steemit/simpleforum/internal/auth"
	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/forum"
	"github.com/steemit/simpleforum/internal/mail"
	"github.com/steemit/simpleforum/internal/models"
	"github.com/steemit/simpleforum/internal/social"
	"github.com/steemit/simpleforum/internal/view"
	"github.com/steemit/simpleforum/pkg/config"
)

type fakeProvider struct {
	profile *social.Profile
}

func (f *fakeProvider) Name() string { return "google" }

func (f *fakeProvider) AuthCodeURL(redirectURL, state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state) +
		"&redirect_uri=" + url.QueryEscape(redirectURL)
}

func (f *fakeProvider) Exchange(_ context.Context, code, _ string) (*social.Profile, error) {
	if code != "good" {
		return nil, errors.New("bad code")
	}
	return f.profile, nil
}

type testServer struct {
	engine *gin.Engine
	forum  *forum.Service
	outbox *mail.Outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.New(&config.DatabaseConfig{
		URL:         "file:api_" + name + "?mode=memory&cache=shared",
		AutoMigrate: true,
	}, "error")
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	outbox := &mail.Outbox{}
	svc := forum.New(db.NewRepository(conn.DB), forum.Options{
		Mailer:   mail.NewMailer(outbox, "forum@example.com"),
		BaseURL:  "http://forum.test",
		MediaDir: t.TempDir(),
		MediaURL: "/media",
	})
	sessions, err := auth.NewSessions("0123456789abcdef0123456789abcdef", false)
	if err != nil {
		t.Fatalf("NewSessions() error = %v", err)
	}
	tmpl, err := view.Templates()
	if err != nil {
		t.Fatalf("Templates() error = %v", err)
	}

	router := NewRouter(Deps{
		DB:        conn,
		Forum:     svc,
		Sessions:  sessions,
		Templates: tmpl,
		BaseURL:   "http://forum.test",
		Providers: map[string]social.Provider{
			"google": &fakeProvider{profile: &social.Profile{
				Provider:  "google",
				ID:        "g-1",
				Email:     "gina@example.com",
				FirstName: "Gina",
				LastName:  "G",
				Name:      "Gina G",
			}},
		},
	})
	engine := gin.New()
	router.SetupRoutes(engine)
	return &testServer{engine: engine, forum: svc, outbox: outbox}
}

func (s *testServer) do(t *testing.T, method, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

// signUp registers username and returns its session cookies
func (s *testServer) signUp(t *testing.T, username string) (*models.User, []*http.Cookie) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/register/", url.Values{
		"email":      {username + "@example.com"},
		"first_name": {username},
		"username":   {username},
		"password":   {"secret-" + username},
	}, nil)
	if body := decode(t, rec); body["error"] != false {
		t.Fatalf("register %s: %v", username, body)
	}
	user, err := s.forum.GetUserByName(context.Background(), username)
	if err != nil {
		t.Fatalf("GetUserByName() error = %v", err)
	}
	return user, rec.Result().Cookies()
}

func (s *testServer) signUpAdmin(t *testing.T, username string) (*models.User, []*http.Cookie) {
	t.Helper()
	user, cookies := s.signUp(t, username)
	users := db.NewUserRepository(s.forum.Repository())
	if err := users.UpdateFields(context.Background(), user.ID, map[string]interface{}{"is_superuser": true}); err != nil {
		t.Fatalf("promote %s: %v", username, err)
	}
	user.IsSuperuser = true
	return user, cookies
}

func (s *testServer) category(t *testing.T, admin *models.User) *models.ForumCategory {
	t.Helper()
	c, err := s.forum.CreateCategory(context.Background(), admin, forum.CategoryInput{
		Title: "General", IsActive: "True", IsVotable: "True",
	})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	return c
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", rec.Code)
	}
	if body := decode(t, rec); body["status"] != "OK" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestAnonymousPages(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		path string
		code int
	}{
		{"/", http.StatusOK},
		{"/register/", http.StatusOK},
		{"/categories/", http.StatusOK},
		{"/tags/", http.StatusOK},
		{"/badges/", http.StatusOK},
		{"/forgot-password/", http.StatusOK},
		{"/dashboard/", http.StatusOK},
		{"/topic/view/missing/", http.StatusNotFound},
		{"/category/missing/", http.StatusNotFound},
		{"/user/nobody/", http.StatusNotFound},
		{"/mentioned-users/abc/", http.StatusNotFound},
		{"/no/such/page", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if rec := s.do(t, http.MethodGet, tt.path, nil, nil); rec.Code != tt.code {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.code)
			}
		})
	}
}

func TestGates(t *testing.T) {
	s := newTestServer(t)
	_, userCookies := s.signUp(t, "member")
	_, adminCookies := s.signUpAdmin(t, "boss")

	tests := []struct {
		name     string
		path     string
		cookies  []*http.Cookie
		code     int
		location string
	}{
		{"anonymous user page", "/profile/", nil, http.StatusFound, "/"},
		{"anonymous dashboard", "/dashboard/users/list/", nil, http.StatusFound, "/"},
		{"member dashboard", "/dashboard/users/list/", userCookies, http.StatusFound, "/"},
		{"member profile", "/profile/", userCookies, http.StatusOK, ""},
		{"admin dashboard", "/dashboard/users/list/", adminCookies, http.StatusOK, ""},
		{"admin index", "/", adminCookies, http.StatusFound, "/dashboard/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.path, nil, tt.cookies)
			if rec.Code != tt.code {
				t.Fatalf("GET %s = %d, want %d", tt.path, rec.Code, tt.code)
			}
			if tt.location != "" && rec.Header().Get("Location") != tt.location {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), tt.location)
			}
		})
	}
}

func TestInactiveUserIsLoggedOut(t *testing.T) {
	s := newTestServer(t)
	user, cookies := s.signUp(t, "sleepy")
	if _, err := s.forum.ToggleUserStatus(context.Background(), user.ID); err != nil {
		t.Fatalf("ToggleUserStatus() error = %v", err)
	}

	rec := s.do(t, http.MethodGet, "/profile/", nil, cookies)
	if rec.Code != http.StatusFound {
		t.Fatalf("GET /profile/ = %d, want redirect", rec.Code)
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie was not cleared")
	}
}

func TestFormErrorsPayload(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/register/", url.Values{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /register/ = %d, want 200", rec.Code)
	}
	body := decode(t, rec)
	if body["error"] != true {
		t.Fatalf("error = %v, want true", body["error"])
	}
	fields, ok := body["response"].(map[string]interface{})
	if !ok {
		t.Fatalf("response = %T, want field map", body["response"])
	}
	for _, field := range []string{"email", "username", "password", "first_name"} {
		if _, ok := fields[field]; !ok {
			t.Errorf("missing error for %s", field)
		}
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "ann")

	tests := []struct {
		name     string
		form     url.Values
		wantErr  bool
		response string
	}{
		{"ok", url.Values{"username": {"ann@example.com"}, "password": {"secret-ann"}}, false, "Successfully user loggedin"},
		{"bad password", url.Values{"username": {"ann@example.com"}, "password": {"nope"}}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := decode(t, s.do(t, http.MethodPost, "/forum/login/", tt.form, nil))
			if body["error"] != tt.wantErr {
				t.Fatalf("error = %v, want %v (%v)", body["error"], tt.wantErr, body)
			}
			if tt.response != "" && body["response"] != tt.response {
				t.Errorf("response = %v, want %q", body["response"], tt.response)
			}
		})
	}

	body := decode(t, s.do(t, http.MethodPost, "/dashboard/", url.Values{
		"username": {"ann@example.com"}, "password": {"secret-ann"},
	}, nil))
	if body["error"] != true || body["response"] != "You dont have access to login to dashboard" {
		t.Errorf("dashboard login = %v", body)
	}
}

func TestTopicAndComments(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	admin, _ := s.signUpAdmin(t, "admin")
	_, authorCookies := s.signUp(t, "author")
	_, otherCookies := s.signUp(t, "other")
	category := s.category(t, admin)

	body := decode(t, s.do(t, http.MethodPost, "/topic/add/", url.Values{
		"title":       {"Hello Web"},
		"category":    {strconv.FormatInt(category.ID, 10)},
		"description": {"first post"},
		"tags":        {"go, web"},
	}, authorCookies))
	if body["error"] != false || body["response"] != "Successfully Created Topic" {
		t.Fatalf("topic add = %v", body)
	}
	topic, err := s.forum.GetTopic(ctx, "hello-web")
	if err != nil {
		t.Fatalf("GetTopic() error = %v", err)
	}

	rec := s.do(t, http.MethodGet, "/topic/view/hello-web/", nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Hello Web") {
		t.Errorf("GET topic = %d", rec.Code)
	}

	body = decode(t, s.do(t, http.MethodPost, "/comment/add/", url.Values{
		"topic":   {strconv.FormatInt(topic.ID, 10)},
		"comment": {"nice"},
	}, authorCookies))
	if body["error"] != false {
		t.Fatalf("comment add = %v", body)
	}
	commentID := int64(body["comment_id"].(float64))
	editPath := "/comment/edit/" + strconv.FormatInt(commentID, 10) + "/"

	body = decode(t, s.do(t, http.MethodPost, editPath, url.Values{"comment": {"hijacked"}}, otherCookies))
	if body["error"] != true || body["response"] != "Only Commented User Can edit this comment" {
		t.Errorf("foreign edit = %v", body)
	}
	comments, err := db.NewCommentRepository(s.forum.Repository()).ListByTopic(ctx, topic.ID)
	if err != nil || len(comments) != 1 || comments[0].Body != "nice" {
		t.Errorf("comment after foreign edit = %v, %v", comments, err)
	}

	body = decode(t, s.do(t, http.MethodPost, "/comment/delete/"+strconv.FormatInt(commentID, 10)+"/", nil, otherCookies))
	if body["error"] != true {
		t.Errorf("foreign delete = %v, want error", body)
	}

	body = decode(t, s.do(t, http.MethodGet, "/mentioned-users/"+strconv.FormatInt(topic.ID, 10)+"/", nil, nil))
	if data, ok := body["data"].([]interface{}); !ok || len(data) != 1 {
		t.Errorf("mentioned users = %v", body)
	}
}

func TestEngagementEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin, _ := s.signUpAdmin(t, "admin")
	_, cookies := s.signUp(t, "fan")
	category := s.category(t, admin)
	if _, err := s.forum.CreateTopic(context.Background(), admin, forum.TopicInput{
		Title: "Vote here", Category: strconv.FormatInt(category.ID, 10), Description: "d",
	}); err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}

	for i, want := range []string{"up", "neutral"} {
		body := decode(t, s.do(t, http.MethodGet, "/topic/votes/vote-here/up/", nil, cookies))
		if body["status"] != want {
			t.Errorf("vote %d: status = %v, want %s", i, body["status"], want)
		}
	}
	body := decode(t, s.do(t, http.MethodPost, "/topic/votes/vote-here/down/", url.Values{}, cookies))
	if body["status"] != "removed" || body["up_votes"] != float64(0) {
		t.Errorf("opposite vote = %v", body)
	}

	body = decode(t, s.do(t, http.MethodPost, "/topic/like/vote-here/", url.Values{}, cookies))
	if body["is_like"] != true || body["no_of_likes"] != float64(1) {
		t.Errorf("like = %v", body)
	}
	body = decode(t, s.do(t, http.MethodPost, "/topic/follow/vote-here/", url.Values{}, cookies))
	if body["is_followed"] != true || body["response"] != "Successfully Followed the topic" {
		t.Errorf("follow = %v", body)
	}
	body = decode(t, s.do(t, http.MethodPost, "/send-mail/settings/", url.Values{}, cookies))
	if _, ok := body["send_mailnotifications"]; !ok {
		t.Errorf("mail settings = %v", body)
	}
}

func TestDashboardTopicStatus(t *testing.T) {
	s := newTestServer(t)
	admin, cookies := s.signUpAdmin(t, "admin")
	category := s.category(t, admin)
	if _, err := s.forum.CreateTopic(context.Background(), admin, forum.TopicInput{
		Title: "Rotate", Category: strconv.FormatInt(category.ID, 10), Description: "d",
	}); err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}

	for _, want := range []string{models.StatusPublished, models.StatusDisabled, models.StatusDraft} {
		body := decode(t, s.do(t, http.MethodPost, "/dashboard/topic/status/rotate/", url.Values{}, cookies))
		if body["status"] != want || body["response"] != "Successfully Updated Topic Status" {
			t.Errorf("status = %v, want %s", body, want)
		}
	}

	for _, path := range []string{"/dashboard/topics/list/", "/dashboard/topic/view/rotate/", "/dashboard/category/list/"} {
		if rec := s.do(t, http.MethodGet, path, nil, cookies); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
}

func TestDashboardBadges(t *testing.T) {
	s := newTestServer(t)
	member, _ := s.signUp(t, "member")
	_, cookies := s.signUpAdmin(t, "admin")

	body := decode(t, s.do(t, http.MethodPost, "/dashboard/badge/add/", url.Values{"title": {"Helper"}}, cookies))
	if body["response"] != "Successfully Created Badge" {
		t.Fatalf("badge add = %v", body)
	}
	body = decode(t, s.do(t, http.MethodPost, "/dashboard/badge/add/", url.Values{"title": {"helper"}}, cookies))
	if body["error"] != true {
		t.Errorf("duplicate badge = %v, want error", body)
	}
	badge, err := s.forum.GetBadge(context.Background(), "helper")
	if err != nil {
		t.Fatalf("GetBadge() error = %v", err)
	}

	editPath := "/dashboard/users/edit/" + strconv.FormatInt(member.ID, 10) + "/"
	body = decode(t, s.do(t, http.MethodPost, editPath, url.Values{"badges": {"x"}}, cookies))
	if body["error"] != true {
		t.Errorf("bad badge id = %v, want error", body)
	}
	body = decode(t, s.do(t, http.MethodPost, editPath, url.Values{"badges": {strconv.FormatInt(badge.ID, 10)}}, cookies))
	if body["response"] != "Successfully Edited User" {
		t.Errorf("user badges = %v", body)
	}
	if rec := s.do(t, http.MethodGet, "/dashboard/badge/view/helper/", nil, cookies); !strings.Contains(rec.Body.String(), "member") {
		t.Errorf("badge page does not list the holder")
	}
}

func TestForgotPassword(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "ann")

	body := decode(t, s.do(t, http.MethodPost, "/forgot-password/", url.Values{"email": {"ghost@example.com"}}, nil))
	if body["error"] != true || body["message"] != "User With this email id doesn't exists!!!" {
		t.Errorf("unknown email = %v", body)
	}
	body = decode(t, s.do(t, http.MethodPost, "/forgot-password/", url.Values{"email": {"ann@example.com"}}, nil))
	if body["error"] != false || body["response"] != "An Email is sent to the entered email id" {
		t.Errorf("known email = %v", body)
	}
	if n := len(s.outbox.Messages()); n != 1 {
		t.Errorf("mails sent = %d, want 1", n)
	}
}

func TestSocialLogin(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodGet, "/fb_login/", nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unconfigured provider = %d, want 404", rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/gp_login/", nil, nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("GET /gp_login/ = %d, want redirect", rec.Code)
	}
	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	state := location.Query().Get("state")
	if state == "" || location.Query().Get("redirect_uri") != "http://forum.test/gp_login/" {
		t.Fatalf("provider redirect = %s", location)
	}
	stateCookies := rec.Result().Cookies()

	if rec := s.do(t, http.MethodGet, "/gp_login/?code=good&state=forged", nil, stateCookies); rec.Code != http.StatusNotFound {
		t.Errorf("forged state = %d, want 404", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/gp_login/?code=good&state="+url.QueryEscape(state), nil, stateCookies)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("callback = %d %s", rec.Code, rec.Header().Get("Location"))
	}
	user, err := s.forum.GetUserByName(context.Background(), "gina@example.com")
	if err != nil {
		t.Fatalf("social user not created: %v", err)
	}
	if user.FirstName != "Gina" {
		t.Errorf("FirstName = %q", user.FirstName)
	}
	if rec := s.do(t, http.MethodGet, "/profile/", nil, rec.Result().Cookies()); rec.Code != http.StatusOK {
		t.Errorf("GET /profile/ after social login = %d", rec.Code)
	}
}
