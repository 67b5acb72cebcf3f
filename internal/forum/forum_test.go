package forum

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/mail"
	"github.com/steemit/simpleforum/internal/models"
	"github.com/steemit/simpleforum/pkg/config"
)

// newTestService opens a private in-memory database for the test
func newTestService(t *testing.T) (*Service, *mail.Outbox) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.New(&config.DatabaseConfig{
		URL:         "file:" + name + "?mode=memory&cache=shared",
		AutoMigrate: true,
	}, "error")
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	outbox := &mail.Outbox{}
	svc := New(db.NewRepository(conn.DB), Options{
		Mailer:   mail.NewMailer(outbox, "forum@example.com"),
		BaseURL:  "http://forum.test/",
		MediaDir: t.TempDir(),
	})
	return svc, outbox
}

func createUser(t *testing.T, s *Service, username string, superuser bool) *models.User {
	t.Helper()
	u := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		FirstName:   username,
		IsActive:    true,
		IsSuperuser: superuser,
		DateJoined:  time.Now().UTC(),
	}
	if err := db.NewUserRepository(s.repo).Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func createCategory(t *testing.T, s *Service, admin *models.User, title string, votable bool) *models.ForumCategory {
	t.Helper()
	in := CategoryInput{Title: title, IsActive: "True"}
	if votable {
		in.IsVotable = "True"
	}
	c, err := s.CreateCategory(context.Background(), admin, in)
	if err != nil {
		t.Fatalf("CreateCategory(%q) error = %v", title, err)
	}
	return c
}

func createTopic(t *testing.T, s *Service, user *models.User, category *models.ForumCategory, title, tags string) *models.Topic {
	t.Helper()
	topic, err := s.CreateTopic(context.Background(), user, TopicInput{
		Title:       title,
		Category:    strconv.FormatInt(category.ID, 10),
		Description: "about " + title,
		Tags:        tags,
	})
	if err != nil {
		t.Fatalf("CreateTopic(%q) error = %v", title, err)
	}
	return topic
}

func publish(t *testing.T, s *Service, topic *models.Topic) {
	t.Helper()
	status, err := s.RotateTopicStatus(context.Background(), topic.Slug)
	if err != nil || status != models.StatusPublished {
		t.Fatalf("RotateTopicStatus() = %q, %v, want Published", status, err)
	}
	topic.Status = status
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Go  is   fun  ", "go-is-fun"},
		{"Déjà vu", "deja-vu"},
		{"C++ & Go!", "c-go"},
		{"snake_case stays", "snake_case-stays"},
		{"a - b -- c", "a-b-c"},
		{"-dash-", "dash"},
		{"foo -", "foo"},
		{"__init__ file", "init__-file"},
		{"_-edge-_", "edge"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitTags(t *testing.T) {
	got := splitTags(" Go, web ,go,, Web Dev,!!")
	want := []string{"Go", "web", "Web Dev"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitTags() = %v, want %v", got, want)
	}
}

func TestParseMentions(t *testing.T) {
	got := ParseMentions("@alice, @bob,alice, ,@")
	want := []string{"alice", "bob"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseMentions() = %v, want %v", got, want)
	}
}

func parent(id int64) *int64 { return &id }

func TestDescendants(t *testing.T) {
	comments := []models.Comment{
		{ID: 1},
		{ID: 2, ParentID: parent(1)},
		{ID: 3, ParentID: parent(2)},
		{ID: 4, ParentID: parent(1)},
		{ID: 5},
	}
	if got, want := Descendants(comments, 1), []int64{2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("Descendants(1) = %v, want %v", got, want)
	}
	if got := Descendants(comments, 5); len(got) != 0 {
		t.Errorf("Descendants(5) = %v, want none", got)
	}
}

func TestDescendantsCycle(t *testing.T) {
	comments := []models.Comment{
		{ID: 1, ParentID: parent(3)},
		{ID: 2, ParentID: parent(1)},
		{ID: 3, ParentID: parent(2)},
	}
	done := make(chan []int64)
	go func() { done <- Descendants(comments, 1) }()
	select {
	case got := <-done:
		if want := []int64{2, 3}; !reflect.DeepEqual(got, want) {
			t.Errorf("Descendants() = %v, want %v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("Descendants() did not terminate on a cycle")
	}
}

func TestCommentTree(t *testing.T) {
	comments := []models.Comment{
		{ID: 1},
		{ID: 2, ParentID: parent(1)},
		{ID: 3, ParentID: parent(99)},
		{ID: 4, ParentID: parent(5)},
		{ID: 5, ParentID: parent(4)},
		{ID: 6, ParentID: parent(2)},
	}
	tree := CommentTree(comments)
	if got, want := flatten(tree), []int64{1, 2, 6, 3, 4, 5}; !reflect.DeepEqual(got, want) {
		t.Fatalf("flatten(CommentTree()) = %v, want %v", got, want)
	}
	if tree[0].Children[0].Children[0].Depth != 2 {
		t.Errorf("depth of comment 6 = %d, want 2", tree[0].Children[0].Children[0].Depth)
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		page       int
		total      int64
		wantOffset int
		wantPages  int
		hasPrev    bool
		hasNext    bool
	}{
		{page: 1, total: 0, wantOffset: 0, wantPages: 1},
		{page: 1, total: 25, wantOffset: 0, wantPages: 3, hasNext: true},
		{page: 2, total: 25, wantOffset: 10, wantPages: 3, hasPrev: true, hasNext: true},
		{page: 9, total: 25, wantOffset: 20, wantPages: 3, hasPrev: true},
		{page: 0, total: 5, wantOffset: 0, wantPages: 1},
	}
	for _, tt := range tests {
		page, p := Paginate(tt.page, tt.total)
		if page.Offset != tt.wantOffset || page.Limit != PageSize {
			t.Errorf("Paginate(%d, %d) page = %+v", tt.page, tt.total, page)
		}
		if p.Pages != tt.wantPages || p.HasPrev != tt.hasPrev || p.HasNext != tt.hasNext {
			t.Errorf("Paginate(%d, %d) = %+v", tt.page, tt.total, p)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	var err error = &Denied{Reason: "no"}
	if !errors.Is(err, ErrForbidden) {
		t.Error("Denied should match ErrForbidden")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("Denied should not match ErrNotFound")
	}
	if FormErrors(nil).OrNil() != nil {
		t.Error("empty FormErrors should be nil")
	}
}
