package forum

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/steemit/simpleforum/internal/models"
)

func formFieldHas(err error, field, message string) bool {
	var form FormErrors
	if !errors.As(err, &form) {
		return false
	}
	for _, m := range form[field] {
		if m == message {
			return true
		}
	}
	return false
}

func TestCategoryLifecycle(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	admin := createUser(t, s, "admin", true)

	general := createCategory(t, s, admin, "General Talk", true)
	if general.Slug != "general-talk" || general.Color != models.DefaultCategoryColor {
		t.Errorf("created category = {slug %q, color %q}", general.Slug, general.Color)
	}

	_, err := s.CreateCategory(ctx, admin, CategoryInput{Title: "General Talk"})
	if !formFieldHas(err, "title", categoryExists) {
		t.Errorf("duplicate CreateCategory() error = %v, want title taken", err)
	}

	child, err := s.CreateCategory(ctx, admin, CategoryInput{
		Title:    "Off Topic",
		IsActive: "True",
		Parent:   strconv.FormatInt(general.ID, 10),
	})
	if err != nil {
		t.Fatalf("CreateCategory(child) error = %v", err)
	}
	if child.ParentID == nil || *child.ParentID != general.ID {
		t.Errorf("child parent = %v, want %d", child.ParentID, general.ID)
	}

	tests := []struct {
		name   string
		parent string
	}{
		{"self", strconv.FormatInt(general.ID, 10)},
		{"descendant", strconv.FormatInt(child.ID, 10)},
		{"unknown", "9999"},
		{"not a number", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.UpdateCategory(ctx, general.Slug, CategoryInput{Title: "General Talk", Parent: tt.parent})
			if !formFieldHas(err, "parent", invalidChoice) {
				t.Errorf("UpdateCategory(parent=%s) error = %v, want invalid choice", tt.parent, err)
			}
		})
	}

	updated, err := s.UpdateCategory(ctx, general.Slug, CategoryInput{Title: "General", IsActive: "True", IsVotable: "True"})
	if err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}
	if updated.Title != "General" || updated.Slug != "general-talk" {
		t.Errorf("updated = {%q, %q}, want renamed with slug kept", updated.Title, updated.Slug)
	}

	topic := createTopic(t, s, admin, general, "Hello", "")
	detail, err := s.ViewCategory(ctx, general.Slug)
	if err != nil {
		t.Fatalf("ViewCategory() error = %v", err)
	}
	if len(detail.Children) != 1 || detail.Topics != 1 {
		t.Errorf("ViewCategory() = %d children, %d topics, want 1 and 1", len(detail.Children), detail.Topics)
	}

	if err := s.DeleteCategory(ctx, general.Slug); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if _, err := s.GetCategory(ctx, general.Slug); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCategory() after delete error = %v, want not found", err)
	}
	if _, err := s.GetTopic(ctx, topic.Slug); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTopic() after category delete error = %v, want not found", err)
	}
	if err := s.DeleteCategory(ctx, general.Slug); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteCategory() error = %v, want not found", err)
	}
}

func TestBadgeLifecycle(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	gold, err := s.CreateBadge(ctx, BadgeInput{Title: "Gold Star"})
	if err != nil {
		t.Fatalf("CreateBadge() error = %v", err)
	}
	if gold.Slug != "gold-star" {
		t.Errorf("badge slug = %q, want gold-star", gold.Slug)
	}
	if _, err := s.CreateBadge(ctx, BadgeInput{Title: "gold star"}); !formFieldHas(err, "title", badgeExists) {
		t.Errorf("duplicate CreateBadge() error = %v, want title taken", err)
	}
	if _, err := s.CreateBadge(ctx, BadgeInput{}); !formFieldHas(err, "title", "This field is required.") {
		t.Errorf("empty CreateBadge() error = %v, want required", err)
	}
	if _, err := s.CreateBadge(ctx, BadgeInput{Title: "Silver"}); err != nil {
		t.Fatalf("CreateBadge(Silver) error = %v", err)
	}

	tests := []struct {
		alphabet, search string
		want             int
	}{
		{"", "", 2},
		{"all", "", 2},
		{"G", "", 1},
		{"B", "", 0},
		{"", "ilv", 1},
	}
	for _, tt := range tests {
		badges, err := s.Badges(ctx, tt.alphabet, tt.search)
		if err != nil {
			t.Fatalf("Badges(%q, %q) error = %v", tt.alphabet, tt.search, err)
		}
		if len(badges) != tt.want {
			t.Errorf("Badges(%q, %q) = %d badges, want %d", tt.alphabet, tt.search, len(badges), tt.want)
		}
	}

	renamed, err := s.UpdateBadge(ctx, gold.Slug, BadgeInput{Title: "Golden Star"})
	if err != nil {
		t.Fatalf("UpdateBadge() error = %v", err)
	}
	if renamed.Title != "Golden Star" || renamed.Slug != "gold-star" {
		t.Errorf("UpdateBadge() = {%q, %q}, want renamed with slug kept", renamed.Title, renamed.Slug)
	}

	if err := s.DeleteBadge(ctx, gold.Slug); err != nil {
		t.Fatalf("DeleteBadge() error = %v", err)
	}
	if _, err := s.ViewBadge(ctx, gold.Slug); !errors.Is(err, ErrNotFound) {
		t.Errorf("ViewBadge() after delete error = %v, want not found", err)
	}
}

func TestSidebar(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	admin := createUser(t, s, "admin", true)
	writer := createUser(t, s, "writer", false)
	general := createCategory(t, s, admin, "General", true)
	other := createCategory(t, s, admin, "Other", true)

	createTopic(t, s, writer, general, "One", "go")
	createTopic(t, s, writer, general, "Two", "go, sql")
	createTopic(t, s, admin, other, "Three", "")

	sidebar, err := s.Sidebar(ctx)
	if err != nil {
		t.Fatalf("Sidebar() error = %v", err)
	}
	if len(sidebar.Categories) != 2 || sidebar.Categories[0].Category.ID != general.ID || sidebar.Categories[0].Topics != 2 {
		t.Errorf("Sidebar().Categories = %+v, want General with 2 topics first", sidebar.Categories)
	}
	if len(sidebar.Tags) != 2 || sidebar.Tags[0].Tag.Slug != "go" || sidebar.Tags[0].Topics != 2 {
		t.Errorf("Sidebar().Tags = %+v, want go with 2 topics first", sidebar.Tags)
	}
	if len(sidebar.Users) != 2 || sidebar.Users[0].User.ID != writer.ID {
		t.Errorf("Sidebar().Users = %+v, want writer first", sidebar.Users)
	}
}

func TestUserActivity(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	admin := createUser(t, s, "admin", true)
	fan := createUser(t, s, "fan", false)
	topic := createTopic(t, s, admin, createCategory(t, s, admin, "General", true), "Busy topic", "")

	if _, err := s.ToggleFollow(ctx, fan, topic.Slug); err != nil {
		t.Fatalf("ToggleFollow() error = %v", err)
	}
	activity, err := s.UserActivity(ctx, fan.ID, 10)
	if err != nil {
		t.Fatalf("UserActivity() error = %v", err)
	}
	if len(activity) != 1 || activity[0].Entry.EventType != models.EventFollowTopic || activity[0].Title() != "Busy topic" {
		t.Fatalf("UserActivity() = %+v, want one follow of the topic", activity)
	}

	own, err := s.UserActivity(ctx, admin.ID, 10)
	if err != nil {
		t.Fatalf("UserActivity(admin) error = %v", err)
	}
	found := false
	for _, a := range own {
		if a.Entry.EventType == models.EventTopicCreate {
			found = true
		}
	}
	if !found {
		t.Errorf("UserActivity(admin) = %+v, want a topic-create entry", own)
	}

	if _, err := s.ResolveTarget(ctx, models.Timeline{TargetKind: "poll", TargetID: 1}); err == nil {
		t.Error("ResolveTarget(unknown kind) error = nil, want error")
	}
	target, err := s.ResolveTarget(ctx, models.Timeline{TargetKind: models.TargetTopic, TargetID: 9999})
	if err != nil || target != nil {
		t.Errorf("ResolveTarget(missing topic) = %v, %v, want nil, nil", target, err)
	}
}
