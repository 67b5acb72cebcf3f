package mail

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/steemit/simpleforum/pkg/config"
)

func TestMailgunSender(t *testing.T) {
	var gotUser, gotKey string
	var gotTo []string
	var gotSubject, gotHTML string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotKey, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		gotTo = r.PostForm["to"]
		gotSubject = r.PostForm.Get("subject")
		gotHTML = r.PostForm.Get("html")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewMailgunSender(srv.URL, "key-123", srv.Client())
	err := s.Send(context.Background(), Message{
		To:      []string{"a@example.com", "b@example.com"},
		From:    "forum@example.com",
		Subject: "New Comment For The Topic Go",
		HTML:    "<p>hi</p>",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if gotUser != "api" || gotKey != "key-123" {
		t.Errorf("basic auth = %q/%q, want api/key-123", gotUser, gotKey)
	}
	if len(gotTo) != 2 {
		t.Errorf("to = %v, want 2 recipients", gotTo)
	}
	if gotSubject != "New Comment For The Topic Go" || gotHTML != "<p>hi</p>" {
		t.Errorf("subject/html = %q/%q", gotSubject, gotHTML)
	}
}

func TestMailgunSenderRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewMailgunSender(srv.URL, "bad", srv.Client())
	err := s.Send(context.Background(), Message{To: []string{"a@example.com"}})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("Send() error = %v, want status 401", err)
	}
}

func TestMailerSwallowsFailures(t *testing.T) {
	outbox := &Outbox{Err: errors.New("relay down")}
	m := NewMailer(outbox, "forum@example.com")

	// must not panic or block
	m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "x"})

	outbox.Err = nil
	m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "y"})
	m.Send(context.Background(), Message{Subject: "no recipients"})

	msgs := outbox.Messages()
	if len(msgs) != 1 {
		t.Fatalf("Messages() = %d, want 1", len(msgs))
	}
	if msgs[0].From != "forum@example.com" {
		t.Errorf("From = %q, want default sender", msgs[0].From)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.MailConfig
		backend string
		wantErr bool
	}{
		{"console", config.MailConfig{Sender: "console"}, "console", false},
		{"smtp", config.MailConfig{Sender: "smtp", SMTPHost: "localhost", SMTPPort: 25}, "smtp", false},
		{"mailgun", config.MailConfig{Sender: "mailgun", MailgunURL: "http://x", MailgunAPIKey: "k"}, "mailgun", false},
		{"unknown", config.MailConfig{Sender: "carrier-pigeon"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && m.sender.Name() != tt.backend {
				t.Errorf("backend = %s, want %s", m.sender.Name(), tt.backend)
			}
		})
	}
}

func TestRender(t *testing.T) {
	html, err := Render(TemplateCommentAdd, map[string]string{
		"Recipient":  "bob",
		"Author":     "alice",
		"TopicTitle": "Go <generics>",
		"TopicURL":   "http://forum/topic/view/go-generics/",
		"Comment":    "nice",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(html, "Go &lt;generics&gt;") {
		t.Errorf("Render() should escape the title, got %s", html)
	}
	if _, err := Render("missing.html", nil); err == nil {
		t.Error("Render() of a missing template should fail")
	}
}

func TestBuildMessage(t *testing.T) {
	raw := buildMessage(Message{
		To:      []string{"a@example.com"},
		From:    "f@example.com",
		Subject: "line\r\nBcc: evil@example.com",
		HTML:    "<b>x</b>",
	})
	if strings.Contains(raw, "\r\nBcc:") {
		t.Error("buildMessage() must not allow header injection through the subject")
	}
	if !strings.Contains(raw, "Content-Type: text/html") {
		t.Error("buildMessage() should include an HTML part")
	}
}
