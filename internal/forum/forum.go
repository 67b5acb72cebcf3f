// Package forum implements the forum's operations on top of the db repositories:
// topics, threaded comments, voting, follows and likes, taxonomy, accounts and
// the activity timeline.
package forum

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/steemit/simpleforum/internal/cache"
	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/mail"
	"github.com/steemit/simpleforum/pkg/logging"
)

var (
	// ErrNotFound is returned when a slug or id does not resolve
	ErrNotFound = errors.New("not found")
	// ErrForbidden matches every Denied error
	ErrForbidden = errors.New("forbidden")
)

// Denied is returned when the viewer may not act on an object.
// Reason is shown to the user as is.
type Denied struct {
	Reason string
}

func (d *Denied) Error() string { return d.Reason }

// Is makes errors.Is(err, ErrForbidden) hold for every Denied
func (d *Denied) Is(target error) bool { return target == ErrForbidden }

// FormErrors maps a form field to its validation messages
type FormErrors map[string][]string

func (e FormErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e[field], ", "))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Add appends a message for field
func (e FormErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// OrNil returns nil when no message was added
func (e FormErrors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Mailer delivers notification emails. Delivery failures are not reported.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message)
}

// Shortener returns a short form of a URL, or the URL itself
type Shortener interface {
	Shorten(ctx context.Context, longURL string) string
}

type passthroughShortener struct{}

func (passthroughShortener) Shorten(_ context.Context, longURL string) string { return longURL }

type discardMailer struct{}

func (discardMailer) Send(context.Context, mail.Message) {}

// Options carries the Service collaborators. Nil collaborators are replaced
// with no-op versions.
type Options struct {
	Mailer    Mailer
	Shortener Shortener
	Cache     *cache.Cache
	BaseURL   string
	MediaDir  string
	MediaURL  string
}

// Service implements the forum operations
type Service struct {
	repo      *db.Repository
	mailer    Mailer
	shortener Shortener
	cache     *cache.Cache
	baseURL   string
	mediaDir  string
	mediaURL  string
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a forum service over repo
func New(repo *db.Repository, opts Options) *Service {
	s := &Service{
		repo:      repo,
		mailer:    opts.Mailer,
		shortener: opts.Shortener,
		cache:     opts.Cache,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		mediaDir:  opts.MediaDir,
		mediaURL:  opts.MediaURL,
		logger:    logging.WithComponent("forum"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	if s.mailer == nil {
		s.mailer = discardMailer{}
	}
	if s.shortener == nil {
		s.shortener = passthroughShortener{}
	}
	if s.mediaDir == "" {
		s.mediaDir = "media"
	}
	if s.mediaURL == "" {
		s.mediaURL = "/media/"
	}
	return s
}

// Repository exposes the underlying repository
func (s *Service) Repository() *db.Repository {
	return s.repo
}

// absoluteURL joins a site path onto the configured base URL
func (s *Service) absoluteURL(path string) string {
	return s.baseURL + path
}

// TopicPath is the public URL path of a topic
func TopicPath(slug string) string {
	return "/topic/view/" + slug + "/"
}

func uniqueIDs(groups ...[]int64) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, ids := range groups {
		for _, id := range ids {
			if id == 0 || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
