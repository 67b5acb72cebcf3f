// Package mail renders and delivers forum notification emails.
package mail

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/steemit/simpleforum/pkg/config"
	"github.com/steemit/simpleforum/pkg/logging"
	"github.com/steemit/simpleforum/pkg/telemetry"
)

// Message is one outbound HTML email
type Message struct {
	To      []string
	From    string
	Subject string
	HTML    string
}

// Sender is a mail delivery backend
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Mailer fills in defaults and delivers through a Sender. Delivery failures
// are logged and never returned to the caller.
type Mailer struct {
	sender Sender
	from   string
	logger *zap.Logger
}

// New builds a Mailer for the configured backend
func New(cfg *config.MailConfig) (*Mailer, error) {
	var sender Sender
	switch cfg.Sender {
	case "smtp":
		sender = NewSMTPSender(cfg)
	case "mailgun":
		sender = NewMailgunSender(cfg.MailgunURL, cfg.MailgunAPIKey, &http.Client{Timeout: cfg.Timeout})
	case "console", "":
		sender = NewConsoleSender(logging.WithComponent("mail"))
	default:
		return nil, fmt.Errorf("unknown mail sender %q", cfg.Sender)
	}
	return NewMailer(sender, cfg.From), nil
}

// NewMailer wraps sender with a default From address
func NewMailer(sender Sender, from string) *Mailer {
	return &Mailer{
		sender: sender,
		from:   from,
		logger: logging.WithComponent("mail"),
	}
}

// From returns the default sender address
func (m *Mailer) From() string {
	return m.from
}

// Send delivers msg. Messages without recipients are dropped.
func (m *Mailer) Send(ctx context.Context, msg Message) {
	if len(msg.To) == 0 {
		return
	}
	if msg.From == "" {
		msg.From = m.from
	}

	ctx, span := telemetry.StartSpan(ctx, "mail.Send")
	defer span.End()

	err := m.sender.Send(ctx, msg)
	telemetry.RecordMail(ctx, m.sender.Name(), err == nil)
	if err != nil {
		span.RecordError(err)
		m.logger.Warn("Failed to send mail",
			zap.String("backend", m.sender.Name()),
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return
	}
	m.logger.Debug("Mail sent",
		zap.String("backend", m.sender.Name()),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject))
}

// Outbox is a Sender that keeps messages in memory
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

// Name implements Sender
func (o *Outbox) Name() string { return "outbox" }

// Send implements Sender
func (o *Outbox) Send(_ context.Context, msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.messages = append(o.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}
