package mail

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleSender writes mails to the log instead of delivering them
type ConsoleSender struct {
	logger *zap.Logger
}

// NewConsoleSender creates a console sender
func NewConsoleSender(logger *zap.Logger) *ConsoleSender {
	return &ConsoleSender{logger: logger}
}

// Name implements Sender
func (s *ConsoleSender) Name() string { return "console" }

// Send implements Sender
func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("Outgoing mail",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("html", msg.HTML))
	return nil
}
