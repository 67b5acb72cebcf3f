package forum

import (
	"context"

	"go.uber.org/zap"

	"github.com/steemit/simpleforum/internal/mail"
	"github.com/steemit/simpleforum/internal/models"
)

type commentMail struct {
	Recipient  string
	Author     string
	TopicTitle string
	TopicURL   string
	Comment    string
}

type passwordMail struct {
	Recipient string
	Password  string
	LoginURL  string
}

func commentSubject(topic *models.Topic) string {
	return "New Comment For The Topic " + topic.Title
}

// notifyComment mails every participant of the topic and every mentioned
// user about a new comment. Failures are logged and dropped.
func (s *Service) notifyComment(ctx context.Context, topic *models.Topic, comment *models.Comment) {
	participants, err := s.Participants(ctx, topic)
	if err != nil {
		s.logger.Warn("Failed to load topic participants", zap.Int64("topic_id", topic.ID), zap.Error(err))
		return
	}

	author := ""
	if comment.CommentedBy != nil {
		author = comment.CommentedBy.FullName()
	}
	topicURL := s.absoluteURL(TopicPath(topic.Slug))

	send := func(tmpl string, user models.User) {
		if user.Email == "" {
			return
		}
		body, err := mail.Render(tmpl, commentMail{
			Recipient:  user.FullName(),
			Author:     author,
			TopicTitle: topic.Title,
			TopicURL:   topicURL,
			Comment:    comment.Body,
		})
		if err != nil {
			s.logger.Error("Failed to render mail", zap.String("template", tmpl), zap.Error(err))
			return
		}
		s.mailer.Send(ctx, mail.Message{
			To:      []string{user.Email},
			Subject: commentSubject(topic),
			HTML:    body,
		})
	}

	for _, user := range participants {
		send(mail.TemplateCommentAdd, user)
	}
	for _, user := range comment.Mentioned {
		send(mail.TemplateCommentMentioned, user)
	}
}

func (s *Service) sendPasswordReset(ctx context.Context, user *models.User, password string) error {
	body, err := mail.Render(mail.TemplatePasswordReset, passwordMail{
		Recipient: user.FullName(),
		Password:  password,
		LoginURL:  s.absoluteURL("/"),
	})
	if err != nil {
		return err
	}
	s.mailer.Send(ctx, mail.Message{
		To:      []string{user.Email},
		Subject: "Password Reset",
		HTML:    body,
	})
	return nil
}
