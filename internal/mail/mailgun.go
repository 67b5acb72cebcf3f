package mail

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// MailgunSender posts mail to the Mailgun messages API
type MailgunSender struct {
	apiURL string
	apiKey string
	client *http.Client
}

// NewMailgunSender creates a Mailgun sender for the given messages endpoint
func NewMailgunSender(apiURL, apiKey string, client *http.Client) *MailgunSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &MailgunSender{apiURL: apiURL, apiKey: apiKey, client: client}
}

// Name implements Sender
func (s *MailgunSender) Name() string { return "mailgun" }

// Send implements Sender
func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("from", msg.From)
	for _, to := range msg.To {
		form.Add("to", to)
	}
	form.Set("subject", msg.Subject)
	form.Set("html", msg.HTML)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mailgun returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
