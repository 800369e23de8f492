package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/partnerly/dispatch-backend/pkg/config"
	"github.com/partnerly/dispatch-backend/pkg/logger"
)

const sendgridSendURL = "https://api.sendgrid.com/v3/mail/send"

// Message is one rendered email ready for delivery. Text is the plain-text
// alternative for clients that do not render HTML.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers rendered messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendgridMailer delivers mail through the SendGrid v3 REST API.
type SendgridMailer struct {
	apiKey string
	from   string
	client *http.Client
	logg   *logger.Logger
}

// NewSendgrid builds a mailer from the mail configuration.
func NewSendgrid(cfg config.MailConfig, logg *logger.Logger) (*SendgridMailer, error) {
	if cfg.SendgridAPIKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if cfg.DefaultFrom == "" {
		return nil, errors.New("mail from address is required")
	}
	return &SendgridMailer{
		apiKey: cfg.SendgridAPIKey,
		from:   cfg.DefaultFrom,
		client: &http.Client{Timeout: 10 * time.Second},
		logg:   logg,
	}, nil
}

type sendgridRequest struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendgridContent         `json:"content"`
}

type sendgridPersonalization struct {
	To []sendgridAddress `json:"to"`
}

type sendgridAddress struct {
	Email string `json:"email"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send delivers one message. A non-2xx response is returned as an error.
func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("recipient is required")
	}

	// SendGrid requires the text/plain part before text/html.
	content := make([]sendgridContent, 0, 2)
	if msg.Text != "" {
		content = append(content, sendgridContent{Type: "text/plain", Value: msg.Text})
	}
	content = append(content, sendgridContent{Type: "text/html", Value: msg.HTML})

	body := sendgridRequest{
		Personalizations: []sendgridPersonalization{{To: []sendgridAddress{{Email: msg.To}}}},
		From:             sendgridAddress{Email: m.from},
		Subject:          msg.Subject,
		Content:          content,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendgridSendURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, string(detail))
}
