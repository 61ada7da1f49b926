// Package mail sends transactional email through an HTTP mail API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPSender posts messages as JSON to the provider's send endpoint.
type HTTPSender struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

func NewHTTPSender(endpoint, apiKey, from string) *HTTPSender {
	return &HTTPSender{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(struct {
		From string `json:"from"`
		Message
	}{From: s.from, Message: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail api: status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// LogSender only logs; it is used when no mail API is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	slog.Info("mail not configured, skipping", "to", msg.To, "subject", msg.Subject)
	return nil
}

func MatchEmail(to, name, other string) Message {
	return Message{
		To:      to,
		Subject: "It's a match! 💪",
		Text:    fmt.Sprintf("Hi %s,\n\nYou and %s crushed on each other. Say hi and plan your next workout together.\n", name, other),
	}
}

func CrushEmail(to, name string) Message {
	return Message{
		To:      to,
		Subject: "Someone has a crush on you",
		Text:    fmt.Sprintf("Hi %s,\n\nSomeone just sent you a crush. Open the app to see who it might be.\n", name),
	}
}
