package service

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Pusher delivers a device push. FCMService is the production implementation.
type Pusher interface {
	Push(ctx context.Context, token, notifType, title, body string, data map[string]string) error
}

// FCMService sends push notifications via Firebase Cloud Messaging.
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates an FCM service. Returns nil if Firebase is not configured.
func NewFCMService(ctx context.Context, credentialsFile string) *FCMService {
	if credentialsFile == "" {
		return nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		slog.Error("firebase app init failed", "error", err)
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		slog.Error("firebase messaging client failed", "error", err)
		return nil
	}
	return &FCMService{client: client}
}

// Push sends a notification to one device token. data values travel as strings
// and always include the notification type.
func (s *FCMService) Push(ctx context.Context, token, notifType, title, body string, data map[string]string) error {
	if s == nil || token == "" {
		return nil
	}
	payload := map[string]string{"type": notifType}
	for k, v := range data {
		payload[k] = v
	}
	msg := &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  payload,
		Token: token,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
	if _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}
