package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"fitcrush/internal/domain"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"
	"fitcrush/pkg/mail"

	"gorm.io/datatypes"
)

// Realtime is a Relay that also knows who is connected.
type Realtime interface {
	Relay
	IsOnline(userID uint) bool
}

// NotificationService turns outbox events into in-app notifications, realtime
// frames, device pushes and email.
type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	fcm      Pusher
	mailer   mail.Sender
	relay    Realtime
	now      func() time.Time
}

func NewNotificationService(
	repo *repository.NotificationRepository,
	userRepo *repository.UserRepository,
	fcm Pusher,
	mailer mail.Sender,
	relay Realtime,
) *NotificationService {
	if mailer == nil {
		mailer = mail.LogSender{}
	}
	return &NotificationService{repo: repo, userRepo: userRepo, fcm: fcm, mailer: mailer, relay: relay, now: time.Now}
}

// rendered is what a user sees for one event.
type rendered struct {
	notifType string
	frame     string
	title     string
	body      string
	data      map[string]interface{}
	inApp     bool
}

func (s *NotificationService) render(p EventPayload, recipient *models.User) (rendered, bool) {
	switch p.Type {
	case domain.EventCrushReceived:
		r := rendered{
			notifType: domain.NotificationCrushReceived,
			frame:     "crush",
			title:     "New crush",
			body:      "Someone sent you a crush",
			data:      map[string]interface{}{},
			inApp:     true,
		}
		// Free accounts only learn that a crush arrived.
		if domain.Can(recipient.Tier(s.now()), domain.CapSeeInboundCrushes) {
			r.body = p.ActorName + " sent you a crush"
			r.data["from_user_id"] = p.ActorID
		}
		return r, true
	case domain.EventMatchCreated:
		return rendered{
			notifType: domain.NotificationMatchCreated,
			frame:     "match",
			title:     "It's a match!",
			body:      "You and " + p.ActorName + " like each other",
			data:      map[string]interface{}{"user_id": p.ActorID, "conversation_id": p.ConversationID},
			inApp:     true,
		}, true
	case domain.EventMessageReceived:
		return rendered{
			notifType: domain.NotificationMessageReceived,
			title:     p.ActorName,
			body:      p.Preview,
			data:      map[string]interface{}{"conversation_id": p.ConversationID, "message_id": p.MessageID, "from_user_id": p.ActorID},
		}, true
	case domain.EventPaymentDone:
		body := "Your purchase was successful."
		if p.Crushes > 0 {
			body = fmt.Sprintf("%d crushes were added to your balance.", p.Crushes)
		}
		return rendered{
			notifType: domain.NotificationPaymentConfirm,
			frame:     "notification",
			title:     "Payment confirmed",
			body:      body,
			data:      map[string]interface{}{"reference": p.Reference, "package_id": p.PackageID},
			inApp:     true,
		}, true
	case domain.EventSubscription:
		return rendered{
			notifType: domain.NotificationSubscription,
			frame:     "notification",
			title:     "Subscription updated",
			body:      "Your premium subscription has changed.",
			data:      map[string]interface{}{"package_id": p.PackageID},
			inApp:     true,
		}, true
	}
	return rendered{}, false
}

// Deliver handles one outbox event. The in-app row is keyed by event id, so a
// retried event does not notify twice. Errors from storage and email are
// returned for the dispatcher to retry; push failures are only logged.
func (s *NotificationService) Deliver(ctx context.Context, evt *models.OutboxEvent) error {
	p, err := DecodePayload(evt)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	recipient, err := s.userRepo.GetByID(p.UserID)
	if err != nil {
		return fmt.Errorf("load recipient %d: %w", p.UserID, err)
	}
	r, ok := s.render(p, recipient)
	if !ok {
		slog.Warn("no renderer for event", "type", evt.Type, "event_id", evt.EventID)
		return nil
	}

	fresh := true
	if r.inApp {
		exists, err := s.repo.ExistsForEvent(recipient.ID, evt.EventID)
		if err != nil {
			return err
		}
		fresh = !exists
		if fresh {
			data, _ := json.Marshal(r.data)
			n := &models.Notification{
				UserID:  recipient.ID,
				Type:    r.notifType,
				Title:   r.title,
				Body:    r.body,
				Data:    datatypes.JSON(data),
				EventID: evt.EventID,
			}
			if err := s.repo.Create(n); err != nil {
				return err
			}
			if s.relay != nil && r.frame != "" {
				s.relay.BroadcastToUser(recipient.ID, map[string]interface{}{"type": r.frame, "notification": n})
			}
		}
	}

	if fresh {
		// Message pushes go only to users without an open socket.
		online := !r.inApp && s.relay != nil && s.relay.IsOnline(recipient.ID)
		if !online {
			s.push(ctx, recipient, r)
		}
	}
	return s.email(ctx, evt, p, recipient)
}

func (s *NotificationService) push(ctx context.Context, u *models.User, r rendered) {
	if s.fcm == nil || u.FCMToken == "" {
		return
	}
	data := make(map[string]string, len(r.data))
	for k, v := range r.data {
		switch val := v.(type) {
		case string:
			data[k] = val
		case uint:
			data[k] = strconv.FormatUint(uint64(val), 10)
		case int:
			data[k] = strconv.Itoa(val)
		default:
			b, _ := json.Marshal(v)
			data[k] = string(b)
		}
	}
	if err := s.fcm.Push(ctx, u.FCMToken, r.notifType, r.title, r.body, data); err != nil {
		slog.Warn("push failed", "user_id", u.ID, "type", r.notifType, "error", err)
	}
}

func (s *NotificationService) email(ctx context.Context, evt *models.OutboxEvent, p EventPayload, u *models.User) error {
	if !u.EmailNotifications || u.Email == "" {
		return nil
	}
	var msg mail.Message
	switch evt.Type {
	case domain.EventMatchCreated:
		msg = mail.MatchEmail(u.Email, u.Name(), p.ActorName)
	case domain.EventCrushReceived:
		msg = mail.CrushEmail(u.Email, u.Name())
	default:
		return nil
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", evt.Type, err)
	}
	return nil
}

func (s *NotificationService) List(userID uint, limit, offset int) ([]models.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := s.repo.ListByUserID(userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(userID)
	return list, unread, err
}

func (s *NotificationService) MarkRead(userID, id uint) error {
	return s.repo.MarkRead(id, userID)
}

func (s *NotificationService) MarkAllRead(userID uint) error {
	return s.repo.MarkAllRead(userID)
}
