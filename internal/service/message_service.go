package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"fitcrush/internal/domain"
	"fitcrush/internal/metrics"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"
	"fitcrush/pkg/limits"

	"gorm.io/gorm"
)

// ConversationID is the same for both participants: "<min>_<max>".
func ConversationID(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}

// Relay pushes realtime frames to a user's open connections.
type Relay interface {
	BroadcastToUser(userID uint, payload interface{}) int
}

type MessageService struct {
	db       *gorm.DB
	messages *repository.MessageRepository
	matches  *MatchService
	users    *repository.UserRepository
	blocks   *repository.BlockRepository
	outbox   *repository.OutboxRepository
	counter  limits.Counter
	relay    Relay
	now      func() time.Time
}

func NewMessageService(
	db *gorm.DB,
	messages *repository.MessageRepository,
	matches *MatchService,
	users *repository.UserRepository,
	blocks *repository.BlockRepository,
	outbox *repository.OutboxRepository,
	counter limits.Counter,
	relay Relay,
) *MessageService {
	return &MessageService{
		db:       db,
		messages: messages,
		matches:  matches,
		users:    users,
		blocks:   blocks,
		outbox:   outbox,
		counter:  counter,
		relay:    relay,
		now:      time.Now,
	}
}

// SendMessage stores a message between two matched users and relays it.
func (s *MessageService) SendMessage(ctx context.Context, senderID, receiverID uint, content, imageURL string) (*models.Message, error) {
	matched, err := s.matches.IsMatched(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !matched || senderID == receiverID {
		return nil, domain.ErrNotMatched
	}
	blocked, err := s.blocks.EitherBlocked(senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, domain.ErrBlocked
	}

	content = strings.TrimSpace(content)
	imageURL = strings.TrimSpace(imageURL)
	if content == "" && imageURL == "" {
		return nil, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > domain.MaxMessageLength {
		return nil, domain.ErrMessageTooLong
	}

	sender, err := s.users.GetByID(senderID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	tier := sender.Tier(now)
	if imageURL != "" && !domain.Can(tier, domain.CapImageMessages) {
		return nil, domain.ErrCapabilityRequired
	}
	if limit := domain.CapabilitiesOf(tier).DailyMessageLimit; limit > 0 {
		n, err := s.counter.Incr(ctx, limits.DailyKey("msg", senderID, now), limits.UntilEndOfDay(now))
		if err != nil {
			return nil, fmt.Errorf("daily message counter: %w", err)
		}
		if n > int64(limit) {
			return nil, domain.ErrDailyLimitReached
		}
	}

	msg := &models.Message{
		ConversationID: ConversationID(senderID, receiverID),
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		ImageURL:       imageURL,
		SentAt:         now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.messages.Create(ctx, tx, msg); err != nil {
			return err
		}
		preview := content
		if preview == "" {
			preview = "📷 Photo"
		}
		if utf8.RuneCountInString(preview) > 80 {
			preview = string([]rune(preview)[:80]) + "…"
		}
		evt, err := newOutboxEvent(EventPayload{
			Type:           domain.EventMessageReceived,
			UserID:         receiverID,
			ActorID:        senderID,
			ActorName:      sender.Name(),
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			Preview:        preview,
		}, now)
		if err != nil {
			return err
		}
		return s.outbox.Create(ctx, tx, evt)
	})
	if err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	metrics.MessagesSent.Inc()
	frame := map[string]interface{}{"type": "message", "message": msg}
	s.relay.BroadcastToUser(receiverID, frame)
	s.relay.BroadcastToUser(senderID, frame)
	return msg, nil
}

// ListMessages returns one page of the conversation between userID and otherID.
func (s *MessageService) ListMessages(ctx context.Context, userID, otherID uint, limit int, before *time.Time) ([]models.Message, error) {
	matched, err := s.matches.IsMatched(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, domain.ErrNotMatched
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	list, err := s.messages.ListConversation(ctx, ConversationID(userID, otherID), limit, before)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = list[i].Redacted()
	}
	return list, nil
}

// MarkConversationRead marks messages from otherID to readerID as read and
// tells otherID's devices.
func (s *MessageService) MarkConversationRead(ctx context.Context, readerID, otherID uint) (int64, error) {
	conv := ConversationID(readerID, otherID)
	now := s.now()
	n, err := s.messages.MarkRead(ctx, conv, readerID, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.relay.BroadcastToUser(otherID, map[string]interface{}{
			"type": "read", "conversation_id": conv, "reader_id": readerID, "read_at": now,
		})
	}
	return n, nil
}

// DeleteMessage hides a message for both participants. Only its sender may
// delete it.
func (s *MessageService) DeleteMessage(ctx context.Context, senderID, messageID uint) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrMessageNotFound
		}
		return err
	}
	if msg.SenderID != senderID {
		return domain.ErrMessageNotFound
	}
	if _, err := s.messages.SoftDelete(ctx, messageID, senderID); err != nil {
		return err
	}
	frame := map[string]interface{}{"type": "deleted", "conversation_id": msg.ConversationID, "message_id": msg.ID}
	s.relay.BroadcastToUser(msg.ReceiverID, frame)
	return nil
}

// Conversation is one row of the inbox: a match plus its latest message.
type Conversation struct {
	ConversationID string               `json:"conversation_id"`
	Partner        models.PublicProfile `json:"partner"`
	MatchedAt      time.Time            `json:"matched_at"`
	LastMessage    *models.Message      `json:"last_message,omitempty"`
	Unread         int64                `json:"unread"`
}

// Conversations lists every match, most recent activity first.
func (s *MessageService) Conversations(ctx context.Context, userID uint) ([]Conversation, error) {
	matches, err := s.matches.MatchesOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return []Conversation{}, nil
	}
	ids := make([]uint, 0, len(matches))
	convIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.UserID)
		convIDs = append(convIDs, ConversationID(userID, m.UserID))
	}
	profiles, err := s.users.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	last, err := s.messages.LastMessages(ctx, convIDs)
	if err != nil {
		return nil, err
	}
	unread, err := s.messages.UnreadCounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]Conversation, 0, len(matches))
	for _, m := range matches {
		u, ok := profiles[m.UserID]
		if !ok {
			continue
		}
		conv := ConversationID(userID, m.UserID)
		c := Conversation{ConversationID: conv, Partner: u.Public(now), MatchedAt: m.SentAt, Unread: unread[conv]}
		if msg, ok := last[conv]; ok {
			redacted := msg.Redacted()
			c.LastMessage = &redacted
		}
		out = append(out, c)
	}
	sortConversations(out)
	return out, nil
}

func sortConversations(list []Conversation) {
	at := func(c Conversation) time.Time {
		if c.LastMessage != nil {
			return c.LastMessage.SentAt
		}
		return c.MatchedAt
	}
	sort.SliceStable(list, func(i, j int) bool { return at(list[i]).After(at(list[j])) })
}
