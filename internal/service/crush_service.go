package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"fitcrush/internal/database"
	"fitcrush/internal/domain"
	"fitcrush/internal/metrics"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"

	"gorm.io/gorm"
)

// SendResult is the outcome of a successful crush.
type SendResult struct {
	Matched          bool
	RemainingBalance int
	Unlimited        bool
}

// MarshalJSON renders remaining_balance as a number, or "unlimited" for
// active subscribers.
func (r SendResult) MarshalJSON() ([]byte, error) {
	var remaining interface{} = r.RemainingBalance
	if r.Unlimited {
		remaining = "unlimited"
	}
	return json.Marshal(struct {
		Matched          bool        `json:"matched"`
		RemainingBalance interface{} `json:"remaining_balance"`
	}{r.Matched, remaining})
}

// CrushService spends crushes and records interest edges.
type CrushService struct {
	db       *gorm.DB
	ledger   *repository.LedgerRepository
	interest *repository.InterestRepository
	matches  *MatchService
	users    *repository.UserRepository
	blocks   *repository.BlockRepository
	outbox   *repository.OutboxRepository
	now      func() time.Time
}

func NewCrushService(
	db *gorm.DB,
	ledger *repository.LedgerRepository,
	interest *repository.InterestRepository,
	matches *MatchService,
	users *repository.UserRepository,
	blocks *repository.BlockRepository,
	outbox *repository.OutboxRepository,
) *CrushService {
	return &CrushService{
		db:       db,
		ledger:   ledger,
		interest: interest,
		matches:  matches,
		users:    users,
		blocks:   blocks,
		outbox:   outbox,
		now:      time.Now,
	}
}

// SendCrush debits the sender, records sender→recipient and reports whether
// that completed a match. Debit, edge, history row and notification events
// commit in one transaction; a failure at any step leaves no trace.
func (s *CrushService) SendCrush(ctx context.Context, senderID, recipientID uint) (*SendResult, error) {
	if senderID == recipientID {
		return nil, domain.ErrInvalidRecipient
	}
	recipient, err := s.users.GetByID(recipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	blocked, err := s.blocks.EitherBlocked(senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, domain.ErrBlocked
	}
	// fast path; the unique index still decides under concurrency
	sent, err := s.interest.HasEdge(ctx, nil, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if sent {
		return nil, domain.ErrDuplicateEdge
	}
	sender, err := s.users.GetByID(senderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	res, err := s.sendOnce(ctx, sender, recipient)
	if err != nil && database.IsRetryable(err) {
		slog.Warn("send crush: transient conflict, retrying", "sender_id", senderID, "recipient_id", recipientID, "error", err)
		res, err = s.sendOnce(ctx, sender, recipient)
	}
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			metrics.CrushesRejected.WithLabelValues(de.Code).Inc()
			return nil, err
		}
		return nil, fmt.Errorf("send crush: %w", err)
	}

	metrics.CrushesSent.Inc()
	if res.Matched {
		metrics.MatchesCreated.Inc()
		slog.Info("match created", "user_a", senderID, "user_b", recipientID)
	}
	return res, nil
}

func (s *CrushService) sendOnce(ctx context.Context, sender, recipient *models.User) (*SendResult, error) {
	var res SendResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		debit, err := s.ledger.Debit(ctx, tx, sender.ID, now)
		if err != nil {
			return err
		}
		if err := s.interest.AddEdge(ctx, tx, sender.ID, recipient.ID, now); err != nil {
			return err
		}
		matched, err := s.matches.Detect(ctx, tx, sender.ID, recipient.ID)
		if err != nil {
			return err
		}

		delta := -1
		if debit.Unlimited {
			delta = 0
		}
		if err := s.ledger.Append(ctx, tx, &models.CrushTransaction{
			UserID:       sender.ID,
			Kind:         domain.TxSent,
			Delta:        delta,
			BalanceAfter: debit.BalanceAfter,
			Description:  "crush sent",
			Reference:    strconv.FormatUint(uint64(recipient.ID), 10),
		}); err != nil {
			return err
		}

		if err := s.enqueue(ctx, tx, sender, recipient, matched, now); err != nil {
			return err
		}
		res = SendResult{Matched: matched, RemainingBalance: debit.BalanceAfter, Unlimited: debit.Unlimited}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *CrushService) enqueue(ctx context.Context, tx *gorm.DB, sender, recipient *models.User, matched bool, now time.Time) error {
	var payloads []EventPayload
	if matched {
		payloads = []EventPayload{
			{Type: domain.EventMatchCreated, UserID: recipient.ID, ActorID: sender.ID, ActorName: sender.Name(), ConversationID: ConversationID(sender.ID, recipient.ID)},
			{Type: domain.EventMatchCreated, UserID: sender.ID, ActorID: recipient.ID, ActorName: recipient.Name(), ConversationID: ConversationID(sender.ID, recipient.ID)},
		}
	} else {
		// rendering drops the actor unless the recipient may see inbound crushes
		payloads = []EventPayload{{Type: domain.EventCrushReceived, UserID: recipient.ID, ActorID: sender.ID, ActorName: sender.Name()}}
	}
	for _, p := range payloads {
		evt, err := newOutboxEvent(p, now)
		if err != nil {
			return err
		}
		if err := s.outbox.Create(ctx, tx, evt); err != nil {
			return err
		}
	}
	return nil
}

// ProfileEdge is one entry in the interest lists, resolved to a public summary.
type ProfileEdge struct {
	Profile models.PublicProfile `json:"profile"`
	SentAt  time.Time            `json:"sent_at"`
}

// InterestState is what GET /crushes returns.
type InterestState struct {
	Outbound      []ProfileEdge `json:"outbound"`
	Inbound       []ProfileEdge `json:"inbound"`
	InboundCount  int64         `json:"inbound_count"`
	InboundHidden bool          `json:"inbound_hidden"`
	Matches       []ProfileEdge `json:"matches"`
}

// InterestState lists who the user crushed on, who crushed on them and their
// matches. Without the see_inbound_crushes capability only the inbound count is
// shown.
func (s *CrushService) InterestState(ctx context.Context, userID uint) (*InterestState, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	now := s.now()

	outbound, err := s.interest.Outbound(ctx, userID)
	if err != nil {
		return nil, err
	}
	inbound, err := s.interest.Inbound(ctx, userID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matches.MatchesOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := &InterestState{InboundCount: int64(len(inbound))}
	if !domain.Can(user.Tier(now), domain.CapSeeInboundCrushes) {
		st.InboundHidden = true
		inbound = nil
	}

	ids := make([]uint, 0, len(outbound)+len(inbound)+len(matches))
	for _, list := range [][]repository.Edge{outbound, inbound, matches} {
		for _, e := range list {
			ids = append(ids, e.UserID)
		}
	}
	profiles, err := s.users.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	resolve := func(edges []repository.Edge) []ProfileEdge {
		out := make([]ProfileEdge, 0, len(edges))
		for _, e := range edges {
			u, ok := profiles[e.UserID]
			if !ok {
				continue // deleted account
			}
			out = append(out, ProfileEdge{Profile: u.Public(now), SentAt: e.SentAt})
		}
		return out
	}
	st.Outbound = resolve(outbound)
	st.Inbound = resolve(inbound)
	st.Matches = resolve(matches)
	return st, nil
}
