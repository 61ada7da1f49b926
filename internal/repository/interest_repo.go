package repository

import (
	"context"
	"sort"
	"time"

	"fitcrush/internal/domain"
	"fitcrush/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IDSet is a set of user ids with O(1) membership tests.
type IDSet map[uint]struct{}

func NewIDSet(ids ...uint) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

// Edge is one side of a crush as shown in listings.
type Edge struct {
	UserID uint      `json:"user_id"`
	SentAt time.Time `json:"sent_at"`
}

// InterestRepository stores the outbound and inbound edge tables.
type InterestRepository struct {
	db *gorm.DB
}

func NewInterestRepository(db *gorm.DB) *InterestRepository {
	return &InterestRepository{db: db}
}

func (r *InterestRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *InterestRepository) HasEdge(ctx context.Context, tx *gorm.DB, from, to uint) (bool, error) {
	var n int64
	err := r.conn(tx).WithContext(ctx).
		Model(&models.OutboundEdge{}).
		Where("from_user_id = ? AND to_user_id = ?", from, to).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

// AddEdge records from→to on both sides. The unique pair index decides
// duplicates, so concurrent identical sends record exactly one edge. Callers
// must pass a transaction so both rows commit together.
func (r *InterestRepository) AddEdge(ctx context.Context, tx *gorm.DB, from, to uint, now time.Time) error {
	db := r.conn(tx).WithContext(ctx)
	out := models.OutboundEdge{FromUserID: from, ToUserID: to, SentAt: now}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&out)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrDuplicateEdge
	}
	in := models.InboundEdge{ToUserID: to, FromUserID: from, SentAt: now}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&in).Error
}

// Outbound lists who userID has sent crushes to, newest first.
func (r *InterestRepository) Outbound(ctx context.Context, userID uint) ([]Edge, error) {
	var list []Edge
	err := r.db.WithContext(ctx).
		Model(&models.OutboundEdge{}).
		Select("to_user_id AS user_id, sent_at").
		Where("from_user_id = ?", userID).
		Order("sent_at DESC").
		Scan(&list).Error
	return list, err
}

// Inbound lists who has sent crushes to userID, newest first.
func (r *InterestRepository) Inbound(ctx context.Context, userID uint) ([]Edge, error) {
	var list []Edge
	err := r.db.WithContext(ctx).
		Model(&models.InboundEdge{}).
		Select("from_user_id AS user_id, sent_at").
		Where("to_user_id = ?", userID).
		Order("sent_at DESC").
		Scan(&list).Error
	return list, err
}

func (r *InterestRepository) OutboundOf(ctx context.Context, userID uint) (IDSet, error) {
	edges, err := r.Outbound(ctx, userID)
	if err != nil {
		return nil, err
	}
	return edgeSet(edges), nil
}

func (r *InterestRepository) InboundOf(ctx context.Context, userID uint) (IDSet, error) {
	edges, err := r.Inbound(ctx, userID)
	if err != nil {
		return nil, err
	}
	return edgeSet(edges), nil
}

func (r *InterestRepository) CountInbound(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.InboundEdge{}).
		Where("to_user_id = ?", userID).
		Count(&n).Error
	return n, err
}

// MatchesOf returns outbound(userID) ∩ inbound(userID) as one indexed join.
// The edge timestamp is the later of the two sends, i.e. when the match formed.
func (r *InterestRepository) MatchesOf(ctx context.Context, userID uint) ([]Edge, error) {
	var rows []struct {
		UserID    uint
		OutSentAt time.Time
		InSentAt  time.Time
	}
	err := r.db.WithContext(ctx).
		Table("interest_outbound o").
		Select("o.to_user_id AS user_id, o.sent_at AS out_sent_at, i.sent_at AS in_sent_at").
		Joins("JOIN interest_inbound i ON i.to_user_id = o.from_user_id AND i.from_user_id = o.to_user_id").
		Where("o.from_user_id = ?", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	list := make([]Edge, 0, len(rows))
	for _, row := range rows {
		at := row.OutSentAt
		if row.InSentAt.After(at) {
			at = row.InSentAt
		}
		list = append(list, Edge{UserID: row.UserID, SentAt: at})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].SentAt.After(list[j].SentAt) })
	return list, nil
}

func edgeSet(edges []Edge) IDSet {
	s := make(IDSet, len(edges))
	for _, e := range edges {
		s[e.UserID] = struct{}{}
	}
	return s
}
