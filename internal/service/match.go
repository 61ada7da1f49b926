package service

import (
	"context"

	"fitcrush/internal/repository"

	"gorm.io/gorm"
)

// PairState is the interest state of an ordered pair (A, B).
type PairState string

const (
	NoInterest   PairState = "none"
	PendingFromA PairState = "pending_from_a"
	PendingFromB PairState = "pending_from_b"
	Matched      PairState = "matched"
)

// Intersect returns the ids present in both sets, iterating the smaller one.
func Intersect(a, b repository.IDSet) repository.IDSet {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(repository.IDSet)
	for id := range a {
		if b.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// MatchService derives matches from the interest graph. A match is never
// stored; it exists while both directed edges exist.
type MatchService struct {
	interest *repository.InterestRepository
}

func NewMatchService(interest *repository.InterestRepository) *MatchService {
	return &MatchService{interest: interest}
}

// Detect is called right after from→to was added in tx and reports whether
// to→from already exists.
func (s *MatchService) Detect(ctx context.Context, tx *gorm.DB, from, to uint) (bool, error) {
	return s.interest.HasEdge(ctx, tx, to, from)
}

func (s *MatchService) PairState(ctx context.Context, a, b uint) (PairState, error) {
	ab, err := s.interest.HasEdge(ctx, nil, a, b)
	if err != nil {
		return NoInterest, err
	}
	ba, err := s.interest.HasEdge(ctx, nil, b, a)
	if err != nil {
		return NoInterest, err
	}
	switch {
	case ab && ba:
		return Matched, nil
	case ab:
		return PendingFromA, nil
	case ba:
		return PendingFromB, nil
	default:
		return NoInterest, nil
	}
}

func (s *MatchService) IsMatched(ctx context.Context, a, b uint) (bool, error) {
	st, err := s.PairState(ctx, a, b)
	return st == Matched, err
}

// MatchesOf is outbound(user) ∩ inbound(user), newest match first.
func (s *MatchService) MatchesOf(ctx context.Context, userID uint) ([]repository.Edge, error) {
	return s.interest.MatchesOf(ctx, userID)
}

// MatchSet is MatchesOf as an id set.
func (s *MatchService) MatchSet(ctx context.Context, userID uint) (repository.IDSet, error) {
	edges, err := s.interest.MatchesOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(repository.IDSet, len(edges))
	for _, e := range edges {
		set[e.UserID] = struct{}{}
	}
	return set, nil
}
