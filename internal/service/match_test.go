package service

import (
	"context"
	"testing"

	"fitcrush/internal/repository"
)

func TestIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b repository.IDSet
		want []uint
	}{
		{"empty", repository.NewIDSet(), repository.NewIDSet(1, 2), nil},
		{"disjoint", repository.NewIDSet(1, 2), repository.NewIDSet(3), nil},
		{"overlap", repository.NewIDSet(1, 2, 3, 4), repository.NewIDSet(2, 4, 6), []uint{2, 4}},
		{"same", repository.NewIDSet(7), repository.NewIDSet(7), []uint{7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Intersect(tt.a, tt.b)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for _, id := range tt.want {
				if !got.Has(id) {
					t.Fatalf("missing %d in %v", id, got)
				}
			}
		})
	}
}

func TestPairStateTransitions(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	alice := createUser(t, s.db, "alice")
	bob := createUser(t, s.db, "bob")

	check := func(a, b uint, want PairState) {
		t.Helper()
		got, err := s.matches.PairState(ctx, a, b)
		if err != nil {
			t.Fatalf("pair state: %v", err)
		}
		if got != want {
			t.Fatalf("PairState(%d, %d) = %s, want %s", a, b, got, want)
		}
	}

	check(alice.ID, bob.ID, NoInterest)
	if _, err := s.crushes.SendCrush(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	check(alice.ID, bob.ID, PendingFromA)
	check(bob.ID, alice.ID, PendingFromB)
	if _, err := s.crushes.SendCrush(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	check(alice.ID, bob.ID, Matched)

	set, err := s.matches.MatchSet(ctx, alice.ID)
	if err != nil {
		t.Fatalf("match set: %v", err)
	}
	if !set.Has(bob.ID) || len(set) != 1 {
		t.Fatalf("match set = %v", set)
	}
}
