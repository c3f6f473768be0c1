package services

import (
	"errors"
	"math"
	"testing"

	"balance-game-backend/internal/models"
)

func TestComputeReward(t *testing.T) {
	cases := []struct {
		user, total, winning uint64
		want                 uint64
	}{
		{2, 3, 2, 3},
		{1, 3, 2, 1},
		{9, 18, 10, 16},
		{0, 10, 5, 0},
		{5, 5, 5, 5},
		{math.MaxUint64, math.MaxUint64, math.MaxUint64, math.MaxUint64},
		{math.MaxUint64 / 2, math.MaxUint64, math.MaxUint64/2 + 1, math.MaxUint64 - 2},
	}
	for _, tc := range cases {
		got, err := computeReward(tc.user, tc.total, tc.winning)
		if err != nil {
			t.Errorf("computeReward(%d, %d, %d): %v", tc.user, tc.total, tc.winning, err)
			continue
		}
		if got != tc.want {
			t.Errorf("computeReward(%d, %d, %d) = %d, want %d", tc.user, tc.total, tc.winning, got, tc.want)
		}
	}
}

func TestComputeRewardZeroWinningPool(t *testing.T) {
	got, err := computeReward(3, 10, 0)
	if err != nil || got != 0 {
		t.Errorf("expected zero reward without error, got %d (%v)", got, err)
	}
}

func TestComputeRewardRejectsImpossibleShares(t *testing.T) {
	if _, err := computeReward(11, 20, 10); !errors.Is(err, ErrJournalCorrupt) {
		t.Errorf("stake above winning pool should be reported, got %v", err)
	}
}

func TestSettleOrder(t *testing.T) {
	game := &models.Game{Question: "q", OptionAPool: 4, OptionBPool: 2}

	if _, err := settle(game, nil); !errors.Is(err, ErrNoStakeFound) {
		t.Errorf("expected ErrNoStakeFound, got %v", err)
	}
	claimedLoser := &models.Vote{LastSide: models.SideB, OptionBAmount: 2, Claimed: true}
	if _, err := settle(game, claimedLoser); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("claimed check must precede winner check, got %v", err)
	}
	loser := &models.Vote{LastSide: models.SideB, OptionBAmount: 2}
	if _, err := settle(game, loser); !errors.Is(err, ErrNotAWinner) {
		t.Errorf("expected ErrNotAWinner, got %v", err)
	}
	winner := &models.Vote{LastSide: models.SideA, OptionAAmount: 4}
	if reward, err := settle(game, winner); err != nil || reward != 6 {
		t.Errorf("expected reward 6, got %d (%v)", reward, err)
	}
}

func TestAddPoolOverflow(t *testing.T) {
	if _, err := addPool(math.MaxUint64-1, math.MaxUint64-1, 2); !errors.Is(err, ErrPoolOverflow) {
		t.Errorf("expected pool overflow, got %v", err)
	}
	if _, err := addPool(1, math.MaxUint64-1, 2); !errors.Is(err, ErrPoolOverflow) {
		t.Errorf("expected total overflow, got %v", err)
	}
	if got, err := addPool(1, 5, 2); err != nil || got != 3 {
		t.Errorf("expected 3, got %d (%v)", got, err)
	}
}
