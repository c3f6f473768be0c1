package services

import (
	"fmt"
	"math/bits"

	"balance-game-backend/internal/models"
)

// computeReward returns userAmount * totalPool / winningPool, truncated.
// The product is taken in 128 bits so no pool size can overflow it.
func computeReward(userAmount, totalPool, winningPool uint64) (uint64, error) {
	if userAmount == 0 || winningPool == 0 {
		return 0, nil
	}
	if userAmount > winningPool || winningPool > totalPool {
		return 0, fmt.Errorf("%w: stake %d exceeds winning pool %d of %d",
			ErrJournalCorrupt, userAmount, winningPool, totalPool)
	}
	hi, lo := bits.Mul64(userAmount, totalPool)
	// hi < winningPool holds because userAmount <= winningPool, so the
	// quotient fits in 64 bits.
	quo, _ := bits.Div64(hi, lo, winningPool)
	return quo, nil
}

// settle checks claim eligibility for a closed game in the order callers
// observe: no stake, already claimed, not a winner. It returns the reward
// the participant is owed.
func settle(game *models.Game, vote *models.Vote) (uint64, error) {
	if vote == nil || !vote.HasStake() {
		return 0, ErrNoStakeFound
	}
	if vote.Claimed {
		return 0, ErrAlreadyClaimed
	}
	winner := game.Winner()
	if winner == models.SideNone || vote.LastSide != winner {
		return 0, ErrNotAWinner
	}
	// Eligibility and amount both follow the most recent side only.
	return computeReward(vote.AmountOn(vote.LastSide), game.TotalPool(), game.PoolOf(winner))
}

func addPool(pool, total, amount uint64) (uint64, error) {
	next, carry := bits.Add64(pool, amount, 0)
	if carry != 0 {
		return 0, ErrPoolOverflow
	}
	if _, carry := bits.Add64(total, amount, 0); carry != 0 {
		return 0, ErrPoolOverflow
	}
	return next, nil
}
