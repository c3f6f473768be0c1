package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

// NormalizeAddress lower-cases a participant address so the same account
// always maps to the same stake record.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func (r *CreateGameRequest) Normalize() {
	r.Question = strings.TrimSpace(r.Question)
	r.OptionA = strings.TrimSpace(r.OptionA)
	r.OptionB = strings.TrimSpace(r.OptionB)
}

func (r *CreateGameRequest) Validate() error {
	if r.Question == "" {
		return fmt.Errorf("question is required")
	}
	if r.OptionA == "" || r.OptionB == "" {
		return fmt.Errorf("both options are required")
	}
	if r.DurationInMinutes < 1 {
		return fmt.Errorf("duration must be at least 1 minute")
	}
	return nil
}

func (r *VoteRequest) Side() Side {
	if r.IsOptionA == nil {
		return SideNone
	}
	return SideFromBool(*r.IsOptionA)
}

func (q *ListGamesQuery) Defaults() {
	if q.Sort == "" {
		q.Sort = GameSortRecent
	}
	if q.Limit == 0 {
		q.Limit = 50
	}
}

func TransactionDescription(t TransactionType, gameID uint64, amount uint64) string {
	switch t {
	case TransactionTypeStake:
		return fmt.Sprintf("Staked %d on game %d", amount, gameID)
	case TransactionTypeReward:
		return fmt.Sprintf("Claimed reward %d from game %d", amount, gameID)
	case TransactionTypeRefund:
		return fmt.Sprintf("Refunded stake %d on game %d", amount, gameID)
	case TransactionTypeReversal:
		return fmt.Sprintf("Reversed reward %d from game %d", amount, gameID)
	default:
		return fmt.Sprintf("%s %d on game %d", t, amount, gameID)
	}
}
