package models

import "time"

type Wallet struct {
	Address     string `json:"address" redis:"address"`
	Balance     uint64 `json:"balance" redis:"balance"`
	TotalStaked uint64 `json:"total_staked" redis:"total_staked"`
	TotalWon    uint64 `json:"total_won" redis:"total_won"`
}

type TransactionType string

const (
	TransactionTypeStake  TransactionType = "stake"
	TransactionTypeReward TransactionType = "reward"
	// Refund and Reversal undo a movement whose ledger entry could not be
	// journaled.
	TransactionTypeRefund   TransactionType = "refund"
	TransactionTypeReversal TransactionType = "reversal"
)

type Transaction struct {
	ID           string          `json:"id" redis:"id"`
	Address      string          `json:"address" redis:"address"`
	Type         TransactionType `json:"type" redis:"type"`
	Amount       uint64          `json:"amount" redis:"amount"`
	BalanceAfter uint64          `json:"balance_after" redis:"balance_after"`
	GameID       uint64          `json:"game_id" redis:"game_id"`
	Description  string          `json:"description" redis:"description"`
	CreatedAt    time.Time       `json:"created_at" redis:"created_at"`
}

// IsCredit reports whether the movement added to the wallet balance.
func (t TransactionType) IsCredit() bool {
	return t == TransactionTypeReward || t == TransactionTypeRefund
}

type BalanceResponse struct {
	Address     string `json:"address"`
	Balance     uint64 `json:"balance"`
	TotalStaked uint64 `json:"total_staked"`
	TotalWon    uint64 `json:"total_won"`
}
