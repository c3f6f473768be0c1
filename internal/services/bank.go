package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"balance-game-backend/internal/models"
)

// TransferRef describes why value moves, for the participant's history.
type TransferRef struct {
	Type   models.TransactionType
	GameID uint64
}

// Bank holds participant balances. Stakes are debited from it and rewards
// credited to it; the ledger never moves value any other way.
type Bank interface {
	Debit(ctx context.Context, address string, amount uint64, ref TransferRef) error
	Credit(ctx context.Context, address string, amount uint64, ref TransferRef) error
	GetWallet(ctx context.Context, address string) (*models.Wallet, error)
	GetTransactions(ctx context.Context, address string, limit int64) ([]*models.Transaction, error)
}

// MemoryBank is an in-process Bank. Wallets are opened on first use with
// the starting balance, like the Redis-backed wallets.
type MemoryBank struct {
	mu              sync.Mutex
	startingBalance uint64
	wallets         map[string]*models.Wallet
	transactions    map[string][]*models.Transaction
}

func NewMemoryBank(startingBalance uint64) *MemoryBank {
	return &MemoryBank{
		startingBalance: startingBalance,
		wallets:         make(map[string]*models.Wallet),
		transactions:    make(map[string][]*models.Transaction),
	}
}

func (b *MemoryBank) wallet(address string) *models.Wallet {
	w, ok := b.wallets[address]
	if !ok {
		w = &models.Wallet{Address: address, Balance: b.startingBalance}
		b.wallets[address] = w
	}
	return w
}

func (b *MemoryBank) Debit(ctx context.Context, address string, amount uint64, ref TransferRef) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	w := b.wallet(address)
	if w.Balance < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, w.Balance, amount)
	}
	w.Balance -= amount
	switch ref.Type {
	case models.TransactionTypeStake:
		w.TotalStaked += amount
	case models.TransactionTypeReversal:
		w.TotalWon -= min(w.TotalWon, amount)
	}
	b.record(w, amount, ref)
	return nil
}

func (b *MemoryBank) Credit(ctx context.Context, address string, amount uint64, ref TransferRef) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	w := b.wallet(address)
	if w.Balance+amount < w.Balance {
		return fmt.Errorf("credit of %d overflows balance of %s", amount, address)
	}
	w.Balance += amount
	switch ref.Type {
	case models.TransactionTypeReward:
		w.TotalWon += amount
	case models.TransactionTypeRefund:
		w.TotalStaked -= min(w.TotalStaked, amount)
	}
	b.record(w, amount, ref)
	return nil
}

func (b *MemoryBank) record(w *models.Wallet, amount uint64, ref TransferRef) {
	b.transactions[w.Address] = append(b.transactions[w.Address], &models.Transaction{
		ID:           models.GenerateTransactionID(),
		Address:      w.Address,
		Type:         ref.Type,
		Amount:       amount,
		BalanceAfter: w.Balance,
		GameID:       ref.GameID,
		Description:  models.TransactionDescription(ref.Type, ref.GameID, amount),
		CreatedAt:    time.Now(),
	})
}

func (b *MemoryBank) GetWallet(ctx context.Context, address string) (*models.Wallet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := *b.wallet(address)
	return &w, nil
}

func (b *MemoryBank) GetTransactions(ctx context.Context, address string, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > MaxTransactionHistory {
		limit = 50
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	history := b.transactions[address]
	out := make([]*models.Transaction, 0, min(int64(len(history)), limit))
	for i := len(history) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		tx := *history[i]
		out = append(out, &tx)
	}
	return out, nil
}

// Balances returns a copy of every wallet balance, sorted by address.
func (b *MemoryBank) Balances() []models.Wallet {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Wallet, 0, len(b.wallets))
	for _, w := range b.wallets {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}
