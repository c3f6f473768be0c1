package services

import (
	"context"
	"sync"

	"balance-game-backend/internal/models"
)

// Journal is the durable, append-only record of ledger events. The ledger
// state is a pure fold over it, so replaying the journal rebuilds the
// ledger exactly.
type Journal interface {
	Append(ctx context.Context, ev models.Event) error
	Load(ctx context.Context) ([]models.Event, error)
}

// MemoryJournal keeps events in process. It is used in tests and when the
// server runs without durable storage.
type MemoryJournal struct {
	mu     sync.Mutex
	events []models.Event
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Append(ctx context.Context, ev models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

func (j *MemoryJournal) Load(ctx context.Context) ([]models.Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]models.Event, len(j.events))
	copy(out, j.events)
	return out, nil
}
