package services

import "balance-game-backend/internal/models"

// Broadcaster receives every event after the ledger applied it. It must
// not block and must not call back into the ledger.
type Broadcaster interface {
	BroadcastEvent(ev models.Event)
}
