package db

import (
	"time"

	"gorm.io/datatypes"
)

// LedgerEvent is the archived copy of one committed ledger event. Seq is
// the ledger's own sequence number, so re-archiving is a no-op.
type LedgerEvent struct {
	ID         uint           `gorm:"primaryKey"`
	Seq        uint64         `gorm:"uniqueIndex;not null"`
	GameID     uint64         `gorm:"index;not null"`
	Type       string         `gorm:"size:32;not null"`
	Actor      string         `gorm:"size:64;index"`
	Amount     uint64         `gorm:"not null;default:0"`
	Payload    datatypes.JSON `gorm:"type:jsonb;not null"`
	OccurredAt int64          `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"not null"`
}
