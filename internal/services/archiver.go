package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"balance-game-backend/internal/db"
	"balance-game-backend/internal/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const archiveBatchSize = 500

// Archiver copies committed ledger events into Postgres for auditing. The
// ledger stays authoritative; the archive may lag by one interval.
type Archiver struct {
	db        *gorm.DB
	ledger    *Ledger
	interval  time.Duration
	scheduler gocron.Scheduler
}

func NewArchiver(conn *gorm.DB, ledger *Ledger, interval time.Duration) *Archiver {
	return &Archiver{db: conn, ledger: ledger, interval: interval}
}

func (a *Archiver) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(a.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), a.interval)
			defer cancel()

			n, err := a.RunOnce(ctx)
			if err != nil {
				log.Printf("[Archiver] run failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("[Archiver] archived %d events", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sched.Shutdown()
		return fmt.Errorf("failed to schedule archive job: %w", err)
	}

	sched.Start()
	a.scheduler = sched
	return nil
}

func (a *Archiver) Stop() {
	if a.scheduler == nil {
		return
	}
	if err := a.scheduler.Shutdown(); err != nil {
		log.Printf("[Archiver] shutdown: %v", err)
	}
}

// RunOnce archives every event newer than the highest archived sequence
// number and reports how many rows were written.
func (a *Archiver) RunOnce(ctx context.Context) (int, error) {
	after, err := a.archivedSeq(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for {
		events := a.ledger.Events(after, archiveBatchSize)
		if len(events) == 0 {
			return total, nil
		}

		rows := make([]db.LedgerEvent, 0, len(events))
		for _, ev := range events {
			row, err := archiveRow(ev)
			if err != nil {
				return total, err
			}
			rows = append(rows, row)
		}

		res := a.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "seq"}}, DoNothing: true}).
			Create(&rows)
		if res.Error != nil {
			return total, fmt.Errorf("failed to archive events after %d: %w", after, res.Error)
		}

		total += int(res.RowsAffected)
		after = events[len(events)-1].Seq
	}
}

func (a *Archiver) archivedSeq(ctx context.Context) (uint64, error) {
	var last db.LedgerEvent
	err := a.db.WithContext(ctx).Order("seq DESC").Take(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read archive position: %w", err)
	}
	return last.Seq, nil
}

func archiveRow(ev models.Event) (db.LedgerEvent, error) {
	payload, err := ev.Marshal()
	if err != nil {
		return db.LedgerEvent{}, fmt.Errorf("failed to marshal event %d: %w", ev.Seq, err)
	}

	row := db.LedgerEvent{
		Seq:        ev.Seq,
		GameID:     ev.GameID(),
		Type:       string(ev.Type),
		Payload:    datatypes.JSON(payload),
		OccurredAt: ev.Timestamp,
		CreatedAt:  time.Now(),
	}
	switch {
	case ev.GameCreated != nil:
		row.Actor = ev.GameCreated.Creator
	case ev.VoteCast != nil:
		row.Actor = ev.VoteCast.Voter
		row.Amount = ev.VoteCast.Amount
	case ev.RewardClaimed != nil:
		row.Actor = ev.RewardClaimed.Winner
		row.Amount = ev.RewardClaimed.Amount
	}
	return row, nil
}
