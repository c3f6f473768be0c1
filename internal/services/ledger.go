package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"balance-game-backend/internal/models"
)

// maxDurationMinutes keeps createdAt + duration*60 far from int64 overflow.
const maxDurationMinutes = (1 << 62) / 60

const (
	journalRetries = 3
	journalBackoff = 50 * time.Millisecond
)

type voteKey struct {
	gameID  uint64
	address string
}

// Ledger is the settlement engine. Every operation, reads included, runs
// under one mutex, so operations apply in a single total order and reads
// always observe every acknowledged write.
type Ledger struct {
	mu sync.Mutex

	games  []*models.Game
	votes  map[voteKey]*models.Vote
	events []models.Event

	// pending is a paid claim that could not be journaled. While it is set
	// the ledger refuses every change.
	pending *models.Event

	bank        Bank
	journal     Journal
	broadcaster Broadcaster
	now         func() time.Time
	maxDuration int64
	poolLimit   uint64
}

type LedgerOption func(*Ledger)

func WithJournal(j Journal) LedgerOption {
	return func(l *Ledger) { l.journal = j }
}

func WithBroadcaster(b Broadcaster) LedgerOption {
	return func(l *Ledger) { l.broadcaster = b }
}

func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithMaxDuration caps the duration of new games. Zero means no cap.
func WithMaxDuration(minutes int64) LedgerOption {
	return func(l *Ledger) { l.maxDuration = minutes }
}

// WithPoolLimit caps the total pool of any game, for banks that cannot move
// amounts beyond a fixed precision. Zero means the full uint64 range.
func WithPoolLimit(limit uint64) LedgerOption {
	return func(l *Ledger) { l.poolLimit = limit }
}

func NewLedger(bank Bank, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		votes: make(map[voteKey]*models.Vote),
		bank:  bank,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetBroadcaster attaches a broadcaster after construction, for listeners
// that themselves need the ledger to be built first.
func (l *Ledger) SetBroadcaster(b Broadcaster) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.broadcaster = b
}

// Restore rebuilds the ledger from its journal. It must run before the
// ledger serves any operation.
func (l *Ledger) Restore(ctx context.Context) error {
	if l.journal == nil {
		return nil
	}
	events, err := l.journal.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load journal: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) > 0 {
		return fmt.Errorf("restore into a ledger that already holds %d events", len(l.events))
	}
	for _, ev := range events {
		if err := l.apply(ev); err != nil {
			return err
		}
	}
	log.Printf("[Ledger] restored %d events, %d games", len(events), len(l.games))
	return nil
}

func (l *Ledger) unixNow() int64 {
	return l.now().Unix()
}

func (l *Ledger) game(gameID uint64) (*models.Game, error) {
	if gameID >= uint64(len(l.games)) || !l.games[gameID].Exists() {
		return nil, fmt.Errorf("%w: %d", ErrGameNotFound, gameID)
	}
	return l.games[gameID], nil
}

func (l *Ledger) CreateGame(ctx context.Context, creator, question, optionA, optionB string, durationInMinutes int64) (uint64, error) {
	creator = models.NormalizeAddress(creator)
	question = strings.TrimSpace(question)
	optionA = strings.TrimSpace(optionA)
	optionB = strings.TrimSpace(optionB)

	switch {
	case creator == "":
		return 0, fmt.Errorf("%w: creator is required", ErrInvalidArgument)
	case question == "" || optionA == "" || optionB == "":
		return 0, fmt.Errorf("%w: question and both options are required", ErrInvalidArgument)
	case durationInMinutes <= 0:
		return 0, fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidArgument, durationInMinutes)
	case l.maxDuration > 0 && durationInMinutes > l.maxDuration:
		return 0, fmt.Errorf("%w: duration %d exceeds maximum of %d minutes",
			ErrInvalidArgument, durationInMinutes, l.maxDuration)
	case durationInMinutes > maxDurationMinutes:
		return 0, fmt.Errorf("%w: duration %d is out of range", ErrInvalidArgument, durationInMinutes)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.resume(ctx); err != nil {
		return 0, err
	}

	createdAt := l.unixNow()
	gameID := uint64(len(l.games))
	ev := models.Event{
		Type:      models.EventGameCreated,
		Timestamp: createdAt,
		GameCreated: &models.GameCreated{
			GameID:    gameID,
			Question:  question,
			OptionA:   optionA,
			OptionB:   optionB,
			EndTime:   createdAt + durationInMinutes*60,
			CreatedAt: createdAt,
			Creator:   creator,
		},
	}
	if err := l.commit(ctx, ev); err != nil {
		return 0, err
	}
	return gameID, nil
}

// PlaceStake debits amount from participant and adds it to one side of the
// game. Resubmitting creates another stake.
func (l *Ledger) PlaceStake(ctx context.Context, gameID uint64, side models.Side, amount uint64, participant string) error {
	participant = models.NormalizeAddress(participant)
	if participant == "" {
		return fmt.Errorf("%w: participant is required", ErrInvalidArgument)
	}
	if !side.Valid() {
		return fmt.Errorf("%w: side must be A or B", ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.resume(ctx); err != nil {
		return err
	}

	game, err := l.game(gameID)
	if err != nil {
		return err
	}
	now := l.unixNow()
	if !game.IsActive(now) {
		return fmt.Errorf("%w: game %d closed at %d", ErrGameClosed, gameID, game.EndTime)
	}
	if amount == 0 {
		return ErrZeroStake
	}
	if _, err := addPool(game.PoolOf(side), game.TotalPool(), amount); err != nil {
		return err
	}
	if l.poolLimit > 0 && game.TotalPool()+amount > l.poolLimit {
		return fmt.Errorf("%w: game %d pool is capped at %d", ErrPoolOverflow, gameID, l.poolLimit)
	}

	ref := TransferRef{Type: models.TransactionTypeStake, GameID: gameID}
	if err := l.bank.Debit(ctx, participant, amount, ref); err != nil {
		return fmt.Errorf("failed to fund stake: %w", err)
	}

	ev := models.Event{
		Type:      models.EventVoteCast,
		Timestamp: now,
		VoteCast: &models.VoteCast{
			GameID:    gameID,
			Voter:     participant,
			IsOptionA: side == models.SideA,
			Amount:    amount,
		},
	}
	if err := l.commit(ctx, ev); err != nil {
		refund := TransferRef{Type: models.TransactionTypeRefund, GameID: gameID}
		if rerr := l.bank.Credit(context.WithoutCancel(ctx), participant, amount, refund); rerr != nil {
			log.Printf("[Ledger] CRITICAL: stake of %d by %s on game %d was debited but neither journaled nor refunded: %v",
				amount, participant, gameID, rerr)
			return errors.Join(err, rerr)
		}
		return err
	}
	return nil
}

// WinnerSide compares the pools of a game. It is only meaningful once the
// game has closed; before that it reflects the current leader.
func (l *Ledger) WinnerSide(gameID uint64) (models.Side, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	game, err := l.game(gameID)
	if err != nil {
		return models.SideNone, err
	}
	return game.Winner(), nil
}

// ClaimReward pays a winning participant their share of the total pool and
// marks the stake record claimed. The two happen together or not at all.
func (l *Ledger) ClaimReward(ctx context.Context, gameID uint64, participant string) (uint64, error) {
	participant = models.NormalizeAddress(participant)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.resume(ctx); err != nil {
		return 0, err
	}

	reward, err := l.owed(gameID, participant)
	if err != nil {
		return 0, err
	}

	if reward > 0 {
		ref := TransferRef{Type: models.TransactionTypeReward, GameID: gameID}
		if err := l.bank.Credit(ctx, participant, reward, ref); err != nil {
			return 0, fmt.Errorf("failed to pay reward: %w", err)
		}
	}

	ev := models.Event{
		Type:      models.EventRewardClaimed,
		Timestamp: l.unixNow(),
		RewardClaimed: &models.RewardClaimed{
			GameID: gameID,
			Winner: participant,
			Amount: reward,
		},
	}
	if err := l.commit(ctx, ev); err != nil {
		if reward == 0 {
			return 0, err
		}
		reversal := TransferRef{Type: models.TransactionTypeReversal, GameID: gameID}
		if rerr := l.bank.Debit(context.WithoutCancel(ctx), participant, reward, reversal); rerr != nil {
			// The payout stands, so the claim must reach the journal.
			log.Printf("[Ledger] reward of %d to %s on game %d paid but not journaled: %v (reversal: %v)",
				reward, participant, gameID, err, rerr)
			l.hold(ctx, ev)
			return reward, nil
		}
		return 0, err
	}
	return reward, nil
}

// QuoteReward runs the claim checks without paying anything.
func (l *Ledger) QuoteReward(gameID uint64, participant string) (uint64, error) {
	participant = models.NormalizeAddress(participant)

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owed(gameID, participant)
}

func (l *Ledger) owed(gameID uint64, participant string) (uint64, error) {
	game, err := l.game(gameID)
	if err != nil {
		return 0, err
	}
	if game.IsActive(l.unixNow()) {
		return 0, fmt.Errorf("%w: game %d ends at %d", ErrGameNotEnded, gameID, game.EndTime)
	}
	return settle(game, l.votes[voteKey{gameID, participant}])
}

func (l *Ledger) GetGame(gameID uint64) (models.GameSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	game, err := l.game(gameID)
	if err != nil {
		return models.GameSnapshot{}, err
	}
	return game.Snapshot(l.unixNow()), nil
}

func (l *Ledger) GamesCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.games))
}

// GetVote returns the stake record, or a zero record if there is none.
func (l *Ledger) GetVote(gameID uint64, participant string) models.Vote {
	participant = models.NormalizeAddress(participant)

	l.mu.Lock()
	defer l.mu.Unlock()
	if vote, ok := l.votes[voteKey{gameID, participant}]; ok {
		return *vote
	}
	return models.Vote{}
}

func (l *Ledger) ListGames(sortBy models.GameSort, offset, limit int) []models.GameSnapshot {
	l.mu.Lock()
	now := l.unixNow()
	all := make([]models.GameSnapshot, 0, len(l.games))
	for _, game := range l.games {
		all = append(all, game.Snapshot(now))
	}
	l.mu.Unlock()

	switch sortBy {
	case models.GameSortPool:
		sort.SliceStable(all, func(i, j int) bool {
			return all[i].TotalAmount > all[j].TotalAmount
		})
	default:
		sort.SliceStable(all, func(i, j int) bool {
			return all[i].ID > all[j].ID
		})
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []models.GameSnapshot{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

// Events returns up to limit events with a sequence number above after.
func (l *Ledger) Events(after uint64, limit int) []models.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Sequence numbers start at 1 and are dense, so seq n sits at index n-1.
	if after >= uint64(len(l.events)) {
		return []models.Event{}
	}
	end := uint64(len(l.events))
	if limit > 0 && after+uint64(limit) < end {
		end = after + uint64(limit)
	}
	out := make([]models.Event, end-after)
	copy(out, l.events[after:end])
	return out
}

func (l *Ledger) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.events))
}

// Halted reports whether a paid claim is still waiting for the journal.
func (l *Ledger) Halted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending != nil
}

// hold parks ev as the next event and retries the journal a few times.
// If the journal stays down the ledger remains halted, and the next
// operation retries before doing anything else.
func (l *Ledger) hold(ctx context.Context, ev models.Event) {
	ev.Seq = uint64(len(l.events)) + 1
	l.pending = &ev

	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= journalRetries; attempt++ {
		if err = l.resume(ctx); err == nil {
			return
		}
		if attempt < journalRetries {
			time.Sleep(time.Duration(attempt) * journalBackoff)
		}
	}
	log.Printf("[Ledger] CRITICAL: halted with event %d pending: %v", ev.Seq, err)
}

// resume journals and applies the pending event, if any. Appending the same
// sequence number twice is safe: the journal reports it as already stored.
func (l *Ledger) resume(ctx context.Context) error {
	if l.pending == nil {
		return nil
	}
	ev := *l.pending
	if l.journal != nil {
		if err := l.journal.Append(ctx, ev); err != nil {
			return fmt.Errorf("%w: event %d not journaled: %v", ErrLedgerHalted, ev.Seq, err)
		}
	}
	l.pending = nil
	if err := l.apply(ev); err != nil {
		return err
	}
	if l.broadcaster != nil {
		l.broadcaster.BroadcastEvent(ev)
	}
	log.Printf("[Ledger] pending event %d journaled, resuming", ev.Seq)
	return nil
}

// commit journals ev, applies it and hands it to the broadcaster. Callers
// hold l.mu and have already validated ev against the current state.
func (l *Ledger) commit(ctx context.Context, ev models.Event) error {
	ev.Seq = uint64(len(l.events)) + 1
	if l.journal != nil {
		if err := l.journal.Append(ctx, ev); err != nil {
			return fmt.Errorf("failed to journal %s: %w", ev.Type, err)
		}
	}
	if err := l.apply(ev); err != nil {
		return err
	}
	if l.broadcaster != nil {
		l.broadcaster.BroadcastEvent(ev)
	}
	return nil
}

// apply folds one event into the state. It performs no time checks so that
// historical events replay exactly.
func (l *Ledger) apply(ev models.Event) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrJournalCorrupt, err)
	}
	if ev.Seq != uint64(len(l.events))+1 {
		return fmt.Errorf("%w: expected seq %d, got %d", ErrJournalCorrupt, len(l.events)+1, ev.Seq)
	}

	switch ev.Type {
	case models.EventGameCreated:
		p := ev.GameCreated
		if p.GameID != uint64(len(l.games)) {
			return fmt.Errorf("%w: expected game id %d, got %d", ErrJournalCorrupt, len(l.games), p.GameID)
		}
		l.games = append(l.games, &models.Game{
			ID:        p.GameID,
			Question:  p.Question,
			OptionA:   p.OptionA,
			OptionB:   p.OptionB,
			CreatedAt: p.CreatedAt,
			EndTime:   p.EndTime,
			Creator:   p.Creator,
		})

	case models.EventVoteCast:
		p := ev.VoteCast
		game, err := l.game(p.GameID)
		if err != nil {
			return fmt.Errorf("%w: vote on %v", ErrJournalCorrupt, err)
		}
		side := models.SideFromBool(p.IsOptionA)
		pool, err := addPool(game.PoolOf(side), game.TotalPool(), p.Amount)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrJournalCorrupt, err)
		}
		key := voteKey{p.GameID, p.Voter}
		vote, ok := l.votes[key]
		if !ok {
			vote = &models.Vote{}
			l.votes[key] = vote
		}
		if side == models.SideA {
			game.OptionAPool = pool
			vote.OptionAAmount += p.Amount
		} else {
			game.OptionBPool = pool
			vote.OptionBAmount += p.Amount
		}
		vote.LastSide = side

	case models.EventRewardClaimed:
		p := ev.RewardClaimed
		if _, err := l.game(p.GameID); err != nil {
			return fmt.Errorf("%w: claim on %v", ErrJournalCorrupt, err)
		}
		vote, ok := l.votes[voteKey{p.GameID, p.Winner}]
		if !ok || vote.Claimed {
			return fmt.Errorf("%w: claim by %s on game %d without an open stake record",
				ErrJournalCorrupt, p.Winner, p.GameID)
		}
		vote.Claimed = true
	}

	l.events = append(l.events, ev)
	return nil
}
