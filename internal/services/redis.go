package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"balance-game-backend/internal/config"
	"balance-game-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisService keeps wallets, transaction history and rate-limit counters
// in Redis. It is the production Bank.
type RedisService struct {
	client          *redis.Client
	startingBalance uint64
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{
		client:          client,
		startingBalance: cfg.StartingBalance,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) Client() *redis.Client {
	return s.client
}

// moveBalanceScript applies a signed balance delta and bumps one statistic
// field, opening the wallet with the starting balance if needed.
var moveBalanceScript = redis.NewScript(`
	local key = KEYS[1]
	local delta = tonumber(ARGV[1])
	local initial = ARGV[2]
	local stat = ARGV[3]
	local statDelta = ARGV[4]

	redis.call("HSETNX", key, "balance", initial)
	redis.call("HSETNX", key, "total_staked", 0)
	redis.call("HSETNX", key, "total_won", 0)

	local balance = tonumber(redis.call("HGET", key, "balance"))
	if balance + delta < 0 then
		return redis.error_reply("insufficient balance")
	end

	local after = redis.call("HINCRBY", key, "balance", ARGV[1])
	if stat ~= "" then
		redis.call("HINCRBY", key, stat, statDelta)
	end

	return after
`)

func (s *RedisService) move(ctx context.Context, address string, delta int64, ref TransferRef, amount uint64) error {
	stat, statDelta := "", int64(0)
	switch ref.Type {
	case models.TransactionTypeStake:
		stat, statDelta = "total_staked", int64(amount)
	case models.TransactionTypeRefund:
		stat, statDelta = "total_staked", -int64(amount)
	case models.TransactionTypeReward:
		stat, statDelta = "total_won", int64(amount)
	case models.TransactionTypeReversal:
		stat, statDelta = "total_won", -int64(amount)
	}

	key := fmt.Sprintf(KeyWallet, address)
	after, err := moveBalanceScript.Run(ctx, s.client, []string{key},
		delta, s.startingBalance, stat, statDelta).Int64()
	if err != nil {
		if strings.Contains(err.Error(), "insufficient balance") {
			return fmt.Errorf("%w: %s cannot cover %d", ErrInsufficientFunds, address, amount)
		}
		return fmt.Errorf("failed to move balance: %w", err)
	}

	tx := &models.Transaction{
		ID:           models.GenerateTransactionID(),
		Address:      address,
		Type:         ref.Type,
		Amount:       amount,
		BalanceAfter: uint64(after),
		GameID:       ref.GameID,
		Description:  models.TransactionDescription(ref.Type, ref.GameID, amount),
		CreatedAt:    time.Now(),
	}
	if err := s.SaveTransaction(ctx, tx); err != nil {
		log.Printf("[Wallet] failed to record transaction %s for %s: %v", tx.ID, address, err)
	}
	return nil
}

func (s *RedisService) Debit(ctx context.Context, address string, amount uint64, ref TransferRef) error {
	if amount > MaxRedisAmount {
		return fmt.Errorf("%w: amount %d exceeds wallet precision", ErrInvalidArgument, amount)
	}
	return s.move(ctx, address, -int64(amount), ref, amount)
}

func (s *RedisService) Credit(ctx context.Context, address string, amount uint64, ref TransferRef) error {
	if amount > MaxRedisAmount {
		return fmt.Errorf("%w: amount %d exceeds wallet precision", ErrInvalidArgument, amount)
	}
	return s.move(ctx, address, int64(amount), ref, amount)
}

func (s *RedisService) GetWallet(ctx context.Context, address string) (*models.Wallet, error) {
	key := fmt.Sprintf(KeyWallet, address)

	pipe := s.client.TxPipeline()
	pipe.HSetNX(ctx, key, "balance", s.startingBalance)
	pipe.HSetNX(ctx, key, "total_staked", 0)
	pipe.HSetNX(ctx, key, "total_won", 0)
	getCmd := pipe.HGetAll(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	fields := getCmd.Val()
	wallet := &models.Wallet{Address: address}
	var err error
	if wallet.Balance, err = strconv.ParseUint(fields["balance"], 10, 64); err != nil {
		return nil, fmt.Errorf("corrupt wallet balance for %s: %w", address, err)
	}
	if wallet.TotalStaked, err = strconv.ParseUint(fields["total_staked"], 10, 64); err != nil {
		return nil, fmt.Errorf("corrupt wallet stake total for %s: %w", address, err)
	}
	if wallet.TotalWon, err = strconv.ParseUint(fields["total_won"], 10, 64); err != nil {
		return nil, fmt.Errorf("corrupt wallet win total for %s: %w", address, err)
	}
	return wallet, nil
}

func (s *RedisService) DeleteWallet(ctx context.Context, address string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyWallet, address)).Err()
}

func (s *RedisService) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	txKey := fmt.Sprintf(KeyTransaction, tx.ID)

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	if err := s.client.Set(ctx, txKey, data, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, tx.Address)
	if err := s.client.ZAdd(ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt.UnixNano()),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to user transactions: %w", err)
	}

	// Keep only the most recent history
	if err := s.client.ZRemRangeByRank(ctx, userTxKey, 0, -(MaxTransactionHistory + 1)).Err(); err != nil {
		log.Printf("[Wallet] failed to trim transaction history for %s: %v", tx.Address, err)
	}

	return nil
}

func (s *RedisService) GetTransactions(ctx context.Context, address string, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > MaxTransactionHistory {
		limit = 50
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, address)
	txIDs, err := s.client.ZRevRange(ctx, userTxKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %w", err)
	}
	if len(txIDs) == 0 {
		return []*models.Transaction{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(txIDs))
	for i, txID := range txIDs {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyTransaction, txID))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	transactions := make([]*models.Transaction, 0, len(cmds))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}
	return transactions, nil
}

func (s *RedisService) DeleteTransactions(ctx context.Context, address string) error {
	userTxKey := fmt.Sprintf(KeyUserTransactions, address)
	txIDs, err := s.client.ZRange(ctx, userTxKey, 0, -1).Result()
	if err != nil {
		return err
	}
	keys := []string{userTxKey}
	for _, id := range txIDs {
		keys = append(keys, fmt.Sprintf(KeyTransaction, id))
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisService) CheckRateLimit(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, subject, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, subject, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, subject, action)).Err()
}

// Journal returns a ledger journal stored in the Redis stream at key.
func (s *RedisService) Journal(key string) *RedisJournal {
	return &RedisJournal{client: s.client, key: key}
}

// RedisJournal stores ledger events in a Redis stream. Entry IDs are
// "<seq>-0", so the stream order is the ledger order and a duplicate
// append is refused by Redis itself.
type RedisJournal struct {
	client *redis.Client
	key    string
}

func (j *RedisJournal) Append(ctx context.Context, ev models.Event) error {
	data, err := ev.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = j.client.XAdd(ctx, &redis.XAddArgs{
		Stream: j.key,
		ID:     fmt.Sprintf("%d-0", ev.Seq),
		Values: map[string]interface{}{
			"type":  string(ev.Type),
			"event": data,
		},
	}).Err()
	if err == nil {
		return nil
	}

	// The write may have landed even though the reply was lost.
	last, lerr := j.lastSeq(context.WithoutCancel(ctx))
	if lerr == nil && last == ev.Seq {
		return nil
	}
	return fmt.Errorf("failed to append event %d: %w", ev.Seq, err)
}

func (j *RedisJournal) lastSeq(ctx context.Context) (uint64, error) {
	entries, err := j.client.XRevRangeN(ctx, j.key, "+", "-", 1).Result()
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	return seqFromStreamID(entries[0].ID)
}

func (j *RedisJournal) Load(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	start := "-"
	for {
		entries, err := j.client.XRangeN(ctx, j.key, start, "+", journalPageSize).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read journal: %w", err)
		}
		for _, entry := range entries {
			raw, ok := entry.Values["event"].(string)
			if !ok {
				return nil, fmt.Errorf("%w: entry %s has no event", ErrJournalCorrupt, entry.ID)
			}
			ev, err := models.UnmarshalEvent([]byte(raw))
			if err != nil {
				return nil, fmt.Errorf("%w: entry %s: %v", ErrJournalCorrupt, entry.ID, err)
			}
			events = append(events, ev)
		}
		if len(entries) < journalPageSize {
			return events, nil
		}
		start = "(" + entries[len(entries)-1].ID
	}
}

func (j *RedisJournal) Delete(ctx context.Context) error {
	return j.client.Del(ctx, j.key).Err()
}

func seqFromStreamID(id string) (uint64, error) {
	ms, _, _ := strings.Cut(id, "-")
	return strconv.ParseUint(ms, 10, 64)
}
