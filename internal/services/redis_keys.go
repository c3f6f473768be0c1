package services

import "time"

const (
	KeyWallet           = "wallet:%s"
	KeyTransaction      = "transaction:%s"
	KeyUserTransactions = "user:%s:transactions"
	KeyRateLimit        = "ratelimit:%s:%s"
	KeyLedgerEvents     = "ledger:events"

	TTLTransaction = 30 * 24 * time.Hour // 30 days

	MaxTransactionHistory = 100
	journalPageSize       = 500

	// Wallet arithmetic runs in Redis Lua, where numbers are doubles.
	// Ledgers backed by this bank cap pools here with WithPoolLimit, so any
	// winning share can still be credited.
	MaxRedisAmount = 1 << 53
)
