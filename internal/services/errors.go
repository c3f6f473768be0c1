package services

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrGameNotFound    = errors.New("game does not exist")
	ErrGameClosed      = errors.New("game has ended")
	ErrZeroStake       = errors.New("stake amount must be positive")
	ErrPoolOverflow    = errors.New("stake would overflow the pool")
	ErrGameNotEnded    = errors.New("game has not ended")
	ErrNoStakeFound    = errors.New("no votes found")
	ErrAlreadyClaimed  = errors.New("reward already claimed")
	ErrNotAWinner      = errors.New("not a winner")

	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrJournalCorrupt    = errors.New("journal is inconsistent with ledger")
	ErrLedgerHalted      = errors.New("ledger is halted until the journal recovers")
)

// ErrorCode maps a ledger failure to the stable code reported to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return "INVALID_ARGUMENT"
	case errors.Is(err, ErrGameNotFound):
		return "GAME_NOT_FOUND"
	case errors.Is(err, ErrGameClosed):
		return "GAME_CLOSED"
	case errors.Is(err, ErrZeroStake):
		return "ZERO_STAKE"
	case errors.Is(err, ErrPoolOverflow):
		return "POOL_OVERFLOW"
	case errors.Is(err, ErrGameNotEnded):
		return "GAME_NOT_ENDED"
	case errors.Is(err, ErrNoStakeFound):
		return "NO_STAKE_FOUND"
	case errors.Is(err, ErrAlreadyClaimed):
		return "ALREADY_CLAIMED"
	case errors.Is(err, ErrNotAWinner):
		return "NOT_A_WINNER"
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrLedgerHalted):
		return "LEDGER_HALTED"
	default:
		return "INTERNAL"
	}
}
