package models

import (
	"fmt"
	"strings"
)

type Side uint8

const (
	SideNone Side = iota
	SideA
	SideB
)

func SideFromBool(isOptionA bool) Side {
	if isOptionA {
		return SideA
	}
	return SideB
}

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	default:
		return "none"
	}
}

func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "A":
		*s = SideA
	case "B":
		*s = SideB
	case "NONE", "":
		*s = SideNone
	default:
		return fmt.Errorf("invalid side: %q", text)
	}
	return nil
}

type GameSort string

const (
	GameSortRecent GameSort = "recent"
	GameSortPool   GameSort = "pool"
)

type CreateGameRequest struct {
	Question          string `json:"question" binding:"required,max=280"`
	OptionA           string `json:"option_a" binding:"required,max=140"`
	OptionB           string `json:"option_b" binding:"required,max=140"`
	DurationInMinutes int64  `json:"duration_in_minutes" binding:"required,min=1"`
}

type VoteRequest struct {
	IsOptionA *bool  `json:"is_option_a" binding:"required"`
	Amount    uint64 `json:"amount"`
}

type GameURI struct {
	GameID uint64 `uri:"id"`
}

type VoteURI struct {
	GameID uint64 `uri:"id"`
	Voter  string `uri:"voter" binding:"required,eth_addr"`
}

type ListGamesQuery struct {
	Sort   GameSort `form:"sort" binding:"omitempty,oneof=recent pool"`
	Offset int      `form:"offset" binding:"omitempty,min=0"`
	Limit  int      `form:"limit" binding:"omitempty,min=1,max=100"`
}

type EventsQuery struct {
	After uint64 `form:"after"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// RewardQuote is a dry run of a claim: what the caller would receive now.
type RewardQuote struct {
	GameID   uint64 `json:"game_id"`
	Eligible bool   `json:"eligible"`
	Reward   uint64 `json:"reward"`
	Reason   string `json:"reason,omitempty"`
}
