package models

import (
	"encoding/json"
	"fmt"
)

type EventType string

const (
	EventGameCreated   EventType = "GameCreated"
	EventVoteCast      EventType = "VoteCast"
	EventRewardClaimed EventType = "RewardClaimed"
)

type GameCreated struct {
	GameID    uint64 `json:"game_id"`
	Question  string `json:"question"`
	OptionA   string `json:"option_a"`
	OptionB   string `json:"option_b"`
	EndTime   int64  `json:"end_time"`
	CreatedAt int64  `json:"created_at"`
	Creator   string `json:"creator"`
}

type VoteCast struct {
	GameID    uint64 `json:"game_id"`
	Voter     string `json:"voter"`
	IsOptionA bool   `json:"is_option_a"`
	Amount    uint64 `json:"amount"`
}

type RewardClaimed struct {
	GameID uint64 `json:"game_id"`
	Winner string `json:"winner"`
	Amount uint64 `json:"amount"`
}

// Event is one entry of the append-only ledger log. Exactly one of the
// payload pointers is set, matching Type.
type Event struct {
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`

	GameCreated   *GameCreated   `json:"game_created,omitempty"`
	VoteCast      *VoteCast      `json:"vote_cast,omitempty"`
	RewardClaimed *RewardClaimed `json:"reward_claimed,omitempty"`
}

func (e *Event) GameID() uint64 {
	switch {
	case e.GameCreated != nil:
		return e.GameCreated.GameID
	case e.VoteCast != nil:
		return e.VoteCast.GameID
	case e.RewardClaimed != nil:
		return e.RewardClaimed.GameID
	default:
		return 0
	}
}

func (e *Event) Validate() error {
	var ok bool
	switch e.Type {
	case EventGameCreated:
		ok = e.GameCreated != nil && e.VoteCast == nil && e.RewardClaimed == nil
	case EventVoteCast:
		ok = e.VoteCast != nil && e.GameCreated == nil && e.RewardClaimed == nil
	case EventRewardClaimed:
		ok = e.RewardClaimed != nil && e.GameCreated == nil && e.VoteCast == nil
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if !ok {
		return fmt.Errorf("event %d: payload does not match type %s", e.Seq, e.Type)
	}
	return nil
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func UnmarshalEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}
