package models

// Game is one wagering round. Everything except the two pools is fixed at
// creation; the pools only grow while the game is open.
type Game struct {
	ID          uint64 `json:"id"`
	Question    string `json:"question"`
	OptionA     string `json:"option_a"`
	OptionB     string `json:"option_b"`
	CreatedAt   int64  `json:"created_at"`
	EndTime     int64  `json:"end_time"`
	Creator     string `json:"creator"`
	OptionAPool uint64 `json:"option_a_amount"`
	OptionBPool uint64 `json:"option_b_amount"`
}

// Exists reports whether the slot holds a created game. An empty question
// is the "does not exist" sentinel.
func (g *Game) Exists() bool {
	return g != nil && g.Question != ""
}

func (g *Game) TotalPool() uint64 {
	return g.OptionAPool + g.OptionBPool
}

// IsActive is derived from the clock; it is never stored.
func (g *Game) IsActive(now int64) bool {
	return now < g.EndTime
}

func (g *Game) PoolOf(side Side) uint64 {
	switch side {
	case SideA:
		return g.OptionAPool
	case SideB:
		return g.OptionBPool
	default:
		return 0
	}
}

// Winner compares the frozen pools. Ties have no winner.
func (g *Game) Winner() Side {
	switch {
	case g.OptionAPool > g.OptionBPool:
		return SideA
	case g.OptionBPool > g.OptionAPool:
		return SideB
	default:
		return SideNone
	}
}

func (g *Game) Snapshot(now int64) GameSnapshot {
	return GameSnapshot{
		ID:            g.ID,
		Question:      g.Question,
		OptionA:       g.OptionA,
		OptionB:       g.OptionB,
		CreatedAt:     g.CreatedAt,
		EndTime:       g.EndTime,
		Creator:       g.Creator,
		IsActive:      g.IsActive(now),
		OptionAAmount: g.OptionAPool,
		OptionBAmount: g.OptionBPool,
		TotalAmount:   g.TotalPool(),
	}
}

// GameSnapshot is the read model returned to callers, with the derived
// fields filled in at read time.
type GameSnapshot struct {
	ID            uint64 `json:"id"`
	Question      string `json:"question"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	CreatedAt     int64  `json:"created_at"`
	EndTime       int64  `json:"end_time"`
	Creator       string `json:"creator"`
	IsActive      bool   `json:"is_active"`
	OptionAAmount uint64 `json:"option_a_amount"`
	OptionBAmount uint64 `json:"option_b_amount"`
	TotalAmount   uint64 `json:"total_amount"`
}

// Vote is the stake record of one participant in one game.
type Vote struct {
	LastSide      Side   `json:"last_side"`
	OptionAAmount uint64 `json:"option_a_amount"`
	OptionBAmount uint64 `json:"option_b_amount"`
	Claimed       bool   `json:"claimed"`
}

func (v Vote) HasStake() bool {
	return v.OptionAAmount > 0 || v.OptionBAmount > 0
}

func (v Vote) IsOptionA() bool {
	return v.LastSide == SideA
}

func (v Vote) AmountOn(side Side) uint64 {
	switch side {
	case SideA:
		return v.OptionAAmount
	case SideB:
		return v.OptionBAmount
	default:
		return 0
	}
}
