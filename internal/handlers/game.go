package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"balance-game-backend/internal/models"
	"balance-game-backend/internal/services"
)

var createGameMessages = bindMessages{
	"Question": {
		"required": "Question is required",
		"max":      "Question must be 280 characters or fewer",
	},
	"OptionA": {
		"required": "Both options are required",
		"max":      "Options must be 140 characters or fewer",
	},
	"OptionB": {
		"required": "Both options are required",
		"max":      "Options must be 140 characters or fewer",
	},
	"DurationInMinutes": {
		"required": "Duration must be at least 1 minute",
		"min":      "Duration must be at least 1 minute",
	},
}

var voteMessages = bindMessages{
	"IsOptionA": {"required": "is_option_a is required"},
}

var listMessages = bindMessages{
	"Sort":   {"oneof": "sort must be recent or pool"},
	"Offset": {"min": "offset must not be negative"},
	"Limit":  {"min": "limit must be between 1 and 100", "max": "limit must be between 1 and 100"},
}

var voterMessages = bindMessages{
	"Voter": {"eth_addr": "voter must be a 0x-prefixed 20-byte hex address"},
}

var eventsMessages = bindMessages{
	"Limit": {"min": "limit must be between 1 and 500", "max": "limit must be between 1 and 500"},
}

type GameHandler struct {
	ledger *services.Ledger
}

func NewGameHandler(ledger *services.Ledger) *GameHandler {
	return &GameHandler{ledger: ledger}
}

func (h *GameHandler) CreateGame(c *gin.Context) {
	address := c.GetString("address")

	var req models.CreateGameRequest
	if !bindJSON(c, &req, createGameMessages, "Invalid request") {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_ARGUMENT"})
		return
	}

	gameID, err := h.ledger.CreateGame(c.Request.Context(), address, req.Question, req.OptionA, req.OptionB, req.DurationInMinutes)
	if err != nil {
		respondError(c, err)
		return
	}

	game, err := h.ledger.GetGame(gameID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"game_id": gameID,
		"game":    game,
	})
}

func (h *GameHandler) ListGames(c *gin.Context) {
	var q models.ListGamesQuery
	if !bindQuery(c, &q, listMessages) {
		return
	}
	q.Defaults()

	games := h.ledger.ListGames(q.Sort, q.Offset, q.Limit)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"games":   games,
		"count":   len(games),
		"total":   h.ledger.GamesCount(),
	})
}

func (h *GameHandler) GamesCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   h.ledger.GamesCount(),
	})
}

func (h *GameHandler) GetGame(c *gin.Context) {
	var uri models.GameURI
	if !bindURI(c, &uri, nil) {
		return
	}

	game, err := h.ledger.GetGame(uri.GameID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game":    game,
	})
}

func (h *GameHandler) GetWinner(c *gin.Context) {
	var uri models.GameURI
	if !bindURI(c, &uri, nil) {
		return
	}

	game, err := h.ledger.GetGame(uri.GameID)
	if err != nil {
		respondError(c, err)
		return
	}
	side, err := h.ledger.WinnerSide(uri.GameID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"game_id":      uri.GameID,
		"winner":       side,
		"is_final":     !game.IsActive,
		"is_tie":       side == models.SideNone,
		"total_amount": game.TotalAmount,
	})
}

func (h *GameHandler) Vote(c *gin.Context) {
	address := c.GetString("address")

	var uri models.GameURI
	if !bindURI(c, &uri, nil) {
		return
	}
	var req models.VoteRequest
	if !bindJSON(c, &req, voteMessages, "Invalid request") {
		return
	}

	if err := h.ledger.PlaceStake(c.Request.Context(), uri.GameID, req.Side(), req.Amount, address); err != nil {
		respondError(c, err)
		return
	}

	game, err := h.ledger.GetGame(uri.GameID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game":    game,
		"vote":    h.ledger.GetVote(uri.GameID, address),
	})
}

func (h *GameHandler) Claim(c *gin.Context) {
	address := c.GetString("address")

	var uri models.GameURI
	if !bindURI(c, &uri, nil) {
		return
	}

	reward, err := h.ledger.ClaimReward(c.Request.Context(), uri.GameID, address)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game_id": uri.GameID,
		"reward":  reward,
	})
}

func (h *GameHandler) GetVote(c *gin.Context) {
	var uri models.VoteURI
	if !bindURI(c, &uri, voterMessages) {
		return
	}
	if _, err := h.ledger.GetGame(uri.GameID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game_id": uri.GameID,
		"voter":   models.NormalizeAddress(uri.Voter),
		"vote":    h.ledger.GetVote(uri.GameID, uri.Voter),
	})
}

// QuoteReward tells the caller what a claim would pay right now. Claim
// refusals are reported as an ineligible quote rather than an error.
func (h *GameHandler) QuoteReward(c *gin.Context) {
	address := c.GetString("address")

	var uri models.GameURI
	if !bindURI(c, &uri, nil) {
		return
	}

	quote := models.RewardQuote{GameID: uri.GameID}
	reward, err := h.ledger.QuoteReward(uri.GameID, address)
	switch {
	case err == nil:
		quote.Eligible = true
		quote.Reward = reward
	case errors.Is(err, services.ErrGameNotEnded),
		errors.Is(err, services.ErrNoStakeFound),
		errors.Is(err, services.ErrAlreadyClaimed),
		errors.Is(err, services.ErrNotAWinner):
		quote.Reason = services.ErrorCode(err)
	default:
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"quote":   quote,
	})
}

func (h *GameHandler) ListEvents(c *gin.Context) {
	var q models.EventsQuery
	if !bindQuery(c, &q, eventsMessages) {
		return
	}
	if q.Limit == 0 {
		q.Limit = 100
	}

	events := h.ledger.Events(q.After, q.Limit)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"events":   events,
		"count":    len(events),
		"last_seq": h.ledger.LastSeq(),
	})
}
