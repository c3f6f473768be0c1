package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"balance-game-backend/internal/middleware"
	"balance-game-backend/internal/services"
)

type RouterDeps struct {
	Ledger          *services.Ledger
	Bank            services.Bank
	JWT             *services.JWTService
	Hub             *WebSocketHub
	Limiter         middleware.RateLimiter
	VotesPerMinute  int
	ClaimsPerMinute int
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if deps.Ledger.Halted() {
			status, code = "halted", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":   status,
			"games":    deps.Ledger.GamesCount(),
			"last_seq": deps.Ledger.LastSeq(),
		})
	})

	gameHandler := NewGameHandler(deps.Ledger)
	walletHandler := NewWalletHandler(deps.Bank)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(deps.JWT))
	{
		protected.GET("/wallet", walletHandler.GetBalance)
		protected.GET("/wallet/transactions", walletHandler.GetTransactions)
		protected.GET("/events", gameHandler.ListEvents)

		if deps.Hub != nil {
			wsHandler := NewWebSocketHandler(deps.Hub, deps.Bank)
			protected.GET("/ws", wsHandler.HandleWebSocket)
		}

		games := protected.Group("/games")
		{
			games.POST("", gameHandler.CreateGame)
			games.GET("", gameHandler.ListGames)
			games.GET("/count", gameHandler.GamesCount)
			games.GET("/:id", gameHandler.GetGame)
			games.GET("/:id/winner", gameHandler.GetWinner)
			games.GET("/:id/quote", gameHandler.QuoteReward)
			games.GET("/:id/votes/:voter", gameHandler.GetVote)
			games.POST("/:id/vote", middleware.RateLimit(deps.Limiter, "vote", deps.VotesPerMinute), gameHandler.Vote)
			games.POST("/:id/claim", middleware.RateLimit(deps.Limiter, "claim", deps.ClaimsPerMinute), gameHandler.Claim)
		}
	}

	return router
}
