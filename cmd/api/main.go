package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"balance-game-backend/internal/config"
	"balance-game-backend/internal/db"
	"balance-game-backend/internal/handlers"
	"balance-game-backend/internal/services"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("Failed to read .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.JWTSecret == config.DevJWTSecret {
		log.Println("JWT_SECRET not set, using an insecure development secret")
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)
	hub := handlers.NewWebSocketHub()

	ledger := services.NewLedger(redisService,
		services.WithJournal(redisService.Journal(services.KeyLedgerEvents)),
		services.WithMaxDuration(cfg.MaxDurationMinutes),
		services.WithPoolLimit(services.MaxRedisAmount),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restoreCtx, cancel := context.WithTimeout(ctx, time.Minute)
	err = ledger.Restore(restoreCtx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to restore ledger: %v", err)
	}
	ledger.SetBroadcaster(hub)
	go hub.Run(ctx)

	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.Migrate(conn); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		archiver := services.NewArchiver(conn, ledger, cfg.ArchiveInterval)
		if err := archiver.Start(); err != nil {
			log.Fatalf("Failed to start archiver: %v", err)
		}
		defer archiver.Stop()
	} else {
		log.Println("DATABASE_URL not set, event archive disabled")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Ledger:          ledger,
		Bank:            redisService,
		JWT:             jwtService,
		Hub:             hub,
		Limiter:         redisService,
		VotesPerMinute:  cfg.VotesPerMinute,
		ClaimsPerMinute: cfg.ClaimsPerMinute,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
