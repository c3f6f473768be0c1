package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	"balance-game-backend/internal/config"
	"balance-game-backend/internal/services"
)

func main() {
	address := flag.String("address", "", "participant address (0x-prefixed, 20 bytes hex)")
	flag.Parse()

	if err := validator.New().Var(*address, "required,eth_addr"); err != nil {
		log.Fatalf("invalid address %q: %v", *address, err)
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to read .env file: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.JWTSecret == config.DevJWTSecret {
		log.Println("JWT_SECRET not set, token is signed with the development secret")
	}

	token, err := services.NewJWTService(cfg).GenerateToken(*address)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	fmt.Println(token)
}
