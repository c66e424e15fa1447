// Command token prints a bearer token for a user ID, signed with the
// server's JWT secret. It is meant for operators and local testing.
//
//	JWT_SECRET=... token -user alice -ttl 1h
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/aminofabian/ichama-sub002/internal/auth"
	"github.com/aminofabian/ichama-sub002/internal/config"
)

func main() {
	userID := flag.String("user", "", "user ID to issue the token for")
	ttl := flag.Duration("ttl", 0, "token lifetime (default: auth.token_ttl from config)")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *ttl > 0 {
		cfg.Auth.TokenTTL = *ttl
	}

	token, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Generate(*userID)
	if err != nil {
		slog.Error("Failed to issue token", "user_id", *userID, "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
