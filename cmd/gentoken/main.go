// Command gentoken prints an access and refresh token pair for local testing.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bomanihosts/backend/internal/auth"
	"github.com/bomanihosts/backend/internal/config"
	"github.com/joho/godotenv"
)

func main() {
	userID := flag.Int64("user-id", 1, "user id to put in the subject claim")
	username := flag.String("username", "test-user", "username claim")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, cfg.Auth.JWTIssuer)
	pair, err := tokens.GeneratePair(*userID, *username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Access token:")
	fmt.Println(pair.Access)
	fmt.Println("\nRefresh token:")
	fmt.Println(pair.Refresh)
	fmt.Println("\nTest with:")
	fmt.Printf("curl -H 'Authorization: Bearer %s' http://localhost:%d/api/auth/me/\n", pair.Access, cfg.Server.Port)
}
