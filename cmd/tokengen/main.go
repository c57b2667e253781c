// Package main generates bearer tokens for exercising the API locally.
// Tokens are signed with the dev key and will NOT work against production.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"homehelp/internal/platform/middleware/auth"
	id "homehelp/pkg/domain"
)

// Matches config.go when JWT_SIGNING_KEY is not set.
const devSigningKey = "dev-secret-key-change-in-production"

type tokenOutput struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Role      string `json:"role,omitempty"`
	ExpiresIn string `json:"expires_in"`
	Usage     string `json:"usage"`
}

func main() {
	userIDFlag := flag.String("user-id", "", "User ID (UUID). Generated if empty.")
	role := flag.String("role", "", "Role claim (e.g. admin). Empty for a regular user.")
	ttl := flag.Duration("ttl", time.Hour, "Token time-to-live")
	key := flag.String("key", devSigningKey, "HS256 signing key")
	asJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	userID := id.NewUserID()
	if *userIDFlag != "" {
		parsed, err := id.ParseUserID(*userIDFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid user id: %v\n", err)
			os.Exit(1)
		}
		userID = parsed
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Role: *role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	})

	signed, err := token.SignedString([]byte(*key))
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		out := tokenOutput{
			Token:     signed,
			UserID:    userID.String(),
			Role:      *role,
			ExpiresIn: ttl.String(),
			Usage:     fmt.Sprintf("curl -H 'Authorization: Bearer %s' http://localhost:8080/verification/status?flow=owner_registration", signed),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	fmt.Println(signed)
}
