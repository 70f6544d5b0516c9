package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"time"

	"hearth-backend/config"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	userID := flag.String("user", "d5a2089c-e39a-4b62-a973-778f6729323d", "subject of the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.AuthJWTSecret == "" {
		log.Fatalf("AUTH_JWT_SECRET not found in environment or .env")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  *userID,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(*ttl).Unix(),
		"aud":  "authenticated",
		"role": "authenticated",
	})

	secret := []byte(cfg.AuthJWTSecret)
	if decoded, err := base64.StdEncoding.DecodeString(cfg.AuthJWTSecret); err == nil {
		secret = decoded
	}

	tokenString, err := token.SignedString(secret)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Printf("Token for %s (expires in %s):\n", *userID, *ttl)
	fmt.Println(tokenString)
}
