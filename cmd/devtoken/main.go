// Command devtoken prints a bearer token for local testing against the API.
//
//	go run ./cmd/devtoken -account acct-123 -ttl 24h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jengatrack/jengatrack-api/internal/config"
	"github.com/jengatrack/jengatrack-api/internal/service"
)

func main() {
	account := flag.String("account", "", "account ID placed in the sub claim")
	email := flag.String("email", "", "optional email claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *account == "" {
		fmt.Fprintln(os.Stderr, "devtoken: -account is required")
		os.Exit(2)
	}

	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	token, err := service.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer).Sign(*account, *email, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devtoken: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
