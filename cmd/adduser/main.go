// cmd/adduser/main.go
// Registers a user in the database.
//
// Usage:
//
//	go run ./cmd/adduser -username alice -password secret1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/padraicbc/todoapi/config"
	bundb "github.com/padraicbc/todoapi/db"
	"github.com/padraicbc/todoapi/store"
)

func main() {
	username := flag.String("username", "", "username (required)")
	password := flag.String("password", "", "plain-text password (required)")
	flag.Parse()

	if strings.TrimSpace(*username) == "" || *password == "" {
		log.Fatal("both -username and -password are required")
	}
	if *username != strings.TrimSpace(*username) {
		log.Fatal("username must not start or end with whitespace")
	}
	if strings.Contains(*username, ":") {
		log.Fatal("username must not contain ':'")
	}

	ctx := context.Background()
	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatal(err)
	}
	db, err := bundb.Setup(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := bundb.CreateTables(ctx, db); err != nil {
		log.Fatal("create tables:", err)
	}

	users := store.NewUsers(db, store.WithTimeout(cfg.StoreTimeout), store.WithCost(cfg.BcryptCost))
	err = users.Register(ctx, *username, *password)
	switch {
	case errors.Is(err, store.ErrDuplicateUser):
		log.Fatalf("user %q already exists", *username)
	case err != nil:
		log.Fatal("register user:", err)
	}

	fmt.Printf("user %q saved\n", *username)
}
