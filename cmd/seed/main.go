// seed inserts a local-dev account into the database so the API can be
// exercised by hand without registering first.
// Run: DATABASE_URL=... go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/zhanatb/linguabook/internal/domain"
	"github.com/zhanatb/linguabook/internal/infrastructure/postgres"
	"github.com/zhanatb/linguabook/internal/password"
)

const (
	seedEmail    = "seed@test.local"
	seedPassword = "hunter2hunter2"
)

func main() {
	ctx := context.Background()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	hash, err := password.NewHasher(0).Hash(seedPassword)
	if err != nil {
		log.Fatalf("hash: %v", err)
	}

	user, err := postgres.NewUserRepository(pool).Create(ctx, seedEmail, hash)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			fmt.Printf("seed user %s already exists\n", seedEmail)
			return
		}
		log.Fatalf("create seed user: %v", err)
	}

	fmt.Printf("created %s (id %s), password %q\n", user.Email, user.ID, seedPassword)
}
