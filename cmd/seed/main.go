package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/freshflower-auth/config"
	"github.com/oksasatya/freshflower-auth/internal/application"
	pginfra "github.com/oksasatya/freshflower-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/freshflower-auth/pkg/helpers"
)

// seed registers a demo account through the regular registration path,
// so it is validated and hashed exactly like any other user.
func main() {
	_ = godotenv.Load()

	email := flag.String("email", "demo@freshflower.local", "account email")
	password := flag.String("password", "password123", "account password")
	fullName := flag.String("name", "Demo User", "account full name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{DSN: cfg.PostgresDSN(), MaxConns: 2, AppName: cfg.AppName + "-seed"})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	svc := application.NewService(
		pginfra.NewUserRepository(pool),
		helpers.NewBcryptHasher(cfg.BcryptCost),
		logger,
		cfg,
	)

	existing, err := svc.FindByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("failed to look up user: %v", err)
	}
	if existing != nil {
		fmt.Printf("user already seeded: id=%s email=%s\n", existing.ID, existing.Email)
		return
	}

	u, err := svc.Register(ctx, application.RegisterInput{Email: *email, Password: *password, FullName: *fullName})
	if err != nil {
		if msg := application.PublicMessage(err); msg != "" {
			log.Fatalf("seed rejected: %s", msg)
		}
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s name=%s\n", u.ID, u.Email, u.FullName)
}
