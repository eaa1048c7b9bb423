package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/adapters/postgres"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/app/bootstrap"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

// seed loads a small set of demo profiles for local development.
func main() {
	ctx := context.Background()
	cfg, err := bootstrap.LoadConfig("configs/default.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	repos := postgres.NewRepositories(db)
	now := time.Now().UTC()
	fixtures := []ports.CreateProfileParams{
		{
			Slug:          "marios-pizza",
			WalletAddress: "0x1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2b",
			Name:          "Mario's Pizza",
			Bio:           "Neighborhood pizzeria, family-run since 1998.",
			Category:      domain.CategoryRestaurant,
			Restaurant: &domain.RestaurantDetails{
				Address: "123 Main St",
				City:    "Brooklyn",
				State:   "NY",
				Phone:   "+1-555-0100",
			},
			CreatedAt: now,
		},
		{
			Slug:          "ana-paints",
			WalletAddress: "0x2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2b3c",
			Name:          "Ana Paints",
			Bio:           "Watercolor artist and workshop host.",
			Category:      domain.CategoryCreator,
			Creator: &domain.CreatorDetails{
				Followers:       12800,
				PortfolioImages: []string{"https://cdn.example.com/ana/one.jpg"},
				SocialLinks:     map[string]string{"instagram": "https://instagram.com/anapaints"},
			},
			CreatedAt: now,
		},
	}

	for _, fixture := range fixtures {
		if _, err := repos.Profiles.Create(ctx, fixture); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				log.Printf("profile %q already seeded", fixture.Slug)
				continue
			}
			log.Fatalf("seed profile %q: %v", fixture.Slug, err)
		}
		log.Printf("seeded profile %q", fixture.Slug)
	}
}
