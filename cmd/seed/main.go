package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Awerito/ulatickets-api/internal/domain"
	"github.com/Awerito/ulatickets-api/internal/repository"
	"github.com/Awerito/ulatickets-api/migrations"
	"github.com/Awerito/ulatickets-api/pkg/config"
	"github.com/Awerito/ulatickets-api/pkg/database"
)

// Seeds the database with a handful of demo events for local development.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db.Pool()); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	repo := repository.NewPostgresEventRepository(db.Pool())

	now := time.Now()
	events := []*domain.Event{
		{
			ID:       uuid.New().String(),
			Name:     "Festival de la Primavera",
			Category: "music",
			Date:     now.AddDate(0, 1, 0),
			Location: "Parque O'Higgins, Santiago",
			Tickets: []domain.TicketType{
				{Type: "general", Price: 25000, Available: 500},
				{Type: "vip", Price: 60000, Available: 50},
			},
		},
		{
			ID:       uuid.New().String(),
			Name:     "Clasico Universitario",
			Category: "sports",
			Date:     now.AddDate(0, 0, 14),
			Location: "Estadio Nacional",
			Tickets: []domain.TicketType{
				{Type: "galeria", Price: 12000, Available: 2000},
				{Type: "tribuna", Price: 30000, Available: 800},
			},
		},
		{
			ID:       uuid.New().String(),
			Name:     "Noche de Stand Up",
			Category: "comedy",
			Date:     now.AddDate(0, 0, 7),
			Location: "Teatro Caupolican",
			Tickets: []domain.TicketType{
				{Type: "general", Price: 15000, Available: 300},
			},
		},
	}

	for _, event := range events {
		if err := repo.Create(ctx, event); err != nil {
			log.Fatalf("failed to seed event %q: %v", event.Name, err)
		}
		log.Printf("seeded event %s (%s)", event.Name, event.ID)
	}

	log.Printf("done: %d events", len(events))
}
