package main

import (
	"context"
	"log"
	"os"

	"github.com/david/relief-fund/internal/api"
	"github.com/david/relief-fund/internal/db"
	"github.com/david/relief-fund/internal/policy"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	programs, err := policy.LoadPrograms("internal/policy/config/programs.yaml")
	if err != nil {
		log.Fatalf("Failed to load program policies: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	srv := api.NewServer(pool, programs)
	log.Printf("Server starting on port %s...", port)
	if err := srv.Start(port); err != nil {
		log.Fatal(err)
	}
}
