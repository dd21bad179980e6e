package main

import (
	"context"
	"fmt"
	"log"

	"github.com/david/relief-fund/internal/db"
)

func main() {
	ctx := context.Background()

	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	var applicants, profiles, drafts int
	err = pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM applicants),
			(SELECT count(*) FROM profiles),
			(SELECT count(*) FROM application_drafts)
	`).Scan(&applicants, &profiles, &drafts)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	fmt.Printf("Applicants: %d\n", applicants)
	fmt.Printf("Profiles: %d\n", profiles)
	fmt.Printf("Open drafts: %d\n", drafts)

	rows, err := pool.Query(ctx, `
		SELECT outcome, count(*)
		FROM decisions
		GROUP BY outcome
		ORDER BY outcome
	`)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Printf("Decisions %s: %d\n", outcome, count)
	}
}
