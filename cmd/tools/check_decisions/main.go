package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/relief-fund/internal/db"
)

func main() {
	outcome := flag.String("outcome", "", "filter by outcome (Approved, Denied, Review)")
	limit := flag.Int("limit", 20, "number of decisions to show")
	flag.Parse()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	decisions, err := store.ListRecentDecisions(ctx, *outcome, *limit)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Decision", "Applicant", "Fund", "Outcome", "Award", "Decisioned At"})

	for _, d := range decisions {
		t.AppendRow(table.Row{
			d.ID.String()[:8],
			d.ApplicantID.String()[:8],
			d.FundID,
			d.Outcome,
			d.RecommendedAward,
			d.DecisionedAt.Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
}
