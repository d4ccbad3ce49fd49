// Package main provides a CLI tool for listing and resolving orphaned items.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/tilemud/internal/config"
	"github.com/cory-johannsen/tilemud/internal/storage"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	limit := flag.Int("limit", 50, "maximum number of orphans to list")
	resolve := flag.String("resolve", "", "id of an orphan to mark resolved")
	flag.Parse()

	if *limit < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ledger, closeLedger, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("opening orphan storage: %v", err)
	}
	defer closeLedger()

	if *resolve != "" {
		id, err := uuid.Parse(*resolve)
		if err != nil {
			log.Fatalf("invalid orphan id %q: %v", *resolve, err)
		}
		rec, err := ledger.Get(ctx, id)
		if err != nil {
			log.Fatalf("looking up orphan %s: %v", id, err)
		}
		if err := ledger.Resolve(ctx, id); err != nil {
			log.Fatalf("resolving orphan %s: %v", id, err)
		}
		fmt.Fprintf(os.Stdout, "resolved %s: %d x %s [%s]\n", id, rec.Amount, rec.Description, time.Since(start))
		return
	}

	recs, err := ledger.Unresolved(ctx, *limit)
	if err != nil {
		log.Fatalf("listing orphans: %v", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOCCURRED\tTYPE\tAMOUNT\tITEM\tFROM\tTO\tREQUESTOR")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%d\n",
			r.ID, r.OccurredAt.Format(time.RFC3339), r.ItemTypeID, r.Amount,
			r.Description, r.Source, r.Destination, r.RequestorID)
	}
	_ = w.Flush()
	fmt.Fprintf(os.Stdout, "%d unresolved [%s]\n", len(recs), time.Since(start))
}
