package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/samirrijal/sitescout/internal/adapters/postgres"
	"github.com/samirrijal/sitescout/internal/adapters/reference"
	"github.com/samirrijal/sitescout/internal/pkg/config"
)

var upFiles = []string{
	"migrations/001_reference_tables.sql",
}

var downFiles = []string{
	"migrations/001_reference_tables.down.sql",
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down|seed [file]>")
	}

	cfg, err := config.Load("sitescout-migrate", os.Getenv("SITESCOUT_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		runFiles(ctx, db, upFiles)
		log.Println("all migrations applied")
	case "down":
		runFiles(ctx, db, downFiles)
		log.Println("all migrations reverted")
	case "seed":
		seed(ctx, db, os.Args[2:])
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func runFiles(ctx context.Context, db *postgres.DB, files []string) {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}
}

// seed loads the nonattainment table from a JSON file in the reference cache
// format, or the built-in table when no file is given.
func seed(ctx context.Context, db *postgres.DB, args []string) {
	table := reference.DefaultNonattainment()
	source := "built-in table"
	if len(args) > 0 {
		t, err := reference.ReadTable(args[0])
		if err != nil {
			log.Fatalf("read %s: %v", args[0], err)
		}
		table, source = t, args[0]
	}

	n, err := postgres.NewReferenceRepo(db).ReplaceNonattainment(ctx, table)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	fmt.Printf("OK  %d nonattainment rows from %s (%d counties)\n", n, source, len(reference.Counties(table)))
}
