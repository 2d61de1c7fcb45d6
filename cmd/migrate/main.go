package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"adwatch/internal/storage"
	"adwatch/migrations"
)

func main() {
	dbPath := flag.String("db", envOrDefault("LEDGER_PATH", "./data/seen_ads.db"), "path to sqlite ledger")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-db path] <command>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  up           Migrate to the latest version")
		fmt.Fprintln(os.Stderr, "  down         Roll back one version")
		fmt.Fprintln(os.Stderr, "  status       Show migration status")
		fmt.Fprintln(os.Stderr, "  version      Show current version")
		fmt.Fprintln(os.Stderr, "  import FILE  Replace the ledger with the contents of a JSON ledger file")
		os.Exit(1)
	}

	ctx := context.Background()

	if args[0] == "import" {
		if len(args) != 2 {
			log.Fatal("import: expected exactly one JSON ledger file")
		}
		if err := importJSON(ctx, args[1], *dbPath); err != nil {
			log.Fatalf("import: %v", err)
		}
		return
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		log.Fatalf("create provider: %v", err)
	}

	cmd := args[0]
	switch cmd {
	case "up":
		_, err = provider.Up(ctx)
	case "down":
		_, err = provider.Down(ctx)
	case "status":
		var statuses []*goose.MigrationStatus
		statuses, err = provider.Status(ctx)
		for _, s := range statuses {
			fmt.Printf("%-10s %d %s\n", s.State, s.Source.Version, s.Source.Path)
		}
	case "version":
		var v int64
		v, err = provider.GetDBVersion(ctx)
		if err == nil {
			fmt.Println(v)
		}
	default:
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func importJSON(ctx context.Context, src, dbPath string) error {
	ledger, err := storage.NewFile(src).Load(ctx)
	if err != nil {
		return err
	}

	db, err := storage.NewSQLite(ctx, dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Save(ctx, ledger); err != nil {
		return err
	}
	fmt.Printf("imported %d entries into %s\n", len(ledger), dbPath)
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
