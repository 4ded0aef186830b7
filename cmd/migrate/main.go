package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/pflag"

	"tasktrack.org/internal/config"
	"tasktrack.org/internal/migrate"
)

func main() {
	log.SetFlags(0)
	flagSet := pflag.NewFlagSet("tasktrack-migrate", pflag.ContinueOnError)
	var (
		dsn     = flagSet.String("dsn", os.Getenv(config.EnvPGDSN), "PostgreSQL DSN")
		dir     = flagSet.String("dir", "", "read migrations from this directory instead of the embedded set")
		table   = flagSet.String("table", "", "migrations bookkeeping table (default schema_migrations)")
		timeout = flagSet.Duration("timeout", 30*time.Second, "overall timeout")
	)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	if *dsn == "" {
		log.Fatalf("missing DSN: provide via --dsn or %s", config.EnvPGDSN)
	}
	if flagSet.NArg() == 0 {
		log.Fatal("usage: migrate [up|down|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	opts := []migrate.Option{migrate.WithMigrationsTable(*table)}
	if *dir != "" {
		opts = append(opts, migrate.WithFS(os.DirFS(*dir)))
	}
	mgr := migrate.NewManager(db, opts...)

	switch flagSet.Arg(0) {
	case "up":
		var applied []string
		applied, err = mgr.Up(ctx)
		for _, name := range applied {
			fmt.Println("applied", name)
		}
	case "down":
		var name string
		name, err = mgr.Down(ctx)
		if err == nil {
			fmt.Println("rolled back", name)
		}
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flagSet.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flagSet.Arg(0), err)
	}
}
