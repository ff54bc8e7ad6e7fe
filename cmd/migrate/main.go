package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/db"
	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/migrate"
)

type dbCommand func(ctx context.Context, runner *migrate.Runner) error

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory (default: embedded set, or "+migrate.DefaultDir+" for create/validate)")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem.
	fileDir := *dir
	if fileDir == "" {
		fileDir = migrate.DefaultDir
	}
	switch *cmd {
	case "create":
		if *name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(fileDir, *name)
		if err != nil {
			exitf("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		versions, err := migrate.ValidateDir(fileDir)
		if err != nil {
			exitf("migration validation failed: %v", err)
		}
		fmt.Printf("migration validation passed (%d files: %s)\n", len(versions), strings.Join(versions, ", "))
		return
	}

	commands := map[string]dbCommand{
		"up": func(ctx context.Context, r *migrate.Runner) error {
			applied, err := r.Up(ctx)
			fmt.Printf("applied %d migration(s)\n", applied)
			return err
		},
		"down": func(ctx context.Context, r *migrate.Runner) error {
			return r.Down(ctx)
		},
		"status": func(ctx context.Context, r *migrate.Runner) error {
			lines, err := r.Status(ctx)
			for _, line := range lines {
				fmt.Println(line)
			}
			return err
		},
		"version": func(ctx context.Context, r *migrate.Runner) error {
			if *version == "" {
				return fmt.Errorf("missing -version for version command")
			}
			return r.ToVersion(ctx, *version)
		},
	}
	run, ok := commands[*cmd]
	if !ok {
		exitf("unknown -cmd value: %s", *cmd)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.ForService("migrate", cfg.App)
	ctx = logg.WithFields(ctx, map[string]any{
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	runner, err := migrate.NewRunner(sqlDB, *dir)
	requireResource(ctx, logg, "migrations", err)

	logg.Info(ctx, "migrate ready")
	if err := run(ctx, runner); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration command complete")
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
