package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/config"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/database"
)

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	purgeOTPs := fs.Bool("purge-otps", false, "also delete expired one-time codes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	db, err := database.NewDatabaseConnectionWithContext(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer db.Close()

	applied, purged, err := migrate(ctx, db, *purgeOTPs)
	if err != nil {
		return err
	}
	fmt.Printf("Applied %d migrations\n", applied)
	if *purgeOTPs {
		fmt.Printf("Purged %d expired one-time codes\n", purged)
	}
	return nil
}

func migrate(ctx context.Context, db database.DBPool, purgeOTPs bool) (int, int64, error) {
	applied, err := database.Migrate(ctx, db)
	if err != nil {
		return applied, 0, fmt.Errorf("failed to migrate: %w", err)
	}
	if !purgeOTPs {
		return applied, 0, nil
	}
	purged, err := database.NewOTPRepository(db).PurgeExpired(ctx)
	if err != nil {
		return applied, 0, fmt.Errorf("failed to purge one-time codes: %w", err)
	}
	return applied, purged, nil
}
