package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"ms-preorder/internal/config"
	"ms-preorder/internal/database/migrations"
	"ms-preorder/internal/logger"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun/driver/pgdriver"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration")
	seed := flag.Bool("seed", false, "apply the menu seed after the schema")
	flag.Parse()

	logger := logger.NewLogger("preorder-migrate")
	defer logger.Close()

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN)))
	if err := sqldb.PingContext(context.Background()); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("❌ Failed to connect to Postgres: %v", err))
	}

	runner := migrations.NewRunner(sqldb, migrations.MigrateOptions{
		AutoMigrate: true,
		SeedData:    *seed || cfg.Database.SeedData,
	}, logger)
	defer runner.Close()

	if *down {
		logger.Info("MIGRATE", "Rolling back all migrations")
		if err := runner.MigrateDown(); err != nil {
			logger.Error("MIGRATE", err.Error())
			runner.Close()
			os.Exit(1)
		}
		logger.Info("MIGRATE", "✅ Rollback complete")
		return
	}

	if err := runner.RunMigrations(); err != nil {
		logger.Error("MIGRATE", err.Error())
		runner.Close()
		os.Exit(1)
	}
	logger.Info("MIGRATE", "✅ Done.")
}
