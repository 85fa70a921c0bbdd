package main

import (
	"fmt"
	"log"
	"os"

	"github.com/folivafy/folivafy/internal/app/config"
	"github.com/folivafy/folivafy/internal/infrastructure/database"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
	"github.com/folivafy/folivafy/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	command := os.Args[1]

	logger := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg.GetDatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command {
	case "up":
		runMigrations(db, logger)
	case "reset":
		resetDatabase(db, logger)
	case "status":
		migrationStatus(db, logger)
	default:
		logger.Error("Unknown command", "command", command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println("Usage: go run cmd/migrate/main.go <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  up     - Run all pending migrations")
	fmt.Println("  reset  - Drop all tables and recreate them")
	fmt.Println("  status - Show which tables exist")
}

func runMigrations(db *database.DB, logger *logger.Logger) {
	logger.Info("Running database migrations...")

	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		return
	}

	logger.Info("Migrations completed successfully")
}

func resetDatabase(db *database.DB, logger *logger.Logger) {
	logger.Warn("Dropping all tables...")

	if err := db.Migrator().DropTable(models.GetAllModels()...); err != nil {
		logger.Error("Failed to drop tables", "error", err)
		return
	}

	runMigrations(db, logger)
}

func migrationStatus(db *database.DB, logger *logger.Logger) {
	for _, model := range models.GetAllModels() {
		exists := db.Migrator().HasTable(model)
		logger.Info("Table status", "model", fmt.Sprintf("%T", model), "exists", exists)
	}
}
