package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/Yo-Self/yo-self.github.io-sub001/config"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/database"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/logger"
)

func main() {
	seedPath := flag.String("seed", "", "optional fixture file to insert after migrating")
	flag.Parse()

	cfg := config.LoadConfig()

	zl, err := logger.InitLogger(logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Log.Environment,
		ServiceName: "menu-migrate",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	db, err := database.NewConnection(cfg.Source.DSN)
	if err != nil {
		zl.Fatal("Failed to connect to db", zap.Error(err))
	}

	if err := database.MigrateMenuDB(db); err != nil {
		zl.Fatal("Failed to migrate menu database", zap.Error(err))
	}
	zl.Info("Menu database migrated")

	if *seedPath == "" {
		return
	}
	seed, err := database.LoadMenuSeed(*seedPath)
	if err != nil {
		zl.Fatal("Failed to load seed", zap.Error(err))
	}
	if err := database.SeedMenuDB(db, seed); err != nil {
		zl.Fatal("Failed to seed menu database", zap.Error(err))
	}
	zl.Info("Menu database seeded",
		zap.String("seed", *seedPath),
		zap.Int("restaurants", len(seed.Restaurants)),
		zap.Int("dishes", len(seed.Dishes)))
}
