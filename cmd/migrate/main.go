package main

import (
	"database/sql"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"jeeptrack-service/internal/infrastructure/config"
	"jeeptrack-service/pkg/logger"
)

// Applies the Postgres schema. "down" as the first argument rolls back one
// step instead.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	// Wait for the database to be ready
	var db *sql.DB
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", cfg.PostgresURI)
		if err == nil {
			if err = db.Ping(); err == nil {
				break
			}
			db.Close()
		}
		log.Info("Waiting for the database to be ready", "attempt", i+1, "error", err)
		time.Sleep(3 * time.Second)
	}
	if err != nil {
		log.Fatal("Could not connect to the database", "error", err)
	}
	db.Close()

	m, err := migrate.New(cfg.MigrationsPath, cfg.PostgresURI)
	if err != nil {
		log.Fatal("Could not start migrations", "error", err)
	}
	defer m.Close()

	if len(os.Args) > 1 && os.Args[1] == "down" {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	if err != nil && err != migrate.ErrNoChange {
		log.Fatal("Migration failed", "error", err)
	}

	version, dirty, _ := m.Version()
	log.Info("Migrations applied", "version", version, "dirty", dirty)
}
