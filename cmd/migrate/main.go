package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/yourusername/portfolio-api/internal/config"
)

// Обслуживание схемы вне API: откат, принудительная версия после упавшей миграции.
//
//	go run ./cmd/migrate -cmd up
//	go run ./cmd/migrate -cmd down -steps 1
//	go run ./cmd/migrate -cmd force -version 2
func main() {
	command := flag.String("cmd", "up", "up | down | force | version")
	steps := flag.Int("steps", 1, "number of migrations to roll back (down)")
	version := flag.Int("version", -1, "version to force (force)")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.Database.MigrationsPath, "postgres", driver)
	if err != nil {
		log.Fatal(err)
	}

	switch *command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-*steps)
	case "force":
		if *version < 0 {
			log.Fatal("-version is required for force")
		}
		// Снимает dirty-состояние после упавшей миграции
		err = m.Force(*version)
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			log.Fatal(verr)
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
		return
	default:
		log.Fatalf("unknown command %q", *command)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration %s failed: %v", *command, err)
	}
	fmt.Printf("Migration %s: done\n", *command)
}
