package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/yourusername/portfolio-api/internal/config"
	"github.com/yourusername/portfolio-api/internal/domain/entity"
	apperrors "github.com/yourusername/portfolio-api/internal/pkg/errors"
	pgRepo "github.com/yourusername/portfolio-api/internal/repository/postgres"
	"github.com/yourusername/portfolio-api/pkg/database"
)

// Создает учетную запись администратора. Пароль читается из ADMIN_PASSWORD,
// чтобы не попадать в историю shell.
//
//	ADMIN_PASSWORD=... go run ./cmd/create-admin -username admin -email me@example.com
func main() {
	username := flag.String("username", "", "admin username")
	email := flag.String("email", "", "address that receives login codes")
	flag.Parse()

	password := os.Getenv("ADMIN_PASSWORD")
	if strings.TrimSpace(*username) == "" || strings.TrimSpace(*email) == "" || password == "" {
		fmt.Fprintln(os.Stderr, "usage: ADMIN_PASSWORD=... create-admin -username NAME -email ADDRESS")
		os.Exit(2)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	user := &entity.User{
		Username: strings.TrimSpace(*username),
		Email:    strings.TrimSpace(*email),
		Password: password, // хешируется в BeforeSave
		IsActive: true,
		IsStaff:  true,
	}
	if err := pgRepo.NewUserRepo(db).Create(user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			log.Fatalf("User %q already exists", user.Username)
		}
		log.Fatalf("Failed to create admin: %v", err)
	}

	fmt.Printf("Admin %q created (id=%d)\n", user.Username, user.ID)
}
