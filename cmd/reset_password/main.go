package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"examgrader/models"
	"examgrader/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	admin := flag.Bool("admin", false, "allow resetting an administrator account")
	flag.Parse()
	if flag.NArg() < 2 {
		fmt.Println("usage: go run ./cmd/reset_password [-admin] <username> <new-password>")
		os.Exit(2)
	}
	username := strings.TrimSpace(flag.Arg(0))
	password := flag.Arg(1)
	if len(password) < models.MinPasswordLength {
		log.Fatal(models.ErrPasswordTooShort)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	user, err := models.FindUser(db, username)
	if err != nil {
		log.Fatal(err)
	}
	role := user.Role.Name
	if role == "" {
		role = models.RoleInstructor
	}
	if role == models.RoleAdministrator && !*admin {
		log.Fatalf("%s is an administrator; pass -admin to reset it", username)
	}
	if err := models.SetPassword(db, &user, password); err != nil {
		log.Fatalf("reset failed: %v", err)
	}
	fmt.Printf("password reset for %s %s id=%d\n", role, user.Username, user.ID)
}
