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
	admin := flag.Bool("admin", false, "grant the administrator role instead of instructor")
	flag.Parse()
	if flag.NArg() < 2 {
		fmt.Println("usage: go run ./cmd/create_user [-admin] <username> <password>")
		os.Exit(2)
	}
	username := strings.TrimSpace(flag.Arg(0))
	password := flag.Arg(1)

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

	roleName := models.RoleInstructor
	if *admin {
		roleName = models.RoleAdministrator
	}
	role, err := models.EnsureRole(db, roleName)
	if err != nil {
		log.Fatal(err)
	}

	// check existing
	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		fmt.Printf("user %s already exists (id=%d)\n", username, existing.ID)
		os.Exit(0)
	}

	hpw, err := models.HashPassword(password)
	if err != nil {
		log.Fatal(err)
	}
	rid := role.ID
	user := models.User{Username: username, HashedPassword: hpw, RoleID: &rid}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created %s %s id=%d\n", roleName, username, user.ID)
}
