package main

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"examgrader/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var errNoDSN = errors.New("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN")

func openDB(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errNoDSN
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres database: %w", err)
	}
	return db, nil
}

// migrate creates the schema. Models are migrated one by one so a failure on
// one table is logged without blocking the rest; roles go first so users can
// reference them.
func migrate(db *gorm.DB) error {
	var failed []string
	for _, m := range models.All() {
		if err := db.AutoMigrate(m); err != nil {
			log.Printf("migration warning (%T): %v", m, err)
			failed = append(failed, fmt.Sprintf("%T", m))
		}
	}
	if len(failed) == len(models.All()) {
		return fmt.Errorf("migration failed for every model")
	}
	return nil
}

// seed ensures master roles and a default administrator account exist.
func seed(db *gorm.DB) error {
	admin, err := models.EnsureRole(db, models.RoleAdministrator)
	if err != nil {
		return err
	}
	if _, err := models.EnsureRole(db, models.RoleInstructor); err != nil {
		return err
	}
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	rid := admin.ID
	if err := db.Create(&models.User{Username: "admin", HashedPassword: hashed, RoleID: &rid}).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Println("Seeded admin user: username=admin, password=admin123")
	return nil
}
