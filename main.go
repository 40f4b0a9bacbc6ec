package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"examgrader/pkg/config"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-insecure-secret-change" // development fallback
		log.Println("JWT_SECRET not set, using development secret")
	}

	// `./examgrader migrate` runs AutoMigrate and seeding then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		db, err := openDB(cfg.DatabaseDSN)
		if err != nil {
			log.Fatal(err)
		}
		if err := migrate(db); err != nil {
			log.Fatal(err)
		}
		if err := seed(db); err != nil {
			log.Fatal(err)
		}
		fmt.Println("migration and seeding completed")
		return
	}

	s, err := newServer(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	gin.SetMode(cfg.GinMode)
	r := gin.Default()
	s.setupRoutes(r)
	if err := r.Run(cfg.Addr()); err != nil {
		log.Fatal(err)
	}
}
