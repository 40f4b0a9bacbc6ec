package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"examgrader/pkg/config"
	"examgrader/pkg/ocr"
	"examgrader/pkg/ocr/engine"
)

func main() {
	f := flag.String("file", "", "image file to OCR")
	eng := flag.String("engine", "", "override OCR.ENGINE (vision|tesseract)")
	raw := flag.Bool("raw", false, "skip image enhancement")
	flag.Parse()
	if *f == "" {
		log.Fatalf("-file required")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *eng != "" {
		cfg.OCR.Engine = *eng
	}
	ctx := context.Background()
	rec, err := engine.New(ctx, cfg.OCR).Recognize(ctx, *f, !*raw)
	if err != nil {
		log.Fatalf("ocr error: %v", err)
	}
	fmt.Printf("quality=%d\n--- raw ---\n%s\n--- repaired ---\n%s\n", rec.Quality, rec.Text, ocr.RepairTranscription(rec.Text))
}
