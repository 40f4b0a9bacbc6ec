package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"

	"examgrader/pkg/config"
	"examgrader/pkg/ocr/engine"
	"examgrader/pkg/storage"
	"examgrader/process/report"
)

// Re-runs OCR for answers whose transcription failed at upload time.
func main() {
	question := flag.Uint("question", 0, "only retry answers of this question (0 = all)")
	dry := flag.Bool("dry-run", false, "print results without updating rows")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := report.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	store, err := storage.New(ctx, cfg.Storage, cfg.UploadBase)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	recognizer := engine.New(ctx, cfg.OCR)

	rows, err := db.QueryContext(ctx, `SELECT id, name, image_key FROM candidates WHERE failed AND image_key <> '' AND ($1 = 0 OR question_id = $1) ORDER BY id`, *question)
	if err != nil {
		log.Fatalf("query: %v", err)
	}
	type pendingRow struct {
		id   int64
		name string
		key  string
	}
	var todo []pendingRow
	for rows.Next() {
		var p pendingRow
		if err := rows.Scan(&p.id, &p.name, &p.key); err != nil {
			log.Printf("scan: %v", err)
			continue
		}
		todo = append(todo, p)
	}
	rows.Close()

	for _, p := range todo {
		path, cleanup, err := store.Fetch(ctx, p.key)
		if err != nil {
			log.Printf("fetch %s: %v", p.key, err)
			continue
		}
		// retry with enhancement regardless of the configured default
		rec, err := recognizer.Recognize(ctx, path, true)
		cleanup()
		if err != nil {
			log.Printf("ocr id=%d %s: %v", p.id, p.name, err)
			continue
		}
		if *dry {
			fmt.Printf("would update id=%d name=%s quality=%d\n", p.id, p.name, rec.Quality)
			continue
		}
		if err := markRecognized(ctx, db, p.id, rec.Text, rec.Quality); err != nil {
			log.Printf("update id=%d: %v", p.id, err)
			continue
		}
		fmt.Printf("updated id=%d name=%s quality=%d\n", p.id, p.name, rec.Quality)
	}
}

func markRecognized(ctx context.Context, db *sql.DB, id int64, text string, quality int) error {
	_, err := db.ExecContext(ctx, `UPDATE candidates SET text=$1, quality=$2, failed=false, failed_reason='', updated_at=now() WHERE id=$3`, text, quality, id)
	return err
}
