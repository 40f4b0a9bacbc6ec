package main

import (
	"flag"
	"fmt"
	"os"

	"examgrader/pkg/config"
	"examgrader/process/report"
)

func main() {
	question := flag.Uint("question", 0, "question id to report for")
	run := flag.String("run", "", "run id (default latest)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if cfg.DatabaseDSN == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export GRADER_DB_DSN and retry")
		os.Exit(2)
	}
	if *question == 0 {
		fmt.Fprintln(os.Stderr, "-question required")
		os.Exit(2)
	}
	db, err := report.Open(cfg.DatabaseDSN)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer db.Close()
	runID, err := report.LatestRun(db, *question, *run)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run lookup failed: %v\n", err)
		os.Exit(1)
	}
	rows, err := report.Rows(db, *question, runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "report failed: %v\n", err)
		os.Exit(1)
	}
	report.Print(os.Stdout, *question, runID, rows)
}
