// Package report prints stored grading runs straight from Postgres.
package report

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNoRuns is returned when a question has never been graded.
var ErrNoRuns = errors.New("question has no grading runs")

// Row is one candidate's stored result.
type Row struct {
	Candidate     string
	Correctness   int
	Syntax        int
	CodeStructure int
	Efficiency    int
	EdgeCases     int
	FinalScore    int
	ExamPoints    int
	Method        string
}

// Open connects through the pgx database/sql driver.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// LatestRun returns the newest run id for a question, or runID when given.
func LatestRun(db *sql.DB, questionID uint, runID string) (string, error) {
	if runID != "" {
		return runID, nil
	}
	err := db.QueryRow(`SELECT run_id FROM scores WHERE question_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, questionID).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	return runID, err
}

// Rows loads the results of one run in candidate order.
func Rows(db *sql.DB, questionID uint, runID string) ([]Row, error) {
	rows, err := db.Query(`SELECT c.name, s.correctness, s.syntax, s.code_structure, s.efficiency, s.edge_cases, s.final_score, s.exam_points, s.method
		FROM scores s JOIN candidates c ON c.id = s.candidate_id
		WHERE s.question_id = $1 AND s.run_id = $2 ORDER BY c.id`, questionID, runID)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Candidate, &r.Correctness, &r.Syntax, &r.CodeStructure, &r.Efficiency, &r.EdgeCases, &r.FinalScore, &r.ExamPoints, &r.Method); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Print writes a run as an aligned table followed by the class average.
func Print(w io.Writer, questionID uint, runID string, rows []Row) {
	fmt.Fprintf(w, "Report for question=%d run=%s:\n", questionID, runID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STUDENT\tCORRECTNESS\tSYNTAX\tSTRUCTURE\tEFFICIENCY\tEDGE CASES\tFINAL\tPOINTS\tMETHOD")
	total := 0
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n", r.Candidate, r.Correctness, r.Syntax, r.CodeStructure, r.Efficiency, r.EdgeCases, r.FinalScore, r.ExamPoints, r.Method)
		total += r.FinalScore
	}
	tw.Flush()
	if len(rows) > 0 {
		fmt.Fprintf(w, "  candidates=%d average_final=%.1f\n", len(rows), float64(total)/float64(len(rows)))
	}
}
