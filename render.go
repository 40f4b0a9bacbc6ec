package main

import (
	"bytes"
	"fmt"
	"strings"

	"examgrader/pkg/grading"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderMarkdown converts Gemini's markdown answers (code fences, lists) to HTML.
func renderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type reportRow struct {
	Name   string         `json:"name"`
	Scores map[string]int `json:"scores"`
	Final  int            `json:"final_score"`
	Points int            `json:"exam_points"`
}

// resultsMarkdown lays out a grading run as a GFM document with a score table.
func resultsMarkdown(question, reference string, maxPoints int, rows []reportRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Results\n\n**Question** (%d points)\n\n%s\n\n## Reference answer\n\n%s\n\n## Scores\n\n", maxPoints, question, reference)
	names := grading.CriterionNames()
	b.WriteString("| Student | " + strings.Join(names, " | ") + " | Final | Points |\n")
	b.WriteString("|---" + strings.Repeat("|---:", len(names)+2) + "|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s |", escapeCell(r.Name))
		for _, n := range names {
			fmt.Fprintf(&b, " %d |", r.Scores[n])
		}
		fmt.Fprintf(&b, " %d | %d |\n", r.Final, r.Points)
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
