package main

import (
	"errors"
	"net/http"
	"strings"

	"examgrader/pkg/grading"
	"examgrader/pkg/ocr"

	"github.com/gin-gonic/gin"
)

// scoreHandler scores one answer without touching the database. The
// reference is generated from question when it is not supplied.
func (s *server) scoreHandler(c *gin.Context) {
	var req struct {
		Candidate    string `json:"candidate"`
		Reference    string `json:"reference"`
		Question     string `json:"question"`
		LanguageHint string `json:"language_hint"`
		Points       *int   `json:"points"`
		UseEvaluator bool   `json:"use_evaluator"`
		Repair       bool   `json:"repair"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reference := req.Reference
	if strings.TrimSpace(reference) == "" {
		if strings.TrimSpace(req.Question) == "" || s.generator == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference or question required"})
			return
		}
		reference = s.generator.GenerateReference(c.Request.Context(), req.Question, req.LanguageHint)
	}
	candidate := req.Candidate
	if req.Repair {
		candidate = ocr.RepairTranscription(candidate)
	}
	set := s.scorer(req.UseEvaluator).Score(c.Request.Context(), candidate, reference, req.LanguageHint)
	if req.Points != nil {
		var err error
		if set, err = set.WithExamPoints(*req.Points); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"reference": reference, "candidate": candidate, "result": set})
}

func repairHandler(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": ocr.RepairTranscription(req.Text)})
}

// statusFor maps local validation failures to 400.
func statusFor(err error) int {
	switch {
	case errors.Is(err, grading.ErrInvalidPoints), errors.Is(err, grading.ErrNoCandidates):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
