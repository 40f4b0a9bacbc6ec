package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"examgrader/models"
	"examgrader/pkg/grading"
	"examgrader/pkg/ocr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxUploadSize = 10 * 1024 * 1024

// loadQuestion fetches :id and checks that the caller owns it (admins see all).
func (s *server) loadQuestion(c *gin.Context) (*models.Question, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question id"})
		return nil, false
	}
	var q models.Question
	if err := s.db.First(&q, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "question not found"})
		return nil, false
	}
	if !isAdmin(c) && q.OwnerID != c.GetUint("uid") {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return &q, true
}

// createQuestionHandler accepts JSON, or a multipart form whose "image" file
// is transcribed into the question text.
func (s *server) createQuestionHandler(c *gin.Context) {
	var req struct {
		Text         string `json:"text" form:"text"`
		LanguageHint string `json:"language_hint" form:"language_hint"`
		Points       int    `json:"points" form:"points"`
		Reference    string `json:"reference" form:"reference"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q := models.Question{
		OwnerID:      c.GetUint("uid"),
		Text:         strings.TrimSpace(req.Text),
		LanguageHint: strings.TrimSpace(req.LanguageHint),
		Points:       req.Points,
		Reference:    req.Reference,
	}
	if q.Points == 0 {
		q.Points = s.cfg.Grading.DefaultPoints
	}
	if q.Points < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": grading.ErrInvalidPoints.Error()})
		return
	}
	if file, err := c.FormFile("image"); err == nil {
		key, err := s.saveUpload(c.Request.Context(), "questions", file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		q.ImageKey = key
		rec, err := s.recognizeKey(c.Request.Context(), key)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "question image could not be transcribed: " + err.Error()})
			return
		}
		if q.Text == "" {
			q.Text = rec.Text
		}
	}
	if q.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question text or image required"})
		return
	}
	if err := s.db.Create(&q).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *server) listQuestionsHandler(c *gin.Context) {
	var items []models.Question
	q := s.db.Model(&models.Question{})
	if !isAdmin(c) {
		q = q.Where("owner_id = ?", c.GetUint("uid"))
	}
	if err := q.Order("id desc").Limit(200).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *server) getQuestionHandler(c *gin.Context) {
	q, ok := s.loadQuestion(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, q)
}

// createCandidateHandler stores an answer image and transcribes it right
// away so the instructor can review the text before grading. A failed
// transcription is kept and flagged.
func (s *server) createCandidateHandler(c *gin.Context) {
	q, ok := s.loadQuestion(c)
	if !ok {
		return
	}
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}
	cand := models.Candidate{QuestionID: q.ID, Name: name, Text: c.PostForm("text")}
	file, err := c.FormFile("file")
	if err != nil && cand.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file or text required"})
		return
	}
	if file != nil {
		if file.Size > maxUploadSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
			return
		}
		folder := fmt.Sprintf("questions/%d", q.ID)
		key, err := s.saveUpload(c.Request.Context(), folder, file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		cand.ImageKey = key
		if cand.Text == "" {
			rec, err := s.recognizeKey(c.Request.Context(), key)
			if err != nil {
				cand.Failed = true
				cand.FailedReason = ocr.TruncateUTF8(err.Error(), 255)
			} else {
				cand.Text, cand.Quality = rec.Text, rec.Quality
			}
		}
	}
	if err := s.db.Create(&cand).Error; err != nil {
		if isUniqueConstraintError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "candidate name already used for this question"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}
	c.JSON(http.StatusOK, cand)
}

func (s *server) listCandidatesHandler(c *gin.Context) {
	q, ok := s.loadQuestion(c)
	if !ok {
		return
	}
	var items []models.Candidate
	if err := s.db.Where("question_id = ?", q.ID).Order("id").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// updateCandidateHandler replaces a transcription after manual review.
func (s *server) updateCandidateHandler(c *gin.Context) {
	q, ok := s.loadQuestion(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var cand models.Candidate
	if err := s.db.Where("id = ? AND question_id = ?", c.Param("cid"), q.ID).First(&cand).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "candidate not found"})
		return
	}
	cand.Text = req.Text
	cand.Failed = false
	cand.FailedReason = ""
	if err := s.db.Save(&cand).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, cand)
}

type gradedCandidate struct {
	CandidateID uint             `json:"candidate_id"`
	Name        string           `json:"name"`
	Text        string           `json:"text"`
	Quality     int              `json:"quality"`
	Result      grading.ScoreSet `json:"result"`
}

// gradeRequest holds the optional per-run overrides of a grading run.
type gradeRequest struct {
	Points              *int  `json:"points"`
	UseEvaluator        *bool `json:"use_evaluator"`
	RegenerateReference bool  `json:"regenerate_reference"`
}

// question builds the question to grade from the stored one.
func (r gradeRequest) question(q *models.Question) (grading.Question, error) {
	out := grading.Question{Text: q.Text, LanguageHint: q.LanguageHint, Points: q.Points, Reference: q.Reference}
	if r.Points != nil {
		if *r.Points <= 0 {
			return grading.Question{}, fmt.Errorf("%w: got %d", grading.ErrInvalidPoints, *r.Points)
		}
		out.Points = *r.Points
	}
	if r.RegenerateReference {
		out.Reference = ""
	}
	return out, nil
}

// gradeHandler runs the grading pipeline over every candidate of the question
// and stores the run.
func (s *server) gradeHandler(c *gin.Context) {
	q, ok := s.loadQuestion(c)
	if !ok {
		return
	}
	var req gradeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	question, err := req.question(q)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	useEvaluator := s.cfg.Grading.UseEvaluator
	if req.UseEvaluator != nil {
		useEvaluator = *req.UseEvaluator
	}
	var stored []models.Candidate
	if err := s.db.Where("question_id = ?", q.ID).Order("id").Find(&stored).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	ctx := c.Request.Context()
	candidates := make([]grading.Candidate, len(stored))
	for i, sc := range stored {
		candidates[i] = grading.Candidate{Name: sc.Name, Text: sc.Text, Quality: sc.Quality}
		if sc.Text == "" && sc.ImageKey != "" {
			path, cleanup, err := s.store.Fetch(ctx, sc.ImageKey)
			if err != nil {
				log.Printf("GRADE cannot fetch %s: %v", sc.ImageKey, err)
				continue
			}
			defer cleanup()
			candidates[i].ImagePath = path
		}
	}
	run, err := s.pipeline(useEvaluator).Run(ctx, question, candidates)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	out := make([]gradedCandidate, len(run.Results))
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if run.ReferenceOK && run.Reference != q.Reference {
			if err := tx.Model(q).Update("reference", run.Reference).Error; err != nil {
				return err
			}
		}
		for i, r := range run.Results {
			sc := stored[i]
			if sc.Text == "" && r.Candidate.Text != "" {
				if err := tx.Model(&sc).Updates(map[string]any{"text": r.Candidate.Text, "quality": r.Candidate.Quality, "failed": false}).Error; err != nil {
					return err
				}
			}
			if err := tx.Create(scoreRecord(q.ID, sc.ID, run.ID, r.Scores)).Error; err != nil {
				return err
			}
			out[i] = gradedCandidate{CandidateID: sc.ID, Name: sc.Name, Text: r.Candidate.Text, Quality: r.Candidate.Quality, Result: r.Scores}
		}
		return nil
	})
	if err != nil {
		log.Printf("GRADE persist run %s failed: %v", run.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store grading run"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.ID, "reference": run.Reference, "results": out})
}

// resultsHandler returns the latest run of a question; ?format=html renders
// a report page.
func (s *server) resultsHandler(c *gin.Context) {
	q, ok := s.loadQuestion(c)
	if !ok {
		return
	}
	var latest models.Score
	if err := s.db.Where("question_id = ?", q.ID).Order("created_at desc, id desc").First(&latest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "question has not been graded"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	var scores []models.Score
	if err := s.db.Where("question_id = ? AND run_id = ?", q.ID, latest.RunID).Order("id").Find(&scores).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	var cands []models.Candidate
	if err := s.db.Where("question_id = ?", q.ID).Find(&cands).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	names := make(map[uint]string, len(cands))
	for _, cd := range cands {
		names[cd.ID] = cd.Name
	}
	rows := make([]reportRow, len(scores))
	for i, sc := range scores {
		rows[i] = reportRow{Name: names[sc.CandidateID], Scores: criterionScores(sc), Final: sc.FinalScore, Points: sc.ExamPoints}
	}
	if c.Query("format") == "html" {
		page, err := renderMarkdown(resultsMarkdown(q.Text, q.Reference, q.Points, rows))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
		return
	}
	refHTML, _ := renderMarkdown(q.Reference)
	c.JSON(http.StatusOK, gin.H{"question_id": q.ID, "run_id": latest.RunID, "reference": q.Reference, "reference_html": refHTML, "results": rows})
}

func scoreRecord(questionID, candidateID uint, runID string, set grading.ScoreSet) *models.Score {
	rec := &models.Score{
		QuestionID:    questionID,
		CandidateID:   candidateID,
		RunID:         runID,
		Correctness:   set.Get(grading.Correctness),
		Syntax:        set.Get(grading.Syntax),
		CodeStructure: set.Get(grading.CodeStructure),
		Efficiency:    set.Get(grading.Efficiency),
		EdgeCases:     set.Get(grading.EdgeCases),
		FinalScore:    set.FinalScore,
		Method:        set.Method,
		Feedback:      set.Feedback,
	}
	if set.ExamPoints != nil {
		rec.ExamPoints = *set.ExamPoints
	}
	return rec
}

func criterionScores(sc models.Score) map[string]int {
	return map[string]int{
		grading.Correctness:   sc.Correctness,
		grading.Syntax:        sc.Syntax,
		grading.CodeStructure: sc.CodeStructure,
		grading.Efficiency:    sc.Efficiency,
		grading.EdgeCases:     sc.EdgeCases,
	}
}

// saveUpload stores an uploaded file under folder with a fresh name and
// returns its key.
func (s *server) saveUpload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	key := fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), strings.ToLower(filepath.Ext(fh.Filename)))
	if err := s.store.Put(ctx, key, f, fh.Size, fh.Header.Get("Content-Type")); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return key, nil
}

func (s *server) recognizeKey(ctx context.Context, key string) (ocr.Recognition, error) {
	path, cleanup, err := s.store.Fetch(ctx, key)
	if err != nil {
		return ocr.Recognition{}, err
	}
	defer cleanup()
	rec, err := s.recognizer.Recognize(ctx, path, s.cfg.OCR.Enhance)
	if err != nil {
		log.Printf("OCR failed for %s: %v", key, err)
		return ocr.Recognition{}, err
	}
	log.Printf("OCR %s quality=%d text=%q", key, rec.Quality, ocr.Snippet(rec.Text, 80))
	return rec, nil
}
