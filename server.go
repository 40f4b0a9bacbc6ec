package main

import (
	"context"
	"log"

	"examgrader/pkg/config"
	"examgrader/pkg/gemini"
	"examgrader/pkg/grading"
	"examgrader/pkg/ocr"
	"examgrader/pkg/ocr/engine"
	"examgrader/pkg/storage"

	"gorm.io/gorm"
)

// server carries every dependency the handlers need.
type server struct {
	cfg        *config.Config
	db         *gorm.DB
	store      storage.Store
	recognizer ocr.TextRecognizer
	generator  grading.AnswerGenerator
	evaluator  grading.AnswerEvaluator
	jwtSecret  []byte
}

func newServer(ctx context.Context, cfg *config.Config) (*server, error) {
	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := migrate(db); err != nil {
			return nil, err
		}
	}
	if err := seed(db); err != nil {
		log.Printf("seed warning: %v", err)
	}
	store, err := storage.New(ctx, cfg.Storage, cfg.UploadBase)
	if err != nil {
		return nil, err
	}
	client := newGeminiClient(cfg.Gemini)
	return &server{
		cfg:        cfg,
		db:         db,
		store:      store,
		recognizer: engine.New(ctx, cfg.OCR),
		generator:  client,
		evaluator:  client,
		jwtSecret:  []byte(cfg.JWTSecret),
	}, nil
}

func newGeminiClient(c config.GeminiConfig) *gemini.Client {
	if c.APIKey == "" {
		log.Println("GEMINI.API_KEY not set; reference answers will carry an error sentinel")
	}
	opts := []gemini.Option{gemini.WithEndpoint(c.Endpoint), gemini.WithModel(c.Model)}
	if c.Timeout > 0 {
		opts = append(opts, gemini.WithTimeout(c.Timeout))
	}
	return gemini.New(c.APIKey, opts...)
}

// scorer picks the evaluator-backed scorer when requested and available.
func (s *server) scorer(useEvaluator bool) grading.Scorer {
	if useEvaluator && s.evaluator != nil {
		return grading.NewEvaluatorScorer(s.evaluator)
	}
	return grading.BaselineScorer{}
}

func (s *server) pipeline(useEvaluator bool) *grading.Pipeline {
	return &grading.Pipeline{
		Generator:  s.generator,
		Recognizer: s.recognizer,
		Scorer:     s.scorer(useEvaluator),
		Enhance:    s.cfg.OCR.Enhance,
		Repair:     s.cfg.OCR.Repair,

		IsFailedReference: gemini.IsSentinel,
	}
}
