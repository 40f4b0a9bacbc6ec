package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"examgrader/models"
	"examgrader/pkg/config"
	"examgrader/pkg/gemini"
	"examgrader/pkg/grading"
	"examgrader/pkg/ocr"
	"examgrader/pkg/ocr/engine"
)

var verbose bool

// grader holds the state shared by the initial scan and watch mode.
type grader struct {
	cfg      *config.Config
	pipeline *grading.Pipeline
	question grading.Question
	out      io.Writer
	db       *gorm.DB // nil unless -persist
	owner    string
	dbQ      *models.Question
	archive  string
}

// Main: grades every answer image in a directory against one question,
// optionally watching the directory for new images.
func main() {
	dirFlag := flag.String("dir", "answers", "directory of answer images")
	questionText := flag.String("question", "", "question text")
	questionFile := flag.String("question-file", "", "file holding the question (text, or an image to transcribe)")
	reference := flag.String("reference", "", "reference answer; generated with Gemini when empty")
	hint := flag.String("hint", "", "programming language of the expected answer")
	points := flag.Int("points", 0, "points the question is worth (default GRADING.DEFAULT_POINTS)")
	useEvaluator := flag.Bool("evaluator", false, "score with the Gemini evaluator instead of the local heuristic")
	watch := flag.Bool("watch", false, "keep grading new images added to -dir")
	archive := flag.String("archive", "", "move graded images into this directory (large images are downscaled)")
	persist := flag.Bool("persist", false, "store question, answers and scores in the database")
	owner := flag.String("owner", "admin", "username that owns persisted questions")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	recognizer := engine.New(ctx, cfg.OCR)
	q := grading.Question{Text: *questionText, LanguageHint: *hint, Points: *points, Reference: *reference}
	if q.Points == 0 {
		q.Points = cfg.Grading.DefaultPoints
	}
	switch ext := strings.ToLower(filepath.Ext(*questionFile)); {
	case *questionFile == "":
	case ext == ".yaml" || ext == ".yml":
		if err := mergeQuestionYAML(&q, *questionFile); err != nil {
			log.Fatalf("question: %v", err)
		}
	default:
		if q.Text, err = readQuestion(ctx, recognizer, *questionFile, cfg.OCR.Enhance); err != nil {
			log.Fatalf("question: %v", err)
		}
	}
	if strings.TrimSpace(q.Text) == "" && q.Reference == "" {
		log.Fatalf("-question, -question-file or -reference is required")
	}

	client := gemini.New(cfg.Gemini.APIKey, gemini.WithEndpoint(cfg.Gemini.Endpoint), gemini.WithModel(cfg.Gemini.Model), gemini.WithTimeout(cfg.Gemini.Timeout))
	var scorer grading.Scorer = grading.BaselineScorer{}
	if *useEvaluator || cfg.Grading.UseEvaluator {
		scorer = grading.NewEvaluatorScorer(client)
	}
	g := &grader{
		cfg: cfg,
		pipeline: &grading.Pipeline{
			Generator:  client,
			Recognizer: recognizer,
			Scorer:     scorer,
			Enhance:    cfg.OCR.Enhance,
			Repair:     cfg.OCR.Repair,

			IsFailedReference: gemini.IsSentinel,
		},
		question: q,
		out:      os.Stdout,
		owner:    *owner,
		archive:  *archive,
	}
	if *persist {
		g.db = mustInitDB(cfg.DatabaseDSN)
	}

	files := listImageFiles(*dirFlag)
	log.Printf("Grading %d files in %s", len(files), *dirFlag)
	if len(files) > 0 {
		if err := g.grade(ctx, *dirFlag, files); err != nil {
			log.Fatalf("grade: %v", err)
		}
	}
	if *watch {
		if err := g.watchDirectory(ctx, *dirFlag); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func mustInitDB(dsn string) *gorm.DB {
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to use -persist")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// readQuestion returns the text of a question file, transcribing images.
func readQuestion(ctx context.Context, r ocr.TextRecognizer, path string, enhance bool) (string, error) {
	if isSupportedExt(filepath.Base(path)) {
		rec, err := r.Recognize(ctx, path, enhance)
		if err != nil {
			return "", err
		}
		logV("OCR question quality=%d", rec.Quality)
		return rec.Text, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// questionYAML is the on-disk form of a question for -question-file *.yaml.
type questionYAML struct {
	Question  string `yaml:"question"`
	Language  string `yaml:"language"`
	Points    int    `yaml:"points"`
	Reference string `yaml:"reference"`
}

// mergeQuestionYAML fills the fields of q that flags left empty.
func mergeQuestionYAML(q *grading.Question, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f questionYAML
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if q.Text == "" {
		q.Text = strings.TrimSpace(f.Question)
	}
	if q.LanguageHint == "" {
		q.LanguageHint = f.Language
	}
	if q.Reference == "" {
		q.Reference = f.Reference
	}
	if f.Points != 0 && !pointsFlagSet() {
		q.Points = f.Points
	}
	return nil
}

func pointsFlagSet() bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "points" {
			set = true
		}
	})
	return set
}

// grade runs one sequential grading pass over names and prints the table.
// A successfully generated reference is kept so later passes reuse it.
func (g *grader) grade(ctx context.Context, dir string, names []string) error {
	candidates := make([]grading.Candidate, len(names))
	for i, n := range names {
		candidates[i] = grading.Candidate{Name: candidateName(n), ImagePath: filepath.Join(dir, n)}
	}
	run, err := g.pipeline.Run(ctx, g.question, candidates)
	if err != nil {
		return err
	}
	if run.ReferenceOK {
		g.question.Reference = run.Reference
	} else {
		log.Printf("WARN reference for run %s failed; the next pass generates it again", run.ID)
	}
	printTable(g.out, run)
	if g.db != nil {
		if err := g.persist(run); err != nil {
			log.Printf("WARN persist run %s failed: %v", run.ID, err)
		}
	}
	if g.archive != "" {
		for _, n := range names {
			if err := moveToArchive(filepath.Join(dir, n), g.archive, n); err != nil {
				log.Printf("WARN failed to archive %s: %v", n, err)
			} else {
				logV("archived %s to %s", n, g.archive)
			}
		}
	}
	return nil
}

// persist stores the run. The question row is created on the first pass and
// reused by later watch passes.
func (g *grader) persist(run grading.Run) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		if g.dbQ == nil {
			var owner models.User
			if err := tx.Where("username = ?", g.owner).First(&owner).Error; err != nil {
				return fmt.Errorf("owner %s: %w", g.owner, err)
			}
			q := models.Question{OwnerID: owner.ID, Text: g.question.Text, LanguageHint: g.question.LanguageHint, Points: g.question.Points}
			if run.ReferenceOK {
				q.Reference = run.Reference
			}
			if err := tx.Create(&q).Error; err != nil {
				return err
			}
			g.dbQ = &q
			log.Printf("NEW question id=%d", q.ID)
		} else if run.ReferenceOK && g.dbQ.Reference != run.Reference {
			if err := tx.Model(g.dbQ).Update("reference", run.Reference).Error; err != nil {
				return err
			}
		}
		for _, r := range run.Results {
			points := 0
			if r.Scores.ExamPoints != nil {
				points = *r.Scores.ExamPoints
			}
			cand := models.Candidate{QuestionID: g.dbQ.ID, Name: r.Candidate.Name}
			if err := tx.Where(models.Candidate{QuestionID: g.dbQ.ID, Name: r.Candidate.Name}).
				Assign(models.Candidate{Text: r.Candidate.Text, Quality: r.Candidate.Quality}).
				FirstOrCreate(&cand).Error; err != nil {
				return err
			}
			s := models.Score{
				QuestionID:    g.dbQ.ID,
				CandidateID:   cand.ID,
				RunID:         run.ID,
				Correctness:   r.Scores.Get(grading.Correctness),
				Syntax:        r.Scores.Get(grading.Syntax),
				CodeStructure: r.Scores.Get(grading.CodeStructure),
				Efficiency:    r.Scores.Get(grading.Efficiency),
				EdgeCases:     r.Scores.Get(grading.EdgeCases),
				FinalScore:    r.Scores.FinalScore,
				ExamPoints:    points,
				Method:        r.Scores.Method,
				Feedback:      r.Scores.Feedback,
			}
			if err := tx.Create(&s).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func printTable(w io.Writer, run grading.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	names := grading.CriterionNames()
	fmt.Fprintf(tw, "STUDENT\tQUALITY\t%s\tFINAL\tPOINTS\n", strings.ToUpper(strings.Join(names, "\t")))
	for _, r := range run.Results {
		fmt.Fprintf(tw, "%s\t%d", r.Candidate.Name, r.Candidate.Quality)
		for _, n := range names {
			fmt.Fprintf(tw, "\t%d", r.Scores.Get(n))
		}
		points := 0
		if r.Scores.ExamPoints != nil {
			points = *r.Scores.ExamPoints
		}
		fmt.Fprintf(tw, "\t%d\t%d\n", r.Scores.FinalScore, points)
	}
	tw.Flush()
}

func candidateName(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file))
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// watchDirectory grades newly created images once their writes settle.
// Files are graded one at a time on this goroutine.
func (g *grader) watchDirectory(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	debounce := g.cfg.WatchDebounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	// simple debounce map of pending files
	pending := map[string]time.Time{}
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				name := filepath.Base(ev.Name)
				if !isSupportedExt(name) {
					continue
				}
				pending[name] = time.Now()
			}
		case <-ticker.C:
			ready := stable(pending, time.Now(), debounce)
			if len(ready) == 0 {
				continue
			}
			for _, n := range ready {
				delete(pending, n)
			}
			if err := g.grade(ctx, dir, ready); err != nil {
				log.Printf("grade error: %v", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// stable returns, sorted, the pending names untouched for longer than quiet.
func stable(pending map[string]time.Time, now time.Time, quiet time.Duration) []string {
	var out []string
	for name, t := range pending {
		if now.Sub(t) > quiet {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	// ignore enhanced temp files to avoid recursive processing
	if strings.Contains(name, ".ocr.") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}

// moveToArchive moves a graded image into dir. Images above 1 MB are
// downscaled with imaging; others are renamed, falling back to copy+remove.
func moveToArchive(srcFullPath, dir, name string) error {
	const maxBytes = 1_000_000 // 1 MB budget
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, name)

	fi, err := os.Stat(srcFullPath)
	if err != nil {
		return err
	}
	if fi.Size() <= maxBytes {
		if err := os.Rename(srcFullPath, dst); err == nil {
			return nil
		}
		return copyRemove(srcFullPath, dst)
	}
	img, err := imaging.Open(srcFullPath)
	if err != nil { // fallback to raw move if cannot decode
		if err := os.Rename(srcFullPath, dst); err == nil {
			return nil
		}
		return copyRemove(srcFullPath, dst)
	}
	// size roughly scales with area
	scale := math.Sqrt(float64(maxBytes) / float64(fi.Size()))
	scale = math.Max(0.1, math.Min(scale, 0.95))
	w := img.Bounds().Dx()
	newW := int(math.Max(1, math.Round(float64(w)*scale)))
	resized := imaging.Resize(img, newW, 0, imaging.Lanczos)
	if err := imaging.Save(resized, dst); err != nil {
		if err := os.Rename(srcFullPath, dst); err == nil {
			return nil
		}
		return copyRemove(srcFullPath, dst)
	}
	return os.Remove(srcFullPath)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
