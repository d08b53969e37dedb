// Package extraction discovers new source documents, extracts and scores them, and hands the
// resulting records to the pending queue.
package extraction

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/common"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
	"github.com/joseph-ayodele/intake-tracker/internal/extract"
	"github.com/joseph-ayodele/intake-tracker/internal/hybrid"
	"github.com/joseph-ayodele/intake-tracker/internal/ingest"
	"github.com/joseph-ayodele/intake-tracker/internal/llm"
	"github.com/joseph-ayodele/intake-tracker/internal/logging"
)

const (
	DefaultFileTimeout = 30 * time.Second
	DefaultMaxErrors   = 100

	ErrorPenalty   = 0.15
	WarningPenalty = 0.05
)

var (
	// ErrInFlight means another caller is already processing the same path.
	ErrInFlight = errors.Mark(errors.New("file is already being processed"), common.ErrSkipped)
	// ErrAlreadyProcessed means the path was turned into a record earlier.
	ErrAlreadyProcessed = errors.Mark(errors.New("file already processed"), common.ErrSkipped)
)

// Queue is the subset of the pending queue the orchestrator needs.
type Queue interface {
	Add(ctx context.Context, rec entity.ExtractionRecord) error
	MarkFileProcessed(ctx context.Context, path string) error
	IsFileProcessed(ctx context.Context, path string) (bool, error)
}

// Extractor produces the accepted extraction for one document.
type Extractor interface {
	Extract(ctx context.Context, doc extract.Document) (hybrid.Outcome, error)
}

type Config struct {
	BaseDir     string
	FileTimeout time.Duration
	MaxErrors   int
}

// Service is the extraction orchestrator.
type Service struct {
	queue     Queue
	extractor Extractor
	cfg       Config
	logger    *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewService(q Queue, ex Extractor, cfg Config, logger *zap.Logger) *Service {
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = DefaultFileTimeout
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = DefaultMaxErrors
	}
	return &Service{
		queue:     q,
		extractor: ex,
		cfg:       cfg,
		logger:    logging.OrNop(logger),
		inFlight:  make(map[string]struct{}),
	}
}

// ScanAndExtract processes every unprocessed document, one at a time. Per-file failures are
// collected in the result; only discovery failures and caller cancellation return an error.
func (s *Service) ScanAndExtract(ctx context.Context) (entity.ScanResult, error) {
	res := entity.ScanResult{Errors: []string{}}
	start := time.Now()

	items, stats, err := ingest.Discover(ctx, s.cfg.BaseDir, s.queue)
	if err != nil {
		s.logger.Error("extraction.scan.discover_failed", zap.Error(err))
		return res, errors.Wrap(err, "discover documents")
	}
	s.logger.Info("extraction.scan.start",
		zap.String("base_dir", s.cfg.BaseDir),
		zap.Int("new_files", len(items)),
		zap.Uint32("scanned", stats.Scanned),
		zap.Uint32("already_processed", stats.AlreadyProcessed),
	)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("extraction.scan.cancelled", zap.Int("remaining", len(items)-i))
			return res, err
		}

		_, err := s.process(ctx, item)
		switch {
		case err == nil:
			res.ProcessedCount++
			res.NewItemsCount++
		case errors.Is(err, ErrInFlight), errors.Is(err, ErrAlreadyProcessed):
			s.logger.Debug("extraction.file.skipped", zap.String("path", item.Path), zap.Error(err))
		default:
			res.FailedCount++
			if len(res.Errors) < s.cfg.MaxErrors {
				res.Errors = append(res.Errors, err.Error())
			}
		}
	}

	s.logger.Info("extraction.scan.completed",
		zap.Int("processed", res.ProcessedCount),
		zap.Int("new_items", res.NewItemsCount),
		zap.Int("failed", res.FailedCount),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// ProcessFile extracts and enqueues a single path, as the watcher does for newly dropped files.
// The returned error carries the same message a scan would record.
func (s *Service) ProcessFile(ctx context.Context, path string) (entity.ExtractionRecord, error) {
	t, err := ingest.Route(path)
	if err != nil {
		return entity.ExtractionRecord{}, errors.Wrapf(err, "Error processing %s", path)
	}
	return s.process(ctx, ingest.Item{Path: path, Type: t})
}

type outcomeOrErr struct {
	out hybrid.Outcome
	err error
}

func (s *Service) process(ctx context.Context, item ingest.Item) (entity.ExtractionRecord, error) {
	if !s.acquire(item.Path) {
		return entity.ExtractionRecord{}, ErrInFlight
	}
	defer s.release(item.Path)

	// another caller may have finished this path between discovery and acquire
	done, err := s.queue.IsFileProcessed(ctx, item.Path)
	if err != nil {
		return entity.ExtractionRecord{}, errors.Wrapf(err, "Error processing %s", item.Path)
	}
	if done {
		return entity.ExtractionRecord{}, ErrAlreadyProcessed
	}

	log := s.logger.With(zap.String("path", item.Path), zap.String("type", string(item.Type)))
	start := time.Now()

	fctx, cancel := context.WithTimeout(ctx, s.cfg.FileTimeout)
	defer cancel()

	// parsing runs off the caller's goroutine so an overrun can be abandoned
	ch := make(chan outcomeOrErr, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcomeOrErr{err: errors.Newf("extractor panic: %v", r)}
			}
		}()
		doc, err := extract.ReadDocument(item.Path, item.Type)
		if err != nil {
			ch <- outcomeOrErr{err: err}
			return
		}
		out, err := s.extractor.Extract(fctx, doc)
		ch <- outcomeOrErr{out: out, err: err}
	}()

	var got outcomeOrErr
	select {
	case got = <-ch:
	case <-fctx.Done():
		if ctx.Err() == nil {
			log.Warn("extraction.file.timeout", zap.Duration("timeout", s.cfg.FileTimeout))
			return entity.ExtractionRecord{}, errors.Newf("Timeout processing %s (exceeded %ds)", item.Path, int(s.cfg.FileTimeout.Seconds()))
		}
		return entity.ExtractionRecord{}, errors.Wrapf(ctx.Err(), "Error processing %s", item.Path)
	}
	if got.err != nil {
		if errors.Is(got.err, context.DeadlineExceeded) && ctx.Err() == nil {
			log.Warn("extraction.file.timeout", zap.Duration("timeout", s.cfg.FileTimeout))
			return entity.ExtractionRecord{}, errors.Newf("Timeout processing %s (exceeded %ds)", item.Path, int(s.cfg.FileTimeout.Seconds()))
		}
		log.Error("extraction.file.failed", zap.Error(got.err))
		return entity.ExtractionRecord{}, errors.Wrapf(got.err, "Error processing %s", item.Path)
	}

	out := got.out
	confidence := Score(item.Type, out)
	rec, err := entity.NewExtractionRecord(entity.RecordInput{
		Type:             item.Type,
		SourceFile:       item.Path,
		Fields:           out.Fields,
		Confidence:       confidence,
		Warnings:         out.Warnings,
		Method:           out.Method,
		FieldConfidences: out.FieldConfidences,
		RawExtraction:    out.Raw,
	})
	if err != nil {
		return entity.ExtractionRecord{}, errors.Wrapf(err, "Error processing %s", item.Path)
	}

	if err := s.queue.Add(ctx, rec); err != nil {
		log.Error("extraction.file.enqueue_failed", zap.Error(err))
		return entity.ExtractionRecord{}, errors.Wrapf(err, "Error processing %s", item.Path)
	}
	// marked only after the record is safely queued
	if err := s.queue.MarkFileProcessed(ctx, item.Path); err != nil {
		log.Error("extraction.file.mark_failed", zap.String("record_id", rec.ID), zap.Error(err))
		return rec, errors.Wrapf(err, "Error processing %s", item.Path)
	}

	errCount, warnCount := entity.CountBySeverity(out.Warnings)
	log.Info("extraction.file.queued",
		zap.String("record_id", rec.ID),
		zap.String("method", string(out.Method)),
		zap.Float64("confidence", confidence),
		zap.Int("errors", errCount),
		zap.Int("warnings", warnCount),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rec, nil
}

func (s *Service) acquire(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[path]; busy {
		return false
	}
	s.inFlight[path] = struct{}{}
	return true
}

func (s *Service) release(path string) {
	s.mu.Lock()
	delete(s.inFlight, path)
	s.mu.Unlock()
}

// Score is the final record confidence: the AI confidence, or the completeness estimate when the
// rule-based extractor produced the fields, minus 0.15 per error and 0.05 per warning, clamped to
// [0, 1] and rounded to three decimals.
func Score(t constants.RecordType, out hybrid.Outcome) float64 {
	base := Completeness(t, out.Fields)
	if out.AIConfidence != nil {
		base = *out.AIConfidence
	}
	errCount, warnCount := entity.CountBySeverity(out.Warnings)
	score := base - ErrorPenalty*float64(errCount) - WarningPenalty*float64(warnCount)
	if math.IsNaN(score) {
		score = 0
	}
	score = math.Max(0, math.Min(1, score))
	return llm.Round3(score)
}

// Completeness is the share of the type's required fields that are populated.
func Completeness(t constants.RecordType, f entity.Fields) float64 {
	required := constants.CompletenessFields[t]
	if len(required) == 0 {
		return 0
	}
	have := 0
	for _, name := range required {
		if f.Has(name) {
			have++
		}
	}
	return float64(have) / float64(len(required))
}

// Describe renders a one-line summary of a scan.
func Describe(r entity.ScanResult) string {
	return fmt.Sprintf("processed=%d new=%d failed=%d", r.ProcessedCount, r.NewItemsCount, r.FailedCount)
}
