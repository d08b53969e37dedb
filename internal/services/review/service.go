package review

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/internal/common"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
	"github.com/joseph-ayodele/intake-tracker/internal/export"
	"github.com/joseph-ayodele/intake-tracker/internal/logging"
)

// Queue is what the review surface may do to pending records.
type Queue interface {
	GetByID(ctx context.Context, id string) (entity.ExtractionRecord, bool, error)
	Remove(ctx context.Context, id string) error
	Update(ctx context.Context, id string, upd entity.RecordUpdate) (entity.ExtractionRecord, error)
}

// Sink stores approved records and returns the row they landed on.
type Sink interface {
	Append(ctx context.Context, rec entity.ExtractionRecord) (int, error)
}

// SourceFile is the original document behind a record.
type SourceFile struct {
	Content  string `json:"content"`
	Type     string `json:"type"`
	Filename string `json:"filename"`
}

// Service handles approve, reject, edit and source lookups.
type Service struct {
	queue  Queue
	sink   Sink
	logger *zap.Logger
}

func NewService(q Queue, sink Sink, logger *zap.Logger) *Service {
	return &Service{queue: q, sink: sink, logger: logging.OrNop(logger)}
}

func (s *Service) get(ctx context.Context, id string) (entity.ExtractionRecord, error) {
	rec, ok, err := s.queue.GetByID(ctx, id)
	if err != nil {
		return entity.ExtractionRecord{}, err
	}
	if !ok {
		return entity.ExtractionRecord{}, common.NotFoundf("Record %s not found", id)
	}
	return rec, nil
}

// Approve writes the record to the sheet and then removes it from the queue. A sink failure is
// reported in the result and leaves the record queued.
func (s *Service) Approve(ctx context.Context, id string) (entity.ApprovalResult, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return entity.ApprovalResult{}, err
	}

	row, err := s.sink.Append(ctx, rec)
	if err != nil {
		s.logger.Error("review.approve.sink_failed", zap.String("record_id", id), zap.Error(err))
		return entity.ApprovalResult{
			Success: false,
			Error:   "Failed to write to spreadsheet: " + err.Error(),
		}, nil
	}

	if err := s.queue.Remove(ctx, id); err != nil {
		// the row is written; a concurrent reviewer may have removed the record already
		s.logger.Error("review.approve.remove_failed", zap.String("record_id", id), zap.Int("row", row), zap.Error(err))
		return entity.ApprovalResult{}, errors.Wrapf(err, "remove approved record %s", id)
	}
	s.logger.Info("review.approved",
		zap.String("record_id", id),
		zap.String("type", string(rec.Type)),
		zap.String("sheet", export.SheetFor(rec)),
		zap.Int("row", row),
	)
	return entity.ApprovalResult{Success: true, SheetRow: &row}, nil
}

// Reject drops the record.
func (s *Service) Reject(ctx context.Context, id string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.queue.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Info("review.rejected", zap.String("record_id", id))
	return nil
}

// Edit validates and merges upd into the record.
func (s *Service) Edit(ctx context.Context, id string, upd entity.RecordUpdate) (entity.ExtractionRecord, error) {
	if upd.IsEmpty() {
		return entity.ExtractionRecord{}, common.InvalidInputf("no fields to update")
	}
	if err := upd.Validate(); err != nil {
		return entity.ExtractionRecord{}, err
	}
	if _, err := s.get(ctx, id); err != nil {
		return entity.ExtractionRecord{}, err
	}
	rec, err := s.queue.Update(ctx, id, upd)
	if err != nil {
		return entity.ExtractionRecord{}, err
	}
	s.logger.Info("review.edited", zap.String("record_id", id), zap.Strings("fields", upd.FieldNames()))
	return rec, nil
}

// Source reads the document a record was extracted from.
func (s *Service) Source(ctx context.Context, id string) (SourceFile, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return SourceFile{}, err
	}
	b, err := os.ReadFile(rec.SourceFile)
	if errors.Is(err, os.ErrNotExist) {
		return SourceFile{}, common.NotFoundf("Source file not found: %s", rec.SourceFile)
	}
	if err != nil {
		return SourceFile{}, errors.Wrapf(err, "read source %s", rec.SourceFile)
	}
	ct := "text/plain"
	if strings.EqualFold(filepath.Ext(rec.SourceFile), ".html") {
		ct = "text/html"
	}
	return SourceFile{Content: string(b), Type: ct, Filename: filepath.Base(rec.SourceFile)}, nil
}
