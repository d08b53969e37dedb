// Package export appends approved records to the Clients and Invoices sheets of an XLSX workbook.
package export

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
	"github.com/joseph-ayodele/intake-tracker/internal/logging"
)

const (
	ClientsSheet  = "Clients"
	InvoicesSheet = "Invoices"

	// excel rejects longer cell values
	maxCellChars = 32767
)

// ErrSheetTypeMismatch is returned when a record does not belong on the requested sheet.
var ErrSheetTypeMismatch = errors.New("record type does not match sheet")

var clientHeaders = []string{
	"Type", "Source", "Date", "Client Name", "Email", "Phone", "Company",
	"Service Interest", "Priority", "Message", "Extraction Timestamp", "Confidence",
}

var invoiceHeaders = []string{
	"Type", "Source", "Date", "Client Name", "Amount", "VAT", "Total Amount",
	"Invoice Number", "Extraction Timestamp", "Confidence",
}

type Option func(*Service)

// WithRetry sets the attempt count and the first backoff delay.
func WithRetry(attempts int, base time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.attempts = attempts
		}
		s.baseDelay = base
	}
}

// Service is the spreadsheet sink. Writes are serialized; the workbook is reopened for each
// append so external edits between approvals are preserved.
type Service struct {
	path      string
	logger    *zap.Logger
	attempts  int
	baseDelay time.Duration

	mu sync.Mutex
}

func NewService(path string, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		path:      path,
		logger:    logging.OrNop(logger),
		attempts:  3,
		baseDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path is the workbook location.
func (s *Service) Path() string { return s.path }

// SheetFor picks the destination sheet: invoices, or any record carrying an invoice number,
// go to Invoices; everything else to Clients.
func SheetFor(rec entity.ExtractionRecord) string {
	if rec.Type == constants.RecordTypeInvoice || entity.Deref(rec.InvoiceNumber) != "" {
		return InvoicesSheet
	}
	return ClientsSheet
}

// Append writes rec to the sheet chosen by SheetFor and returns its 1-based row number.
func (s *Service) Append(ctx context.Context, rec entity.ExtractionRecord) (int, error) {
	if SheetFor(rec) == InvoicesSheet {
		return s.WriteInvoiceRecord(ctx, rec)
	}
	return s.WriteClientRecord(ctx, rec)
}

// WriteClientRecord appends a FORM or EMAIL record to the Clients sheet.
func (s *Service) WriteClientRecord(ctx context.Context, rec entity.ExtractionRecord) (int, error) {
	if !rec.Type.IsClient() {
		return 0, errors.Mark(
			errors.Newf("cannot write record type %s to %s sheet, expected FORM or EMAIL", rec.Type, ClientsSheet),
			ErrSheetTypeMismatch)
	}
	row := []any{
		string(rec.Type),
		rec.SourceFile,
		entity.Deref(rec.Date),
		entity.Deref(rec.ClientName),
		entity.Deref(rec.Email),
		entity.Deref(rec.Phone),
		entity.Deref(rec.Company),
		entity.Deref(rec.ServiceInterest),
		entity.Deref(rec.Priority),
		truncate(entity.Deref(rec.Message), maxCellChars),
		rec.ExtractionTimestamp.Format(time.RFC3339),
		fixed2(rec.Confidence),
	}
	return s.appendWithRetry(ctx, ClientsSheet, row, rec)
}

// WriteInvoiceRecord appends to the Invoices sheet. Client-type records are accepted when they
// carry invoice data (an email with an attached invoice).
func (s *Service) WriteInvoiceRecord(ctx context.Context, rec entity.ExtractionRecord) (int, error) {
	if rec.Type != constants.RecordTypeInvoice && !(rec.Type.IsClient() && rec.HasInvoiceData()) {
		return 0, errors.Mark(
			errors.Newf("cannot write record type %s to %s sheet, expected INVOICE", rec.Type, InvoicesSheet),
			ErrSheetTypeMismatch)
	}
	row := []any{
		string(rec.Type),
		rec.SourceFile,
		entity.Deref(rec.Date),
		entity.Deref(rec.ClientName),
		fixed2(rec.Amount),
		fixed2(rec.VAT),
		fixed2(rec.TotalAmount),
		entity.Deref(rec.InvoiceNumber),
		rec.ExtractionTimestamp.Format(time.RFC3339),
		fixed2(rec.Confidence),
	}
	return s.appendWithRetry(ctx, InvoicesSheet, row, rec)
}

func (s *Service) appendWithRetry(ctx context.Context, sheet string, row []any, rec entity.ExtractionRecord) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		n, err := s.appendRow(sheet, row)
		if err == nil {
			s.logger.Info("export.row.written",
				zap.String("sheet", sheet),
				zap.String("record_id", rec.ID),
				zap.Int("row", n),
				zap.String("source_file", rec.SourceFile),
			)
			return n, nil
		}
		lastErr = err
		s.logger.Warn("export.row.retry",
			zap.String("sheet", sheet),
			zap.String("record_id", rec.ID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == s.attempts {
			break
		}
		delay := s.baseDelay * time.Duration(1<<(attempt-1))
		select {
		case <-ctx.Done():
			return 0, errors.Wrap(ctx.Err(), "append row")
		case <-time.After(delay):
		}
	}
	s.logger.Error("export.row.failed", zap.String("sheet", sheet), zap.String("record_id", rec.ID), zap.Error(lastErr))
	return 0, errors.Wrapf(lastErr, "append to %s after %d attempts", sheet, s.attempts)
}

func (s *Service) appendRow(sheet string, values []any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return 0, err
	}
	defer func() { _ = closeWorkbook(f) }()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, errors.Wrapf(err, "read %s", sheet)
	}
	rowNum := len(rows) + 1
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return 0, err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return 0, errors.Wrapf(err, "write %s row %d", sheet, rowNum)
	}
	if err := f.SaveAs(s.path); err != nil {
		return 0, errors.Wrap(err, "xlsx write")
	}
	return rowNum, nil
}

// open loads the workbook, creating it with both sheets and their headers when missing.
func (s *Service) open() (*excelize.File, error) {
	if _, err := os.Stat(s.path); err == nil {
		f, err := excelize.OpenFile(s.path)
		if err != nil {
			return nil, errors.Wrapf(err, "open workbook %s", s.path)
		}
		if err := prepareWorkbook(f); err != nil {
			_ = closeWorkbook(f)
			return nil, err
		}
		return f, nil
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat workbook %s", s.path)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create %s", dir)
		}
	}
	f := excelize.NewFile()
	if err := prepareWorkbook(f); err != nil {
		_ = closeWorkbook(f)
		return nil, err
	}
	if idx, _ := f.GetSheetIndex(ClientsSheet); idx >= 0 {
		f.SetActiveSheet(idx)
	}
	_ = f.DeleteSheet("Sheet1")

	// widen a few columns
	_ = f.SetColWidth(ClientsSheet, "B", "B", 40) // source
	_ = f.SetColWidth(ClientsSheet, "D", "E", 24) // name, email
	_ = f.SetColWidth(ClientsSheet, "J", "J", 60) // message
	_ = f.SetColWidth(InvoicesSheet, "B", "B", 40)
	_ = f.SetColWidth(InvoicesSheet, "D", "D", 24)
	_ = f.SetColWidth(InvoicesSheet, "E", "G", 14) // amounts
	return f, nil
}

// swapped in tests
var (
	prepareWorkbook = ensureSheets
	closeWorkbook   = func(f *excelize.File) error { return f.Close() }
)

// ensureSheets adds whichever of the two sheets is missing, with its header row.
func ensureSheets(f *excelize.File) error {
	if err := ensureSheet(f, ClientsSheet, clientHeaders); err != nil {
		return err
	}
	return ensureSheet(f, InvoicesSheet, invoiceHeaders)
}

func ensureSheet(f *excelize.File, sheet string, headers []string) error {
	if idx, _ := f.GetSheetIndex(sheet); idx != -1 {
		return nil
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.Wrapf(err, "create sheet %s", sheet)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	return nil
}

func fixed2(v *float64) string {
	if v == nil {
		return ""
	}
	return decimal.NewFromFloat(*v).StringFixed(2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// RowLabel renders a row number for logs and CLI output.
func RowLabel(sheet string, row int) string {
	return sheet + "!" + strconv.Itoa(row)
}
