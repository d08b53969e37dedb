package review

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/common"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
)

type memQueue struct {
	mu      sync.Mutex
	records map[string]entity.ExtractionRecord
	removed []string
}

func (q *memQueue) GetByID(_ context.Context, id string) (entity.ExtractionRecord, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.records[id]
	return r, ok, nil
}

func (q *memQueue) Remove(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.records[id]; !ok {
		return common.NotFoundf("record %s not found", id)
	}
	delete(q.records, id)
	q.removed = append(q.removed, id)
	return nil
}

func (q *memQueue) Update(_ context.Context, id string, upd entity.RecordUpdate) (entity.ExtractionRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.records[id]
	if !ok {
		return entity.ExtractionRecord{}, common.NotFoundf("record %s not found", id)
	}
	r = upd.Apply(r)
	q.records[id] = r
	return r, nil
}

type fakeSink struct {
	rows []entity.ExtractionRecord
	err  error
}

func (s *fakeSink) Append(_ context.Context, rec entity.ExtractionRecord) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.rows = append(s.rows, rec)
	return len(s.rows) + 1, nil
}

func setup(t *testing.T, source string) (*Service, *memQueue, *fakeSink, entity.ExtractionRecord) {
	t.Helper()
	var f entity.Fields
	f.Set(constants.FieldClientName, "A")
	rec, err := entity.NewExtractionRecord(entity.RecordInput{
		Type: constants.RecordTypeForm, SourceFile: source, Fields: f, Confidence: 0.5,
	})
	require.NoError(t, err)
	q := &memQueue{records: map[string]entity.ExtractionRecord{rec.ID: rec}}
	sink := &fakeSink{}
	return NewService(q, sink, zaptest.NewLogger(t)), q, sink, rec
}

func TestApprove(t *testing.T) {
	s, q, sink, rec := setup(t, "forms/a.html")
	res, err := s.Approve(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.SheetRow)
	assert.Equal(t, 2, *res.SheetRow)
	assert.Len(t, sink.rows, 1)
	assert.Equal(t, []string{rec.ID}, q.removed)

	_, err = s.Approve(context.Background(), rec.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestApprove_SinkFailureKeepsRecord(t *testing.T) {
	s, q, sink, rec := setup(t, "forms/a.html")
	sink.err = errors.New("quota exceeded")

	res, err := s.Approve(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Nil(t, res.SheetRow)
	assert.Contains(t, res.Error, "quota exceeded")
	assert.Contains(t, q.records, rec.ID)
}

func TestReject(t *testing.T) {
	s, q, _, rec := setup(t, "forms/a.html")
	require.NoError(t, s.Reject(context.Background(), rec.ID))
	assert.Empty(t, q.records)
	assert.True(t, errors.Is(s.Reject(context.Background(), rec.ID), common.ErrNotFound))
}

func TestEdit(t *testing.T) {
	s, _, _, rec := setup(t, "forms/a.html")
	ctx := context.Background()

	phone := "2101234567"
	got, err := s.Edit(ctx, rec.ID, entity.RecordUpdate{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, entity.Deref(got.Phone))

	_, err = s.Edit(ctx, rec.ID, entity.RecordUpdate{})
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	bad := "nope"
	_, err = s.Edit(ctx, rec.ID, entity.RecordUpdate{Email: &bad})
	assert.True(t, errors.Is(err, common.ErrValidation))

	_, err = s.Edit(ctx, "missing", entity.RecordUpdate{Phone: &phone})
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contact.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>hi</p>"), 0o644))
	s, _, _, rec := setup(t, path)

	src, err := s.Source(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceFile{Content: "<p>hi</p>", Type: "text/html", Filename: "contact.html"}, src)

	require.NoError(t, os.Remove(path))
	_, err = s.Source(context.Background(), rec.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
