package queue_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/common"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
	"github.com/joseph-ayodele/intake-tracker/internal/queue"
	"github.com/joseph-ayodele/intake-tracker/internal/repository"
)

func newManager(t *testing.T, opts ...queue.Option) *queue.Manager {
	t.Helper()
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	dsn := "file:" + filepath.Join(t.TempDir(), "queue.db") + "?_pragma=busy_timeout(5000)"
	db, err := repository.Open(ctx, repository.Config{Driver: "sqlite", DSN: dsn}, log)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, log) })
	require.NoError(t, repository.Migrate(ctx, db, log))

	opts = append([]queue.Option{queue.WithLogger(log), queue.WithPinger(db)}, opts...)
	return queue.NewManager(
		repository.NewRecordRepository(db, log),
		repository.NewProcessedFileRepository(db, log),
		opts...,
	)
}

func record(t *testing.T) entity.ExtractionRecord {
	t.Helper()
	var f entity.Fields
	f.Set(constants.FieldClientName, "A")
	f.Set(constants.FieldEmail, "a@b.com")
	rec, err := entity.NewExtractionRecord(entity.RecordInput{
		Type:       constants.RecordTypeForm,
		SourceFile: "forms/a.html",
		Fields:     f,
		Confidence: 0.9,
	})
	require.NoError(t, err)
	return rec
}

func next(t *testing.T, sub *queue.Subscription) queue.Event {
	t.Helper()
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	return queue.Event{}
}

func TestManager_AddRemoveLifecycle(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	sub := m.Subscribe()
	defer sub.Unsubscribe()

	rec := record(t)
	require.NoError(t, m.Add(ctx, rec))

	ev := next(t, sub)
	assert.Equal(t, queue.EventRecordAdded, ev.Type)
	assert.Equal(t, rec.ID, ev.Data["record_id"])
	assert.Equal(t, "FORM", ev.Data["type"])
	assert.Equal(t, 0.9, ev.Data["confidence"])

	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, m.Remove(ctx, rec.ID))
	ev = next(t, sub)
	assert.Equal(t, queue.EventRecordRemoved, ev.Type)
	assert.Equal(t, rec.ID, ev.Data["record_id"])

	_, ok, err := m.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = m.Remove(ctx, rec.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestManager_ConcurrentAddSameID(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	sub := m.Subscribe()
	defer sub.Unsubscribe()
	rec := record(t)

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Add(ctx, rec)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, common.ErrConflict))
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, sub.C, 1)
}

func TestManager_Update(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	rec := record(t)
	require.NoError(t, m.Add(ctx, rec))

	sub := m.Subscribe()
	defer sub.Unsubscribe()

	company := "Acme"
	conf := 0.5
	got, err := m.Update(ctx, rec.ID, entity.RecordUpdate{Company: &company, Confidence: &conf})
	require.NoError(t, err)
	assert.Equal(t, "Acme", entity.Deref(got.Company))
	assert.Equal(t, "A", entity.Deref(got.ClientName))
	require.NotNil(t, got.Confidence)
	assert.Equal(t, 0.5, *got.Confidence)
	assert.Equal(t, rec.SourceFile, got.SourceFile)

	ev := next(t, sub)
	assert.Equal(t, queue.EventRecordUpdated, ev.Type)
	assert.Equal(t, []string{constants.FieldCompany, constants.FieldConfidence}, ev.Data["updates"])

	_, err = m.Update(ctx, "missing", entity.RecordUpdate{Company: &company})
	assert.True(t, errors.Is(err, common.ErrNotFound))

	bad := "not-an-email"
	_, err = m.Update(ctx, rec.ID, entity.RecordUpdate{Email: &bad})
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestManager_ProcessedFiles(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	rec := record(t)
	require.NoError(t, m.Add(ctx, rec))
	require.NoError(t, m.MarkFileProcessed(ctx, rec.SourceFile))

	require.NoError(t, m.Remove(ctx, rec.ID))
	done, err := m.IsFileProcessed(ctx, rec.SourceFile)
	require.NoError(t, err)
	assert.True(t, done, "tracking survives record removal")

	require.NoError(t, m.Clear(ctx))
	done, err = m.IsFileProcessed(ctx, rec.SourceFile)
	require.NoError(t, err)
	assert.True(t, done, "clear keeps processed files")

	require.NoError(t, m.ClearProcessedFiles(ctx))
	done, err = m.IsFileProcessed(ctx, rec.SourceFile)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, m.Ping(ctx))
}

func TestManager_SlowSubscriberDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, queue.WithSubscriberBuffer(2))
	slow := m.Subscribe()
	defer slow.Unsubscribe()

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 5; i++ {
			if err := m.Add(ctx, record(t)); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("publisher blocked by slow subscriber")
	}

	assert.Len(t, slow.C, 2)
	assert.Equal(t, uint64(3), slow.Dropped())

	// a fresh subscriber is unaffected by the other's backlog
	fresh := m.Subscribe()
	defer fresh.Unsubscribe()
	require.NoError(t, m.Add(ctx, record(t)))
	assert.Equal(t, queue.EventRecordAdded, next(t, fresh).Type)
	assert.Equal(t, uint64(4), slow.Dropped())
}
