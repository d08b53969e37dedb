// Package queue holds extraction records awaiting review and broadcasts every change.
package queue

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/internal/common"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
)

// RecordStore is the durable side of the queue.
type RecordStore interface {
	Insert(ctx context.Context, rec entity.ExtractionRecord) error
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, fn func(entity.ExtractionRecord) entity.ExtractionRecord) (entity.ExtractionRecord, error)
	Get(ctx context.Context, id string) (entity.ExtractionRecord, bool, error)
	List(ctx context.Context) ([]entity.ExtractionRecord, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// FileTracker remembers which source paths were already enqueued.
type FileTracker interface {
	Mark(ctx context.Context, path string) error
	IsProcessed(ctx context.Context, path string) (bool, error)
	Clear(ctx context.Context) error
}

// Pinger reports store reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithPinger(p Pinger) Option {
	return func(m *Manager) { m.pinger = p }
}

func WithSubscriberBuffer(n int) Option {
	return func(m *Manager) { m.hub = NewHub(n) }
}

// Manager is the single mutator of pending records. Mutations and their events are
// serialized by mu, so subscribers observe events in completion order.
type Manager struct {
	mu      sync.Mutex
	records RecordStore
	files   FileTracker
	pinger  Pinger
	hub     *Hub
	logger  *zap.Logger
}

func NewManager(records RecordStore, files FileTracker, opts ...Option) *Manager {
	m := &Manager{
		records: records,
		files:   files,
		hub:     NewHub(DefaultSubscriberBuffer),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add stores rec. A duplicate id yields common.ErrConflict.
func (m *Manager) Add(ctx context.Context, rec entity.ExtractionRecord) error {
	if err := rec.Validate(); err != nil {
		return errors.Mark(err, common.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.records.Insert(ctx, rec); err != nil {
		if errors.Is(err, common.ErrConflict) {
			m.logger.Warn("queue.record.duplicate", zap.String("record_id", rec.ID))
		}
		return err
	}

	var conf any
	if rec.Confidence != nil {
		conf = *rec.Confidence
	}
	m.hub.Publish(Event{Type: EventRecordAdded, Data: map[string]any{
		"record_id":  rec.ID,
		"type":       string(rec.Type),
		"confidence": conf,
	}})
	m.logger.Info("queue.record.added",
		zap.String("record_id", rec.ID),
		zap.String("type", string(rec.Type)),
		zap.String("source_file", rec.SourceFile),
	)
	return nil
}

// Remove deletes id. An unknown id yields common.ErrNotFound.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.records.Delete(ctx, id); err != nil {
		return err
	}
	m.hub.Publish(Event{Type: EventRecordRemoved, Data: map[string]any{"record_id": id}})
	m.logger.Info("queue.record.removed", zap.String("record_id", id))
	return nil
}

// Update merges the set members of upd into the stored record and returns the result.
func (m *Manager) Update(ctx context.Context, id string, upd entity.RecordUpdate) (entity.ExtractionRecord, error) {
	if err := upd.Validate(); err != nil {
		return entity.ExtractionRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.records.Update(ctx, id, upd.Apply)
	if err != nil {
		return entity.ExtractionRecord{}, err
	}
	names := upd.FieldNames()
	if names == nil {
		names = []string{}
	}
	m.hub.Publish(Event{Type: EventRecordUpdated, Data: map[string]any{
		"record_id": id,
		"updates":   names,
	}})
	m.logger.Info("queue.record.updated", zap.String("record_id", id), zap.Strings("fields", names))
	return rec, nil
}

func (m *Manager) ListAll(ctx context.Context) ([]entity.ExtractionRecord, error) {
	return m.records.List(ctx)
}

// GetByID reports ok=false when id is absent.
func (m *Manager) GetByID(ctx context.Context, id string) (entity.ExtractionRecord, bool, error) {
	return m.records.Get(ctx, id)
}

func (m *Manager) MarkFileProcessed(ctx context.Context, path string) error {
	return m.files.Mark(ctx, path)
}

func (m *Manager) IsFileProcessed(ctx context.Context, path string) (bool, error) {
	return m.files.IsProcessed(ctx, path)
}

func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.records.Count(ctx)
}

// Clear drops every record. Processed-file tracking is kept.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.records.Clear(ctx); err != nil {
		return err
	}
	m.logger.Info("queue.cleared")
	return nil
}

func (m *Manager) ClearProcessedFiles(ctx context.Context) error {
	if err := m.files.Clear(ctx); err != nil {
		return err
	}
	m.logger.Info("queue.processed_files.cleared")
	return nil
}

// Ping checks the backing store. Without a pinger it counts records instead.
func (m *Manager) Ping(ctx context.Context) error {
	if m.pinger != nil {
		return m.pinger.PingContext(ctx)
	}
	_, err := m.records.Count(ctx)
	return err
}

// Subscribe returns a fan-out stream of every event published from now on.
func (m *Manager) Subscribe() *Subscription {
	return m.hub.Subscribe()
}
