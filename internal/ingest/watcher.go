package ingest

import (
	"context"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/logging"
)

type WatchConfig struct {
	BaseDir     string        // forms/, emails/ and invoices/ below it are watched
	InitialScan bool          // if true, emit existing files in the collections first
	Debounce    time.Duration // coalesce rapid create/write/rename bursts per path
}

// StartWatcher watches the three collection directories and emits routable file paths once their
// events settle. Both channels close when ctx is done. Processed-file filtering is left to the consumer.
func StartWatcher(ctx context.Context, cfg WatchConfig, log *zap.Logger) (<-chan Item, <-chan error, error) {
	log = logging.OrNop(log)
	if cfg.BaseDir == "" {
		return nil, nil, errors.New("watcher: base directory is required")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error("ingest.watcher.create_failed", zap.Error(err))
		return nil, nil, errors.Wrap(err, "create fsnotify watcher")
	}

	var initial []Item
	for _, c := range constants.SourceCollections {
		dir := filepath.Join(cfg.BaseDir, c.Dir)
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			log.Error("ingest.watcher.add_failed", zap.String("dir", dir), zap.Error(err))
			return nil, nil, errors.Wrapf(err, "watch %s", dir)
		}
		if cfg.InitialScan {
			entries, err := readDir(dir)
			if err != nil {
				_ = w.Close()
				return nil, nil, err
			}
			for _, e := range entries {
				p := filepath.Join(dir, e.Name())
				if t, err := Route(p); err == nil && !e.IsDir() && !IsHidden(p) {
					initial = append(initial, Item{Path: p, Type: t})
				}
			}
		}
	}

	evCh := make(chan Item, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				log.Warn("ingest.watcher.close_failed", zap.Error(err))
			}
		}()

		emit := func(it Item) bool {
			select {
			case evCh <- it:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, it := range initial {
			if !emit(it) {
				return
			}
		}

		// path -> time of last event; flushed once quiet for Debounce
		pending := map[string]time.Time{}
		tick := time.NewTicker(tickInterval(cfg.Debounce))
		defer tick.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 || IsHidden(e.Name) {
					continue
				}
				t, err := Route(e.Name)
				if err != nil {
					continue
				}
				if cfg.Debounce <= 0 {
					if !emit(Item{Path: e.Name, Type: t}) {
						return
					}
					continue
				}
				pending[e.Name] = time.Now()
			case now := <-tick.C:
				for p, last := range pending {
					if now.Sub(last) < cfg.Debounce {
						continue
					}
					delete(pending, p)
					t, _ := Route(p)
					log.Debug("ingest.watcher.file_settled", zap.String("path", p))
					if !emit(Item{Path: p, Type: t}) {
						return
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Error("ingest.watcher.error", zap.Error(err))
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	log.Info("ingest.watcher.started", zap.String("base_dir", cfg.BaseDir), zap.Int("initial", len(initial)))
	return evCh, errCh, nil
}

func tickInterval(debounce time.Duration) time.Duration {
	if debounce <= 0 {
		return time.Second
	}
	if d := debounce / 4; d > 10*time.Millisecond {
		return d
	}
	return 10 * time.Millisecond
}
