// Package ingest finds source documents in the typed collections and routes them to a record type.
package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/joseph-ayodele/intake-tracker/constants"
)

// Item is one discovered source document.
type Item struct {
	Path string
	Type constants.RecordType
}

// DirStats summarizes one discovery pass.
type DirStats struct {
	Scanned          uint32
	Matched          uint32
	AlreadyProcessed uint32
}

// ProcessedChecker reports whether a path has already been turned into a record.
type ProcessedChecker interface {
	IsFileProcessed(ctx context.Context, path string) (bool, error)
}

// Discover lists files in the forms, emails and invoices collections under baseDir whose extension
// matches the collection, skipping hidden files and anything already processed. Items come back in
// collection order, then by path. A missing collection directory is treated as empty; a failing
// processed check aborts discovery.
func Discover(ctx context.Context, baseDir string, processed ProcessedChecker) ([]Item, DirStats, error) {
	var items []Item
	var stats DirStats

	for _, c := range constants.SourceCollections {
		dir := filepath.Join(baseDir, c.Dir)
		entries, err := readDir(dir)
		if err != nil {
			return nil, stats, err
		}
		for _, e := range entries {
			stats.Scanned++
			if e.IsDir() || IsHidden(e.Name()) || constants.NormalizeExt(filepath.Ext(e.Name())) != c.Ext {
				continue
			}
			stats.Matched++

			path := filepath.Join(dir, e.Name())
			done, err := processed.IsFileProcessed(ctx, path)
			if err != nil {
				return nil, stats, errors.Wrapf(err, "check processed %s", path)
			}
			if done {
				stats.AlreadyProcessed++
				continue
			}
			items = append(items, Item{Path: path, Type: c.Type})
		}
	}
	return items, stats, nil
}

func readDir(dir string) ([]fs.DirEntry, error) {
	entries, err := osReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read collection %s", dir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}
