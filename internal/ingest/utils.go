package ingest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/common"
)

var osReadDir = os.ReadDir

// Route determines the record type from the file's collection directory and extension.
// Anything outside the three collections, or with the wrong extension, fails with common.ErrUnroutable.
func Route(path string) (constants.RecordType, error) {
	dir := filepath.Base(filepath.Dir(path))
	ext := constants.NormalizeExt(filepath.Ext(path))
	for _, c := range constants.SourceCollections {
		if dir == c.Dir && ext == c.Ext {
			return c.Type, nil
		}
	}
	return "", errors.Mark(errors.Newf("Cannot determine file type for: %s", path), common.ErrUnroutable)
}

// Routable is Route without the error.
func Routable(path string) bool {
	_, err := Route(path)
	return err == nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
