package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/common"
)

const contactForm = `<html><body><form>
<input name="full_name" value="Μαρία Παπαδοπούλου">
<input name="email" value="maria@example.gr">
<input name="phone" value="2101234567">
</form></body></html>`

func TestApp_ScanApproveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "forms"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "forms", "contact.html"), []byte(contactForm), 0o644))

	cfg := &common.Config{
		Sources:    common.SourcesConfig{BaseDir: base},
		Database:   common.DatabaseConfig{Driver: "sqlite", DSN: "file:" + filepath.Join(dir, "q.db")},
		LLM:        common.LLMConfig{Enabled: false, ConfidenceThreshold: 0.7, FallbackToRules: true},
		Extraction: common.ExtractionConfig{FileTimeout: 5 * time.Second, MaxErrors: 10},
		Sheets:     common.SheetsConfig{Path: filepath.Join(dir, "out.xlsx")},
	}

	ctx := context.Background()
	a, err := New(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Extraction.ScanAndExtract(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.NewItemsCount, res.Errors)

	recs, err := a.Queue.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, constants.RecordTypeForm, recs[0].Type)
	assert.Equal(t, constants.MethodRuleBased, recs[0].ExtractionMethod)

	out, err := a.Review.Approve(ctx, recs[0].ID)
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.NotNil(t, out.SheetRow)
	assert.Equal(t, 2, *out.SheetRow)

	n, err := a.Queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// the processed mark survives approval, so a rescan finds nothing new
	res, err = a.Extraction.ScanAndExtract(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.NewItemsCount)
}
