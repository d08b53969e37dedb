package extract

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
)

// Document is one source document: a stable identifier plus its raw bytes.
type Document struct {
	Path    string
	Type    constants.RecordType
	Content []byte
}

// ReadDocument loads a document from disk.
func ReadDocument(path string, typ constants.RecordType) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, errors.Wrapf(err, "read %s", path)
	}
	return Document{Path: path, Type: typ, Content: b}, nil
}

// FieldExtractor is the deterministic, rule-based extractor for one document type.
type FieldExtractor interface {
	// Parse extracts raw fields. Unparseable values are left absent; only unreadable input errors.
	Parse(ctx context.Context, doc Document) (entity.Fields, error)
	// Validate inspects extracted fields and reports findings; it never fails.
	Validate(fields entity.Fields) []entity.ValidationWarning
}

// ForType returns the rule-based extractor for a record type.
func ForType(t constants.RecordType) (FieldExtractor, error) {
	switch t {
	case constants.RecordTypeForm:
		return FormExtractor{}, nil
	case constants.RecordTypeEmail:
		return EmailExtractor{}, nil
	case constants.RecordTypeInvoice:
		return InvoiceExtractor{}, nil
	}
	return nil, errors.Newf("no rule extractor for type %q", t)
}
