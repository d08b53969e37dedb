package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/intake-tracker/constants"
)

// Job is one discovered source file waiting for extraction.
type Job struct {
	Path        string
	Type        constants.RecordType
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
