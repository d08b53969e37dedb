package llm

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/internal/logging"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// Extractor is the AI extractor: prompt, call, contract check, parse and score, with retries.
type Extractor struct {
	completer   Completer
	log         *zap.Logger
	maxAttempts int
	baseDelay   time.Duration
	policy      RequiredFieldPolicy
	sleep       func(ctx context.Context, d time.Duration) error
}

type Option func(*Extractor)

func WithMaxAttempts(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(e *Extractor) {
		if d >= 0 {
			e.baseDelay = d
		}
	}
}

func WithRequiredFieldPolicy(p RequiredFieldPolicy) Option {
	return func(e *Extractor) {
		if p != nil {
			e.policy = p
		}
	}
}

// WithSleep replaces the backoff wait; tests use it to record delays without waiting.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

func NewExtractor(c Completer, log *zap.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		completer:   c,
		log:         logging.OrNop(log),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		policy:      DefaultRequiredFields,
		sleep:       sleepCtx,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// BackoffDelay is base * 2^(attempt-1) for a 1-based attempt.
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(1<<(attempt-1))
}

func (e *Extractor) Extract(ctx context.Context, req Request) (Result, error) {
	if len(req.Schema) == 0 {
		return Result{}, errors.New("extract: empty schema")
	}
	schema, err := CompileSchema(BuildResponseSchema(req.Schema))
	if err != nil {
		return Result{}, err
	}
	user := BuildUserPrompt(req)

	e.log.Info("llm.extract.start",
		zap.String("document_type", string(req.DocumentType)),
		zap.String("path", req.SourcePath),
		zap.Int("field_count", len(req.Schema)),
	)

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		res, err := e.attempt(ctx, schema, req, user)
		if err == nil {
			res.Attempts = attempt
			e.log.Info("llm.extract.ok",
				zap.String("document_type", string(req.DocumentType)),
				zap.String("path", req.SourcePath),
				zap.Float64("confidence", res.Confidence),
				zap.Int("attempt", attempt),
			)
			return res, nil
		}
		lastErr = err
		kind := KindOf(err)

		// the caller's deadline is gone; further attempts cannot succeed
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, &ExtractionError{Kind: KindTimeout, Attempts: attempt, Cause: errors.CombineErrors(err, ctxErr)}
		}

		e.log.Warn("llm.extract.retry",
			zap.String("kind", string(kind)),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.maxAttempts),
			zap.Error(err),
		)
		if attempt == e.maxAttempts {
			break
		}
		delay := BackoffDelay(e.baseDelay, attempt)
		e.log.Info("llm.extract.backoff", zap.Int("attempt", attempt), zap.Duration("delay", delay))
		if err := e.sleep(ctx, delay); err != nil {
			return Result{}, &ExtractionError{Kind: KindTimeout, Attempts: attempt, Cause: errors.CombineErrors(lastErr, err)}
		}
	}

	ee := &ExtractionError{Kind: KindOf(lastErr), Attempts: e.maxAttempts, Cause: lastErr}
	e.log.Error("llm.extract.failed",
		zap.String("document_type", string(req.DocumentType)),
		zap.String("path", req.SourcePath),
		zap.String("kind", string(ee.Kind)),
		zap.Error(lastErr),
	)
	return Result{}, ee
}

func (e *Extractor) attempt(ctx context.Context, schema *jsonschema.Schema, req Request, user string) (Result, error) {
	content, err := e.completer.Complete(ctx, SystemPrompt, user)
	if err != nil {
		return Result{}, err
	}
	raw := []byte(CleanJSONBlock(content))
	if err := ValidateJSONAgainstSchema(schema, raw); err != nil {
		e.log.Debug("llm.extract.schema_violation", zap.Error(err), zap.Int("bytes", len(raw)))
		return Result{}, errors.Mark(err, ErrMalformed)
	}
	values, confidences, err := ParseResponse(raw, req.Schema)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Fields:           values,
		FieldConfidences: confidences,
		Confidence:       OverallConfidence(req.Schema, values, confidences, e.policy),
		Raw:              raw,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
