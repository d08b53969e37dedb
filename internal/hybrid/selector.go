// Package hybrid chooses between the AI extractor and the rule-based extractors per document and
// validates the accepted result with the matching validator.
package hybrid

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
	"github.com/joseph-ayodele/intake-tracker/internal/extract"
	"github.com/joseph-ayodele/intake-tracker/internal/llm"
	"github.com/joseph-ayodele/intake-tracker/internal/logging"
)

// Config mirrors the USE_LLM_EXTRACTION, LLM_CONFIDENCE_THRESHOLD and LLM_FALLBACK_TO_RULES settings.
type Config struct {
	AIEnabled       bool
	Threshold       float64
	FallbackToRules bool
}

// Outcome is the accepted extraction for one document.
type Outcome struct {
	Fields entity.Fields
	// AIConfidence is nil when the rule-based extractor produced the fields.
	AIConfidence     *float64
	FieldConfidences map[string]float64
	Method           constants.ExtractionMethod
	Warnings         []entity.ValidationWarning
	Raw              map[string]any
}

type Selector struct {
	ai  llm.FieldExtractor
	cfg Config
	log *zap.Logger
}

// NewSelector builds a selector. A nil AI extractor behaves as if AI extraction were disabled.
func NewSelector(ai llm.FieldExtractor, cfg Config, log *zap.Logger) *Selector {
	return &Selector{ai: ai, cfg: cfg, log: logging.OrNop(log)}
}

// Extract runs the selection state machine once for doc. It never mixes fields from both extractors.
// Errors are returned only when the rule-based path cannot read the document.
func (s *Selector) Extract(ctx context.Context, doc extract.Document) (Outcome, error) {
	start := time.Now()
	if s.cfg.AIEnabled && s.ai != nil {
		out, ok := s.tryAI(ctx, doc)
		if ok {
			s.log.Info("hybrid.parse.completed",
				zap.String("path", doc.Path),
				zap.String("method", string(out.Method)),
				zap.Float64("confidence", *out.AIConfidence),
				zap.Duration("elapsed", time.Since(start)),
			)
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return Outcome{}, errors.Wrap(err, "extraction abandoned")
		}
	}

	out, err := s.rules(ctx, doc)
	if err != nil {
		return Outcome{}, err
	}
	s.log.Info("hybrid.parse.completed",
		zap.String("path", doc.Path),
		zap.String("method", string(out.Method)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func (s *Selector) tryAI(ctx context.Context, doc extract.Document) (Outcome, bool) {
	res, err := s.ai.Extract(ctx, llm.Request{
		Content:      string(doc.Content),
		Schema:       SchemaFor(doc.Type),
		DocumentType: doc.Type,
		Instruction:  InstructionFor(doc.Type),
		SourcePath:   doc.Path,
	})
	if err != nil {
		s.log.Warn("hybrid.fallback.ai_failed",
			zap.String("path", doc.Path),
			zap.Error(err),
		)
		return Outcome{}, false
	}

	method := constants.MethodLLM
	if res.Confidence < s.cfg.Threshold {
		if s.cfg.FallbackToRules {
			s.log.Warn("hybrid.fallback.low_confidence",
				zap.String("path", doc.Path),
				zap.Float64("confidence", res.Confidence),
				zap.Float64("threshold", s.cfg.Threshold),
			)
			return Outcome{}, false
		}
		method = constants.MethodLLMLowConfidence
		s.log.Warn("hybrid.low_confidence_accepted",
			zap.String("path", doc.Path),
			zap.Float64("confidence", res.Confidence),
		)
	}

	fields := FieldsFromAI(res.Fields)
	conf := res.Confidence
	return Outcome{
		Fields:           fields,
		AIConfidence:     &conf,
		FieldConfidences: res.FieldConfidences,
		Method:           method,
		Warnings:         s.Validate(doc.Type, method, fields, &conf),
		Raw:              res.Fields,
	}, true
}

func (s *Selector) rules(ctx context.Context, doc extract.Document) (Outcome, error) {
	ex, err := extract.ForType(doc.Type)
	if err != nil {
		return Outcome{}, err
	}
	fields, err := ex.Parse(ctx, doc)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Fields:   fields,
		Method:   constants.MethodRuleBased,
		Warnings: s.Validate(doc.Type, constants.MethodRuleBased, fields, nil),
		Raw:      fields.Map(),
	}, nil
}

// Validate dispatches to the AI validator for llm* methods and to the rule validator otherwise.
func (s *Selector) Validate(t constants.RecordType, method constants.ExtractionMethod, f entity.Fields, aiConfidence *float64) []entity.ValidationWarning {
	var out []entity.ValidationWarning
	if method.IsLLM() {
		c := 1.0
		if aiConfidence != nil {
			c = *aiConfidence
		}
		out = ValidateAI(t, f, c)
	} else if ex, err := extract.ForType(t); err == nil {
		out = ex.Validate(f)
	}
	if out == nil {
		out = []entity.ValidationWarning{}
	}
	return out
}

// FieldsFromAI converts raw model values into typed fields. Amounts given as formatted strings are
// parsed as currency, dates are normalized, and priorities canonicalized; values that cannot be
// interpreted are left absent.
func FieldsFromAI(values map[string]any) entity.Fields {
	var f entity.Fields
	for name, v := range values {
		if f.Set(name, v) {
			continue
		}
		if str, ok := v.(string); ok && constants.IsNumericField(name) {
			f.Set(name, nilIfNone(extract.ParseCurrencyPtr(str)))
		}
	}
	if f.Date != nil {
		f.Date = extract.NormalizeDatePtr(f.Date)
	}
	if f.Priority != nil {
		if p, ok := constants.CanonicalizePriority(*f.Priority); ok {
			f.Priority = entity.StringPtr(string(p))
		} else {
			f.Priority = entity.StringPtr(strings.ToLower(*f.Priority))
		}
	}
	return f
}

func nilIfNone(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
