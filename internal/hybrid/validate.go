package hybrid

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
	"github.com/joseph-ayodele/intake-tracker/internal/extract"
)

// LowConfidenceThreshold is the AI confidence below which validators add an "overall" warning.
const LowConfidenceThreshold = 0.7

var (
	reAIInvoiceNumber = regexp.MustCompile(`^TF-\d{4}-\d{3}`)
	aiTolerance       = decimal.RequireFromString("0.01")
)

// ValidateAI checks fields produced by the AI extractor. It shares the contact-format checks with
// the rule validators, recomputes invoice arithmetic with a one-cent tolerance and flags low
// overall confidence.
func ValidateAI(t constants.RecordType, f entity.Fields, confidence float64) []entity.ValidationWarning {
	var out []entity.ValidationWarning
	switch t {
	case constants.RecordTypeForm:
		out = extract.FormExtractor{}.Validate(f)
	case constants.RecordTypeEmail:
		out = extract.EmailExtractor{}.Validate(f)
	case constants.RecordTypeInvoice:
		out = validateAIInvoice(f)
	}
	if confidence < LowConfidenceThreshold {
		out = append(out, entity.NewWarning(constants.FieldOverall, fmt.Sprintf("Low extraction confidence: %.2f", confidence)))
	}
	return out
}

func validateAIInvoice(f entity.Fields) []entity.ValidationWarning {
	var out []entity.ValidationWarning
	for _, field := range []string{
		constants.FieldInvoiceNumber, constants.FieldClientName,
		constants.FieldAmount, constants.FieldVAT, constants.FieldTotalAmount,
	} {
		if !f.Has(field) {
			out = append(out, entity.NewError(field, fmt.Sprintf("Required field '%s' is missing", field)))
		}
	}

	if f.InvoiceNumber != nil && !reAIInvoiceNumber.MatchString(*f.InvoiceNumber) {
		out = append(out, entity.NewWarning(constants.FieldInvoiceNumber,
			fmt.Sprintf("Invalid invoice number format: %s. Expected TF-YYYY-NNN", *f.InvoiceNumber)))
	}

	if f.Amount == nil || f.VAT == nil {
		return out
	}
	a, v := decimal.NewFromFloat(*f.Amount), decimal.NewFromFloat(*f.VAT)
	expectedVAT := a.Mul(extract.VATRate).Round(2)
	if v.Sub(expectedVAT).Abs().GreaterThan(aiTolerance) {
		out = append(out, entity.NewError(constants.FieldVAT, fmt.Sprintf(
			"VAT calculation error: expected %s (24%% of %s), got %s",
			extract.FormatMoney(expectedVAT), extract.FormatMoney(a), extract.FormatMoney(v))))
	}
	if f.TotalAmount == nil {
		return out
	}
	total := decimal.NewFromFloat(*f.TotalAmount)
	expectedTotal := a.Add(v).Round(2)
	if total.Sub(expectedTotal).Abs().GreaterThan(aiTolerance) {
		out = append(out, entity.NewError(constants.FieldTotalAmount, fmt.Sprintf(
			"Total calculation error: expected %s (%s + %s), got %s",
			extract.FormatMoney(expectedTotal), extract.FormatMoney(a), extract.FormatMoney(v), extract.FormatMoney(total))))
	}
	return out
}
