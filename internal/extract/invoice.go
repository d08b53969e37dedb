package extract

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
)

// VATRate is the Greek standard VAT rate applied to invoice base amounts.
var VATRate = decimal.RequireFromString("0.24")

// amountTolerance is the largest rounding difference accepted between stated and recomputed amounts.
var amountTolerance = decimal.RequireFromString("0.02")

var (
	reInvoiceNumber    = regexp.MustCompile(`TF-\d{4}-\d{3,}`)
	reInvoiceNumberFmt = regexp.MustCompile(`^TF-\d{4}-\d{3,}`)
	reSlashDate        = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)
)

var (
	baseLabels   = []string{"Καθαρή Αξία", "Subtotal", "Net Amount"}
	clientLabels = []string{"Πελάτης:", "Customer:"}
)

// InvoiceExtractor reads HTML invoices.
type InvoiceExtractor struct{}

func (InvoiceExtractor) Parse(_ context.Context, doc Document) (entity.Fields, error) {
	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Content))
	if err != nil {
		return entity.Fields{}, errors.Wrapf(err, "parse invoice html %s", doc.Path)
	}
	text := dom.Text()

	var f entity.Fields
	f.InvoiceNumber = entity.StringPtr(reInvoiceNumber.FindString(text))
	if d, ok := NormalizeDate(reSlashDate.FindString(text)); ok {
		f.Date = &d
	}
	f.ClientName = entity.StringPtr(invoiceClient(text))
	f.Amount, f.VAT, f.TotalAmount = invoiceAmounts(dom, text)
	return f, nil
}

// invoiceClient returns the first usable line after the customer label, looking at most four lines ahead.
func invoiceClient(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !containsAny(line, clientLabels) {
			continue
		}
		for j := i + 1; j < len(lines) && j < i+5; j++ {
			c := strings.TrimSpace(lines[j])
			if c == "" || strings.HasPrefix(c, "Βας.") || strings.HasPrefix(c, "ΑΦΜ") {
				continue
			}
			return c
		}
	}
	return ""
}

// invoiceAmounts reads the summary table rows first and falls back to scanning text lines
// for anything the table did not provide.
func invoiceAmounts(dom *goquery.Document, text string) (amount, vat, total *float64) {
	dom.Find("tr").Each(func(_ int, row *goquery.Selection) {
		rowText := row.Text()
		isBase := containsAny(rowText, baseLabels)
		if isBase {
			amount = ParseCurrencyPtr(rowText)
		}
		if strings.Contains(rowText, "ΦΠΑ") && !strings.Contains(rowText, "Καθαρή") {
			vat = ParseCurrencyPtr(rowText)
		}
		if !isBase && (strings.Contains(rowText, "ΣΥΝΟΛΟ") || strings.Contains(strings.ToUpper(rowText), "TOTAL")) {
			total = ParseCurrencyPtr(rowText)
		}
	})
	if amount != nil && vat != nil && total != nil {
		return amount, vat, total
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		isBase := containsAny(line, baseLabels)
		if amount == nil && isBase {
			amount = ParseCurrencyPtr(line)
		}
		if vat == nil && strings.Contains(line, "ΦΠΑ") {
			vat = ParseCurrencyPtr(line)
		}
		if total == nil && !isBase && (strings.Contains(line, "ΣΥΝΟΛΟ") || strings.Contains(strings.ToUpper(line), "TOTAL")) {
			total = ParseCurrencyPtr(line)
		}
	}
	return amount, vat, total
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func (InvoiceExtractor) Validate(f entity.Fields) []entity.ValidationWarning {
	var out []entity.ValidationWarning

	if f.Has(constants.FieldInvoiceNumber) {
		if !reInvoiceNumberFmt.MatchString(*f.InvoiceNumber) {
			out = append(out, entity.NewWarning(constants.FieldInvoiceNumber,
				"Invoice number format doesn't match expected pattern TF-YYYY-NNN: "+*f.InvoiceNumber))
		}
	} else {
		out = append(out, entity.NewError(constants.FieldInvoiceNumber, "Invoice number not found"))
	}

	if f.Amount != nil && f.VAT != nil && f.TotalAmount != nil {
		out = append(out, CheckInvoiceArithmetic(*f.Amount, *f.VAT, *f.TotalAmount)...)
	} else {
		if f.Amount == nil {
			out = append(out, entity.NewError(constants.FieldAmount, "Base amount not found"))
		}
		if f.VAT == nil {
			out = append(out, entity.NewError(constants.FieldVAT, "VAT amount not found"))
		}
		if f.TotalAmount == nil {
			out = append(out, entity.NewError(constants.FieldTotalAmount, "Total amount not found"))
		}
	}

	if !f.Has(constants.FieldClientName) {
		out = append(out, entity.NewWarning(constants.FieldClientName, "Client name not found"))
	}
	if !f.Has(constants.FieldDate) {
		out = append(out, entity.NewWarning(constants.FieldDate, "Invoice date not found"))
	}
	return out
}

// CheckInvoiceArithmetic recomputes VAT and total in decimal and reports each breach of the
// two-cent tolerance as an error naming the expected value.
func CheckInvoiceArithmetic(amount, vat, total float64) []entity.ValidationWarning {
	var out []entity.ValidationWarning
	a, v, t := decimal.NewFromFloat(amount), decimal.NewFromFloat(vat), decimal.NewFromFloat(total)

	expectedVAT := a.Mul(VATRate).Round(2)
	if v.Sub(expectedVAT).Abs().GreaterThan(amountTolerance) {
		out = append(out, entity.NewError(constants.FieldVAT, fmt.Sprintf(
			"VAT amount %s€ doesn't equal 24%% of base amount %s€ (expected %s€)",
			FormatMoney(v), FormatMoney(a), FormatMoney(expectedVAT))))
	}

	expectedTotal := a.Add(v).Round(2)
	if t.Sub(expectedTotal).Abs().GreaterThan(amountTolerance) {
		out = append(out, entity.NewError(constants.FieldTotalAmount, fmt.Sprintf(
			"Total amount %s€ doesn't equal base + VAT (expected %s€)",
			FormatMoney(t), FormatMoney(expectedTotal))))
	}
	return out
}
