package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
)

const greekInvoice = `<!DOCTYPE html>
<html><body>
<div class="header">
<h1>ΤΙΜΟΛΟΓΙΟ</h1>
<div>Αριθμός: <strong>TF-2024-001</strong></div>
<div>Ημερομηνία: 21/01/2024</div>
</div>
<div class="client">
<strong>Πελάτης:</strong>
<p>
Βας. Σοφίας 12
</p>
<p>Office Solutions Ltd</p>
<p>ΑΦΜ: 123456789</p>
</div>
<table class="summary">
<tr><td>Καθαρή Αξία:</td><td>€850.00</td></tr>
<tr><td>ΦΠΑ 24%:</td><td>€204.00</td></tr>
<tr><td><strong>ΣΥΝΟΛΟ:</strong></td><td><strong>€1,054.00</strong></td></tr>
</table>
</body></html>`

const englishInvoice = `<html><body>
<p>Invoice Number: TF-2024-017</p>
<p>Date: 2024/03/05</p>
<p>Customer:</p>
<p>Beta Corp</p>
<div>Net Amount: 1.200,00 €</div>
<div>ΦΠΑ: 288,00 €</div>
<div>TOTAL: 1.488,00 €</div>
</body></html>`

func TestInvoiceExtractor_ParseTable(t *testing.T) {
	f, err := InvoiceExtractor{}.Parse(context.Background(), Document{Path: "invoices/invoice_TF-2024-001.html", Content: []byte(greekInvoice)})
	require.NoError(t, err)

	assert.Equal(t, "TF-2024-001", entity.Deref(f.InvoiceNumber))
	assert.Equal(t, "2024-01-21", entity.Deref(f.Date))
	assert.Equal(t, "Office Solutions Ltd", entity.Deref(f.ClientName))
	require.NotNil(t, f.Amount)
	require.NotNil(t, f.VAT)
	require.NotNil(t, f.TotalAmount)
	assert.InDelta(t, 850.00, *f.Amount, 0.001)
	assert.InDelta(t, 204.00, *f.VAT, 0.001)
	assert.InDelta(t, 1054.00, *f.TotalAmount, 0.001)

	assert.Empty(t, InvoiceExtractor{}.Validate(f))
}

func TestInvoiceExtractor_ParseLinesFallback(t *testing.T) {
	f, err := InvoiceExtractor{}.Parse(context.Background(), Document{Content: []byte(englishInvoice)})
	require.NoError(t, err)

	assert.Equal(t, "TF-2024-017", entity.Deref(f.InvoiceNumber))
	assert.Nil(t, f.Date, "YYYY/MM/DD is not picked up by the invoice date pattern")
	assert.Equal(t, "Beta Corp", entity.Deref(f.ClientName))
	require.NotNil(t, f.Amount)
	require.NotNil(t, f.VAT)
	require.NotNil(t, f.TotalAmount)
	assert.InDelta(t, 1200.00, *f.Amount, 0.001)
	assert.InDelta(t, 288.00, *f.VAT, 0.001)
	assert.InDelta(t, 1488.00, *f.TotalAmount, 0.001)
}

func TestInvoiceExtractor_ValidateMissing(t *testing.T) {
	ws := InvoiceExtractor{}.Validate(entity.Fields{})
	assert.Equal(t, []entity.ValidationWarning{
		entity.NewError(constants.FieldInvoiceNumber, "Invoice number not found"),
		entity.NewError(constants.FieldAmount, "Base amount not found"),
		entity.NewError(constants.FieldVAT, "VAT amount not found"),
		entity.NewError(constants.FieldTotalAmount, "Total amount not found"),
		entity.NewWarning(constants.FieldClientName, "Client name not found"),
		entity.NewWarning(constants.FieldDate, "Invoice date not found"),
	}, ws)
}

func TestInvoiceExtractor_ValidateNumberFormat(t *testing.T) {
	f := entity.Fields{
		InvoiceNumber: entity.StringPtr("INV-123"),
		ClientName:    entity.StringPtr("Beta Corp"),
		Date:          entity.StringPtr("2024-01-21"),
		Amount:        entity.FloatPtr(100),
		VAT:           entity.FloatPtr(24),
		TotalAmount:   entity.FloatPtr(124),
	}
	ws := InvoiceExtractor{}.Validate(f)
	require.Len(t, ws, 1)
	assert.Equal(t, constants.SeverityWarning, ws[0].Severity)
	assert.Equal(t, "Invoice number format doesn't match expected pattern TF-YYYY-NNN: INV-123", ws[0].Message)
}

func TestCheckInvoiceArithmetic_Messages(t *testing.T) {
	ws := CheckInvoiceArithmetic(850, 200, 1050)
	require.Len(t, ws, 1)
	assert.Equal(t, constants.FieldVAT, ws[0].Field)
	assert.Equal(t, constants.SeverityError, ws[0].Severity)
	assert.Equal(t, "VAT amount 200.00€ doesn't equal 24% of base amount 850.00€ (expected 204.00€)", ws[0].Message)

	ws = CheckInvoiceArithmetic(850, 204, 1100)
	require.Len(t, ws, 1)
	assert.Equal(t, constants.FieldTotalAmount, ws[0].Field)
	assert.Equal(t, "Total amount 1100.00€ doesn't equal base + VAT (expected 1054.00€)", ws[0].Message)
}

// For any base amount, a correctly computed VAT and total pass; VAT off by more than two
// cents yields exactly one VAT error.
func TestCheckInvoiceArithmetic_RoundTrip(t *testing.T) {
	for cents := int64(1); cents < 2_000_000; cents += 7919 {
		a := decimal.New(cents, -2)
		v := a.Mul(VATRate).Round(2)
		total := a.Add(v).Round(2)
		t.Run(fmt.Sprintf("A=%s", a.StringFixed(2)), func(t *testing.T) {
			ws := CheckInvoiceArithmetic(a.InexactFloat64(), v.InexactFloat64(), total.InexactFloat64())
			assert.Empty(t, ws)

			off := v.Add(decimal.RequireFromString("0.05"))
			ws = CheckInvoiceArithmetic(a.InexactFloat64(), off.InexactFloat64(), a.Add(off).InexactFloat64())
			require.Len(t, ws, 1)
			assert.Equal(t, constants.FieldVAT, ws[0].Field)
			assert.Equal(t, constants.SeverityError, ws[0].Severity)
		})
	}
}
