package entity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/intake-tracker/constants"
)

func TestFields_SetAndGet(t *testing.T) {
	var f Fields

	require.True(t, f.Set(constants.FieldClientName, "  Maria  "))
	v, ok := f.Get(constants.FieldClientName)
	require.True(t, ok)
	assert.Equal(t, "Maria", v)

	require.True(t, f.Set(constants.FieldAmount, "€ 850.50"))
	v, ok = f.Get(constants.FieldAmount)
	require.True(t, ok)
	assert.Equal(t, 850.5, v)

	require.True(t, f.Set(constants.FieldVAT, 204))
	assert.Equal(t, 204.0, *f.VAT)

	require.True(t, f.Set(constants.FieldInvoiceNumber, 12.0))
	assert.Equal(t, "12", Deref(f.InvoiceNumber))

	assert.False(t, f.Set(constants.FieldTotalAmount, "twelve"))
	assert.Nil(t, f.TotalAmount)
	assert.False(t, f.Set("unknown", "x"))
	assert.False(t, f.Set(constants.FieldEmail, []string{"a"}))

	require.True(t, f.Set(constants.FieldClientName, nil))
	assert.False(t, f.Has(constants.FieldClientName))

	require.True(t, f.Set(constants.FieldCompany, "   "))
	assert.Nil(t, f.Company)
}

func TestFields_SetRejectsNonFinite(t *testing.T) {
	for _, v := range []any{"NaN", "nan", "Inf", "+Inf", "-infinity", math.NaN(), math.Inf(1)} {
		var f Fields
		assert.False(t, f.Set(constants.FieldAmount, v), "%v", v)
		assert.Nil(t, f.Amount, "%v", v)
	}

	f := Fields{VAT: FloatPtr(204)}
	assert.False(t, f.Set(constants.FieldVAT, "NaN"))
	assert.Equal(t, 204.0, *f.VAT, "rejected value leaves the field untouched")
}

func TestFields_BlankCountsAsAbsent(t *testing.T) {
	blank := " "
	f := Fields{Email: &blank}
	assert.False(t, f.Has(constants.FieldEmail))
	_, ok := f.Get("nope")
	assert.False(t, ok)
}

func TestFields_HasInvoiceData(t *testing.T) {
	assert.False(t, Fields{ClientName: StringPtr("x")}.HasInvoiceData())
	assert.True(t, Fields{Amount: FloatPtr(0)}.HasInvoiceData())
	assert.True(t, Fields{InvoiceNumber: StringPtr("TF-2024-001")}.HasInvoiceData())
}

func TestFields_Map(t *testing.T) {
	m := Fields{Email: StringPtr("a@b.gr"), Amount: FloatPtr(10)}.Map()
	assert.Len(t, m, len(FieldNames))
	assert.Equal(t, "a@b.gr", m[constants.FieldEmail])
	assert.Equal(t, 10.0, m[constants.FieldAmount])
	assert.Nil(t, m[constants.FieldClientName])
}
