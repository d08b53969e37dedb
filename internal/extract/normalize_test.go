package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-15T14:30", "2024-01-15", true},
		{"2024-01-15", "2024-01-15", true},
		{"21/01/2024", "2024-01-21", true},
		{"5/3/2024", "2024-03-05", true},
		{"21-01-2024", "2024-01-21", true},
		{"2024/01/21", "2024-01-21", true},
		{"Mon, 20 Jan 2024 10:30:00 +0200", "2024-01-20", true},
		{"20 Jan 2024 23:30:00 -0500", "2024-01-20", true},
		{"garbage", "", false},
		{"", "", false},
		{"31/02/2024", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDatePtr(t *testing.T) {
	assert.Nil(t, NormalizeDatePtr(nil))
	bad := "not a date"
	assert.Nil(t, NormalizeDatePtr(&bad))
	good := "15/01/2024"
	require.NotNil(t, NormalizeDatePtr(&good))
	assert.Equal(t, "2024-01-15", *NormalizeDatePtr(&good))
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"€1,054.00", "1054.00"},
		{"1.054,00€", "1054.00"},
		{"Σύνολο: 1054.00", "1054.00"},
		{"€850.00", "850.00"},
		{"850,00 €", "850.00"},
		{"**ΣΥΝΟΛΟ: €12,345.67**", "12345.67"},
		{"1 054,50", "1054.50"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, ok := ParseCurrency(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, FormatMoney(d))
		})
	}

	_, ok := ParseCurrency("no amount here")
	assert.False(t, ok)
	assert.Nil(t, ParseCurrencyPtr("n/a"))
}

func TestIsValidGreekPhone(t *testing.T) {
	for _, p := range []string{"2101234567", "6912345678", "+30 210 123 4567", "0030-691-234-5678", "(210) 123-4567"} {
		assert.True(t, IsValidGreekPhone(p), p)
	}
	for _, p := range []string{"12345", "5101234567", "+44 20 7946 0958", ""} {
		assert.False(t, IsValidGreekPhone(p), p)
	}
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("maria@example.gr"))
	assert.True(t, IsValidEmail("first.last+tag@sub.example.com"))
	assert.False(t, IsValidEmail("maria@"))
	assert.False(t, IsValidEmail("maria example.gr"))
}
