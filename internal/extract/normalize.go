package extract

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	reEmail      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	rePhoneStrip = regexp.MustCompile(`[\s\-()]`)
	reGreekPhone = regexp.MustCompile(`^[26]\d{9}$`)
	reTrailingTZ = regexp.MustCompile(`\s*[+-]\d{4}$`)
)

// IsValidEmail checks the address shape only.
func IsValidEmail(email string) bool {
	return reEmail.MatchString(email)
}

// IsValidGreekPhone accepts 10-digit landlines (2...) and mobiles (6...), with optional +30/0030 prefix.
func IsValidGreekPhone(phone string) bool {
	cleaned := rePhoneStrip.ReplaceAllString(phone, "")
	switch {
	case strings.HasPrefix(cleaned, "+30"):
		cleaned = cleaned[3:]
	case strings.HasPrefix(cleaned, "0030"):
		cleaned = cleaned[4:]
	}
	return reGreekPhone.MatchString(cleaned)
}

var dateLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006/01/02",
}

// NormalizeDate converts ISO, DD/MM/YYYY, DD-MM-YYYY, YYYY/MM/DD and RFC 5322 email dates to
// YYYY-MM-DD. The second result is false when nothing matches.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	// Email dates keep the sender's calendar day.
	if t, err := mail.ParseDate(s); err == nil {
		return t.Format("2006-01-02"), true
	}
	stripped := reTrailingTZ.ReplaceAllString(s, "")
	for _, layout := range []string{"Mon, 2 Jan 2006 15:04:05", "2 Jan 2006 15:04:05"} {
		if t, err := time.Parse(layout, stripped); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// NormalizeDatePtr is NormalizeDate for optional values; unparseable dates become nil.
func NormalizeDatePtr(s *string) *string {
	if s == nil {
		return nil
	}
	if d, ok := NormalizeDate(*s); ok {
		return &d
	}
	return nil
}

var currencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,3}(?:,\d{3})+\.\d{2}`), // 1,054.00
	regexp.MustCompile(`\d{1,3}(?:\.\d{3})+,\d{2}`), // 1.054,00
	regexp.MustCompile(`\d+\.\d{2}`),                // 850.00
	regexp.MustCompile(`\d+,\d{2}`),                 // 850,00
}

// ParseCurrency finds the first money amount in text and returns it with two decimal places.
// When both separators occur, whichever comes first is the thousands separator; a lone comma
// is a decimal separator.
func ParseCurrency(text string) (decimal.Decimal, bool) {
	cleaned := strings.NewReplacer("€", "", " ", "", "*", "", "\u00a0", "").Replace(text)
	for _, re := range currencyPatterns {
		m := re.FindString(cleaned)
		if m == "" {
			continue
		}
		d, err := decimal.NewFromString(normalizeSeparators(m))
		if err != nil {
			continue
		}
		return d.Round(2), true
	}
	return decimal.Zero, false
}

func normalizeSeparators(v string) string {
	comma, dot := strings.Index(v, ","), strings.Index(v, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma < dot {
			return strings.ReplaceAll(v, ",", "")
		}
		return strings.ReplaceAll(strings.ReplaceAll(v, ".", ""), ",", ".")
	case comma >= 0:
		return strings.ReplaceAll(v, ",", ".")
	}
	return v
}

// ParseCurrencyPtr returns a float pointer for record fields, or nil.
func ParseCurrencyPtr(text string) *float64 {
	d, ok := ParseCurrency(text)
	if !ok {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

// FormatMoney renders a value the way warning messages quote amounts.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

