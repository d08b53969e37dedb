package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
)

// FormExtractor reads HTML contact forms.
type FormExtractor struct{}

// candidate input names per field, tried in order
var formInputNames = map[string][]string{
	constants.FieldClientName:      {"full_name", "name", "client_name"},
	constants.FieldEmail:           {"email", "email_address"},
	constants.FieldPhone:           {"phone", "telephone", "tel"},
	constants.FieldCompany:         {"company", "organization", "business"},
	constants.FieldServiceInterest: {"service", "service_interest", "interest"},
	constants.FieldDate:            {"submission_date", "date", "created_at", "timestamp"},
	constants.FieldPriority:        {"priority", "urgency"},
}

var formTextareaNames = []string{"message", "comments", "description"}

func (FormExtractor) Parse(_ context.Context, doc Document) (entity.Fields, error) {
	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Content))
	if err != nil {
		return entity.Fields{}, errors.Wrapf(err, "parse form html %s", doc.Path)
	}

	var f entity.Fields
	for field, names := range formInputNames {
		f.Set(field, formValue(dom, names))
	}
	f.Set(constants.FieldMessage, textareaValue(dom, formTextareaNames))
	f.Date = NormalizeDatePtr(f.Date)
	if f.Priority != nil {
		if p, ok := constants.CanonicalizePriority(*f.Priority); ok {
			f.Priority = entity.StringPtr(string(p))
		}
	}
	return f, nil
}

// formValue returns the first non-empty input value or selected option among names.
func formValue(dom *goquery.Document, names []string) string {
	for _, name := range names {
		if v, ok := dom.Find(fmt.Sprintf(`input[name=%q]`, name)).First().Attr("value"); ok && strings.TrimSpace(v) != "" {
			return v
		}
		sel := dom.Find(fmt.Sprintf(`select[name=%q]`, name)).First()
		if sel.Length() == 0 {
			continue
		}
		opt := sel.Find("option[selected]").First()
		if opt.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(opt.Text()); text != "" {
			return text
		}
		if v, ok := opt.Attr("value"); ok {
			return v
		}
	}
	return ""
}

func textareaValue(dom *goquery.Document, names []string) string {
	for _, name := range names {
		ta := dom.Find(fmt.Sprintf(`textarea[name=%q]`, name)).First()
		if ta.Length() > 0 {
			return strings.TrimSpace(ta.Text())
		}
	}
	return ""
}

func (FormExtractor) Validate(f entity.Fields) []entity.ValidationWarning {
	var out []entity.ValidationWarning
	out = append(out, contactFormatChecks(f)...)
	for _, field := range []string{constants.FieldClientName, constants.FieldEmail} {
		if !f.Has(field) {
			out = append(out, entity.NewError(field, fmt.Sprintf("Required field '%s' is missing", field)))
		}
	}
	return out
}

// contactFormatChecks flags malformed email (error) and phone (warning) values.
func contactFormatChecks(f entity.Fields) []entity.ValidationWarning {
	var out []entity.ValidationWarning
	if f.Has(constants.FieldEmail) && !IsValidEmail(*f.Email) {
		out = append(out, entity.NewError(constants.FieldEmail, "Invalid email format: "+*f.Email))
	}
	if f.Has(constants.FieldPhone) && !IsValidGreekPhone(*f.Phone) {
		out = append(out, entity.NewWarning(constants.FieldPhone, "Invalid Greek phone format: "+*f.Phone))
	}
	return out
}
