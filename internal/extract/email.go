package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
)

// EmailExtractor reads RFC 5322 (.eml) messages.
type EmailExtractor struct{}

var (
	reBodyName = []*regexp.Regexp{
		regexp.MustCompile(`(?im)(?:Όνομα|Name|Ονοματεπώνυμο):\s*(.+?)\s*$`),
		regexp.MustCompile(`(?im)(?:Είμαι ο|Είμαι η)\s+(.+?)(?:\s+από|\s+και|$)`),
	}
	reBodyEmail = regexp.MustCompile(`(?i)(?:Email|E-mail):\s*([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	reBodyPhone = []*regexp.Regexp{
		regexp.MustCompile(`(?im)(?:Τηλέφωνο|Τηλ|Phone|Tel):\s*([\d\s\-+()]+?)\s*$`),
		regexp.MustCompile(`(?im)(?:Κινητό|Mobile):\s*([\d\s\-+()]+?)\s*$`),
	}
	reBodyCompany = []*regexp.Regexp{
		regexp.MustCompile(`(?im)(?:Εταιρεία|Εταιρία|Company|Organization):\s*(.+?)\s*$`),
		regexp.MustCompile(`(?im)από την\s+(.+?)(?:\s+και|\s+θα|$)`),
	}
)

func (EmailExtractor) Parse(_ context.Context, doc Document) (entity.Fields, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(doc.Content))
	if err != nil {
		return entity.Fields{}, errors.Wrapf(err, "read email %s", doc.Path)
	}

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		subject = msg.Header.Get("Subject")
	}
	senderName, senderEmail := parseFrom(msg.Header.Get("From"))

	body, err := plainTextBody(msg)
	if err != nil {
		return entity.Fields{}, errors.Wrapf(err, "read email body %s", doc.Path)
	}

	var f entity.Fields
	f.ClientName = entity.StringPtr(firstMatch(reBodyName, body))
	if f.ClientName == nil {
		f.ClientName = entity.StringPtr(senderName)
	}
	if m := reBodyEmail.FindStringSubmatch(body); m != nil {
		f.Email = entity.StringPtr(m[1])
	} else {
		f.Email = entity.StringPtr(senderEmail)
	}
	f.Phone = entity.StringPtr(firstMatch(reBodyPhone, body))
	f.Company = entity.StringPtr(firstMatch(reBodyCompany, body))
	f.ServiceInterest = entity.StringPtr(subject)
	f.Message = entity.StringPtr(body)
	f.Date = NormalizeDatePtr(entity.StringPtr(msg.Header.Get("Date")))
	return f, nil
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// parseFrom splits a From header into display name and address.
func parseFrom(from string) (name, addr string) {
	if from == "" {
		return "", ""
	}
	if a, err := mail.ParseAddress(from); err == nil {
		return a.Name, a.Address
	}
	if strings.Contains(from, "@") {
		return "", strings.TrimSpace(from)
	}
	return strings.TrimSpace(from), ""
}

// plainTextBody returns the first text/plain part (or the whole body for single-part mail).
func plainTextBody(msg *mail.Message) (string, error) {
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}
	if strings.HasPrefix(mediaType, "multipart/") {
		return firstPlainPart(multipart.NewReader(msg.Body, params["boundary"]))
	}
	b, err := decodeTransfer(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func firstPlainPart(mr *multipart.Reader) (string, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		mediaType, params, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if strings.HasPrefix(mediaType, "multipart/") {
			if s, err := firstPlainPart(multipart.NewReader(part, params["boundary"])); err == nil && s != "" {
				return s, nil
			}
			continue
		}
		if mediaType != "text/plain" {
			continue
		}
		// multipart.Reader already decodes quoted-printable parts
		b, err := decodeTransfer(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			continue
		}
		return strings.TrimSpace(string(b)), nil
	}
}

func decodeTransfer(r io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return io.ReadAll(base64.NewDecoder(base64.StdEncoding, r))
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(r))
	}
	return io.ReadAll(r)
}

func (EmailExtractor) Validate(f entity.Fields) []entity.ValidationWarning {
	out := contactFormatChecks(f)
	if !f.Has(constants.FieldEmail) {
		out = append(out, entity.NewError(constants.FieldEmail, "Email address not found in message"))
	}
	if !f.Has(constants.FieldClientName) {
		out = append(out, entity.NewWarning(constants.FieldClientName, "Client name not found in message"))
	}
	return out
}
