package constants

import "strings"

// Source collection directory names below the base directory.
const (
	FormsDir    = "forms"
	EmailsDir   = "emails"
	InvoicesDir = "invoices"
)

// Source file extensions, lowercased without the dot.
const (
	ExtHTML = "html"
	ExtEML  = "eml"
)

// SourceCollection ties a directory to the extension it holds and the record type it yields.
type SourceCollection struct {
	Dir  string
	Ext  string
	Type RecordType
}

// SourceCollections lists the three typed collections in discovery order.
var SourceCollections = []SourceCollection{
	{Dir: FormsDir, Ext: ExtHTML, Type: RecordTypeForm},
	{Dir: EmailsDir, Ext: ExtEML, Type: RecordTypeEmail},
	{Dir: InvoicesDir, Ext: ExtHTML, Type: RecordTypeInvoice},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
