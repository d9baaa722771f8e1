package filetype

// Type is a display category of a Drive file.
type Type struct {
	Category string
	Color    int
}

const mimePrefix = "application/vnd.google-apps."

var (
	Document     = Type{Category: "document", Color: 0x4285f4}
	Spreadsheet  = Type{Category: "spreadsheet", Color: 0x0f9d58}
	Presentation = Type{Category: "presentation", Color: 0xf4b400}
	Form         = Type{Category: "form", Color: 0x7627bb}
	Other        = Type{Category: "other", Color: 0xe3e5e8}
)

// https://developers.google.com/drive/api/guides/mime-types
var known = map[string]Type{
	mimePrefix + "document":     Document,
	mimePrefix + "spreadsheet":  Spreadsheet,
	mimePrefix + "presentation": Presentation,
	mimePrefix + "form":         Form,
}

// Classify maps a Drive MIME type to its display type, Other if unknown.
func Classify(mimeType string) Type {
	if t, ok := known[mimeType]; ok {
		return t
	}
	return Other
}
