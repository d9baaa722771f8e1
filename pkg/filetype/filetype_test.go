package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := map[string]Type{
		"application/vnd.google-apps.document":     Document,
		"application/vnd.google-apps.spreadsheet":  Spreadsheet,
		"application/vnd.google-apps.presentation": Presentation,
		"application/vnd.google-apps.form":         Form,
		"application/vnd.google-apps.folder":       Other,
		"application/pdf":                          Other,
		"":                                         Other,
	}

	for mime, want := range cases {
		assert.Equal(t, want, Classify(mime), mime)
	}
}

func TestClassifyColors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0x4285f4, Classify("application/vnd.google-apps.document").Color)
	assert.Equal(t, 0xe3e5e8, Classify("text/plain").Color)

	colors := map[int]struct{}{}
	for _, typ := range []Type{Document, Spreadsheet, Presentation, Form, Other} {
		colors[typ.Color] = struct{}{}
	}
	assert.Len(t, colors, 5)
}
