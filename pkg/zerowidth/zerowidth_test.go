package zerowidth

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	payloads := []string{
		"",
		"1187654321987654321",
		"hello, world",
		"UUUU", // 0x55, both nibbles remapped
		"日本語のファイル",
		string([]byte{0x00, 0x05, 0x50, 0xff, 0x7f}),
	}

	for _, p := range payloads {
		got, err := Decode(Encode(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestEncodeIsInvisible(t *testing.T) {
	t.Parallel()

	encoded := Encode("all bytes \x00\x01\xfe\xff")
	for _, r := range encoded {
		assert.True(t, unicode.Is(unicode.Cf, r), "rune %U is not a format character", r)
	}
	assert.True(t, unicode.Is(unicode.Cf, Separator))
}

func TestEncodeAvoidsUnassignedCodePoint(t *testing.T) {
	t.Parallel()

	encoded := Encode("\x55\x05\x50")
	assert.NotContains(t, encoded, "\u2065")
	assert.Equal(t, "\u200b\u200b\u2060\u200b\u200b\u2060", encoded)
}

func TestAppendDecodeAppended(t *testing.T) {
	t.Parallel()

	cases := []struct {
		visible string
		hidden  string
	}{
		{"Quarterly report", "1187654321987654321"},
		{"", "x"},
		{"name with \u200f separator inside", "42"},
		{"emoji 📄", ""},
	}

	for _, c := range cases {
		text := Append(c.visible, c.hidden)

		got, err := DecodeAppended(text)
		require.NoError(t, err)
		assert.Equal(t, c.hidden, got)
		assert.Equal(t, c.visible, Visible(text))
	}
}

func TestDecodeAppendedErrors(t *testing.T) {
	t.Parallel()

	_, err := DecodeAppended("plain title")
	assert.ErrorIs(t, err, ErrNoPayload)

	_, err = DecodeAppended("title\u200fvisible")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeAppended("title\u200f\u2061")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Decode("\u2065\u2060")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVisibleWithoutPayload(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain", Visible("plain"))
}

func FuzzRoundTrip(f *testing.F) {
	f.Add("visible", "1187654321987654321")
	f.Add("", "")
	f.Add("a\u200fb", "\x00\xff")

	f.Fuzz(func(t *testing.T, visible, hidden string) {
		got, err := Decode(Encode(hidden))
		if err != nil || got != hidden {
			t.Fatalf("Decode(Encode(%q)) = %q, %v", hidden, got, err)
		}

		got, err = DecodeAppended(Append(visible, hidden))
		if err != nil || got != hidden {
			t.Fatalf("DecodeAppended(Append(%q, %q)) = %q, %v", visible, hidden, got, err)
		}
	})
}
