// Package zerowidth hides short strings inside text using invisible code points.
//
// Every byte of the hidden string becomes two code points, one per nibble, taken from
// the invisible operator block starting at U+2060. U+2065 is unassigned, so nibble 5
// uses U+200B instead. The hidden part of an appended string starts after the last
// U+200F.
package zerowidth

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Separator marks the start of a hidden payload.
const Separator = '\u200f'

var (
	// ErrNoPayload is returned when text carries no separator.
	ErrNoPayload = errors.New("no hidden payload")

	// ErrMalformed is returned when the hidden payload is not a valid encoding.
	ErrMalformed = errors.New("malformed hidden payload")
)

var alphabet = [16]rune{
	'\u2060', '\u2061', '\u2062', '\u2063', '\u2064', '\u200b', '\u2066', '\u2067',
	'\u2068', '\u2069', '\u206a', '\u206b', '\u206c', '\u206d', '\u206e', '\u206f',
}

func nibble(r rune) (byte, bool) {
	if r == alphabet[5] {
		return 5, true
	}
	if r < alphabet[0] || r > alphabet[15] || r == '\u2065' {
		return 0, false
	}
	return byte(r - alphabet[0]), true
}

// Encode returns the invisible encoding of s.
func Encode(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) * 6)
	for i := 0; i < len(s); i++ {
		sb.WriteRune(alphabet[s[i]>>4])
		sb.WriteRune(alphabet[s[i]&0x0f])
	}
	return sb.String()
}

// Decode reverses Encode.
func Decode(encoded string) (string, error) {
	buf := make([]byte, 0, utf8.RuneCountInString(encoded)/2)

	var (
		high    byte
		pending bool
	)
	for pos, r := range encoded {
		n, ok := nibble(r)
		if !ok {
			return "", fmt.Errorf("%w: unexpected rune %U at %d", ErrMalformed, r, pos)
		}
		if !pending {
			high, pending = n, true
			continue
		}
		buf = append(buf, high<<4|n)
		pending = false
	}

	if pending {
		return "", fmt.Errorf("%w: odd number of code points", ErrMalformed)
	}

	return string(buf), nil
}

// Append returns visible followed by the separator and the encoding of hidden.
func Append(visible, hidden string) string {
	return visible + string(Separator) + Encode(hidden)
}

// DecodeAppended extracts the payload previously attached with Append.
func DecodeAppended(text string) (string, error) {
	idx := strings.LastIndex(text, string(Separator))
	if idx < 0 {
		return "", ErrNoPayload
	}
	return Decode(text[idx+utf8.RuneLen(Separator):])
}

// Visible returns text without its hidden payload.
func Visible(text string) string {
	idx := strings.LastIndex(text, string(Separator))
	if idx < 0 {
		return text
	}
	return text[:idx]
}
