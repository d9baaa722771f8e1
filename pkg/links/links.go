// Package links finds Google Drive file ids in free text.
package links

import (
	"net/url"
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"
)

var (
	urlPattern    = xurls.Strict()
	fileIDPattern = regexp.MustCompile(`^[-\w]+$`)
)

var hosts = map[string]struct{}{
	"drive.google.com": {},
	"docs.google.com":  {},
}

// markers precede the file id in a Drive path: /file/d/<id>, /document/d/<id>, /drive/folders/<id>.
var markers = map[string]struct{}{
	"d":       {},
	"folders": {},
}

// FileIDs returns the distinct Drive file ids linked from text, in order of first appearance.
func FileIDs(text string) []string {
	var (
		ids  []string
		seen = make(map[string]struct{})
	)

	for _, raw := range urlPattern.FindAllString(text, -1) {
		id, ok := FileIDFromURL(raw)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids
}

// FileIDFromURL extracts the file id from a Drive or Docs URL. It reports false for
// other hosts, paths without a marker segment and ids of unexpected shape.
func FileIDFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	if _, ok := hosts[strings.ToLower(u.Hostname())]; !ok {
		return "", false
	}

	segments := strings.Split(u.Path, "/")
	for i, segment := range segments {
		if _, ok := markers[segment]; !ok {
			continue
		}
		if i+1 >= len(segments) {
			return "", false
		}
		id := segments[i+1]
		if !fileIDPattern.MatchString(id) {
			return "", false
		}
		return id, true
	}

	return "", false
}
