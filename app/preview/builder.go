package preview

import (
	"time"
	"unicode/utf8"

	e "nuclight.org/drive-preview-bot/pkg/entities"
	"nuclight.org/drive-preview-bot/pkg/filetype"
	"nuclight.org/drive-preview-bot/pkg/zerowidth"
)

// maxTitleLength is the Discord embed title limit in characters.
const maxTitleLength = 256

// BuildCards turns fetched files into preview cards, keeping their order. The first
// card's title carries sourceID hidden after the visible file name.
func BuildCards(sourceID string, files []e.FileMetadata) []e.PreviewCard {
	cards := make([]e.PreviewCard, 0, len(files))

	for i, file := range files {
		title := file.Name
		if i == 0 {
			hidden := zerowidth.Append("", sourceID)
			title = truncate(title, maxTitleLength-utf8.RuneCountInString(hidden)) + hidden
		} else {
			title = truncate(title, maxTitleLength)
		}

		typ := filetype.Classify(file.MimeType)

		cards = append(cards, e.PreviewCard{
			Title:     title,
			URL:       file.URL,
			Color:     typ.Color,
			Category:  typ.Category,
			Timestamp: parseTimestamp(file.ModifiedTime),
		})
	}

	return cards
}

func parseTimestamp(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
