package entities

import "time"

// SourceMessage is a user message as delivered by a chat event.
type SourceMessage struct {
	ID        string
	ChannelID string
	AuthorID  string
	Text      string
}

// Message is a chat message read back from the platform. For a user message Embeds
// are the native link previews, for a bot preview message they are its cards.
type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Text      string
	Embeds    []Embed
}

type Embed struct {
	Title string
	URL   string
}

// FileMetadata is what the storage service reports about a file.
type FileMetadata struct {
	FileID       string
	Name         string
	URL          string
	MimeType     string
	ModifiedTime string // RFC3339
}

// PreviewCard is a rendered preview of one file.
type PreviewCard struct {
	Title     string
	URL       string
	Color     int
	Category  string
	Timestamp time.Time // zero if unknown
}

func (m *Message) HasEmbeds() bool {
	return len(m.Embeds) > 0
}
