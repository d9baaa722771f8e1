package preview

import (
	"context"

	e "nuclight.org/drive-preview-bot/pkg/entities"
)

// Chat is the part of the chat platform the handler talks to. Operations on a
// message that no longer exists fail with entities.ErrMessageGone.
type Chat interface {
	SelfID() string
	SendTyping(ctx context.Context, channelID string) error
	SendCards(ctx context.Context, channelID string, cards []e.PreviewCard) (string, error)
	EditCards(ctx context.Context, channelID, messageID string, cards []e.PreviewCard) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	FetchMessage(ctx context.Context, channelID, messageID string) (e.Message, error)
	HistoryAfter(ctx context.Context, channelID, messageID string, limit int) ([]e.Message, error)

	// SuppressPreviews hides the native link previews of a message without deleting it
	SuppressPreviews(ctx context.Context, channelID, messageID string) error
}

type MetadataFetcher interface {
	GetMetadata(ctx context.Context, fileID string) (e.FileMetadata, error)
}

type Recorder interface {
	ObserveOutcome(state e.State)
	ObserveDeleted()
}
