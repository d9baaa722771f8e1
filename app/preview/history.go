package preview

import (
	"context"
	"errors"
	"fmt"

	e "nuclight.org/drive-preview-bot/pkg/entities"
	"nuclight.org/drive-preview-bot/pkg/zerowidth"
)

// FindPreview looks for the bot message previewing sourceID among the HistorySize
// messages that follow it. The hidden id in the first card's title is the only link
// between the two messages.
func (h *Handler) FindPreview(ctx context.Context, channelID, sourceID string) (e.Message, bool, error) {
	history, err := h.Chat.HistoryAfter(ctx, channelID, sourceID, h.HistorySize)
	if err != nil {
		if errors.Is(err, e.ErrMessageGone) {
			return e.Message{}, false, nil
		}
		return e.Message{}, false, fmt.Errorf("reading history after %s: %w", sourceID, err)
	}

	self := h.Chat.SelfID()
	for _, msg := range history {
		if msg.AuthorID != self || !msg.HasEmbeds() {
			continue
		}

		hidden, err := zerowidth.DecodeAppended(msg.Embeds[0].Title)
		if err != nil {
			continue
		}

		if hidden == sourceID {
			return msg, true, nil
		}
	}

	return e.Message{}, false, nil
}
