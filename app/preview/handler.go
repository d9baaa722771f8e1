package preview

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "nuclight.org/drive-preview-bot/pkg/entities"
	"nuclight.org/drive-preview-bot/pkg/links"
	"nuclight.org/drive-preview-bot/pkg/logger"
	"nuclight.org/drive-preview-bot/pkg/mutex"
)

// Handler keeps a bot preview message in sync with a user message linking Drive files.
// On a new or edited message it fetches the files, posts or edits the preview, then
// re-reads the source message until the platform has attached its own link previews
// and hides them if every one of them is a file the bot already previews. The bot
// message is found again later only through the source id hidden in its first card.
type Handler struct {
	// Log is a logger
	Log logger.Logger

	// Chat is the chat platform
	Chat Chat

	// Files fetches file metadata from the storage service
	Files MetadataFetcher

	// Metrics records outcomes, nil disables recording
	Metrics Recorder

	// PollAttempts is the number of times the source message is re-read
	// while waiting for native previews
	PollAttempts int

	// PollBackoff is the pause before every poll attempt but the first
	PollBackoff time.Duration

	// HistorySize is the number of messages after the source scanned for its preview
	HistorySize int

	// MaxCards caps the number of cards per preview, 0 means no cap
	MaxCards int

	// Locks serializes handling and deletion of the same source message, nil disables it
	Locks *mutex.KeyedMutex
}

// HandleMessage reconciles the preview of a created or edited message. The returned
// outcome holds the terminal state, or the state handling failed in if err is not nil.
func (h *Handler) HandleMessage(ctx context.Context, msg e.SourceMessage, edited bool) (e.Outcome, error) {
	log := h.Log.With("discord_channel_id", msg.ChannelID, "discord_message_id", msg.ID)

	fileIDs := links.FileIDs(msg.Text)
	if len(fileIDs) == 0 {
		return h.finish(e.Outcome{State: e.StateNoLinks}), nil
	}

	if h.MaxCards > 0 && len(fileIDs) > h.MaxCards {
		log.Warn("too many files linked, extra ones are not previewed", "files", len(fileIDs), "max_cards", h.MaxCards)
		fileIDs = fileIDs[:h.MaxCards]
	}

	defer h.lock(msg.ChannelID, msg.ID)()

	outcome := e.Outcome{State: e.StateFetching}

	files, err := h.fetchFiles(ctx, fileIDs)
	if err != nil {
		// failed fetches are counted under the state they failed in
		if h.Metrics != nil {
			h.Metrics.ObserveOutcome(e.StateFetching)
		}
		return outcome, err
	}

	cards := BuildCards(msg.ID, files)

	outcome, err = h.post(ctx, msg, edited, cards)
	if err != nil || outcome.State.Terminal() {
		return h.finish(outcome), err
	}
	log.Debug("preview posted", "preview_message_id", outcome.PreviewID, "cards", len(cards))

	outcome.State, err = h.poll(ctx, msg, fileIDs)
	if err != nil {
		return outcome, err
	}

	// the source was deleted before its preview existed, nobody else removes it
	if outcome.State == e.StateMessageGone {
		err = h.Chat.DeleteMessage(ctx, msg.ChannelID, outcome.PreviewID)
		if err != nil && !errors.Is(err, e.ErrMessageGone) {
			return outcome, fmt.Errorf("deleting preview %s of deleted message: %w", outcome.PreviewID, err)
		}
		log.Info("preview of deleted message removed", "preview_message_id", outcome.PreviewID)
		if h.Metrics != nil {
			h.Metrics.ObserveDeleted()
		}
	}

	log.Debug("preview reconciled", "state", outcome.State)
	return h.finish(outcome), nil
}

// HandleDelete removes the previews of deleted messages. Messages without a preview
// are skipped.
func (h *Handler) HandleDelete(ctx context.Context, channelID string, messageIDs []string) error {
	var errs []error

	for _, id := range messageIDs {
		err := h.deletePreview(ctx, channelID, id)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (h *Handler) deletePreview(ctx context.Context, channelID, sourceID string) error {
	defer h.lock(channelID, sourceID)()

	preview, found, err := h.FindPreview(ctx, channelID, sourceID)
	if err != nil {
		return fmt.Errorf("finding preview of %s: %w", sourceID, err)
	}

	if !found {
		return nil
	}

	err = h.Chat.DeleteMessage(ctx, channelID, preview.ID)
	if err != nil && !errors.Is(err, e.ErrMessageGone) {
		return fmt.Errorf("deleting preview %s of %s: %w", preview.ID, sourceID, err)
	}

	h.Log.Info("preview deleted", "discord_channel_id", channelID, "discord_message_id", sourceID, "preview_message_id", preview.ID)
	if h.Metrics != nil {
		h.Metrics.ObserveDeleted()
	}

	return nil
}

func (h *Handler) fetchFiles(ctx context.Context, fileIDs []string) ([]e.FileMetadata, error) {
	files := make([]e.FileMetadata, 0, len(fileIDs))

	for _, id := range fileIDs {
		file, err := h.Files.GetMetadata(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetching metadata for file %s: %w", id, err)
		}
		files = append(files, file)
	}

	return files, nil
}

// post edits the existing preview of an edited message or posts a new one.
func (h *Handler) post(ctx context.Context, msg e.SourceMessage, edited bool, cards []e.PreviewCard) (e.Outcome, error) {
	outcome := e.Outcome{State: e.StatePosted}

	if edited {
		preview, found, err := h.FindPreview(ctx, msg.ChannelID, msg.ID)
		if err != nil {
			return outcome, fmt.Errorf("finding preview: %w", err)
		}

		if found {
			err = h.Chat.EditCards(ctx, msg.ChannelID, preview.ID, cards)
			switch {
			case err == nil:
				outcome.PreviewID = preview.ID
				return outcome, nil
			case errors.Is(err, e.ErrMessageGone):
				// the preview was removed by hand, the source still needs one
				h.Log.Info("preview gone, posting new one", "discord_message_id", msg.ID, "preview_message_id", preview.ID)
			default:
				return outcome, fmt.Errorf("editing preview %s: %w", preview.ID, err)
			}
		}
	}

	err := h.Chat.SendTyping(ctx, msg.ChannelID)
	if err != nil {
		h.Log.Warn("sending typing indicator", "discord_channel_id", msg.ChannelID, "error", err)
	}

	outcome.PreviewID, err = h.Chat.SendCards(ctx, msg.ChannelID, cards)
	if errors.Is(err, e.ErrMessageGone) {
		outcome.State = e.StateMessageGone
		return outcome, nil
	}
	if err != nil {
		return outcome, fmt.Errorf("sending preview: %w", err)
	}

	return outcome, nil
}

// poll re-reads the source message until the platform attaches native previews,
// then hides them if they are all covered by the bot's cards.
func (h *Handler) poll(ctx context.Context, msg e.SourceMessage, fileIDs []string) (e.State, error) {
	for attempt := 0; attempt < h.PollAttempts; attempt++ {
		if attempt > 0 {
			err := sleep(ctx, h.PollBackoff)
			if err != nil {
				return e.StatePolling, err
			}
		}

		current, err := h.Chat.FetchMessage(ctx, msg.ChannelID, msg.ID)
		if errors.Is(err, e.ErrMessageGone) {
			return e.StateMessageGone, nil
		}
		if err != nil {
			return e.StatePolling, fmt.Errorf("fetching source message: %w", err)
		}

		if !current.HasEmbeds() {
			continue
		}

		if !redundant(current.Embeds, fileIDs) {
			return e.StateGaveUp, nil
		}

		err = h.Chat.SuppressPreviews(ctx, msg.ChannelID, msg.ID)
		if errors.Is(err, e.ErrMessageGone) {
			return e.StateMessageGone, nil
		}
		if err != nil {
			return e.StatePolling, fmt.Errorf("suppressing native previews: %w", err)
		}

		return e.StateSuppressed, nil
	}

	return e.StateGaveUp, nil
}

// redundant reports whether every native preview links one of fileIDs.
func redundant(native []e.Embed, fileIDs []string) bool {
	previewed := make(map[string]struct{}, len(fileIDs))
	for _, id := range fileIDs {
		previewed[id] = struct{}{}
	}

	var nativeIDs []string
	for _, embed := range native {
		if id, ok := links.FileIDFromURL(embed.URL); ok {
			nativeIDs = append(nativeIDs, id)
		}
	}

	if len(nativeIDs) != len(native) {
		return false
	}

	for _, id := range nativeIDs {
		if _, ok := previewed[id]; !ok {
			return false
		}
	}

	return true
}

// lock serializes handling of one source message and returns the unlock func.
func (h *Handler) lock(channelID, messageID string) func() {
	if h.Locks == nil {
		return func() {}
	}

	key := channelID + "/" + messageID
	h.Locks.Lock(key)
	return func() { h.Locks.Unlock(key) }
}

func (h *Handler) finish(outcome e.Outcome) e.Outcome {
	if h.Metrics != nil && outcome.State.Terminal() {
		h.Metrics.ObserveOutcome(outcome.State)
	}
	return outcome
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
