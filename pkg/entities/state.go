package entities

// State is a step of the preview reconciliation of a single source message.
type State string

const (
	// StateNoLinks means the message has no storage links and nothing was done
	StateNoLinks State = "no_links"

	// StateFetching means file metadata is being requested
	StateFetching State = "fetching"

	// StatePosted means the preview message was posted or edited
	StatePosted State = "posted"

	// StatePolling means the source message is being re-fetched for native previews
	StatePolling State = "polling"

	// StateSuppressed means native previews were hidden
	StateSuppressed State = "suppressed"

	// StateGaveUp means native previews were left untouched
	StateGaveUp State = "gave_up"

	// StateMessageGone means the source message was deleted while being handled
	StateMessageGone State = "message_gone"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateNoLinks, StateSuppressed, StateGaveUp, StateMessageGone:
		return true
	default:
		return false
	}
}

// Outcome is the result of handling one created or edited message.
type Outcome struct {
	State State

	// PreviewID is the id of the bot message hosting the cards, empty if none was posted
	PreviewID string
}
