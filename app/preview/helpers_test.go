package preview

import (
	"context"
	"strconv"
	"sync"
	"time"

	e "nuclight.org/drive-preview-bot/pkg/entities"
	"nuclight.org/drive-preview-bot/pkg/logger"
	"nuclight.org/drive-preview-bot/pkg/zerowidth"
)

const (
	testSelfID    = "bot"
	testChannelID = "channel-1"
)

// fakeChat records every call and keeps posted previews in its history so that
// later lookups can find them.
type fakeChat struct {
	mu sync.Mutex

	calls   []string
	history []e.Message
	sent    [][]e.PreviewCard
	edited  map[string][]e.PreviewCard
	deleted []string

	// fetches are returned by consecutive FetchMessage calls, the last one repeats
	fetches  []e.Message
	fetchErr error
	fetchN   int

	typingErr   error
	sendErr     error
	editErr     error
	deleteErr   error
	historyErr  error
	suppressErr error

	nextID int
}

func newFakeChat() *fakeChat {
	return &fakeChat{edited: make(map[string][]e.PreviewCard)}
}

func (c *fakeChat) record(call string) {
	c.calls = append(c.calls, call)
}

func (c *fakeChat) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeChat) count(call string) int {
	n := 0
	for _, got := range c.Calls() {
		if got == call {
			n++
		}
	}
	return n
}

func (c *fakeChat) SelfID() string {
	return testSelfID
}

func (c *fakeChat) SendTyping(_ context.Context, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("typing")
	return c.typingErr
}

func (c *fakeChat) SendCards(_ context.Context, channelID string, cards []e.PreviewCard) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("send")
	if c.sendErr != nil {
		return "", c.sendErr
	}

	c.nextID++
	id := "preview-" + strconv.Itoa(c.nextID)
	c.sent = append(c.sent, cards)
	c.history = append(c.history, previewMessage(id, channelID, cards))
	return id, nil
}

func (c *fakeChat) EditCards(_ context.Context, _ string, messageID string, cards []e.PreviewCard) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("edit")
	if c.editErr != nil {
		return c.editErr
	}
	c.edited[messageID] = cards
	return nil
}

func (c *fakeChat) DeleteMessage(_ context.Context, _ string, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("delete")
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.deleted = append(c.deleted, messageID)
	return nil
}

func (c *fakeChat) FetchMessage(_ context.Context, _ string, _ string) (e.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("fetch")
	if c.fetchErr != nil {
		return e.Message{}, c.fetchErr
	}
	if len(c.fetches) == 0 {
		return e.Message{}, nil
	}

	i := c.fetchN
	if i >= len(c.fetches) {
		i = len(c.fetches) - 1
	}
	c.fetchN++
	return c.fetches[i], nil
}

func (c *fakeChat) HistoryAfter(_ context.Context, _ string, _ string, limit int) ([]e.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("history")
	if c.historyErr != nil {
		return nil, c.historyErr
	}
	if len(c.history) > limit {
		return append([]e.Message(nil), c.history[:limit]...), nil
	}
	return append([]e.Message(nil), c.history...), nil
}

func (c *fakeChat) SuppressPreviews(_ context.Context, _ string, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("suppress")
	return c.suppressErr
}

type fakeFiles struct {
	mu      sync.Mutex
	files   map[string]e.FileMetadata
	errs    map[string]error
	fetched []string

	// delay is spent on every fetch, after it was recorded
	delay time.Duration
}

func (f *fakeFiles) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func (f *fakeFiles) GetMetadata(_ context.Context, fileID string) (e.FileMetadata, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, fileID)
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[fileID]; ok {
		return e.FileMetadata{}, err
	}
	if file, ok := f.files[fileID]; ok {
		return file, nil
	}
	return testFile(fileID), nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []e.State
	deleted  int
}

func (r *fakeRecorder) ObserveOutcome(state e.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, state)
}

func (r *fakeRecorder) ObserveDeleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted++
}

func newTestHandler(chat *fakeChat, files *fakeFiles) *Handler {
	return &Handler{
		Log:          logger.Discard(),
		Chat:         chat,
		Files:        files,
		PollAttempts: 3,
		PollBackoff:  time.Millisecond,
		HistorySize:  5,
		MaxCards:     10,
	}
}

func testFile(id string) e.FileMetadata {
	return e.FileMetadata{
		FileID:       id,
		Name:         "File " + id,
		URL:          driveURL(id),
		MimeType:     "application/vnd.google-apps.document",
		ModifiedTime: "2024-03-01T10:00:00Z",
	}
}

func driveURL(id string) string {
	return "https://drive.google.com/file/d/" + id + "/view"
}

func sourceMessage(id, text string) e.SourceMessage {
	return e.SourceMessage{ID: id, ChannelID: testChannelID, AuthorID: "user", Text: text}
}

func withNativePreviews(urls ...string) e.Message {
	msg := e.Message{ID: "source", ChannelID: testChannelID, AuthorID: "user"}
	for _, u := range urls {
		msg.Embeds = append(msg.Embeds, e.Embed{Title: "native", URL: u})
	}
	return msg
}

func previewMessage(id, channelID string, cards []e.PreviewCard) e.Message {
	msg := e.Message{ID: id, ChannelID: channelID, AuthorID: testSelfID}
	for _, card := range cards {
		msg.Embeds = append(msg.Embeds, e.Embed{Title: card.Title, URL: card.URL})
	}
	return msg
}

func botPreviewOf(id, sourceID string) e.Message {
	return e.Message{
		ID:        id,
		ChannelID: testChannelID,
		AuthorID:  testSelfID,
		Embeds: []e.Embed{
			{Title: zerowidth.Append("Some file", sourceID), URL: driveURL("X")},
		},
	}
}
