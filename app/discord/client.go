package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	e "nuclight.org/drive-preview-bot/pkg/entities"
	"nuclight.org/drive-preview-bot/pkg/logger"
)

const (
	eventCreate = "create"
	eventUpdate = "update"
	eventDelete = "delete"
)

const (
	defaultQueueSize = 100
	cachedMessages   = 200
	watchingStatus   = "Google Drive"
)

type EventHandler interface {
	HandleMessage(ctx context.Context, msg e.SourceMessage, edited bool) (e.Outcome, error)
	HandleDelete(ctx context.Context, channelID string, messageIDs []string) error
}

// Reporter forwards errors and panics to an error tracker.
type Reporter interface {
	Error(err error, tags map[string]string)
	Panic(v any, tags map[string]string)
}

type Observer interface {
	ObserveHandle(event string, took time.Duration)
}

type event struct {
	kind      string
	channelID string
	msg       e.SourceMessage
	ids       []string
}

type Client struct {
	Log logger.Logger

	// Session is the gateway session, see NewSession
	Session *discordgo.Session

	// Chat is the REST side of Session, its self id is set on ready
	Chat *Chat

	WorkersNum int

	// QueueSize is the number of events buffered for workers
	QueueSize int

	Handler EventHandler

	// Reporter and Metrics are optional
	Reporter Reporter
	Metrics  Observer

	events  chan event
	done    <-chan struct{}
	removes []func()
	wg      sync.WaitGroup
}

// NewSession creates a bot session subscribed to guild messages with their content.
// The state cache keeps recent messages so edits can be compared to what they replace.
// It only caches messages of channels it knows, which arrive with guild events.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	session.State.MaxMessageCount = cachedMessages

	return session, nil
}

func (c *Client) Start(ctx context.Context) error {
	if c.WorkersNum == 0 {
		return fmt.Errorf("workers number must be greater than 0")
	}

	queueSize := c.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	c.events = make(chan event, queueSize)
	c.done = ctx.Done()

	c.removes = append(c.removes,
		c.Session.AddHandler(c.onReady),
		c.Session.AddHandler(c.onMessageCreate),
		c.Session.AddHandler(c.onMessageUpdate),
		c.Session.AddHandler(c.onMessageDelete),
		c.Session.AddHandler(c.onMessageDeleteBulk),
	)

	for i := 0; i < c.WorkersNum; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.handleEvents(ctx)
		}()
	}

	err := c.Session.Open()
	if err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}

	return nil
}

func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) Close() error {
	for _, remove := range c.removes {
		remove()
	}
	c.removes = nil

	err := c.Session.Close()
	if err != nil {
		return fmt.Errorf("closing discord session: %w", err)
	}
	return nil
}

func (c *Client) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		c.Log.Warn("ready without user")
		return
	}

	c.Chat.setSelfID(r.User.ID)
	c.Log.Info("discord session ready", "discord_user_id", r.User.ID, "discord_user_name", r.User.Username, "guilds", len(r.Guilds))

	err := s.UpdateWatchStatus(0, watchingStatus)
	if err != nil {
		c.Log.Warn("updating status", "error", err)
	}
}

func (c *Client) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || c.isSelf(m.Message) {
		return
	}

	c.enqueue(event{
		kind:      eventCreate,
		channelID: m.ChannelID,
		msg:       toSourceMessage(m.Message),
	})
}

// onMessageUpdate skips updates that only touch embeds or flags. Those are the
// platform attaching its previews or the bot suppressing them.
func (c *Client) onMessageUpdate(_ *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.Message == nil || c.isSelf(m.Message) {
		return
	}

	if m.EditedTimestamp == nil {
		return
	}

	if m.BeforeUpdate != nil && m.BeforeUpdate.Content == m.Content {
		return
	}

	c.enqueue(event{
		kind:      eventUpdate,
		channelID: m.ChannelID,
		msg:       toSourceMessage(m.Message),
	})
}

func (c *Client) onMessageDelete(_ *discordgo.Session, m *discordgo.MessageDelete) {
	if m.Message == nil {
		return
	}

	c.enqueue(event{
		kind:      eventDelete,
		channelID: m.ChannelID,
		ids:       []string{m.ID},
	})
}

func (c *Client) onMessageDeleteBulk(_ *discordgo.Session, m *discordgo.MessageDeleteBulk) {
	if len(m.Messages) == 0 {
		return
	}

	c.enqueue(event{
		kind:      eventDelete,
		channelID: m.ChannelID,
		ids:       m.Messages,
	})
}

func (c *Client) isSelf(msg *discordgo.Message) bool {
	return msg.Author == nil || msg.Author.ID == c.Chat.SelfID()
}

func (c *Client) enqueue(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Client) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			c.handleEvent(ctx, ev)
		}
	}
}

func (c *Client) handleEvent(ctx context.Context, ev event) {
	log := c.Log.With("discord_event", ev.kind, "discord_channel_id", ev.channelID)
	tags := map[string]string{"event": ev.kind, "channel_id": ev.channelID}
	if ev.msg.ID != "" {
		tags["message_id"] = ev.msg.ID
	}
	started := time.Now()

	defer func() {
		if err := recover(); err != nil {
			log.Error("panic", "error", err)
			if c.Reporter != nil {
				c.Reporter.Panic(err, tags)
			}
		}

		if c.Metrics != nil {
			c.Metrics.ObserveHandle(ev.kind, time.Since(started))
		}
	}()

	err := c.dispatch(ctx, log, ev)
	if err != nil {
		log.Error("handling event", "error", err)
		if c.Reporter != nil {
			c.Reporter.Error(err, tags)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, log logger.Logger, ev event) error {
	switch ev.kind {
	case eventCreate, eventUpdate:
		log.Info(
			"new message",
			"discord_message_id", ev.msg.ID,
			"discord_user_id", ev.msg.AuthorID,
			"text", ev.msg.Text,
		)

		outcome, err := c.Handler.HandleMessage(ctx, ev.msg, ev.kind == eventUpdate)
		if err != nil {
			return fmt.Errorf("handling message %s in state %s: %w", ev.msg.ID, outcome.State, err)
		}

		log.Info("message handled", "discord_message_id", ev.msg.ID, "state", outcome.State, "preview_id", outcome.PreviewID)
		return nil

	case eventDelete:
		log.Info("messages deleted", "discord_message_ids", ev.ids)

		err := c.Handler.HandleDelete(ctx, ev.channelID, ev.ids)
		if err != nil {
			return fmt.Errorf("handling delete: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown event kind: %s", ev.kind)
	}
}

func toSourceMessage(msg *discordgo.Message) e.SourceMessage {
	res := e.SourceMessage{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		Text:      msg.Content,
	}
	if msg.Author != nil {
		res.AuthorID = msg.Author.ID
	}
	return res
}
