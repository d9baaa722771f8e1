package discord

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	e "nuclight.org/drive-preview-bot/pkg/entities"
)

// restSession is the part of *discordgo.Session the chat uses.
type restSession interface {
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	ChannelMessageSendEmbeds(channelID string, embeds []*discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbeds(channelID, messageID string, embeds []*discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// Chat talks to Discord over REST on behalf of the preview handler.
type Chat struct {
	session restSession

	mu     sync.RWMutex
	selfID string
}

func NewChat(session *discordgo.Session) *Chat {
	return &Chat{session: session}
}

func (c *Chat) SelfID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selfID
}

func (c *Chat) setSelfID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selfID = id
}

func (c *Chat) SendTyping(ctx context.Context, channelID string) error {
	err := c.session.ChannelTyping(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sending typing: %w", mapError(err))
	}
	return nil
}

func (c *Chat) SendCards(ctx context.Context, channelID string, cards []e.PreviewCard) (string, error) {
	msg, err := c.session.ChannelMessageSendEmbeds(channelID, toEmbeds(cards), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("sending preview: %w", mapError(err))
	}
	return msg.ID, nil
}

func (c *Chat) EditCards(ctx context.Context, channelID, messageID string, cards []e.PreviewCard) error {
	_, err := c.session.ChannelMessageEditEmbeds(channelID, messageID, toEmbeds(cards), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("editing preview: %w", mapError(err))
	}
	return nil
}

func (c *Chat) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("deleting message: %w", mapError(err))
	}
	return nil
}

func (c *Chat) FetchMessage(ctx context.Context, channelID, messageID string) (e.Message, error) {
	msg, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return e.Message{}, fmt.Errorf("fetching message: %w", mapError(err))
	}
	return toMessage(msg), nil
}

// HistoryAfter returns up to limit messages posted after messageID, oldest first.
func (c *Chat) HistoryAfter(ctx context.Context, channelID, messageID string, limit int) ([]e.Message, error) {
	msgs, err := c.session.ChannelMessages(channelID, limit, "", messageID, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching messages: %w", mapError(err))
	}

	slices.SortFunc(msgs, func(a, b *discordgo.Message) int {
		return compareSnowflakes(a.ID, b.ID)
	})

	res := make([]e.Message, 0, len(msgs))
	for _, msg := range msgs {
		res = append(res, toMessage(msg))
	}
	return res, nil
}

func (c *Chat) SuppressPreviews(ctx context.Context, channelID, messageID string) error {
	_, err := c.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:      messageID,
		Channel: channelID,
		Flags:   discordgo.MessageFlagsSuppressEmbeds,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("suppressing embeds: %w", mapError(err))
	}
	return nil
}

// mapError turns the "Unknown Message" API error, or a bare 404 on a message
// route, into entities.ErrMessageGone.
func mapError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}

	gone := false
	switch {
	case restErr.Message != nil:
		gone = restErr.Message.Code == discordgo.ErrCodeUnknownMessage
	case restErr.Response != nil:
		gone = restErr.Response.StatusCode == http.StatusNotFound
	}

	if gone {
		return fmt.Errorf("%w: %w", e.ErrMessageGone, err)
	}
	return err
}

func toEmbeds(cards []e.PreviewCard) []*discordgo.MessageEmbed {
	embeds := make([]*discordgo.MessageEmbed, 0, len(cards))
	for _, card := range cards {
		embed := &discordgo.MessageEmbed{
			Type:  discordgo.EmbedTypeRich,
			Title: card.Title,
			URL:   card.URL,
			Color: card.Color,
		}
		if !card.Timestamp.IsZero() {
			embed.Timestamp = card.Timestamp.UTC().Format(time.RFC3339)
		}
		embeds = append(embeds, embed)
	}
	return embeds
}

func toMessage(msg *discordgo.Message) e.Message {
	res := e.Message{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		Text:      msg.Content,
	}
	if msg.Author != nil {
		res.AuthorID = msg.Author.ID
	}
	for _, embed := range msg.Embeds {
		if embed == nil {
			continue
		}
		res.Embeds = append(res.Embeds, e.Embed{Title: embed.Title, URL: embed.URL})
	}
	return res
}

// compareSnowflakes orders ids numerically without parsing them.
func compareSnowflakes(a, b string) int {
	if len(a) != len(b) {
		return cmp.Compare(len(a), len(b))
	}
	return cmp.Compare(a, b)
}
