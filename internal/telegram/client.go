// Package telegram bridges the canonical message model to the Telegram Bot
// API: native updates in, canonical sends out.
package telegram

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/polaris-im/telegram-relay/internal/attach"
	"github.com/polaris-im/telegram-relay/internal/models"
	"github.com/polaris-im/telegram-relay/internal/textutil"
)

// MaxMessageLength is Telegram's hard ceiling for a single text message.
const MaxMessageLength = 4096

// botAPI is the slice of tgbotapi.BotAPI the client uses. Narrowed to an
// interface so tests can record sends without a network.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetMe() (tgbotapi.User, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client wraps the Telegram bot connection.
type Client struct {
	api botAPI
}

// NewClient authorizes against the Bot API with the given token.
func NewClient(token string, debug bool) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	bot.Debug = debug
	log.Printf("[Telegram] Authorized as @%s", bot.Self.UserName)
	return &Client{api: bot}, nil
}

// Profile returns the bot's own resolved account.
func (c *Client) Profile() (models.User, error) {
	me, err := c.api.GetMe()
	if err != nil {
		return models.User{}, fmt.Errorf("telegram getMe: %w", err)
	}
	return models.User{
		ID:        me.ID,
		FirstName: me.FirstName,
		Username:  me.UserName,
		IsBot:     me.IsBot,
	}, nil
}

// Updates starts long polling and returns the native update stream.
func (c *Client) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	return c.api.GetUpdatesChan(u)
}

// Stop ends long polling.
func (c *Client) Stop() {
	c.api.StopReceivingUpdates()
}

// Send delivers a canonical message through the platform. Empty text,
// missing forward parameters, and unknown types are silent no-ops; a failed
// chat action never blocks delivery.
func (c *Client) Send(msg *models.Message) error {
	chatID, err := strconv.ParseInt(msg.Conversation.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID %q: %w", msg.Conversation.ID, err)
	}

	if err := c.SendChatAction(chatID, msg.Type); err != nil {
		log.Printf("[Telegram] Chat action failed: %v", err)
	}

	extra := msg.Extra
	if extra == nil {
		extra = &models.Extra{}
	}
	caption := extra.Caption
	if extra.Format == models.FormatHTML {
		caption = textutil.HTMLToMarkdown(caption)
	}
	caption = strings.TrimSpace(caption)

	replyTo := 0
	if msg.Reply != nil {
		replyTo = int(msg.Reply.ID)
	}

	switch msg.Type {
	case models.TypeText:
		return c.sendText(chatID, msg.Content, extra, replyTo)
	case models.TypePhoto, models.TypeAnimation, models.TypeDocument,
		models.TypeAudio, models.TypeVideo, models.TypeVoice,
		models.TypeVideoNote, models.TypeSticker:
		return c.sendMedia(chatID, msg.Type, msg.Content, caption, extra, replyTo)
	case models.TypeForward:
		return c.forward(chatID, extra)
	default:
		return nil
	}
}

func (c *Client) sendText(chatID int64, content string, extra *models.Extra, replyTo int) error {
	if content == "" {
		return nil
	}
	text := content
	if extra.Format == models.FormatHTML {
		text = textutil.HTMLToMarkdown(text)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	preview := extra.Preview != nil && *extra.Preview

	send := func(part string) error {
		m := tgbotapi.NewMessage(chatID, part)
		m.ParseMode = tgbotapi.ModeMarkdown
		m.DisableWebPagePreview = !preview
		m.ReplyToMessageID = replyTo
		if len(extra.ReplyMarkup) > 0 {
			m.ReplyMarkup = extra.ReplyMarkup
		}
		if _, err := c.api.Send(m); err != nil {
			return fmt.Errorf("sending message: %w", err)
		}
		return nil
	}

	// Telegram measures the limit in UTF-16 units. Chunk boundaries still
	// use byte lengths, which never exceed the UTF-16 count per chunk.
	if len(utf16.Encode([]rune(text))) > MaxMessageLength {
		for _, chunk := range textutil.SplitMessage(text, MaxMessageLength) {
			if err := send(chunk); err != nil {
				return err
			}
		}
		return nil
	}
	return send(text)
}

func (c *Client) sendMedia(chatID int64, msgType models.MessageType, content, caption string, extra *models.Extra, replyTo int) error {
	handle, err := attach.Resolve(content)
	if err != nil {
		return fmt.Errorf("resolving attachment: %w", err)
	}
	if handle.Cleanup != nil {
		defer func() {
			if err := handle.Cleanup(); err != nil {
				log.Printf("[Telegram] Temp file cleanup failed: %v", err)
			}
		}()
	}
	file := fileData(handle)

	var cfg tgbotapi.Chattable
	switch msgType {
	case models.TypePhoto:
		v := tgbotapi.NewPhoto(chatID, file)
		v.Caption, v.ParseMode, v.ReplyToMessageID = caption, tgbotapi.ModeMarkdown, replyTo
		cfg = v
	case models.TypeAnimation:
		v := tgbotapi.NewAnimation(chatID, file)
		v.Caption, v.ParseMode, v.ReplyToMessageID = caption, tgbotapi.ModeMarkdown, replyTo
		cfg = v
	case models.TypeDocument:
		v := tgbotapi.NewDocument(chatID, file)
		v.Caption, v.ParseMode, v.ReplyToMessageID = caption, tgbotapi.ModeMarkdown, replyTo
		cfg = v
	case models.TypeAudio:
		v := tgbotapi.NewAudio(chatID, file)
		v.Caption, v.ParseMode, v.ReplyToMessageID = caption, tgbotapi.ModeMarkdown, replyTo
		cfg = v
	case models.TypeVideo:
		v := tgbotapi.NewVideo(chatID, file)
		v.Caption, v.ParseMode, v.ReplyToMessageID = caption, tgbotapi.ModeMarkdown, replyTo
		cfg = v
	case models.TypeVoice:
		v := tgbotapi.NewVoice(chatID, file)
		v.Caption, v.ParseMode, v.ReplyToMessageID = caption, tgbotapi.ModeMarkdown, replyTo
		cfg = v
	case models.TypeVideoNote:
		v := tgbotapi.NewVideoNote(chatID, 0, file)
		v.ReplyToMessageID = replyTo
		cfg = v
	case models.TypeSticker:
		// Sticker sends carry no caption.
		v := tgbotapi.NewSticker(chatID, file)
		v.ReplyToMessageID = replyTo
		cfg = v
	}

	if _, err := c.api.Send(cfg); err != nil {
		return fmt.Errorf("sending %s: %w", msgType, err)
	}
	return nil
}

func (c *Client) forward(chatID int64, extra *models.Extra) error {
	if extra.Conversation == "" || extra.Message == "" {
		return nil
	}
	fromChat, err := extra.Conversation.Int64()
	if err != nil {
		log.Printf("[Telegram] Forward dropped, bad source chat %q", extra.Conversation)
		return nil
	}
	messageID, err := extra.Message.Int64()
	if err != nil {
		log.Printf("[Telegram] Forward dropped, bad source message %q", extra.Message)
		return nil
	}
	if _, err := c.api.Send(tgbotapi.NewForward(chatID, fromChat, int(messageID))); err != nil {
		return fmt.Errorf("forwarding message: %w", err)
	}
	return nil
}

// SendChatAction shows the typing-style indicator matching the outgoing
// message type. "cancel" clears nothing to send and is a no-op.
func (c *Client) SendChatAction(chatID int64, msgType models.MessageType) error {
	action := tgbotapi.ChatTyping
	switch msgType {
	case models.TypePhoto:
		action = tgbotapi.ChatUploadPhoto
	case models.TypeDocument:
		action = tgbotapi.ChatUploadDocument
	case models.TypeVideo:
		action = tgbotapi.ChatUploadVideo
	case models.TypeAudio, models.TypeVoice:
		action = tgbotapi.ChatRecordVoice
	case models.MessageType("location"), models.MessageType("venue"):
		action = tgbotapi.ChatFindLocation
	case models.MessageType("cancel"):
		return nil
	}
	if _, err := c.api.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		return fmt.Errorf("chat action %s: %w", action, err)
	}
	return nil
}

func fileData(h attach.Handle) tgbotapi.RequestFileData {
	switch h.Kind {
	case attach.KindPath:
		return tgbotapi.FilePath(h.Value)
	case attach.KindURL:
		return tgbotapi.FileURL(h.Value)
	default:
		return tgbotapi.FileID(h.Value)
	}
}
