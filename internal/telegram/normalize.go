package telegram

import (
	"encoding/json"
	"strconv"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/polaris-im/telegram-relay/internal/models"
)

// Normalize converts a native Telegram message into the canonical shape.
//
// Content classification takes the first media kind present, in a fixed
// priority order; a message never lands in more than one type. An inlined
// parent message is normalized one level deep; a bare reply id without the
// inlined object is not resolved, since that would need an extra fetch.
func Normalize(msg *tgbotapi.Message) *models.Message {
	return normalize(msg, 0)
}

func normalize(msg *tgbotapi.Message, depth int) *models.Message {
	conversation := models.Conversation{
		ID:    strconv.FormatInt(msg.Chat.ID, 10),
		Title: msg.Chat.Title,
	}

	var sender models.Sender
	if msg.From != nil {
		sender = models.SenderFromUser(models.User{
			ID:        msg.From.ID,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
			Username:  msg.From.UserName,
			IsBot:     msg.From.IsBot,
		})
	} else {
		sender = models.SenderFromConversation(conversation, msg.Chat.ID)
	}

	extra := &models.Extra{}
	if raw, err := json.Marshal(msg); err == nil {
		extra.OriginalMessage = raw
	}

	var content string
	var msgType models.MessageType
	switch {
	case msg.Text != "":
		content = msg.Text
		msgType = models.TypeText
		collectEntities(msg.Text, msg.Entities, extra)
	case len(msg.Photo) > 0:
		content = msg.Photo[0].FileID
		msgType = models.TypePhoto
	case msg.Animation != nil:
		content = msg.Animation.FileID
		msgType = models.TypeAnimation
	case msg.Document != nil:
		content = msg.Document.FileID
		msgType = models.TypeDocument
	case msg.Audio != nil:
		content = msg.Audio.FileID
		msgType = models.TypeAudio
	case msg.Video != nil:
		content = msg.Video.FileID
		msgType = models.TypeVideo
	case msg.VideoNote != nil:
		content = msg.VideoNote.FileID
		msgType = models.TypeVideoNote
	case msg.Sticker != nil:
		content = msg.Sticker.FileID
		msgType = models.TypeSticker
	default:
		msgType = models.TypeUnsupported
	}

	if msg.Caption != "" {
		extra.Caption = msg.Caption
	}
	if msg.ReplyMarkup != nil {
		if raw, err := json.Marshal(msg.ReplyMarkup); err == nil {
			extra.ReplyMarkup = raw
		}
	}
	if msg.ViaBot != nil && msg.ViaBot.ID > 0 {
		extra.ViaBotUserID = msg.ViaBot.ID
	}

	var reply *models.Message
	if depth == 0 && msg.ReplyToMessage != nil {
		reply = normalize(msg.ReplyToMessage, depth+1)
	}

	return &models.Message{
		ID:           int64(msg.MessageID),
		Conversation: conversation,
		Sender:       &sender,
		Content:      content,
		Type:         msgType,
		Date:         int64(msg.Date),
		Reply:        reply,
		Extra:        extra,
	}
}

// collectEntities classifies entity annotations into urls, mentions, and
// hashtags, in order of appearance in the native entity list.
func collectEntities(text string, entities []tgbotapi.MessageEntity, extra *models.Extra) {
	for _, entity := range entities {
		value := entitySlice(text, entity.Offset, entity.Length)
		if value == "" {
			continue
		}
		switch entity.Type {
		case "url":
			extra.URLs = append(extra.URLs, value)
		case "mention":
			extra.Mentions = append(extra.Mentions, value)
		case "hashtag":
			extra.Hashtags = append(extra.Hashtags, value)
		}
	}
}

// entitySlice extracts an entity range. Telegram counts offsets in UTF-16
// code units, not bytes or runes.
func entitySlice(text string, offset, length int) string {
	units := utf16.Encode([]rune(text))
	if offset < 0 || length <= 0 || offset+length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[offset : offset+length]))
}
