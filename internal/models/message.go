// Package models defines the canonical message schema shared with the relay
// hub: users, conversations, messages, and the wire envelopes exchanged over
// the relay socket.
package models

import "encoding/json"

// MessageType classifies the content of a canonical message.
type MessageType string

const (
	TypeText        MessageType = "text"
	TypePhoto       MessageType = "photo"
	TypeAnimation   MessageType = "animation"
	TypeDocument    MessageType = "document"
	TypeAudio       MessageType = "audio"
	TypeVideo       MessageType = "video"
	TypeVideoNote   MessageType = "video_note"
	TypeVoice       MessageType = "voice"
	TypeSticker     MessageType = "sticker"
	TypeForward     MessageType = "forward"
	TypeUnsupported MessageType = "unsupported"
)

// Format names the rendering mode of a message's text content.
type Format string

const (
	FormatPlain    Format = ""
	FormatMarkdown Format = "Markdown"
	FormatHTML     Format = "HTML"
)

// User is a platform account. Built once per native event, never mutated.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Username  string `json:"username,omitempty"`
	IsBot     bool   `json:"isBot"`
}

// Conversation is a chat, group, or channel. IDs are normalized to strings
// so 64-bit platform ids survive JSON round trips without precision loss.
type Conversation struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Sender identifies who authored a message: an individual user, or the
// conversation itself when the platform reports no author (channel posts).
type Sender struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Username  string `json:"username,omitempty"`
	IsBot     bool   `json:"isBot,omitempty"`
	Title     string `json:"title,omitempty"`
}

// SenderFromUser builds a Sender from an individual user.
func SenderFromUser(u User) Sender {
	return Sender{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		IsBot:     u.IsBot,
	}
}

// SenderFromConversation builds the stand-in Sender for authorless messages.
func SenderFromConversation(c Conversation, id int64) Sender {
	return Sender{ID: id, Title: c.Title}
}

// Message is the canonical, platform-independent chat message. Constructed
// once per inbound native event or outbound envelope; transformations
// produce a new Message instead of mutating.
type Message struct {
	ID           int64        `json:"id,omitempty"`
	Conversation Conversation `json:"conversation"`
	Sender       *Sender      `json:"sender,omitempty"`
	Content      string       `json:"content"`
	Type         MessageType  `json:"type"`
	Date         int64        `json:"date,omitempty"`
	Reply        *Message     `json:"reply,omitempty"`
	Extra        *Extra       `json:"extra,omitempty"`
}

// Extra carries the optional metadata of a Message. It never travels on its
// own. Fields unknown to this schema survive round trips through Unknown.
type Extra struct {
	URLs              []string        `json:"urls,omitempty"`
	Mentions          []string        `json:"mentions,omitempty"`
	Hashtags          []string        `json:"hashtags,omitempty"`
	Caption           string          `json:"caption,omitempty"`
	Format            Format          `json:"format,omitempty"`
	ReplyMarkup       json.RawMessage `json:"replyMarkup,omitempty"`
	Preview           *bool           `json:"preview,omitempty"`
	OriginalMessage   json.RawMessage `json:"originalMessage,omitempty"`
	ViaBotUserID      int64           `json:"viaBotUserId,omitempty"`
	RestrictionReason string          `json:"restrictionReason,omitempty"`

	// Forward source, set by the hub on forward sends.
	Conversation Numberish `json:"conversation,omitempty"`
	Message      Numberish `json:"message,omitempty"`

	// Unknown holds fields another relay attached that this schema does not
	// model. Preserved verbatim on re-marshal.
	Unknown map[string]json.RawMessage `json:"-"`
}

var extraKnownKeys = map[string]bool{
	"urls": true, "mentions": true, "hashtags": true, "caption": true,
	"format": true, "replyMarkup": true, "preview": true,
	"originalMessage": true, "viaBotUserId": true, "restrictionReason": true,
	"conversation": true, "message": true,
}

type extraAlias Extra

// UnmarshalJSON keeps unrecognized fields in Unknown instead of dropping them.
func (e *Extra) UnmarshalJSON(data []byte) error {
	var a extraAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if extraKnownKeys[k] {
			delete(all, k)
		}
	}
	if len(all) > 0 {
		a.Unknown = all
	}
	*e = Extra(a)
	return nil
}

// MarshalJSON re-emits unknown fields alongside the known ones.
func (e Extra) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(extraAlias(e))
	if err != nil {
		return nil, err
	}
	if len(e.Unknown) == 0 {
		return data, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range e.Unknown {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
