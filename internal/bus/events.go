// Package bus funnels the relay's two inbound sources (native platform
// events and hub frames) into one serialized processing path, so sends
// never race a reconnect over shared connection state.
package bus

import "github.com/polaris-im/telegram-relay/internal/models"

// Event is one unit of inbound work. Exactly one field group is set.
type Event struct {
	// Native is a message normalized from a platform event.
	Native      *models.Message
	ChannelPost bool

	// Outbound is a canonical message the hub wants delivered.
	Outbound *models.Message

	// Command is a raw command frame from the hub.
	Command *models.Frame
}
