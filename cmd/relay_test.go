package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polaris-im/telegram-relay/internal/bus"
	"github.com/polaris-im/telegram-relay/internal/config"
	"github.com/polaris-im/telegram-relay/internal/models"
)

// fakeHub records every envelope written instead of opening a socket.
type fakeHub struct {
	sent []any
	err  error
}

func (f *fakeHub) Header(t models.EnvelopeType) models.Envelope {
	return models.Envelope{Bot: "relaybot", Platform: platformName, Type: t}
}

func (f *fakeHub) Send(v any) error {
	f.sent = append(f.sent, v)
	return f.err
}

// fakeSender records platform deliveries.
type fakeSender struct {
	sent []*models.Message
	err  error
}

func (f *fakeSender) Send(msg *models.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func broadcastConfig() *config.Config {
	return &config.Config{
		Relay: config.RelayConfig{
			BroadcastConversationID: "-100777",
			BroadcastReceiverID:     "-100555",
		},
	}
}

func nativeEvent(conversationID string, channelPost bool) bus.Event {
	return bus.Event{
		Native: &models.Message{
			ID:           31,
			Conversation: models.Conversation{ID: conversationID, Title: "source"},
			Content:      "news of the day",
			Type:         models.TypeText,
			Extra:        &models.Extra{Format: models.FormatPlain},
		},
		ChannelPost: channelPost,
	}
}

func TestRelayNative_BroadcastFromConfiguredChannel(t *testing.T) {
	hub := &fakeHub{}
	relayNative(hub, broadcastConfig(), nativeEvent("-100777", true))

	require.Len(t, hub.sent, 1)
	env, ok := hub.sent[0].(models.BroadcastEnvelope)
	require.True(t, ok, "channel post from the broadcast source goes out as a broadcast")
	assert.Equal(t, models.EnvelopeBroadcast, env.Type)
	assert.Equal(t, models.Target{"all"}, env.Target)
	require.NotNil(t, env.Message)
	assert.Equal(t, "-100555", env.Message.Conversation.ID, "receiver conversation replaces the source")
	assert.Equal(t, "news of the day", env.Message.Content)
	assert.Equal(t, models.TypeText, env.Message.Type)
	require.NotNil(t, env.Message.Extra)
}

func TestRelayNative_ChannelPostFromOtherChannelIsPlainMessage(t *testing.T) {
	hub := &fakeHub{}
	ev := nativeEvent("-100999", true)
	relayNative(hub, broadcastConfig(), ev)

	require.Len(t, hub.sent, 1)
	env, ok := hub.sent[0].(models.MessageEnvelope)
	require.True(t, ok)
	assert.Equal(t, models.EnvelopeMessage, env.Type)
	assert.Same(t, ev.Native, env.Message)
}

func TestRelayNative_DirectMessageNeverBroadcasts(t *testing.T) {
	// Same conversation id as the broadcast source, but not a channel post.
	hub := &fakeHub{}
	relayNative(hub, broadcastConfig(), nativeEvent("-100777", false))

	require.Len(t, hub.sent, 1)
	_, ok := hub.sent[0].(models.MessageEnvelope)
	assert.True(t, ok)
}

func TestRelayNative_NoBroadcastConfigured(t *testing.T) {
	hub := &fakeHub{}
	relayNative(hub, &config.Config{}, nativeEvent("-100777", true))

	require.Len(t, hub.sent, 1)
	_, ok := hub.sent[0].(models.MessageEnvelope)
	assert.True(t, ok)
}

func TestHandleEvent_OutboundDeliversToPlatform(t *testing.T) {
	tg := &fakeSender{}
	hub := &fakeHub{}
	msg := &models.Message{Conversation: models.Conversation{ID: "42"}, Content: "hi", Type: models.TypeText}

	handleEvent(tg, hub, &config.Config{}, bus.Event{Outbound: msg})

	require.Len(t, tg.sent, 1)
	assert.Same(t, msg, tg.sent[0])
	assert.Empty(t, hub.sent, "outbound traffic never echoes back to the hub")
}

func TestHandleEvent_OutboundFailureDoesNotPanic(t *testing.T) {
	tg := &fakeSender{err: errors.New("telegram down")}
	hub := &fakeHub{}

	handleEvent(tg, hub, &config.Config{}, bus.Event{Outbound: &models.Message{Conversation: models.Conversation{ID: "42"}}})
	assert.Empty(t, hub.sent)
}

func TestHandleEvent_CommandSendsNothing(t *testing.T) {
	tg := &fakeSender{}
	hub := &fakeHub{}

	handleEvent(tg, hub, &config.Config{}, bus.Event{Command: &models.Frame{Bot: "relaybot", Type: models.EnvelopeCommand}})
	assert.Empty(t, tg.sent)
	assert.Empty(t, hub.sent)
}

func TestHandleEvent_NativeRoutesThroughHub(t *testing.T) {
	tg := &fakeSender{}
	hub := &fakeHub{}

	handleEvent(tg, hub, broadcastConfig(), nativeEvent("-100777", true))
	require.Len(t, hub.sent, 1)
	assert.Empty(t, tg.sent)
}
