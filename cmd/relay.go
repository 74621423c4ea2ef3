package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/polaris-im/telegram-relay/internal/bus"
	"github.com/polaris-im/telegram-relay/internal/config"
	"github.com/polaris-im/telegram-relay/internal/journal"
	"github.com/polaris-im/telegram-relay/internal/models"
	"github.com/polaris-im/telegram-relay/internal/relay"
	"github.com/polaris-im/telegram-relay/internal/telegram"
)

const platformName = "telegram"

// outboundSender delivers canonical messages to the platform.
type outboundSender interface {
	Send(msg *models.Message) error
}

// hubSender stamps and writes envelopes to the hub.
type hubSender interface {
	Header(t models.EnvelopeType) models.Envelope
	Send(v any) error
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Connect Telegram to the hub and relay messages",
	RunE:  runRelay,
}

func init() {
	rootCmd.AddCommand(relayCmd)
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tg, err := telegram.NewClient(cfg.Token, cfg.Debug)
	if err != nil {
		return err
	}
	profile, err := tg.Profile()
	if err != nil {
		return err
	}

	jr := journal.Open(cfg.RedisURL)
	defer jr.Close()

	queue := bus.NewQueue()
	mgr := relay.New(relay.Config{
		PrimaryURL:  cfg.Server,
		FallbackURL: cfg.LocalServer,
		Bot:         profile.Username,
		Platform:    platformName,
	})

	mgr.OnOpen = func(m *relay.Manager) error {
		hello := models.InitEnvelope{
			Envelope: m.Header(models.EnvelopeInit),
			User:     profile,
			Config:   cfg.RawRelay,
		}
		if err := m.Send(hello); err != nil {
			return err
		}
		log.Printf("[Relay] Connected as @%s", profile.Username)
		return nil
	}
	mgr.OnMessage = func(msg *models.Message) {
		queue.Publish(bus.Event{Outbound: msg})
	}
	mgr.OnCommand = func(frame models.Frame) {
		f := frame
		queue.Publish(bus.Event{Command: &f})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		tg.Stop()
		mgr.Shutdown()
		cancel()
	}()

	// Serialized processing of both inbound sources.
	go queue.Run(ctx, func(e bus.Event) {
		handleEvent(tg, mgr, cfg, e)
	})

	// Native update pump: normalize and enqueue.
	go func() {
		for update := range tg.Updates() {
			native := update.Message
			channelPost := false
			if native == nil {
				native = update.ChannelPost
				channelPost = true
			}
			if native == nil {
				continue
			}
			if jr.Observe(ctx, update.UpdateID) {
				continue
			}
			queue.Publish(bus.Event{
				Native:      telegram.Normalize(native),
				ChannelPost: channelPost,
			})
		}
	}()

	err = mgr.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handleEvent is the single serialized consumer of the event queue.
func handleEvent(tg outboundSender, hub hubSender, cfg *config.Config, e bus.Event) {
	switch {
	case e.Outbound != nil:
		if err := tg.Send(e.Outbound); err != nil {
			log.Printf("[Relay] Delivery failed: %v", err)
		}
	case e.Command != nil:
		// Command handling lives hub-side; the relay only acknowledges receipt.
		log.Printf("[Relay] Command frame from %s", e.Command.Bot)
	case e.Native != nil:
		relayNative(hub, cfg, e)
	}
}

// relayNative forwards a normalized platform message to the hub. A channel
// post from the configured broadcast source goes out as a broadcast to the
// configured receiver; everything else is a plain message envelope.
func relayNative(hub hubSender, cfg *config.Config, e bus.Event) {
	msg := e.Native
	src := cfg.Relay.BroadcastConversationID
	if e.ChannelPost && src != "" && msg.Conversation.ID == src.String() {
		env := models.BroadcastEnvelope{
			Envelope: hub.Header(models.EnvelopeBroadcast),
			Target:   models.Target{"all"},
			Message: &models.Message{
				Conversation: models.Conversation{ID: cfg.Relay.BroadcastReceiverID.String()},
				Content:      msg.Content,
				Type:         msg.Type,
				Extra:        msg.Extra,
			},
		}
		if err := hub.Send(env); err != nil {
			log.Printf("[Relay] Broadcast failed: %v", err)
		}
		return
	}

	env := models.MessageEnvelope{
		Envelope: hub.Header(models.EnvelopeMessage),
		Message:  msg,
	}
	if err := hub.Send(env); err != nil {
		log.Printf("[Relay] Relay failed: %v", err)
	}
}
