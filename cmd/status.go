package cmd

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/polaris-im/telegram-relay/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show resolved configuration and probe the hub endpoints",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fmt.Print(cfg.String())

	probe(cfg.Server, "primary")
	if cfg.LocalServer != "" {
		probe(cfg.LocalServer, "fallback")
	}
	return nil
}

func probe(url, label string) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		fmt.Printf("  %s endpoint %s: unreachable (%v)\n", label, url, err)
		return
	}
	conn.Close()
	fmt.Printf("  %s endpoint %s: reachable\n", label, url)
}
