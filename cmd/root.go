package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "telegram-relay",
	Short: "Telegram client for the polaris message hub",
	Long:  "telegram-relay bridges Telegram to the polaris hub over a persistent websocket, translating native messages to the canonical schema and back.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
}
