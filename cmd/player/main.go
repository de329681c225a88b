package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"keygate/pkg/logger"
)

var (
	serverURL string
	videoID   string
	logLevel  string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "player",
	Short: "Keygate playback client",
	Long:  "Command-line client for a keygate server: plays the protected HLS stream with automatic token renewal and runs the fake checkout.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := logger.DefaultConfig()
		cfg.Level = logLevel
		cfg.Format = "text"
		cfg.Output = "stderr"
		return logger.Init(cfg)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("KEYGATE_URL", "http://localhost:3000"), "keygate server base URL")
	rootCmd.PersistentFlags().StringVar(&videoID, "video", "", "video id (empty = server default)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, error")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP timeout per request")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(checkoutCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
