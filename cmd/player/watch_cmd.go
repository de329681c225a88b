package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"keygate/application/playback"
	"keygate/infrastructure/apiclient"
	"keygate/infrastructure/hlsengine"
	"keygate/pkg/logger"
)

var (
	watchOutput    string
	watchKeyPrefix string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Play the protected stream",
	Long: `Fetch a playback token, load the encrypted HLS stream and write decrypted
segments to --output (default stdout, e.g. | ffplay -). The token is renewed
before it expires. Type "retry" after an error, "quit" to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sink, closeSink, err := openSink(watchOutput)
		if err != nil {
			return err
		}
		defer closeSink()

		client := apiclient.NewClient(apiclient.Config{BaseURL: serverURL, VideoID: videoID, Timeout: timeout})
		ctrl, err := playback.NewController(playback.Config{
			Tokens:        client,
			NewEngine:     hlsengine.Factory(hlsengine.Config{Sink: sink}),
			KeyPathPrefix: watchKeyPrefix,
		})
		if err != nil {
			return err
		}

		stderr := cmd.ErrOrStderr()
		ctrl.OnStateChange(func(state playback.State, message string) {
			logger.Info("Playback state changed", "state", state, "message", message)
			if message != "" {
				fmt.Fprintln(stderr, message)
			}
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := ctrl.Mount(ctx); err != nil {
			logger.Warn("Mount failed", "error", err)
		}

		go readCommands(ctx, cmd.InOrStdin(), ctrl)

		err = ctrl.Wait(ctx)
		ctrl.Teardown()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "-", "file for decrypted segments, - for stdout")
	watchCmd.Flags().StringVar(&watchKeyPrefix, "key-prefix", playback.DefaultKeyPathPrefix, "URL path prefix of key requests")
}

// readCommands คำสั่งจาก stdin: retry / quit
func readCommands(ctx context.Context, in io.Reader, ctrl *playback.Controller) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "retry", "r":
			if err := ctrl.Retry(ctx); err != nil {
				logger.Warn("Retry failed", "state", ctrl.State(), "error", err)
			}
		case "quit", "q":
			ctrl.Teardown()
			return
		case "status", "s":
			snap := ctrl.Snapshot()
			logger.Info("Playback status",
				"state", snap.State,
				"video", snap.VideoID,
				"expires_at", snap.ExpiresAt,
			)
		}
	}
}

func openSink(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
