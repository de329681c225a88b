package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"keygate/domain/dto"
	"keygate/infrastructure/apiclient"
	"keygate/pkg/device"
)

var (
	checkoutUserID     string
	checkoutDeviceFile string
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Create a fake checkout session",
	Long:  "Create a fake checkout session for the video and print the success redirect URL. The device id is generated once and reused.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := checkoutDeviceFile
		if path == "" {
			p, err := device.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}
		deviceID, err := device.LoadOrCreate(path)
		if err != nil {
			return err
		}

		client := apiclient.NewClient(apiclient.Config{BaseURL: serverURL, VideoID: videoID, Timeout: timeout})

		// ไม่ระบุ video ใช้ video default ของ server (ถามผ่าน /token)
		video := videoID
		if video == "" {
			tok, err := client.FetchPlaybackToken(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to resolve default video: %w", err)
			}
			video = tok.Playback.VideoID
		}

		resp, err := client.CreateCheckoutSession(cmd.Context(), &dto.CreateCheckoutSessionRequest{
			VideoID:  video,
			DeviceID: deviceID,
			UserID:   checkoutUserID,
		})
		if err != nil {
			return fmt.Errorf("checkout failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "session: %s\nredirect: %s\n", resp.SessionID, resp.URL)
		return nil
	},
}

func init() {
	checkoutCmd.Flags().StringVar(&checkoutUserID, "user", "", "user id sent with the session")
	checkoutCmd.Flags().StringVar(&checkoutDeviceFile, "device-file", "", "device id file (default <config dir>/keygate/device_id)")
}
