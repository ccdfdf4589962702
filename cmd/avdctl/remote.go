package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-avd/internal/config"
	"github.com/teslashibe/go-avd/internal/httpc"
)

// launchResponse covers both /start_emulator and /start_and_open.
type launchResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Serial  string `json:"serial"`
	FeedURL string `json:"feed_url"`
	Chrome  bool   `json:"chrome"`
	Dialer  bool   `json:"dialer"`
}

func remoteClient(cfg *config.Config, server string) *httpc.Client {
	if server == "" {
		server = cfg.Server.PublicURL
	}
	// The server blocks until boot and first frame.
	timeout := cfg.Emulator.BootTimeoutDuration() + cfg.Emulator.VideoTimeoutDuration() + 30*time.Second
	return httpc.New(server, timeout)
}

func newLaunchCommand(ctx *commandContext) *cobra.Command {
	var (
		server string
		port   int
		chrome bool
		dialer bool
	)

	cmd := &cobra.Command{
		Use:   "launch <avd>",
		Short: "Ask a running control plane to start an emulator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client := remoteClient(cfg, server)

			body := map[string]any{"name": args[0], "port": port}
			path := "/start_emulator"
			if chrome || dialer {
				path = "/start_and_open"
				body["open_chrome"] = chrome
				body["open_dialer"] = dialer
			}

			var res launchResponse
			if err := client.PostJSON(cmd.Context(), path, body, &res); err != nil {
				return err
			}

			rows := [][]string{
				{"Serial", res.Serial},
				{"Feed", res.FeedURL},
			}
			if path == "/start_and_open" {
				rows = append(rows,
					[]string{"Chrome", strconv.FormatBool(res.Chrome)},
					[]string{"Dialer", strconv.FormatBool(res.Dialer)},
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "control plane URL (default: server.public_url)")
	cmd.Flags().IntVarP(&port, "port", "p", 5554, "even console port between 5554 and 5584")
	cmd.Flags().BoolVar(&chrome, "chrome", false, "open the browser once ready")
	cmd.Flags().BoolVar(&dialer, "dialer", false, "open the dialer once ready")
	return cmd
}

func newOpenCommand(ctx *commandContext) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:       "open <chrome|dialer> <serial>",
		Short:     "Open an app on a running emulator",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"chrome", "dialer"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			switch args[0] {
			case "chrome":
				path = "/open_chrome"
			case "dialer":
				path = "/open_dialer"
			default:
				return fmt.Errorf("unknown app %q: want chrome or dialer", args[0])
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var res launchResponse
			if err := remoteClient(cfg, server).PostJSON(cmd.Context(), path, map[string]string{"serial": args[1]}, &res); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "control plane URL (default: server.public_url)")
	return cmd
}
