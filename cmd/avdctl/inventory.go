package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-avd/internal/config"
)

const inventoryTimeout = 15 * time.Second

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices attached to the adb server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			cctx, cancel := context.WithTimeout(cmd.Context(), inventoryTimeout)
			defer cancel()

			devices, err := client.Devices(cctx)
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No devices attached")
				return nil
			}

			rows := make([][]string, 0, len(devices))
			for _, d := range devices {
				kind := "device"
				if d.IsEmulator {
					kind = "emulator"
				}
				rows = append(rows, []string{d.Serial, string(d.State), kind})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Serial", "State", "Kind"}, rows))
			return nil
		},
	}
}

func newAVDsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "avds",
		Short: "List virtual devices the emulator can launch",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			cctx, cancel := context.WithTimeout(cmd.Context(), inventoryTimeout)
			defer cancel()

			names, err := client.ListAVDs(cctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No AVDs configured")
				return nil
			}

			rows := make([][]string, 0, len(names))
			for _, n := range names {
				rows = append(rows, []string{n})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"AVD"}, rows))
			return nil
		},
	}
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the SDK tools are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows, failed := checkTools(cfg)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Tool", "Path", "Status"}, rows))
			if failed > 0 {
				return fmt.Errorf("%d tool(s) unavailable", failed)
			}
			return nil
		},
	}
}

func checkTools(cfg *config.Config) ([][]string, int) {
	tools := []struct{ name, path string }{
		{"adb", cfg.Tools.ADB},
		{"emulator", cfg.Tools.Emulator},
	}

	var rows [][]string
	failed := 0
	for _, t := range tools {
		status := toolStatus(t.path)
		if status != "ok" {
			failed++
		}
		rows = append(rows, []string{t.name, t.path, status})
	}
	return rows, failed
}

func toolStatus(path string) string {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "missing"
	case err != nil:
		return err.Error()
	case info.IsDir():
		return "is a directory"
	case info.Mode().Perm()&0o111 == 0:
		return "not executable"
	}
	return "ok"
}
