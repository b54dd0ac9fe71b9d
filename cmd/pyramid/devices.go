package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/pyramid/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio output devices",
	Long: `List the playback devices of the configured audio backend.

Pass a name exactly as printed to 'pyramid play --device'. The system
default device is marked with '*'.`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	backend, err := newBackend(cfg.Audio, logger)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	devices, err := backend.Devices()
	if err != nil {
		return err
	}

	printDevices(cmd.OutOrStdout(), devices)
	return nil
}

func printDevices(w io.Writer, devices []audio.DeviceInfo) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No output devices found")
		return
	}

	defaultStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	for _, d := range devices {
		if d.Default {
			fmt.Fprintln(w, defaultStyle.Render("* "+d.Name))
		} else {
			fmt.Fprintln(w, "  "+d.Name)
		}
	}
}
