package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pyramid/internal/gpio"
)

var pinsOpts struct {
	dryRun bool
}

// pinsCmd represents the pins command group.
var pinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "Check the configured GPIO pins",
	Long: `Check the configured GPIO pins without playing audio.

Use 'pyramid pins init' to export the pins and drive them high.
Use 'pyramid pins sweep' to pulse each pin low in turn.
Use 'pyramid pins set INDEX on|off' to drive a single pin.`,
}

var pinsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Export the pins, set them to output and drive them high",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bank, err := requireBank()
		if err != nil {
			return err
		}
		defer func() { _ = bank.Close() }()
		return bank.Initialize()
	},
}

var pinsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Pulse each pin low in index order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bank, err := requireBank()
		if err != nil {
			return err
		}
		defer func() { _ = bank.Close() }()
		if err := bank.Initialize(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return bank.Sweep(ctx)
	},
}

var pinsSetCmd = &cobra.Command{
	Use:   "set INDEX on|off",
	Short: "Drive one pin by dance index",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", args[0], err)
		}
		on, err := parseOnOff(args[1])
		if err != nil {
			return err
		}

		bank, err := requireBank()
		if err != nil {
			return err
		}
		defer func() { _ = bank.Close() }()
		if err := bank.Initialize(); err != nil {
			return err
		}
		return bank.Set(index, on)
	},
}

func init() {
	rootCmd.AddCommand(pinsCmd)
	pinsCmd.AddCommand(pinsInitCmd)
	pinsCmd.AddCommand(pinsSweepCmd)
	pinsCmd.AddCommand(pinsSetCmd)

	pinsCmd.PersistentFlags().BoolVar(&pinsOpts.dryRun, "dry-run", false,
		"Log pin writes instead of touching hardware")
}

func requireBank() (*gpio.Bank, error) {
	bank, err := newBank(cfg.Pins, pinsOpts.dryRun, logger)
	if err != nil {
		return nil, err
	}
	if bank == nil {
		return nil, fmt.Errorf("no pins configured (set [pins] numbers in %s)", configPathForDisplay())
	}
	return bank, nil
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "1", "high":
		return true, nil
	case "off", "0", "low":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state %q, must be on or off", s)
	}
}
