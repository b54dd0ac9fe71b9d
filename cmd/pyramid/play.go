package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pyramid/internal/config"
	"github.com/jmylchreest/pyramid/internal/gpio"
	"github.com/jmylchreest/pyramid/internal/show"
)

var playOpts struct {
	loopSecs  uint
	device    string
	dance     string
	danceFile string
	dryRun    bool
}

var playCmd = &cobra.Command{
	Use:   "play FILE",
	Short: "Play an audio file and run the dance",
	Long: `Play an audio file once, or forever with --loop.

Before the first pass every configured pin is exported, set to output and
driven high, then each pin is pulsed low for a moment as a self-test.
During playback the dance is checked once per second and due steps are
written to the pins.

Pins are configured in the config file:

  [pins]
  driver = "sysfs"        # sysfs, rpio or dry-run
  numbers = [17, 27, 22]  # dance index 0, 1, 2

Supported formats: WAV, MP3, OGG Vorbis and FLAC.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().UintVar(&playOpts.loopSecs, "loop", 0,
		"Play again after this many seconds, forever")
	playCmd.Flags().StringVar(&playOpts.device, "device", "",
		"Output device name (see 'pyramid devices')")
	playCmd.Flags().StringVar(&playOpts.dance, "dance", "",
		"Dance timeline, e.g. \"20:0,1,0;30:1,1\"")
	playCmd.Flags().StringVar(&playOpts.danceFile, "dance-file", "",
		"Read the dance timeline from a file")
	playCmd.Flags().BoolVar(&playOpts.dryRun, "dry-run", false,
		"Log pin writes instead of touching hardware")
	playCmd.MarkFlagsMutuallyExclusive("dance", "dance-file")
}

func runPlay(cmd *cobra.Command, args []string) error {
	opts, err := playOptions(cmd, args[0], cfg)
	if err != nil {
		return err
	}

	bank, err := newBank(cfg.Pins, playOpts.dryRun, logger)
	if err != nil {
		return err
	}

	backend, err := newBackend(cfg.Audio, logger)
	if err != nil {
		return err
	}

	// Keep the interface nil when there are no pins.
	var pins show.Bank
	if bank != nil {
		pins = bank
		defer func() { _ = bank.Close() }()
	}
	session := show.NewSession(backend, pins, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = session.Run(ctx, opts)
	if audioLeftPlaying(err) {
		logger.Debug("leaving audio context open after pin failure")
	} else {
		_ = backend.Close()
	}

	if errors.Is(err, context.Canceled) {
		logger.Info("stopped")
		return nil
	}
	return err
}

// audioLeftPlaying reports whether err is a pin failure, which ends a pass
// without stopping its audio. The device is still running then, and the
// audio context must not be torn down under it; process exit releases both.
func audioLeftPlaying(err error) bool {
	return errors.Is(err, gpio.ErrHardware) || errors.Is(err, gpio.ErrIndex)
}

// playOptions merges flags over the config file into session options.
func playOptions(cmd *cobra.Command, file string, cfg *config.Config) (show.Options, error) {
	if _, err := os.Stat(file); err != nil {
		return show.Options{}, fmt.Errorf("cannot open %s: %w", file, err)
	}

	opts := show.Options{
		File:   file,
		Device: cfg.Audio.Device,
	}

	if cmd.Flags().Changed("device") {
		opts.Device = playOpts.device
	}

	if cmd.Flags().Changed("loop") {
		delay := time.Duration(playOpts.loopSecs) * time.Second
		opts.RepeatDelay = &delay
	} else if cfg.Play.Loop != nil {
		delay := cfg.Play.Loop.Duration()
		opts.RepeatDelay = &delay
	}

	switch {
	case cmd.Flags().Changed("dance"):
		opts.Dance = playOpts.dance
	case cmd.Flags().Changed("dance-file"):
		text, err := config.ReadDanceFile(playOpts.danceFile)
		if err != nil {
			return show.Options{}, err
		}
		opts.Dance = text
	default:
		text, err := cfg.Play.LoadDance()
		if err != nil {
			return show.Options{}, err
		}
		opts.Dance = text
	}

	return opts, nil
}
