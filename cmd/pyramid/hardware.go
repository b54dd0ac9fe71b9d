package main

import (
	"fmt"
	"log/slog"

	"github.com/jmylchreest/pyramid/internal/audio"
	"github.com/jmylchreest/pyramid/internal/config"
	"github.com/jmylchreest/pyramid/internal/gpio"
)

// newDriver builds the configured pin driver. dryRun overrides the config.
func newDriver(pins config.PinsConfig, dryRun bool, logger *slog.Logger) (gpio.Driver, error) {
	if dryRun {
		return gpio.NewDryRunDriver(logger), nil
	}

	switch pins.Driver {
	case config.DriverSysfs:
		return gpio.NewSysfsDriver(pins.SysfsBase), nil
	case config.DriverRPIO:
		return gpio.NewRPIODriver(), nil
	case config.DriverDryRun:
		return gpio.NewDryRunDriver(logger), nil
	default:
		return nil, fmt.Errorf("unknown pin driver %q", pins.Driver)
	}
}

// newBank returns nil when no pins are configured.
func newBank(pins config.PinsConfig, dryRun bool, logger *slog.Logger) (*gpio.Bank, error) {
	if len(pins.Numbers) == 0 {
		return nil, nil
	}

	driver, err := newDriver(pins, dryRun, logger)
	if err != nil {
		return nil, err
	}

	bank := gpio.NewBank(driver, pins.Numbers, logger)
	bank.SetSweepHold(pins.SweepHold.Duration())
	return bank, nil
}

// newBackend builds the configured audio backend.
func newBackend(cfg config.AudioConfig, logger *slog.Logger) (audio.Backend, error) {
	return audio.NewBackend(cfg.Backend, float64(cfg.Volume)/100.0, logger)
}
