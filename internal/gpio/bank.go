package gpio

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/jmylchreest/pyramid/internal/clock"
)

// DefaultSweepHold is how long each pin is held low during a sweep.
const DefaultSweepHold = time.Second

// Bank owns an ordered set of output pins addressed by index 0..N-1.
// It is not safe for concurrent use; a single goroutine drives it.
type Bank struct {
	driver Driver
	pins   []int
	logger *slog.Logger
	clock  clock.Clock

	sweepHold time.Duration
}

// NewBank creates a bank over the given driver pin ids. The slice order
// defines the bank index of each pin.
func NewBank(driver Driver, pins []int, logger *slog.Logger) *Bank {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bank{
		driver:    driver,
		pins:      slices.Clone(pins),
		logger:    logger,
		clock:     clock.Wall{},
		sweepHold: DefaultSweepHold,
	}
}

// SetSweepHold sets how long Sweep holds each pin low.
func (b *Bank) SetSweepHold(d time.Duration) {
	b.sweepHold = d
}

// SetClock replaces the clock used for sweep holds.
func (b *Bank) SetClock(c clock.Clock) {
	b.clock = c
}

// Len returns the number of pins.
func (b *Bank) Len() int {
	return len(b.pins)
}

// Pins returns the driver pin ids in index order.
func (b *Bank) Pins() []int {
	return slices.Clone(b.pins)
}

// Initialize exports every pin, configures it as an output and drives it
// to the quiescent level. Steps already in the target state are skipped,
// so calling it again performs no writes. Pins handled before a failure
// are left as they are.
func (b *Bank) Initialize() error {
	for i, pin := range b.pins {
		exported, err := b.driver.Exported(pin)
		if err != nil {
			return hwErr(pin, "check export", err)
		}
		if !exported {
			if err := b.driver.Export(pin); err != nil {
				return hwErr(pin, "export", err)
			}
			b.logger.Debug("exported pin", "index", i, "pin", pin)
		}

		dir, err := b.driver.Direction(pin)
		if err != nil {
			return hwErr(pin, "read direction", err)
		}
		if dir != DirectionOut {
			if err := b.driver.SetDirection(pin, DirectionOut); err != nil {
				return hwErr(pin, "set direction", err)
			}
			b.logger.Debug("set pin direction", "index", i, "pin", pin, "direction", DirectionOut)
		}

		level, err := b.driver.Value(pin)
		if err != nil {
			return hwErr(pin, "read value", err)
		}
		if level != Quiescent {
			if err := b.driver.SetValue(pin, Quiescent); err != nil {
				return hwErr(pin, "set value", err)
			}
			b.logger.Debug("set pin level", "index", i, "pin", pin, "level", Quiescent)
		}
	}

	b.logger.Info("pin bank initialized", "pins", len(b.pins))
	return nil
}

// Sweep drives each pin low for the sweep hold and then back high, one pin
// at a time in index order. It is a visible self-test.
func (b *Bank) Sweep(ctx context.Context) error {
	for i, pin := range b.pins {
		if err := b.driver.SetValue(pin, Low); err != nil {
			return hwErr(pin, "sweep low", err)
		}
		b.logger.Debug("sweep", "index", i, "pin", pin)

		if err := b.clock.Sleep(ctx, b.sweepHold); err != nil {
			return err
		}

		if err := b.driver.SetValue(pin, High); err != nil {
			return hwErr(pin, "sweep high", err)
		}
	}
	return nil
}

// Set drives the pin at index high when on is true, low otherwise.
func (b *Bank) Set(index int, on bool) error {
	if index < 0 || index >= len(b.pins) {
		return &IndexError{Index: index, Len: len(b.pins)}
	}
	pin := b.pins[index]
	return hwErr(pin, "set value", b.driver.SetValue(pin, LevelFor(on)))
}

// Apply sets pins 0..len(states)-1 in index order, stopping at the first error.
func (b *Bank) Apply(states []bool) error {
	for i, on := range states {
		if err := b.Set(i, on); err != nil {
			return err
		}
	}
	return nil
}

// Close releases driver resources such as mapped registers. Pins keep
// their last level.
func (b *Bank) Close() error {
	if c, ok := b.driver.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
