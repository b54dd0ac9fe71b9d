package gpio

import (
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPIODriver drives Raspberry Pi pins (BCM numbering) through memory-mapped
// registers. There is no export step and pin mode cannot be read back, so
// the driver remembers the directions it has set.
type RPIODriver struct {
	mu     sync.Mutex
	opened bool
	dirs   map[int]Direction
}

// NewRPIODriver creates an unopened driver. Registers are mapped on first Export.
func NewRPIODriver() *RPIODriver {
	return &RPIODriver{dirs: make(map[int]Direction)}
}

// Exported reports whether the register mapping is open.
func (d *RPIODriver) Exported(pin int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened, nil
}

// Export maps the GPIO registers once for all pins.
func (d *RPIODriver) Export(pin int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.opened {
		return nil
	}
	if err := rpio.Open(); err != nil {
		return err
	}
	d.opened = true
	return nil
}

// Direction returns the last direction set by this driver.
func (d *RPIODriver) Direction(pin int) (Direction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirs[pin], nil
}

// SetDirection configures the pin mode.
func (d *RPIODriver) SetDirection(pin int, dir Direction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := rpio.Pin(pin)
	switch dir {
	case DirectionOut:
		p.Output()
	default:
		p.Input()
	}
	d.dirs[pin] = dir
	return nil
}

// Value reads the pin level.
func (d *RPIODriver) Value(pin int) (Level, error) {
	return rpio.Pin(pin).Read() == rpio.High, nil
}

// SetValue writes the pin level.
func (d *RPIODriver) SetValue(pin int, level Level) error {
	if level == High {
		rpio.Pin(pin).High()
	} else {
		rpio.Pin(pin).Low()
	}
	return nil
}

// Close unmaps the registers.
func (d *RPIODriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return nil
	}
	d.opened = false
	return rpio.Close()
}
