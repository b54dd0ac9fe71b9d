// Package gpio drives a fixed, ordered bank of digital output pins.
//
// Hardware access goes through a Driver. The Bank addresses pins by a
// stable index and is the only component that writes to them.
package gpio

import (
	"errors"
	"fmt"
)

// Level describes the binary state of a pin: either LOW or HIGH.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "1"
	}
	return "0"
}

// Quiescent is the level every pin is driven to on initialization.
const Quiescent = High

// LevelFor maps a choreography state to a logic level. On is HIGH.
func LevelFor(on bool) Level {
	return Level(on)
}

// Direction is a pin's configured direction.
type Direction string

const (
	DirectionUnknown Direction = ""
	DirectionIn      Direction = "in"
	DirectionOut     Direction = "out"
)

// Driver is the pin I/O primitive set. Pin ids are driver specific
// (sysfs numbers, BCM numbers).
type Driver interface {
	// Exported reports whether the pin is already available for use.
	Exported(pin int) (bool, error)
	Export(pin int) error
	Direction(pin int) (Direction, error)
	SetDirection(pin int, dir Direction) error
	Value(pin int) (Level, error)
	SetValue(pin int, level Level) error
}

// Sentinel errors.
var (
	ErrHardware = errors.New("gpio hardware error")
	ErrIndex    = errors.New("pin index out of range")
)

// HardwareError wraps a driver failure for one pin operation.
type HardwareError struct {
	Pin int
	Op  string
	Err error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("gpio %d: %s: %v", e.Pin, e.Op, e.Err)
}

// Is reports whether target is ErrHardware.
func (e *HardwareError) Is(target error) bool {
	return target == ErrHardware
}

func (e *HardwareError) Unwrap() error {
	return e.Err
}

// IndexError is returned when a bank index has no pin.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("pin index %d out of range (bank has %d pins)", e.Index, e.Len)
}

// Is reports whether target is ErrIndex.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndex
}

func hwErr(pin int, op string, err error) error {
	if err == nil {
		return nil
	}
	return &HardwareError{Pin: pin, Op: op, Err: err}
}
