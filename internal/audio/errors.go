package audio

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrDecode         = errors.New("cannot decode audio")
	ErrDeviceNotFound = errors.New("audio device not found")
)

// DecodeError is returned when a file cannot be opened or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

// Is reports whether target is ErrDecode.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DeviceNotFoundError is returned when no output device has the requested name.
type DeviceNotFoundError struct {
	Name string
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("audio device %q not found", e.Name)
}

// Is reports whether target is ErrDeviceNotFound.
func (e *DeviceNotFoundError) Is(target error) bool {
	return target == ErrDeviceNotFound
}
