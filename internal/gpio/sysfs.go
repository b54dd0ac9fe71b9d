package gpio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// DefaultSysfsBase is the Linux sysfs GPIO class directory.
const DefaultSysfsBase = "/sys/class/gpio"

// SysfsDriver drives pins through the legacy /sys/class/gpio interface.
type SysfsDriver struct {
	base string

	// After export the kernel creates gpioN asynchronously, and udev may
	// still be fixing permissions.
	exportWait time.Duration
	pollEvery  time.Duration
}

// NewSysfsDriver creates a driver rooted at base. An empty base uses
// DefaultSysfsBase.
func NewSysfsDriver(base string) *SysfsDriver {
	if base == "" {
		base = DefaultSysfsBase
	}
	return &SysfsDriver{
		base:       base,
		exportWait: time.Second,
		pollEvery:  10 * time.Millisecond,
	}
}

// SetExportWait sets how long Export waits for the pin directory to appear.
func (d *SysfsDriver) SetExportWait(wait time.Duration) {
	d.exportWait = wait
}

func (d *SysfsDriver) pinDir(pin int) string {
	return filepath.Join(d.base, "gpio"+strconv.Itoa(pin))
}

// Exported reports whether gpioN exists.
func (d *SysfsDriver) Exported(pin int) (bool, error) {
	_, err := os.Stat(d.pinDir(pin))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Export writes the pin number to the export file and waits for the pin
// directory to become usable. Exporting an exported pin is not an error.
func (d *SysfsDriver) Export(pin int) error {
	err := writeFile(filepath.Join(d.base, "export"), strconv.Itoa(pin))
	if err != nil && !errors.Is(err, syscall.EBUSY) {
		return err
	}

	dirFile := filepath.Join(d.pinDir(pin), "direction")
	deadline := time.Now().Add(d.exportWait)
	for {
		f, err := os.OpenFile(dirFile, os.O_WRONLY, 0)
		if err == nil {
			return f.Close()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("pin not ready after export: %w", err)
		}
		time.Sleep(d.pollEvery)
	}
}

// Direction reads the direction file.
func (d *SysfsDriver) Direction(pin int) (Direction, error) {
	s, err := readFile(filepath.Join(d.pinDir(pin), "direction"))
	if err != nil {
		return DirectionUnknown, err
	}
	switch s {
	case string(DirectionIn):
		return DirectionIn, nil
	case string(DirectionOut):
		return DirectionOut, nil
	default:
		return DirectionUnknown, nil
	}
}

// SetDirection writes the direction file.
func (d *SysfsDriver) SetDirection(pin int, dir Direction) error {
	return writeFile(filepath.Join(d.pinDir(pin), "direction"), string(dir))
}

// Value reads the value file.
func (d *SysfsDriver) Value(pin int) (Level, error) {
	s, err := readFile(filepath.Join(d.pinDir(pin), "value"))
	if err != nil {
		return Low, err
	}
	switch s {
	case "0":
		return Low, nil
	case "1":
		return High, nil
	default:
		return Low, fmt.Errorf("unexpected value %q", s)
	}
}

// SetValue writes the value file.
func (d *SysfsDriver) SetValue(pin int, level Level) error {
	return writeFile(filepath.Join(d.pinDir(pin), "value"), level.String())
}

// sysfs attributes must be written in place, never created or replaced.
func writeFile(path, s string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(s); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
