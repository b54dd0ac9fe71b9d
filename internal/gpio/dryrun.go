package gpio

import (
	"log/slog"
	"maps"
	"sync"
)

// DryRunDriver keeps pin state in memory and logs every write.
// It never touches hardware.
type DryRunDriver struct {
	mu       sync.Mutex
	logger   *slog.Logger
	exported map[int]bool
	dirs     map[int]Direction
	levels   map[int]Level
}

// NewDryRunDriver creates an empty dry-run driver.
func NewDryRunDriver(logger *slog.Logger) *DryRunDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRunDriver{
		logger:   logger,
		exported: make(map[int]bool),
		dirs:     make(map[int]Direction),
		levels:   make(map[int]Level),
	}
}

func (d *DryRunDriver) Exported(pin int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exported[pin], nil
}

func (d *DryRunDriver) Export(pin int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exported[pin] = true
	d.logger.Info("dry-run export", "pin", pin)
	return nil
}

func (d *DryRunDriver) Direction(pin int) (Direction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirs[pin], nil
}

func (d *DryRunDriver) SetDirection(pin int, dir Direction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirs[pin] = dir
	d.logger.Info("dry-run direction", "pin", pin, "direction", dir)
	return nil
}

func (d *DryRunDriver) Value(pin int) (Level, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.levels[pin], nil
}

func (d *DryRunDriver) SetValue(pin int, level Level) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.levels[pin] = level
	d.logger.Info("dry-run value", "pin", pin, "level", level)
	return nil
}

// Levels returns a snapshot of the current pin levels.
func (d *DryRunDriver) Levels() map[int]Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.levels)
}
