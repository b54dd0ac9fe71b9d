package gpio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDriver records writes and can fail selected operations.
type fakeDriver struct {
	exported map[int]bool
	dirs     map[int]Direction
	levels   map[int]Level

	writes []string
	failOn map[string]int // op -> pin
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		exported: make(map[int]bool),
		dirs:     make(map[int]Direction),
		levels:   make(map[int]Level),
		failOn:   make(map[string]int),
	}
}

var errBoom = errors.New("boom")

func (f *fakeDriver) fail(op string, pin int) error {
	if p, ok := f.failOn[op]; ok && p == pin {
		return errBoom
	}
	return nil
}

func (f *fakeDriver) Exported(pin int) (bool, error) { return f.exported[pin], nil }

func (f *fakeDriver) Export(pin int) error {
	if err := f.fail("export", pin); err != nil {
		return err
	}
	f.exported[pin] = true
	f.writes = append(f.writes, "export")
	return nil
}

func (f *fakeDriver) Direction(pin int) (Direction, error) { return f.dirs[pin], nil }

func (f *fakeDriver) SetDirection(pin int, dir Direction) error {
	if err := f.fail("direction", pin); err != nil {
		return err
	}
	f.dirs[pin] = dir
	f.writes = append(f.writes, "direction")
	return nil
}

func (f *fakeDriver) Value(pin int) (Level, error) { return f.levels[pin], nil }

func (f *fakeDriver) SetValue(pin int, level Level) error {
	if err := f.fail("value", pin); err != nil {
		return err
	}
	f.levels[pin] = level
	f.writes = append(f.writes, "value "+level.String())
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBank_Initialize(t *testing.T) {
	drv := newFakeDriver()
	bank := NewBank(drv, []int{17, 27, 22}, quietLogger())

	require.NoError(t, bank.Initialize())

	for _, pin := range []int{17, 27, 22} {
		assert.True(t, drv.exported[pin])
		assert.Equal(t, DirectionOut, drv.dirs[pin])
		assert.Equal(t, High, drv.levels[pin])
	}
	assert.Len(t, drv.writes, 9)
}

func TestBank_InitializeIdempotent(t *testing.T) {
	drv := newFakeDriver()
	bank := NewBank(drv, []int{5, 6}, quietLogger())

	require.NoError(t, bank.Initialize())
	drv.writes = nil

	require.NoError(t, bank.Initialize())
	assert.Empty(t, drv.writes, "second initialize must not write")
}

func TestBank_InitializeSkipsSatisfiedSteps(t *testing.T) {
	drv := newFakeDriver()
	drv.exported[4] = true
	drv.dirs[4] = DirectionOut
	drv.levels[4] = Low

	bank := NewBank(drv, []int{4}, quietLogger())
	require.NoError(t, bank.Initialize())

	assert.Equal(t, []string{"value 1"}, drv.writes)
}

func TestBank_InitializeFailureNoRollback(t *testing.T) {
	drv := newFakeDriver()
	drv.failOn["direction"] = 2

	bank := NewBank(drv, []int{1, 2, 3}, quietLogger())
	err := bank.Initialize()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHardware)
	assert.ErrorIs(t, err, errBoom)

	var hwe *HardwareError
	require.ErrorAs(t, err, &hwe)
	assert.Equal(t, 2, hwe.Pin)
	assert.Equal(t, "set direction", hwe.Op)

	// pin 1 stays initialized, pin 2 exported only, pin 3 untouched
	assert.Equal(t, High, drv.levels[1])
	assert.True(t, drv.exported[2])
	assert.False(t, drv.exported[3])
}

func TestBank_InitializeExportFailure(t *testing.T) {
	drv := newFakeDriver()
	drv.failOn["export"] = 9

	bank := NewBank(drv, []int{9}, quietLogger())
	err := bank.Initialize()
	assert.ErrorIs(t, err, ErrHardware)
}

func TestBank_Sweep(t *testing.T) {
	drv := newFakeDriver()
	bank := NewBank(drv, []int{1, 2}, quietLogger())
	bank.SetSweepHold(time.Millisecond)

	require.NoError(t, bank.Sweep(context.Background()))

	assert.Equal(t, []string{"value 0", "value 1", "value 0", "value 1"}, drv.writes)
	assert.Equal(t, High, drv.levels[1])
	assert.Equal(t, High, drv.levels[2])
}

// recordingClock returns immediately and remembers what it was asked to sleep.
type recordingClock struct {
	sleeps []time.Duration
}

func (c *recordingClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	return ctx.Err()
}

func TestBank_SweepUsesClock(t *testing.T) {
	drv := newFakeDriver()
	clk := &recordingClock{}
	bank := NewBank(drv, []int{1, 2, 3}, quietLogger())
	bank.SetClock(clk)
	bank.SetSweepHold(time.Hour)

	require.NoError(t, bank.Sweep(context.Background()))
	assert.Equal(t, []time.Duration{time.Hour, time.Hour, time.Hour}, clk.sleeps)
	assert.Len(t, drv.writes, 6)
}

func TestBank_SweepAbortsOnFailure(t *testing.T) {
	drv := newFakeDriver()
	drv.failOn["value"] = 2
	bank := NewBank(drv, []int{1, 2, 3}, quietLogger())
	bank.SetSweepHold(0)

	err := bank.Sweep(context.Background())
	assert.ErrorIs(t, err, ErrHardware)
	assert.Equal(t, []string{"value 0", "value 1"}, drv.writes)
}

func TestBank_SweepCancelled(t *testing.T) {
	drv := newFakeDriver()
	bank := NewBank(drv, []int{1, 2}, quietLogger())
	bank.SetSweepHold(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bank.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBank_Set(t *testing.T) {
	drv := newFakeDriver()
	bank := NewBank(drv, []int{10, 11}, quietLogger())

	require.NoError(t, bank.Set(1, true))
	assert.Equal(t, High, drv.levels[11])

	require.NoError(t, bank.Set(1, false))
	assert.Equal(t, Low, drv.levels[11])
}

func TestBank_SetOutOfRange(t *testing.T) {
	drv := newFakeDriver()
	bank := NewBank(drv, []int{10, 11}, quietLogger())

	for _, idx := range []int{2, 3, 100, -1} {
		err := bank.Set(idx, true)
		require.Error(t, err, "index %d", idx)
		assert.ErrorIs(t, err, ErrIndex)

		var ie *IndexError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, 2, ie.Len)
	}
	assert.Empty(t, drv.writes)
}

func TestBank_SetHardwareFailure(t *testing.T) {
	drv := newFakeDriver()
	drv.failOn["value"] = 11
	bank := NewBank(drv, []int{10, 11}, quietLogger())

	err := bank.Set(1, true)
	assert.ErrorIs(t, err, ErrHardware)
}

func TestBank_Apply(t *testing.T) {
	drv := newFakeDriver()
	bank := NewBank(drv, []int{1, 2, 3}, quietLogger())

	require.NoError(t, bank.Apply([]bool{true, false}))
	assert.Equal(t, High, drv.levels[1])
	assert.Equal(t, Low, drv.levels[2])
	_, touched := drv.levels[3]
	assert.False(t, touched, "pins beyond the vector are not addressed")

	err := bank.Apply([]bool{true, true, true, true})
	assert.ErrorIs(t, err, ErrIndex)
}

type closingDriver struct {
	*fakeDriver
	closed int
}

func (d *closingDriver) Close() error {
	d.closed++
	return nil
}

func TestBank_Close(t *testing.T) {
	drv := &closingDriver{fakeDriver: newFakeDriver()}
	bank := NewBank(drv, []int{1}, quietLogger())
	require.NoError(t, bank.Close())
	assert.Equal(t, 1, drv.closed)

	assert.NoError(t, NewBank(newFakeDriver(), []int{1}, nil).Close(), "driver without Close")
}

func TestBank_PinsIsCopy(t *testing.T) {
	pins := []int{1, 2}
	bank := NewBank(newFakeDriver(), pins, nil)
	pins[0] = 99

	assert.Equal(t, []int{1, 2}, bank.Pins())
	assert.Equal(t, 2, bank.Len())
}

func TestDryRunDriver(t *testing.T) {
	drv := NewDryRunDriver(quietLogger())
	bank := NewBank(drv, []int{3, 4}, quietLogger())

	require.NoError(t, bank.Initialize())
	require.NoError(t, bank.Set(0, false))

	assert.Equal(t, map[int]Level{3: Low, 4: High}, drv.Levels())
}

func TestRPIODriver_CloseUnopened(t *testing.T) {
	bank := NewBank(NewRPIODriver(), []int{17}, quietLogger())
	assert.NoError(t, bank.Close(), "nothing mapped yet")
}
