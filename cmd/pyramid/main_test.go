package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/pyramid/internal/audio"
	"github.com/jmylchreest/pyramid/internal/config"
	"github.com/jmylchreest/pyramid/internal/dance"
	"github.com/jmylchreest/pyramid/internal/gpio"
)

// resetPlayFlags restores playCmd flags to their defaults after a test.
func resetPlayFlags(t *testing.T) {
	t.Cleanup(func() {
		playCmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})
}

func touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, nil, 0644))
	return path
}

func TestPlayOptions_Defaults(t *testing.T) {
	resetPlayFlags(t)
	file := touch(t, "song.mp3")

	require.NoError(t, playCmd.ParseFlags(nil))
	opts, err := playOptions(playCmd, file, config.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, file, opts.File)
	assert.Nil(t, opts.RepeatDelay, "no loop unless asked")
	assert.Empty(t, opts.Dance)
	assert.Empty(t, opts.Device)
}

func TestPlayOptions_FlagsOverrideConfig(t *testing.T) {
	resetPlayFlags(t)
	file := touch(t, "song.mp3")

	loop := config.Duration(time.Minute)
	cfg := config.DefaultConfig()
	cfg.Audio.Device = "HDMI"
	cfg.Play.Loop = &loop
	cfg.Play.Dance = "1:1"

	require.NoError(t, playCmd.ParseFlags([]string{"--loop", "3", "--device", "USB", "--dance", "2:1;3:0"}))
	opts, err := playOptions(playCmd, file, cfg)
	require.NoError(t, err)

	require.NotNil(t, opts.RepeatDelay)
	assert.Equal(t, 3*time.Second, *opts.RepeatDelay)
	assert.Equal(t, "USB", opts.Device)
	assert.Equal(t, "2:1;3:0", opts.Dance)
}

func TestPlayOptions_ConfigValues(t *testing.T) {
	resetPlayFlags(t)
	file := touch(t, "song.mp3")

	loop := config.Duration(0)
	cfg := config.DefaultConfig()
	cfg.Audio.Device = "HDMI"
	cfg.Play.Loop = &loop
	cfg.Play.Dance = "1:1"

	require.NoError(t, playCmd.ParseFlags(nil))
	opts, err := playOptions(playCmd, file, cfg)
	require.NoError(t, err)

	require.NotNil(t, opts.RepeatDelay, "a zero loop delay still loops")
	assert.Equal(t, time.Duration(0), *opts.RepeatDelay)
	assert.Equal(t, "HDMI", opts.Device)
	assert.Equal(t, "1:1", opts.Dance)
}

func TestPlayOptions_DanceFile(t *testing.T) {
	resetPlayFlags(t)
	file := touch(t, "song.mp3")
	danceFile := filepath.Join(t.TempDir(), "show.dance")
	require.NoError(t, os.WriteFile(danceFile, []byte("2:1\n3:0\n"), 0644))

	require.NoError(t, playCmd.ParseFlags([]string{"--dance-file", danceFile}))
	opts, err := playOptions(playCmd, file, config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "2:1;3:0", opts.Dance)
}

func TestPlayOptions_MissingFile(t *testing.T) {
	resetPlayFlags(t)
	require.NoError(t, playCmd.ParseFlags(nil))

	_, err := playOptions(playCmd, filepath.Join(t.TempDir(), "nope.mp3"), config.DefaultConfig())
	assert.Error(t, err)
}

func TestParseOnOff(t *testing.T) {
	for _, s := range []string{"on", "1", "high"} {
		on, err := parseOnOff(s)
		require.NoError(t, err)
		assert.True(t, on, s)
	}
	for _, s := range []string{"off", "0", "low"} {
		on, err := parseOnOff(s)
		require.NoError(t, err)
		assert.False(t, on, s)
	}
	_, err := parseOnOff("maybe")
	assert.Error(t, err)
}

func TestNewBank(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	bank, err := newBank(config.DefaultConfig().Pins, false, log)
	require.NoError(t, err)
	assert.Nil(t, bank, "no pins configured")

	pins := config.DefaultConfig().Pins
	pins.Numbers = []int{17, 27}
	bank, err = newBank(pins, true, log)
	require.NoError(t, err)
	require.NotNil(t, bank)
	assert.Equal(t, []int{17, 27}, bank.Pins())
}

func TestNewDriver(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pins := config.DefaultConfig().Pins

	drv, err := newDriver(pins, false, log)
	require.NoError(t, err)
	assert.IsType(t, &gpio.SysfsDriver{}, drv)

	pins.Driver = config.DriverRPIO
	drv, err = newDriver(pins, false, log)
	require.NoError(t, err)
	assert.IsType(t, &gpio.RPIODriver{}, drv)

	drv, err = newDriver(pins, true, log)
	require.NoError(t, err)
	assert.IsType(t, &gpio.DryRunDriver{}, drv, "dry run overrides the config")

	pins.Driver = "spi"
	_, err = newDriver(pins, false, log)
	assert.Error(t, err)
}

func TestPrintSchedule(t *testing.T) {
	var buf bytes.Buffer
	printSchedule(&buf, dance.MustParse("20:0,1,0;30:1,1"))

	out := buf.String()
	assert.Contains(t, out, "20s")
	assert.Contains(t, out, "50s")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("20s")), bytes.Index(buf.Bytes(), []byte("50s")))

	buf.Reset()
	printSchedule(&buf, dance.MustParse(""))
	assert.Equal(t, "Empty dance\n", buf.String())
}

func TestPrintDevices(t *testing.T) {
	var buf bytes.Buffer
	printDevices(&buf, []audio.DeviceInfo{{Name: "HDMI"}, {Name: "Headphones", Default: true}})

	out := buf.String()
	assert.Contains(t, out, "  HDMI\n")
	assert.Contains(t, out, "* Headphones")

	buf.Reset()
	printDevices(&buf, nil)
	assert.Equal(t, "No output devices found\n", buf.String())
}

func TestAudioLeftPlaying(t *testing.T) {
	pinErr := fmt.Errorf("dance step at 3s: %w", &gpio.HardwareError{Pin: 17, Op: "set value", Err: errors.New("EIO")})
	assert.True(t, audioLeftPlaying(pinErr))
	assert.True(t, audioLeftPlaying(&gpio.IndexError{Index: 2, Len: 2}))

	assert.False(t, audioLeftPlaying(nil))
	assert.False(t, audioLeftPlaying(context.Canceled))
	assert.False(t, audioLeftPlaying(&audio.DecodeError{Path: "x.mp3", Err: errors.New("bad")}))
}
