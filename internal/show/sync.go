package show

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/pyramid/internal/audio"
	"github.com/jmylchreest/pyramid/internal/clock"
	"github.com/jmylchreest/pyramid/internal/dance"
)

// Pins is the part of gpio.Bank the synchronizer drives.
type Pins interface {
	// Apply sets pins 0..len(states)-1 in index order, stopping at the
	// first error.
	Apply(states []bool) error
}

// DecodeFunc opens an audio file for playback.
type DecodeFunc func(path string) (*audio.Stream, error)

// Synchronizer runs single playback passes and steps the dance alongside.
type Synchronizer struct {
	device audio.Device
	pins   Pins
	decode DecodeFunc
	clock  clock.Clock
	logger *slog.Logger
}

// NewSynchronizer creates a synchronizer. pins may be nil, in which case
// passes play audio without pin activity.
func NewSynchronizer(device audio.Device, pins Pins, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		device: device,
		pins:   pins,
		decode: audio.Decode,
		clock:  clock.Wall{},
		logger: logger,
	}
}

// SetClock replaces the tick clock.
func (s *Synchronizer) SetClock(c clock.Clock) {
	s.clock = c
}

// SetDecoder replaces the audio decoder.
func (s *Synchronizer) SetDecoder(fn DecodeFunc) {
	s.decode = fn
}

// PassResult summarizes a finished pass.
type PassResult struct {
	ID      string
	Ticks   int // seconds elapsed on the tick clock
	Applied int // dance steps applied
}

// RunPass plays path once. While the audio is playing it checks the
// timeline every tick and applies any step due at the elapsed second.
// After the audio reports finished it waits for the buffered tail.
//
// A pin error ends the pass immediately and is returned; audio already
// started keeps playing. Decode errors are returned before any pin is set.
func (s *Synchronizer) RunPass(ctx context.Context, path string, timeline *dance.Timeline) (PassResult, error) {
	res := PassResult{ID: ulid.Make().String()}
	logger := s.logger.With("pass", res.ID)

	stream, err := s.decode(path)
	if err != nil {
		return res, err
	}

	logger.Info("playing",
		"file", path,
		"device", s.device.Name(),
		"duration", stream.Duration(),
		"steps", timeline.Len())

	pb, err := s.device.Play(stream)
	if err != nil {
		_ = stream.Close()
		return res, fmt.Errorf("failed to start playback: %w", err)
	}

	for elapsed := 0; !pb.Finished(); elapsed++ {
		if states, ok := timeline.Lookup(elapsed); ok && s.pins != nil {
			logger.Debug("dance step", "at", elapsed, "states", states)
			if err := s.pins.Apply(states); err != nil {
				return res, fmt.Errorf("dance step at %ds: %w", elapsed, err)
			}
			res.Applied++
		}

		if err := s.clock.Sleep(ctx, Tick); err != nil {
			pb.Stop()
			return res, err
		}
		res.Ticks++
	}

	pb.Wait()

	if skipped := timeline.Len() - res.Applied; skipped > 0 && s.pins != nil {
		logger.Warn("dance outlasted the audio",
			"skipped_steps", skipped,
			"dance_end", humanize.Comma(int64(timeline.End()))+"s",
			"audio_end", humanize.Comma(int64(res.Ticks))+"s")
	}
	logger.Info("pass finished", "ticks", res.Ticks, "applied", res.Applied)
	return res, nil
}
