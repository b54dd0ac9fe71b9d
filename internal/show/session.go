package show

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/pyramid/internal/audio"
	"github.com/jmylchreest/pyramid/internal/clock"
	"github.com/jmylchreest/pyramid/internal/dance"
	"github.com/jmylchreest/pyramid/internal/gpio"
)

// Bank is the pin bank as seen by a session.
type Bank interface {
	Pins
	Len() int
	Initialize() error
	Sweep(ctx context.Context) error
}

// Options configures a session. It is filled in by the CLI.
type Options struct {
	File string
	// RepeatDelay is the pause between passes. Nil plays once.
	RepeatDelay *time.Duration
	// Dance is the timeline text. A dance without steps means no pin
	// activity.
	Dance string
	// Device is the output device name. Empty selects the default.
	Device string
}

// Session plays passes until done.
type Session struct {
	backend audio.Backend
	bank    Bank
	clock   clock.Clock
	decode  DecodeFunc
	logger  *slog.Logger
}

// NewSession creates a session. bank may be nil when no pins are configured.
func NewSession(backend audio.Backend, bank Bank, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		backend: backend,
		bank:    bank,
		clock:   clock.Wall{},
		decode:  audio.Decode,
		logger:  logger,
	}
}

// SetClock replaces the clock used for ticks and repeat delays.
func (s *Session) SetClock(c clock.Clock) {
	s.clock = c
}

// SetDecoder replaces the audio decoder.
func (s *Session) SetDecoder(fn DecodeFunc) {
	s.decode = fn
}

// Run parses the dance, opens the output device, prepares the pins and
// plays passes. With a repeat delay it runs until ctx is cancelled, in
// which case ctx.Err() is returned, or until a pass fails.
//
// A dance that addresses more pins than the bank has fails with an
// *gpio.IndexError before any audio or pin activity.
func (s *Session) Run(ctx context.Context, opts Options) error {
	timeline, err := dance.Parse(opts.Dance)
	if err != nil {
		return err
	}

	hasDance := timeline.Len() > 0
	if hasDance {
		if err := s.checkWidth(timeline); err != nil {
			return err
		}
		s.logger.Debug("dance", "timeline", timeline.String(), "steps", timeline.Len())
	}

	device, err := s.backend.Open(opts.Device)
	if err != nil {
		return err
	}

	var pins Pins
	if hasDance && s.bank != nil {
		if err := s.bank.Initialize(); err != nil {
			return err
		}
		if err := s.bank.Sweep(ctx); err != nil {
			return err
		}
		pins = s.bank
	}

	synchronizer := NewSynchronizer(device, pins, s.logger)
	synchronizer.SetClock(s.clock)
	synchronizer.SetDecoder(s.decode)

	for pass := 1; ; pass++ {
		s.logger.Info("starting pass", "pass", humanize.Ordinal(pass))
		if _, err := synchronizer.RunPass(ctx, opts.File, timeline); err != nil {
			return err
		}

		if opts.RepeatDelay == nil {
			return nil
		}

		s.logger.Info("waiting before next pass", "delay", *opts.RepeatDelay)
		if err := s.clock.Sleep(ctx, *opts.RepeatDelay); err != nil {
			return err
		}
	}
}

// checkWidth reports the first pin index the timeline uses that the bank
// does not have.
func (s *Session) checkWidth(timeline *dance.Timeline) error {
	size := 0
	if s.bank != nil {
		size = s.bank.Len()
	}
	if w := timeline.Width(); w > size {
		return fmt.Errorf("dance uses %d pins: %w", w, &gpio.IndexError{Index: size, Len: size})
	}
	return nil
}
