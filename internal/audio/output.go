package audio

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// Backend names accepted by NewBackend.
const (
	BackendMalgo   = "malgo"
	BackendSpeaker = "speaker"
)

// DeviceInfo describes an output device.
type DeviceInfo struct {
	Name    string
	Default bool
}

// Backend enumerates and opens output devices.
type Backend interface {
	Devices() ([]DeviceInfo, error)
	// Open returns the device with exactly this name, or the system default
	// when name is empty.
	Open(name string) (Device, error)
	Close() error
}

// Device plays streams.
type Device interface {
	Name() string
	// Play starts playback and returns immediately.
	Play(s *Stream) (Playback, error)
}

// Playback is an in-progress stream on a device.
type Playback interface {
	// Finished reports whether the stream has been fully consumed.
	Finished() bool
	// Wait blocks until the stream and any buffered tail have played out.
	Wait()
	// Stop ends playback early.
	Stop()
}

// NewBackend creates the named backend. An empty name selects malgo.
func NewBackend(name string, volume float64, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch name {
	case "", BackendMalgo:
		b, err := NewMalgoBackend(volume, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendSpeaker:
		return NewSpeakerBackend(volume, logger), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q (want %q or %q)", name, BackendMalgo, BackendSpeaker)
	}
}

// FindDevice returns the device with exactly the given name.
func FindDevice(devices []DeviceInfo, name string) (DeviceInfo, bool) {
	for _, d := range devices {
		if d.Name == name {
			return d, true
		}
	}
	return DeviceInfo{}, false
}

// playback tracks one stream from Play until it is drained.
type playback struct {
	done     chan struct{}
	once     sync.Once
	finished atomic.Bool

	// Time to keep waiting after the streamer is drained, so samples
	// already handed to the device are heard.
	tail time.Duration

	stopOnce sync.Once
	stop     func()
}

func newPlayback(tail time.Duration) *playback {
	return &playback{
		done: make(chan struct{}),
		tail: tail,
	}
}

// finish may be called from the audio thread.
func (p *playback) finish() {
	p.once.Do(func() {
		p.finished.Store(true)
		close(p.done)
	})
}

func (p *playback) Finished() bool {
	return p.finished.Load()
}

func (p *playback) Wait() {
	<-p.done
	time.Sleep(p.tail)
	p.release()
}

func (p *playback) Stop() {
	p.finish()
	p.release()
}

func (p *playback) release() {
	p.stopOnce.Do(func() {
		if p.stop != nil {
			p.stop()
		}
	})
}

// withVolume applies a linear volume (0.0 to 1.0) to s.
func withVolume(s beep.Streamer, volume float64) beep.Streamer {
	if volume >= 1.0 {
		return s
	}
	return &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   volumeExponent(volume),
		Silent:   volume <= 0,
	}
}

// volumeExponent converts a linear volume (0-1) to a base 2 gain exponent.
// 0.5 is -1 (about -6dB), 0.25 is -2.
func volumeExponent(volume float64) float64 {
	if volume <= 0 {
		return -100 // Effectively silent
	}
	return math.Log2(volume)
}

// clampVolume limits volume to 0.0 to 1.0.
func clampVolume(volume float64) float64 {
	return min(max(volume, 0), 1)
}
