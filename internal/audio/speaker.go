package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// speakerDeviceName is the only device the speaker backend exposes.
const speakerDeviceName = "default"

// speakerBuffer is the speaker's buffer length.
const speakerBuffer = 100 * time.Millisecond

// SpeakerBackend plays through beep's speaker package on the system
// default output. It cannot select devices.
type SpeakerBackend struct {
	mu     sync.Mutex
	logger *slog.Logger
	volume float64

	// Whether speaker has been initialized
	initialized bool

	// Sample rate for the speaker
	sampleRate beep.SampleRate
}

// NewSpeakerBackend creates a speaker backend. The speaker is initialized
// lazily with the sample rate of the first stream played.
func NewSpeakerBackend(volume float64, logger *slog.Logger) *SpeakerBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &SpeakerBackend{
		logger: logger,
		volume: clampVolume(volume),
	}
}

// Devices returns the single default device.
func (b *SpeakerBackend) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{Name: speakerDeviceName, Default: true}}, nil
}

// Open accepts an empty name or "default".
func (b *SpeakerBackend) Open(name string) (Device, error) {
	if name != "" && name != speakerDeviceName {
		return nil, &DeviceNotFoundError{Name: name}
	}
	return &speakerDevice{backend: b}, nil
}

// Close stops all playback and releases the speaker.
func (b *SpeakerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		speaker.Close()
		b.initialized = false
	}
	b.logger.Debug("speaker closed")
	return nil
}

// ensureInitialized initializes the speaker if not already done.
func (b *SpeakerBackend) ensureInitialized(sampleRate beep.SampleRate) (beep.SampleRate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return b.sampleRate, nil
	}

	bufferSize := sampleRate.N(speakerBuffer)
	if err := speaker.Init(sampleRate, bufferSize); err != nil {
		return 0, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	b.sampleRate = sampleRate
	b.initialized = true
	b.logger.Debug("speaker initialized", "sample_rate", sampleRate)
	return sampleRate, nil
}

type speakerDevice struct {
	backend *SpeakerBackend
}

func (d *speakerDevice) Name() string {
	return speakerDeviceName
}

func (d *speakerDevice) Play(s *Stream) (Playback, error) {
	sampleRate, err := d.backend.ensureInitialized(s.Format.SampleRate)
	if err != nil {
		return nil, err
	}

	var streamer beep.Streamer = s.Streamer()

	// Resample if necessary
	if s.Format.SampleRate != sampleRate {
		streamer = beep.Resample(4, s.Format.SampleRate, sampleRate, streamer)
	}

	d.backend.mu.Lock()
	volume := d.backend.volume
	d.backend.mu.Unlock()

	// The callback runs when the speaker reads past the stream, one buffer
	// before it is heard. A buffer of silence first makes finished mean
	// the end is audible.
	pb := newPlayback(0)
	pb.stop = func() {
		speaker.Clear()
		_ = s.Close()
	}

	speaker.Play(beep.Seq(
		withVolume(streamer, volume),
		beep.Silence(sampleRate.N(speakerBuffer)),
		beep.Callback(pb.finish),
	))

	d.backend.logger.Debug("playback started", "device", speakerDeviceName, "duration", s.Duration())
	return pb, nil
}
