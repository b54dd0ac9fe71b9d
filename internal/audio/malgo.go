package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/gopxl/beep/v2"
)

// Device buffer geometry. The callback runs once per period and the device
// holds malgoPeriods periods ahead of what is audible.
const (
	malgoPeriod  = 10 * time.Millisecond
	malgoPeriods = 3
)

// OutputLatency is how far the malgo device buffers ahead of the speaker.
const OutputLatency = malgoPeriod * malgoPeriods

// MalgoBackend plays through miniaudio and can address devices by name.
type MalgoBackend struct {
	mu     sync.Mutex
	logger *slog.Logger
	ctx    *malgo.AllocatedContext
	volume float64
}

// NewMalgoBackend initializes a miniaudio context.
func NewMalgoBackend(volume float64, logger *slog.Logger) (*MalgoBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	return &MalgoBackend{
		logger: logger,
		ctx:    ctx,
		volume: clampVolume(volume),
	}, nil
}

// Devices lists playback devices.
func (b *MalgoBackend) Devices() ([]DeviceInfo, error) {
	infos, err := b.playbackDevices()
	if err != nil {
		return nil, err
	}

	devices := make([]DeviceInfo, len(infos))
	for i := range infos {
		devices[i] = DeviceInfo{
			Name:    infos[i].Name(),
			Default: infos[i].IsDefault != 0,
		}
	}
	return devices, nil
}

func (b *MalgoBackend) playbackDevices() ([]malgo.DeviceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return nil, fmt.Errorf("malgo backend closed")
	}
	infos, err := b.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}
	return infos, nil
}

// Open returns the named device, or the default device for an empty name.
func (b *MalgoBackend) Open(name string) (Device, error) {
	if name == "" {
		return &malgoDevice{backend: b, name: "default"}, nil
	}

	infos, err := b.playbackDevices()
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].Name() == name {
			id := infos[i].ID
			return &malgoDevice{backend: b, name: name, id: &id}, nil
		}
	}
	return nil, &DeviceNotFoundError{Name: name}
}

// Close releases the miniaudio context.
func (b *MalgoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return nil
	}
	if err := b.ctx.Uninit(); err != nil {
		b.logger.Warn("malgo context uninit error", "error", err)
	}
	b.ctx.Free()
	b.ctx = nil
	return nil
}

type malgoDevice struct {
	backend *MalgoBackend
	name    string
	id      *malgo.DeviceID // nil selects the system default
}

func (d *malgoDevice) Name() string {
	return d.name
}

// Play opens a miniaudio device at the stream's sample rate and pulls
// samples from the stream in the device callback.
func (d *malgoDevice) Play(s *Stream) (Playback, error) {
	d.backend.mu.Lock()
	ctx := d.backend.ctx
	volume := d.backend.volume
	d.backend.mu.Unlock()

	if ctx == nil {
		return nil, fmt.Errorf("malgo backend closed")
	}

	const channels = 2
	pb := newPlayback(malgoPeriod)
	feed := newFeeder(withVolume(s.Streamer(), volume), pb, malgoPeriods)

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = channels
	cfg.SampleRate = uint32(s.Format.SampleRate)
	cfg.PeriodSizeInMilliseconds = uint32(malgoPeriod / time.Millisecond)
	cfg.Periods = malgoPeriods
	cfg.Alsa.NoMMap = 1
	if d.id != nil {
		cfg.Playback.DeviceID = d.id.Pointer()
	}

	onSamples := func(pOutput, _ []byte, frameCount uint32) {
		feed.fill(pOutput, int(frameCount))
	}

	device, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device %q: %w", d.name, err)
	}
	pb.stop = func() {
		if err := device.Stop(); err != nil {
			d.backend.logger.Warn("device stop error", "device", d.name, "error", err)
		}
		device.Uninit()
		_ = s.Close()
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start playback device %q: %w", d.name, err)
	}

	d.backend.logger.Debug("playback started",
		"device", d.name,
		"sample_rate", s.Format.SampleRate,
		"duration", s.Duration())

	return pb, nil
}

// feeder pulls frames for the device callback. It reports the playback
// finished only once the periods holding the last frames have been played,
// so Finished means the end is audible rather than merely read.
type feeder struct {
	src     beep.Streamer
	pb      *playback
	buf     [][2]float64
	drained bool
	// silent periods still to hand out after the drain
	pending int
}

func newFeeder(src beep.Streamer, pb *playback, periods int) *feeder {
	return &feeder{src: src, pb: pb, pending: periods}
}

// fill writes the requested number of stereo S16 frames to out. It runs
// on the audio thread.
func (f *feeder) fill(out []byte, frames int) {
	if f.pb.Finished() && !f.drained {
		// stopped early
		writeS16(out, nil, frames)
		return
	}

	if cap(f.buf) < frames {
		f.buf = make([][2]float64, frames)
	}
	f.buf = f.buf[:frames]

	filled := 0
	if f.drained {
		if f.pending > 0 {
			f.pending--
		}
		if f.pending == 0 {
			f.pb.finish()
		}
	} else {
		for filled < frames {
			got, ok := f.src.Stream(f.buf[filled:])
			filled += got
			if !ok {
				f.drained = true
				break
			}
			if got == 0 {
				break
			}
		}
	}
	writeS16(out, f.buf[:filled], frames)
}

// writeS16 converts stereo float frames to interleaved 16-bit little endian
// and pads the rest of out (frames total) with silence.
func writeS16(out []byte, frames [][2]float64, total int) {
	i := 0
	for _, frame := range frames {
		for _, v := range frame {
			s := int16(min(max(v, -1), 1) * 32767)
			out[i] = byte(s)
			out[i+1] = byte(s >> 8)
			i += 2
		}
	}
	for ; i < total*4 && i < len(out); i++ {
		out[i] = 0
	}
}
