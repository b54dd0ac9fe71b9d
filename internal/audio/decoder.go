package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Stream is a decoded audio file ready for playback. It is consumed by
// exactly one Play call.
type Stream struct {
	Path   string
	Format beep.Format

	streamer beep.StreamSeekCloser
}

// NewStream wraps an already decoded streamer.
func NewStream(path string, streamer beep.StreamSeekCloser, format beep.Format) *Stream {
	return &Stream{Path: path, Format: format, streamer: streamer}
}

// Streamer returns the underlying beep streamer.
func (s *Stream) Streamer() beep.StreamSeekCloser {
	return s.streamer
}

// Duration returns the total length of the stream.
func (s *Stream) Duration() time.Duration {
	if s.streamer == nil || s.Format.SampleRate == 0 {
		return 0
	}
	return s.Format.SampleRate.D(s.streamer.Len())
}

// Close releases the decoder and the underlying file.
func (s *Stream) Close() error {
	if s.streamer == nil {
		return nil
	}
	return s.streamer.Close()
}

// Supported reports whether the file extension has a decoder.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".mp3", ".ogg", ".flac":
		return true
	}
	return false
}

// Decode opens path and decodes it based on its extension.
// Supports WAV, OGG, MP3 and FLAC. Failures are returned as *DecodeError.
func Decode(path string) (*Stream, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(path) {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("unsupported audio format: %q", ext)}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	}

	if err != nil {
		_ = f.Close()
		return nil, &DecodeError{Path: path, Err: err}
	}

	return NewStream(path, streamer, format), nil
}
