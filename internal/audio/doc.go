// Package audio decodes audio files and plays them on an output device.
// It uses the beep library to decode WAV, OGG, MP3 and FLAC files, and
// either miniaudio (via malgo) or beep's speaker for playback.
package audio
