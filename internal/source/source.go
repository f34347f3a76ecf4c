// Package source decodes audio files into interleaved 16-bit PCM for the
// waveform generator.
package source

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupported indicates a file type or encoding that cannot be decoded.
	ErrUnsupported = errors.New("unsupported audio format")

	// ErrDecode indicates a malformed or unreadable audio stream.
	ErrDecode = errors.New("audio decode failure")
)

// Source is a decoded audio stream.
type Source interface {
	// SampleRate returns the stream sample rate in Hz.
	SampleRate() int

	// Channels returns the number of interleaved channels.
	Channels() int

	// TotalFrames returns the stream length in frames, or 0 if unknown.
	TotalFrames() int64

	// Read fills dst with whole interleaved frames and returns the number of
	// samples written. It returns 0 and io.EOF at the end of the stream.
	Read(dst []int16) (int, error)

	Close() error
}

// Type identifies an audio container by file extension.
type Type int

const (
	TypeWAV Type = iota
	TypeMP3
	TypeFLAC
)

func (t Type) String() string {
	switch t {
	case TypeWAV:
		return "wav"
	case TypeMP3:
		return "mp3"
	case TypeFLAC:
		return "flac"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// TypeFromPath infers the audio container from a file extension.
func TypeFromPath(path string) (Type, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return TypeWAV, nil
	case ".mp3":
		return TypeMP3, nil
	case ".flac":
		return TypeFLAC, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

// IsAudio reports whether path names a decodable audio file.
func IsAudio(path string) bool {
	_, err := TypeFromPath(path)
	return err == nil
}

// Open opens path and returns a Source for it. A nil logger discards
// diagnostics.
func Open(path string, logger *log.Logger) (Source, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	kind, err := TypeFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	var src Source
	switch kind {
	case TypeMP3:
		src, err = newMP3Source(f)
	case TypeFLAC:
		src, err = newFLACSource(f)
	default:
		src, err = newWAVSource(f)
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger.Printf("Input file: %s", path)
	logger.Printf("Input format: %s, %d Hz, %d channels", kind, src.SampleRate(), src.Channels())
	if frames := src.TotalFrames(); frames > 0 {
		logger.Printf("Frames: %d", frames)
	}

	return src, nil
}

// Sample conversion constants
const (
	bits8  = 8
	bits16 = 16
	bits24 = 24
	bits32 = 32
	bits64 = 64

	float64Bytes = 8

	unsigned8Offset = 128
	maxInt16        = 32767
	minInt16        = -32768
)

// toInt16 scales a signed integer sample of the given bit depth to 16 bits.
// Wider samples keep their most significant bits.
func toInt16(v int, bitDepth int) int16 {
	switch {
	case bitDepth == bits16:
		return int16(v)
	case bitDepth > bits16:
		return int16(v >> (bitDepth - bits16))
	default:
		return int16(v << (bits16 - bitDepth))
	}
}

// floatToInt16 converts a [-1, 1] float sample, clamping out of range input.
func floatToInt16(f float64) int16 {
	v := f * maxInt16
	if v >= maxInt16 {
		return maxInt16
	}
	if v <= minInt16 {
		return minInt16
	}
	return int16(v)
}

// wholeFrames truncates a sample count to a multiple of channels.
func wholeFrames(n, channels int) int {
	return n - n%channels
}
