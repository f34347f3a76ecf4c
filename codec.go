package waveform

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Version is the waveform data file version.
type Version int

const (
	// Version1 stores one channel per file.
	Version1 Version = 1

	// Version2 stores all channels interleaved in one file.
	Version2 Version = 2
)

// Layout describes how channels are arranged in an encoding.
type Layout int

const (
	// LayoutPerChannel writes one file per channel.
	LayoutPerChannel Layout = iota

	// LayoutInterleaved writes all channels into one file, positionally.
	LayoutInterleaved
)

// Validate checks that v is a known version.
func (v Version) Validate() error {
	if v != Version1 && v != Version2 {
		return fmt.Errorf("%w: unknown version %d, must be either 1 or 2", ErrFormat, int(v))
	}
	return nil
}

// Layout returns the channel layout used by v.
func (v Version) Layout() Layout {
	if v == Version2 {
		return LayoutInterleaved
	}
	return LayoutPerChannel
}

// Format is a waveform data encoding.
type Format int

const (
	// FormatDat is the binary format.
	FormatDat Format = iota

	// FormatJSON is the JSON format.
	FormatJSON

	// FormatText is the comma separated text format.
	FormatText
)

// String returns the file extension of the format without the dot.
func (f Format) String() string {
	switch f {
	case FormatDat:
		return "dat"
	case FormatJSON:
		return "json"
	case FormatText:
		return "txt"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath infers the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dat":
		return FormatDat, nil
	case ".json":
		return FormatJSON, nil
	case ".txt":
		return FormatText, nil
	default:
		return 0, fmt.Errorf("%w: unknown waveform data file type: %s", ErrFormat, path)
	}
}

// EncodeOptions controls how a buffer is encoded.
type EncodeOptions struct {
	// Version selects the channel layout.
	Version Version

	// Bits overrides the buffer's export precision when non-zero.
	Bits int

	// Channel is the channel written by version 1 encoders.
	Channel int
}

// resolve checks the options against b and returns the effective bit depth.
func (o *EncodeOptions) resolve(b *Buffer) (int, error) {
	if err := o.Version.Validate(); err != nil {
		return 0, err
	}

	bits := o.Bits
	if bits == 0 {
		bits = b.bits
	}
	if bits != bits8 && bits != bits16 {
		return 0, fmt.Errorf("%w: invalid bits: %d, must be either 8 or 16", ErrValidation, bits)
	}

	if o.Version.Layout() == LayoutPerChannel {
		if o.Channel < 0 || o.Channel >= b.NumChannels() {
			return 0, fmt.Errorf("%w: channel %d is not allocated", ErrOutOfRange, o.Channel)
		}
	} else if !b.ChannelSizesMatch() {
		return 0, channelSizeError(b)
	}

	return bits, nil
}

// DecodeOptions controls how encoded data is loaded.
type DecodeOptions struct {
	// MixToMono averages all stored channels into channel 0.
	MixToMono bool
}

func channelSizeError(b *Buffer) error {
	sizes := make([]string, b.NumChannels())
	for ch := range sizes {
		sizes[ch] = fmt.Sprint(b.Size(ch))
	}
	return fmt.Errorf("%w: channel sizes do not match (%s)", ErrFormat, strings.Join(sizes, ", "))
}

// to8Bit truncates a 16-bit value to its high byte, rounding toward
// negative infinity.
func to8Bit(v int16) int8 {
	return int8(v >> eightBitShift)
}

// from8Bit expands an 8-bit value back to 16-bit range.
func from8Bit(v int8) int16 {
	return int16(v) * eightBitFactor
}

// scaled returns v as written by text encoders at the given precision.
func scaled(v int16, bits int) int {
	if bits == bits8 {
		return int(to8Bit(v))
	}
	return int(v)
}

// mixPoints averages one pixel across channels with truncating division.
func mixPoints(points []Point) Point {
	var sumMin, sumMax int
	for _, p := range points {
		sumMin += int(p.Min)
		sumMax += int(p.Max)
	}
	n := len(points)
	return Point{Min: int16(sumMin / n), Max: int16(sumMax / n)}
}
