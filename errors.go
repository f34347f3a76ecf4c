package waveform

import "errors"

// Errors returned by the waveform package. Callers should match them with
// errors.Is; returned errors always wrap one of these with context.
var (
	// ErrValidation indicates an out-of-range configuration value such as
	// sample rate, samples per pixel, bit depth, channel count or scale
	// factor arguments.
	ErrValidation = errors.New("invalid waveform configuration")

	// ErrFormat indicates an unsupported or corrupt encoding, or a buffer
	// whose shape cannot be encoded.
	ErrFormat = errors.New("invalid waveform data format")

	// ErrZoom indicates a rescale to a finer resolution than the source holds.
	ErrZoom = errors.New("insufficient input resolution")

	// ErrIO indicates an underlying file or stream failure.
	ErrIO = errors.New("waveform i/o failure")

	// ErrInvalidState indicates a Downsampler call made out of order.
	ErrInvalidState = errors.New("invalid downsampler state")

	// ErrOutOfRange indicates a read from an unallocated channel or a pixel
	// index past the end of a channel.
	ErrOutOfRange = errors.New("index out of range")
)
