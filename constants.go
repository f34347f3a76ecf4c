package waveform

import "math"

// Sample range limits for 16-bit signed PCM.
const (
	maxSample = math.MaxInt16
	minSample = math.MinInt16
)

// Buffer limits
const (
	minSampleRate      = 1
	minSamplesPerPixel = 2
	bits8              = 8
	bits16             = 16
)

// DefaultSamplesPerPixel is the resolution used when no scale intent is given.
const DefaultSamplesPerPixel = 256

// Downsampler input channel limits
const (
	monoChannels   = 1
	stereoChannels = 2
)

// maxChannels bounds the channel count accepted from encoded data.
const maxChannels = 256

// Binary format constants
const (
	flag8Bit       = 0x00000001 // bit 0 of the dat header flags
	eightBitShift  = 8          // 16-bit value -> 8-bit value
	eightBitFactor = 256        // 8-bit value -> 16-bit value
)

// Per-channel output naming for version 1 exports.
const channelSuffix = "-chan"
