package waveform

import (
	"fmt"
)

// Point is one summary pixel: the sample extremes over a window of audio.
type Point struct {
	Min int16
	Max int16
}

// Buffer holds multi-channel waveform summary data plus the stream metadata
// needed to interpret it.
//
// Values are always stored at full signed 16-bit range. Bits only governs
// how the buffer is truncated when encoded.
//
// The channel list grows on demand: appending to channel k allocates
// channels 0..k. It never shrinks. A Buffer is not safe for concurrent
// mutation; ownership passes from stage to stage.
type Buffer struct {
	sampleRate      int
	samplesPerPixel int
	bits            int
	channels        [][]Point
}

// NewBuffer returns an empty buffer with one channel and 16-bit precision.
// Sample rate and samples per pixel are unset until a producer writes them.
func NewBuffer() *Buffer {
	return &Buffer{
		bits:     bits16,
		channels: make([][]Point, 1),
	}
}

// SetSampleRate sets the source audio sample rate in Hz.
func (b *Buffer) SetSampleRate(sampleRate int) error {
	if sampleRate < minSampleRate {
		return fmt.Errorf("%w: invalid sample rate: %d Hz, minimum %d Hz",
			ErrValidation, sampleRate, minSampleRate)
	}
	b.sampleRate = sampleRate
	return nil
}

// SampleRate returns the source audio sample rate in Hz.
func (b *Buffer) SampleRate() int {
	return b.sampleRate
}

// SetSamplesPerPixel sets the number of audio frames represented by one point.
func (b *Buffer) SetSamplesPerPixel(samplesPerPixel int) error {
	if samplesPerPixel < minSamplesPerPixel {
		return fmt.Errorf("%w: invalid samples per pixel: %d, minimum %d",
			ErrValidation, samplesPerPixel, minSamplesPerPixel)
	}
	b.samplesPerPixel = samplesPerPixel
	return nil
}

// SamplesPerPixel returns the number of audio frames represented by one point.
func (b *Buffer) SamplesPerPixel() int {
	return b.samplesPerPixel
}

// SetBits sets the export precision, either 8 or 16.
func (b *Buffer) SetBits(bits int) error {
	if bits != bits8 && bits != bits16 {
		return fmt.Errorf("%w: invalid bits: %d, must be either 8 or 16", ErrValidation, bits)
	}
	b.bits = bits
	return nil
}

// Bits returns the export precision.
func (b *Buffer) Bits() int {
	return b.bits
}

// Append adds one point to the end of the given channel, allocating
// channels up to and including it if needed.
func (b *Buffer) Append(minValue, maxValue int16, channel int) {
	b.ensureChannel(channel)
	b.channels[channel] = append(b.channels[channel], Point{Min: minValue, Max: maxValue})
}

// SetPoint overwrites an existing point.
func (b *Buffer) SetPoint(index int, minValue, maxValue int16, channel int) error {
	if err := b.checkIndex(index, channel); err != nil {
		return err
	}
	b.channels[channel][index] = Point{Min: minValue, Max: maxValue}
	return nil
}

// Point returns the point at index in channel.
func (b *Buffer) Point(index, channel int) (Point, error) {
	if err := b.checkIndex(index, channel); err != nil {
		return Point{}, err
	}
	return b.channels[channel][index], nil
}

// Min returns the minimum sample of the point at index in channel.
func (b *Buffer) Min(index, channel int) (int16, error) {
	p, err := b.Point(index, channel)
	return p.Min, err
}

// Max returns the maximum sample of the point at index in channel.
func (b *Buffer) Max(index, channel int) (int16, error) {
	p, err := b.Point(index, channel)
	return p.Max, err
}

// Size returns the number of points in channel, or 0 if the channel has
// not been allocated.
func (b *Buffer) Size(channel int) int {
	if channel < 0 || channel >= len(b.channels) {
		return 0
	}
	return len(b.channels[channel])
}

// NumChannels returns the number of allocated channels. It is at least 1.
func (b *Buffer) NumChannels() int {
	return len(b.channels)
}

// ChannelSizesMatch reports whether every channel holds as many points as
// channel 0.
func (b *Buffer) ChannelSizesMatch() bool {
	size := b.Size(0)
	for ch := 1; ch < len(b.channels); ch++ {
		if len(b.channels[ch]) != size {
			return false
		}
	}
	return true
}

// Channel returns a copy of the points held in channel.
func (b *Buffer) Channel(channel int) ([]Point, error) {
	if channel < 0 || channel >= len(b.channels) {
		return nil, fmt.Errorf("%w: channel %d is not allocated", ErrOutOfRange, channel)
	}
	out := make([]Point, len(b.channels[channel]))
	copy(out, b.channels[channel])
	return out, nil
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	c := b.cloneHeader()
	c.channels = make([][]Point, len(b.channels))
	for ch, points := range b.channels {
		c.channels[ch] = make([]Point, len(points))
		copy(c.channels[ch], points)
	}
	return c
}

// SplitChannels returns one single-channel buffer per channel. Each carries
// the parent's sample rate, samples per pixel and bits.
func (b *Buffer) SplitChannels() []*Buffer {
	out := make([]*Buffer, len(b.channels))
	for ch, points := range b.channels {
		single := b.cloneHeader()
		single.channels = [][]Point{make([]Point, len(points))}
		copy(single.channels[0], points)
		out[ch] = single
	}
	return out
}

// cloneHeader returns an empty buffer with the same metadata.
func (b *Buffer) cloneHeader() *Buffer {
	return &Buffer{
		sampleRate:      b.sampleRate,
		samplesPerPixel: b.samplesPerPixel,
		bits:            b.bits,
		channels:        make([][]Point, 1),
	}
}

func (b *Buffer) ensureChannel(channel int) {
	for len(b.channels) <= channel {
		b.channels = append(b.channels, nil)
	}
}

func (b *Buffer) checkIndex(index, channel int) error {
	if channel < 0 || channel >= len(b.channels) {
		return fmt.Errorf("%w: channel %d is not allocated", ErrOutOfRange, channel)
	}
	if index < 0 || index >= len(b.channels[channel]) {
		return fmt.Errorf("%w: index %d, channel %d has %d points",
			ErrOutOfRange, index, channel, len(b.channels[channel]))
	}
	return nil
}

// Duration returns the length in seconds of the audio summarised by the
// buffer's first channel.
func Duration(b *Buffer) float64 {
	if b.sampleRate < minSampleRate {
		return 0
	}
	return float64(b.Size(0)) * float64(b.samplesPerPixel) / float64(b.sampleRate)
}
