// Package testutil provides reusable test helpers for waveform tests.
package testutil

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
	"github.com/stretchr/testify/require"
)

const (
	// wavFormatPCM is the WAVE_FORMAT_PCM format tag.
	wavFormatPCM = 1

	flacBlockSize = 1024
	flacBits      = 16
)

// Sine returns frames of a sine wave at the given amplitude, interleaved
// over channels. Each channel is phase shifted so channels differ.
func Sine(frames, channels int, freq, sampleRate, amplitude float64) []int16 {
	out := make([]int16, frames*channels)
	for i := range frames {
		for ch := range channels {
			phase := float64(ch) * math.Pi / 4
			v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate+phase)
			out[i*channels+ch] = int16(math.Round(v))
		}
	}
	return out
}

// Interleave merges equally sized planar channels into one frame-major slice.
func Interleave(channels ...[]int16) []int16 {
	if len(channels) == 0 {
		return nil
	}
	n := len(channels[0])
	out := make([]int16, 0, n*len(channels))
	for i := range n {
		for _, ch := range channels {
			out = append(out, ch[i])
		}
	}
	return out
}

// MinMax is an expected summary point.
type MinMax struct {
	Min int16
	Max int16
}

// Windows computes the reference min/max over consecutive windows of
// samples, keeping a shorter final window.
func Windows(samples []int16, window int) []MinMax {
	var out []MinMax
	for start := 0; start < len(samples); start += window {
		end := min(start+window, len(samples))
		mm := MinMax{Min: math.MaxInt16, Max: math.MinInt16}
		for _, s := range samples[start:end] {
			mm.Min = min(mm.Min, s)
			mm.Max = max(mm.Max, s)
		}
		out = append(out, mm)
	}
	return out
}

// WriteWAV writes interleaved integer samples to dir/name as a PCM WAV file
// and returns its path.
func WriteWAV(t *testing.T, dir, name string, sampleRate, bitDepth, channels int, samples []int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Data: samples,
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: bitDepth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())

	return path
}

// Ints widens int16 samples for WAV encoding.
func Ints(samples []int16) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = int(s)
	}
	return out
}

// WriteFLAC writes planar 16-bit channels to dir/name as a FLAC stream of
// verbatim subframes and returns its path.
func WriteFLAC(t *testing.T, dir, name string, sampleRate int, channels [][]int32) string {
	t.Helper()

	total := len(channels[0])
	info := &meta.StreamInfo{
		BlockSizeMin:  flacBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(len(channels)),
		BitsPerSample: flacBits,
		NSamples:      uint64(total),
	}

	var out bytes.Buffer
	enc, err := flac.NewEncoder(&out, info)
	require.NoError(t, err)

	for start := 0; start < total; start += flacBlockSize {
		end := min(start+flacBlockSize, total)
		subframes := make([]*frame.Subframe, len(channels))
		for ch := range channels {
			subframes[ch] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   channels[ch][start:end],
				NSamples:  end - start,
			}
		}
		f := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         uint16(end - start),
				SampleRate:        uint32(sampleRate),
				Channels:          frame.Channels(len(channels) - 1),
				BitsPerSample:     flacBits,
			},
			Subframes: subframes,
		}
		require.NoError(t, enc.WriteFrame(f))
	}
	require.NoError(t, enc.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
	return path
}

// Planar splits interleaved samples into per-channel int32 slices.
func Planar(samples []int16, channels int) [][]int32 {
	out := make([][]int32, channels)
	frames := len(samples) / channels
	for ch := range out {
		out[ch] = make([]int32, frames)
		for i := range frames {
			out[ch][i] = int32(samples[i*channels+ch])
		}
	}
	return out
}
