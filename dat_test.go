package waveform

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stereoBuffer(t *testing.T) *Buffer {
	t.Helper()
	return buildBuffer(t, 44100, 256,
		[]Point{{-100, 100}, {math.MinInt16, math.MaxInt16}, {-1, 0}, {256, 511}},
		[]Point{{-5, 5}, {-300, -200}, {0, 1}, {-257, -1}},
	)
}

func TestDat_RoundTripVersion1(t *testing.T) {
	src := stereoBuffer(t)

	for ch := range src.NumChannels() {
		var data bytes.Buffer
		require.NoError(t, EncodeDat(&data, src, EncodeOptions{Version: Version1, Channel: ch}))
		assert.Equal(t, 20+4*2*src.Size(ch), data.Len())

		dst := NewBuffer()
		hdr, err := DecodeDat(&data, dst, DecodeOptions{})
		require.NoError(t, err)

		assert.Equal(t, Header{
			Version:         Version1,
			Bits:            16,
			SampleRate:      44100,
			SamplesPerPixel: 256,
			Length:          4,
			Channels:        1,
		}, hdr)
		assert.Equal(t, 1, dst.NumChannels())
		assert.Equal(t, channelPoints(t, src, ch), channelPoints(t, dst, 0))
	}
}

func TestDat_RoundTripVersion2(t *testing.T) {
	src := stereoBuffer(t)

	var data bytes.Buffer
	require.NoError(t, EncodeDat(&data, src, EncodeOptions{Version: Version2}))
	assert.Equal(t, 24+4*2*2*int16Size, data.Len())

	dst := NewBuffer()
	hdr, err := DecodeDat(&data, dst, DecodeOptions{})
	require.NoError(t, err)

	assert.Equal(t, Version2, hdr.Version)
	assert.Equal(t, 2, hdr.Channels)
	assert.Equal(t, 2, dst.NumChannels())
	assert.Equal(t, channelPoints(t, src, 0), channelPoints(t, dst, 0))
	assert.Equal(t, channelPoints(t, src, 1), channelPoints(t, dst, 1))
}

func TestDat_Version2Layout(t *testing.T) {
	src := buildBuffer(t, 8000, 2, []Point{{-1, 1}}, []Point{{-2, 2}})

	var data bytes.Buffer
	require.NoError(t, EncodeDat(&data, src, EncodeOptions{Version: Version2}))

	raw := data.Bytes()
	u32 := func(off int) uint32 { return binary.NativeEndian.Uint32(raw[off:]) }
	i16 := func(off int) int16 { return int16(binary.NativeEndian.Uint16(raw[off:])) }

	assert.Equal(t, uint32(2), u32(0), "version")
	assert.Equal(t, uint32(0), u32(4), "flags")
	assert.Equal(t, uint32(8000), u32(8), "sample rate")
	assert.Equal(t, uint32(2), u32(12), "samples per pixel")
	assert.Equal(t, uint32(1), u32(16), "length")
	assert.Equal(t, uint32(2), u32(20), "channels")
	// Pixel 0: channel 0 pair then channel 1 pair
	assert.Equal(t, []int16{-1, 1, -2, 2}, []int16{i16(24), i16(26), i16(28), i16(30)})
}

func TestDat_EightBitRoundTrip(t *testing.T) {
	values := []int16{math.MinInt16, -32767, -257, -256, -255, -1, 0, 1, 255, 256, 1000, math.MaxInt16}
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Min: v, Max: v}
	}
	src := buildBuffer(t, 44100, 256, points)

	var data bytes.Buffer
	require.NoError(t, EncodeDat(&data, src, EncodeOptions{Version: Version1, Bits: 8}))
	assert.Equal(t, 20+2*len(values), data.Len())

	dst := NewBuffer()
	hdr, err := DecodeDat(&data, dst, DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 8, hdr.Bits)
	assert.Equal(t, 8, dst.Bits())

	got := channelPoints(t, dst, 0)
	for i, v := range values {
		want := int16(math.Floor(float64(v)/256) * 256)
		assert.Equal(t, want, got[i].Min, "value %d", v)
		assert.Equal(t, want, got[i].Max, "value %d", v)
	}
}

func TestDat_BufferBitsUsedByDefault(t *testing.T) {
	src := buildBuffer(t, 44100, 256, []Point{{-512, 512}})
	require.NoError(t, src.SetBits(8))

	var data bytes.Buffer
	require.NoError(t, EncodeDat(&data, src, EncodeOptions{Version: Version1}))

	assert.Equal(t, uint32(1), binary.NativeEndian.Uint32(data.Bytes()[4:]), "8-bit flag")
	assert.Equal(t, []byte{0xfe, 0x02}, data.Bytes()[20:])
}

func TestDat_MixToMono(t *testing.T) {
	src := buildBuffer(t, 44100, 256, []Point{{-100, 100}, {-3, 3}}, []Point{{-51, 0}, {0, 4}})

	var data bytes.Buffer
	require.NoError(t, EncodeDat(&data, src, EncodeOptions{Version: Version2}))

	dst := NewBuffer()
	_, err := DecodeDat(&data, dst, DecodeOptions{MixToMono: true})
	require.NoError(t, err)

	assert.Equal(t, 1, dst.NumChannels())
	assert.Equal(t, []Point{{-75, 50}, {-1, 3}}, channelPoints(t, dst, 0))
}

func TestDat_EncodeRejectsMismatchedChannels(t *testing.T) {
	src := buildBuffer(t, 44100, 256, []Point{{0, 0}, {0, 0}}, []Point{{0, 0}})

	var data bytes.Buffer
	err := EncodeDat(&data, src, EncodeOptions{Version: Version2})
	require.ErrorIs(t, err, ErrFormat)
	assert.Zero(t, data.Len())
}

func TestDat_EncodeRejectsBadOptions(t *testing.T) {
	src := buildBuffer(t, 44100, 256, []Point{{0, 0}})
	var data bytes.Buffer

	require.ErrorIs(t, EncodeDat(&data, src, EncodeOptions{Version: 3}), ErrFormat)
	require.ErrorIs(t, EncodeDat(&data, src, EncodeOptions{Version: Version1, Bits: 12}), ErrValidation)
	require.ErrorIs(t, EncodeDat(&data, src, EncodeOptions{Version: Version1, Channel: 1}), ErrOutOfRange)
	assert.Zero(t, data.Len())
}

func datHeader(fields ...uint32) []byte {
	var out []byte
	for _, f := range fields {
		out = binary.NativeEndian.AppendUint32(out, f)
	}
	return out
}

func TestDat_DecodeUnknownVersion(t *testing.T) {
	for _, version := range []uint32{0, 3, 0xffffffff} {
		dst := NewBuffer()
		_, err := DecodeDat(bytes.NewReader(datHeader(version, 0, 44100, 256, 0)), dst, DecodeOptions{})
		require.ErrorIs(t, err, ErrFormat, "version %d", version)

		assert.Equal(t, 0, dst.SampleRate())
		assert.Equal(t, 0, dst.SamplesPerPixel())
		assert.Equal(t, 0, dst.Size(0))
	}
}

func TestDat_DecodeTruncatedHeader(t *testing.T) {
	_, err := DecodeDat(bytes.NewReader(datHeader(1, 0, 44100)), NewBuffer(), DecodeOptions{})
	require.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "truncated header")
}

func TestDat_DecodeLengthMismatch(t *testing.T) {
	tests := []struct {
		name   string
		length uint32
		pairs  int
	}{
		{"short body", 3, 2},
		{"long body", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := datHeader(1, 0, 44100, 256, tt.length)
			for range tt.pairs {
				data = binary.NativeEndian.AppendUint16(data, uint16(0xfff0))
				data = binary.NativeEndian.AppendUint16(data, 16)
			}

			dst := NewBuffer()
			_, err := DecodeDat(bytes.NewReader(data), dst, DecodeOptions{})
			require.ErrorIs(t, err, ErrFormat)
			assert.Contains(t, err.Error(), "corrupt")
			assert.Equal(t, 0, dst.Size(0), "no points committed")
		})
	}
}

func TestDat_DecodeTruncatedPoint(t *testing.T) {
	data := datHeader(1, 0, 44100, 256, 1)
	data = append(data, 0x01, 0x00, 0x02)

	dst := NewBuffer()
	_, err := DecodeDat(bytes.NewReader(data), dst, DecodeOptions{})
	require.ErrorIs(t, err, ErrFormat)
	assert.Equal(t, 0, dst.Size(0))
}

func TestDat_DecodeInvalidHeaderValues(t *testing.T) {
	_, err := DecodeDat(bytes.NewReader(datHeader(1, 0, 0, 256, 0)), NewBuffer(), DecodeOptions{})
	require.ErrorIs(t, err, ErrValidation)

	_, err = DecodeDat(bytes.NewReader(datHeader(1, 0, 44100, 1, 0)), NewBuffer(), DecodeOptions{})
	require.ErrorIs(t, err, ErrValidation)

	_, err = DecodeDat(bytes.NewReader(datHeader(2, 0, 44100, 256, 0, 0)), NewBuffer(), DecodeOptions{})
	require.ErrorIs(t, err, ErrFormat)
}

func TestDat_EmptyBuffer(t *testing.T) {
	src := buildBuffer(t, 44100, 256)

	var data bytes.Buffer
	require.NoError(t, EncodeDat(&data, src, EncodeOptions{Version: Version1}))
	assert.Equal(t, 20, data.Len())

	dst := NewBuffer()
	hdr, err := DecodeDat(&data, dst, DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, hdr.Length)
	assert.Equal(t, 0, dst.Size(0))
}
