package waveform

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// JSON object keys.
const (
	jsonKeySampleRate      = "sample_rate"
	jsonKeySamplesPerPixel = "samples_per_pixel"
	jsonKeyBits            = "bits"
	jsonKeyLength          = "length"
	jsonKeyVersion         = "version"
	jsonKeyData            = "data"
	jsonKeyChannelPrefix   = "chan"
)

// EncodeJSON writes b as a JSON object.
//
// Version 1 writes opts.Channel as a "data" array. Version 2 writes every
// channel as "chan0", "chan1", ... arrays. Arrays alternate min and max
// values; with 8-bit precision values are truncated to their high byte.
func EncodeJSON(w io.Writer, b *Buffer, opts EncodeOptions) error {
	bits, err := opts.resolve(b)
	if err != nil {
		return err
	}

	size := b.Size(opts.Channel)
	if opts.Version.Layout() == LayoutInterleaved {
		size = b.Size(0)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "{%q:%d,%q:%d,%q:%d,%q:%d,%q:%d",
		jsonKeySampleRate, b.sampleRate,
		jsonKeySamplesPerPixel, b.samplesPerPixel,
		jsonKeyBits, bits,
		jsonKeyLength, size,
		jsonKeyVersion, int(opts.Version))

	if opts.Version.Layout() == LayoutInterleaved {
		for ch := range b.channels {
			fmt.Fprintf(bw, ",%q:", jsonKeyChannelPrefix+strconv.Itoa(ch))
			writeJSONArray(bw, b.channels[ch], bits)
		}
	} else {
		fmt.Fprintf(bw, ",%q:", jsonKeyData)
		writeJSONArray(bw, b.channels[opts.Channel], bits)
	}
	_, _ = bw.WriteString("}\n")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

func writeJSONArray(bw *bufio.Writer, points []Point, bits int) {
	num := make([]byte, 0, 8)
	_ = bw.WriteByte('[')
	for i, p := range points {
		if i > 0 {
			_ = bw.WriteByte(',')
		}
		num = strconv.AppendInt(num[:0], int64(scaled(p.Min, bits)), 10)
		num = append(num, ',')
		num = strconv.AppendInt(num, int64(scaled(p.Max, bits)), 10)
		_, _ = bw.Write(num)
	}
	_ = bw.WriteByte(']')
}

// DecodeJSON reads a JSON waveform object from r into b. Both the version 1
// "data" layout and the version 2 "chanN" layout are accepted. Like
// DecodeDat, points are only appended once every array has been validated.
func DecodeJSON(r io.Reader, b *Buffer, opts DecodeOptions) (Header, error) {
	var hdr Header

	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return hdr, fmt.Errorf("%w: invalid JSON: %w", ErrFormat, err)
	}

	version, err := jsonInt(doc, jsonKeyVersion)
	if err != nil {
		return hdr, err
	}
	hdr.Version = Version(version)
	if err := hdr.Version.Validate(); err != nil {
		return hdr, err
	}

	if hdr.Bits, err = jsonInt(doc, jsonKeyBits); err != nil {
		return hdr, err
	}
	if err := b.SetBits(hdr.Bits); err != nil {
		return hdr, err
	}
	if hdr.SampleRate, err = jsonInt(doc, jsonKeySampleRate); err != nil {
		return hdr, err
	}
	if err := b.SetSampleRate(hdr.SampleRate); err != nil {
		return hdr, err
	}
	if hdr.SamplesPerPixel, err = jsonInt(doc, jsonKeySamplesPerPixel); err != nil {
		return hdr, err
	}
	if err := b.SetSamplesPerPixel(hdr.SamplesPerPixel); err != nil {
		return hdr, err
	}
	if hdr.Length, err = jsonInt(doc, jsonKeyLength); err != nil {
		return hdr, err
	}

	var arrays []json.RawMessage
	if raw, ok := doc[jsonKeyData]; ok {
		arrays = append(arrays, raw)
	} else {
		for ch := 0; ch < maxChannels; ch++ {
			raw, ok := doc[jsonKeyChannelPrefix+strconv.Itoa(ch)]
			if !ok {
				break
			}
			arrays = append(arrays, raw)
		}
	}
	if len(arrays) == 0 {
		return hdr, fmt.Errorf("%w: no waveform data arrays found", ErrFormat)
	}
	hdr.Channels = len(arrays)

	decoded := make([][]Point, len(arrays))
	for ch, raw := range arrays {
		var values []int
		if err := json.Unmarshal(raw, &values); err != nil {
			return hdr, fmt.Errorf("%w: channel %d: %w", ErrFormat, ch, err)
		}
		if len(values)%2 != 0 || len(values)/2 != hdr.Length {
			return hdr, fmt.Errorf("%w: corrupt: expected %d points, found %d",
				ErrFormat, hdr.Length, len(values)/2)
		}

		points := make([]Point, hdr.Length)
		for i := range points {
			minValue, err := jsonSample(values[2*i], hdr.Bits)
			if err != nil {
				return hdr, err
			}
			maxValue, err := jsonSample(values[2*i+1], hdr.Bits)
			if err != nil {
				return hdr, err
			}
			points[i] = Point{Min: minValue, Max: maxValue}
		}
		decoded[ch] = points
	}

	commitChannels(b, decoded, opts)
	return hdr, nil
}

func jsonInt(doc map[string]json.RawMessage, key string) (int, error) {
	raw, ok := doc[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrFormat, key)
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrFormat, key, err)
	}
	return v, nil
}

// jsonSample converts an encoded value back to 16-bit range.
func jsonSample(v, bits int) (int16, error) {
	if bits == bits8 {
		if v < -128 || v > 127 {
			return 0, fmt.Errorf("%w: 8-bit value %d out of range", ErrFormat, v)
		}
		return from8Bit(int8(v)), nil
	}
	if v < minSample || v > maxSample {
		return 0, fmt.Errorf("%w: 16-bit value %d out of range", ErrFormat, v)
	}
	return int16(v), nil
}
