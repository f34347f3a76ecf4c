package waveform

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Binary layout sizes in bytes.
const (
	datHeaderMaxSize = 24
	uint32Size       = 4
	int16Size        = 2
	int8Size         = 1

	// maxPreallocPoints bounds allocations driven by an untrusted header.
	maxPreallocPoints = 1 << 20
)

// datByteOrder is the byte order of dat files. The format has always been
// written in host order, so files only move between hosts of equal
// endianness.
var datByteOrder = binary.NativeEndian

// Header describes the metadata stored at the start of a waveform data file.
type Header struct {
	Version         Version
	Bits            int
	SampleRate      int
	SamplesPerPixel int

	// Length is the number of points per channel.
	Length int

	// Channels is the number of channels stored. Always 1 for version 1.
	Channels int
}

// EncodeDat writes b in the binary format.
//
// Version 1 writes only opts.Channel. Version 2 writes every channel
// interleaved point by point and requires all channels to be the same size.
// Nothing is written if the options or buffer shape are invalid.
func EncodeDat(w io.Writer, b *Buffer, opts EncodeOptions) error {
	bits, err := opts.resolve(b)
	if err != nil {
		return err
	}

	channels := []int{opts.Channel}
	if opts.Version.Layout() == LayoutInterleaved {
		channels = make([]int, b.NumChannels())
		for ch := range channels {
			channels[ch] = ch
		}
	}
	size := b.Size(channels[0])

	var flags uint32
	if bits == bits8 {
		flags |= flag8Bit
	}

	header := make([]byte, 0, datHeaderMaxSize)
	header = datByteOrder.AppendUint32(header, uint32(int32(opts.Version)))
	header = datByteOrder.AppendUint32(header, flags)
	header = datByteOrder.AppendUint32(header, uint32(b.sampleRate))
	header = datByteOrder.AppendUint32(header, uint32(b.samplesPerPixel))
	header = datByteOrder.AppendUint32(header, uint32(size))
	if opts.Version.Layout() == LayoutInterleaved {
		header = datByteOrder.AppendUint32(header, uint32(len(channels)))
	}

	bw := bufio.NewWriter(w)
	_, _ = bw.Write(header)

	pair := make([]byte, 0, 2*int16Size)
	for i := range size {
		for _, ch := range channels {
			p := b.channels[ch][i]
			pair = pair[:0]
			if bits == bits8 {
				pair = append(pair, byte(to8Bit(p.Min)), byte(to8Bit(p.Max)))
			} else {
				pair = datByteOrder.AppendUint16(pair, uint16(p.Min))
				pair = datByteOrder.AppendUint16(pair, uint16(p.Max))
			}
			_, _ = bw.Write(pair)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// DecodeDat reads binary waveform data from r into b.
//
// Header fields are applied to b as they are read. Points are only appended
// once the whole body has been read and its size matches the header, so a
// failed decode leaves at most the header fields changed.
func DecodeDat(r io.Reader, b *Buffer, opts DecodeOptions) (Header, error) {
	br := bufio.NewReader(r)
	var hdr Header

	version, err := readUint32(br)
	if err != nil {
		return hdr, err
	}
	hdr.Version = Version(int32(version))
	if err := hdr.Version.Validate(); err != nil {
		return hdr, err
	}

	flags, err := readUint32(br)
	if err != nil {
		return hdr, err
	}
	hdr.Bits = bits16
	if flags&flag8Bit != 0 {
		hdr.Bits = bits8
	}
	if err := b.SetBits(hdr.Bits); err != nil {
		return hdr, err
	}

	sampleRate, err := readUint32(br)
	if err != nil {
		return hdr, err
	}
	hdr.SampleRate = int(sampleRate)
	if err := b.SetSampleRate(hdr.SampleRate); err != nil {
		return hdr, err
	}

	samplesPerPixel, err := readUint32(br)
	if err != nil {
		return hdr, err
	}
	hdr.SamplesPerPixel = int(samplesPerPixel)
	if err := b.SetSamplesPerPixel(hdr.SamplesPerPixel); err != nil {
		return hdr, err
	}

	length, err := readUint32(br)
	if err != nil {
		return hdr, err
	}
	hdr.Length = int(length)

	hdr.Channels = 1
	if hdr.Version.Layout() == LayoutInterleaved {
		channels, err := readUint32(br)
		if err != nil {
			return hdr, err
		}
		if channels == 0 || channels > maxChannels {
			return hdr, fmt.Errorf("%w: invalid channel count %d, must be 1-%d",
				ErrFormat, channels, maxChannels)
		}
		hdr.Channels = int(channels)
	}

	decoded, err := readDatBody(br, hdr)
	if err != nil {
		return hdr, err
	}

	found := len(decoded[0])
	if found != hdr.Length {
		return hdr, fmt.Errorf("%w: corrupt: expected %d points, found %d",
			ErrFormat, hdr.Length, found)
	}

	commitChannels(b, decoded, opts)
	return hdr, nil
}

// readDatBody reads whole pixel groups until EOF.
func readDatBody(br *bufio.Reader, hdr Header) ([][]Point, error) {
	pairSize := 2 * int16Size
	if hdr.Bits == bits8 {
		pairSize = 2 * int8Size
	}

	decoded := make([][]Point, hdr.Channels)
	for ch := range decoded {
		decoded[ch] = make([]Point, 0, min(hdr.Length, maxPreallocPoints))
	}

	group := make([]byte, pairSize*hdr.Channels)
	for {
		_, err := io.ReadFull(br, group)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: corrupt: expected %d points, found %d (truncated point)",
				ErrFormat, hdr.Length, len(decoded[0]))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}

		for ch := range decoded {
			pair := group[ch*pairSize : (ch+1)*pairSize]
			var p Point
			if hdr.Bits == bits8 {
				p = Point{Min: from8Bit(int8(pair[0])), Max: from8Bit(int8(pair[1]))}
			} else {
				p = Point{
					Min: int16(datByteOrder.Uint16(pair[0:])),
					Max: int16(datByteOrder.Uint16(pair[int16Size:])),
				}
			}
			decoded[ch] = append(decoded[ch], p)
		}
	}

	return decoded, nil
}

// commitChannels appends decoded channels to b, mixing them if requested.
func commitChannels(b *Buffer, decoded [][]Point, opts DecodeOptions) {
	if opts.MixToMono && len(decoded) > 1 {
		group := make([]Point, len(decoded))
		for i := range decoded[0] {
			for ch := range decoded {
				group[ch] = decoded[ch][i]
			}
			p := mixPoints(group)
			b.Append(p.Min, p.Max, 0)
		}
		return
	}

	for ch, points := range decoded {
		b.ensureChannel(ch)
		b.channels[ch] = append(b.channels[ch], points...)
	}
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [uint32Size]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: truncated header", ErrFormat)
		}
		return 0, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return datByteOrder.Uint32(buf[:]), nil
}
