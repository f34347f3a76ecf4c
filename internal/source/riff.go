package source

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/youpy/go-riff"
	"github.com/zaf/g711"
)

// WAVE format tags decoded from the raw RIFF structure.
const (
	wavFormatIEEEFloat = 3
	wavFormatALaw      = 6
	wavFormatMULaw     = 7
)

// riffFormat mirrors the leading fields of a WAVE "fmt " chunk.
type riffFormat struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// riffSource decodes G.711 and IEEE float WAV files.
type riffSource struct {
	file        *os.File
	data        *bufio.Reader
	format      riffFormat
	channels    int
	bytesPer    int
	totalFrames int64
	raw         []byte
}

func newRIFFSource(f *os.File) (Source, error) {
	chunk, err := riff.NewReader(f).Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	fmtChunk := findChunk(chunk, "fmt ")
	if fmtChunk == nil {
		return nil, fmt.Errorf("%w: format chunk is not found", ErrDecode)
	}
	var format riffFormat
	if err := binary.Read(fmtChunk, binary.LittleEndian, &format); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	switch {
	case format.AudioFormat == wavFormatALaw && format.BitsPerSample == bits8,
		format.AudioFormat == wavFormatMULaw && format.BitsPerSample == bits8:
	case format.AudioFormat == wavFormatIEEEFloat && (format.BitsPerSample == bits32 || format.BitsPerSample == bits64):
	default:
		return nil, fmt.Errorf("%w: WAVE format %d with %d bits",
			ErrUnsupported, format.AudioFormat, format.BitsPerSample)
	}
	if format.NumChannels == 0 || format.SampleRate == 0 {
		return nil, fmt.Errorf("%w: invalid format chunk", ErrDecode)
	}

	dataChunk := findChunk(chunk, "data")
	if dataChunk == nil {
		return nil, fmt.Errorf("%w: data chunk is not found", ErrDecode)
	}

	bytesPer := int(format.BitsPerSample) / bits8
	channels := int(format.NumChannels)

	return &riffSource{
		file:        f,
		data:        bufio.NewReader(dataChunk),
		format:      format,
		channels:    channels,
		bytesPer:    bytesPer,
		totalFrames: int64(dataChunk.ChunkSize) / int64(bytesPer*channels),
	}, nil
}

func findChunk(chunk *riff.RIFFChunk, id string) *riff.Chunk {
	for _, ch := range chunk.Chunks {
		if string(ch.ChunkID[:]) == id {
			return ch
		}
	}
	return nil
}

func (s *riffSource) SampleRate() int    { return int(s.format.SampleRate) }
func (s *riffSource) Channels() int      { return s.channels }
func (s *riffSource) TotalFrames() int64 { return s.totalFrames }

func (s *riffSource) Read(dst []int16) (int, error) {
	want := wholeFrames(len(dst), s.channels)
	if want == 0 {
		return 0, fmt.Errorf("%w: buffer smaller than one frame", ErrDecode)
	}
	if cap(s.raw) < want*s.bytesPer {
		s.raw = make([]byte, want*s.bytesPer)
	}
	raw := s.raw[:want*s.bytesPer]

	got, err := io.ReadFull(s.data, raw)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("%w: failed to read audio data: %w", ErrDecode, err)
	}
	n := wholeFrames(got/s.bytesPer, s.channels)
	if n == 0 {
		return 0, io.EOF
	}

	for i := range n {
		b := raw[i*s.bytesPer:]
		switch s.format.AudioFormat {
		case wavFormatALaw:
			dst[i] = g711.DecodeAlawFrame(b[0])
		case wavFormatMULaw:
			dst[i] = g711.DecodeUlawFrame(b[0])
		default:
			if s.bytesPer == float64Bytes {
				dst[i] = floatToInt16(math.Float64frombits(binary.LittleEndian.Uint64(b)))
			} else {
				dst[i] = floatToInt16(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
			}
		}
	}
	return n, nil
}

func (s *riffSource) Close() error {
	return s.file.Close()
}
