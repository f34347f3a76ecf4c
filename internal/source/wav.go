package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVE format tags read through go-audio/wav. Everything else goes through
// the RIFF reader.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// wavSource decodes integer PCM WAV files.
type wavSource struct {
	file        *os.File
	decoder     *wav.Decoder
	sampleRate  int
	channels    int
	bitDepth    int
	totalFrames int64
	buf         *audio.IntBuffer
}

// newWAVSource validates f as a WAV file. Compressed and floating point
// encodings are handed to the RIFF reader.
func newWAVSource(f *os.File) (Source, error) {
	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid WAV file", ErrDecode)
	}

	if decoder.WavAudioFormat != wavFormatPCM && decoder.WavAudioFormat != wavFormatExtensible {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		return newRIFFSource(f)
	}

	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	switch bitDepth {
	case bits8, bits16, bits24, bits32:
	default:
		return nil, fmt.Errorf("%w: %d-bit PCM", ErrUnsupported, bitDepth)
	}

	if format.NumChannels < 1 {
		return nil, fmt.Errorf("%w: WAV file has no channels", ErrDecode)
	}

	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	frameSize := int64(format.NumChannels * bitDepth / bits8)
	totalFrames := int64(decoder.PCMSize) / frameSize

	return &wavSource{
		file:        f,
		decoder:     decoder,
		sampleRate:  format.SampleRate,
		channels:    format.NumChannels,
		bitDepth:    bitDepth,
		totalFrames: totalFrames,
		buf:         &audio.IntBuffer{Format: format},
	}, nil
}

func (s *wavSource) SampleRate() int    { return s.sampleRate }
func (s *wavSource) Channels() int      { return s.channels }
func (s *wavSource) TotalFrames() int64 { return s.totalFrames }

func (s *wavSource) Read(dst []int16) (int, error) {
	want := wholeFrames(len(dst), s.channels)
	if want == 0 {
		return 0, fmt.Errorf("%w: buffer smaller than one frame", ErrDecode)
	}
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: failed to read audio data: %w", ErrDecode, err)
	}
	n = wholeFrames(n, s.channels)
	if n == 0 {
		return 0, io.EOF
	}

	for i, v := range s.buf.Data[:n] {
		if s.bitDepth == bits8 {
			// 8-bit WAV samples are unsigned
			v -= unsigned8Offset
		}
		dst[i] = toInt16(v, s.bitDepth)
	}
	return n, nil
}

func (s *wavSource) Close() error {
	return s.file.Close()
}
