package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit little endian stereo.
const (
	mp3Channels    = 2
	mp3SampleBytes = 2
)

type mp3Source struct {
	file    *os.File
	decoder *mp3.Decoder
	raw     []byte
}

func newMP3Source(f *os.File) (Source, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode MP3: %w", ErrDecode, err)
	}
	return &mp3Source{file: f, decoder: decoder}, nil
}

func (s *mp3Source) SampleRate() int { return s.decoder.SampleRate() }
func (s *mp3Source) Channels() int   { return mp3Channels }

func (s *mp3Source) TotalFrames() int64 {
	length := s.decoder.Length()
	if length <= 0 {
		return 0
	}
	return length / (mp3Channels * mp3SampleBytes)
}

func (s *mp3Source) Read(dst []int16) (int, error) {
	want := wholeFrames(len(dst), mp3Channels)
	if want == 0 {
		return 0, fmt.Errorf("%w: buffer smaller than one frame", ErrDecode)
	}
	if cap(s.raw) < want*mp3SampleBytes {
		s.raw = make([]byte, want*mp3SampleBytes)
	}
	raw := s.raw[:want*mp3SampleBytes]

	got, err := io.ReadFull(s.decoder, raw)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("%w: mp3 decode error: %w", ErrDecode, err)
	}
	n := wholeFrames(got/mp3SampleBytes, mp3Channels)
	if n == 0 {
		return 0, io.EOF
	}

	for i := range n {
		dst[i] = int16(binary.LittleEndian.Uint16(raw[i*mp3SampleBytes:]))
	}
	return n, nil
}

func (s *mp3Source) Close() error {
	return s.file.Close()
}
