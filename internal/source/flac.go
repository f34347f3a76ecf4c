package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

type flacSource struct {
	file     *os.File
	stream   *flac.Stream
	channels int
	bitDepth int

	// Samples of the current frame not yet returned.
	frame  *frame.Frame
	offset int
	eof    bool
}

func newFLACSource(f *os.File) (Source, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode FLAC: %w", ErrDecode, err)
	}

	bitDepth := int(stream.Info.BitsPerSample)
	if bitDepth < 4 || bitDepth > bits32 {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: %d-bit FLAC", ErrUnsupported, bitDepth)
	}

	return &flacSource{
		file:     f,
		stream:   stream,
		channels: int(stream.Info.NChannels),
		bitDepth: bitDepth,
	}, nil
}

func (s *flacSource) SampleRate() int    { return int(s.stream.Info.SampleRate) }
func (s *flacSource) Channels() int      { return s.channels }
func (s *flacSource) TotalFrames() int64 { return int64(s.stream.Info.NSamples) }

func (s *flacSource) Read(dst []int16) (int, error) {
	want := wholeFrames(len(dst), s.channels)
	if want == 0 {
		return 0, fmt.Errorf("%w: buffer smaller than one frame", ErrDecode)
	}

	n := 0
	for n < want {
		if s.frame == nil || s.offset >= int(s.frame.BlockSize) {
			if s.eof {
				break
			}
			next, err := s.stream.ParseNext()
			if errors.Is(err, io.EOF) {
				s.eof = true
				break
			}
			if err != nil {
				return n, fmt.Errorf("%w: %w", ErrDecode, err)
			}
			s.frame = next
			s.offset = 0
		}

		for ; s.offset < int(s.frame.BlockSize) && n < want; s.offset++ {
			for ch := range s.channels {
				dst[n] = toInt16(int(s.frame.Subframes[ch].Samples[s.offset]), s.bitDepth)
				n++
			}
		}
	}

	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (s *flacSource) Close() error {
	// The stream may already have closed the file.
	_ = s.stream.Close()
	if err := s.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
