package waveform

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ExportOptions controls Export.
type ExportOptions struct {
	// Version selects one file per channel (1) or one interleaved file (2).
	Version Version

	// Bits overrides the buffer's export precision when non-zero.
	Bits int

	// Logger receives diagnostics. Nil discards them.
	Logger *log.Logger
}

// ImportOptions controls Import and ImportFiles.
type ImportOptions struct {
	// MixToMono averages all stored channels into channel 0.
	MixToMono bool

	// Logger receives diagnostics. Nil discards them.
	Logger *log.Logger
}

type encodeFunc func(io.Writer, *Buffer, EncodeOptions) error

func encoderFor(format Format) encodeFunc {
	switch format {
	case FormatJSON:
		return EncodeJSON
	case FormatText:
		return EncodeText
	default:
		return EncodeDat
	}
}

// ChannelFilename returns the per-channel name used for version 1 exports
// of multi-channel buffers: "dir/name-chanN.ext".
func ChannelFilename(path string, channel int) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return stem + channelSuffix + strconv.Itoa(channel) + ext
}

// Export writes b to path, choosing the encoding from the file extension.
//
// A version 1 export of a multi-channel buffer writes one file per channel
// named by ChannelFilename; otherwise a single file is written. All channels
// must hold the same number of points, checked before any file is created.
// Files written before a failure are left in place. Export returns the
// paths written.
func Export(path string, b *Buffer, opts ExportOptions) ([]string, error) {
	logger := loggerOrDiscard(opts.Logger)

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	if !b.ChannelSizesMatch() {
		return nil, channelSizeError(b)
	}

	encOpts := EncodeOptions{Version: opts.Version, Bits: opts.Bits}
	bits, err := encOpts.resolve(b)
	if err != nil {
		return nil, err
	}
	encode := encoderFor(format)

	logger.Printf("Resolution: %d bits", bits)

	if opts.Version.Layout() == LayoutInterleaved || b.NumChannels() == 1 {
		if err := writeFile(path, b, encOpts, encode, logger); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	written := make([]string, 0, b.NumChannels())
	for ch := range b.NumChannels() {
		name := ChannelFilename(path, ch)
		encOpts.Channel = ch
		if err := writeFile(name, b, encOpts, encode, logger); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

func writeFile(path string, b *Buffer, opts EncodeOptions, encode encodeFunc, logger *log.Logger) (err error) {
	logger.Printf("Writing output file: %s", path)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: failed to create output file: %w", ErrIO, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: failed to close %s: %w", ErrIO, path, closeErr)
		}
	}()

	if err := encode(f, b, opts); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Import reads a .dat or .json waveform data file into a new buffer.
func Import(path string, opts ImportOptions) (*Buffer, Header, error) {
	logger := loggerOrDiscard(opts.Logger)
	b := NewBuffer()

	hdr, err := importInto(path, b, DecodeOptions{MixToMono: opts.MixToMono}, logger)
	if err != nil {
		return nil, hdr, err
	}
	return b, hdr, nil
}

// ImportFiles reads version 1 per-channel files and merges them into one
// buffer, file i becoming channel i. All files must agree on sample rate,
// samples per pixel, bits and length.
func ImportFiles(paths []string, opts ImportOptions) (*Buffer, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no input files", ErrValidation)
	}
	logger := loggerOrDiscard(opts.Logger)

	var (
		first   Header
		decoded [][]Point
		out     = NewBuffer()
	)
	for i, path := range paths {
		single := NewBuffer()
		hdr, err := importInto(path, single, DecodeOptions{}, logger)
		if err != nil {
			return nil, err
		}

		if hdr.Channels != 1 {
			return nil, fmt.Errorf("%w: %s holds %d channels, expected one per file",
				ErrFormat, path, hdr.Channels)
		}

		if i == 0 {
			first = hdr
			_ = out.SetBits(hdr.Bits)
			_ = out.SetSampleRate(hdr.SampleRate)
			_ = out.SetSamplesPerPixel(hdr.SamplesPerPixel)
		} else if hdr.SampleRate != first.SampleRate ||
			hdr.SamplesPerPixel != first.SamplesPerPixel ||
			hdr.Bits != first.Bits ||
			hdr.Length != first.Length {
			return nil, fmt.Errorf("%w: %s does not match %s", ErrFormat, path, paths[0])
		}

		decoded = append(decoded, single.channels...)
	}

	commitChannels(out, decoded, DecodeOptions{MixToMono: opts.MixToMono})
	return out, nil
}

func importInto(path string, b *Buffer, opts DecodeOptions, logger *log.Logger) (Header, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Header{}, err
	}
	if format == FormatText {
		return Header{}, fmt.Errorf("%w: cannot read waveform data from text file: %s", ErrFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("%w: failed to open input file: %w", ErrIO, err)
	}
	defer func() { _ = f.Close() }()

	logger.Printf("Reading waveform data file: %s", path)

	var hdr Header
	if format == FormatJSON {
		hdr, err = DecodeJSON(f, b, opts)
	} else {
		hdr, err = DecodeDat(f, b, opts)
	}
	if err != nil {
		return hdr, fmt.Errorf("failed to read %s: %w", path, err)
	}

	logger.Printf("File version: %d", hdr.Version)
	logger.Printf("Sample rate: %d Hz", hdr.SampleRate)
	logger.Printf("Bits: %d", hdr.Bits)
	logger.Printf("Samples per pixel: %d", hdr.SamplesPerPixel)
	logger.Printf("Length: %d points", hdr.Length)
	if hdr.Version.Layout() == LayoutInterleaved {
		logger.Printf("Channels: %d", hdr.Channels)
	}

	return hdr, nil
}

func loggerOrDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return logger
}
