package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	waveform "github.com/tphakala/go-audio-waveform"
	"github.com/tphakala/go-audio-waveform/internal/source"
)

// generate computes waveform data from an audio file and writes it out.
func generate(opts *options, logger *log.Logger) (*runStats, error) {
	scaleOpts, auto, err := scaleOptions(opts)
	if err != nil {
		return nil, err
	}
	if auto {
		return nil, fmt.Errorf("%w: -z auto needs a waveform data input file", waveform.ErrValidation)
	}
	scale, err := waveform.NewScaleFactor(scaleOpts)
	if err != nil {
		return nil, err
	}

	input, err := source.Open(opts.input, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = input.Close() }()

	buf := waveform.NewBuffer()
	if err := buf.SetBits(opts.bits); err != nil {
		return nil, err
	}

	d := waveform.NewDownsampler(buf, waveform.DownsamplerConfig{
		Scale:     scale,
		MixToMono: !opts.splitChannels,
		Logger:    logger,
	})
	if err := d.Init(input.SampleRate(), input.Channels()); err != nil {
		return nil, err
	}

	progress := newProgressTracker(input.TotalFrames(), logger)
	frames, err := readFrames(input, progress, d.Process)
	if err != nil {
		return nil, err
	}
	if err := d.Done(); err != nil {
		return nil, err
	}

	written, err := waveform.Export(opts.output, buf, waveform.ExportOptions{
		Version: outputVersion(opts),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	return &runStats{
		sampleRate:      buf.SampleRate(),
		channels:        buf.NumChannels(),
		samplesPerPixel: buf.SamplesPerPixel(),
		points:          buf.Size(0),
		frames:          frames,
		outputs:         written,
	}, nil
}

// convert reads a waveform data file, optionally rescales it, and writes it
// in the encoding named by the output file.
func convert(opts *options, logger *log.Logger) (*runStats, error) {
	scaleOpts, auto, err := scaleOptions(opts)
	if err != nil {
		return nil, err
	}

	buf, _, err := waveform.Import(opts.input, waveform.ImportOptions{
		MixToMono: !opts.splitChannels,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	rescale := auto || scaleOpts.SamplesPerPixel != nil ||
		scaleOpts.PixelsPerSecond != nil || scaleOpts.EndTime != nil
	if rescale {
		var scale waveform.ScaleFactor
		if auto {
			scale, err = waveform.AutoScaleFactor(buf, opts.width)
		} else {
			scale, err = waveform.NewScaleFactor(scaleOpts)
		}
		if err != nil {
			return nil, err
		}

		logger.Printf("Rescaling to %s", scale)
		if buf, err = waveform.PrepareRender(buf, scale); err != nil {
			return nil, err
		}
	}

	exportOpts := waveform.ExportOptions{Version: outputVersion(opts), Logger: logger}
	if opts.set["b"] {
		exportOpts.Bits = opts.bits
	}
	written, err := waveform.Export(opts.output, buf, exportOpts)
	if err != nil {
		return nil, err
	}

	return &runStats{
		sampleRate:      buf.SampleRate(),
		channels:        buf.NumChannels(),
		samplesPerPixel: buf.SamplesPerPixel(),
		points:          buf.Size(0),
		outputs:         written,
	}, nil
}

// decodeToWAV decodes a compressed audio file to 16-bit PCM WAV.
func decodeToWAV(opts *options, logger *log.Logger) (stats *runStats, err error) {
	input, err := source.Open(opts.input, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = input.Close() }()

	output, err := createWAVOutput(opts.output, input.SampleRate(), input.Channels())
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := output.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to finalize output file: %w", closeErr)
		}
	}()

	logger.Printf("Writing output file: %s", opts.output)

	progress := newProgressTracker(input.TotalFrames(), logger)
	frames, err := readFrames(input, progress, output.WriteSamples)
	if err != nil {
		return nil, err
	}

	return &runStats{
		sampleRate: input.SampleRate(),
		channels:   input.Channels(),
		frames:     frames,
		outputs:    []string{opts.output},
	}, nil
}

// readFrames pumps every block of input into sink and returns the number
// of frames read.
func readFrames(input source.Source, progress *progressTracker, sink func([]int16) error) (int64, error) {
	channels := input.Channels()
	block := make([]int16, bufferSize*channels)

	var frames int64
	for {
		n, err := input.Read(block)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return frames, fmt.Errorf("failed to read audio data: %w", err)
		}
		if err := sink(block[:n]); err != nil {
			return frames, err
		}

		frames += int64(n / channels)
		progress.reportIfNeeded(frames)
	}

	return frames, nil
}

// progressTracker logs how far through the input a run is, in steps of
// progressInterval percent. It stays silent when the length is unknown.
type progressTracker struct {
	totalFrames  int64
	lastProgress int
	logger       *log.Logger
}

func newProgressTracker(totalFrames int64, logger *log.Logger) *progressTracker {
	return &progressTracker{
		totalFrames: totalFrames,
		logger:      logger,
	}
}

func (p *progressTracker) reportIfNeeded(currentFrames int64) {
	if p.totalFrames == 0 {
		return
	}

	progress := int(float64(currentFrames) / float64(p.totalFrames) * percentScale)
	if progress >= p.lastProgress+progressInterval {
		p.logger.Printf("Progress: %d%%", progress)
		p.lastProgress = progress
	}
}

// wavOutputWriter owns the decoded WAV file and its header-patching writer.
type wavOutputWriter struct {
	file   *os.File
	writer *fastWAVWriter
}

// createWAVOutput creates path and writes a 16-bit PCM header for the given
// format. Sizes are filled in by Close.
func createWAVOutput(path string, sampleRate, channels int) (*wavOutputWriter, error) {
	outputFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	fastWriter, err := newFastWAVWriter(outputFile, sampleRate, channels)
	if err != nil {
		_ = outputFile.Close()
		return nil, fmt.Errorf("failed to create WAV writer: %w", err)
	}

	return &wavOutputWriter{
		file:   outputFile,
		writer: fastWriter,
	}, nil
}

func (w *wavOutputWriter) WriteSamples(samples []int16) error {
	return w.writer.WriteSamples(samples)
}

func (w *wavOutputWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// fastWAVWriter streams interleaved int16 blocks as little endian PCM.
type fastWAVWriter struct {
	w          *bufio.Writer
	f          *os.File
	sampleRate int
	channels   int
	dataSize   uint32
	byteBuf    []byte
}

func newFastWAVWriter(f *os.File, sampleRate, channels int) (*fastWAVWriter, error) {
	w := &fastWAVWriter{
		w:          bufio.NewWriterSize(f, wavWriterBufferSize),
		f:          f,
		sampleRate: sampleRate,
		channels:   channels,
		byteBuf:    make([]byte, bufferSize*channels*bytesPerSample16),
	}

	if err := w.writeHeader(); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *fastWAVWriter) writeHeader() error {
	byteRate := w.sampleRate * w.channels * bytesPerSample16
	blockAlign := w.channels * bytesPerSample16

	header := make([]byte, wavHeaderSize)

	// Both size fields stay zero until Close.
	copy(header[0:4], "RIFF")
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], wavPCMSubchunkSize)
	binary.LittleEndian.PutUint16(header[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(w.channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample16)

	copy(header[36:40], "data")

	_, err := w.w.Write(header)
	return err
}

func (w *fastWAVWriter) WriteSamples(samples []int16) error {
	needed := len(samples) * bytesPerSample16
	if len(w.byteBuf) < needed {
		w.byteBuf = make([]byte, needed)
	}

	buf := w.byteBuf[:needed]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*bytesPerSample16:], uint16(s))
	}

	written, err := w.w.Write(buf)
	w.dataSize += uint32(written)
	return err
}

// Close flushes pending samples and patches the RIFF and data sizes.
func (w *fastWAVWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	if err := w.patchSize(wavFileSizeOffset, wavRiffHeaderSize+w.dataSize); err != nil {
		return err
	}
	return w.patchSize(wavDataSizeOffset, w.dataSize)
}

func (w *fastWAVWriter) patchSize(offset int64, size uint32) error {
	if _, err := w.f.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	var field [uint32Size]byte
	binary.LittleEndian.PutUint32(field[:], size)
	_, err := w.f.Write(field[:])
	return err
}
