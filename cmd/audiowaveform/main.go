// Command audiowaveform generates waveform summary data from audio files and
// converts between waveform data encodings.
//
// Usage:
//
//	audiowaveform -i input.wav -o output.dat
//	audiowaveform -i input.mp3 -o output.json -z 512 -b 8
//	audiowaveform -i input.flac -o output.dat -split-channels
//	audiowaveform -i input.dat -o output.json -z auto -w 1000
//	audiowaveform -i input.mp3 -o output.wav
//
// Audio input (.wav, .mp3, .flac) produces waveform data (.dat, .json,
// .txt). Waveform data input is converted between encodings, optionally
// rescaled to a coarser zoom. MP3 and FLAC input can also be decoded to a
// 16-bit WAV file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	waveform "github.com/tphakala/go-audio-waveform"
	"github.com/tphakala/go-audio-waveform/internal/source"
)

const (
	// Read block size in frames
	bufferSize = 16384

	progressInterval = 10 // Print progress every N%
	percentScale     = 100

	defaultWidth = 800
	defaultBits  = 16
	zoomAuto     = "auto"
	extWAV       = ".wav"
	extPNG       = ".png"

	// Canonical 44 byte PCM WAV layout
	wavHeaderSize      = 44
	wavRiffHeaderSize  = 36 // RIFF size field = this + data bytes
	wavPCMSubchunkSize = 16
	wavFileSizeOffset  = 4
	wavDataSizeOffset  = 40
	wavFormatPCM       = 1
	bitsPerSample16    = 16
	bytesPerSample16   = 2
	uint32Size         = 4

	wavWriterBufferSize = 256 * 1024
)

var errUsage = errors.New("usage")

// options holds parsed command-line flags.
type options struct {
	input           string
	output          string
	zoom            string
	pixelsPerSecond int
	startTime       float64
	endTime         float64
	width           int
	bits            int
	splitChannels   bool
	dataVersion     int
	verbose         bool
	quiet           bool

	// set records which flags were given explicitly.
	set map[string]bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("audiowaveform", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := options{set: make(map[string]bool)}
	fs.StringVar(&opts.input, "i", "", "Input file name (.wav, .mp3, .flac, .dat, .json)")
	fs.StringVar(&opts.output, "o", "", "Output file name (.dat, .json, .txt, .wav)")
	fs.StringVar(&opts.zoom, "z", "", "Zoom level in samples per pixel, or \"auto\" to fit -w (default 256)")
	fs.IntVar(&opts.pixelsPerSecond, "pixels-per-second", 0, "Zoom level in pixels per second")
	fs.Float64Var(&opts.startTime, "s", 0, "Start time in seconds")
	fs.Float64Var(&opts.endTime, "e", 0, "End time in seconds")
	fs.IntVar(&opts.width, "w", defaultWidth, "Image width in pixels, used with -e and -z auto")
	fs.IntVar(&opts.bits, "b", defaultBits, "Bits of resolution in output data: 8 or 16")
	fs.BoolVar(&opts.splitChannels, "split-channels", false, "Keep channels separate instead of mixing to mono")
	fs.IntVar(&opts.dataVersion, "data-version", 0, "Output data version: 1 or 2 (default 2 with -split-channels, else 1)")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")
	fs.BoolVar(&opts.quiet, "q", false, "Suppress the summary")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: audiowaveform [options] -i <input> -o <output>\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  audiowaveform -i input.wav -o output.dat\n")
		fmt.Fprintf(stderr, "  audiowaveform -i input.mp3 -o output.json -z 512 -b 8\n")
		fmt.Fprintf(stderr, "  audiowaveform -i input.dat -o output.json -z auto -w 1000\n")
	}

	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if opts.input == "" || opts.output == "" {
		fs.Usage()
		return errUsage
	}

	logger := log.New(io.Discard, "", 0)
	if opts.verbose {
		logger = log.New(stderr, "", log.LstdFlags)
	}

	start := time.Now()
	stats, err := dispatch(&opts, logger)
	if err != nil {
		return err
	}

	if !opts.quiet {
		printSummary(stdout, &opts, stats, time.Since(start))
	}
	return nil
}

// dispatch picks the conversion for the input and output file types.
func dispatch(opts *options, logger *log.Logger) (*runStats, error) {
	inputExt := strings.ToLower(filepath.Ext(opts.input))
	outputExt := strings.ToLower(filepath.Ext(opts.output))

	inputType, inputIsAudio := audioType(opts.input)
	_, outputIsData := dataFormat(opts.output)
	_, inputIsData := dataFormat(opts.input)

	switch {
	case outputExt == extPNG:
		return nil, fmt.Errorf("cannot render %s: no image renderer is available", opts.output)

	case inputIsAudio && outputIsData:
		return generate(opts, logger)

	case inputIsData && inputExt != ".txt" && outputIsData:
		return convert(opts, logger)

	case inputIsAudio && inputType != source.TypeWAV && outputExt == extWAV:
		return decodeToWAV(opts, logger)

	default:
		return nil, fmt.Errorf("can't generate %s from %s",
			strings.TrimPrefix(outputExt, "."), strings.TrimPrefix(inputExt, "."))
	}
}

func audioType(path string) (source.Type, bool) {
	t, err := source.TypeFromPath(path)
	return t, err == nil
}

func dataFormat(path string) (waveform.Format, bool) {
	f, err := waveform.FormatFromPath(path)
	return f, err == nil
}

// runStats summarises a completed run.
type runStats struct {
	sampleRate      int
	channels        int
	samplesPerPixel int
	points          int
	frames          int64
	outputs         []string
}

func printSummary(w io.Writer, opts *options, stats *runStats, elapsed time.Duration) {
	fmt.Fprintf(w, "%s -> %s\n", filepath.Base(opts.input), strings.Join(baseNames(stats.outputs), ", "))
	if stats.samplesPerPixel > 0 {
		fmt.Fprintf(w, "  %d Hz, %d channels, %d samples per pixel, %d points\n",
			stats.sampleRate, stats.channels, stats.samplesPerPixel, stats.points)
	} else {
		fmt.Fprintf(w, "  %d Hz, %d channels, %d frames\n", stats.sampleRate, stats.channels, stats.frames)
	}
	fmt.Fprintf(w, "  Duration: %.2fs\n", elapsed.Seconds())
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

// scaleOptions translates the zoom flags into library scale options.
// auto reports whether -z auto was given.
func scaleOptions(opts *options) (scale waveform.ScaleOptions, auto bool, err error) {
	if opts.set["z"] {
		if opts.zoom == zoomAuto {
			auto = true
		} else {
			zoom, convErr := strconv.Atoi(opts.zoom)
			if convErr != nil {
				return scale, false, fmt.Errorf("%w: invalid zoom: %q", waveform.ErrValidation, opts.zoom)
			}
			scale.SamplesPerPixel = &zoom
		}
	}
	if opts.set["pixels-per-second"] {
		pps := opts.pixelsPerSecond
		scale.PixelsPerSecond = &pps
	}
	if opts.set["e"] {
		end := opts.endTime
		scale.EndTime = &end
	}
	scale.StartTime = opts.startTime
	scale.Width = opts.width

	if auto && (scale.PixelsPerSecond != nil || scale.EndTime != nil) {
		return scale, true, fmt.Errorf("%w: specify either end time or zoom level, but not both", waveform.ErrValidation)
	}
	return scale, auto, scale.Validate()
}

// outputVersion returns the data version to write.
func outputVersion(opts *options) waveform.Version {
	if opts.set["data-version"] {
		return waveform.Version(opts.dataVersion)
	}
	if opts.splitChannels {
		return waveform.Version2
	}
	return waveform.Version1
}
