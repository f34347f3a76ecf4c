package waveform

import (
	"fmt"
	"log"
)

// downsamplerState tracks the Init -> Process -> Done lifecycle.
type downsamplerState int

const (
	stateUninitialized downsamplerState = iota
	stateRunning
	stateDone
)

func (s downsamplerState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateRunning:
		return "running"
	case stateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DownsamplerConfig configures a Downsampler.
type DownsamplerConfig struct {
	// Scale determines samples per pixel from the stream sample rate.
	Scale ScaleFactor

	// MixToMono averages all input channels into output channel 0.
	MixToMono bool

	// Logger receives progress diagnostics. Nil discards them.
	Logger *log.Logger
}

// accumulator collects the extremes of the current pixel window.
type accumulator struct {
	min   int
	max   int
	count int
}

func (a *accumulator) reset() {
	a.min = maxSample
	a.max = minSample
	a.count = 0
}

// Downsampler streams interleaved 16-bit PCM into a Buffer, emitting one
// point per samples-per-pixel frames on each output channel.
//
// Call Init once with the stream format, Process for each block of frames,
// then Done to flush partial windows. A Downsampler is single use.
type Downsampler struct {
	buffer *Buffer
	config DownsamplerConfig
	logger *log.Logger

	state           downsamplerState
	inputChannels   int
	samplesPerPixel int
	accumulators    []accumulator
}

// NewDownsampler returns a Downsampler that fills buffer.
func NewDownsampler(buffer *Buffer, config DownsamplerConfig) *Downsampler {
	return &Downsampler{
		buffer: buffer,
		config: config,
		logger: loggerOrDiscard(config.Logger),
	}
}

// Init prepares the Downsampler for a stream with the given sample rate and
// channel count (1 or 2). It writes sample rate and samples per pixel into
// the target buffer.
func (d *Downsampler) Init(sampleRate, channels int) error {
	if d.state != stateUninitialized {
		return fmt.Errorf("%w: init called while %s", ErrInvalidState, d.state)
	}
	if channels < monoChannels || channels > stereoChannels {
		return fmt.Errorf("%w: can only generate waveform data from mono or stereo input, got %d channels",
			ErrValidation, channels)
	}

	samplesPerPixel := d.config.Scale.SamplesPerPixel(sampleRate)
	if samplesPerPixel < minSamplesPerPixel {
		return fmt.Errorf("%w: invalid zoom: %d, minimum %d",
			ErrValidation, samplesPerPixel, minSamplesPerPixel)
	}

	if err := d.buffer.SetSampleRate(sampleRate); err != nil {
		return err
	}
	if err := d.buffer.SetSamplesPerPixel(samplesPerPixel); err != nil {
		return err
	}

	outputs := channels
	if d.config.MixToMono {
		outputs = monoChannels
	}
	d.accumulators = make([]accumulator, outputs)
	for i := range d.accumulators {
		d.accumulators[i].reset()
	}
	d.buffer.ensureChannel(outputs - 1)

	d.inputChannels = channels
	d.samplesPerPixel = samplesPerPixel
	d.state = stateRunning

	d.logger.Printf("Generating waveform data...")
	d.logger.Printf("Samples per pixel: %d", samplesPerPixel)
	d.logger.Printf("Input channels: %d", channels)

	return nil
}

// SamplesPerPixel returns the resolution chosen by Init, or 0 before Init.
func (d *Downsampler) SamplesPerPixel() int {
	return d.samplesPerPixel
}

// Process consumes a block of interleaved frames (frame-major,
// channel-minor). The block length must be a multiple of the channel count.
func (d *Downsampler) Process(block []int16) error {
	if d.state != stateRunning {
		return fmt.Errorf("%w: process called while %s", ErrInvalidState, d.state)
	}
	if len(block)%d.inputChannels != 0 {
		return fmt.Errorf("%w: block of %d samples is not a whole number of %d-channel frames",
			ErrValidation, len(block), d.inputChannels)
	}

	frames := len(block) / d.inputChannels
	for i := range frames {
		base := i * d.inputChannels

		if d.config.MixToMono {
			sum := 0
			for ch := range d.inputChannels {
				sum += int(block[base+ch])
			}
			d.update(sum/d.inputChannels, 0)
			continue
		}

		for ch := range d.inputChannels {
			d.update(int(block[base+ch]), ch)
		}
	}

	return nil
}

// update folds one sample into the accumulator for channel and flushes
// the window when it is full.
func (d *Downsampler) update(sample, channel int) {
	if sample > maxSample {
		sample = maxSample
	} else if sample < minSample {
		sample = minSample
	}

	acc := &d.accumulators[channel]
	if sample < acc.min {
		acc.min = sample
	}
	if sample > acc.max {
		acc.max = sample
	}

	acc.count++
	if acc.count == d.samplesPerPixel {
		d.flush(channel)
	}
}

func (d *Downsampler) flush(channel int) {
	acc := &d.accumulators[channel]
	d.buffer.Append(int16(acc.min), int16(acc.max), channel)
	acc.reset()
}

// Done flushes every partially filled window and finishes the stream.
func (d *Downsampler) Done() error {
	if d.state != stateRunning {
		return fmt.Errorf("%w: done called while %s", ErrInvalidState, d.state)
	}

	for ch := range d.accumulators {
		if d.accumulators[ch].count > 0 {
			d.flush(ch)
		}
		d.logger.Printf("(channel %d) Generated %d points", ch+1, d.buffer.Size(ch))
	}

	d.state = stateDone
	return nil
}
