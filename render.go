package waveform

import (
	"fmt"
	"image"
)

// ColorScheme names a waveform image palette.
type ColorScheme string

// Supported color schemes.
const (
	ColorsAudacity ColorScheme = "audacity"
	ColorsAudition ColorScheme = "audition"
)

// AmplitudeScale controls vertical scaling of rendered waveforms.
type AmplitudeScale struct {
	// Auto scales the waveform to fill the image height.
	Auto bool

	// Factor multiplies sample values when Auto is false.
	Factor float64
}

// RenderOptions is everything a Renderer needs besides the buffer.
type RenderOptions struct {
	StartTime  float64
	Width      int
	Height     int
	Colors     ColorScheme
	AxisLabels bool
	Amplitude  AmplitudeScale
}

// Validate checks the options.
func (o *RenderOptions) Validate() error {
	if o.StartTime < 0 {
		return fmt.Errorf("%w: invalid start time: minimum 0", ErrValidation)
	}
	if o.Width < 1 {
		return fmt.Errorf("%w: invalid image width: minimum 1", ErrValidation)
	}
	if o.Height < 1 {
		return fmt.Errorf("%w: invalid image height: minimum 1", ErrValidation)
	}
	switch o.Colors {
	case ColorsAudacity, ColorsAudition:
	default:
		return fmt.Errorf("%w: unknown color scheme: %s", ErrValidation, o.Colors)
	}
	if !o.Amplitude.Auto && o.Amplitude.Factor <= 0 {
		return fmt.Errorf("%w: invalid amplitude scale: must be greater than zero", ErrValidation)
	}
	return nil
}

// Renderer draws one channel of summary data. Implementations must not
// modify the buffer.
type Renderer interface {
	Render(b *Buffer, opts RenderOptions) (image.Image, error)
}

// PrepareRender returns b at the resolution scale asks for at b's sample
// rate. A coarser resolution is produced with Rescale, an equal one returns
// b itself, and a finer one fails with ErrZoom.
func PrepareRender(b *Buffer, scale ScaleFactor) (*Buffer, error) {
	target := scale.SamplesPerPixel(b.sampleRate)
	switch {
	case target > b.samplesPerPixel:
		return Rescale(b, target)
	case target < b.samplesPerPixel:
		return nil, fmt.Errorf("%w: invalid zoom, minimum: %d", ErrZoom, b.samplesPerPixel)
	default:
		return b, nil
	}
}

// RenderChannels renders every channel of b separately, in channel order.
func RenderChannels(b *Buffer, scale ScaleFactor, opts RenderOptions, r Renderer) ([]image.Image, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	images := make([]image.Image, 0, b.NumChannels())
	for ch, single := range b.SplitChannels() {
		prepared, err := PrepareRender(single, scale)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		img, err := r.Render(prepared, opts)
		if err != nil {
			return nil, fmt.Errorf("channel %d: unable to render: %w", ch, err)
		}
		images = append(images, img)
	}
	return images, nil
}
