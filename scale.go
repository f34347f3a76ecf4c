package waveform

import (
	"fmt"
)

// ScaleKind identifies how a ScaleFactor derives samples per pixel.
type ScaleKind int

const (
	// ScaleFixed uses an explicit samples-per-pixel value.
	ScaleFixed ScaleKind = iota

	// ScaleDuration fits a time window into a pixel width.
	ScaleDuration

	// ScalePixelsPerSecond renders a fixed number of pixels per second of audio.
	ScalePixelsPerSecond
)

// String returns the kind name.
func (k ScaleKind) String() string {
	switch k {
	case ScaleFixed:
		return "fixed"
	case ScaleDuration:
		return "duration"
	case ScalePixelsPerSecond:
		return "pixels-per-second"
	default:
		return fmt.Sprintf("ScaleKind(%d)", int(k))
	}
}

// ScaleFactor computes the target resolution from a sample rate. It is an
// immutable tagged value; construct it with FixedResolution, TargetDuration,
// TargetPixelsPerSecond or NewScaleFactor.
type ScaleFactor struct {
	kind ScaleKind

	samplesPerPixel int

	startTime float64
	endTime   float64
	width     int

	pixelsPerSecond int
}

// FixedResolution returns a scale factor that always yields samplesPerPixel.
func FixedResolution(samplesPerPixel int) (ScaleFactor, error) {
	if samplesPerPixel < minSamplesPerPixel {
		return ScaleFactor{}, fmt.Errorf("%w: invalid zoom: %d, minimum %d",
			ErrValidation, samplesPerPixel, minSamplesPerPixel)
	}
	return ScaleFactor{kind: ScaleFixed, samplesPerPixel: samplesPerPixel}, nil
}

// TargetDuration returns a scale factor that fits the time range
// [startTime, endTime] seconds into widthPixels pixels.
func TargetDuration(startTime, endTime float64, widthPixels int) (ScaleFactor, error) {
	if endTime < startTime {
		return ScaleFactor{}, fmt.Errorf("%w: invalid end time, must be greater than %g",
			ErrValidation, startTime)
	}
	if widthPixels < 1 {
		return ScaleFactor{}, fmt.Errorf("%w: invalid image width: minimum 1", ErrValidation)
	}
	return ScaleFactor{
		kind:      ScaleDuration,
		startTime: startTime,
		endTime:   endTime,
		width:     widthPixels,
	}, nil
}

// TargetPixelsPerSecond returns a scale factor yielding pixelsPerSecond
// points per second of audio.
func TargetPixelsPerSecond(pixelsPerSecond int) (ScaleFactor, error) {
	if pixelsPerSecond <= 0 {
		return ScaleFactor{}, fmt.Errorf("%w: invalid pixels per second: must be greater than zero",
			ErrValidation)
	}
	return ScaleFactor{kind: ScalePixelsPerSecond, pixelsPerSecond: pixelsPerSecond}, nil
}

// Kind reports which variant the scale factor holds.
func (s ScaleFactor) Kind() ScaleKind {
	return s.kind
}

// SamplesPerPixel computes the resolution for audio at sampleRate. The
// result is not range checked; the Downsampler rejects values below 2.
func (s ScaleFactor) SamplesPerPixel(sampleRate int) int {
	switch s.kind {
	case ScaleDuration:
		widthSamples := int((s.endTime - s.startTime) * float64(sampleRate))
		return widthSamples / s.width
	case ScalePixelsPerSecond:
		return sampleRate / s.pixelsPerSecond
	default:
		return s.samplesPerPixel
	}
}

// String describes the scale factor.
func (s ScaleFactor) String() string {
	switch s.kind {
	case ScaleDuration:
		return fmt.Sprintf("duration %g-%gs over %d pixels", s.startTime, s.endTime, s.width)
	case ScalePixelsPerSecond:
		return fmt.Sprintf("%d pixels per second", s.pixelsPerSecond)
	default:
		return fmt.Sprintf("%d samples per pixel", s.samplesPerPixel)
	}
}

// ScaleOptions carries the user's resolution intent. Nil fields are unset.
// At most one of SamplesPerPixel, PixelsPerSecond and EndTime may be set.
type ScaleOptions struct {
	// SamplesPerPixel selects FixedResolution.
	SamplesPerPixel *int

	// PixelsPerSecond selects TargetPixelsPerSecond.
	PixelsPerSecond *int

	// EndTime selects TargetDuration over [StartTime, EndTime].
	EndTime *float64

	// StartTime is the window start in seconds. Only used with EndTime.
	StartTime float64

	// Width is the image width in pixels. Only used with EndTime.
	Width int
}

// Validate rejects contradictory intents.
func (o *ScaleOptions) Validate() error {
	if (o.SamplesPerPixel != nil || o.PixelsPerSecond != nil) && o.EndTime != nil {
		return fmt.Errorf("%w: specify either end time or zoom level, but not both", ErrValidation)
	}
	if o.SamplesPerPixel != nil && o.PixelsPerSecond != nil {
		return fmt.Errorf("%w: specify either zoom or pixels per second, but not both", ErrValidation)
	}
	return nil
}

// NewScaleFactor selects and constructs the scale factor described by opts.
// With nothing set it returns FixedResolution(DefaultSamplesPerPixel).
func NewScaleFactor(opts ScaleOptions) (ScaleFactor, error) {
	if err := opts.Validate(); err != nil {
		return ScaleFactor{}, err
	}

	switch {
	case opts.EndTime != nil:
		return TargetDuration(opts.StartTime, *opts.EndTime, opts.Width)
	case opts.PixelsPerSecond != nil:
		return TargetPixelsPerSecond(*opts.PixelsPerSecond)
	case opts.SamplesPerPixel != nil:
		return FixedResolution(*opts.SamplesPerPixel)
	default:
		return FixedResolution(DefaultSamplesPerPixel)
	}
}

// AutoScaleFactor returns a scale factor that fits the whole of b into
// widthPixels pixels.
func AutoScaleFactor(b *Buffer, widthPixels int) (ScaleFactor, error) {
	return TargetDuration(0, Duration(b), widthPixels)
}
