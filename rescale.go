package waveform

import (
	"fmt"
)

// Rescale returns a new buffer holding src coarsened to samplesPerPixel.
//
// Every output point covers a block of samplesPerPixel / src.SamplesPerPixel()
// consecutive source points: its Min is the smallest Min in the block and its
// Max the largest Max. The last block of a channel may be shorter. Sample rate
// and bits are inherited; src is not modified.
//
// Requesting a finer resolution than src holds fails with ErrZoom.
func Rescale(src *Buffer, samplesPerPixel int) (*Buffer, error) {
	if src.samplesPerPixel < minSamplesPerPixel {
		return nil, fmt.Errorf("%w: source samples per pixel not set", ErrValidation)
	}
	if samplesPerPixel < src.samplesPerPixel {
		return nil, fmt.Errorf("%w: invalid zoom %d, minimum: %d",
			ErrZoom, samplesPerPixel, src.samplesPerPixel)
	}

	out := src.cloneHeader()
	out.samplesPerPixel = samplesPerPixel
	out.channels = make([][]Point, len(src.channels))

	blockSize := samplesPerPixel / src.samplesPerPixel
	for ch, points := range src.channels {
		out.channels[ch] = rescaleChannel(points, blockSize)
	}

	return out, nil
}

func rescaleChannel(points []Point, blockSize int) []Point {
	out := make([]Point, 0, (len(points)+blockSize-1)/blockSize)

	for start := 0; start < len(points); start += blockSize {
		end := min(start+blockSize, len(points))

		p := points[start]
		for _, q := range points[start+1 : end] {
			if q.Min < p.Min {
				p.Min = q.Min
			}
			if q.Max > p.Max {
				p.Max = q.Max
			}
		}
		out = append(out, p)
	}

	return out
}
