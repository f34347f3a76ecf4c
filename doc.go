// Package waveform generates, rescales and stores audio waveform summary
// data in pure Go.
//
// Summary data holds, for each output pixel, the minimum and maximum sample
// over a fixed window of raw audio. It is compact enough to ship to a browser
// or image renderer and precise enough to draw a waveform at any zoom level
// coarser than the one it was generated at.
//
// # Generating
//
// A [Downsampler] consumes interleaved 16-bit PCM from any decoder and
// streams points into a [Buffer]:
//
//	scale, err := waveform.FixedResolution(256)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	buf := waveform.NewBuffer()
//	d := waveform.NewDownsampler(buf, waveform.DownsamplerConfig{Scale: scale})
//	if err := d.Init(44100, 2); err != nil {
//	    log.Fatal(err)
//	}
//	for block := range pcmBlocks {
//	    if err := d.Process(block); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	if err := d.Done(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Scale Factors
//
// The resolution is chosen by a [ScaleFactor]:
//
//   - [FixedResolution]: an explicit samples-per-pixel value.
//   - [TargetDuration]: fit a time window into an image width.
//   - [TargetPixelsPerSecond]: a fixed number of pixels per second of audio.
//
// [NewScaleFactor] selects one from user intent and rejects contradictory
// combinations.
//
// # Rescaling
//
// [Rescale] coarsens a buffer by merging blocks of consecutive points.
// Refining is impossible because detail was discarded at generation time;
// asking for it fails with [ErrZoom].
//
// # Encodings
//
// Buffers are stored in three encodings, each in two versions:
//
//   - binary (.dat): fixed-width header plus min/max pairs, 8 or 16 bit
//   - JSON (.json): header fields plus flat min,max arrays
//   - text (.txt): one "min,max" line per point
//
// Version 1 stores one channel per file; [Export] names the files with
// [ChannelFilename]. Version 2 stores all channels in one file, interleaved
// point by point. Binary files are written in host byte order.
//
// # Rendering
//
// Image drawing lives outside this package. [RenderChannels] prepares each
// channel at the requested resolution and hands it to a [Renderer].
//
// # Thread Safety
//
// Buffers and Downsamplers are not safe for concurrent use. Each pipeline
// stage owns the buffer it is filling and hands it on when done.
package waveform
