package waveform

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// EncodeText writes b as comma separated text, one line per point and no
// header.
//
// Version 1 writes "min,max" lines for opts.Channel. Version 2 writes
// "min,max,channel" lines ordered by point index, then channel.
func EncodeText(w io.Writer, b *Buffer, opts EncodeOptions) error {
	bits, err := opts.resolve(b)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	line := make([]byte, 0, 32)

	if opts.Version.Layout() == LayoutInterleaved {
		for i := range b.Size(0) {
			for ch := range b.channels {
				p := b.channels[ch][i]
				line = appendTextPoint(line[:0], p, bits)
				line = append(line, ',')
				line = strconv.AppendInt(line, int64(ch), 10)
				line = append(line, '\n')
				_, _ = bw.Write(line)
			}
		}
	} else {
		for _, p := range b.channels[opts.Channel] {
			line = appendTextPoint(line[:0], p, bits)
			line = append(line, '\n')
			_, _ = bw.Write(line)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

func appendTextPoint(dst []byte, p Point, bits int) []byte {
	dst = strconv.AppendInt(dst, int64(scaled(p.Min, bits)), 10)
	dst = append(dst, ',')
	return strconv.AppendInt(dst, int64(scaled(p.Max, bits)), 10)
}
