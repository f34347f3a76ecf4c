package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	waveform "github.com/tphakala/go-audio-waveform"
	"github.com/tphakala/go-audio-waveform/internal/source"
	"github.com/tphakala/go-audio-waveform/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String() + stderr.String(), err
}

func stereoWAV(t *testing.T, dir string, frames int) (string, []int16) {
	t.Helper()
	input := testutil.Sine(frames, 2, 440, 44100, 20000)
	return testutil.WriteWAV(t, dir, "input.wav", 44100, 16, 2, testutil.Ints(input)), input
}

func TestRun_MissingArguments(t *testing.T) {
	out, err := runCLI(t)
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, out, "Usage: audiowaveform")

	_, err = runCLI(t, "-i", "input.wav")
	require.ErrorIs(t, err, errUsage)
}

func TestRun_GenerateMixesToMono(t *testing.T) {
	dir := t.TempDir()
	input, pcm := stereoWAV(t, dir, 4410)
	output := filepath.Join(dir, "out.dat")

	out, err := runCLI(t, "-i", input, "-o", output, "-z", "441")
	require.NoError(t, err)
	assert.Contains(t, out, "input.wav -> out.dat")

	buf, hdr, err := waveform.Import(output, waveform.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, waveform.Version1, hdr.Version)
	assert.Equal(t, 1, buf.NumChannels())
	assert.Equal(t, 441, buf.SamplesPerPixel())
	assert.Equal(t, 10, buf.Size(0))

	// Reference: average each frame, then take window extremes
	mono := make([]int16, 4410)
	for i := range mono {
		mono[i] = int16((int(pcm[2*i]) + int(pcm[2*i+1])) / 2)
	}
	want := testutil.Windows(mono, 441)
	for i, w := range want {
		p, err := buf.Point(i, 0)
		require.NoError(t, err)
		assert.Equal(t, w.Min, p.Min, "point %d", i)
		assert.Equal(t, w.Max, p.Max, "point %d", i)
	}
}

func TestRun_GenerateSplitChannels(t *testing.T) {
	dir := t.TempDir()
	input, _ := stereoWAV(t, dir, 2048)
	output := filepath.Join(dir, "out.json")

	_, err := runCLI(t, "-q", "-i", input, "-o", output, "-split-channels", "-b", "8")
	require.NoError(t, err)

	buf, hdr, err := waveform.Import(output, waveform.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, waveform.Version2, hdr.Version)
	assert.Equal(t, 8, hdr.Bits)
	assert.Equal(t, 2, buf.NumChannels())
	assert.Equal(t, 8, buf.Size(1))
}

func TestRun_GenerateSplitChannelsVersion1(t *testing.T) {
	dir := t.TempDir()
	input, _ := stereoWAV(t, dir, 1000)
	output := filepath.Join(dir, "out.txt")

	out, err := runCLI(t, "-i", input, "-o", output, "-split-channels", "-data-version", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "out-chan0.txt, out-chan1.txt")

	assert.FileExists(t, filepath.Join(dir, "out-chan0.txt"))
	assert.FileExists(t, filepath.Join(dir, "out-chan1.txt"))
	assert.NoFileExists(t, output)
}

func TestRun_GenerateRejectsAutoZoom(t *testing.T) {
	dir := t.TempDir()
	input, _ := stereoWAV(t, dir, 1000)

	_, err := runCLI(t, "-i", input, "-o", filepath.Join(dir, "out.dat"), "-z", "auto")
	require.ErrorIs(t, err, waveform.ErrValidation)
}

func TestRun_ConflictingZoom(t *testing.T) {
	dir := t.TempDir()
	input, _ := stereoWAV(t, dir, 1000)
	output := filepath.Join(dir, "out.dat")

	_, err := runCLI(t, "-i", input, "-o", output, "-z", "512", "-e", "5")
	require.ErrorIs(t, err, waveform.ErrValidation)
	assert.Contains(t, err.Error(), "specify either end time or zoom level, but not both")

	_, err = runCLI(t, "-i", input, "-o", output, "-z", "512", "-pixels-per-second", "10")
	require.ErrorIs(t, err, waveform.ErrValidation)
	assert.Contains(t, err.Error(), "specify either zoom or pixels per second, but not both")

	_, err = runCLI(t, "-i", input, "-o", output, "-z", "fast")
	require.ErrorIs(t, err, waveform.ErrValidation)

	assert.NoFileExists(t, output)
}

func TestRun_ConvertWithRescale(t *testing.T) {
	dir := t.TempDir()
	input, _ := stereoWAV(t, dir, 8192)
	dat := filepath.Join(dir, "fine.dat")
	_, err := runCLI(t, "-q", "-i", input, "-o", dat, "-z", "128")
	require.NoError(t, err)

	output := filepath.Join(dir, "coarse.json")
	_, err = runCLI(t, "-q", "-i", dat, "-o", output, "-z", "512")
	require.NoError(t, err)

	fine, _, err := waveform.Import(dat, waveform.ImportOptions{})
	require.NoError(t, err)
	coarse, _, err := waveform.Import(output, waveform.ImportOptions{})
	require.NoError(t, err)

	want, err := waveform.Rescale(fine, 512)
	require.NoError(t, err)
	assert.Equal(t, 512, coarse.SamplesPerPixel())
	assert.Equal(t, 16, coarse.Size(0))

	wantPoints, err := want.Channel(0)
	require.NoError(t, err)
	gotPoints, err := coarse.Channel(0)
	require.NoError(t, err)
	assert.Equal(t, wantPoints, gotPoints)
}

func TestRun_ConvertAutoZoom(t *testing.T) {
	dir := t.TempDir()
	input, _ := stereoWAV(t, dir, 44100)
	dat := filepath.Join(dir, "in.dat")
	_, err := runCLI(t, "-q", "-i", input, "-o", dat, "-z", "100")
	require.NoError(t, err)

	// One second of audio fitted into 200 pixels
	output := filepath.Join(dir, "auto.dat")
	_, err = runCLI(t, "-q", "-i", dat, "-o", output, "-z", "auto", "-w", "200")
	require.NoError(t, err)

	buf, _, err := waveform.Import(output, waveform.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 220, buf.SamplesPerPixel())
}

func TestRun_ConvertFinerZoomFails(t *testing.T) {
	dir := t.TempDir()
	input, _ := stereoWAV(t, dir, 2048)
	dat := filepath.Join(dir, "in.dat")
	_, err := runCLI(t, "-q", "-i", input, "-o", dat, "-z", "256")
	require.NoError(t, err)

	_, err = runCLI(t, "-i", dat, "-o", filepath.Join(dir, "out.dat"), "-z", "64")
	require.ErrorIs(t, err, waveform.ErrZoom)
	assert.Contains(t, err.Error(), "invalid zoom, minimum: 256")
}

func TestRun_UnsupportedCombinations(t *testing.T) {
	dir := t.TempDir()
	input, _ := stereoWAV(t, dir, 100)

	_, err := runCLI(t, "-i", input, "-o", filepath.Join(dir, "copy.wav"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't generate wav from wav")

	_, err = runCLI(t, "-i", input, "-o", filepath.Join(dir, "image.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image renderer")

	_, err = runCLI(t, "-i", filepath.Join(dir, "in.txt"), "-o", filepath.Join(dir, "out.dat"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't generate dat from txt")
}

func TestRun_DecodeFLACToWAV(t *testing.T) {
	dir := t.TempDir()
	pcm := testutil.Sine(3000, 2, 300, 48000, 15000)
	input := testutil.WriteFLAC(t, dir, "input.flac", 48000, testutil.Planar(pcm, 2))
	output := filepath.Join(dir, "decoded.wav")

	out, err := runCLI(t, "-i", input, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "3000 frames")

	src, err := source.Open(output, nil)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	assert.Equal(t, 48000, src.SampleRate())
	assert.Equal(t, 2, src.Channels())

	var got []int16
	block := make([]int16, 1024)
	for {
		n, err := src.Read(block)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, block[:n]...)
	}
	assert.Equal(t, pcm, got)
}

func TestRun_VerboseLogging(t *testing.T) {
	dir := t.TempDir()
	input, _ := stereoWAV(t, dir, 44100)

	out, err := runCLI(t, "-v", "-i", input, "-o", filepath.Join(dir, "out.dat"))
	require.NoError(t, err)

	assert.Contains(t, out, "Generating waveform data...")
	assert.Contains(t, out, "Samples per pixel: 256")
	assert.Contains(t, out, "Input channels: 2")
	assert.Contains(t, out, "Writing output file:")
}

func TestCreateWAVOutput_InvalidDirectory(t *testing.T) {
	_, err := createWAVOutput("/nonexistent/dir/output.wav", 48000, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output file")
}

func TestFastWAVWriter_Header(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	writer, err := createWAVOutput(path, 8000, 1)
	require.NoError(t, err)
	require.NoError(t, writer.WriteSamples([]int16{1, -1, 32767, -32768}))
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, wavHeaderSize+8)

	le := binary.LittleEndian
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, uint32(wavRiffHeaderSize+8), le.Uint32(data[wavFileSizeOffset:]))
	assert.Equal(t, uint32(8), le.Uint32(data[wavDataSizeOffset:]))
	assert.Equal(t, uint32(8000), le.Uint32(data[24:]))
	assert.Equal(t, uint16(16), le.Uint16(data[34:]))
	assert.Equal(t, int16(-32768), int16(le.Uint16(data[50:])))
}

func TestProgressTracker_ReportsEveryInterval(t *testing.T) {
	var out bytes.Buffer
	tracker := newProgressTracker(1000, log.New(&out, "", 0))

	for frames := int64(0); frames <= 1000; frames += 50 {
		tracker.reportIfNeeded(frames)
	}

	assert.Equal(t, "Progress: 10%\nProgress: 20%\nProgress: 30%\nProgress: 40%\nProgress: 50%\n"+
		"Progress: 60%\nProgress: 70%\nProgress: 80%\nProgress: 90%\nProgress: 100%\n", out.String())
}

func TestProgressTracker_ZeroFrames(t *testing.T) {
	var out bytes.Buffer
	tracker := newProgressTracker(0, log.New(&out, "", 0))

	// Unknown length never reports
	tracker.reportIfNeeded(100)
	assert.Empty(t, out.String())
}
