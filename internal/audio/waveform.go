// Package audio decodes recordings and cuts them into per-message clips.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

// Waveform is a fully decoded PCM recording. Data is interleaved by channel.
type Waveform struct {
	buf      *goaudio.IntBuffer
	bitDepth int
}

// Decode loads the whole WAV file into memory; cutting needs random access across
// the full recording.
func Decode(path string) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	return DecodeReader(f)
}

func DecodeReader(r io.ReadSeeker) (*Waveform, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode PCM: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 || buf.Format.SampleRate < 1 {
		return nil, errors.New("WAV header has no sample rate or channels")
	}

	return &Waveform{buf: buf, bitDepth: int(d.BitDepth)}, nil
}

// NewWaveform wraps already decoded samples.
func NewWaveform(data []int, sampleRate, channels, bitDepth int) *Waveform {
	return &Waveform{
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			Data:           data,
			SourceBitDepth: bitDepth,
		},
		bitDepth: bitDepth,
	}
}

func (w *Waveform) SampleRate() int { return w.buf.Format.SampleRate }
func (w *Waveform) Channels() int   { return w.buf.Format.NumChannels }
func (w *Waveform) BitDepth() int   { return w.bitDepth }

// Frames returns the number of samples per channel.
func (w *Waveform) Frames() int {
	return len(w.buf.Data) / w.Channels()
}

// Seconds returns the recording length.
func (w *Waveform) Seconds() float64 {
	return float64(w.Frames()) / float64(w.SampleRate())
}

// Slice returns frames [int(start*rate), int(end*rate)) clamped to the recording, or
// nil when nothing of the range lies inside it. The returned buffer shares memory
// with the waveform and must not be modified.
func (w *Waveform) Slice(start, end float64) *goaudio.IntBuffer {
	rate := float64(w.SampleRate())
	from := clamp(int(start*rate), 0, w.Frames())
	to := clamp(int(end*rate), 0, w.Frames())
	if from >= to {
		return nil
	}

	ch := w.Channels()
	return &goaudio.IntBuffer{
		Format:         w.buf.Format,
		Data:           w.buf.Data[from*ch : to*ch],
		SourceBitDepth: w.buf.SourceBitDepth,
	}
}

// EncodeWAV encodes samples as a standalone RIFF WAV file in memory.
func EncodeWAV(buf *goaudio.IntBuffer, bitDepth int) ([]byte, error) {
	out := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(out, buf.Format.SampleRate, bitDepth, buf.Format.NumChannels, 1)

	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encoder write buffer: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoder close: %w", err)
	}

	data, err := io.ReadAll(out.Reader())
	if err != nil {
		return nil, fmt.Errorf("reading wav into memory: %w", err)
	}
	return data, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
