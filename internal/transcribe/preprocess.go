package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// SampleRate is the PCM rate speech models expect.
const SampleRate = 16000

// Decoder converts uploaded audio (mp3, m4a, webm, ...) into 16kHz mono
// float32 samples using ffmpeg.
type Decoder struct {
	path string

	once  sync.Once
	avail bool
}

// NewDecoder creates a decoder for the ffmpeg binary at path ("ffmpeg" = PATH lookup).
func NewDecoder(path string) *Decoder {
	if path == "" {
		path = "ffmpeg"
	}
	return &Decoder{path: path}
}

// Available reports whether the ffmpeg binary can be found (checked once).
func (d *Decoder) Available() bool {
	d.once.Do(func() {
		_, err := exec.LookPath(d.path)
		d.avail = err == nil
	})
	return d.avail
}

// Decode runs ffmpeg on inputPath:
//   - resample to 16kHz mono
//   - emit raw signed 16-bit little-endian PCM on stdout
//
// and converts the result to float32 samples in [-1, 1).
func (d *Decoder) Decode(ctx context.Context, inputPath string) ([]float32, error) {
	if !d.Available() {
		return nil, fmt.Errorf("ffmpeg not found: %s", d.path)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.path,
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-ac", "1",
		"-ar", fmt.Sprint(SampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-",
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffmpeg decode: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("ffmpeg decode: %w", err)
	}

	samples, err := BytesToFloat32(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("ffmpeg decode: no audio samples in %s", inputPath)
	}
	return samples, nil
}

// BytesToFloat32 converts s16le PCM to float32 samples.
func BytesToFloat32(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("data length must be even for 16-bit audio")
	}
	floats := make([]float32, len(data)/2)
	for i := range floats {
		sample := int16(data[i*2]) | int16(data[i*2+1])<<8
		floats[i] = float32(sample) / 32768.0
	}
	return floats, nil
}
