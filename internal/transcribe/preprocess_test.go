package transcribe

import (
	"context"
	"strings"
	"testing"
)

func TestBytesToFloat32(t *testing.T) {
	t.Run("converts_little_endian", func(t *testing.T) {
		// 0, 16384, -32768, 32767
		data := []byte{0x00, 0x00, 0x00, 0x40, 0x00, 0x80, 0xff, 0x7f}
		got, err := BytesToFloat32(data)
		if err != nil {
			t.Fatalf("BytesToFloat32: %v", err)
		}
		want := []float32{0, 0.5, -1, 32767.0 / 32768.0}
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("odd_length_rejected", func(t *testing.T) {
		if _, err := BytesToFloat32([]byte{0x01, 0x02, 0x03}); err == nil {
			t.Error("expected error for odd length")
		}
	})
}

func TestDecoder_MissingBinary(t *testing.T) {
	d := NewDecoder("scribe-no-such-ffmpeg")
	if d.Available() {
		t.Fatal("Available() = true for a missing binary")
	}
	_, err := d.Decode(context.Background(), "clip.mp3")
	if err == nil || !strings.Contains(err.Error(), "ffmpeg not found") {
		t.Errorf("err = %v, want ffmpeg not found", err)
	}
}
