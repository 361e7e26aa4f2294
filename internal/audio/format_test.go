package audio

import (
	"testing"
	"time"
)

func TestMatchesExt(t *testing.T) {
	tests := []struct {
		path string
		f    Format
		want bool
	}{
		{"out.wav", FormatWAV, true},
		{"out.WAV", FormatWAV, true},
		{"out.mp3", FormatWAV, false},
		{"out.mp3", FormatMP3, true},
		{"out.wav", PCM16(16000, 1), true},
		{"out.raw", PCM16(16000, 1), true},
		{"out", FormatMP3, true},
	}
	for _, tt := range tests {
		if got := MatchesExt(tt.path, tt.f); got != tt.want {
			t.Errorf("MatchesExt(%q, %s) = %v, want %v", tt.path, tt.f, got, tt.want)
		}
	}
}

func TestFormatString(t *testing.T) {
	if got := PCM16(22050, 1).String(); got != "pcm_s16le/22050Hz/1ch" {
		t.Errorf("unexpected string: %q", got)
	}
	if got := FormatMP3.String(); got != "mp3" {
		t.Errorf("unexpected string: %q", got)
	}
}

func TestProbe_PCMDuration(t *testing.T) {
	// 16000 Hz 单声道 16-bit，一秒 32000 字节
	pcm := make([]byte, 32000)
	info, err := Probe(pcm, PCM16(16000, 1))
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if info.Duration != time.Second {
		t.Errorf("duration: got %v, want 1s", info.Duration)
	}
}

func TestProbe_Empty(t *testing.T) {
	if _, err := Probe(nil, FormatWAV); err == nil {
		t.Fatal("expected error for empty data")
	}
}

func TestProbe_InvalidWAV(t *testing.T) {
	if _, err := Probe([]byte("definitely not a wav file, just text"), FormatWAV); err == nil {
		t.Fatal("expected error for invalid wav")
	}
}
