package audio

import (
	"math"
	"testing"
)

func TestFloat32ToInt16_Normal(t *testing.T) {
	out := Float32ToInt16([]float32{0.5, -0.5, 0})
	if out[2] != 0 {
		t.Fatalf("expected 0 for 0.0 input, got %d", out[2])
	}
	if out[0] <= 0 {
		t.Fatalf("expected positive for 0.5 input, got %d", out[0])
	}
	if out[1] >= 0 {
		t.Fatalf("expected negative for -0.5 input, got %d", out[1])
	}
}

func TestFloat32ToInt16_Clamp(t *testing.T) {
	out := Float32ToInt16([]float32{1.5, -1.5})
	if out[0] != math.MaxInt16 {
		t.Errorf("expected %d (clamped to 1.0), got %d", math.MaxInt16, out[0])
	}
	if out[1] != -math.MaxInt16 {
		t.Errorf("expected %d (clamped to -1.0), got %d", -math.MaxInt16, out[1])
	}
}

func TestInt16ToBytes_LittleEndian(t *testing.T) {
	out := Int16ToBytes([]int16{0x0102})
	if len(out) != 2 || out[0] != 0x02 || out[1] != 0x01 {
		t.Fatalf("expected [0x02, 0x01], got %v", out)
	}
}

func TestPCM16ToInts_Roundtrip(t *testing.T) {
	samples := []int16{0, 1, -1, 1000, -1000, math.MaxInt16, math.MinInt16}
	ints := PCM16ToInts(Int16ToBytes(samples))
	if len(ints) != len(samples) {
		t.Fatalf("length mismatch: expected %d, got %d", len(samples), len(ints))
	}
	for i, s := range samples {
		if ints[i] != int(s) {
			t.Errorf("index %d: expected %d, got %d", i, s, ints[i])
		}
	}
}

func TestPCM16ToInts_DropsTrailingByte(t *testing.T) {
	ints := PCM16ToInts([]byte{0x01, 0x00, 0x7f})
	if len(ints) != 1 || ints[0] != 1 {
		t.Fatalf("expected [1], got %v", ints)
	}
}

func TestFloat32ToPCM16(t *testing.T) {
	b := Float32ToPCM16([]float32{0, 1.0, -1.0})
	if len(b) != 6 {
		t.Fatalf("expected 6 bytes, got %d", len(b))
	}
	ints := PCM16ToInts(b)
	if ints[0] != 0 || ints[1] != math.MaxInt16 || ints[2] != -math.MaxInt16 {
		t.Errorf("unexpected samples: %v", ints)
	}
}
