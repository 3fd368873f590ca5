package raster

import (
	"math"
	"testing"
)

func solidBuffer(w, h int, v uint8) *PixelBuffer {
	pb := NewPixelBuffer(w, h)
	for i := range pb.Pix {
		pb.Pix[i] = v
	}
	return pb
}

func countBits(bp *BitPlane) int {
	n := 0
	for y := 0; y < bp.Height; y++ {
		for x := 0; x < bp.Width; x++ {
			n += int(bp.Bit(x, y))
		}
	}
	return n
}

func TestThresholdExtremes(t *testing.T) {
	tests := []struct {
		name      string
		sample    uint8
		intensity float64
		want      byte
	}{
		{"black sample prints", 0, 0.5, 1},
		{"white sample stays blank", 255, 0.5, 0},
		{"mid gray at default intensity", 128, 0.5, 0},
		{"mid gray at high intensity", 128, 0.9, 1},
		{"mid gray at low intensity", 128, 0.1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bp := Dither(solidBuffer(8, 1, tt.sample), Threshold, tt.intensity)
			if got := bp.Bit(0, 0); got != tt.want {
				t.Errorf("Bit(0,0) = %d, want %d", got, tt.want)
			}
		})
	}
}

// A buffer that is already two-level at the 0.5 cutoff must survive
// thresholding unchanged when run through it again.
func TestThresholdIdempotent(t *testing.T) {
	pb := NewPixelBuffer(16, 4)
	for i := range pb.Pix {
		if i%3 == 0 {
			pb.Pix[i] = 0
		} else {
			pb.Pix[i] = 255
		}
	}
	first := Dither(pb, Threshold, 0.5)

	rendered := NewPixelBuffer(16, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 16; x++ {
			if first.Bit(x, y) == 1 {
				rendered.Set(x, y, 0)
			} else {
				rendered.Set(x, y, 255)
			}
		}
	}
	second := Dither(rendered, Threshold, 0.5)
	for y := 0; y < 4; y++ {
		for x := 0; x < 16; x++ {
			if first.Bit(x, y) != second.Bit(x, y) {
				t.Fatalf("bit (%d,%d) changed on second pass", x, y)
			}
		}
	}
}

// Error diffusion conserves total ink: over a large uniform area the
// set-bit count approaches area × (255−sample)/255, with only the
// diffused residual escaping at the edges.
func TestFloydSteinbergInkPreservation(t *testing.T) {
	const w, h = 384, 200
	for _, sample := range []uint8{32, 128, 200} {
		bp := Dither(solidBuffer(w, h, sample), FloydSteinberg, 0.5)
		want := float64(w*h) * float64(255-sample) / 255
		got := float64(countBits(bp))
		if diff := math.Abs(got - want); diff > float64(w+h) {
			t.Errorf("sample %d: %0.f dots set, want %0.f ± %d", sample, got, want, w+h)
		}
	}
}

func TestFloydSteinbergExtremes(t *testing.T) {
	if n := countBits(Dither(solidBuffer(64, 8, 255), FloydSteinberg, 0.5)); n != 0 {
		t.Errorf("white input set %d dots, want 0", n)
	}
	if n := countBits(Dither(solidBuffer(64, 8, 0), FloydSteinberg, 0.5)); n != 64*8 {
		t.Errorf("black input set %d dots, want all %d", n, 64*8)
	}
}

// The screen leaves pure white untouched, fills pure black solid, and
// produces a periodic pattern in between.
func TestHalftone(t *testing.T) {
	if n := countBits(Dither(solidBuffer(48, 24, 255), Halftone, 0.5)); n != 0 {
		t.Errorf("white input set %d dots, want 0", n)
	}
	if n := countBits(Dither(solidBuffer(48, 24, 0), Halftone, 0.5)); n != 48*24 {
		t.Errorf("black input set %d dots, want all %d", n, 48*24)
	}
	mid := countBits(Dither(solidBuffer(48, 24, 128), Halftone, 0.5))
	if mid == 0 || mid == 48*24 {
		t.Errorf("mid gray produced a flat plane (%d dots)", mid)
	}
}

func TestAlgorithmNames(t *testing.T) {
	for _, a := range []Algorithm{Threshold, FloydSteinberg, Halftone} {
		if got := ParseAlgorithm(a.String()); got != a {
			t.Errorf("ParseAlgorithm(%q) = %v, want %v", a.String(), got, a)
		}
	}
	if got := ParseAlgorithm("no-such-screen"); got != FloydSteinberg {
		t.Errorf("unknown name parsed to %v, want FloydSteinberg", got)
	}
}
