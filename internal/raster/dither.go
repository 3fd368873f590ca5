package raster

import (
	"fmt"
	"math"
)

// Algorithm selects the grayscale-to-1-bit reduction. The variants are
// exhaustive; Dither panics on anything else so a missed case fails
// loudly in development rather than printing garbage.
type Algorithm int

const (
	// Threshold is a plain per-pixel cutoff scaled by intensity.
	Threshold Algorithm = iota
	// FloydSteinberg diffuses quantization error with the classic
	// 7/16, 3/16, 5/16, 1/16 kernel, preserving average luminance.
	FloydSteinberg
	// Halftone modulates samples with a periodic clustered-dot screen
	// before a plain threshold, producing a newsprint texture.
	Halftone
)

func (a Algorithm) String() string {
	switch a {
	case Threshold:
		return "threshold"
	case FloydSteinberg:
		return "floyd-steinberg"
	case Halftone:
		return "halftone"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// ParseAlgorithm maps a settings string to an Algorithm. Unknown names
// fall back to FloydSteinberg, the best general-purpose default.
func ParseAlgorithm(s string) Algorithm {
	switch s {
	case "threshold":
		return Threshold
	case "halftone":
		return Halftone
	default:
		return FloydSteinberg
	}
}

// Dither reduces a grayscale buffer to one bit per pixel. Source
// luminance is inverted first — the printer burns media where a bit is
// set, so black maps to 1. The consumed PixelBuffer must not be reused.
func Dither(pb *PixelBuffer, algo Algorithm, intensity float64) *BitPlane {
	intensity = clamp01(intensity)
	switch algo {
	case Threshold:
		return ditherThreshold(pb, intensity)
	case FloydSteinberg:
		return ditherFloydSteinberg(pb)
	case Halftone:
		return ditherHalftone(pb, intensity)
	default:
		panic(fmt.Sprintf("raster: unknown dither algorithm %d", int(algo)))
	}
}

// ditherThreshold sets a dot wherever the inverted sample reaches the
// cutoff (1−intensity)×255. Higher intensity lowers the cutoff and
// darkens the print.
func ditherThreshold(pb *PixelBuffer, intensity float64) *BitPlane {
	bp := NewBitPlane(pb.Width, pb.Height)
	cutoff := (1 - intensity) * 255
	for y := 0; y < pb.Height; y++ {
		row := pb.Row(y)
		for x, v := range row {
			ink := 255 - float64(v)
			if ink >= cutoff {
				bp.SetBit(x, y)
			}
		}
	}
	return bp
}

// ditherFloydSteinberg raster-scans left-to-right, top-to-bottom,
// quantizing each inverted sample against a fixed midpoint and pushing
// fractions of the error into the unvisited right and below neighbors.
// Rows must run strictly top to bottom: each row's quantization depends
// on the error carried down from the previous one.
func ditherFloydSteinberg(pb *PixelBuffer) *BitPlane {
	bp := NewBitPlane(pb.Width, pb.Height)
	w, h := pb.Width, pb.Height
	if w == 0 || h == 0 {
		return bp
	}

	cur := make([]float64, w)
	next := make([]float64, w)
	for x, v := range pb.Row(0) {
		cur[x] = 255 - float64(v)
	}

	for y := 0; y < h; y++ {
		if y+1 < h {
			for x, v := range pb.Row(y + 1) {
				next[x] = 255 - float64(v)
			}
		}
		for x := 0; x < w; x++ {
			old := cur[x]
			var quantized float64
			if old >= 128 {
				bp.SetBit(x, y)
				quantized = 255
			}
			err := old - quantized
			if x+1 < w {
				cur[x+1] += err * 7 / 16
			}
			if y+1 < h {
				if x > 0 {
					next[x-1] += err * 3 / 16
				}
				next[x] += err * 5 / 16
				if x+1 < w {
					next[x+1] += err * 1 / 16
				}
			}
		}
		cur, next = next, cur
	}
	return bp
}

// ditherHalftone screens the inverted samples with a periodic radial
// dot pattern, then applies a plain (non-diffusing) cutoff. The cell
// size shrinks as intensity grows: low intensity gives large, sparse
// dots.
func ditherHalftone(pb *PixelBuffer, intensity float64) *BitPlane {
	bp := NewBitPlane(pb.Width, pb.Height)
	cell := int(math.Round(4 + (1-intensity)*8)) // 12 dots at i=0 down to 4 at i=1
	half := float64(cell-1) / 2
	maxDist := math.Sqrt(2*half*half) + 1e-9

	for y := 0; y < pb.Height; y++ {
		row := pb.Row(y)
		for x, v := range row {
			ink := 255 - float64(v)
			dx := float64(x%cell) - half
			dy := float64(y%cell) - half
			// Screen threshold grows radially from the cell center, so
			// darker areas grow round clustered dots.
			screen := math.Sqrt(dx*dx+dy*dy) / maxDist * 255
			if ink > screen {
				bp.SetBit(x, y)
			}
		}
	}
	return bp
}
