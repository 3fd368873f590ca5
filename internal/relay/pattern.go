package relay

import (
	"image"
	"image/color"

	"github.com/matheusdanoite/phomemo-go/internal/phomemo"
)

// TestPattern renders the calibration strip: a full-width border to
// check edge alignment, vertical lines at known pitches to check dot
// geometry, and a gradient band to judge dithering and darkness.
func TestPattern() image.Image {
	const (
		w = phomemo.PrintWidthDots
		h = 240
	)
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	set := func(x, y int, v uint8) {
		img.SetGray(x, y, color.Gray{Y: v})
	}

	// 2px outer border
	for x := 0; x < w; x++ {
		for _, y := range []int{0, 1, h - 2, h - 1} {
			set(x, y, 0)
		}
	}
	for y := 0; y < h; y++ {
		for _, x := range []int{0, 1, w - 2, w - 1} {
			set(x, y, 0)
		}
	}

	// vertical lines, pitch doubling left to right
	for band, pitch := 0, 2; pitch <= 32; band, pitch = band+1, pitch*2 {
		x0, x1 := 8+band*76, 8+(band+1)*76-8
		for x := x0; x < x1 && x < w-4; x += pitch {
			for y := 10; y < 80; y++ {
				set(x, y, 0)
			}
		}
	}

	// horizontal gradient band, white to black
	for y := 100; y < 170; y++ {
		for x := 4; x < w-4; x++ {
			set(x, y, uint8(255-(x-4)*255/(w-9)))
		}
	}

	// checkerboard
	for y := 185; y < h-10; y++ {
		for x := 4; x < w-4; x++ {
			if (x/8+y/8)%2 == 0 {
				set(x, y, 0)
			}
		}
	}
	return img
}
