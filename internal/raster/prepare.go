package raster

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/gift"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"

	"github.com/matheusdanoite/phomemo-go/internal/phomemo"
)

// Options control the preparation stage for one job. Intensity is a
// single perceptual knob in [0,1]; it drives the same contrast and
// brightness remap in the preview and in the final print, so what the
// user sees is what gets printed.
type Options struct {
	Intensity float64
	Mirror    bool // flip horizontally
	Rotate    bool // turn a landscape source 90° into a portrait strip
}

// DecodeImage reads an encoded image (PNG, JPEG, GIF or WebP). Failures
// come back as *DecodeError.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return img, nil
}

// Prepare normalizes a source image into the grayscale sample grid the
// dithering stage operates on: optional rotate and mirror, a
// grayscale remap parameterized by intensity, then a uniform rescale to
// the 384-dot print width (height scales proportionally, unclamped).
func Prepare(img image.Image, opts Options) (*PixelBuffer, error) {
	if img == nil || img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return nil, &RenderError{Stage: "source", Err: fmt.Errorf("empty image")}
	}
	intensity := clamp01(opts.Intensity)

	var filters []gift.Filter
	if opts.Rotate {
		filters = append(filters, gift.Rotate90())
	}
	if opts.Mirror {
		filters = append(filters, gift.FlipHorizontal())
	}
	if len(filters) > 0 {
		g := gift.New(filters...)
		dst := image.NewRGBA(g.Bounds(img.Bounds()))
		g.Draw(dst, img)
		img = dst
	}

	gray := remapGray(img, intensity)

	scaled := resize.Resize(phomemo.PrintWidthDots, 0, gray, resize.Lanczos3)
	sb := scaled.Bounds()
	if sb.Dx() != phomemo.PrintWidthDots || sb.Dy() == 0 {
		return nil, &RenderError{Stage: "rescale", Err: fmt.Errorf("got %dx%d", sb.Dx(), sb.Dy())}
	}

	pb := NewPixelBuffer(sb.Dx(), sb.Dy())
	if sg, ok := scaled.(*image.Gray); ok {
		for y := 0; y < pb.Height; y++ {
			copy(pb.Row(y), sg.Pix[y*sg.Stride:y*sg.Stride+pb.Width])
		}
		return pb, nil
	}
	for y := 0; y < pb.Height; y++ {
		for x := 0; x < pb.Width; x++ {
			r, _, _, _ := scaled.At(sb.Min.X+x, sb.Min.Y+y).RGBA()
			pb.Set(x, y, uint8(r>>8))
		}
	}
	return pb, nil
}

// remapGray desaturates to 8-bit grayscale while applying the intensity
// remap: contrast multiplier 0.5+i, brightness offset (0.5−i)×0.4. At
// i=0.5 the remap is the identity.
func remapGray(img image.Image, intensity float64) *image.Gray {
	contrast := 0.5 + intensity
	offset := (0.5 - intensity) * 0.4

	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()]
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// Rec.601 luma on 16-bit channel values.
			lum := (299*float64(r) + 587*float64(g) + 114*float64(bl)) / (1000 * 0xFFFF)
			v := lum*contrast + offset
			row[x] = uint8(clamp01(v)*255 + 0.5)
		}
	}
	return dst
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
