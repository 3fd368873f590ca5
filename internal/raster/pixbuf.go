package raster

// PixelBuffer is an owned grid of 8-bit grayscale samples, row-major,
// no alpha. It is produced by Prepare and consumed (then discarded) by
// Dither.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8 // len = Width*Height
}

// NewPixelBuffer allocates a zeroed width×height buffer.
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// At returns the sample at (x, y). No bounds check; callers iterate
// within Width/Height.
func (p *PixelBuffer) At(x, y int) uint8 {
	return p.Pix[y*p.Width+x]
}

// Set stores the sample at (x, y).
func (p *PixelBuffer) Set(x, y int, v uint8) {
	p.Pix[y*p.Width+x] = v
}

// Row returns the y-th row as a subslice of the backing array.
func (p *PixelBuffer) Row(y int) []uint8 {
	return p.Pix[y*p.Width : (y+1)*p.Width]
}
