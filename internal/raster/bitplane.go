package raster

// BitPlane is an owned grid of 1-bit samples packed 8 per byte,
// most-significant-bit first. A set bit means "burn this dot" (printer
// ink convention). Row stride is ceil(width/8) bytes; unused low-order
// bits in a partial trailing byte are always zero.
type BitPlane struct {
	Width  int
	Height int
	Stride int
	Data   []byte // len = Stride*Height
}

// NewBitPlane allocates a cleared width×height plane.
func NewBitPlane(width, height int) *BitPlane {
	stride := (width + 7) / 8
	return &BitPlane{
		Width:  width,
		Height: height,
		Stride: stride,
		Data:   make([]byte, stride*height),
	}
}

// SetBit sets the dot at (x, y).
func (b *BitPlane) SetBit(x, y int) {
	b.Data[y*b.Stride+x/8] |= 0x80 >> uint(x%8)
}

// Bit returns 1 if the dot at (x, y) is set, else 0.
func (b *BitPlane) Bit(x, y int) byte {
	return (b.Data[y*b.Stride+x/8] >> (7 - uint(x%8))) & 1
}

// Rows returns the packed bytes for count rows starting at row off, as
// a subslice of the backing array.
func (b *BitPlane) Rows(off, count int) []byte {
	return b.Data[off*b.Stride : (off+count)*b.Stride]
}
