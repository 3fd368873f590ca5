package raster

import (
	"fmt"

	"github.com/matheusdanoite/phomemo-go/internal/phomemo"
)

// Frame is one immutable raster block ready for the wire: an 8-byte
// GS v 0 header followed by that block's packed rows. The printer
// accumulates blocks vertically in arrival order.
type Frame []byte

// FrameOf builds the frame covering rowCount rows starting at rowOff.
// The header's width-in-bytes field is taken from the plane's stride,
// which keeps the two in agreement by construction.
func FrameOf(bp *BitPlane, rowOff, rowCount int) (Frame, error) {
	if rowOff < 0 || rowCount <= 0 || rowOff+rowCount > bp.Height {
		return nil, fmt.Errorf("frame rows [%d,%d) outside plane height %d", rowOff, rowOff+rowCount, bp.Height)
	}
	rows := bp.Rows(rowOff, rowCount)
	f := make(Frame, 0, 8+len(rows))
	f = append(f, phomemo.RasterHeader(bp.Stride, rowCount)...)
	f = append(f, rows...)
	return f, nil
}

// Rows returns the frame's height-in-dots field.
func (f Frame) Rows() int {
	if len(f) < 8 {
		return 0
	}
	return int(f[6]) | int(f[7])<<8
}

// Chunk pre-splits an entire plane into frames of at most maxRows rows
// each. The split is eager, not lazy: the total frame count (and thus
// the job's estimated duration) is knowable before the first byte is
// sent. A byte-row is never split across two frames.
func Chunk(bp *BitPlane, maxRows int) []Frame {
	if maxRows <= 0 {
		maxRows = phomemo.MaxFrameRows
	}
	frames := make([]Frame, 0, (bp.Height+maxRows-1)/maxRows)
	for off := 0; off < bp.Height; off += maxRows {
		rows := maxRows
		if rows > bp.Height-off {
			rows = bp.Height - off
		}
		f, _ := FrameOf(bp, off, rows) // bounds are valid by construction
		frames = append(frames, f)
	}
	return frames
}
