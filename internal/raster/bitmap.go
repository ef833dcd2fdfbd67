// Package raster converts rendered label images into printer-ready 1-bit
// bitmaps: resize onto a fixed canvas, contrast boost, sharpen, threshold.
package raster

import "fmt"

// Bitmap is a 1-bit-per-pixel image packed MSB-first, rows padded to a whole
// byte. A set bit is a black dot.
type Bitmap struct {
	Width       int
	Height      int
	BytesPerRow int
	Data        []byte
}

// NewBitmap allocates a zeroed (all-white) bitmap.
func NewBitmap(width, height int) *Bitmap {
	bytesPerRow := width / 8
	if width%8 != 0 {
		bytesPerRow++
	}
	return &Bitmap{
		Width:       width,
		Height:      height,
		BytesPerRow: bytesPerRow,
		Data:        make([]byte, bytesPerRow*height),
	}
}

// SetBlack marks the pixel at (x, y) as a black dot.
func (b *Bitmap) SetBlack(x, y int) {
	b.Data[y*b.BytesPerRow+x/8] |= 0x80 >> uint(x%8)
}

// IsBlack reports whether the pixel at (x, y) is a black dot.
func (b *Bitmap) IsBlack(x, y int) bool {
	return b.Data[y*b.BytesPerRow+x/8]&(0x80>>uint(x%8)) != 0
}

// Hex renders the packed data as uppercase hexadecimal, the form ZPL graphic
// fields expect.
func (b *Bitmap) Hex() string {
	return fmt.Sprintf("%X", b.Data)
}
