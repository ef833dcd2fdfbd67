// Package zpl builds ZPL II documents for Zebra thermal printers.
package zpl

import (
	"fmt"
	"math"
	"strings"

	"github.com/opsconsole/shipping-service/internal/raster"
)

// Printer defaults for the standard 10x10 cm shipping label.
const (
	DefaultDPI           = 203
	DefaultDarkness      = 30
	DefaultLabelWidthCm  = 10.0
	DefaultLabelHeightCm = 10.0
)

// CmToDots converts a physical length to printer dots at the given density.
func CmToDots(cm float64, dpi int) int {
	return int(math.Round(cm / 2.54 * float64(dpi)))
}

// GraphicField encodes a packed bitmap as an ASCII-hex ^GFA command. The
// second and third parameters are both the total byte count because the data
// is sent in a single block.
func GraphicField(b *raster.Bitmap) string {
	total := len(b.Data)
	return fmt.Sprintf("^GFA,%d,%d,%d,%s", total, total, b.BytesPerRow, b.Hex())
}

// Document wraps a bitmap in a complete label: print width and length,
// continuous media, darkness, minimum speed, no mirroring, origin at the
// top-left corner. The command order matters to some firmware revisions, so
// it is kept fixed.
func Document(b *raster.Bitmap, widthDots, heightDots, darkness int) string {
	var sb strings.Builder
	sb.WriteString("^XA\n")
	sb.WriteString(fmt.Sprintf("^PW%d\n", widthDots))
	sb.WriteString(fmt.Sprintf("^LL%d\n", heightDots))
	sb.WriteString("^MNN\n")
	sb.WriteString(fmt.Sprintf("^SD%d\n", darkness))
	sb.WriteString("^PR1,1,1\n")
	sb.WriteString("^PM0\n")
	sb.WriteString("^LH0,0\n")
	sb.WriteString("^FO0,0" + GraphicField(b) + "^FS\n")
	sb.WriteString("^XZ")
	return sb.String()
}
