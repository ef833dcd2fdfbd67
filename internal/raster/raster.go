package raster

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
)

// Tuning constants for the label pipeline. These match the thermal-print
// calibration the labels were designed against; changing them changes how
// much ink lands on the label.
const (
	// DefaultContrastFactor steepens mid-tones before thresholding.
	DefaultContrastFactor = 3.5

	// ThresholdLuminance: pixels darker than this become black dots.
	ThresholdLuminance = 180

	// opaqueAlpha: pixels at or below this alpha are treated as background.
	opaqueAlpha = 128
)

// Errors returned by the pipeline.
var (
	ErrEmptyImage    = errors.New("source image is empty")
	ErrInvalidTarget = errors.New("target dimensions must be positive")
)

// ResizeToTarget scales src uniformly to fit within width x height and
// centers it on an opaque white canvas of exactly those dimensions. Scaling
// is nearest-neighbour: labels carry barcodes and small text, and smoothing
// would turn crisp edges into grey fringes that threshold unpredictably.
func ResizeToTarget(src image.Image, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidTarget
	}
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= 0 || srcH <= 0 {
		return nil, ErrEmptyImage
	}

	scale := float64(width) / float64(srcW)
	if s := float64(height) / float64(srcH); s < scale {
		scale = s
	}
	scaledW := int(math.Round(float64(srcW) * scale))
	scaledH := int(math.Round(float64(srcH) * scale))
	if scaledW < 1 {
		scaledW = 1
	}
	if scaledH < 1 {
		scaledH = 1
	}

	scaled := resize.Resize(uint(scaledW), uint(scaledH), src, resize.NearestNeighbor)

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	offset := image.Pt((width-scaledW)/2, (height-scaledH)/2)
	draw.Draw(canvas, image.Rectangle{Min: offset, Max: offset.Add(image.Pt(scaledW, scaledH))}, scaled, scaled.Bounds().Min, draw.Over)

	return canvas, nil
}

// EnhanceContrast pushes every colour channel away from mid-grey by factor,
// clamped to [0, 255]. Alpha is untouched. Returns a new buffer.
func EnhanceContrast(img *image.RGBA, factor float64) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	for i := 0; i < len(img.Pix); i += 4 {
		out.Pix[i+0] = clampChannel(factor*(float64(img.Pix[i+0])-128) + 128)
		out.Pix[i+1] = clampChannel(factor*(float64(img.Pix[i+1])-128) + 128)
		out.Pix[i+2] = clampChannel(factor*(float64(img.Pix[i+2])-128) + 128)
		out.Pix[i+3] = img.Pix[i+3]
	}
	return out
}

// sharpenKernel is a 3x3 high-pass filter. The weights sum to 3, which both
// sharpens edges and brightens the image slightly before thresholding.
var sharpenKernel = [9]float64{
	0, -1, 0,
	-1, 7, -1,
	0, -1, 0,
}

// Sharpen convolves the interior of img with sharpenKernel, reading only
// from the unmodified input. Border pixels are copied through unchanged.
func Sharpen(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(bounds)
	copy(out.Pix, img.Pix)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var r, g, b float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					weight := sharpenKernel[(ky+1)*3+(kx+1)]
					i := img.PixOffset(bounds.Min.X+x+kx, bounds.Min.Y+y+ky)
					r += weight * float64(img.Pix[i+0])
					g += weight * float64(img.Pix[i+1])
					b += weight * float64(img.Pix[i+2])
				}
			}
			i := out.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			out.Pix[i+0] = clampChannel(r)
			out.Pix[i+1] = clampChannel(g)
			out.Pix[i+2] = clampChannel(b)
			out.Pix[i+3] = img.Pix[i+3]
		}
	}
	return out
}

// Threshold reduces img to 1-bit: a pixel becomes a black dot when it is
// effectively opaque and its luminance (ITU-R 601 weights) falls below
// ThresholdLuminance. Transparent pixels stay white regardless of colour.
func Threshold(img *image.RGBA) *Bitmap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	bitmap := NewBitmap(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			if img.Pix[i+3] <= opaqueAlpha {
				continue
			}
			lum := 0.299*float64(img.Pix[i+0]) + 0.587*float64(img.Pix[i+1]) + 0.114*float64(img.Pix[i+2])
			if lum < ThresholdLuminance {
				bitmap.SetBlack(x, y)
			}
		}
	}
	return bitmap
}

// Prepare runs the full pipeline on a source image: resize to the target
// canvas, boost contrast, sharpen, threshold to a packed bitmap.
func Prepare(src image.Image, width, height int) (*Bitmap, error) {
	canvas, err := ResizeToTarget(src, width, height)
	if err != nil {
		return nil, err
	}
	enhanced := EnhanceContrast(canvas, DefaultContrastFactor)
	sharpened := Sharpen(enhanced)
	return Threshold(sharpened), nil
}

func clampChannel(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
