package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// Defaults for stored photos.
const (
	DefaultMaxDimension   = 2560
	DefaultThumbDimension = 512
	DefaultQuality        = 70
)

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Result contains the compressed full-size image and its thumbnail.
type Result struct {
	Blob  []byte
	Thumb []byte
	MIME  string
}

// Compressor downscales and re-encodes photos.
type Compressor struct {
	MaxDimension   int
	ThumbDimension int
	Quality        int
}

// NewCompressor returns a Compressor with the default settings.
func NewCompressor() *Compressor {
	return &Compressor{
		MaxDimension:   DefaultMaxDimension,
		ThumbDimension: DefaultThumbDimension,
		Quality:        DefaultQuality,
	}
}

// Compress reads image data, validates the format by sniffing bytes, and
// produces a downscaled JPEG plus a smaller JPEG thumbnail from the same
// source. Images already within bounds are not upscaled.
func (c *Compressor) Compress(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("unsupported image format: %s (only JPEG, PNG and WebP accepted)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	blob, err := c.encode(downscale(img, c.MaxDimension))
	if err != nil {
		return nil, err
	}
	thumb, err := c.encode(downscale(img, c.ThumbDimension))
	if err != nil {
		return nil, err
	}

	return &Result{Blob: blob, Thumb: thumb, MIME: "image/jpeg"}, nil
}

func (c *Compressor) encode(img image.Image) ([]byte, error) {
	quality := c.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
// Returns the original image if already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
	image.RegisterFormat("webp", "RIFF????WEBPVP8", webp.Decode, webp.DecodeConfig)
}
