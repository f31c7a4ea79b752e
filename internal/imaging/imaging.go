package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxDimension is the maximum width or height for stored JPEG and PNG images.
const MaxDimension = 2048

// MaxPixels caps the declared canvas of any upload. Decoding allocates
// memory for every pixel, regardless of how small the file is.
const MaxPixels = 40_000_000

// JPEGQuality is the compression quality for re-encoded JPEG output.
const JPEGQuality = 85

// AllowedMIME lists the accepted image MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// AllowedExt maps accepted file extensions to their MIME type.
var AllowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// AllowedTypes is the human-readable list used in rejection messages.
const AllowedTypes = "jpeg, jpg, png, gif, webp"

// ErrUnsupported is returned for files outside the allow-list.
var ErrUnsupported = errors.New("only image files are allowed (" + AllowedTypes + ")")

// Result contains an accepted image.
type Result struct {
	Data   []byte
	MIME   string
	Ext    string
	Width  int
	Height int
}

// Inspect validates an uploaded image. The extension of filename and the
// declared MIME type must both be on the allow-list, and the sniffed bytes
// must match the extension. JPEG and PNG images larger than MaxDimension
// are downscaled and re-encoded in their own format; everything else is
// returned untouched.
func Inspect(filename, declaredMIME string, data []byte) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedExt[ext]; !ok {
		return nil, ErrUnsupported
	}
	if declaredMIME != "" {
		declared := strings.ToLower(strings.TrimSpace(strings.Split(declaredMIME, ";")[0]))
		if declared == "image/jpg" {
			declared = "image/jpeg"
		}
		if !AllowedMIME[declared] {
			return nil, ErrUnsupported
		}
	}

	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("%w: content is %s", ErrUnsupported, detected)
	}
	if AllowedExt[ext] != detected {
		return nil, fmt.Errorf("%w: %s file contains %s", ErrUnsupported, ext, detected)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %v", ErrUnsupported, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupported, cfg.Width, cfg.Height, MaxPixels)
	}

	result := &Result{
		Data:   data,
		MIME:   detected,
		Ext:    ext,
		Width:  cfg.Width,
		Height: cfg.Height,
	}

	if detected != "image/jpeg" && detected != "image/png" {
		return result, nil
	}
	if cfg.Width <= MaxDimension && cfg.Height <= MaxDimension {
		return result, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %v", ErrUnsupported, err)
	}
	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	if detected == "image/png" {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	bounds := img.Bounds()
	result.Data = buf.Bytes()
	result.Width = bounds.Dx()
	result.Height = bounds.Dy()
	return result, nil
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
// Returns the original image if already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	// Calculate new dimensions preserving aspect ratio.
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
