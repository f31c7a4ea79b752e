package imaging

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

// webpPixel is a 1x1 lossless WebP image.
const webpPixel = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func createTestJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func createTestGIF() []byte {
	img := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	gif.Encode(&buf, img, nil)
	return buf.Bytes()
}

func TestInspectJPEG(t *testing.T) {
	data := createTestJPEG(100, 100)
	result, err := Inspect("photo.JPG", "image/jpeg", data)
	if err != nil {
		t.Fatalf("Inspect JPEG: %v", err)
	}
	if result.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", result.MIME)
	}
	if result.Ext != ".jpg" {
		t.Errorf("expected lower-cased .jpg, got %s", result.Ext)
	}
	if !bytes.Equal(result.Data, data) {
		t.Error("small image should be stored untouched")
	}
}

func TestInspectPNGKeepsFormat(t *testing.T) {
	data := createTestPNG(100, 100)
	result, err := Inspect("bottle.png", "image/png", data)
	if err != nil {
		t.Fatalf("Inspect PNG: %v", err)
	}
	if result.MIME != "image/png" {
		t.Errorf("expected image/png, got %s", result.MIME)
	}
}

func TestInspectWebP(t *testing.T) {
	data, err := base64.StdEncoding.DecodeString(webpPixel)
	if err != nil {
		t.Fatal(err)
	}
	result, err := Inspect("pixel.webp", "image/webp", data)
	if err != nil {
		t.Fatalf("Inspect WebP: %v", err)
	}
	if result.Width != 1 || result.Height != 1 {
		t.Errorf("expected 1x1, got %dx%d", result.Width, result.Height)
	}
}

func TestInspectGIF(t *testing.T) {
	result, err := Inspect("anim.gif", "image/gif", createTestGIF())
	if err != nil {
		t.Fatalf("Inspect GIF: %v", err)
	}
	if result.MIME != "image/gif" {
		t.Errorf("expected image/gif, got %s", result.MIME)
	}
}

func TestInspectDownscale(t *testing.T) {
	data := createTestJPEG(3000, 1500)
	result, err := Inspect("large.jpeg", "image/jpeg", data)
	if err != nil {
		t.Fatalf("Inspect large image: %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg output, got %s", format)
	}
	bounds := img.Bounds()
	if bounds.Dx() != MaxDimension || bounds.Dy() != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, bounds.Dx(), bounds.Dy())
	}
}

func TestInspectRejectsExtension(t *testing.T) {
	_, err := Inspect("setup.exe", "image/png", createTestPNG(10, 10))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for .exe, got %v", err)
	}
}

func TestInspectRejectsDeclaredMIME(t *testing.T) {
	_, err := Inspect("photo.png", "application/octet-stream", createTestPNG(10, 10))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for declared type, got %v", err)
	}
}

func TestInspectRejectsDisguisedContent(t *testing.T) {
	_, err := Inspect("photo.png", "image/png", []byte("MZ\x90\x00 not an image at all"))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for non-image bytes, got %v", err)
	}

	_, err = Inspect("photo.jpg", "image/jpeg", createTestPNG(10, 10))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for PNG named .jpg, got %v", err)
	}

	_, err = Inspect("pixel.png", "image/png", createTestGIF())
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for GIF named .png, got %v", err)
	}
}

// pngHeader returns a PNG signature and IHDR chunk declaring a w x h 1-bit
// grayscale canvas, with no pixel data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 1 // bit depth
	ihdr[9] = 0 // grayscale

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestInspectRejectsHugeCanvas(t *testing.T) {
	_, err := Inspect("poster.png", "image/png", pngHeader(12000, 12000))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for 12000x12000 canvas, got %v", err)
	}
}

func TestInspectRejectsTruncatedImage(t *testing.T) {
	data := createTestPNG(10, 10)
	_, err := Inspect("photo.png", "image/png", data[:12])
	if err == nil {
		t.Error("expected error for truncated image")
	}
}
