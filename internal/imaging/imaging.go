// Package imaging decodes uploaded screenshots, computes their metadata and
// cuts normalized regions out of them for text extraction.
package imaging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// TimestampLayout is the capture timestamp format carried in result metadata.
	TimestampLayout = "2006-01-02T15:04:05"

	// minCropHeight is the height below which crops are upscaled before extraction.
	minCropHeight = 32
)

var ErrDecode = errf("image could not be decoded")

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }

// Image is a decoded upload together with the metadata derived from its bytes.
type Image struct {
	img    image.Image
	Format string
	// Hash is the hex SHA-256 of the raw upload.
	Hash   string
	Width  int
	Height int
	// Timestamp is the EXIF capture time, empty when absent.
	Timestamp string
}

// Decode reads any registered image format.
func Decode(raw []byte) (*Image, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	sum := sha256.Sum256(raw)
	b := img.Bounds()
	return &Image{
		img:       img,
		Format:    format,
		Hash:      hex.EncodeToString(sum[:]),
		Width:     b.Dx(),
		Height:    b.Dy(),
		Timestamp: captureTime(raw),
	}, nil
}

// Resolution renders the size as "WxH".
func (i *Image) Resolution() string { return fmt.Sprintf("%dx%d", i.Width, i.Height) }

// Orientation is "landscape" when the image is at least as wide as it is tall.
func (i *Image) Orientation() string {
	if i.Width >= i.Height {
		return "landscape"
	}
	return "portrait"
}

// Crop returns the region [x0, y0, x1, y1] given in 0..1 image coordinates.
// Regions are clamped to the image; an empty region yields nil. Short crops
// are upscaled so small glyphs stay legible.
func (i *Image) Crop(roi [4]float64) image.Image {
	b := i.img.Bounds()
	rect := image.Rect(
		b.Min.X+int(clamp01(roi[0])*float64(b.Dx())),
		b.Min.Y+int(clamp01(roi[1])*float64(b.Dy())),
		b.Min.X+int(clamp01(roi[2])*float64(b.Dx())),
		b.Min.Y+int(clamp01(roi[3])*float64(b.Dy())),
	).Intersect(b)
	if rect.Empty() {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Copy(dst, image.Point{}, i.img, rect, draw.Src, nil)
	if rect.Dy() >= minCropHeight {
		return dst
	}
	scale := (minCropHeight + rect.Dy() - 1) / rect.Dy()
	up := image.NewRGBA(image.Rect(0, 0, rect.Dx()*scale, rect.Dy()*scale))
	draw.CatmullRom.Scale(up, up.Bounds(), dst, dst.Bounds(), draw.Src, nil)
	return up
}

// EncodePNG serializes a crop for the text extractor.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// captureTime reads DateTimeOriginal, then DateTime, from EXIF data.
func captureTime(raw []byte) string {
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	t, err := x.DateTime()
	if err != nil {
		return ""
	}
	return t.Format(TimestampLayout)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
