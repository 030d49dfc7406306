package raster

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Output formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatWebP = "webp"
)

var dataURLPattern = regexp.MustCompile(`^data:image/[^;]+;base64,(.+)$`)

// DecodeDataURL decodes an image sent as "data:image/<type>;base64,<data>".
func DecodeDataURL(dataURL string) (image.Image, error) {
	if dataURL == "" {
		return nil, &ImageProcessingError{Operation: "decode", Err: errors.New("image_b64 is empty")}
	}
	m := dataURLPattern.FindStringSubmatch(strings.TrimSpace(dataURL))
	if m == nil {
		return nil, &ImageProcessingError{Operation: "decode",
			Err: errors.New("image_b64 must be a data URL like 'data:image/png;base64,...'")}
	}
	raw, err := base64.StdEncoding.DecodeString(m[1])
	if err != nil {
		return nil, &ImageProcessingError{Operation: "decode", Err: fmt.Errorf("base64: %w", err)}
	}
	return DecodeBytes(raw)
}

// DecodeBytes decodes PNG, JPEG, BMP or WebP data.
func DecodeBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, &ImageProcessingError{Operation: "decode", Err: errors.New("unknown or unsupported format")}
}

// Encode writes img to w in the given format. quality applies to JPEG and
// lossy WebP.
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	var err error
	switch normalizeFormat(format) {
	case FormatPNG:
		err = imaging.Encode(w, img, imaging.PNG)
	case FormatJPEG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatWebP:
		err = webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return &ImageProcessingError{Operation: "encode", Err: err}
	}
	return nil
}

// EncodeDataURL encodes img as a base64 data URL.
func EncodeDataURL(img image.Image, format string, quality int) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality); err != nil {
		return "", err
	}
	return "data:" + MimeType(format) + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// MimeType returns the media type for an output format.
func MimeType(format string) string {
	return "image/" + normalizeFormat(format)
}

// FormatFromPath infers the output format from a file extension, defaulting
// to PNG.
func FormatFromPath(path string) string {
	return normalizeFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

func normalizeFormat(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return FormatJPEG
	case "webp":
		return FormatWebP
	case "png", "":
		return FormatPNG
	default:
		return strings.ToLower(format)
	}
}

// Load reads and decodes an image file.
func Load(path string) (image.Image, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: reading user-provided image path is expected
	if err != nil {
		return nil, &ImageProcessingError{Operation: "load", Err: err}
	}
	return DecodeBytes(data)
}

// Save encodes img to path using the format implied by its extension.
func Save(img image.Image, path string, quality int) error {
	f, err := os.Create(path) //nolint:gosec // G304: writing user-provided output path is expected
	if err != nil {
		return &ImageProcessingError{Operation: "save", Err: err}
	}
	if err := Encode(f, img, FormatFromPath(path), quality); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return &ImageProcessingError{Operation: "save", Err: err}
	}
	return nil
}
