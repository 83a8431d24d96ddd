// Package images decodes uploaded data-URI images and produces the
// stored JPEG original plus a scaled thumbnail.
package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"
)

// ThumbnailMaxDim bounds the longer side of a generated thumbnail
const ThumbnailMaxDim = 256

const jpegQuality = 85

// Decoded is a parsed upload ready for storage
type Decoded struct {
	Image  image.Image
	Format string
	Width  int
	Height int
}

// DecodeDataURI parses a base64 data URI and decodes the image.
// Only JPEG and PNG payloads are accepted.
func DecodeDataURI(uri string) (*Decoded, error) {
	payload := uri
	if strings.HasPrefix(uri, "data:") {
		idx := strings.Index(uri, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed data URI")
		}
		header := uri[:idx]
		if !strings.Contains(header, "image/jpeg") && !strings.Contains(header, "image/png") {
			return nil, fmt.Errorf("unsupported image type in %q", header)
		}
		payload = uri[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if format != "jpeg" && format != "png" {
		return nil, fmt.Errorf("unsupported image format %q", format)
	}

	bounds := img.Bounds()
	return &Decoded{
		Image:  img,
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// Thumbnail scales the image so its longer side is at most
// ThumbnailMaxDim, preserving aspect ratio. Images already within the
// bound are returned unscaled.
func Thumbnail(src image.Image) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= ThumbnailMaxDim && h <= ThumbnailMaxDim {
		return src
	}

	if w >= h {
		h = h * ThumbnailMaxDim / w
		w = ThumbnailMaxDim
	} else {
		w = w * ThumbnailMaxDim / h
		h = ThumbnailMaxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

// EncodeJPEG renders an image as JPEG bytes
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
