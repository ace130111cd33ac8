// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Extensions the loader can decode, mapped to the decoder format name.
var imageExtensions = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
	".tif":  "tiff",
	".tiff": "tiff",
	".webp": "webp",
}

// minOCRWidth is the width the MRZ band is upscaled to before recognition.
const minOCRWidth = 1600

// IsImageExtension reports whether path has a decodable image extension.
func IsImageExtension(path string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// LoadImage decodes an image file and rotates it upright using its EXIF
// orientation when present.
func LoadImage(path string) (image.Image, string, error) {
	if !IsImageExtension(path) {
		return nil, "", newProcessingError(path, ErrorTypeUnsupportedFormat, fmt.Sprintf("extension %q", filepath.Ext(path)), nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", newProcessingError(path, ErrorTypeFileAccess, "", err)
	}
	if err := limits.CheckFileSize(path, int64(len(data))); err != nil {
		return nil, "", err
	}
	if err := limits.CheckDimensions(path, data); err != nil {
		return nil, "", err
	}

	img, format, err := DecodeImage(bytes.NewReader(data))
	if err != nil {
		return nil, "", newProcessingError(path, ErrorTypeDecode, "", err)
	}
	if format == "jpeg" || format == "tiff" {
		img = Orient(img, ReadOrientation(bytes.NewReader(data)))
	}
	return img, format, nil
}

// DecodeImage decodes any registered format.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// EncodePNG encodes img losslessly for OCR engines.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// MRZBand returns the bottom fraction of the page in grayscale, upscaled so
// the OCR engine sees glyphs of a usable size.
func MRZBand(img image.Image, fraction float64) image.Image {
	b := img.Bounds()
	if fraction <= 0 || fraction > 1 {
		fraction = 1
	}
	top := b.Max.Y - int(float64(b.Dy())*fraction)
	band := image.Rect(b.Min.X, top, b.Max.X, b.Max.Y)
	return Grayscale(img, band, minOCRWidth)
}

// Grayscale copies the region of img into a grayscale image at least minWidth
// pixels wide, keeping the aspect ratio.
func Grayscale(img image.Image, region image.Rectangle, minWidth int) *image.Gray {
	region = region.Intersect(img.Bounds())
	w, h := region.Dx(), region.Dy()
	if w > 0 && w < minWidth {
		h = h * minWidth / w
		w = minWidth
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, region, draw.Src, nil)
	return dst
}
