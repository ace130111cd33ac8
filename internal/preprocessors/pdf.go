// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// IsPDF reports whether path has a PDF extension.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// LoadPDFImage returns the largest decodable image embedded in the first page
// of a PDF. Scanned passports are stored this way.
func LoadPDFImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newProcessingError(path, ErrorTypeFileAccess, "", err)
	}
	defer f.Close()
	if info, err := f.Stat(); err == nil {
		if err := limits.CheckFileSize(path, info.Size()); err != nil {
			return nil, err
		}
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.ExtractImagesRaw(f, []string{"1"}, conf)
	if err != nil {
		return nil, newProcessingError(path, ErrorTypeDecode, "extract images", err)
	}

	var (
		best     image.Image
		bestArea int
	)
	for _, page := range pages {
		for _, raw := range page {
			data, err := io.ReadAll(raw)
			if err != nil || limits.CheckDimensions(path, data) != nil {
				continue
			}
			img, _, err := DecodeImage(bytes.NewReader(data))
			if err != nil {
				continue
			}
			if area := img.Bounds().Dx() * img.Bounds().Dy(); area > bestArea {
				best, bestArea = img, area
			}
		}
	}
	if best == nil {
		return nil, newProcessingError(path, ErrorTypeNoImage, "first page has no decodable image", nil)
	}
	return best, nil
}

// maxTextPages bounds text-layer extraction; an MRZ is on the data page.
const maxTextPages = 2

// ExtractPDFText returns the text layer of the first pages, one output line per
// text row, ordered top to bottom.
func ExtractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", newProcessingError(path, ErrorTypeDecode, "open PDF", err)
	}
	defer f.Close()

	pageCount := r.NumPage()
	if pageCount > maxTextPages {
		pageCount = maxTextPages
	}

	var buf strings.Builder
	for i := 1; i <= pageCount; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := pageText(p)
		if err != nil {
			return "", newProcessingError(path, ErrorTypeDecode, fmt.Sprintf("page %d", i), err)
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func pageText(p pdf.Page) (string, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		return "", err
	}

	sorted := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil && len(row.Content) > 0 {
			sorted = append(sorted, row)
		}
	}
	// PDF user space grows upwards.
	sort.Slice(sorted, func(i, j int) bool {
		return averageY(sorted[i].Content) > averageY(sorted[j].Content)
	})

	lines := make([]string, 0, len(sorted))
	for _, row := range sorted {
		texts := append([]pdf.Text(nil), row.Content...)
		sort.Slice(texts, func(i, j int) bool { return texts[i].X < texts[j].X })
		var line strings.Builder
		for _, t := range texts {
			line.WriteString(t.S)
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n"), nil
}

func averageY(texts []pdf.Text) float64 {
	var sum float64
	for _, t := range texts {
		sum += t.Y
	}
	return sum / float64(len(texts))
}
