// Package preview turns a composed label into PNG, data URI and PDF
// previews.
package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"

	"github.com/AlexStarov/qrlabel-GoLang-lib/label"
)

const (
	mmPerInch   = 25.4
	imageName   = "label"
	pngMimeType = "image/png"
)

// PNG encodes img losslessly.
func PNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("preview: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI returns png as a data:image/png;base64 URI.
func DataURI(png []byte) string {
	return "data:" + pngMimeType + ";base64," + base64.StdEncoding.EncodeToString(png)
}

// PageSize is the size in millimetres of a w×h dot image at dpi.
func PageSize(w, h, dpi int) (float64, float64) {
	if dpi <= 0 {
		dpi = label.DPI
	}
	return float64(w) / float64(dpi) * mmPerInch, float64(h) / float64(dpi) * mmPerInch
}

// PDF returns a single page document the size of the label with img
// filling the page.
func PDF(img image.Image, dpi int) ([]byte, error) {
	sz := img.Bounds().Size()
	if sz.X == 0 || sz.Y == 0 {
		return nil, fmt.Errorf("preview: empty image")
	}
	png, err := PNG(img)
	if err != nil {
		return nil, err
	}

	wd, ht := PageSize(sz.X, sz.Y, dpi)
	orientation := "P"
	if wd > ht {
		orientation = "L"
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("qrlabel", true)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(png))
	pdf.ImageOptions(imageName, 0, 0, wd, ht, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("preview: write pdf: %w", err)
	}
	return out.Bytes(), nil
}
