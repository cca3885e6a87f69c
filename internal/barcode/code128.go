// Package barcode renders ticket barcodes.
package barcode

import (
	"bytes"
	"fmt"
	"image/png"

	"parking-attendant/internal/parking"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
)

type Code128Encoder struct {
	width  int
	height int
}

func NewCode128Encoder(width, height int) *Code128Encoder {
	return &Code128Encoder{width: width, height: height}
}

// Encode returns a PNG of exactly width×height pixels.
func (e *Code128Encoder) Encode(text string, symbology parking.Symbology) ([]byte, error) {
	if symbology != parking.Code128 {
		return nil, fmt.Errorf("unsupported symbology %q", symbology)
	}

	code, err := code128.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", text, err)
	}

	scaled, err := barcode.Scale(code, e.width, e.height)
	if err != nil {
		return nil, fmt.Errorf("scale to %dx%d: %w", e.width, e.height, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
