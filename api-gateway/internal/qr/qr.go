package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// Renderer encodes checkout URLs as PNG QR codes with the highest error correction level.
type Renderer struct {
	size int
}

func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{size: size}
}

func (r *Renderer) PNG(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Highest, r.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
