package ollama

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Longest side of an image sent to a vision model.
const defaultMaxImageDim = 1568

// downscale re-encodes images larger than maxDim on either side as JPEG.
// Smaller images are returned unchanged.
func downscale(data []byte, maxDim int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxDim && bounds.Dy() <= maxDim {
		return data, nil
	}

	resized := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
