package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/png"
	"net/http"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/fpang/asset-labeler/internal/labels"
)

// ExtractLabels applies the size guard, normalizes the image encoding and
// calls the detector. Oversize input fails with ErrTooLarge before the
// detector is reached. Detector errors are returned wrapped.
func (p *Pipeline) ExtractLabels(ctx context.Context, img []byte) (labels.Result, error) {
	prepared, err := prepareImage(img, p.cfg.MaxImageBytes)
	if err != nil {
		return nil, err
	}
	result, err := p.detector.DetectLabels(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("detect labels: %w", err)
	}
	return result, nil
}

// prepareImage returns bytes the detector accepts: JPEG and PNG pass
// through, GIF, BMP, WebP and TIFF are re-encoded as PNG.
func prepareImage(img []byte, maxBytes int64) ([]byte, error) {
	if int64(len(img)) > maxBytes {
		return nil, fmt.Errorf("%d bytes exceeds %d: %w", len(img), maxBytes, ErrTooLarge)
	}

	switch sniffFormat(img) {
	case "jpeg", "png":
		return img, nil
	case "gif", "bmp", "webp", "tiff":
	default:
		return nil, fmt.Errorf("content type %s: %w", http.DetectContentType(img), ErrUnsupportedFormat)
	}

	decoded, format, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %v: %w", err, ErrUnsupportedFormat)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, fmt.Errorf("re-encode %s as png: %w", format, err)
	}
	if int64(buf.Len()) > maxBytes {
		return nil, fmt.Errorf("re-encoded %s is %d bytes, exceeds %d: %w", format, buf.Len(), maxBytes, ErrTooLarge)
	}
	return buf.Bytes(), nil
}

// sniffFormat classifies image bytes by signature.
func sniffFormat(b []byte) string {
	// net/http does not sniff TIFF.
	if bytes.HasPrefix(b, []byte("II*\x00")) || bytes.HasPrefix(b, []byte("MM\x00*")) {
		return "tiff"
	}
	switch http.DetectContentType(b) {
	case "image/jpeg":
		return "jpeg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/webp":
		return "webp"
	}
	return ""
}
