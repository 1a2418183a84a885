package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"net/http"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/fpang/asset-labeler/internal/labels"
)

func testImage() image.Image {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.SetGray(1, 1, color.Gray{Y: 200})
	return img
}

func TestExtractLabels_OversizeSkipsDetector(t *testing.T) {
	det := &fakeDetector{result: labels.Result{{Name: "Cat", Confidence: 99}}}
	p := New(Config{}, Deps{Detector: det})

	big := make([]byte, DefaultMaxImageBytes+1)
	copy(big, pngBytes())
	_, err := p.ExtractLabels(context.Background(), big)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if det.calls != 0 {
		t.Errorf("detector must not be called for oversize input, got %d calls", det.calls)
	}
}

func TestExtractLabels_ExactLimitAllowed(t *testing.T) {
	det := &fakeDetector{}
	img := pngBytes()
	p := New(Config{MaxImageBytes: int64(len(img))}, Deps{Detector: det})

	if _, err := p.ExtractLabels(context.Background(), img); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if det.calls != 1 {
		t.Errorf("expected 1 detector call, got %d", det.calls)
	}
}

func TestExtractLabels_DetectorError(t *testing.T) {
	boom := errors.New("quota exceeded")
	p := New(Config{}, Deps{Detector: &fakeDetector{err: boom}})

	if _, err := p.ExtractLabels(context.Background(), pngBytes()); !errors.Is(err, boom) {
		t.Fatalf("expected detector error, got %v", err)
	}
}

func TestPrepareImage_Conversions(t *testing.T) {
	var gifBuf, bmpBuf, tiffBuf bytes.Buffer
	if err := gif.Encode(&gifBuf, testImage(), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	if err := bmp.Encode(&bmpBuf, testImage()); err != nil {
		t.Fatalf("encode bmp: %v", err)
	}
	if err := tiff.Encode(&tiffBuf, testImage(), nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}

	for name, in := range map[string][]byte{"gif": gifBuf.Bytes(), "bmp": bmpBuf.Bytes(), "tiff": tiffBuf.Bytes()} {
		out, err := prepareImage(in, DefaultMaxImageBytes)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
			continue
		}
		if ct := http.DetectContentType(out); ct != "image/png" {
			t.Errorf("%s: expected png output, got %s", name, ct)
		}
	}
}

func TestPrepareImage_PassThrough(t *testing.T) {
	in := pngBytes()
	out, err := prepareImage(in, DefaultMaxImageBytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Error("expected PNG to pass through unchanged")
	}
}

func TestPrepareImage_Unsupported(t *testing.T) {
	if _, err := prepareImage([]byte("%PDF-1.7 not an image"), DefaultMaxImageBytes); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
