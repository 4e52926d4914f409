// Package export converts a committed deck into a downloadable ZIP bundle:
// one HTML, script, and stylesheet file per slide plus a manifest, compressed
// with Zstandard, uploaded to object storage, and handed to the client as a
// presigned URL on a polled job.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/fpang/ai-deck-studio/internal/deck"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd uint16 = 93

func init() {
	// Deck bundles are text, which zstd compresses hard even at modest
	// levels; level 12 maps to SpeedBestCompression in klauspost/compress.
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
	})
}

// manifest is the machine-readable bundle index written as manifest.json.
type manifest struct {
	SessionID   string          `json:"sessionId"`
	GeneratedAt time.Time       `json:"generatedAt"`
	SlideCount  int             `json:"slideCount"`
	Slides      []manifestSlide `json:"slides"`
}

type manifestSlide struct {
	Index     int      `json:"index"`
	HTML      string   `json:"html"`
	Scripts   []string `json:"scripts,omitempty"`
	CSS       string   `json:"css,omitempty"`
	CanvasIDs []string `json:"canvasIds,omitempty"`
}

// BuildBundle renders the deck as a zstd-compressed ZIP. onSlide, when set,
// is called after each slide is written so job progress can track the build.
func BuildBundle(sessionID string, d *deck.SlideDeck, onSlide func(done int)) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	man := manifest{
		SessionID:   sessionID,
		GeneratedAt: time.Now().UTC(),
		SlideCount:  d.Count(),
	}

	for i, slide := range d.Slides {
		ms := manifestSlide{Index: slide.Index, CanvasIDs: slide.CanvasIDs}

		ms.HTML = fmt.Sprintf("slides/slide-%02d.html", i+1)
		if err := writeEntry(zw, ms.HTML, []byte(slide.HTML)); err != nil {
			return nil, err
		}

		for j, script := range slide.Scripts {
			name := fmt.Sprintf("slides/slide-%02d-%d.js", i+1, j+1)
			if err := writeEntry(zw, name, []byte(script)); err != nil {
				return nil, err
			}
			ms.Scripts = append(ms.Scripts, name)
		}

		if slide.CSS != "" {
			ms.CSS = fmt.Sprintf("slides/slide-%02d.css", i+1)
			if err := writeEntry(zw, ms.CSS, []byte(slide.CSS)); err != nil {
				return nil, err
			}
		}

		man.Slides = append(man.Slides, ms)
		if onSlide != nil {
			onSlide(i + 1)
		}
	}

	manJSON, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeEntry(zw, "manifest.json", manJSON); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close bundle: %w", err)
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zipMethodZstd,
		Modified: time.Now(),
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create bundle entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write bundle entry %s: %w", name, err)
	}
	return nil
}
