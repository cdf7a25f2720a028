package export

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadzakiakmal/shiptrack/barcode"
	"github.com/ahmadzakiakmal/shiptrack/render"
)

func rendered(t *testing.T, text string) *image.Gray {
	t.Helper()
	sym, err := barcode.Encode(text)
	require.NoError(t, err)
	img, err := render.Render(sym, render.DefaultConfig())
	require.NoError(t, err)
	return img
}

func fixedClock() time.Time {
	return time.Date(2024, 11, 5, 9, 30, 0, 0, time.UTC)
}

// idatStream concatenates the compressed pixel data of a PNG file
func idatStream(t *testing.T, data []byte) []byte {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))
	var out []byte
	for rest := data[8:]; len(rest) >= 12; {
		length := binary.BigEndian.Uint32(rest[:4])
		kind := string(rest[4:8])
		if kind == "IDAT" {
			out = append(out, rest[8:8+length]...)
		}
		rest = rest[12+length:]
	}
	require.NotEmpty(t, out)
	return out
}

func TestExportPNG(t *testing.T) {
	img := rendered(t, "AB12")
	artifact, err := NewPipeline().Export(img, KindRasterImage)
	require.NoError(t, err)

	assert.Equal(t, KindRasterImage, artifact.Kind)
	assert.Equal(t, "barcode.png", artifact.Filename)
	assert.Equal(t, "image/png", artifact.MediaType)
	assert.Nil(t, artifact.Rect)

	decoded, err := png.Decode(bytes.NewReader(artifact.Data))
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), decoded.Bounds())
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			r, _, _, _ := decoded.At(x, y).RGBA()
			require.Equal(t, uint32(img.GrayAt(x, y).Y)*0x101, r, "pixel %d,%d", x, y)
		}
	}
}

func TestExportPNGDeterministic(t *testing.T) {
	img := rendered(t, "9b2f6c1e-3a4d-4f5e-8a7b-0c1d2e3f4a5b")
	a, err := NewPipeline().Export(img, KindRasterImage)
	require.NoError(t, err)
	b, err := NewPipeline().Export(img, KindRasterImage)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestExportDocument(t *testing.T) {
	img := rendered(t, "9b2f6c1e-3a4d-4f5e-8a7b-0c1d2e3f4a5b")
	artifact, err := NewPipeline(WithClock(fixedClock)).Export(img, KindDocument)
	require.NoError(t, err)

	assert.Equal(t, KindDocument, artifact.Kind)
	assert.Equal(t, "barcode.pdf", artifact.Filename)
	assert.Equal(t, "application/pdf", artifact.MediaType)
	require.NotNil(t, artifact.Rect)
	assert.Equal(t, Rect{X: 10, Y: 10, Width: 180, Height: 60}, *artifact.Rect)

	doc := artifact.Data
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))
	assert.Contains(t, string(doc), "/Count 1")
	assert.Equal(t, 1, bytes.Count(doc, []byte("/Subtype /Image")))
	assert.Contains(t, string(doc), fmt.Sprintf("/Width %d", img.Bounds().Dx()))
	assert.Contains(t, string(doc), fmt.Sprintf("/Height %d", img.Bounds().Dy()))
}

func TestExportAllConsistency(t *testing.T) {
	img := rendered(t, "9b2f6c1e-3a4d-4f5e-8a7b-0c1d2e3f4a5b")
	pngArtifact, pdfArtifact, err := NewPipeline(WithClock(fixedClock)).ExportAll(img)
	require.NoError(t, err)

	// the PDF carries the PNG's pixel stream unchanged
	assert.True(t, bytes.Contains(pdfArtifact.Data, idatStream(t, pngArtifact.Data)))

	single, err := NewPipeline(WithClock(fixedClock)).Export(img, KindDocument)
	require.NoError(t, err)
	assert.Equal(t, single.Data, pdfArtifact.Data)
}

func TestExportRendererNotReady(t *testing.T) {
	p := NewPipeline()
	_, err := p.Export(nil, KindRasterImage)
	assert.ErrorIs(t, err, ErrRendererNotReady)
	_, _, err = p.ExportAll(image.NewGray(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrRendererNotReady)
	_, err = p.Export(rendered(t, "A"), Kind(9))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"png": KindRasterImage, "PDF": KindDocument, " image ": KindRasterImage, "document": KindDocument} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseKind("svg")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
