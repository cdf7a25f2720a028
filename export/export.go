// Package export turns a rendered barcode raster into downloadable artifacts:
// a PNG image, or a one-page PDF with that same PNG placed at a fixed
// rectangle.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Kind is the media kind of an artifact
type Kind int

const (
	KindRasterImage Kind = iota + 1
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindRasterImage:
		return "png"
	case KindDocument:
		return "pdf"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts "png"/"image" and "pdf"/"document"
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png", "image":
		return KindRasterImage, nil
	case "pdf", "document":
		return KindDocument, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

var (
	ErrRendererNotReady = errors.New("barcode raster is not rendered")
	ErrUnknownKind      = errors.New("unknown export kind")
)

// Rect is a placement on the page in millimetres
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DocumentRect is where the barcode image lands on the PDF page
var DocumentRect = Rect{X: 10, Y: 10, Width: 180, Height: 60}

const (
	pngFilename = "barcode.png"
	pdfFilename = "barcode.pdf"
	imageName   = "barcode"
)

// Artifact is an exported file held in memory
type Artifact struct {
	Kind      Kind   `json:"kind"`
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	Data      []byte `json:"-"`
	Rect      *Rect  `json:"rect,omitempty"`
}

// Pipeline builds artifacts from rasters. The clock stamps PDF creation and
// modification dates.
type Pipeline struct {
	now func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithClock overrides the time source used for document dates
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline creates an export pipeline
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Export produces a single artifact of the requested kind
func (p *Pipeline) Export(img *image.Gray, kind Kind) (*Artifact, error) {
	if kind != KindRasterImage && kind != KindDocument {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	pngArtifact, err := p.rasterImage(img)
	if err != nil {
		return nil, err
	}
	if kind == KindRasterImage {
		return pngArtifact, nil
	}
	return p.document(pngArtifact.Data)
}

// ExportAll produces both artifacts from one PNG encoding, so the image inside
// the PDF is byte-for-byte the standalone PNG's pixel stream
func (p *Pipeline) ExportAll(img *image.Gray) (*Artifact, *Artifact, error) {
	pngArtifact, err := p.rasterImage(img)
	if err != nil {
		return nil, nil, err
	}
	pdfArtifact, err := p.document(pngArtifact.Data)
	if err != nil {
		return nil, nil, err
	}
	return pngArtifact, pdfArtifact, nil
}

func (p *Pipeline) rasterImage(img *image.Gray) (*Artifact, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrRendererNotReady
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return &Artifact{
		Kind:      KindRasterImage,
		Filename:  pngFilename,
		MediaType: "image/png",
		Data:      buf.Bytes(),
	}, nil
}

func (p *Pipeline) document(pngData []byte) (*Artifact, error) {
	stamp := p.now()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(false)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(pngData))
	r := DocumentRect
	pdf.ImageOptions(imageName, r.X, r.Y, r.Width, r.Height, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	rect := r
	return &Artifact{
		Kind:      KindDocument,
		Filename:  pdfFilename,
		MediaType: "application/pdf",
		Data:      buf.Bytes(),
		Rect:      &rect,
	}, nil
}
