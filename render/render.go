// Package render draws barcode symbols onto grayscale rasters.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ahmadzakiakmal/shiptrack/barcode"
)

var (
	ErrNoSymbol      = errors.New("no barcode symbol to render")
	ErrInvalidConfig = errors.New("invalid render configuration")
)

// captionGap separates the bars from the caption, in pixels
const captionGap = 2

// Config controls the raster geometry
type Config struct {
	ModuleWidthPx  int  `mapstructure:"module_width_px" json:"moduleWidthPx"`
	SymbolHeightPx int  `mapstructure:"symbol_height_px" json:"symbolHeightPx"`
	ShowCaption    bool `mapstructure:"show_caption" json:"showCaption"`
	MarginPx       int  `mapstructure:"margin_px" json:"marginPx"`
}

// DefaultConfig matches the label printer defaults: 2px modules, 40px bars,
// caption on, 10px margin
func DefaultConfig() Config {
	return Config{
		ModuleWidthPx:  2,
		SymbolHeightPx: 40,
		ShowCaption:    true,
		MarginPx:       10,
	}
}

// Validate rejects non-positive sizes and negative margins
func (c Config) Validate() error {
	if c.ModuleWidthPx < 1 {
		return fmt.Errorf("%w: module width %d", ErrInvalidConfig, c.ModuleWidthPx)
	}
	if c.SymbolHeightPx < 1 {
		return fmt.Errorf("%w: symbol height %d", ErrInvalidConfig, c.SymbolHeightPx)
	}
	if c.MarginPx < 0 {
		return fmt.Errorf("%w: margin %d", ErrInvalidConfig, c.MarginPx)
	}
	return nil
}

// Render draws sym: bars black on white, one module per ModuleWidthPx
// columns, with the text centred underneath when ShowCaption is set
func Render(sym *barcode.Symbol, cfg Config) (*image.Gray, error) {
	if sym == nil || len(sym.Runs) == 0 {
		return nil, ErrNoSymbol
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	face := basicfont.Face7x13
	caption := printable(sym.Text)
	barsWidth := sym.Modules() * cfg.ModuleWidthPx
	inner := barsWidth
	captionHeight := 0
	captionWidth := 0
	if cfg.ShowCaption {
		captionHeight = captionGap + face.Metrics().Height.Ceil()
		captionWidth = font.MeasureString(face, caption).Ceil()
		if captionWidth > inner {
			inner = captionWidth
		}
	}

	width := inner + 2*cfg.MarginPx
	height := cfg.SymbolHeightPx + captionHeight + 2*cfg.MarginPx
	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	top := cfg.MarginPx
	x := cfg.MarginPx + (inner-barsWidth)/2
	for _, run := range sym.Runs {
		w := run.Width * cfg.ModuleWidthPx
		if run.Bar {
			draw.Draw(img, image.Rect(x, top, x+w, top+cfg.SymbolHeightPx), image.Black, image.Point{}, draw.Src)
		}
		x += w
	}

	if cfg.ShowCaption {
		baseline := top + cfg.SymbolHeightPx + captionGap + face.Metrics().Ascent.Ceil()
		d := &font.Drawer{
			Dst:  img,
			Src:  image.Black,
			Face: face,
			Dot:  fixed.P(cfg.MarginPx+(inner-captionWidth)/2, baseline),
		}
		d.DrawString(caption)
	}
	return img, nil
}

// printable blanks control characters so the caption stays one line
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}
