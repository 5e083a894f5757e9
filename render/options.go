// Package render disegna un CharacterStrokeSet (o il glifo di fallback)
// come SVG, PNG o foglio di esercizio PDF.
package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// DefaultDataSize è il lato del box in cui sono espresse le coordinate dei tratti
const DefaultDataSize = 1024

// Options descrive la superficie di disegno e lo stile
type Options struct {
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Padding float64 `json:"padding"`

	DataSize float64 `json:"data_size"` // Lato del box delle coordinate (default: 1024)

	StrokeColor  string  `json:"stroke_color"`
	StrokeWidth  float64 `json:"stroke_width"`
	OutlineColor string  `json:"outline_color"`
	GridColor    string  `json:"grid_color"`

	ShowGrid                bool `json:"show_grid"`
	ShowOutline             bool `json:"show_outline"`
	ShowCharacterBackground bool `json:"show_character_background"`

	FontPath  string  `json:"font_path"`  // TTF CJK opzionale per il glifo nei PNG
	GlyphSize float64 `json:"glyph_size"` // Dimensione del glifo di fallback (0 = 70% del lato)
}

// DefaultOptions restituisce le opzioni di default
func DefaultOptions() Options {
	return Options{
		Width:        300,
		Height:       300,
		Padding:      20,
		DataSize:     DefaultDataSize,
		StrokeColor:  "#333333",
		StrokeWidth:  4,
		OutlineColor: "#dddddd",
		GridColor:    "#e8c4c4",
		ShowGrid:     true,
		ShowOutline:  true,
	}
}

// normalized completa i campi lasciati a zero
func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Height <= 0 {
		o.Height = def.Height
	}
	if o.Padding < 0 {
		o.Padding = 0
	}
	if o.DataSize <= 0 {
		o.DataSize = def.DataSize
	}
	if o.StrokeColor == "" {
		o.StrokeColor = def.StrokeColor
	}
	if o.StrokeWidth <= 0 {
		o.StrokeWidth = def.StrokeWidth
	}
	if o.OutlineColor == "" {
		o.OutlineColor = def.OutlineColor
	}
	if o.GridColor == "" {
		o.GridColor = def.GridColor
	}
	return o
}

// viewport converte le coordinate dei dati in pixel del target,
// mantenendo le proporzioni e centrando il box.
type viewport struct {
	scale   float64
	offsetX float64
	offsetY float64
	side    float64
}

func newViewport(o Options) viewport {
	w := float64(o.Width) - 2*o.Padding
	h := float64(o.Height) - 2*o.Padding
	side := w
	if h < side {
		side = h
	}
	if side < 0 {
		side = 0
	}
	return viewport{
		scale:   side / o.DataSize,
		offsetX: (float64(o.Width) - side) / 2,
		offsetY: (float64(o.Height) - side) / 2,
		side:    side,
	}
}

func (v viewport) point(x, y float64) (float64, float64) {
	return v.offsetX + x*v.scale, v.offsetY + y*v.scale
}

func (v viewport) centerX() float64 { return v.offsetX + v.side/2 }
func (v viewport) centerY() float64 { return v.offsetY + v.side/2 }

// ParseHexColor legge un colore "#rgb" o "#rrggbb"
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("colore non valido: %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("colore non valido %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func mustColor(s string, fallback color.RGBA) color.RGBA {
	c, err := ParseHexColor(s)
	if err != nil {
		return fallback
	}
	return c
}
