package render

import (
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"strokeorder/animator"
	"strokeorder/strokes"
)

var (
	white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black = color.RGBA{A: 0xff}
	red   = color.RGBA{R: 0xb0, B: 0x20, A: 0xff}
	blue  = color.RGBA{R: 0x15, G: 0x65, B: 0xc0, A: 0xff}
)

// Go Mono viene usato per le etichette, non contiene glifi CJK
var monoFont = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(gomono.TTF)
})

// PNG rasterizza lo stesso frame di SVG
func PNG(w io.Writer, set *strokes.CharacterStrokeSet, frame animator.Frame, opts Options) error {
	o := opts.normalized()
	vp := newViewport(o)

	dc := newCanvas(o)
	if o.ShowGrid {
		drawGrid(dc, o, vp)
	}
	if o.ShowCharacterBackground && o.FontPath != "" {
		if err := drawGlyph(dc, set.Character(), o, vp, mustColor(o.OutlineColor, white)); err != nil {
			return err
		}
	}

	all := set.Strokes()
	if o.ShowOutline {
		outline := mustColor(o.OutlineColor, white)
		for _, stroke := range all {
			drawStroke(dc, stroke, outline, o.StrokeWidth, vp)
		}
	}

	strokeColor := mustColor(o.StrokeColor, black)
	revealed := clampRevealed(frame.Revealed, len(all))
	for _, stroke := range all[:revealed] {
		drawStroke(dc, stroke, strokeColor, o.StrokeWidth, vp)
	}
	if revealed < len(all) && frame.Partial > 0 {
		drawStroke(dc, all[revealed].Truncate(frame.Partial), strokeColor, o.StrokeWidth, vp)
	}

	return dc.EncodePNG(w)
}

// FallbackPNG disegna il glifo con il font CJK configurato, altrimenti un
// riquadro barrato, più l'indicatore e l'etichetta di retry.
func FallbackPNG(w io.Writer, character string, opts Options) error {
	o := opts.normalized()
	vp := newViewport(o)

	dc := newCanvas(o)
	if o.ShowGrid {
		drawGrid(dc, o, vp)
	}

	glyphDrawn := false
	if o.FontPath != "" {
		if err := drawGlyph(dc, character, o, vp, mustColor(o.StrokeColor, black)); err == nil {
			glyphDrawn = true
		}
	}
	if !glyphDrawn {
		drawPlaceholder(dc, vp)
	}

	labelSize := float64(o.Height) / 18
	if labelSize < 10 {
		labelSize = 10
	}
	face, err := monoFace(labelSize)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)

	dc.SetColor(red)
	dc.DrawStringAnchored(UnavailableText, float64(o.Width)/2, float64(o.Height)-labelSize*2.2, 0.5, 0.5)
	dc.SetColor(blue)
	dc.DrawStringAnchored(RetryLabel, float64(o.Width)/2, float64(o.Height)-labelSize*0.8, 0.5, 0.5)

	return dc.EncodePNG(w)
}

func newCanvas(o Options) *gg.Context {
	dc := gg.NewContext(o.Width, o.Height)
	dc.SetColor(white)
	dc.Clear()
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	return dc
}

func drawGrid(dc *gg.Context, o Options, vp viewport) {
	x0, y0 := vp.offsetX, vp.offsetY
	x1, y1 := x0+vp.side, y0+vp.side
	cx, cy := vp.centerX(), vp.centerY()

	dc.SetColor(mustColor(o.GridColor, black))
	dc.SetLineWidth(1)
	dc.DrawRectangle(x0, y0, vp.side, vp.side)
	dc.Stroke()

	dc.SetDash(4, 4)
	for _, l := range [][4]float64{
		{x0, cy, x1, cy},
		{cx, y0, cx, y1},
		{x0, y0, x1, y1},
		{x1, y0, x0, y1},
	} {
		dc.DrawLine(l[0], l[1], l[2], l[3])
		dc.Stroke()
	}
	dc.SetDash()
}

func drawStroke(dc *gg.Context, stroke strokes.Stroke, c color.Color, width float64, vp viewport) {
	if len(stroke.Points) < 2 {
		return
	}

	dc.SetColor(c)
	dc.SetLineWidth(width)
	for _, p := range stroke.Points {
		x, y := vp.point(p.X, p.Y)
		if p.Command == strokes.MoveTo {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()
}

func drawGlyph(dc *gg.Context, character string, o Options, vp viewport, c color.Color) error {
	face, err := gg.LoadFontFace(o.FontPath, glyphSize(o, vp))
	if err != nil {
		return fmt.Errorf("errore caricamento font %s: %w", o.FontPath, err)
	}
	dc.SetFontFace(face)
	dc.SetColor(c)
	dc.DrawStringAnchored(character, vp.centerX(), vp.centerY(), 0.5, 0.5)
	return nil
}

// drawPlaceholder riquadro barrato al posto del glifo
func drawPlaceholder(dc *gg.Context, vp viewport) {
	inset := vp.side * 0.2
	x0, y0 := vp.offsetX+inset, vp.offsetY+inset
	side := vp.side - 2*inset

	dc.SetColor(black)
	dc.SetLineWidth(2)
	dc.DrawRectangle(x0, y0, side, side)
	dc.Stroke()
	dc.DrawLine(x0, y0, x0+side, y0+side)
	dc.Stroke()
	dc.DrawLine(x0+side, y0, x0, y0+side)
	dc.Stroke()
}

func monoFace(size float64) (font.Face, error) {
	f, err := monoFont()
	if err != nil {
		return nil, fmt.Errorf("errore parsing font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}
