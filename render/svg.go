package render

import (
	"fmt"
	"html"
	"math"
	"strings"

	"strokeorder/animator"
	"strokeorder/strokes"
	"strokeorder/svgpath"
)

// SVG disegna il frame corrente dell'animazione.
// Ordine dei livelli: griglia, glifo di sfondo, contorno, tratti rivelati, tratto parziale.
func SVG(set *strokes.CharacterStrokeSet, frame animator.Frame, opts Options) string {
	o := opts.normalized()
	vp := newViewport(o)

	var sb strings.Builder
	openSVG(&sb, o, "character")

	if o.ShowGrid {
		writeGrid(&sb, o, vp)
	}
	if o.ShowCharacterBackground {
		writeGlyph(&sb, set.Character(), "character-background", o.OutlineColor, vp, glyphSize(o, vp))
	}

	all := set.Strokes()
	if o.ShowOutline {
		sb.WriteString(`<g class="outline">`)
		for _, stroke := range all {
			writeStroke(&sb, stroke, "outline-stroke", o.OutlineColor, o.StrokeWidth, vp)
		}
		sb.WriteString(`</g>`)
	}

	revealed := clampRevealed(frame.Revealed, len(all))
	sb.WriteString(`<g class="strokes">`)
	for _, stroke := range all[:revealed] {
		writeStroke(&sb, stroke, "stroke", o.StrokeColor, o.StrokeWidth, vp)
	}
	if revealed < len(all) && frame.Partial > 0 {
		partial := all[revealed].Truncate(frame.Partial)
		writeStroke(&sb, partial, "stroke partial", o.StrokeColor, o.StrokeWidth, vp)
	}
	sb.WriteString(`</g>`)

	sb.WriteString(`</svg>`)
	return sb.String()
}

// SVGStep disegna i tratti 0..step-1 completi; step <= 0 o oltre il totale li mostra tutti
func SVGStep(set *strokes.CharacterStrokeSet, step int, opts Options) string {
	if step <= 0 || step > set.Len() {
		step = set.Len()
	}
	return SVG(set, animator.Frame{Revealed: step}, opts)
}

func openSVG(sb *strings.Builder, o Options, class string) {
	fmt.Fprintf(sb, `<svg xmlns="http://www.w3.org/2000/svg" class="%s" width="%d" height="%d" viewBox="0 0 %d %d">`,
		class, o.Width, o.Height, o.Width, o.Height)
}

// writeGrid disegna il 米字格: bordo, croce centrale e diagonali tratteggiate
func writeGrid(sb *strings.Builder, o Options, vp viewport) {
	x0, y0 := vp.offsetX, vp.offsetY
	x1, y1 := x0+vp.side, y0+vp.side
	cx, cy := vp.centerX(), vp.centerY()

	fmt.Fprintf(sb, `<g class="grid" stroke="%s" stroke-width="1" fill="none">`, o.GridColor)
	fmt.Fprintf(sb, `<rect x="%s" y="%s" width="%s" height="%s"/>`, num(x0), num(y0), num(vp.side), num(vp.side))
	writeLine(sb, x0, cy, x1, cy, true)
	writeLine(sb, cx, y0, cx, y1, true)
	writeLine(sb, x0, y0, x1, y1, true)
	writeLine(sb, x1, y0, x0, y1, true)
	sb.WriteString(`</g>`)
}

func writeLine(sb *strings.Builder, x1, y1, x2, y2 float64, dashed bool) {
	dash := ""
	if dashed {
		dash = ` stroke-dasharray="4 4"`
	}
	fmt.Fprintf(sb, `<line x1="%s" y1="%s" x2="%s" y2="%s"%s/>`, num(x1), num(y1), num(x2), num(y2), dash)
}

func writeGlyph(sb *strings.Builder, character, class, fill string, vp viewport, size float64) {
	fmt.Fprintf(sb, `<text class="%s" x="%s" y="%s" font-size="%s" fill="%s" text-anchor="middle" dominant-baseline="central">%s</text>`,
		class, num(vp.centerX()), num(vp.centerY()), num(size), fill, html.EscapeString(character))
}

func writeStroke(sb *strings.Builder, stroke strokes.Stroke, class, color string, width float64, vp viewport) {
	points := make([]strokes.Point, len(stroke.Points))
	for i, p := range stroke.Points {
		x, y := vp.point(p.X, p.Y)
		points[i] = strokes.Point{Command: p.Command, X: round2(x), Y: round2(y)}
	}

	fmt.Fprintf(sb, `<path class="%s" data-index="%d" d="%s" stroke="%s" stroke-width="%s" stroke-linecap="round" stroke-linejoin="round" fill="none"/>`,
		class, stroke.Index, svgpath.Encode(points), color, num(width))
}

func glyphSize(o Options, vp viewport) float64 {
	if o.GlyphSize > 0 {
		return o.GlyphSize
	}
	return vp.side * 0.7
}

func clampRevealed(n, total int) int {
	if n < 0 {
		return 0
	}
	if n > total {
		return total
	}
	return n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func num(v float64) string {
	return fmt.Sprintf("%g", round2(v))
}
