package render

import (
	"fmt"
	"image/color"
	"io"

	"github.com/jung-kurt/gofpdf"

	"strokeorder/strokes"
)

// Geometria del foglio A4 in millimetri
const (
	sheetMargin  = 15.0
	sheetHeight  = 297.0
	sheetCell    = 30.0
	sheetColumns = 6
	tracingRows  = 2
)

// Worksheet scrive un foglio di esercizio PDF: una casella per ogni passo
// cumulativo (tratti 0..k, l'ultimo evidenziato) seguite da caselle vuote per ricalcare.
func Worksheet(w io.Writer, set *strokes.CharacterStrokeSet, opts Options) error {
	o := opts.normalized()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Ordine dei tratti "+set.Character(), true)
	pdf.SetAutoPageBreak(false, sheetMargin)
	pdf.AddPage()

	title := fmt.Sprintf("U+%04X  -  %d tratti", []rune(set.Character())[0], set.Len())
	if o.FontPath != "" {
		pdf.AddUTF8Font("cjk", "", o.FontPath)
		pdf.SetFont("cjk", "", 18)
		title = fmt.Sprintf("%s  -  %d tratti", set.Character(), set.Len())
	} else {
		pdf.SetFont("Helvetica", "B", 16)
	}
	pdf.Text(sheetMargin, sheetMargin+5, title)

	strokeColor := mustColor(o.StrokeColor, black)
	grid := mustColor(o.GridColor, black)
	all := set.Strokes()

	x, y := sheetMargin, sheetMargin+12
	cell := 0
	next := func() {
		cell++
		x += sheetCell
		if cell%sheetColumns == 0 {
			x = sheetMargin
			y += sheetCell
			if y+sheetCell > sheetHeight-sheetMargin {
				pdf.AddPage()
				y = sheetMargin
			}
		}
	}

	scale := sheetCell / o.DataSize
	for k := range all {
		drawCellGrid(pdf, x, y, grid)
		for i, stroke := range all[:k+1] {
			if i == k {
				pdf.SetDrawColor(int(red.R), int(red.G), int(red.B))
			} else {
				pdf.SetDrawColor(int(strokeColor.R), int(strokeColor.G), int(strokeColor.B))
			}
			pdf.SetLineWidth(0.8)
			for j := 1; j < len(stroke.Points); j++ {
				a, b := stroke.Points[j-1], stroke.Points[j]
				pdf.Line(x+a.X*scale, y+a.Y*scale, x+b.X*scale, y+b.Y*scale)
			}
		}
		next()
	}

	// Completa la riga corrente e aggiunge le righe per ricalcare
	for cell%sheetColumns != 0 {
		drawCellGrid(pdf, x, y, grid)
		next()
	}
	for i := 0; i < tracingRows*sheetColumns; i++ {
		drawCellGrid(pdf, x, y, grid)
		next()
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("errore generazione PDF: %w", err)
	}
	return pdf.Output(w)
}

func drawCellGrid(pdf *gofpdf.Fpdf, x, y float64, c color.Color) {
	r, g, b, _ := c.RGBA()
	pdf.SetDrawColor(int(r>>8), int(g>>8), int(b>>8))
	pdf.SetLineWidth(0.3)
	pdf.Rect(x, y, sheetCell, sheetCell, "D")

	pdf.SetDashPattern([]float64{1, 1}, 0)
	half := sheetCell / 2
	pdf.Line(x, y+half, x+sheetCell, y+half)
	pdf.Line(x+half, y, x+half, y+sheetCell)
	pdf.Line(x, y, x+sheetCell, y+sheetCell)
	pdf.Line(x+sheetCell, y, x, y+sheetCell)
	pdf.SetDashPattern([]float64{}, 0)
}
