package render

import (
	"fmt"
	"html"
	"strings"
)

// Testi mostrati nella vista degradata
const (
	UnavailableText = "Ordine dei tratti non disponibile"
	RetryLabel      = "Riprova"
)

// FallbackView è lo stato terminale quando nessuna sorgente ha restituito i tratti:
// il glifo statico, il motivo e l'invito a riprovare. Non riprova da sola.
type FallbackView struct {
	Character   string `json:"character"`
	Reason      string `json:"reason"`
	Unavailable bool   `json:"unavailable"`
	RetryLabel  string `json:"retry_label"`
	SVG         string `json:"svg"`
}

// Fallback disegna il glifo come testo con l'indicatore "non disponibile"
// e l'elemento di retry.
func Fallback(character, reason string, opts Options) FallbackView {
	o := opts.normalized()
	vp := newViewport(o)

	var sb strings.Builder
	openSVG(&sb, o, "character fallback")

	if o.ShowGrid {
		writeGrid(&sb, o, vp)
	}
	writeGlyph(&sb, character, "character-glyph", o.StrokeColor, vp, glyphSize(o, vp))

	labelSize := float64(o.Height) / 18
	if labelSize < 10 {
		labelSize = 10
	}
	fmt.Fprintf(&sb, `<text class="stroke-unavailable" x="%s" y="%s" font-size="%s" fill="#b00020" text-anchor="middle">%s</text>`,
		num(float64(o.Width)/2), num(float64(o.Height)-labelSize*2.2), num(labelSize), html.EscapeString(UnavailableText))

	if reason != "" {
		fmt.Fprintf(&sb, `<title>%s</title>`, html.EscapeString(reason))
	}

	fmt.Fprintf(&sb, `<g class="retry" role="button" tabindex="0"><text x="%s" y="%s" font-size="%s" fill="#1565c0" text-anchor="middle" text-decoration="underline">%s</text></g>`,
		num(float64(o.Width)/2), num(float64(o.Height)-labelSize*0.8), num(labelSize), html.EscapeString(RetryLabel))

	sb.WriteString(`</svg>`)

	return FallbackView{
		Character:   character,
		Reason:      reason,
		Unavailable: true,
		RetryLabel:  RetryLabel,
		SVG:         sb.String(),
	}
}
