// Package svgpath converte i path SVG minimali (solo M e L assoluti)
// in liste di punti e viceversa.
//
// I comandi curvi (C, Q, A, ...) e quelli relativi non sono supportati:
// vengono scartati insieme ai loro argomenti.
package svgpath

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"strokeorder/strokes"
)

// token rappresenta un comando con i suoi argomenti grezzi
type token struct {
	command byte
	args    string
}

// Decode converte un path SVG in una lista di punti.
// Ogni token M/L deve avere esattamente due numeri; le coppie non
// interpretabili vengono saltate. Se restano meno di due punti
// restituisce ErrUndecodableStroke.
func Decode(path string) ([]strokes.Point, error) {
	points := []strokes.Point{}

	for _, tok := range tokenize(path) {
		if tok.command != 'M' && tok.command != 'L' {
			continue
		}

		x, y, ok := parsePair(tok.args)
		if !ok {
			continue
		}

		cmd := strokes.LineTo
		if len(points) == 0 {
			cmd = strokes.MoveTo
		}
		points = append(points, strokes.Point{Command: cmd, X: x, Y: y})
	}

	if len(points) < 2 {
		return nil, fmt.Errorf("%w: %d punti da %q", strokes.ErrUndecodableStroke, len(points), path)
	}

	return points, nil
}

// Encode serializza i punti: il primo con M, gli altri con L, separati da spazi
func Encode(points []strokes.Point) string {
	var b strings.Builder

	for i, p := range points {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString("L ")
		} else {
			b.WriteString("M ")
		}
		b.WriteString(formatNumber(p.X))
		b.WriteByte(' ')
		b.WriteString(formatNumber(p.Y))
	}

	return b.String()
}

// EncodeStroke serializza un tratto completo
func EncodeStroke(s strokes.Stroke) string {
	return Encode(s.Points)
}

// DecodeStrokes decodifica una lista di path assegnando gli indici 0..n-1.
// Un solo path non decodificabile invalida tutta la lista.
func DecodeStrokes(paths []string) ([]strokes.Stroke, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: lista di path vuota", strokes.ErrMalformedStrokeData)
	}

	result := make([]strokes.Stroke, 0, len(paths))
	for i, path := range paths {
		points, err := Decode(path)
		if err != nil {
			return nil, fmt.Errorf("%w: tratto %d: %w", strokes.ErrMalformedStrokeData, i, err)
		}
		result = append(result, strokes.Stroke{Index: i, Points: points})
	}

	return result, nil
}

// tokenize divide il path sulle lettere di comando.
// Una 'e' o 'E' subito dopo una cifra è l'esponente di un numero.
func tokenize(path string) []token {
	tokens := []token{}
	var current *token
	var args strings.Builder
	var prev rune

	flush := func() {
		if current != nil {
			current.args = args.String()
			tokens = append(tokens, *current)
		}
		args.Reset()
	}

	for _, r := range path {
		isExponent := (r == 'e' || r == 'E') && (unicode.IsDigit(prev) || prev == '.')
		if r < unicode.MaxASCII && unicode.IsLetter(r) && !isExponent {
			flush()
			current = &token{command: byte(r)}
		} else if current != nil {
			args.WriteRune(r)
		}
		prev = r
	}
	flush()

	return tokens
}

// parsePair legge esattamente due numeri separati da spazi o virgole
func parsePair(args string) (float64, float64, bool) {
	fields := strings.FieldsFunc(args, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	if len(fields) != 2 {
		return 0, 0, false
	}

	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, false
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, false
	}

	return x, y, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
