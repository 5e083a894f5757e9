package strokes

import "math"

// StrokeFromPoints costruisce un tratto da coppie di coordinate.
// Il primo punto diventa MoveTo, gli altri LineTo.
func StrokeFromPoints(index int, coords [][2]float64) Stroke {
	points := make([]Point, len(coords))
	for i, c := range coords {
		cmd := LineTo
		if i == 0 {
			cmd = MoveTo
		}
		points[i] = Point{Command: cmd, X: c[0], Y: c[1]}
	}
	return Stroke{Index: index, Points: points}
}

// Length restituisce la lunghezza della polilinea
func (s Stroke) Length() float64 {
	total := 0.0
	for i := 1; i < len(s.Points); i++ {
		total += distance(s.Points[i-1], s.Points[i])
	}
	return total
}

// Truncate restituisce la parte iniziale del tratto che copre la frazione
// indicata della lunghezza. Frazioni <= 0 danno un tratto vuoto,
// frazioni >= 1 il tratto completo.
func (s Stroke) Truncate(fraction float64) Stroke {
	if fraction <= 0 || len(s.Points) == 0 {
		return Stroke{Index: s.Index}
	}
	if fraction >= 1 {
		return copyStroke(s)
	}

	target := s.Length() * fraction
	out := Stroke{Index: s.Index, Points: []Point{s.Points[0]}}
	walked := 0.0

	for i := 1; i < len(s.Points); i++ {
		prev, next := s.Points[i-1], s.Points[i]
		segment := distance(prev, next)

		if walked+segment >= target {
			t := 0.0
			if segment > 0 {
				t = (target - walked) / segment
			}
			out.Points = append(out.Points, Point{
				Command: LineTo,
				X:       prev.X + (next.X-prev.X)*t,
				Y:       prev.Y + (next.Y-prev.Y)*t,
			})
			return out
		}

		walked += segment
		out.Points = append(out.Points, next)
	}

	return out
}

// Bounds restituisce il rettangolo che contiene tutti i punti del set
func (cs *CharacterStrokeSet) Bounds() (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, stroke := range cs.strokes {
		for _, p := range stroke.Points {
			minX = math.Min(minX, p.X)
			minY = math.Min(minY, p.Y)
			maxX = math.Max(maxX, p.X)
			maxY = math.Max(maxY, p.Y)
		}
	}
	return minX, minY, maxX, maxY
}

func distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
