package strokes

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Command rappresenta il comando di un punto del tratto
type Command int

const (
	MoveTo Command = iota // Inizio del tratto
	LineTo                // Segmento fino al punto
)

// String restituisce la lettera SVG del comando
func (c Command) String() string {
	switch c {
	case MoveTo:
		return "M"
	case LineTo:
		return "L"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// MarshalText serializza il comando come lettera SVG
func (c Command) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText legge il comando da una lettera SVG
func (c *Command) UnmarshalText(text []byte) error {
	switch string(text) {
	case "M":
		*c = MoveTo
	case "L":
		*c = LineTo
	default:
		return fmt.Errorf("comando sconosciuto %q", string(text))
	}
	return nil
}

// Point rappresenta un singolo punto di un tratto
type Point struct {
	Command Command `json:"command"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// Stroke rappresenta un tratto: una polilinea aperta con il suo ordine di disegno
type Stroke struct {
	Index  int     `json:"index"`
	Points []Point `json:"points"`
}

// Source indica da quale sorgente arrivano i dati dei tratti
type Source int

const (
	SourceLibrary Source = iota
	SourceLocal
	SourceRemote
	SourceFallback
)

var sourceNames = map[Source]string{
	SourceLibrary:  "library",
	SourceLocal:    "local",
	SourceRemote:   "remote",
	SourceFallback: "fallback",
}

// String restituisce il nome della sorgente
func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// MarshalText serializza la sorgente per JSON e YAML
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText legge la sorgente dal suo nome
func (s *Source) UnmarshalText(text []byte) error {
	parsed, err := ParseSource(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSource converte un nome (case-insensitive) nella sorgente corrispondente
func ParseSource(name string) (Source, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for source, sourceName := range sourceNames {
		if sourceName == name {
			return source, nil
		}
	}
	return 0, fmt.Errorf("sorgente sconosciuta %q", name)
}

// CharacterStrokeSet contiene i tratti risolti di un carattere.
// Viene costruito una volta per richiesta e non viene mai modificato.
type CharacterStrokeSet struct {
	character string
	strokes   []Stroke
	source    Source
}

// NewCharacterStrokeSet valida i tratti e crea un set immutabile.
// I tratti vengono copiati, il chiamante può riusare lo slice.
func NewCharacterStrokeSet(character string, strokes []Stroke, source Source) (*CharacterStrokeSet, error) {
	if utf8.RuneCountInString(character) != 1 {
		return nil, fmt.Errorf("%w: %q non è un singolo carattere", ErrMalformedStrokeData, character)
	}
	if err := Validate(strokes); err != nil {
		return nil, err
	}

	return &CharacterStrokeSet{
		character: character,
		strokes:   copyStrokes(strokes),
		source:    source,
	}, nil
}

// Character restituisce il carattere
func (cs *CharacterStrokeSet) Character() string {
	return cs.character
}

// Source restituisce la sorgente che ha prodotto i dati
func (cs *CharacterStrokeSet) Source() Source {
	return cs.source
}

// Len restituisce il numero di tratti
func (cs *CharacterStrokeSet) Len() int {
	return len(cs.strokes)
}

// Stroke restituisce una copia del tratto i-esimo
func (cs *CharacterStrokeSet) Stroke(i int) (Stroke, error) {
	if i < 0 || i >= len(cs.strokes) {
		return Stroke{}, fmt.Errorf("%w: %d (tratti: %d)", ErrIndexOutOfRange, i, len(cs.strokes))
	}
	return copyStroke(cs.strokes[i]), nil
}

// Strokes restituisce una copia di tutti i tratti in ordine di disegno
func (cs *CharacterStrokeSet) Strokes() []Stroke {
	return copyStrokes(cs.strokes)
}

// Validate verifica che i tratti rispettino il modello:
// almeno due punti, primo punto MoveTo, gli altri LineTo,
// indici contigui a partire da 0 nell'ordine della lista.
func Validate(strokes []Stroke) error {
	if len(strokes) == 0 {
		return fmt.Errorf("%w: nessun tratto", ErrMalformedStrokeData)
	}

	for i, stroke := range strokes {
		if stroke.Index != i {
			return fmt.Errorf("%w: tratto in posizione %d ha indice %d", ErrMalformedStrokeData, i, stroke.Index)
		}
		if len(stroke.Points) < 2 {
			return fmt.Errorf("%w: tratto %d ha %d punti", ErrMalformedStrokeData, i, len(stroke.Points))
		}
		for j, point := range stroke.Points {
			expected := LineTo
			if j == 0 {
				expected = MoveTo
			}
			if point.Command != expected {
				return fmt.Errorf("%w: tratto %d punto %d ha comando %s, atteso %s",
					ErrMalformedStrokeData, i, j, point.Command, expected)
			}
		}
	}

	return nil
}

func copyStroke(s Stroke) Stroke {
	points := make([]Point, len(s.Points))
	copy(points, s.Points)
	return Stroke{Index: s.Index, Points: points}
}

func copyStrokes(src []Stroke) []Stroke {
	out := make([]Stroke, len(src))
	for i, s := range src {
		out[i] = copyStroke(s)
	}
	return out
}
