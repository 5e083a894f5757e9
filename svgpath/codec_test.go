package svgpath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strokeorder/strokes"
)

// ============================================
// Decode
// ============================================

func TestDecodeSimple(t *testing.T) {
	points, err := Decode("M 10 20 L 30 40 L 50.5 -60")
	require.NoError(t, err)

	expected := []strokes.Point{
		{Command: strokes.MoveTo, X: 10, Y: 20},
		{Command: strokes.LineTo, X: 30, Y: 40},
		{Command: strokes.LineTo, X: 50.5, Y: -60},
	}
	assert.Equal(t, expected, points)
}

func TestDecodeCompactSyntax(t *testing.T) {
	points, err := Decode("M10,20L30,40")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 30.0, points[1].X)
}

func TestDecodeExponent(t *testing.T) {
	points, err := Decode("M 1e2 2E1 L 3.5e-1 4")
	require.NoError(t, err)
	assert.Equal(t, 100.0, points[0].X)
	assert.Equal(t, 20.0, points[0].Y)
	assert.Equal(t, 0.35, points[1].X)
}

func TestDecodeSkipsBadPairs(t *testing.T) {
	// La coppia "abc" e quella con tre numeri vengono saltate
	points, err := Decode("M 0 0 L 1 2 3 L x1 5 L 7 8")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, strokes.Point{Command: strokes.LineTo, X: 7, Y: 8}, points[1])
}

func TestDecodeDropsCurves(t *testing.T) {
	points, err := Decode("M 0 0 Q 10 10 20 20 C 1 2 3 4 5 6 L 30 30 Z")
	require.NoError(t, err)

	expected := []strokes.Point{
		{Command: strokes.MoveTo, X: 0, Y: 0},
		{Command: strokes.LineTo, X: 30, Y: 30},
	}
	assert.Equal(t, expected, points)
}

func TestDecodeFirstKeptPointIsMoveTo(t *testing.T) {
	// Il MoveTo iniziale non è valido: il primo punto tenuto diventa MoveTo
	points, err := Decode("M a b L 1 1 L 2 2")
	require.NoError(t, err)
	assert.Equal(t, strokes.MoveTo, points[0].Command)
	assert.Equal(t, 1.0, points[0].X)
}

func TestDecodeUndecodable(t *testing.T) {
	for _, path := range []string{"", "M 1 1", "Q 1 2 3 4", "hello", "M 1 L 2"} {
		_, err := Decode(path)
		assert.ErrorIs(t, err, strokes.ErrUndecodableStroke, "path %q", path)
	}
}

// ============================================
// Encode
// ============================================

func TestEncode(t *testing.T) {
	points := []strokes.Point{
		{Command: strokes.MoveTo, X: 10, Y: 20},
		{Command: strokes.LineTo, X: 30.25, Y: -4},
	}
	assert.Equal(t, "M 10 20 L 30.25 -4", Encode(points))
}

func TestEncodeIgnoresCommandsOfInput(t *testing.T) {
	// Il primo punto è sempre M, gli altri sempre L
	points := []strokes.Point{
		{Command: strokes.LineTo, X: 1, Y: 1},
		{Command: strokes.MoveTo, X: 2, Y: 2},
	}
	assert.Equal(t, "M 1 1 L 2 2", Encode(points))
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 500; iter++ {
		n := 2 + rng.Intn(10)
		coords := make([][2]float64, n)
		for i := range coords {
			coords[i] = [2]float64{randomCoord(rng), randomCoord(rng)}
		}
		stroke := strokes.StrokeFromPoints(0, coords)

		decoded, err := Decode(Encode(stroke.Points))
		require.NoError(t, err)
		require.Equal(t, stroke.Points, decoded)
	}
}

func randomCoord(rng *rand.Rand) float64 {
	switch rng.Intn(3) {
	case 0:
		return float64(rng.Intn(1024))
	case 1:
		return math.Round(rng.Float64()*1024*100) / 100
	default:
		return (rng.Float64() - 0.5) * 1e6
	}
}

// ============================================
// DecodeStrokes
// ============================================

func TestDecodeStrokes(t *testing.T) {
	list, err := DecodeStrokes([]string{"M 0 0 L 10 0", "M 5 -5 L 5 5"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 0, list[0].Index)
	assert.Equal(t, 1, list[1].Index)
	require.NoError(t, strokes.Validate(list))
}

func TestDecodeStrokesFailsOnAnyBadPath(t *testing.T) {
	_, err := DecodeStrokes([]string{"M 0 0 L 10 0", "Q 1 2 3 4"})
	assert.ErrorIs(t, err, strokes.ErrMalformedStrokeData)
	assert.ErrorIs(t, err, strokes.ErrUndecodableStroke)

	_, err = DecodeStrokes(nil)
	assert.ErrorIs(t, err, strokes.ErrMalformedStrokeData)
}
