package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"strokeorder/animator"
	"strokeorder/render"
	"strokeorder/resolver"
	"strokeorder/sources"
	"strokeorder/strokes"
	"strokeorder/svgpath"
)

// sourceHeader riporta la sorgente che ha fornito i tratti
const sourceHeader = "X-Stroke-Source"

// CharacterResponse è la risposta di GET /api/characters/:character
type CharacterResponse struct {
	Character   string                  `json:"character"`
	StrokeOrder sources.StrokeOrderJSON `json:"stroke_order_json"`
	Radical     string                  `json:"radical,omitempty"`
	Pinyin      []string                `json:"pinyin,omitempty"`
}

// ResolveResponse è la risposta di GET /api/resolve/:character
type ResolveResponse struct {
	RequestID string             `json:"request_id,omitempty"`
	Character string             `json:"character"`
	Source    string             `json:"source"`
	Strokes   []string           `json:"strokes,omitempty"`
	Attempts  []resolver.Attempt `json:"attempts"`
	Error     string             `json:"error,omitempty"`
}

// getCharacter restituisce i tratti del dataset locale nel formato del backend
func (s *Server) getCharacter(c *gin.Context) {
	character := c.Param("character")

	entry, ok := s.table.Lookup(character)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Carattere non trovato"})
		return
	}

	c.JSON(http.StatusOK, CharacterResponse{
		Character: character,
		StrokeOrder: sources.StrokeOrderJSON{
			Strokes: entry.Strokes,
			Medians: entry.Medians,
		},
		Radical: entry.Radical,
		Pinyin:  entry.Pinyin,
	})
}

// resolveCharacter esegue la cascata e riporta tutti i tentativi
func (s *Server) resolveCharacter(c *gin.Context) {
	character := c.Param("character")

	res, err := s.resolver.ResolveDetailed(c.Request.Context(), character)
	if err != nil {
		var exhausted *resolver.ExhaustedError
		if errors.As(err, &exhausted) {
			c.JSON(http.StatusNotFound, ResolveResponse{
				Character: character,
				Source:    strokes.SourceFallback.String(),
				Attempts:  exhausted.Attempts,
				Error:     err.Error(),
			})
			return
		}
		s.resolveError(c, character, err)
		return
	}

	paths := make([]string, 0, res.Set.Len())
	for _, stroke := range res.Set.Strokes() {
		paths = append(paths, svgpath.EncodeStroke(stroke))
	}

	attempts := res.Attempts
	if attempts == nil {
		attempts = []resolver.Attempt{}
	}
	c.JSON(http.StatusOK, ResolveResponse{
		RequestID: res.RequestID,
		Character: character,
		Source:    res.Set.Source().String(),
		Strokes:   paths,
		Attempts:  attempts,
	})
}

// renderCharacter disegna il carattere come SVG o PNG.
// Query: format=svg|png, step=N (0 = tutti i tratti).
// Se nessuna sorgente ha i tratti si restituisce il glifo di fallback.
func (s *Server) renderCharacter(c *gin.Context) {
	character := c.Param("character")
	format := c.DefaultQuery("format", "svg")
	if format != "svg" && format != "png" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formato non supportato: " + format})
		return
	}

	step := 0
	if raw := c.Query("step"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Parametro step non valido"})
			return
		}
		step = n
	}

	set, ok := s.resolve(c, character)
	if !ok {
		return
	}

	if set == nil {
		c.Header(sourceHeader, strokes.SourceFallback.String())
		if format == "png" {
			s.writePNG(c, func(buf *bytes.Buffer) error {
				return render.FallbackPNG(buf, character, s.renderOpts)
			})
			return
		}
		view := render.Fallback(character, "tratti non disponibili", s.renderOpts)
		c.Data(http.StatusOK, "image/svg+xml; charset=utf-8", []byte(view.SVG))
		return
	}

	c.Header(sourceHeader, set.Source().String())
	if format == "png" {
		s.writePNG(c, func(buf *bytes.Buffer) error {
			return render.PNG(buf, set, stepFrame(set, step), s.renderOpts)
		})
		return
	}
	c.Data(http.StatusOK, "image/svg+xml; charset=utf-8", []byte(render.SVGStep(set, step, s.renderOpts)))
}

// worksheet genera la scheda PDF di esercizio
func (s *Server) worksheet(c *gin.Context) {
	character := c.Param("character")

	set, ok := s.resolve(c, character)
	if !ok {
		return
	}
	if set == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ordine dei tratti non disponibile per " + character})
		return
	}

	var buf bytes.Buffer
	if err := render.Worksheet(&buf, set, s.renderOpts); err != nil {
		s.logger.Error("❌ Errore generazione scheda", zap.String("character", character), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header(sourceHeader, set.Source().String())
	c.Header("Content-Disposition", `inline; filename="worksheet.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// resolve esegue la cascata. Restituisce (nil, true) quando il carattere va in
// fallback; ok=false indica che la risposta d'errore è già stata scritta.
func (s *Server) resolve(c *gin.Context, character string) (*strokes.CharacterStrokeSet, bool) {
	set, err := s.resolver.Resolve(c.Request.Context(), character)
	switch {
	case err == nil:
		return set, true
	case errors.Is(err, strokes.ErrNoStrokeDataAvailable), errors.Is(err, strokes.ErrCharacterNotFound):
		s.logger.Debug("Fallback al glifo", zap.String("character", character), zap.Error(err))
		return nil, true
	default:
		s.resolveError(c, character, err)
		return nil, false
	}
}

func (s *Server) resolveError(c *gin.Context, character string, err error) {
	if errors.Is(err, context.Canceled) {
		c.Status(499)
		return
	}
	s.logger.Warn("Risoluzione fallita", zap.String("character", character), zap.Error(err))
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
}

func (s *Server) writePNG(c *gin.Context, draw func(buf *bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		s.logger.Error("❌ Errore rendering PNG", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// stepFrame converte lo step statico nel frame equivalente
func stepFrame(set *strokes.CharacterStrokeSet, step int) animator.Frame {
	if step <= 0 || step > set.Len() {
		return animator.Frame{Revealed: set.Len()}
	}
	return animator.Frame{Revealed: step}
}
