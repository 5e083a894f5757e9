// Package config carica la configurazione del servizio da YAML,
// con override da variabili d'ambiente.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"strokeorder/animator"
	"strokeorder/render"
	"strokeorder/sources"
)

// Config raccoglie tutta la configurazione
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Sources   SourcesConfig   `yaml:"sources"`
	Render    RenderConfig    `yaml:"render"`
	Animation AnimationConfig `yaml:"animation"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configura il server HTTP
type ServerConfig struct {
	Port        int      `yaml:"port" validate:"min=1,max=65535"`
	Debug       bool     `yaml:"debug"`
	CORSOrigins []string `yaml:"cors_origins" validate:"dive,required"`
}

// DataConfig indica i file del dataset locale
type DataConfig struct {
	Files []string `yaml:"files"`
	Watch bool     `yaml:"watch"` // Ricarica i file quando cambiano
}

// SourcesConfig configura la cascata delle sorgenti
type SourcesConfig struct {
	Order            []string `yaml:"order" validate:"dive,oneof=library local remote"`
	LibraryEnabled   bool     `yaml:"library_enabled"`
	LibraryURL       string   `yaml:"library_url" validate:"omitempty,url"`
	LibraryTimeoutMs int      `yaml:"library_timeout_ms" validate:"min=0"`
	RemoteURL        string   `yaml:"remote_url" validate:"omitempty,url"`
	RemoteTimeoutMs  int      `yaml:"remote_timeout_ms" validate:"min=0"`
}

// RenderConfig è la parte grafica della superficie di configurazione
type RenderConfig struct {
	Width                   int     `yaml:"width" validate:"min=0"`
	Height                  int     `yaml:"height" validate:"min=0"`
	Padding                 float64 `yaml:"padding" validate:"min=0"`
	StrokeColor             string  `yaml:"stroke_color" validate:"omitempty,hexcolor"`
	StrokeWidth             float64 `yaml:"stroke_width" validate:"min=0"`
	OutlineColor            string  `yaml:"outline_color" validate:"omitempty,hexcolor"`
	GridColor               string  `yaml:"grid_color" validate:"omitempty,hexcolor"`
	ShowGrid                bool    `yaml:"show_grid"`
	ShowOutline             bool    `yaml:"show_outline"`
	ShowCharacterBackground bool    `yaml:"show_character_background"`
	FontPath                string  `yaml:"font_path"`
}

// AnimationConfig è la parte temporale della superficie di configurazione
type AnimationConfig struct {
	AnimationSpeedMs      int     `yaml:"animation_speed_ms" validate:"min=0"` // Durata di un tratto (0 = derivata da speed)
	Speed                 float64 `yaml:"speed" validate:"min=0"`
	DelayBetweenStrokesMs int     `yaml:"delay_between_strokes_ms" validate:"min=0"`
	AutoStart             bool    `yaml:"auto_start"`
}

// LoggingConfig configura zap
type LoggingConfig struct {
	Level       string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Default restituisce la configurazione di default
func Default() *Config {
	def := render.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Data: DataConfig{
			Files: []string{"data/characters.yaml"},
			Watch: true,
		},
		Sources: SourcesConfig{
			Order:            append([]string(nil), sources.DefaultOrder...),
			LibraryEnabled:   true,
			LibraryURL:       sources.DefaultCDNURL,
			LibraryTimeoutMs: 5000,
			RemoteTimeoutMs:  5000,
		},
		Render: RenderConfig{
			Width:        def.Width,
			Height:       def.Height,
			Padding:      def.Padding,
			StrokeColor:  def.StrokeColor,
			StrokeWidth:  def.StrokeWidth,
			OutlineColor: def.OutlineColor,
			GridColor:    def.GridColor,
			ShowGrid:     def.ShowGrid,
			ShowOutline:  def.ShowOutline,
		},
		Animation: AnimationConfig{
			Speed:                 1,
			DelayBetweenStrokesMs: int(animator.DefaultDelay / time.Millisecond),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load legge la configurazione da un file YAML.
// Un file mancante non è un errore: si usano i default.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("errore lettura config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("errore parsing config: %w", err)
			}
			cfg.resolvePaths(filepath.Dir(path))
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save scrive la configurazione su file YAML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("errore creazione directory config: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("errore serializzazione config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("errore scrittura config: %w", err)
	}
	return nil
}

// resolvePaths rende i file del dataset relativi alla directory del config
func (c *Config) resolvePaths(dir string) {
	for i, f := range c.Data.Files {
		if f != "" && !filepath.IsAbs(f) {
			c.Data.Files[i] = filepath.Join(dir, f)
		}
	}
}

// applyEnvOverrides applica gli override da variabili d'ambiente
func (c *Config) applyEnvOverrides() error {
	if port := os.Getenv("STROKEORDER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("STROKEORDER_PORT non valida %q: %w", port, err)
		}
		c.Server.Port = p
	}
	if url := os.Getenv("STROKEORDER_REMOTE_URL"); url != "" {
		c.Sources.RemoteURL = url
	}
	if url := os.Getenv("STROKEORDER_LIBRARY_URL"); url != "" {
		c.Sources.LibraryURL = url
	}
	if files := os.Getenv("STROKEORDER_DATA"); files != "" {
		c.Data.Files = splitList(files)
	}
	return nil
}

// Validate controlla i vincoli dichiarati nei tag
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config non valida: %w", err)
	}
	return nil
}

// LibraryTimeout durata massima di probe e caricamento della libreria
func (c *Config) LibraryTimeout() time.Duration {
	return time.Duration(c.Sources.LibraryTimeoutMs) * time.Millisecond
}

// RemoteTimeout durata massima della richiesta al backend
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Sources.RemoteTimeoutMs) * time.Millisecond
}

// RenderOptions converte la configurazione grafica per il renderer
func (c *Config) RenderOptions() render.Options {
	r := c.Render
	return render.Options{
		Width:                   r.Width,
		Height:                  r.Height,
		Padding:                 r.Padding,
		DataSize:                render.DefaultDataSize,
		StrokeColor:             r.StrokeColor,
		StrokeWidth:             r.StrokeWidth,
		OutlineColor:            r.OutlineColor,
		GridColor:               r.GridColor,
		ShowGrid:                r.ShowGrid,
		ShowOutline:             r.ShowOutline,
		ShowCharacterBackground: r.ShowCharacterBackground,
		FontPath:                r.FontPath,
	}
}

// AnimatorOptions converte la configurazione temporale per il sequencer
func (c *Config) AnimatorOptions() animator.Options {
	a := c.Animation
	return animator.Options{
		StrokeDuration:      time.Duration(a.AnimationSpeedMs) * time.Millisecond,
		Speed:               a.Speed,
		DelayBetweenStrokes: time.Duration(a.DelayBetweenStrokesMs) * time.Millisecond,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, string(os.PathListSeparator)) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
