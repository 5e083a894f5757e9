package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"strokeorder/animator"
	"strokeorder/render"
	"strokeorder/resolver"
	"strokeorder/strokedata"
	"strokeorder/strokes"
	"strokeorder/watcher"
)

// Version versione del servizio
const Version = "0.2.0"

// Resolver è la cascata delle sorgenti vista dal server
type Resolver interface {
	Resolve(ctx context.Context, character string) (*strokes.CharacterStrokeSet, error)
	ResolveDetailed(ctx context.Context, character string) (*resolver.Result, error)
}

// Server rappresenta il server API
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	table        *strokedata.Table
	resolver     Resolver
	renderOpts   render.Options
	animOpts     animator.Options
	autoStart    bool
	logger       *zap.Logger
	watcher      *watcher.FileWatcher
	watcherMutex sync.Mutex
	wsMutex      sync.Mutex
	wsClients    map[*session]bool
	wsUpgrader   websocket.Upgrader
}

// ServerConfig configurazione del server
type ServerConfig struct {
	Port        int
	Table       *strokedata.Table // Dataset servito da /api/characters
	Resolver    Resolver
	Render      render.Options
	Animation   animator.Options
	AutoStart   bool
	EnableCORS  bool
	CORSOrigins []string // Vuoto = tutte le origini
	Debug       bool
	Logger      *zap.Logger
}

// NewServer crea un nuovo server API
func NewServer(config ServerConfig) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	table := config.Table
	if table == nil {
		table = strokedata.NewTable()
	}
	// Senza sorgenti ogni carattere va in fallback
	var cascade Resolver = config.Resolver
	if cascade == nil {
		cascade = resolver.New(nil, logger)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	if config.EnableCORS {
		corsConfig := cors.Config{
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length", sourceHeader},
			MaxAge:        12 * time.Hour,
		}
		if len(config.CORSOrigins) == 0 {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = config.CORSOrigins
		}
		router.Use(cors.New(corsConfig))
	}

	server := &Server{
		router:     router,
		table:      table,
		resolver:   cascade,
		renderOpts: config.Render,
		animOpts:   config.Animation,
		autoStart:  config.AutoStart,
		logger:     logger,
		wsClients:  make(map[*session]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	server.setupRoutes()
	server.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server
}

// setupRoutes configura tutti gli endpoint
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)

		// Dataset locale, consumato dalla sorgente remota di altre istanze
		api.GET("/characters/:character", s.getCharacter)

		// Cascata e rendering
		api.GET("/resolve/:character", s.resolveCharacter)
		api.GET("/render/:character", s.renderCharacter)
		api.GET("/worksheet/:character", s.worksheet)

		// Dataset
		api.GET("/dataset", s.getDataset)
		api.POST("/dataset/reload", s.reloadDataset)

		// Watcher endpoints
		api.POST("/watch/start", s.startWatcher)
		api.POST("/watch/stop", s.stopWatcher)
		api.GET("/watch/status", s.getWatcherStatus)
	}

	// WebSocket endpoint
	s.router.GET("/ws", s.handleWebSocket)
}

// Handler restituisce l'handler HTTP (usato anche dai test)
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start avvia il server e blocca fino a Shutdown
func (s *Server) Start() error {
	addr := s.httpServer.Addr
	log := s.logger.Sugar()
	log.Infof("🚀 Server avviato su http://localhost%s", addr)
	log.Infof("📚 API disponibile su http://localhost%s/api", addr)
	log.Infof("🔌 WebSocket su ws://localhost%s/ws", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("errore server: %w", err)
	}
	return nil
}

// Shutdown chiude le sessioni, ferma il watcher e il server HTTP
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeSessions()

	s.watcherMutex.Lock()
	if s.watcher != nil && s.watcher.IsRunning() {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn("Errore arresto watcher", zap.Error(err))
		}
	}
	s.watcher = nil
	s.watcherMutex.Unlock()

	return s.httpServer.Shutdown(ctx)
}

// requestLogger registra ogni richiesta con zap
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Richiesta HTTP",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// ============================================
// Handlers
// ============================================

// healthCheck verifica lo stato del server
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"version":    Version,
		"characters": len(s.table.Characters()),
	})
}

// getDataset restituisce le statistiche del dataset locale
func (s *Server) getDataset(c *gin.Context) {
	stats := s.table.Stats()
	c.JSON(http.StatusOK, gin.H{
		"characters": stats.Characters,
		"files":      stats.Files,
		"loaded_at":  stats.LoadedAt,
		"list":       s.table.Characters(),
	})
}

// reloadDataset ricarica i file del dataset
func (s *Server) reloadDataset(c *gin.Context) {
	if err := s.table.Reload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	stats := s.table.Stats()
	s.broadcast(gin.H{
		"type":       msgDatasetReloaded,
		"characters": stats.Characters,
		"timestamp":  time.Now(),
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "characters": stats.Characters})
}

// StartWatcherRequest richiesta avvio watcher
type StartWatcherRequest struct {
	Files []string `json:"files"` // Vuoto = i file già caricati nel dataset
}

// startWatcher avvia il file watcher sui file del dataset
func (s *Server) startWatcher(c *gin.Context) {
	var req StartWatcherRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	files, err := s.StartWatcher(req.Files, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Watcher avviato",
		"files":   files,
	})
}

// StartWatcher avvia il watcher del dataset e inoltra le ricariche ai client WebSocket
func (s *Server) StartWatcher(files []string, debounce time.Duration) ([]string, error) {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	if s.watcher != nil && s.watcher.IsRunning() {
		return nil, fmt.Errorf("watcher già in esecuzione")
	}
	if len(files) == 0 {
		files = s.table.Files()
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("nessun file del dataset da monitorare")
	}

	fw, err := watcher.NewFileWatcher(watcher.WatcherConfig{
		Files:        files,
		Reloader:     s.table,
		DebounceTime: debounce,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := fw.Start(); err != nil {
		return nil, err
	}

	s.watcher = fw
	go s.broadcastWatcherEvents(fw)
	return fw.Files(), nil
}

// stopWatcher ferma il file watcher
func (s *Server) stopWatcher(c *gin.Context) {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	if s.watcher == nil || !s.watcher.IsRunning() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Watcher non in esecuzione"})
		return
	}

	if err := s.watcher.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.watcher = nil

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Watcher fermato",
	})
}

// getWatcherStatus ottiene lo stato del watcher
func (s *Server) getWatcherStatus(c *gin.Context) {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	running := s.watcher != nil && s.watcher.IsRunning()
	files := []string{}
	if running {
		files = s.watcher.Files()
	}

	c.JSON(http.StatusOK, gin.H{
		"running": running,
		"files":   files,
	})
}

// broadcastWatcherEvents invia le ricariche del dataset ai client WebSocket
func (s *Server) broadcastWatcherEvents(fw *watcher.FileWatcher) {
	for event := range fw.Events() {
		switch event.Type {
		case watcher.EventReloaded:
			s.broadcast(gin.H{
				"type":       msgDatasetReloaded,
				"path":       event.Path,
				"characters": s.table.Stats().Characters,
				"timestamp":  event.Timestamp,
			})
		case watcher.EventReloadError:
			s.broadcast(gin.H{
				"type":      msgError,
				"path":      event.Path,
				"error":     event.Error,
				"timestamp": event.Timestamp,
			})
		}
	}
}
