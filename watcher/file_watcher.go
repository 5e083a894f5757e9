package watcher

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Tipi di evento emessi dal watcher
const (
	EventCreated     = "created"
	EventModified    = "modified"
	EventDeleted     = "deleted"
	EventRenamed     = "renamed"
	EventReloaded    = "reloaded"
	EventReloadError = "reload_error"
)

// Reloader ricarica il dataset dai file
type Reloader interface {
	Reload() error
}

// FileWatcher monitora i file del dataset e li ricarica quando cambiano
type FileWatcher struct {
	watcher      *fsnotify.Watcher
	files        map[string]bool
	reloader     Reloader
	debounceTime time.Duration
	eventChan    chan WatchEvent
	stopChan     chan struct{}
	done         chan struct{}
	logger       *zap.Logger

	mu        sync.Mutex
	isRunning bool
	debounce  *time.Timer
}

// WatchEvent rappresenta un evento del watcher
type WatchEvent struct {
	Type      string    `json:"type"`            // Vedi le costanti Event*
	Path      string    `json:"path"`            // Path del file
	Error     string    `json:"error,omitempty"` // Solo per EventReloadError
	Timestamp time.Time `json:"timestamp"`
}

// WatcherConfig configurazione per il watcher
type WatcherConfig struct {
	Files        []string      // File del dataset da monitorare
	Reloader     Reloader      // Tabella da ricaricare
	DebounceTime time.Duration // Tempo di debounce (default: 500ms)
	Logger       *zap.Logger
}

// NewFileWatcher crea un nuovo file watcher.
// Si osservano le directory dei file: gli editor spesso salvano con rename.
func NewFileWatcher(config WatcherConfig) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("errore creazione watcher: %w", err)
	}

	if config.DebounceTime == 0 {
		config.DebounceTime = 500 * time.Millisecond
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fw := &FileWatcher{
		watcher:      watcher,
		files:        make(map[string]bool),
		reloader:     config.Reloader,
		debounceTime: config.DebounceTime,
		eventChan:    make(chan WatchEvent, 100),
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
		logger:       logger,
	}

	dirs := make(map[string]bool)
	for _, path := range config.Files {
		if !IsDatasetFile(path) {
			fw.logger.Warn("⚠️  Formato non supportato, file ignorato", zap.String("path", path))
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("errore path %s: %w", path, err)
		}
		fw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("errore aggiunta path %s: %w", dir, err)
		}
		fw.logger.Sugar().Infof("👀 Watching: %s", dir)
	}

	return fw, nil
}

// Start avvia il file watcher
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.isRunning {
		return fmt.Errorf("watcher già in esecuzione")
	}
	fw.isRunning = true

	fw.logger.Info("🚀 File watcher avviato")
	go fw.loop()
	return nil
}

func (fw *FileWatcher) loop() {
	defer close(fw.done)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handle(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("❌ Errore watcher", zap.Error(err))

		case <-fw.stopChan:
			fw.logger.Info("🛑 File watcher fermato")
			return
		}
	}
}

func (fw *FileWatcher) handle(event fsnotify.Event) {
	path, err := filepath.Abs(event.Name)
	if err != nil || !fw.files[path] {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventCreated
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventModified
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventDeleted
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventRenamed
	default:
		return
	}

	fw.logger.Sugar().Infof("📝 File %s: %s", eventType, filepath.Base(path))
	fw.send(WatchEvent{Type: eventType, Path: path, Timestamp: time.Now()})

	// Un file rimosso o rinominato di solito ricompare subito dopo
	if eventType == EventDeleted || eventType == EventRenamed {
		return
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.debounce != nil {
		fw.debounce.Stop()
	}
	fw.debounce = time.AfterFunc(fw.debounceTime, func() { fw.reload(path) })
}

// reload ricarica il dataset dopo la raffica di modifiche
func (fw *FileWatcher) reload(path string) {
	fw.mu.Lock()
	running := fw.isRunning
	fw.mu.Unlock()
	if !running || fw.reloader == nil {
		return
	}

	fw.logger.Sugar().Infof("🔄 Ricarico il dataset: %s", filepath.Base(path))

	start := time.Now()
	if err := fw.reloader.Reload(); err != nil {
		fw.logger.Error("❌ Ricaricamento fallito, resta il dataset precedente",
			zap.String("path", path), zap.Error(err))
		fw.send(WatchEvent{Type: EventReloadError, Path: path, Error: err.Error(), Timestamp: time.Now()})
		return
	}

	fw.logger.Sugar().Infof("✅ Dataset ricaricato in %v", time.Since(start))
	fw.send(WatchEvent{Type: EventReloaded, Path: path, Timestamp: time.Now()})
}

// send non blocca: se nessuno legge gli eventi vengono scartati
func (fw *FileWatcher) send(ev WatchEvent) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if !fw.isRunning {
		return
	}
	select {
	case fw.eventChan <- ev:
	default:
		fw.logger.Warn("Coda eventi piena, evento scartato", zap.String("type", ev.Type))
	}
}

// Stop ferma il file watcher
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.isRunning {
		fw.mu.Unlock()
		return fmt.Errorf("watcher non in esecuzione")
	}
	fw.isRunning = false
	if fw.debounce != nil {
		fw.debounce.Stop()
	}
	fw.mu.Unlock()

	close(fw.stopChan)
	<-fw.done

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("errore chiusura watcher: %w", err)
	}

	fw.mu.Lock()
	close(fw.eventChan)
	fw.mu.Unlock()
	return nil
}

// Events restituisce il canale degli eventi
func (fw *FileWatcher) Events() <-chan WatchEvent {
	return fw.eventChan
}

// IsRunning verifica se il watcher è attivo
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.isRunning
}

// Files restituisce i file monitorati
func (fw *FileWatcher) Files() []string {
	out := make([]string, 0, len(fw.files))
	for f := range fw.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// IsDatasetFile indica se il path ha un'estensione di dataset supportata
func IsDatasetFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
