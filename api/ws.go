package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"strokeorder/animator"
	"strokeorder/writer"
)

// Tipi dei messaggi inviati ai client WebSocket
const (
	msgWelcome         = "welcome"
	msgLoaded          = "loaded"
	msgFallback        = "fallback"
	msgState           = "state"
	msgStroke          = "stroke"
	msgCompleted       = "completed"
	msgError           = "error"
	msgDatasetReloaded = "dataset_reloaded"
)

const wsWriteTimeout = 5 * time.Second

// ClientMessage è un comando della sessione di esercizio
type ClientMessage struct {
	Action    string `json:"action"`              // load, play, pause, reset, step
	Character string `json:"character,omitempty"` // Per load
	Index     int    `json:"index,omitempty"`     // Per step
}

// session è una connessione WebSocket con la sua istanza dedicata
type session struct {
	id       string
	conn     *websocket.Conn
	instance *writer.Instance
	logger   *zap.Logger

	writeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	loads   sync.WaitGroup
}

// handleWebSocket gestisce una sessione di esercizio
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("❌ Errore WebSocket upgrade", zap.Error(err))
		return
	}

	sess := s.newSession(conn)
	s.wsMutex.Lock()
	s.wsClients[sess] = true
	s.wsMutex.Unlock()

	s.logger.Sugar().Infof("🔌 Client WebSocket connesso (%s)", sess.id)

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, sess)
		s.wsMutex.Unlock()
		sess.close()
		s.logger.Sugar().Infof("🔌 Client WebSocket disconnesso (%s)", sess.id)
	}()

	sess.send(gin.H{
		"type":    msgWelcome,
		"session": sess.id,
		"version": Version,
	})

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Connessione WebSocket interrotta", zap.String("session", sess.id), zap.Error(err))
			}
			return
		}
		sess.handle(msg)
	}
}

func (s *Server) newSession(conn *websocket.Conn) *session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	logger := s.logger.With(zap.String("session", id))

	sess := &session{
		id:     id,
		conn:   conn,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	sess.instance = writer.New(s.resolver, writer.Options{
		Render:    s.renderOpts,
		Animation: s.animOpts,
		AutoStart: s.autoStart,
		Logger:    logger,
	})
	sess.instance.Subscribe(sess.forward)
	return sess
}

// handle esegue un comando del client
func (sess *session) handle(msg ClientMessage) {
	var err error
	switch msg.Action {
	case "load":
		if msg.Character == "" {
			sess.sendError("carattere mancante")
			return
		}
		// La richiesta gira in background: un nuovo load annulla il precedente
		sess.loads.Add(1)
		go func() {
			defer sess.loads.Done()
			_, err := sess.instance.Request(sess.ctx, msg.Character)
			if err != nil && !errors.Is(err, writer.ErrStale) && !errors.Is(err, writer.ErrClosed) {
				sess.sendError(err.Error())
			}
		}()
		return
	case "play":
		err = sess.instance.Play()
	case "pause":
		err = sess.instance.Pause()
	case "reset":
		err = sess.instance.Reset()
	case "step":
		err = sess.instance.StepToStroke(msg.Index)
	default:
		sess.sendError("azione sconosciuta: " + msg.Action)
		return
	}
	if err != nil {
		sess.sendError(err.Error())
	}
}

// forward traduce gli eventi dell'istanza in messaggi per il client
func (sess *session) forward(ev writer.Event) {
	switch ev.Type {
	case writer.EventLoaded:
		msg := gin.H{
			"type":       msgLoaded,
			"generation": ev.Generation,
			"character":  ev.Character,
			"source":     ev.Source,
			"svg":        sess.instance.SVG(),
		}
		if seq := sess.instance.Sequencer(); seq != nil {
			msg["state"] = seq.State()
		}
		sess.send(msg)

	case writer.EventFallback:
		sess.send(gin.H{
			"type":        msgFallback,
			"generation":  ev.Generation,
			"character":   ev.Character,
			"source":      ev.Source,
			"reason":      ev.Fallback.Reason,
			"message":     ev.Fallback.Unavailable,
			"retry_label": ev.Fallback.RetryLabel,
			"svg":         ev.Fallback.SVG,
		})

	case writer.EventAnimation:
		msg := gin.H{
			"generation": ev.Generation,
			"character":  ev.Character,
			"state":      ev.Animation.State,
			"svg":        sess.instance.SVG(),
		}
		switch ev.Animation.Type {
		case animator.EventStrokeCompleted:
			msg["type"] = msgStroke
			msg["stroke"] = ev.Animation.Stroke
		case animator.EventCompleted:
			msg["type"] = msgCompleted
		default:
			msg["type"] = msgState
		}
		sess.send(msg)
	}
}

func (sess *session) sendError(message string) {
	sess.send(gin.H{"type": msgError, "error": message})
}

// send serializza le scritture: gorilla/websocket ammette un solo writer
func (sess *session) send(msg interface{}) {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()

	sess.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := sess.conn.WriteJSON(msg); err != nil {
		sess.logger.Debug("Errore invio WebSocket", zap.Error(err))
	}
}

// close annulla le richieste in corso e ferma l'animazione
func (sess *session) close() {
	sess.cancel()
	sess.instance.Close()
	sess.loads.Wait()
	sess.conn.Close()
}

// broadcast invia un messaggio a tutti i client connessi
func (s *Server) broadcast(msg interface{}) {
	s.wsMutex.Lock()
	clients := make([]*session, 0, len(s.wsClients))
	for sess := range s.wsClients {
		clients = append(clients, sess)
	}
	s.wsMutex.Unlock()

	for _, sess := range clients {
		sess.send(msg)
	}
}

// closeSessions chiude tutte le connessioni aperte
func (s *Server) closeSessions() {
	s.wsMutex.Lock()
	clients := make([]*session, 0, len(s.wsClients))
	for sess := range s.wsClients {
		clients = append(clients, sess)
	}
	s.wsMutex.Unlock()

	for _, sess := range clients {
		sess.conn.Close()
	}
}
