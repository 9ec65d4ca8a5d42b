package webui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"juliaform/constraints"
	"juliaform/controller"
	"juliaform/db"
	"juliaform/form"
	"juliaform/metrics"
	"juliaform/params"
)

// SessionConfig holds websocket timing and size limits.
type SessionConfig struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBufferSize int
}

// DefaultSessionConfig returns the limits used by NewServer.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 8 << 10,
		SendBufferSize: 64,
	}
}

// Session is one browser connection. It owns a form and the controller that
// gates image requests for it; sessions share nothing but the image service.
type Session struct {
	id      string
	conn    *websocket.Conn
	cfg     SessionConfig
	form    *form.Form
	ctrl    *controller.Controller
	stats   *metrics.Store
	history History
	logger  *zap.Logger

	out  chan []byte
	done chan struct{}
	wg   sync.WaitGroup
}

func newSession(conn *websocket.Conn, svc controller.ImageService, defaults params.Snapshot, cfg SessionConfig, stats *metrics.Store, history History, logger *zap.Logger) *Session {
	id := uuid.NewString()
	log := logger.With(zap.String("session_id", id))
	f := form.NewJuliaForm()
	f.Fill(defaults)
	return &Session{
		id:      id,
		conn:    conn,
		cfg:     cfg,
		form:    f,
		ctrl:    controller.New(svc, f, log),
		stats:   stats,
		history: history,
		logger:  log,
		out:     make(chan []byte, cfg.SendBufferSize),
		done:    make(chan struct{}),
	}
}

// run serves the connection until the browser goes away or ctx ends.
func (s *Session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.wg.Wait()
		close(s.done)
		s.conn.Close()
		s.logger.Info("session closed")
	}()

	go s.writePump()

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	s.load(ctx)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("unexpected close", zap.Error(err))
			}
			return
		}
		s.handle(ctx, data)
	}
}

func (s *Session) load(ctx context.Context) {
	res, err := s.ctrl.Load(ctx)

	var summary *constraints.Summary
	if set := s.ctrl.Constraints(); set != nil {
		sum := set.Summary()
		summary = &sum
	}
	s.send(NewWSMessage(MessageTypeInitial, InitialData{Fields: s.form.Fields(), Constraints: summary}))

	if summary == nil {
		msg := "Validation limits could not be loaded."
		if err != nil {
			msg = err.Error()
		}
		s.send(newErrorMessage(ErrorCodeConstraints, msg))
		return
	}
	s.report(res, err)
}

func (s *Session) handle(ctx context.Context, data []byte) {
	var in InboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		s.send(newErrorMessage(ErrorCodeBadMessage, "message is not valid JSON"))
		return
	}

	switch in.Type {
	case MessageTypeFieldChange:
		var fc FieldChangeData
		if err := json.Unmarshal(in.Data, &fc); err != nil {
			s.send(newErrorMessage(ErrorCodeBadMessage, "field_change needs {field, value}"))
			return
		}
		if !s.form.SetValue(fc.Field, fc.Value) {
			s.send(newErrorMessage(ErrorCodeUnknown, "unknown field "+fc.Field))
			return
		}
		s.ctrl.FieldChanged(fc.Field)
		if fd, ok := s.form.Field(fc.Field); ok {
			s.send(NewWSMessage(MessageTypeFieldState, fieldState(fd)))
		}

	case MessageTypeGenerate:
		var gd GenerateData
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &gd); err != nil {
				s.send(newErrorMessage(ErrorCodeBadMessage, "generate takes {fields}"))
				return
			}
		}
		for name := range gd.Fields {
			if _, ok := s.form.Field(name); !ok {
				s.send(newErrorMessage(ErrorCodeUnknown, "unknown field "+name))
				return
			}
		}
		for name, value := range gd.Fields {
			s.form.SetValue(name, value)
		}

		// The gate runs here so the request carries the form as it was at
		// the trigger. Only the request itself leaves the read loop, which
		// lets a second trigger reach the gate and be reported busy.
		req, res, err := s.ctrl.Begin()
		if req == nil {
			s.report(res, err)
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			res, err := req.Do(ctx)
			s.report(res, err)
		}()

	default:
		s.send(newErrorMessage(ErrorCodeBadMessage, "unknown message type "+in.Type))
	}
}

// report records one pass through the gate and sends its results.
func (s *Session) report(res controller.GenerateResult, err error) {
	if s.stats != nil {
		rec := metrics.Record{
			RequestID: res.RequestID,
			SessionID: s.id,
			Outcome:   res.Outcome.String(),
			At:        time.Now(),
			Duration:  res.Duration,
		}
		if err != nil {
			rec.Error = err.Error()
		}
		s.stats.Record(rec)
	}
	if s.history != nil && res.RequestID != "" {
		r := db.Render{
			RequestID: res.RequestID,
			SessionID: s.id,
			Outcome:   res.Outcome.String(),
			Params:    res.Snapshot,
			Duration:  res.Duration,
		}
		if err != nil {
			r.Error = err.Error()
		}
		s.history.Enqueue(r)
	}

	if res.Outcome == controller.Invalid {
		for _, fd := range s.form.Fields() {
			s.send(NewWSMessage(MessageTypeFieldState, fieldState(fd)))
		}
	}
	if res.Outcome == controller.Rendered {
		s.send(NewWSMessage(MessageTypeImage, ImageData{Markup: s.form.Image(), RequestID: res.RequestID}))
	}
	s.send(NewWSMessage(MessageTypeStatus, StatusData{Outcome: res.Outcome.String(), RequestID: res.RequestID}))

	if err != nil && !errors.Is(err, context.Canceled) {
		s.send(newErrorMessage(ErrorCodeRequest, err.Error()))
	}
}

// send queues msg for the write pump. It drops the message once the session
// has ended.
func (s *Session) send(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("marshal message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	select {
	case s.out <- data:
	case <-s.done:
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("write failed", zap.Error(err))
				s.conn.Close()
				s.drain()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.conn.Close()
				s.drain()
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// drain discards queued messages until the session ends so senders never block.
func (s *Session) drain() {
	for {
		select {
		case <-s.out:
		case <-s.done:
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}
