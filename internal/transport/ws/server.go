package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"decraft.ai/internal/protocol"
	"decraft.ai/internal/sim/tuning"
	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/handler"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/service"
)

type Uncrafter interface {
	Uncraft(ctx context.Context, input item.Stack) (service.Result, error)
}

// Items knows the item catalog; used for "did you mean" hints.
type Items interface {
	Has(id string) bool
	Suggest(id string) (string, bool)
}

type Options struct {
	Uncrafter   Uncrafter
	Tuning      *tuning.Store
	Items       Items
	Catalogs    protocol.CatalogDigests
	RecipeKinds []string
	Logger      *zap.Logger
}

type Server struct {
	opts Options
	log  *zap.Logger

	upgrader websocket.Upgrader
	sessions atomic.Int64
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tuning == nil {
		opts.Tuning = tuning.NewStore(tuning.Defaults())
	}
	return &Server{
		opts: opts,
		log:  opts.Logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Sessions is the number of connected sessions.
func (s *Server) Sessions() int { return int(s.sessions.Load()) }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, cfg := s.handshake(conn)
		if sessionID == "" {
			return
		}
		s.sessions.Add(1)
		defer s.sessions.Add(-1)
		log := s.log.With(zap.String("session", sessionID))
		log.Info("session started")
		defer log.Info("session ended")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 16)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()
		defer func() {
			cancel()
			<-writerDone
		}()

		send := func(v any) bool {
			b, err := json.Marshal(v)
			if err != nil {
				log.Error("marshal", zap.Error(err))
				return false
			}
			select {
			case out <- b:
				return true
			case <-ctx.Done():
				return false
			}
		}

		limiter := newLimiter(cfg.UncraftRate)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				if !send(errorMsg("", protocol.ErrProtoBadRequest, "malformed json", "")) {
					return
				}
				continue
			}
			if base.Type != protocol.TypeUncraft {
				if !send(errorMsg("", protocol.ErrProtoBadRequest, "unexpected message type "+base.Type, "")) {
					return
				}
				continue
			}
			var req protocol.UncraftMsg
			if err := json.Unmarshal(msg, &req); err != nil || req.ProtocolVersion != protocol.Version {
				if !send(errorMsg(req.RequestID, protocol.ErrProtoBadRequest, "bad UNCRAFT message", "")) {
					return
				}
				continue
			}
			if !limiter.Allow() {
				if !send(errorMsg(req.RequestID, protocol.ErrRateLimit, "too many uncraft requests", "")) {
					return
				}
				continue
			}
			if !send(s.uncraft(ctx, log, req)) {
				return
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (string, tuning.Tuning) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", tuning.Tuning{}
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", tuning.Tuning{}
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", tuning.Tuning{}
	}
	if !supports(hello) {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", tuning.Tuning{}
	}

	cfg := s.opts.Tuning.Get()
	sessionID := uuid.NewString()

	cats := s.opts.Catalogs
	cats.TuningDigest = cfg.Digest()
	kinds := s.opts.RecipeKinds
	if kinds == nil {
		kinds = []string{}
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		RecipeKinds:     kinds,
		Catalogs:        cats,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", tuning.Tuning{}
	}
	if err := writeJSON(conn, ConfigMsg(cfg)); err != nil {
		return "", tuning.Tuning{}
	}
	s.log.Debug("handshake", zap.String("client", hello.ClientName), zap.String("session", sessionID))
	return sessionID, cfg
}

func supports(h protocol.HelloMsg) bool {
	if h.ProtocolVersion == protocol.Version {
		return true
	}
	for _, v := range h.SupportedVersions {
		if v == protocol.Version {
			return true
		}
	}
	return false
}

// ConfigMsg builds the CONFIG message for t.
func ConfigMsg(t tuning.Tuning) protocol.ConfigMsg {
	excluded := append([]string{}, t.ExcludedItems...)
	return protocol.ConfigMsg{
		Type:            protocol.TypeConfig,
		ProtocolVersion: protocol.Version,
		Digest:          t.Digest(),
		Config: protocol.ConfigData{
			StandardLevel:     t.StandardLevel,
			MaxUsedLevel:      t.MaxUsedLevel,
			UncraftMethod:     int(t.UncraftMethod),
			UncraftMethodName: t.UncraftMethod.String(),
			ExcludedItems:     excluded,
			EnabledMods:       t.EnabledMods(),
		},
	}
}

func (s *Server) uncraft(ctx context.Context, log *zap.Logger, req protocol.UncraftMsg) any {
	in := item.New(req.Item.ID, req.Item.Count, req.Item.Meta).WithTag(item.Tag(req.Item.Tag))
	if req.Item.ID == "" {
		in = item.Empty()
	}
	res, err := s.opts.Uncrafter.Uncraft(ctx, in)
	if err == nil {
		return gridMsg(req.RequestID, res)
	}

	switch {
	case errors.Is(err, service.ErrEmptyInput):
		return errorMsg(req.RequestID, protocol.ErrBadRequest, "item id is required", "")
	case errors.Is(err, service.ErrExcluded):
		return errorMsg(req.RequestID, protocol.ErrExcluded, err.Error(), "")
	case errors.Is(err, service.ErrNoRecipe):
		suggestion := ""
		if s.opts.Items != nil && !s.opts.Items.Has(in.ID) {
			suggestion, _ = s.opts.Items.Suggest(in.ID)
		}
		return errorMsg(req.RequestID, protocol.ErrNoRecipe, err.Error(), suggestion)
	case errors.Is(err, handler.ErrUnsupported):
		return errorMsg(req.RequestID, protocol.ErrUnsupported, err.Error(), "")
	}
	log.Error("uncraft failed", zap.String("item", in.Key()), zap.Error(err))
	return errorMsg(req.RequestID, protocol.ErrInternal, "internal error", "")
}

func gridMsg(requestID string, res service.Result) protocol.GridMsg {
	m := protocol.GridMsg{
		Type:            protocol.TypeGrid,
		ProtocolVersion: protocol.Version,
		RequestID:       requestID,
		RecipeID:        res.Recipe.ID(),
		Kind:            string(res.Recipe.Kind()),
		Output:          stackMsg(res.Recipe.Output()),
		Cached:          res.Cached,
	}
	for i := 0; i < grid.Size; i++ {
		if res.Grid[i].IsEmpty() {
			continue
		}
		st := stackMsg(res.Grid[i])
		m.Slots[i] = &st
	}
	return m
}

func stackMsg(s item.Stack) protocol.Stack {
	return protocol.Stack{ID: s.ID, Count: s.Count, Meta: s.Meta, Tag: s.Tag}
}

func errorMsg(requestID, code, message, suggestion string) protocol.ErrorMsg {
	return protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		RequestID:       requestID,
		Code:            code,
		Message:         message,
		Suggestion:      suggestion,
	}
}

func newLimiter(r tuning.UncraftRate) *rate.Limiter {
	if r.PerSec <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := r.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(r.PerSec), burst)
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
