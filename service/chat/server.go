package chat

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/marc0cl/domu-backend-sub001/logger"
	"github.com/marc0cl/domu-backend-sub001/tools/ids"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenVerifier validates a bearer credential and yields the user identity.
// *security.Verifier satisfies it.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// Server owns the connection lifecycle: handshake, registry admission,
// presence transitions, and the per-connection read loop. Each connection gets
// one reader (this handler's goroutine) and one writer (the client's pump).
type Server struct {
	verifier  TokenVerifier
	reg       *Registry
	presence  *PresenceBroadcaster
	disp      *Dispatcher
	clientCfg ClientConfig
}

func NewServer(verifier TokenVerifier, reg *Registry, router *Router, presence *PresenceBroadcaster, clientCfg ClientConfig) *Server {
	disp := NewDispatcher()
	disp.Register(sendMsgHandler{router: router})
	disp.Register(typingHandler{})
	return &Server{
		verifier:  verifier,
		reg:       reg,
		presence:  presence,
		disp:      disp,
		clientCfg: clientCfg,
	}
}

func (s *Server) Registry() *Registry { return s.reg }

// HandleWS serves one websocket connection end to end:
// Connecting -> Authenticated -> Active -> Closed.
// e.g. ws://host/chat?token=<jwt>
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	// Connecting: no identity yet. A bad token terminates the transport with
	// no registry entry and no presence broadcast.
	userID, err := s.verifier.Verify(c.Query("token"))
	if err != nil {
		logger.Infof("[ws] handshake rejected remote=%s err=%v", ws.RemoteAddr(), err)
		_ = ws.Close()
		return
	}

	client := NewClient(ids.NewConnID(), userID, ws, s.clientCfg)
	s.runSession(c.Request.Context(), client)
}

// runSession drives an authenticated client until its transport closes.
func (s *Server) runSession(ctx context.Context, client *Client) {
	// Authenticated -> Active: admit, then announce. Single session per user:
	// the superseded socket is closed here, its teardown below will find it no
	// longer holds the registry entry and stay silent.
	if replaced := s.reg.Admit(client); replaced != nil {
		logger.Infof("[ws] superseding session user=%d old_conn=%s new_conn=%s",
			client.UserID, replaced.ConnID, client.ConnID)
		replaced.Close()
	}
	s.presence.Broadcast(ctx, client.UserID, true)

	client.prepareRead()
	go client.writePump()

	logger.Infof("[ws] session open user=%d conn=%s", client.UserID, client.ConnID)
	s.readLoop(ctx, client)

	// Active -> Closed: evict, then announce departure. Evict is false when a
	// newer session for the same user replaced this one; the user is still
	// online, so no offline broadcast.
	client.Close()
	if s.reg.Evict(client) {
		s.presence.Broadcast(ctx, client.UserID, false)
	}
	logger.Infof("[ws] session closed user=%d conn=%s", client.UserID, client.ConnID)
}

// readLoop processes inbound frames one at a time, so persist-then-fan-out for
// one message completes before the next frame from this connection starts.
func (s *Server) readLoop(ctx context.Context, client *Client) {
	for {
		mt, data, err := client.ws.ReadMessage()
		if err != nil {
			logReadExit(client, err)
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frameType, fields, err := ParseFrame(data)
		if err != nil {
			// Malformed frame: drop and stay active.
			logger.Warnf("[ws] bad frame user=%d conn=%s err=%v", client.UserID, client.ConnID, err)
			continue
		}

		h := s.disp.Get(frameType)
		if h == nil {
			logger.Warnf("[ws] unknown frame type=%s user=%d", frameType, client.UserID)
			continue
		}
		if err := h.Handle(ctx, client, fields); err != nil {
			logger.Warnf("[ws] handler failed type=%s user=%d err=%v", frameType, client.UserID, err)
		}
	}
}

func logReadExit(client *Client, err error) {
	switch {
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		logger.Infof("[ws] peer closed user=%d conn=%s", client.UserID, client.ConnID)
	default:
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			logger.Infof("[ws] read timeout user=%d conn=%s", client.UserID, client.ConnID)
			return
		}
		logger.Infof("[ws] read err user=%d conn=%s err=%v", client.UserID, client.ConnID, err)
	}
}

// Routes mounts the gateway endpoint on a gin engine.
func (s *Server) Routes(r gin.IRoutes) {
	r.GET("/chat", s.HandleWS)
}
