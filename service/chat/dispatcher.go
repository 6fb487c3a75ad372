package chat

import (
	"context"

	"github.com/marc0cl/domu-backend-sub001/logger"
)

// Handler processes one inbound frame type for an active session.
type Handler interface {
	Type() string
	Handle(ctx context.Context, c *Client, fields map[string]any) error
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

func (d *Dispatcher) Get(frameType string) Handler {
	h, ok := d.handlers[frameType]
	if !ok {
		logger.Debug("no handler for frame type " + frameType)
		return nil
	}
	return h
}

// sendMsgHandler hands SEND_MSG frames to the router.
type sendMsgHandler struct {
	router *Router
}

func (sendMsgHandler) Type() string { return FrameSendMsg }

func (h sendMsgHandler) Handle(ctx context.Context, c *Client, fields map[string]any) error {
	p, err := DecodePayload[SendMsgPayload](fields)
	if err != nil {
		return err
	}
	return h.router.Route(ctx, c, p.RoomID, p.Content, p.MsgType, p.AttachmentRef)
}

// typingHandler is the extension point for typing indicators; accepted and
// dropped today.
type typingHandler struct{}

func (typingHandler) Type() string { return FrameTyping }

func (typingHandler) Handle(context.Context, *Client, map[string]any) error { return nil }
