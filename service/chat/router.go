package chat

import (
	"context"

	"github.com/marc0cl/domu-backend-sub001/logger"
	"github.com/marc0cl/domu-backend-sub001/service/natsx"
	"github.com/marc0cl/domu-backend-sub001/service/storage"
)

// MessageStore is the slice of the persistence layer the gateway consumes.
type MessageStore interface {
	SaveMessage(ctx context.Context, roomID, senderID int64, content, kind, attachmentRef string) (*storage.ChatMessage, error)
	ParticipantIDs(ctx context.Context, roomID int64) ([]int64, error)
}

// EventPublisher emits domain events for other backend modules. *natsx.Producer
// satisfies it; nil disables publishing.
type EventPublisher interface {
	Publish(subject string, v any) error
}

// Router interprets inbound chat frames: persist first, then fan the canonical
// message out to every room participant currently online.
type Router struct {
	reg    *Registry
	store  MessageStore
	events EventPublisher
}

func NewRouter(reg *Registry, store MessageStore, events EventPublisher) *Router {
	return &Router{reg: reg, store: store, events: events}
}

// Route persists one message and delivers it best-effort. The sender identity
// comes from the authenticated session, never from the frame. A persistence
// failure drops the frame, notifies the sender, and leaves the session active.
func (r *Router) Route(ctx context.Context, sender *Client, roomID int64, content, kind, attachmentRef string) error {
	msg, err := r.store.SaveMessage(ctx, roomID, sender.UserID, content, kind, attachmentRef)
	if err != nil {
		logger.Errorf("[router] persist failed room=%d sender=%d err=%v", roomID, sender.UserID, err)
		if !sender.Push(BuildError(err.Error())) {
			logger.Warnf("[router] error frame dropped user=%d", sender.UserID)
		}
		return nil
	}

	participants, err := r.store.ParticipantIDs(ctx, roomID)
	if err != nil {
		// Persisted but undeliverable; offline participants will see it on the
		// next history fetch either way.
		logger.Errorf("[router] participants failed room=%d err=%v", roomID, err)
		return nil
	}

	payload := BuildNewMessage(msg)
	for _, uid := range participants {
		c, ok := r.reg.Get(uid)
		if !ok {
			continue
		}
		if !c.Push(payload) {
			// Slow or dead consumer: this one delivery is dropped, everyone
			// else is unaffected.
			logger.Warnf("[router] delivery dropped room=%d user=%d conn=%s", roomID, uid, c.ConnID)
		}
	}

	if r.events != nil {
		if err := r.events.Publish(natsx.SubjectMessageCreated, msg); err != nil {
			logger.Warnf("[router] event publish failed: %v", err)
		}
	}
	return nil
}
