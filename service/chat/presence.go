package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/marc0cl/domu-backend-sub001/logger"
	"github.com/marc0cl/domu-backend-sub001/service/natsx"
)

// PresenceMirror replicates online/offline transitions outside the process.
// *storage.PresenceMirror satisfies it; nil disables mirroring.
type PresenceMirror interface {
	MarkOnline(ctx context.Context, userID int64) error
	MarkOffline(ctx context.Context, userID int64) error
}

// PresenceBroadcaster tells every connected client when a user's online status
// changes, the subject included.
type PresenceBroadcaster struct {
	reg    *Registry
	mirror PresenceMirror
	events EventPublisher
}

func NewPresenceBroadcaster(reg *Registry, mirror PresenceMirror, events EventPublisher) *PresenceBroadcaster {
	return &PresenceBroadcaster{reg: reg, mirror: mirror, events: events}
}

type presenceEvent struct {
	UserID int64 `json:"userId"`
	Online bool  `json:"online"`
}

// Broadcast is best-effort: a dead or slow recipient never aborts the
// iteration, and mirror/broker failures are logged and swallowed.
func (b *PresenceBroadcaster) Broadcast(ctx context.Context, userID int64, online bool) {
	payload := BuildPresence(userID, online)
	for _, c := range b.reg.Snapshot() {
		if !c.Push(payload) {
			logger.Debug("[presence] frame dropped",
				zap.Int64("user", c.UserID), zap.String("conn", c.ConnID))
		}
	}

	if b.mirror != nil {
		var err error
		if online {
			err = b.mirror.MarkOnline(ctx, userID)
		} else {
			err = b.mirror.MarkOffline(ctx, userID)
		}
		if err != nil {
			logger.Warnf("[presence] mirror failed user=%d err=%v", userID, err)
		}
	}

	if b.events != nil {
		if err := b.events.Publish(natsx.SubjectPresenceChanged, presenceEvent{UserID: userID, Online: online}); err != nil {
			logger.Warnf("[presence] event publish failed: %v", err)
		}
	}
}
