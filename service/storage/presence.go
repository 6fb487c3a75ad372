package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	onlineSetKey    = "chat:online"
	presenceChannel = "chat:presence"
)

// RedisConfig mirrors the connection settings the other backend services use.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// OpenRedis connects and pings; a dead redis at boot is a config error.
func OpenRedis(c RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}
	return rdb, nil
}

// PresenceMirror keeps a copy of the online set in redis so the REST layer can
// answer "who is online" without asking the gateway. The in-process registry
// stays the source of truth; mirror failures are the caller's to log and ignore.
type PresenceMirror struct {
	rdb *redis.Client
}

func NewPresenceMirror(rdb *redis.Client) *PresenceMirror {
	return &PresenceMirror{rdb: rdb}
}

type presenceNotice struct {
	UserID int64 `json:"userId"`
	Online bool  `json:"online"`
}

func (m *PresenceMirror) MarkOnline(ctx context.Context, userID int64) error {
	if m == nil || m.rdb == nil {
		return nil
	}
	member := strconv.FormatInt(userID, 10)
	if err := m.rdb.SAdd(ctx, onlineSetKey, member).Err(); err != nil {
		return errors.Wrap(err, "presence sadd")
	}
	return m.publish(ctx, presenceNotice{UserID: userID, Online: true})
}

func (m *PresenceMirror) MarkOffline(ctx context.Context, userID int64) error {
	if m == nil || m.rdb == nil {
		return nil
	}
	member := strconv.FormatInt(userID, 10)
	if err := m.rdb.SRem(ctx, onlineSetKey, member).Err(); err != nil {
		return errors.Wrap(err, "presence srem")
	}
	return m.publish(ctx, presenceNotice{UserID: userID, Online: false})
}

// OnlineUserIDs reads the mirrored set. Only the REST layer calls this; the
// gateway itself answers from its registry.
func (m *PresenceMirror) OnlineUserIDs(ctx context.Context) ([]int64, error) {
	if m == nil || m.rdb == nil {
		return nil, nil
	}
	members, err := m.rdb.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "presence smembers")
	}
	out := make([]int64, 0, len(members))
	for _, s := range members {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (m *PresenceMirror) publish(ctx context.Context, n presenceNotice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "marshal presence notice")
	}
	return errors.Wrap(m.rdb.Publish(ctx, presenceChannel, payload).Err(), "presence publish")
}
