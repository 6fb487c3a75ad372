package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marc0cl/domu-backend-sub001/tools/errs"
)

// ChatMessage is the canonical persisted message the gateway relays. It is
// created here and never mutated afterwards.
type ChatMessage struct {
	ID                int64      `json:"id"`
	RoomID            int64      `json:"roomId"`
	SenderID          int64      `json:"senderId"`
	SenderDisplayName string     `json:"senderDisplayName"`
	Content           string     `json:"content"`
	Kind              string     `json:"kind"`
	AttachmentRef     string     `json:"attachmentRef,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	ReadAt            *time.Time `json:"readAt,omitempty"`
}

// Message kinds the mobile clients send today.
const (
	KindText  = "text"
	KindImage = "image"
	KindAudio = "audio"
)

func normalizeKind(kind string) string {
	switch kind {
	case KindText, KindImage, KindAudio:
		return kind
	default:
		return KindText
	}
}

// Rows below mirror the tables the CRUD layer owns; the gateway only reads
// rooms/participants/users and appends messages.

type userRow struct {
	ID       int64  `gorm:"primaryKey"`
	FullName string `gorm:"column:full_name"`
}

func (userRow) TableName() string { return "users" }

type roomRow struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"column:name"`
	CreatedAt time.Time
}

func (roomRow) TableName() string { return "chat_rooms" }

type participantRow struct {
	RoomID int64 `gorm:"column:room_id;primaryKey"`
	UserID int64 `gorm:"column:user_id;primaryKey"`
}

func (participantRow) TableName() string { return "chat_room_participants" }

type messageRow struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	RoomID        int64  `gorm:"column:room_id;index"`
	SenderID      int64  `gorm:"column:sender_id"`
	Content       string `gorm:"column:content"`
	Kind          string `gorm:"column:kind"`
	AttachmentRef string `gorm:"column:attachment_ref"`
	CreatedAt     time.Time
	ReadAt        *time.Time `gorm:"column:read_at"`
}

func (messageRow) TableName() string { return "chat_messages" }

// Open connects to the chat database with the DSN the rest of the backend uses.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open chat database")
	}
	return db, nil
}

// Store answers the two questions the gateway has: persist a message, and who
// belongs to a room.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates the chat tables. The deployed backend migrates them
// elsewhere; this keeps dev and tests self-contained.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&userRow{}, &roomRow{}, &participantRow{}, &messageRow{})
}

// SaveMessage persists one message and returns its canonical representation,
// sender display name included.
func (s *Store) SaveMessage(ctx context.Context, roomID, senderID int64, content, kind, attachmentRef string) (*ChatMessage, error) {
	if content == "" {
		return nil, errs.ErrEmptyContent
	}

	var room roomRow
	if err := s.db.WithContext(ctx).First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrRoomNotFound
		}
		return nil, errors.Wrap(err, "load room")
	}

	row := messageRow{
		RoomID:        roomID,
		SenderID:      senderID,
		Content:       content,
		Kind:          normalizeKind(kind),
		AttachmentRef: attachmentRef,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, errs.ErrPersistence.WithDetail(err.Error())
	}

	var sender userRow
	if err := s.db.WithContext(ctx).First(&sender, senderID).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "load sender")
	}

	return &ChatMessage{
		ID:                row.ID,
		RoomID:            row.RoomID,
		SenderID:          row.SenderID,
		SenderDisplayName: sender.FullName,
		Content:           row.Content,
		Kind:              row.Kind,
		AttachmentRef:     row.AttachmentRef,
		CreatedAt:         row.CreatedAt,
		ReadAt:            row.ReadAt,
	}, nil
}

// ParticipantIDs returns the user ids of everyone in the room, never cached.
func (s *Store) ParticipantIDs(ctx context.Context, roomID int64) ([]int64, error) {
	var out []int64
	err := s.db.WithContext(ctx).
		Model(&participantRow{}).
		Where("room_id = ?", roomID).
		Pluck("user_id", &out).Error
	if err != nil {
		return nil, errors.Wrap(err, "list participants")
	}
	return out, nil
}
