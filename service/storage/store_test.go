package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marc0cl/domu-backend-sub001/tools/errs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	s := NewStore(db)
	require.NoError(t, s.AutoMigrate())

	require.NoError(t, db.Create(&userRow{ID: 42, FullName: "Marta Soto"}).Error)
	require.NoError(t, db.Create(&userRow{ID: 7, FullName: "Pedro Rojas"}).Error)
	require.NoError(t, db.Create(&roomRow{ID: 5, Name: "Tower A", CreatedAt: time.Now()}).Error)
	require.NoError(t, db.Create(&participantRow{RoomID: 5, UserID: 42}).Error)
	require.NoError(t, db.Create(&participantRow{RoomID: 5, UserID: 7}).Error)
	return s
}

func TestSaveMessageReturnsCanonicalForm(t *testing.T) {
	s := newTestStore(t)

	msg, err := s.SaveMessage(context.Background(), 5, 42, "hola vecinos", KindText, "")
	require.NoError(t, err)

	assert.NotZero(t, msg.ID)
	assert.Equal(t, int64(5), msg.RoomID)
	assert.Equal(t, int64(42), msg.SenderID)
	assert.Equal(t, "Marta Soto", msg.SenderDisplayName)
	assert.Equal(t, "hola vecinos", msg.Content)
	assert.Equal(t, KindText, msg.Kind)
	assert.WithinDuration(t, time.Now(), msg.CreatedAt, 5*time.Second)
	assert.Nil(t, msg.ReadAt)
}

func TestSaveMessageNormalizesKind(t *testing.T) {
	s := newTestStore(t)

	msg, err := s.SaveMessage(context.Background(), 5, 42, "pic", "sticker", "uploads/1.png")
	require.NoError(t, err)
	assert.Equal(t, KindText, msg.Kind)
	assert.Equal(t, "uploads/1.png", msg.AttachmentRef)

	msg, err = s.SaveMessage(context.Background(), 5, 42, "pic", KindImage, "")
	require.NoError(t, err)
	assert.Equal(t, KindImage, msg.Kind)
}

func TestSaveMessageValidation(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveMessage(context.Background(), 5, 42, "", KindText, "")
	assert.ErrorIs(t, err, errs.ErrEmptyContent)

	_, err = s.SaveMessage(context.Background(), 999, 42, "hi", KindText, "")
	assert.ErrorIs(t, err, errs.ErrRoomNotFound)
}

func TestParticipantIDs(t *testing.T) {
	s := newTestStore(t)

	ids, err := s.ParticipantIDs(context.Background(), 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{42, 7}, ids)

	ids, err = s.ParticipantIDs(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSaveMessageUnknownSenderStillPersists(t *testing.T) {
	// The session was authenticated, so a missing user row (e.g. resident
	// deleted mid-session) must not lose the message.
	s := newTestStore(t)

	msg, err := s.SaveMessage(context.Background(), 5, 1000, "hi", KindText, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), msg.SenderID)
	assert.Empty(t, msg.SenderDisplayName)
}
