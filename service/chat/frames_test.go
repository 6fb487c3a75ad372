package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marc0cl/domu-backend-sub001/service/storage"
	"github.com/marc0cl/domu-backend-sub001/tools/errs"
)

func TestParseFrameSendMsg(t *testing.T) {
	raw := []byte(`{"type":"SEND_MSG","roomId":5,"content":"hi","msgType":"text"}`)

	frameType, fields, err := ParseFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, FrameSendMsg, frameType)

	p, err := DecodePayload[SendMsgPayload](fields)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.RoomID)
	assert.Equal(t, "hi", p.Content)
	assert.Equal(t, "text", p.MsgType)
}

func TestDecodePayloadWeakTyping(t *testing.T) {
	// Older clients send roomId as a string.
	_, fields, err := ParseFrame([]byte(`{"type":"SEND_MSG","roomId":"12","content":"x"}`))
	require.NoError(t, err)

	p, err := DecodePayload[SendMsgPayload](fields)
	require.NoError(t, err)
	assert.Equal(t, int64(12), p.RoomID)
}

func TestParseFrameRejectsBadInput(t *testing.T) {
	_, _, err := ParseFrame([]byte(`{not json`))
	assert.ErrorIs(t, err, errs.ErrBadFrame)

	_, _, err = ParseFrame([]byte(`{"roomId":5}`))
	assert.ErrorIs(t, err, errs.ErrBadFrame)

	_, _, err = ParseFrame([]byte(`{"type":""}`))
	assert.ErrorIs(t, err, errs.ErrBadFrame)
}

func TestBuildPresenceWireFormat(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal(BuildPresence(7, true), &m))
	assert.Equal(t, FramePresence, m["type"])
	assert.Equal(t, float64(7), m["userId"])
	assert.Equal(t, true, m["online"])
}

func TestBuildNewMessageWireFormat(t *testing.T) {
	msg := &storage.ChatMessage{ID: 1, RoomID: 5, SenderID: 42, Content: "hi", Kind: storage.KindText}

	var m map[string]any
	require.NoError(t, json.Unmarshal(BuildNewMessage(msg), &m))
	assert.Equal(t, FrameNewMessage, m["type"])
	assert.Equal(t, float64(5), m["roomId"])

	inner, ok := m["message"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", inner["content"])
	assert.Equal(t, float64(42), inner["senderId"])
}
