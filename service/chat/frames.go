package chat

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/marc0cl/domu-backend-sub001/service/storage"
	"github.com/marc0cl/domu-backend-sub001/tools/errs"
)

// Frame types on the wire.
const (
	FrameSendMsg    = "SEND_MSG"
	FrameTyping     = "TYPING"
	FrameNewMessage = "NEW_MESSAGE"
	FramePresence   = "PRESENCE"
	FrameError      = "ERROR"
)

// ParseFrame decodes one inbound JSON frame into its type plus the raw field
// map; per-type payloads are decoded separately with DecodePayload.
func ParseFrame(raw []byte) (string, map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", nil, errs.ErrBadFrame.WithDetail(err.Error())
	}
	t, ok := fields["type"].(string)
	if !ok || t == "" {
		return "", nil, errs.ErrBadFrame.WithDetail("type field missing")
	}
	return t, fields, nil
}

// DecodePayload maps the frame fields onto a typed payload. Weakly typed input
// keeps older clients that send roomId as a string working.
func DecodePayload[T any](fields map[string]any) (*T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new decoder")
	}
	if err := dec.Decode(fields); err != nil {
		return nil, errs.ErrBadFrame.WithDetail(err.Error())
	}
	return &out, nil
}

// SendMsgPayload is the inbound chat frame. The sender identity never comes
// from here; it is taken from the authenticated session.
type SendMsgPayload struct {
	RoomID        int64  `json:"roomId"`
	Content       string `json:"content"`
	MsgType       string `json:"msgType"`
	AttachmentRef string `json:"attachmentRef"`
}

// ---- outbound frame builders ----

type newMessageFrame struct {
	Type    string               `json:"type"`
	RoomID  int64                `json:"roomId"`
	Message *storage.ChatMessage `json:"message"`
}

type presenceFrame struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
	Online bool   `json:"online"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func BuildNewMessage(msg *storage.ChatMessage) []byte {
	data, _ := json.Marshal(newMessageFrame{Type: FrameNewMessage, RoomID: msg.RoomID, Message: msg})
	return data
}

func BuildPresence(userID int64, online bool) []byte {
	data, _ := json.Marshal(presenceFrame{Type: FramePresence, UserID: userID, Online: online})
	return data
}

func BuildError(msg string) []byte {
	data, _ := json.Marshal(errorFrame{Type: FrameError, Error: msg})
	return data
}
