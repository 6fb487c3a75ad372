package errs

import (
	"errors"
	"fmt"
)

// Gateway error codes. 11xx auth, 12xx rooms/messages, 13xx infrastructure.
var (
	ErrTokenMissing = NewCodeError(1101, "token missing")
	ErrTokenInvalid = NewCodeError(1102, "invalid token")
	ErrTokenExpired = NewCodeError(1103, "token expired")
	ErrBadIdentity  = NewCodeError(1104, "malformed user identity")
	ErrRoomNotFound = NewCodeError(1201, "room not found")
	ErrEmptyContent = NewCodeError(1202, "empty message content")
	ErrPersistence  = NewCodeError(1301, "message persistence failed")
	ErrBadFrame     = NewCodeError(1302, "malformed frame")
)

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e *CodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("[%d] %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Msg, e.Detail)
}

// WithDetail returns a copy carrying extra context; the shared sentinel stays untouched.
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// Is matches on code so wrapped/detailed copies compare equal to their sentinel.
func (e *CodeError) Is(target error) bool {
	var ce *CodeError
	if !errors.As(target, &ce) {
		return false
	}
	return ce.Code == e.Code
}
