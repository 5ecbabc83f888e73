package models

import (
	"encoding/json"
	"errors"
)

type MessageType string

const (
	TypeSync           MessageType = "sync"
	TypeCodeChange     MessageType = "code_change"
	TypeCursorPosition MessageType = "cursor_position"
	TypeUserTyping     MessageType = "user_typing"
	TypeUserJoined     MessageType = "user_joined"
	TypeUserLeft       MessageType = "user_left"
)

// Message is an outbound protocol unit. Implementations are plain values
// built by the New* constructors and never modified afterwards.
type Message interface {
	Kind() MessageType
}

type SyncMessage struct {
	Type  MessageType `json:"type"`
	Code  string      `json:"code"`
	Users []string    `json:"users"`
}

type CodeChangeMessage struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	UserID string      `json:"user_id"`
}

type CursorPositionMessage struct {
	Type     MessageType `json:"type"`
	Position int         `json:"position"`
	UserID   string      `json:"user_id"`
}

type UserTypingMessage struct {
	Type     MessageType `json:"type"`
	UserID   string      `json:"user_id"`
	IsTyping bool        `json:"is_typing"`
}

// PresenceMessage carries user_joined and user_left.
type PresenceMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
	Users  []string    `json:"users"`
}

func (m SyncMessage) Kind() MessageType           { return m.Type }
func (m CodeChangeMessage) Kind() MessageType     { return m.Type }
func (m CursorPositionMessage) Kind() MessageType { return m.Type }
func (m UserTypingMessage) Kind() MessageType     { return m.Type }
func (m PresenceMessage) Kind() MessageType       { return m.Type }

func NewSync(code string, users []string) SyncMessage {
	return SyncMessage{Type: TypeSync, Code: code, Users: cloneUsers(users)}
}

func NewCodeChange(code, userID string) CodeChangeMessage {
	return CodeChangeMessage{Type: TypeCodeChange, Code: code, UserID: userID}
}

func NewCursorPosition(position int, userID string) CursorPositionMessage {
	return CursorPositionMessage{Type: TypeCursorPosition, Position: position, UserID: userID}
}

func NewUserTyping(userID string, isTyping bool) UserTypingMessage {
	return UserTypingMessage{Type: TypeUserTyping, UserID: userID, IsTyping: isTyping}
}

func NewUserJoined(userID string, users []string) PresenceMessage {
	return PresenceMessage{Type: TypeUserJoined, UserID: userID, Users: cloneUsers(users)}
}

func NewUserLeft(userID string, users []string) PresenceMessage {
	return PresenceMessage{Type: TypeUserLeft, UserID: userID, Users: cloneUsers(users)}
}

// cloneUsers copies the roster so later registry changes cannot leak into a
// message that has already been built. The result is never nil so the field
// always encodes as a JSON array.
func cloneUsers(users []string) []string {
	out := make([]string, len(users))
	copy(out, users)
	return out
}

// ErrMalformedMessage is returned for payloads that are not a JSON object.
var ErrMalformedMessage = errors.New("malformed message")

// Inbound is a client-to-server payload. Optional fields are pointers so the
// dispatcher can tell "absent" from a zero value.
type Inbound struct {
	Type     MessageType `json:"type"`
	Code     *string     `json:"code"`
	Position *int        `json:"position"`
	IsTyping *bool       `json:"is_typing"`
}

// ParseInbound decodes one client frame. Unknown fields are ignored.
func ParseInbound(data []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Inbound{}, errors.Join(ErrMalformedMessage, err)
	}
	return in, nil
}
