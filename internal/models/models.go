package models

import "strings"

// Room is a point-in-time copy of a room's shared buffer and roster.
type Room struct {
	Code  string   `json:"code"`
	Users []string `json:"users"`
}

/*** HTTP surface ***/

type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
}

type RoomResponse struct {
	RoomID            string   `json:"room_id"`
	Code              string   `json:"code"`
	Users             []string `json:"users"`
	ActiveConnections int      `json:"active_connections"`
}

type SuggestRequest struct {
	Code           string `json:"code"`
	CursorPosition int    `json:"cursor_position"`
	Language       string `json:"language"`
}

// Validate implements middleware.Validator.
func (r *SuggestRequest) Validate() error {
	if r.CursorPosition < 0 {
		return &ErrorResponse{
			Code:    "invalid_cursor_position",
			Message: "cursor_position must not be negative",
		}
	}
	r.Language = strings.ToLower(strings.TrimSpace(r.Language))
	if r.Language == "" {
		r.Language = "python"
	}
	return nil
}

type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string { return e.Message }
