package entity

import "errors"

// PushMessage is what a push transport delivers for one NotificationRecord.
type PushMessage struct {
	NotificationID string            `json:"notificationId" binding:"required"`
	PassengerID    string            `json:"passengerId" binding:"required"`
	Title          string            `json:"title" binding:"required"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data,omitempty"`
}

// Validate checks the fields every transport needs.
func (m PushMessage) Validate() error {
	if m.NotificationID == "" || m.PassengerID == "" {
		return errors.New("push message must carry notification and passenger ids")
	}
	if m.Title == "" && m.Body == "" {
		return errors.New("push message must have a title or a body")
	}
	return nil
}

// PushResponse mirrors the gateway's JSON envelope.
type PushResponse struct {
	Success bool `json:"success"`
	Data    struct {
		MessageID string `json:"messageId"`
		Status    string `json:"status"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}
