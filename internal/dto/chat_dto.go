package dto

import "time"

type SendMessageRequest struct {
	RecipientID string `json:"recipientId" validate:"required,uuid"`
	Body        string `json:"body"        validate:"required,min=1,max=4000"`
}

type EditMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=4000"`
}

type ChatMessageResponse struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Body        string    `json:"body"`
	Edited      bool      `json:"edited"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MessageDeleted is the payload of the message-deleted event.
type MessageDeleted struct {
	ID          string `json:"id"`
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
}
