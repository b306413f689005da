package service

import (
	"context"
	"errors"
	"strings"

	"officine/internal/apierror"
	"officine/internal/dto"
	"officine/internal/model"
	"officine/internal/realtime"
	"officine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatService interface {
	Send(ctx context.Context, senderID uuid.UUID, req dto.SendMessageRequest) (*dto.ChatMessageResponse, error)
	Conversation(ctx context.Context, me, other uuid.UUID, limit int) ([]dto.ChatMessageResponse, error)
	Edit(ctx context.Context, me, id uuid.UUID, req dto.EditMessageRequest) (*dto.ChatMessageResponse, error)
	Delete(ctx context.Context, me, id uuid.UUID) error
}

type chatService struct {
	repo   repository.ChatRepository
	users  repository.UserRepository
	events realtime.Publisher
}

func NewChatService(repo repository.ChatRepository, users repository.UserRepository, events realtime.Publisher) ChatService {
	return &chatService{repo: repo, users: users, events: events}
}

func mapMessage(m *model.ChatMessage) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		ID:          m.ID.String(),
		SenderID:    m.SenderID.String(),
		RecipientID: m.RecipientID.String(),
		Body:        m.Body,
		Edited:      m.Edited,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func participants(m *model.ChatMessage) []string {
	return []string{realtime.UserRoom(m.SenderID.String()), realtime.UserRoom(m.RecipientID.String())}
}

func (s *chatService) Send(ctx context.Context, senderID uuid.UUID, req dto.SendMessageRequest) (*dto.ChatMessageResponse, error) {
	recipientID, err := parseID(req.RecipientID, "recipientId")
	if err != nil {
		return nil, err
	}
	if recipientID == senderID {
		return nil, apierror.Validation("cannot send a message to yourself")
	}
	recipient, err := s.users.FindByID(ctx, recipientID)
	if err != nil {
		return nil, translate(err, "recipient")
	}
	if !recipient.Active {
		return nil, apierror.NotFound("recipient not found")
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, apierror.FieldErrors(map[string]string{"body": "required"})
	}

	m := &model.ChatMessage{SenderID: senderID, RecipientID: recipientID, Body: body}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	resp := mapMessage(m)
	s.events.Publish(realtime.EventNewMessage, resp, participants(m)...)
	return &resp, nil
}

func (s *chatService) Conversation(ctx context.Context, me, other uuid.UUID, limit int) ([]dto.ChatMessageResponse, error) {
	msgs, err := s.repo.Conversation(ctx, me, other, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ChatMessageResponse, len(msgs))
	for i := range msgs {
		out[i] = mapMessage(&msgs[i])
	}
	return out, nil
}

func (s *chatService) own(ctx context.Context, me, id uuid.UUID) (*model.ChatMessage, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("message not found")
		}
		return nil, err
	}
	if m.SenderID != me {
		return nil, apierror.Forbidden("only the sender can change a message")
	}
	return m, nil
}

func (s *chatService) Edit(ctx context.Context, me, id uuid.UUID, req dto.EditMessageRequest) (*dto.ChatMessageResponse, error) {
	m, err := s.own(ctx, me, id)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, apierror.FieldErrors(map[string]string{"body": "required"})
	}
	m.Body = body
	m.Edited = true
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, translate(err, "message")
	}
	resp := mapMessage(m)
	s.events.Publish(realtime.EventMessageUpdated, resp, participants(m)...)
	return &resp, nil
}

func (s *chatService) Delete(ctx context.Context, me, id uuid.UUID) error {
	m, err := s.own(ctx, me, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translate(err, "message")
	}
	s.events.Publish(realtime.EventMessageDeleted, dto.MessageDeleted{
		ID:          m.ID.String(),
		SenderID:    m.SenderID.String(),
		RecipientID: m.RecipientID.String(),
	}, participants(m)...)
	return nil
}
