package repository

import (
	"context"

	"officine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatRepository interface {
	Create(ctx context.Context, m *model.ChatMessage) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ChatMessage, error)
	// Conversation returns messages exchanged between a and b, oldest first.
	Conversation(ctx context.Context, a, b uuid.UUID, limit int) ([]model.ChatMessage, error)
	Update(ctx context.Context, m *model.ChatMessage) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type chatRepo struct{ db *gorm.DB }

func NewChatRepository(db *gorm.DB) ChatRepository { return &chatRepo{db: db} }

func (r *chatRepo) Create(ctx context.Context, m *model.ChatMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *chatRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ChatMessage, error) {
	var m model.ChatMessage
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *chatRepo) Conversation(ctx context.Context, a, b uuid.UUID, limit int) ([]model.ChatMessage, error) {
	_, limit, _ = Page(1, limit, 200, 1000)
	var msgs []model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a).
		Order("created_at ASC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

func (r *chatRepo) Update(ctx context.Context, m *model.ChatMessage) error {
	return r.db.WithContext(ctx).Model(&model.ChatMessage{}).Where("id = ?", m.ID).
		Updates(map[string]interface{}{"body": m.Body, "edited": m.Edited}).Error
}

func (r *chatRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.ChatMessage{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
