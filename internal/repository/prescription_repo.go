package repository

import (
	"context"

	"officine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PrescriptionFilter struct {
	ClientID *uuid.UUID
	Status   string
	Page     int
	Limit    int
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *model.Prescription) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
	List(ctx context.Context, filter PrescriptionFilter) ([]model.Prescription, int64, error)

	// TransitionTx persists p only if its stored status is still from.
	// replaceItems rewrites the medication lines as well.
	TransitionTx(tx *gorm.DB, p *model.Prescription, from string, replaceItems bool) error

	DB() *gorm.DB
}

type prescriptionRepo struct{ db *gorm.DB }

func NewPrescriptionRepository(db *gorm.DB) PrescriptionRepository {
	return &prescriptionRepo{db: db}
}

func (r *prescriptionRepo) DB() *gorm.DB { return r.db }

func (r *prescriptionRepo) Create(ctx context.Context, p *model.Prescription) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *prescriptionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	var p model.Prescription
	err := r.db.WithContext(ctx).Preload("Items").Preload("Client").First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prescriptionRepo) List(ctx context.Context, filter PrescriptionFilter) ([]model.Prescription, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Prescription{})
	if filter.ClientID != nil {
		q = q.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	_, limit, offset := Page(filter.Page, filter.Limit, 50, 200)
	var list []model.Prescription
	err := q.Preload("Items").Preload("Client").
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (r *prescriptionRepo) TransitionTx(tx *gorm.DB, p *model.Prescription, from string, replaceItems bool) error {
	db := conn(r.db, tx)
	res := db.Model(&model.Prescription{}).
		Where("id = ? AND status = ?", p.ID, from).
		Updates(map[string]interface{}{
			"status":         p.Status,
			"note":           p.Note,
			"total":          p.Total,
			"payment_method": p.PaymentMethod,
			"handled_by":     p.HandledBy,
			"validated_at":   p.ValidatedAt,
			"prepared_at":    p.PreparedAt,
			"delivered_at":   p.DeliveredAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	if !replaceItems {
		return nil
	}
	if err := db.Where("prescription_id = ?", p.ID).Delete(&model.PrescriptionItem{}).Error; err != nil {
		return err
	}
	for i := range p.Items {
		p.Items[i].PrescriptionID = p.ID
	}
	if len(p.Items) == 0 {
		return nil
	}
	return db.Create(&p.Items).Error
}
