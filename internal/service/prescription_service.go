package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"officine/internal/apierror"
	"officine/internal/dto"
	"officine/internal/infra"
	"officine/internal/metrics"
	"officine/internal/model"
	"officine/internal/realtime"
	"officine/internal/repository"
	"officine/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ImageStore keeps prescription scans.
type ImageStore interface {
	Save(r io.Reader) (name, contentType string, err error)
	Open(name string) (io.ReadCloser, error)
	Remove(name string) error
}

// Mailer enqueues notification e-mails.
type Mailer interface {
	EnqueueEmail(ctx context.Context, payload worker.EmailJobPayload) error
}

type PrescriptionService interface {
	Submit(ctx context.Context, clientID uuid.UUID, image io.Reader) (*dto.PrescriptionResponse, error)
	Validate(ctx context.Context, staffID, id uuid.UUID, req dto.ValidatePrescriptionRequest) (*dto.PrescriptionResponse, error)
	Reject(ctx context.Context, staffID, id uuid.UUID, note *string) (*dto.PrescriptionResponse, error)
	Prepare(ctx context.Context, staffID, id uuid.UUID) (*dto.PrescriptionResponse, error)
	RecordPayment(ctx context.Context, staffID, id uuid.UUID, method string) (*dto.PrescriptionResponse, error)
	// UpdateStatus dispatches to the operation matching req.Status.
	UpdateStatus(ctx context.Context, staffID, id uuid.UUID, req dto.UpdatePrescriptionRequest) (*dto.PrescriptionResponse, error)

	Get(ctx context.Context, caller Actor, id uuid.UUID) (*dto.PrescriptionResponse, error)
	Image(ctx context.Context, caller Actor, id uuid.UUID) (io.ReadCloser, string, error)
	ListAll(ctx context.Context, filter dto.PrescriptionFilter) (*dto.PrescriptionListResponse, error)
	ListMine(ctx context.Context, clientID uuid.UUID, filter dto.PrescriptionFilter) (*dto.PrescriptionListResponse, error)
}

type prescriptionService struct {
	repo         repository.PrescriptionRepository
	users        repository.UserRepository
	ledger       ledger
	images       ImageStore
	events       realtime.Publisher
	mail         Mailer
	pharmacyName string
	now          func() time.Time
}

func NewPrescriptionService(
	repo repository.PrescriptionRepository,
	users repository.UserRepository,
	products repository.ProductRepository,
	movements repository.StockMovementRepository,
	images ImageStore,
	events realtime.Publisher,
	mail Mailer,
	pharmacyName string,
) PrescriptionService {
	return &prescriptionService{
		repo:         repo,
		users:        users,
		ledger:       ledger{products: products, movements: movements},
		images:       images,
		events:       events,
		mail:         mail,
		pharmacyName: pharmacyName,
		now:          time.Now,
	}
}

func mapPrescription(p *model.Prescription) dto.PrescriptionResponse {
	resp := dto.PrescriptionResponse{
		ID:            p.ID.String(),
		ClientID:      p.ClientID.String(),
		Status:        p.Status,
		Description:   p.Note,
		Medications:   make([]dto.PrescriptionItemResponse, len(p.Items)),
		Total:         p.Total,
		PaymentMethod: p.PaymentMethod,
		ImageURL:      "/api/prescriptions/" + p.ID.String() + "/image",
		ValidatedAt:   p.ValidatedAt,
		PreparedAt:    p.PreparedAt,
		DeliveredAt:   p.DeliveredAt,
		CreatedAt:     p.CreatedAt,
	}
	if p.Client != nil {
		resp.ClientName = p.Client.FullName
	}
	for i, it := range p.Items {
		resp.Medications[i] = dto.PrescriptionItemResponse{
			ProductID:   it.ProductID.String(),
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Available:   it.Available,
		}
	}
	return resp
}

func (s *prescriptionService) Submit(ctx context.Context, clientID uuid.UUID, image io.Reader) (*dto.PrescriptionResponse, error) {
	if image == nil {
		return nil, apierror.FieldErrors(map[string]string{"image": "required"})
	}
	client, err := s.users.FindByID(ctx, clientID)
	if err != nil {
		return nil, translate(err, "client")
	}

	name, contentType, err := s.images.Save(image)
	switch {
	case errors.Is(err, infra.ErrUnsupportedUpload):
		return nil, apierror.FieldErrors(map[string]string{"image": "image or pdf"})
	case errors.Is(err, infra.ErrUploadTooLarge):
		return nil, apierror.FieldErrors(map[string]string{"image": "max size"})
	case err != nil:
		return nil, err
	}

	p := &model.Prescription{
		ClientID:  clientID,
		ImagePath: name,
		ImageType: contentType,
		Status:    model.PrescriptionPending,
		Total:     decimal.Zero,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if rmErr := s.images.Remove(name); rmErr != nil {
			log.Warn().Err(rmErr).Str("image", name).Msg("orphan scan not removed")
		}
		return nil, err
	}
	p.Client = client

	resp := mapPrescription(p)
	metrics.PrescriptionTransitions.WithLabelValues(model.PrescriptionPending).Inc()
	s.events.Publish(realtime.EventNewPrescription, resp, realtime.StaffRooms...)
	return &resp, nil
}

// load fetches the prescription and checks that it may move to next.
func (s *prescriptionService) load(ctx context.Context, id uuid.UUID, next string) (*model.Prescription, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "prescription")
	}
	if !model.PrescriptionCanMove(p.Status, next) {
		return nil, apierror.InvalidState(fmt.Sprintf("cannot move prescription from %s to %s", p.Status, next))
	}
	return p, nil
}

func (s *prescriptionService) Validate(ctx context.Context, staffID, id uuid.UUID, req dto.ValidatePrescriptionRequest) (*dto.PrescriptionResponse, error) {
	if len(req.Medications) == 0 {
		return nil, apierror.FieldErrors(map[string]string{"medications": "required"})
	}
	p, err := s.load(ctx, id, model.PrescriptionValidated)
	if err != nil {
		return nil, err
	}

	items := make([]model.PrescriptionItem, 0, len(req.Medications))
	demand := make(map[uuid.UUID]int, len(req.Medications))
	stock := make(map[uuid.UUID]int, len(req.Medications))
	total := decimal.Zero
	for i, line := range req.Medications {
		field := fmt.Sprintf("medications[%d]", i)
		productID, err := parseID(line.ProductID, field+".productId")
		if err != nil {
			return nil, err
		}
		if line.Quantity < 1 {
			return nil, apierror.FieldErrors(map[string]string{field + ".quantity": "min"})
		}
		product, err := s.ledger.products.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierror.Validation("unknown product " + line.ProductID)
			}
			return nil, err
		}
		items = append(items, model.PrescriptionItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.PriceTTC,
		})
		stock[product.ID] = product.Stock
		if !product.Active {
			stock[product.ID] = 0
		}
		demand[product.ID] += line.Quantity
		total = total.Add(product.PriceTTC.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	// availability is judged on the total asked per product, as payment does
	for i := range items {
		items[i].Available = stock[items[i].ProductID] >= demand[items[i].ProductID]
	}

	from := p.Status
	now := s.now()
	p.Status = model.PrescriptionValidated
	p.Items = items
	p.Total = total
	p.Note = req.Description
	p.HandledBy = &staffID
	p.ValidatedAt = &now
	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.TransitionTx(tx, p, from, true)
	}); err != nil {
		return nil, translate(err, "prescription")
	}
	return s.emit(p, realtime.EventPrescriptionValidated, realtime.UserRoom(p.ClientID.String()), realtime.RoomPharmacist), nil
}

func (s *prescriptionService) Reject(ctx context.Context, staffID, id uuid.UUID, note *string) (*dto.PrescriptionResponse, error) {
	p, err := s.load(ctx, id, model.PrescriptionRejected)
	if err != nil {
		return nil, err
	}
	from := p.Status
	p.Status = model.PrescriptionRejected
	p.Note = note
	p.HandledBy = &staffID
	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.TransitionTx(tx, p, from, false)
	}); err != nil {
		return nil, translate(err, "prescription")
	}
	return s.emit(p, realtime.EventPrescriptionRejected, realtime.UserRoom(p.ClientID.String())), nil
}

func (s *prescriptionService) Prepare(ctx context.Context, staffID, id uuid.UUID) (*dto.PrescriptionResponse, error) {
	p, err := s.load(ctx, id, model.PrescriptionPrepared)
	if err != nil {
		return nil, err
	}
	from := p.Status
	now := s.now()
	p.Status = model.PrescriptionPrepared
	p.HandledBy = &staffID
	p.PreparedAt = &now
	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.TransitionTx(tx, p, from, false)
	}); err != nil {
		return nil, translate(err, "prescription")
	}

	resp := s.emit(p, realtime.EventPrescriptionPrepared, realtime.UserRoom(p.ClientID.String()))
	s.notifyReady(ctx, p)
	return resp, nil
}

// notifyReady queues the "ready for pickup" e-mail. Failures only log.
func (s *prescriptionService) notifyReady(ctx context.Context, p *model.Prescription) {
	if p.Client == nil || p.Client.Email == "" {
		return
	}
	body := fmt.Sprintf(
		"Hello %s,\n\nYour prescription is ready for pickup at %s.\nAmount due: %s EUR.\n",
		p.Client.FullName, s.pharmacyName, p.Total.StringFixed(2),
	)
	err := s.mail.EnqueueEmail(ctx, worker.EmailJobPayload{
		ToEmail: p.Client.Email,
		Subject: "Your prescription is ready",
		Body:    body,
	})
	switch {
	case errors.Is(err, worker.ErrQueueDisabled):
		log.Debug().Str("prescription_id", p.ID.String()).Msg("e-mail disabled, ready notice skipped")
	case err != nil:
		log.Warn().Err(err).Str("prescription_id", p.ID.String()).Msg("ready e-mail not queued")
	}
}

// RecordPayment hands the medication over: every line is locked and checked
// first, then the status moves and stock is decremented, all in one
// transaction. A short line fails the whole payment.
func (s *prescriptionService) RecordPayment(ctx context.Context, staffID, id uuid.UUID, method string) (*dto.PrescriptionResponse, error) {
	switch method {
	case "cash", "card", "insurance":
	default:
		return nil, apierror.FieldErrors(map[string]string{"paymentMethod": "oneof"})
	}
	p, err := s.load(ctx, id, model.PrescriptionDelivered)
	if err != nil {
		return nil, err
	}

	demand := make(map[uuid.UUID]int, len(p.Items))
	for _, it := range p.Items {
		demand[it.ProductID] += it.Quantity
	}

	from := p.Status
	now := s.now()
	p.Status = model.PrescriptionDelivered
	p.PaymentMethod = &method
	p.HandledBy = &staffID
	p.DeliveredAt = &now
	var changed []repository.StockChange

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if _, err := s.ledger.lockAll(tx, demand); err != nil {
			return err
		}
		if err := s.repo.TransitionTx(tx, p, from, false); err != nil {
			return err
		}
		for _, it := range p.Items {
			change, _, err := s.ledger.apply(tx, stockEntry{
				productID: it.ProductID,
				kind:      model.MovementOut,
				delta:     -it.Quantity,
				reason:    "prescription delivered",
				reference: &p.ID,
				user:      &staffID,
			})
			if err != nil {
				return err
			}
			changed = append(changed, *change)
		}
		return nil
	})
	if txErr != nil {
		return nil, stockConflict(txErr, "prescription")
	}

	resp := s.emit(p, realtime.EventPrescriptionDelivered, realtime.UserRoom(p.ClientID.String()))
	for i := range changed {
		alertIfLow(s.events, &changed[i].Product)
	}
	return resp, nil
}

func (s *prescriptionService) UpdateStatus(ctx context.Context, staffID, id uuid.UUID, req dto.UpdatePrescriptionRequest) (*dto.PrescriptionResponse, error) {
	switch req.Status {
	case model.PrescriptionValidated:
		return s.Validate(ctx, staffID, id, dto.ValidatePrescriptionRequest{
			Medications: req.Medications,
			Description: req.Description,
		})
	case model.PrescriptionRejected:
		return s.Reject(ctx, staffID, id, req.Description)
	case model.PrescriptionPrepared:
		return s.Prepare(ctx, staffID, id)
	case model.PrescriptionDelivered:
		if req.PaymentMethod == nil {
			return nil, apierror.FieldErrors(map[string]string{"paymentMethod": "required"})
		}
		return s.RecordPayment(ctx, staffID, id, *req.PaymentMethod)
	}
	return nil, apierror.FieldErrors(map[string]string{"status": "oneof"})
}

func (s *prescriptionService) emit(p *model.Prescription, event string, rooms ...string) *dto.PrescriptionResponse {
	resp := mapPrescription(p)
	metrics.PrescriptionTransitions.WithLabelValues(p.Status).Inc()
	s.events.Publish(event, resp, rooms...)
	return &resp
}

func (s *prescriptionService) readable(ctx context.Context, caller Actor, id uuid.UUID) (*model.Prescription, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "prescription")
	}
	if !caller.Role.IsStaff() && p.ClientID != caller.ID {
		return nil, apierror.Forbidden("not your prescription")
	}
	return p, nil
}

func (s *prescriptionService) Get(ctx context.Context, caller Actor, id uuid.UUID) (*dto.PrescriptionResponse, error) {
	p, err := s.readable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	resp := mapPrescription(p)
	return &resp, nil
}

func (s *prescriptionService) Image(ctx context.Context, caller Actor, id uuid.UUID) (io.ReadCloser, string, error) {
	p, err := s.readable(ctx, caller, id)
	if err != nil {
		return nil, "", err
	}
	rc, err := s.images.Open(p.ImagePath)
	if err != nil {
		return nil, "", apierror.NotFound("prescription image not found")
	}
	return rc, p.ImageType, nil
}

func (s *prescriptionService) ListAll(ctx context.Context, filter dto.PrescriptionFilter) (*dto.PrescriptionListResponse, error) {
	return s.list(ctx, repository.PrescriptionFilter{Status: filter.Status, Page: filter.Page, Limit: filter.Limit})
}

func (s *prescriptionService) ListMine(ctx context.Context, clientID uuid.UUID, filter dto.PrescriptionFilter) (*dto.PrescriptionListResponse, error) {
	return s.list(ctx, repository.PrescriptionFilter{ClientID: &clientID, Status: filter.Status, Page: filter.Page, Limit: filter.Limit})
}

func (s *prescriptionService) list(ctx context.Context, f repository.PrescriptionFilter) (*dto.PrescriptionListResponse, error) {
	if f.Status != "" && !validPrescriptionStatus(f.Status) {
		return nil, apierror.FieldErrors(map[string]string{"status": "oneof"})
	}
	list, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PrescriptionResponse, len(list))
	for i := range list {
		out[i] = mapPrescription(&list[i])
	}
	return &dto.PrescriptionListResponse{Prescriptions: out, Total: total}, nil
}

func validPrescriptionStatus(s string) bool {
	switch s {
	case model.PrescriptionPending, model.PrescriptionValidated, model.PrescriptionRejected,
		model.PrescriptionPrepared, model.PrescriptionDelivered:
		return true
	}
	return false
}
