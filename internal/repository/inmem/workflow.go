package inmem

import (
	"context"
	"time"

	"officine/internal/model"
	"officine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── Prescriptions ────────────────────────────────────────────────────────────

type Prescriptions struct{ s *Store }

func NewPrescriptions(s *Store) *Prescriptions { return &Prescriptions{s: s} }

var _ repository.PrescriptionRepository = (*Prescriptions)(nil)

func (r *Prescriptions) DB() *gorm.DB { return nil }

// withClient attaches the client row the way Preload("Client") would.
func (r *Prescriptions) withClient(p model.Prescription) model.Prescription {
	if u, ok := r.s.users[p.ClientID]; ok {
		cp := u
		p.Client = &cp
	}
	p.Items = append([]model.PrescriptionItem(nil), p.Items...)
	return p
}

func (r *Prescriptions) Create(_ context.Context, p *model.Prescription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ensureID(&p.ID)
	p.CreatedAt = r.s.tick()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.Client = nil
	stored.Items = append([]model.PrescriptionItem(nil), p.Items...)
	r.s.prescriptions[p.ID] = stored
	return nil
}

func (r *Prescriptions) FindByID(_ context.Context, id uuid.UUID) (*model.Prescription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.prescriptions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	p = r.withClient(p)
	return &p, nil
}

func (r *Prescriptions) List(_ context.Context, filter repository.PrescriptionFilter) ([]model.Prescription, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Prescription, 0, len(r.s.prescriptions))
	for _, p := range r.s.prescriptions {
		if filter.ClientID != nil && p.ClientID != *filter.ClientID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, r.withClient(p))
	}
	sortByTimeDesc(out, func(p model.Prescription) time.Time { return p.CreatedAt })
	_, limit, offset := repository.Page(filter.Page, filter.Limit, 50, 200)
	return window(out, offset, limit), int64(len(out)), nil
}

func (r *Prescriptions) TransitionTx(_ *gorm.DB, p *model.Prescription, from string, replaceItems bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.prescriptions[p.ID]
	if !ok || cur.Status != from {
		return repository.ErrStaleState
	}
	next := *p
	next.Client = nil
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = r.s.tick()
	if replaceItems {
		next.Items = make([]model.PrescriptionItem, len(p.Items))
		for i, it := range p.Items {
			ensureID(&it.ID)
			it.PrescriptionID = p.ID
			next.Items[i] = it
		}
	} else {
		next.Items = cur.Items
	}
	r.s.prescriptions[p.ID] = next
	return nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

type Orders struct{ s *Store }

func NewOrders(s *Store) *Orders { return &Orders{s: s} }

var _ repository.OrderRepository = (*Orders)(nil)

func (r *Orders) DB() *gorm.DB { return nil }

func (r *Orders) CreateTx(_ *gorm.DB, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ensureID(&o.ID)
	o.CreatedAt = r.s.tick()
	o.UpdatedAt = o.CreatedAt
	for i := range o.Items {
		ensureID(&o.Items[i].ID)
		o.Items[i].OrderID = o.ID
	}
	stored := *o
	stored.Items = append([]model.OrderItem(nil), o.Items...)
	r.s.orders[o.ID] = stored
	return nil
}

func (r *Orders) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	o.Items = append([]model.OrderItem(nil), o.Items...)
	return &o, nil
}

func (r *Orders) List(_ context.Context, filter repository.OrderFilter) ([]model.Order, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, o)
	}
	sortByTimeDesc(out, func(o model.Order) time.Time { return o.CreatedAt })
	_, limit, offset := repository.Page(filter.Page, filter.Limit, 50, 200)
	return window(out, offset, limit), int64(len(out)), nil
}

func (r *Orders) UpdateStatusTx(_ *gorm.DB, id uuid.UUID, from, to string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.Status != from {
		return repository.ErrStaleState
	}
	o.Status = to
	o.UpdatedAt = r.s.tick()
	r.s.orders[id] = o
	return nil
}

// ── Chat ─────────────────────────────────────────────────────────────────────

type Chats struct{ s *Store }

func NewChats(s *Store) *Chats { return &Chats{s: s} }

var _ repository.ChatRepository = (*Chats)(nil)

func (r *Chats) Create(_ context.Context, m *model.ChatMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ensureID(&m.ID)
	m.CreatedAt = r.s.tick()
	m.UpdatedAt = m.CreatedAt
	r.s.messages[m.ID] = *m
	return nil
}

func (r *Chats) FindByID(_ context.Context, id uuid.UUID) (*model.ChatMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r *Chats) Conversation(_ context.Context, a, b uuid.UUID, limit int) ([]model.ChatMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.ChatMessage, 0)
	for _, m := range r.s.messages {
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			out = append(out, m)
		}
	}
	sortByTimeAsc(out, func(m model.ChatMessage) time.Time { return m.CreatedAt })
	_, limit, _ = repository.Page(1, limit, 200, 1000)
	return window(out, 0, limit), nil
}

func (r *Chats) Update(_ context.Context, m *model.ChatMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.messages[m.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.Body = m.Body
	cur.Edited = m.Edited
	cur.UpdatedAt = r.s.tick()
	r.s.messages[m.ID] = cur
	return nil
}

func (r *Chats) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.messages[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.messages, id)
	return nil
}
