package inmem

import (
	"context"
	"sort"
	"strings"

	"officine/internal/model"
	"officine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── Categories ───────────────────────────────────────────────────────────────

type Categories struct{ s *Store }

func NewCategories(s *Store) *Categories { return &Categories{s: s} }

var _ repository.CategoryRepository = (*Categories)(nil)

func (r *Categories) slugTaken(slug string, except uuid.UUID) bool {
	for id, c := range r.s.categories {
		if c.Slug == slug && id != except {
			return true
		}
	}
	return false
}

func (r *Categories) Create(_ context.Context, c *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.slugTaken(c.Slug, uuid.Nil) {
		return gorm.ErrDuplicatedKey
	}
	ensureID(&c.ID)
	c.CreatedAt = r.s.tick()
	c.UpdatedAt = c.CreatedAt
	r.s.categories[c.ID] = *c
	return nil
}

func (r *Categories) List(_ context.Context) ([]model.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Categories) FindByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *Categories) FindBySlug(_ context.Context, slug string) (*model.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.categories {
		if c.Slug == slug {
			cp := c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Categories) Update(_ context.Context, c *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[c.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if r.slugTaken(c.Slug, c.ID) {
		return gorm.ErrDuplicatedKey
	}
	c.UpdatedAt = r.s.tick()
	r.s.categories[c.ID] = *c
	return nil
}

// Delete mirrors ON DELETE SET NULL on children and products.
func (r *Categories) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.categories, id)
	for cid, c := range r.s.categories {
		if c.ParentID != nil && *c.ParentID == id {
			c.ParentID = nil
			r.s.categories[cid] = c
		}
	}
	for pid, p := range r.s.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
			r.s.products[pid] = p
		}
	}
	return nil
}

// ── Suppliers ────────────────────────────────────────────────────────────────

type Suppliers struct{ s *Store }

func NewSuppliers(s *Store) *Suppliers { return &Suppliers{s: s} }

var _ repository.SupplierRepository = (*Suppliers)(nil)

func (r *Suppliers) emailTaken(email string, except uuid.UUID) bool {
	for id, s := range r.s.suppliers {
		if s.Email == email && id != except {
			return true
		}
	}
	return false
}

func (r *Suppliers) Create(_ context.Context, s *model.Supplier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s.Email = strings.ToLower(s.Email)
	if r.emailTaken(s.Email, uuid.Nil) {
		return gorm.ErrDuplicatedKey
	}
	ensureID(&s.ID)
	s.CreatedAt = r.s.tick()
	s.UpdatedAt = s.CreatedAt
	r.s.suppliers[s.ID] = *s
	return nil
}

func (r *Suppliers) FindByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	s, ok := r.s.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *Suppliers) FindByEmail(_ context.Context, email string) (*model.Supplier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, s := range r.s.suppliers {
		if s.Email == email {
			cp := s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Suppliers) List(_ context.Context, includeInactive bool) ([]model.Supplier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Supplier, 0, len(r.s.suppliers))
	for _, s := range r.s.suppliers {
		if includeInactive || s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Suppliers) Update(_ context.Context, s *model.Supplier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.suppliers[s.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.Email = strings.ToLower(s.Email)
	if r.emailTaken(s.Email, s.ID) {
		return gorm.ErrDuplicatedKey
	}
	s.UpdatedAt = r.s.tick()
	r.s.suppliers[s.ID] = *s
	return nil
}

func (r *Suppliers) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.suppliers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Active = false
	r.s.suppliers[id] = s
	return nil
}
