package service

import (
	"context"
	"errors"
	"strings"

	"officine/internal/apierror"
	"officine/internal/dto"
	"officine/internal/model"
	"officine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryService defines business operations for product categories.
type CategoryService interface {
	Create(ctx context.Context, req dto.CreateCategoryRequest) (*dto.CategoryResponse, error)
	List(ctx context.Context) ([]dto.CategoryResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.CategoryResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateCategoryRequest) (*dto.CategoryResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

func mapCategory(c *model.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ParentID:    idString(c.ParentID),
	}
}

func normalizeSlug(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *categoryService) parent(ctx context.Context, raw *string, self uuid.UUID) (*uuid.UUID, error) {
	id, err := parseOptionalID(raw, "parentId")
	if err != nil || id == nil {
		return nil, err
	}
	if *id == self {
		return nil, apierror.Validation("a category cannot be its own parent")
	}
	p, err := s.repo.FindByID(ctx, *id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Validation("parent category does not exist")
		}
		return nil, err
	}

	// self must not be an ancestor of the new parent
	seen := map[uuid.UUID]bool{p.ID: true}
	for p.ParentID != nil {
		next := *p.ParentID
		if next == self {
			return nil, apierror.Validation("parent category would create a cycle")
		}
		if seen[next] {
			break
		}
		seen[next] = true
		if p, err = s.repo.FindByID(ctx, next); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return nil, err
		}
	}
	return id, nil
}

func (s *categoryService) Create(ctx context.Context, req dto.CreateCategoryRequest) (*dto.CategoryResponse, error) {
	parentID, err := s.parent(ctx, req.ParentID, uuid.Nil)
	if err != nil {
		return nil, err
	}
	c := &model.Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        normalizeSlug(req.Slug),
		Description: req.Description,
		ParentID:    parentID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.FieldErrors(map[string]string{"slug": "unique"})
		}
		return nil, err
	}
	resp := mapCategory(c)
	return &resp, nil
}

func (s *categoryService) List(ctx context.Context) ([]dto.CategoryResponse, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.CategoryResponse, 0, len(list))
	for i := range list {
		result = append(result, mapCategory(&list[i]))
	}
	return result, nil
}

func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (*dto.CategoryResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "category")
	}
	resp := mapCategory(c)
	return &resp, nil
}

func (s *categoryService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateCategoryRequest) (*dto.CategoryResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "category")
	}
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		c.Slug = normalizeSlug(*req.Slug)
	}
	if req.Description != nil {
		c.Description = req.Description
	}
	if req.ParentID != nil {
		parentID, err := s.parent(ctx, req.ParentID, id)
		if err != nil {
			return nil, err
		}
		c.ParentID = parentID
	}
	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.FieldErrors(map[string]string{"slug": "unique"})
		}
		return nil, translate(err, "category")
	}
	resp := mapCategory(c)
	return &resp, nil
}

// Delete removes the category; products and children lose the reference.
func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	return translate(s.repo.Delete(ctx, id), "category")
}
