package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cashbook/internal/core"
	"cashbook/internal/storage"
)

type CategoryService struct {
	repo *storage.SQLiteRepository
}

func NewCategoryService(repo *storage.SQLiteRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.repo.ListCategories(ctx, userID)
}

func (s *CategoryService) Create(ctx context.Context, userID int64, c core.Category) (core.Category, error) {
	c.ID = 0
	c.UserID = userID
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return s.repo.CreateCategory(ctx, c)
}

// Update changes an own category. System categories are read-only.
func (s *CategoryService) Update(ctx context.Context, userID int64, c core.Category) (core.Category, error) {
	existing, err := s.repo.GetCategory(ctx, userID, c.ID)
	if err != nil {
		return core.Category{}, err
	}
	if existing.IsSystem() {
		return core.Category{}, fmt.Errorf("%w: system categories are read-only", core.ErrForbidden)
	}
	c.UserID = userID
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.Kind != existing.Kind {
		if err := s.checkKindChange(ctx, userID, c); err != nil {
			return core.Category{}, err
		}
	}
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

// checkKindChange refuses a kind that existing rows would no longer fit.
func (s *CategoryService) checkKindChange(ctx context.Context, userID int64, c core.Category) error {
	income, expense, err := s.repo.CategoryTypeUsage(ctx, userID, c.ID)
	if err != nil {
		return err
	}
	if income > 0 && !c.Kind.Accepts(core.Income) {
		return fmt.Errorf("%w: category is used by %d income records", core.ErrConflict, income)
	}
	if expense > 0 && !c.Kind.Accepts(core.Expense) {
		return fmt.Errorf("%w: category is used by %d expense records", core.ErrConflict, expense)
	}
	return nil
}

// Delete removes an own category that nothing references.
func (s *CategoryService) Delete(ctx context.Context, userID, id int64) error {
	existing, err := s.repo.GetCategory(ctx, userID, id)
	if err != nil {
		return err
	}
	if existing.IsSystem() {
		return fmt.Errorf("%w: system categories are read-only", core.ErrForbidden)
	}
	n, err := s.repo.CategoryUsage(ctx, userID, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: category is used by %d records", core.ErrConflict, n)
	}
	return s.repo.DeleteCategory(ctx, userID, id)
}

// resolveCategory returns a category visible to the user that accepts typ.
func resolveCategory(ctx context.Context, repo *storage.SQLiteRepository, userID, id int64, typ core.TxType) (core.Category, error) {
	c, err := repo.GetCategory(ctx, userID, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Category{}, fieldError("category_id", err)
	}
	if err != nil {
		return core.Category{}, err
	}
	if !c.Kind.Accepts(typ) {
		return core.Category{}, fieldError("category_id", fmt.Errorf("%w: category %q does not accept %s", core.ErrInvalidKind, c.Name, typ))
	}
	return c, nil
}
