package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/market-sales/internal/model"
)

var colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

const defaultCategoryColor = "#9E9E9E"

type CategoryInput struct {
	Name  string
	Color string
}

type ArticleInput struct {
	CategoryID *string
	Name       string
	Price      decimal.Decimal
	Cost       decimal.NullDecimal
}

// CatalogService manages the categories and articles offered on the sales
// screen. Every mutation bumps the row version and flags it for sync.
type CatalogService struct {
	categories CategoryStore
	articles   ArticleStore
	now        func() time.Time
}

func NewCatalogService(categories CategoryStore, articles ArticleStore) *CatalogService {
	return &CatalogService{categories: categories, articles: articles, now: time.Now}
}

func cleanCategory(in CategoryInput) (CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	if in.Name == "" || len(in.Name) > maxNameLen {
		return in, fmt.Errorf("%w: category name must be 1-%d characters", ErrValidation, maxNameLen)
	}
	if in.Color == "" {
		in.Color = defaultCategoryColor
	}
	if !colorRe.MatchString(in.Color) {
		return in, fmt.Errorf("%w: color must look like #RRGGBB", ErrValidation)
	}
	return in, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, userID uint64, in CategoryInput) (*model.Category, error) {
	in, err := cleanCategory(in)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &model.Category{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        in.Name,
		Color:       in.Color,
		Active:      true,
		Version:     1,
		SyncPending: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context, userID uint64, includeInactive bool) ([]model.Category, error) {
	return s.categories.List(ctx, userID, includeInactive)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, userID uint64, id string, in CategoryInput) (*model.Category, error) {
	in, err := cleanCategory(in)
	if err != nil {
		return nil, err
	}
	c, err := s.categories.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	c.Name, c.Color = in.Name, in.Color
	return c, s.saveCategory(ctx, c)
}

// DeactivateCategory hides the category. Its articles keep their reference.
func (s *CatalogService) DeactivateCategory(ctx context.Context, userID uint64, id string) error {
	c, err := s.categories.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if !c.Active {
		return nil
	}
	c.Active = false
	return s.saveCategory(ctx, c)
}

func (s *CatalogService) saveCategory(ctx context.Context, c *model.Category) error {
	c.Version++
	c.SyncPending = true
	c.UpdatedAt = s.now().UTC()
	return s.categories.Update(ctx, c)
}

func (s *CatalogService) cleanArticle(ctx context.Context, userID uint64, in ArticleInput) (ArticleInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || len(in.Name) > maxNameLen {
		return in, fmt.Errorf("%w: article name must be 1-%d characters", ErrValidation, maxNameLen)
	}
	if in.Price.IsNegative() {
		return in, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if in.Cost.Valid && in.Cost.Decimal.IsNegative() {
		return in, fmt.Errorf("%w: cost must not be negative", ErrValidation)
	}
	if in.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, userID, *in.CategoryID); err != nil {
			return in, fmt.Errorf("category %s: %w", *in.CategoryID, err)
		}
	}
	return in, nil
}

func (s *CatalogService) CreateArticle(ctx context.Context, userID uint64, in ArticleInput) (*model.Article, error) {
	in, err := s.cleanArticle(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	a := &model.Article{
		ID:          uuid.New().String(),
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Price:       in.Price,
		Cost:        in.Cost,
		Active:      true,
		Version:     1,
		SyncPending: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.articles.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *CatalogService) ListArticles(ctx context.Context, userID uint64, categoryID string, includeInactive bool) ([]model.Article, error) {
	return s.articles.List(ctx, userID, categoryID, includeInactive)
}

func (s *CatalogService) UpdateArticle(ctx context.Context, userID uint64, id string, in ArticleInput) (*model.Article, error) {
	in, err := s.cleanArticle(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	a, err := s.articles.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	a.CategoryID, a.Name, a.Price, a.Cost = in.CategoryID, in.Name, in.Price, in.Cost
	return a, s.saveArticle(ctx, a)
}

func (s *CatalogService) DeactivateArticle(ctx context.Context, userID uint64, id string) error {
	a, err := s.articles.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if !a.Active {
		return nil
	}
	a.Active = false
	return s.saveArticle(ctx, a)
}

func (s *CatalogService) saveArticle(ctx context.Context, a *model.Article) error {
	a.Version++
	a.SyncPending = true
	a.UpdatedAt = s.now().UTC()
	return s.articles.Update(ctx, a)
}
