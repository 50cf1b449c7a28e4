package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/GTDGit/groupbuy_api/internal/models"
	"github.com/GTDGit/groupbuy_api/internal/repository"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

// ProductInput is the body accepted when creating a product. Numeric fields
// accept numbers or numeric strings and default to 0.
type ProductInput struct {
	Category   string               `json:"category"`
	Title      string               `json:"title"`
	Price      utils.FlexInt        `json:"price"`
	ServiceFee utils.FlexInt        `json:"serviceFee"`
	ImageURL   string               `json:"imageUrl"`
	Stock      utils.FlexInt        `json:"stock"`
	Status     models.ProductStatus `json:"status"`
	Tags       []string             `json:"tags"`
	SortOrder  *utils.FlexInt       `json:"sortOrder"`
}

// ProductPatch lists the fields an update may change. Nil fields are left alone.
type ProductPatch struct {
	Category   *string               `json:"category"`
	Title      *string               `json:"title"`
	Price      *utils.FlexInt        `json:"price"`
	ServiceFee *utils.FlexInt        `json:"serviceFee"`
	ImageURL   *string               `json:"imageUrl"`
	Stock      *utils.FlexInt        `json:"stock"`
	Status     *models.ProductStatus `json:"status"`
	Tags       *[]string             `json:"tags"`
	SortOrder  *utils.FlexInt        `json:"sortOrder"`
}

// CatalogService manages products.
type CatalogService struct {
	tx          repository.Transactor
	productRepo *repository.ProductRepository
	now         func() time.Time
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(tx repository.Transactor, productRepo *repository.ProductRepository) *CatalogService {
	return &CatalogService{tx: tx, productRepo: productRepo, now: time.Now}
}

// ListPublished returns published products by ascending sortOrder. Ties keep
// insertion order.
func (s *CatalogService) ListPublished(ctx context.Context) ([]models.Product, error) {
	all, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(all))
	for _, p := range all {
		if p.Status == models.ProductPublished {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return out, nil
}

// GetPublished returns a product visible on the storefront. Drafts are reported
// as not found.
func (s *CatalogService) GetPublished(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.ProductPublished {
		return nil, utils.ErrProductNotFound
	}
	return p, nil
}

// ListAll returns every product regardless of status, by sortOrder.
func (s *CatalogService) ListAll(ctx context.Context) ([]models.Product, error) {
	all, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	sortProducts(all)
	return all, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.productRepo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.ErrProductNotFound
	}
	return p, err
}

// Create adds a product. Status defaults to published and sortOrder to one past
// the current maximum.
func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{
		ID:         utils.NewID("p", s.now()),
		Category:   strings.TrimSpace(in.Category),
		Title:      strings.TrimSpace(in.Title),
		Price:      in.Price.Int(),
		ServiceFee: in.ServiceFee.Int(),
		ImageURL:   strings.TrimSpace(in.ImageURL),
		Stock:      in.Stock.Int(),
		Status:     in.Status,
		Tags:       normalizeTags(in.Tags),
	}
	if p.Status == "" {
		p.Status = models.ProductPublished
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	err := s.tx.Exec(ctx, func(ctx context.Context) error {
		if in.SortOrder != nil {
			p.SortOrder = in.SortOrder.Int()
		} else {
			all, err := s.productRepo.List(ctx)
			if err != nil {
				return err
			}
			p.SortOrder = nextSortOrder(all)
		}
		return s.productRepo.Put(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Update applies patch to the product with the given id.
func (s *CatalogService) Update(ctx context.Context, id string, patch ProductPatch) (*models.Product, error) {
	var updated *models.Product
	err := s.tx.Exec(ctx, func(ctx context.Context) error {
		p, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		patch.apply(p)
		if err := validateProduct(p); err != nil {
			return err
		}
		if err := s.productRepo.Put(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	err := s.productRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.ErrProductNotFound
	}
	return err
}

// Reorder sets sortOrder to each id's position in orderedIDs. Products not
// listed keep their current sortOrder.
func (s *CatalogService) Reorder(ctx context.Context, orderedIDs []string) ([]models.Product, error) {
	if len(orderedIDs) == 0 {
		return nil, fmt.Errorf("%w: orderedIds must not be empty", utils.ErrValidation)
	}
	seen := make(map[string]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q in orderedIds", utils.ErrValidation, id)
		}
		seen[id] = struct{}{}
	}

	var out []models.Product
	err := s.tx.Exec(ctx, func(ctx context.Context) error {
		for pos, id := range orderedIDs {
			p, err := s.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("%w: %s", err, id)
			}
			if p.SortOrder == pos {
				continue
			}
			p.SortOrder = pos
			if err := s.productRepo.Put(ctx, p); err != nil {
				return err
			}
		}
		all, err := s.productRepo.List(ctx)
		if err != nil {
			return err
		}
		sortProducts(all)
		out = all
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *ProductPatch) apply(dst *models.Product) {
	if p.Category != nil {
		dst.Category = strings.TrimSpace(*p.Category)
	}
	if p.Title != nil {
		dst.Title = strings.TrimSpace(*p.Title)
	}
	if p.Price != nil {
		dst.Price = p.Price.Int()
	}
	if p.ServiceFee != nil {
		dst.ServiceFee = p.ServiceFee.Int()
	}
	if p.ImageURL != nil {
		dst.ImageURL = strings.TrimSpace(*p.ImageURL)
	}
	if p.Stock != nil {
		dst.Stock = p.Stock.Int()
	}
	if p.Status != nil {
		dst.Status = *p.Status
	}
	if p.Tags != nil {
		dst.Tags = normalizeTags(*p.Tags)
	}
	if p.SortOrder != nil {
		dst.SortOrder = p.SortOrder.Int()
	}
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Title == "":
		return fmt.Errorf("%w: title is required", utils.ErrValidation)
	case !p.Status.Valid():
		return fmt.Errorf("%w: status must be draft or published", utils.ErrValidation)
	case p.Price < 0, p.ServiceFee < 0:
		return fmt.Errorf("%w: price and serviceFee must not be negative", utils.ErrValidation)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", utils.ErrValidation)
	}
	return nil
}

func nextSortOrder(all []models.Product) int {
	if len(all) == 0 {
		return 0
	}
	max := all[0].SortOrder
	for _, p := range all[1:] {
		if p.SortOrder > max {
			max = p.SortOrder
		}
	}
	return max + 1
}

func sortProducts(ps []models.Product) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].SortOrder < ps[j].SortOrder })
}

// normalizeTags trims, drops empties and removes duplicates, keeping first occurrence.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
