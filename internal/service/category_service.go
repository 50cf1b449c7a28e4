package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/groupbuy_api/internal/models"
	"github.com/GTDGit/groupbuy_api/internal/repository"
)

type CategoryService struct {
	tx           repository.Transactor
	categoryRepo *repository.CategoryRepository
}

func NewCategoryService(tx repository.Transactor, categoryRepo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{tx: tx, categoryRepo: categoryRepo}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.categoryRepo.List(ctx)
}

// EnsureDefaults seeds models.DefaultCategories into an empty collection.
func (s *CategoryService) EnsureDefaults(ctx context.Context) error {
	return s.tx.Exec(ctx, func(ctx context.Context) error {
		existing, err := s.categoryRepo.List(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		for i := range models.DefaultCategories {
			c := models.DefaultCategories[i]
			if err := s.categoryRepo.Put(ctx, &c); err != nil {
				return err
			}
		}
		log.Info().Int("count", len(models.DefaultCategories)).Msg("Seeded default categories")
		return nil
	})
}
