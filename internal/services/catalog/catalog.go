// Package catalog управляет каталогом тарифных планов. Чтение идёт через
// кэш Redis, любые изменения плана сбрасывают затронутые ключи.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

const allPlansKey = "plans:all"

// PlanRepository определяет хранение планов.
type PlanRepository interface {
	CreatePlan(ctx context.Context, plan models.Plan) (int64, error)
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
	UpdatePlan(ctx context.Context, id int64, plan models.Plan) error
	RemovePlan(ctx context.Context, id int64) error
	ListPlans(ctx context.Context, filter models.PlanFilter) ([]models.Plan, error)
}

// Cache описывает методы кэша.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Service реализует операции каталога.
type Service struct {
	repo  PlanRepository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewService создаёт сервис каталога.
func NewService(repo PlanRepository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, ttl: ttl, log: log}
}

func planKey(id int64) string {
	return fmt.Sprintf("plan:%d", id)
}

func fromDummy(in models.DummyPlan) models.Plan {
	return models.Plan{
		Name:              in.Name,
		Price:             in.Price,
		ExamAttemptsLimit: in.ExamAttemptsLimit,
		ValidityDays:      in.ValidityDays,
	}
}

// Create добавляет план и возвращает его ID.
func (s *Service) Create(ctx context.Context, in models.DummyPlan) (int64, error) {
	const op = "catalog.Create"
	id, err := s.repo.CreatePlan(ctx, fromDummy(in))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, allPlansKey)
	s.log.Info("plan created", slog.Int64("plan_id", id))
	return id, nil
}

// Get возвращает план по ID.
func (s *Service) Get(ctx context.Context, id int64) (*models.Plan, error) {
	const op = "catalog.Get"

	var cached models.Plan
	found, err := s.cache.Get(ctx, planKey(id), &cached)
	if err != nil {
		s.log.Warn("failed to read plan from cache", slog.Int64("plan_id", id), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, planKey(id), plan, s.ttl); err != nil {
		s.log.Warn("failed to cache plan", slog.Int64("plan_id", id), sl.Err(err))
	}
	return plan, nil
}

// Update меняет план. Уже выданные экземпляры не пересчитываются.
func (s *Service) Update(ctx context.Context, id int64, in models.DummyPlan) (*models.Plan, error) {
	const op = "catalog.Update"
	if err := s.repo.UpdatePlan(ctx, id, fromDummy(in)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, planKey(id), allPlansKey)

	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}

// Remove удаляет план. План, на который ссылаются экземпляры, удалить нельзя.
func (s *Service) Remove(ctx context.Context, id int64) error {
	const op = "catalog.Remove"
	if err := s.repo.RemovePlan(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, planKey(id), allPlansKey)
	s.log.Info("plan removed", slog.Int64("plan_id", id))
	return nil
}

// List возвращает планы. Кэшируется только полный список без фильтров.
func (s *Service) List(ctx context.Context, filter models.PlanFilter) ([]models.Plan, error) {
	const op = "catalog.List"

	if err := validateFilter(filter); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	unfiltered := filter == (models.PlanFilter{})
	if unfiltered {
		var cached []models.Plan
		found, err := s.cache.Get(ctx, allPlansKey, &cached)
		if err != nil {
			s.log.Warn("failed to read plans from cache", sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	plans, err := s.repo.ListPlans(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if unfiltered {
		if err := s.cache.Set(ctx, allPlansKey, plans, s.ttl); err != nil {
			s.log.Warn("failed to cache plans", sl.Err(err))
		}
	}
	return plans, nil
}

func validateFilter(f models.PlanFilter) error {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return fmt.Errorf("min price above max price: %w", apperr.ErrInvalidInput)
	}
	if f.ValidityDays != nil && *f.ValidityDays <= 0 {
		return fmt.Errorf("validity days must be positive: %w", apperr.ErrInvalidInput)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("failed to invalidate plan cache", slog.Any("keys", keys), sl.Err(err))
	}
}
