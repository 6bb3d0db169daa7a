package service

import (
	"context"
	"fmt"
	"log/slog"

	"trading-backtestv1/internal/model"
	"trading-backtestv1/internal/strategy"
)

// CreateStrategy validates and stores a new strategy. The stored copy has
// defaults filled in. Any client-supplied ID is ignored.
func (s *Service) CreateStrategy(ctx context.Context, st model.Strategy) (model.Strategy, error) {
	plan, err := strategy.Compile(st)
	if err != nil {
		return model.Strategy{}, err
	}
	toSave := plan.Strategy
	toSave.ID = ""
	saved, err := s.deps.Strategies.SaveStrategy(ctx, toSave)
	if err != nil {
		return model.Strategy{}, fmt.Errorf("save strategy: %w", err)
	}
	slog.Info("strategy created", "id", saved.ID, "name", saved.Name)
	return saved, nil
}

// UpdateStrategy replaces the strategy stored under id.
func (s *Service) UpdateStrategy(ctx context.Context, id string, st model.Strategy) (model.Strategy, error) {
	existing, err := s.deps.Strategies.GetStrategy(ctx, id)
	if err != nil {
		return model.Strategy{}, err
	}
	plan, err := strategy.Compile(st)
	if err != nil {
		return model.Strategy{}, err
	}
	toSave := plan.Strategy
	toSave.ID = existing.ID
	toSave.CreatedAt = existing.CreatedAt
	return s.deps.Strategies.SaveStrategy(ctx, toSave)
}

func (s *Service) GetStrategy(ctx context.Context, id string) (model.Strategy, error) {
	return s.deps.Strategies.GetStrategy(ctx, id)
}

func (s *Service) ListStrategies(ctx context.Context) ([]model.Strategy, error) {
	return s.deps.Strategies.ListStrategies(ctx)
}

// DeleteStrategy removes a strategy. Its past runs are kept.
func (s *Service) DeleteStrategy(ctx context.Context, id string) error {
	return s.deps.Strategies.DeleteStrategy(ctx, id)
}

// Presets lists the names of the built-in strategies.
func (s *Service) Presets() []string {
	return strategy.PresetNames()
}
