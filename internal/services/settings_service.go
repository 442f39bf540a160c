package services

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/core"
	"financas/internal/storage"
)

// SettingsService reads and writes the single preferences document.
type SettingsService struct {
	repo storage.SettingsRepository
}

func NewSettingsService(repo storage.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// Load returns the stored preferences or the defaults when none exist.
func (s *SettingsService) Load(ctx context.Context) (core.Preferences, error) {
	p, err := s.repo.LoadPreferences(ctx)
	if err != nil {
		return core.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	if p == nil {
		return core.DefaultPreferences(), nil
	}
	return *p, nil
}

// Settings is Load narrowed to the application settings.
func (s *SettingsService) Settings(ctx context.Context) (core.AppSettings, error) {
	p, err := s.Load(ctx)
	if err != nil {
		return core.AppSettings{}, err
	}
	return p.Settings, nil
}

// Save validates and upserts the whole document.
func (s *SettingsService) Save(ctx context.Context, p core.Preferences) error {
	if err := p.Settings.Validate(); err != nil {
		return err
	}
	if err := s.repo.SavePreferences(ctx, p); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	slog.InfoContext(ctx, "Preferences saved", "component", "settings")
	return nil
}

// UpdateProjection patches only the projection controls.
func (s *SettingsService) UpdateProjection(ctx context.Context, tf core.Timeframe, predict bool) (core.AppSettings, error) {
	if !tf.IsValid() {
		return core.AppSettings{}, fmt.Errorf("%w: %q", core.ErrInvalidTimeframe, tf)
	}
	p, err := s.Load(ctx)
	if err != nil {
		return core.AppSettings{}, err
	}
	p.Settings.InvestmentProjectionTimeframe = tf
	p.Settings.PredictContributions = predict
	if err := s.Save(ctx, p); err != nil {
		return core.AppSettings{}, err
	}
	return p.Settings, nil
}
