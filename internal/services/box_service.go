package services

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/core"
	"financas/internal/storage"
)

// BoxService manages investment boxes. Deleting a box leaves its
// transactions in place; projections ignore them from then on.
type BoxService struct {
	repo     storage.BoxRepository
	onChange []func()
}

func NewBoxService(repo storage.BoxRepository) *BoxService {
	return &BoxService{repo: repo}
}

// OnChange registers a callback run after every committed mutation.
func (s *BoxService) OnChange(fn func()) {
	s.onChange = append(s.onChange, fn)
}

func (s *BoxService) List(ctx context.Context) ([]core.InvestmentBox, error) {
	boxes, err := s.repo.ListBoxes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list boxes: %w", err)
	}
	return boxes, nil
}

func (s *BoxService) Get(ctx context.Context, id string) (core.InvestmentBox, error) {
	b, err := s.repo.GetBox(ctx, id)
	if err != nil {
		return core.InvestmentBox{}, fmt.Errorf("get box: %w", err)
	}
	return b, nil
}

func (s *BoxService) Create(ctx context.Context, b core.InvestmentBox) (core.InvestmentBox, error) {
	b.ID = ""
	if err := b.Validate(); err != nil {
		return core.InvestmentBox{}, err
	}
	created, err := s.repo.CreateBox(ctx, b)
	if err != nil {
		return core.InvestmentBox{}, fmt.Errorf("create box: %w", err)
	}
	slog.InfoContext(ctx, "Investment box created", "component", "box", "box_id", created.ID, "name", created.Name)
	s.changed()
	return created, nil
}

func (s *BoxService) Update(ctx context.Context, b core.InvestmentBox) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateBox(ctx, b); err != nil {
		return fmt.Errorf("update box: %w", err)
	}
	slog.InfoContext(ctx, "Investment box updated", "component", "box", "box_id", b.ID)
	s.changed()
	return nil
}

func (s *BoxService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteBox(ctx, id); err != nil {
		return fmt.Errorf("delete box: %w", err)
	}
	slog.InfoContext(ctx, "Investment box deleted", "component", "box", "box_id", id)
	s.changed()
	return nil
}

func (s *BoxService) changed() {
	for _, fn := range s.onChange {
		fn()
	}
}
