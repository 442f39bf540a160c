package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/projection"
	"financas/internal/storage"
)

// DashboardService answers the read side of the dashboard.
type DashboardService struct {
	txs       storage.TransactionRepository
	boxes     storage.BoxRepository
	settings  *SettingsService
	clock     Clock
	summaries cache.Cache[core.MonthSummary]
	duration  metric.Float64Histogram
}

// NewDashboardService wires the service; summaries may be nil to disable caching.
func NewDashboardService(txs storage.TransactionRepository, boxes storage.BoxRepository, settings *SettingsService, clock Clock, summaries cache.Cache[core.MonthSummary]) *DashboardService {
	duration, _ := otel.Meter("financas.dashboard").Float64Histogram(
		"financas_projection_duration_seconds",
		metric.WithDescription("Time spent running the investment projection"),
		metric.WithUnit("s"))
	return &DashboardService{
		txs:       txs,
		boxes:     boxes,
		settings:  settings,
		clock:     clock,
		summaries: summaries,
		duration:  duration,
	}
}

// Invalidate drops cached summaries. Mutating services call it.
func (d *DashboardService) Invalidate() {
	if d.summaries != nil {
		d.summaries.Purge()
	}
}

type snapshot struct {
	transactions []core.Transaction
	boxes        []core.InvestmentBox
	settings     core.AppSettings
}

// load fetches the three collections concurrently.
func (d *DashboardService) load(ctx context.Context, withBoxes, withSettings bool) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := d.txs.ListTransactions(gctx)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.transactions = txs
		return nil
	})
	if withBoxes {
		g.Go(func() error {
			boxes, err := d.boxes.ListBoxes(gctx)
			if err != nil {
				return fmt.Errorf("list boxes: %w", err)
			}
			snap.boxes = boxes
			return nil
		})
	}
	if withSettings {
		g.Go(func() error {
			s, err := d.settings.Settings(gctx)
			if err != nil {
				return err
			}
			snap.settings = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func monthKey(month core.Date) string {
	return month.Format("2006-01")
}

// Summary aggregates month, served from cache when fresh.
func (d *DashboardService) Summary(ctx context.Context, month core.Date) (core.MonthSummary, error) {
	key := monthKey(month)
	if d.summaries != nil {
		if s, ok := d.summaries.Get(key); ok {
			return s, nil
		}
	}
	txs, err := d.txs.ListTransactionsInMonth(ctx, month)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("list month: %w", err)
	}
	s := core.SummarizeMonth(txs, month)
	if d.summaries != nil {
		d.summaries.Set(key, s)
	}
	return s, nil
}

func (d *DashboardService) Bills(ctx context.Context, month core.Date) (core.Bills, error) {
	txs, err := d.txs.ListTransactionsInMonth(ctx, month)
	if err != nil {
		return core.Bills{}, fmt.Errorf("list month: %w", err)
	}
	return core.BillsFor(txs, month, d.clock.Today()), nil
}

func (d *DashboardService) Budget(ctx context.Context, month core.Date) (core.BudgetReport, error) {
	snap, err := d.load(ctx, false, true)
	if err != nil {
		return core.BudgetReport{}, err
	}
	return core.Budget(snap.transactions, month, snap.settings.BudgetGoals), nil
}

func (d *DashboardService) Monthly(ctx context.Context) ([]core.MonthTotals, error) {
	txs, err := d.txs.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return core.MonthlyTotals(txs), nil
}

// ProjectionQuery selects a projection. Zero fields fall back to settings.
type ProjectionQuery struct {
	BoxID         string
	Timeframe     core.Timeframe
	Predict       *bool
	SelectedMonth core.Date
}

// Projection runs the engine over the current ledger.
func (d *DashboardService) Projection(ctx context.Context, q ProjectionQuery) (projection.Result, error) {
	snap, err := d.load(ctx, true, true)
	if err != nil {
		return projection.Result{}, err
	}

	in := projection.Input{
		Transactions:         snap.transactions,
		Boxes:                snap.boxes,
		BoxID:                q.BoxID,
		Timeframe:            snap.settings.InvestmentProjectionTimeframe,
		PredictContributions: snap.settings.PredictContributions,
		Today:                d.clock.Today(),
		SelectedMonth:        q.SelectedMonth,
	}
	if q.Timeframe != "" {
		in.Timeframe = q.Timeframe
	}
	if q.Predict != nil {
		in.PredictContributions = *q.Predict
	}
	if in.SelectedMonth.IsZero() {
		in.SelectedMonth = core.MonthOf(in.Today)
	}

	start := time.Now()
	res, err := projection.Project(in)
	d.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("timeframe", string(in.Timeframe)),
		attribute.Bool("single_box", in.BoxID != ""),
	))
	if err != nil {
		return projection.Result{}, err
	}
	return res, nil
}

// BoxBalances reports today's balance and goal progress for every box.
func (d *DashboardService) BoxBalances(ctx context.Context) ([]projection.BoxBalance, error) {
	snap, err := d.load(ctx, true, false)
	if err != nil {
		return nil, err
	}
	return projection.BoxBalances(snap.transactions, snap.boxes, d.clock.Today())
}
