// Package projection simulates the growth of investment boxes.
//
// The simulation compounds every box day by day at its own annual rate,
// aggregates the boxes into one daily series and downsamples that series
// into chart points. It is a pure function of its Input: the current day is
// always injected by the caller.
package projection

import (
	"errors"
	"fmt"
	"math"

	"financas/internal/core"
)

// DefaultAnnualRate is applied to boxes whose interest rate was never set.
// An explicit 0% is honored as 0%.
const DefaultAnnualRate = 0.10

// trailingMonths bounds the window used to estimate future contributions.
const trailingMonths = 6

var ErrInvalidInput = errors.New("invalid projection input")

// Input is everything the simulation depends on.
type Input struct {
	Transactions []core.Transaction
	Boxes        []core.InvestmentBox
	// BoxID narrows the projection to one box. Empty means all boxes.
	BoxID                string
	Timeframe            core.Timeframe
	PredictContributions bool
	Today                core.Date
	SelectedMonth        core.Date
}

// Point is one plotted sample of the aggregated series.
type Point struct {
	Date      core.Date `json:"date"`
	Timestamp int64     `json:"timestamp"`
	Patrimony float64   `json:"patrimony"`
	Principal float64   `json:"principal"`
	// Movement is the net flow accumulated since the start of the point's month.
	Movement float64 `json:"movement"`
	IsToday  bool    `json:"isToday"`
}

type Result struct {
	// HasAnyInvestment is false when no transaction feeds any existing box.
	HasAnyInvestment bool    `json:"hasAnyInvestment"`
	Points           []Point `json:"points"`

	CurrentPatrimony float64 `json:"currentPatrimony"`
	CurrentPrincipal float64 `json:"currentPrincipal"`
	CurrentProfit    float64 `json:"currentProfit"`
	ProfitPercentage float64 `json:"profitPercentage"`
	MonthlyNetFlow   float64 `json:"monthlyNetFlow"`

	// AnnualInterestRate is the balance-weighted rate as a fraction (0.12 = 12%).
	AnnualInterestRate           float64 `json:"annualInterestRate"`
	ProjectedMonthlyContribution float64 `json:"projectedMonthlyContribution"`

	FinalPatrimony float64   `json:"finalProjectedPatrimony"`
	FinalPrincipal float64   `json:"finalProjectedPrincipal"`
	FinalProfit    float64   `json:"finalProjectedProfit"`
	FinalDate      core.Date `json:"finalProjectedDate"`
	TodayTimestamp int64     `json:"todayTimestamp"`
}

// HasData reports whether the selected scope produced a series.
func (r Result) HasData() bool {
	return len(r.Points) > 0
}

type dayTotals struct {
	patrimony float64
	principal float64
	movement  float64
}

// Project runs the simulation described by in.
func Project(in Input) (Result, error) {
	if err := in.validate(); err != nil {
		return Result{}, err
	}
	horizon, _ := in.Timeframe.Months()

	boxes := make(map[string]core.InvestmentBox, len(in.Boxes))
	for _, b := range in.Boxes {
		boxes[b.ID] = b
	}

	invested := investmentFlows(in.Transactions, boxes)
	if len(invested) == 0 {
		return Result{HasAnyInvestment: false}, nil
	}

	target := invested
	if in.BoxID != "" {
		target = nil
		for _, t := range invested {
			if t.InvestmentBoxID == in.BoxID {
				target = append(target, t)
			}
		}
	}
	if len(target) == 0 {
		return Result{HasAnyInvestment: true}, nil
	}

	// Boxes are simulated in first-seen order so float sums are reproducible.
	var order []string
	byBox := map[string][]core.Transaction{}
	start := in.Today
	for _, t := range target {
		if _, ok := byBox[t.InvestmentBoxID]; !ok {
			order = append(order, t.InvestmentBoxID)
		}
		byBox[t.InvestmentBoxID] = append(byBox[t.InvestmentBoxID], t)
		if t.Date.Before(start.Time) {
			start = t.Date
		}
	}
	end := core.MonthOf(in.Today).AddMonths(horizon)
	days := daysBetween(start, end) + 1

	agg := make([]dayTotals, days)
	sixMonthsAgo := in.Today.AddMonths(-trailingMonths)

	res := Result{HasAnyInvestment: true}
	var weightedSum, weightDivisor float64

	for _, id := range order {
		txs := byBox[id]
		annual := annualRate(boxes[id], DefaultAnnualRate)
		sim := newSimulation(txs, start, annual)

		contribution := sim.projectedContribution(sixMonthsAgo)
		res.ProjectedMonthlyContribution += contribution

		if w := math.Max(0, sim.netFlow); w > 0 {
			weightedSum += annual * w
			weightDivisor += w
		}

		sim.run(days, func(i int, day core.Date) float64 {
			if in.PredictContributions && day.After(in.Today.Time) && day.Day() == 1 {
				return contribution
			}
			return 0
		}, func(i int, patrimony, principal, flow float64) {
			agg[i].patrimony += patrimony
			agg[i].principal += principal
			agg[i].movement += flow
		})
	}

	todayIdx := daysBetween(start, in.Today)
	res.CurrentPatrimony = agg[todayIdx].patrimony
	res.CurrentPrincipal = agg[todayIdx].principal
	res.CurrentProfit = res.CurrentPatrimony - res.CurrentPrincipal
	if res.CurrentPrincipal != 0 {
		res.ProfitPercentage = res.CurrentProfit / res.CurrentPrincipal * 100
	}

	res.Points = downsample(agg, start, in.Today, in.Timeframe)
	last := res.Points[len(res.Points)-1]
	res.FinalPatrimony = last.Patrimony
	res.FinalPrincipal = last.Principal
	res.FinalProfit = round2(last.Patrimony - last.Principal)
	res.FinalDate = last.Date
	res.TodayTimestamp = in.Today.UnixMilli()

	for _, t := range target {
		if t.Date.SameMonth(in.SelectedMonth) {
			res.MonthlyNetFlow += t.Flow()
		}
	}

	res.AnnualInterestRate = DefaultAnnualRate
	if weightDivisor > 0 {
		res.AnnualInterestRate = weightedSum / weightDivisor
	}
	return res, nil
}

func (in Input) validate() error {
	if in.Today.IsZero() {
		return fmt.Errorf("%w: today is not set", ErrInvalidInput)
	}
	if !in.Timeframe.IsValid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidInput, core.ErrInvalidTimeframe, in.Timeframe)
	}
	for _, b := range in.Boxes {
		if !finite(b.InterestRate) {
			return fmt.Errorf("%w: box %s has a non-finite interest rate", ErrInvalidInput, b.ID)
		}
	}
	for _, t := range in.Transactions {
		if !t.IsInvestment() {
			continue
		}
		if t.Amount.Cents < 0 {
			return fmt.Errorf("%w: transaction %s has a negative amount", ErrInvalidInput, t.ID)
		}
		if t.Date.IsZero() {
			return fmt.Errorf("%w: transaction %s has no date", ErrInvalidInput, t.ID)
		}
	}
	return nil
}

// downsample picks the plotted days out of the aggregated daily series.
func downsample(agg []dayTotals, start, today core.Date, tf core.Timeframe) []Point {
	var (
		points     []Point
		movement   float64
		curMonth   core.Date
		lastPushed core.Date
	)
	for i, totals := range agg {
		day := start.AddDays(i)
		if i == 0 || !day.SameMonth(curMonth) {
			movement = 0
			curMonth = day
		}
		movement += totals.movement

		isToday := day.Equal(today.Time)
		push := isToday
		// Today's point stands in for its own month.
		if !push && day.Day() == 1 && !day.SameMonth(today) && includeMonth(day, today, tf) {
			push = lastPushed.IsZero() || !day.SameMonth(lastPushed)
		}
		if !push && i == len(agg)-1 {
			push = true
		}
		if !push {
			continue
		}
		points = append(points, Point{
			Date:      day,
			Timestamp: day.UnixMilli(),
			Patrimony: round2(totals.patrimony),
			Principal: round2(totals.principal),
			Movement:  round2(movement),
			IsToday:   isToday,
		})
		lastPushed = day
	}
	return points
}

// includeMonth thins future first-of-month samples on long horizons.
func includeMonth(day, today core.Date, tf core.Timeframe) bool {
	if !day.After(today.Time) {
		return true
	}
	switch tf {
	case core.Timeframe10Y:
		return (day.Month()-1)%3 == 0
	case core.Timeframe20Y:
		return day.Month() == 1
	}
	return true
}

// investmentFlows keeps investment transactions whose box still exists.
func investmentFlows(txs []core.Transaction, boxes map[string]core.InvestmentBox) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if !t.IsInvestment() || t.InvestmentBoxID == "" {
			continue
		}
		if _, ok := boxes[t.InvestmentBoxID]; !ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

func annualRate(b core.InvestmentBox, fallback float64) float64 {
	if b.InterestRate == nil {
		return fallback
	}
	return *b.InterestRate / 100
}

func dailyRate(annual float64) float64 {
	return math.Pow(1+annual, 1.0/365) - 1
}

func daysBetween(from, to core.Date) int {
	return int(math.Round(to.Sub(from.Time).Hours() / 24))
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}

func finite(p *float64) bool {
	return p == nil || !(math.IsNaN(*p) || math.IsInf(*p, 0))
}
