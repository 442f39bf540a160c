package projection

import (
	"maps"
	"slices"

	"financas/internal/core"
)

// simulation compounds one box over a shared day range.
type simulation struct {
	start   core.Date
	daily   float64
	flows   map[int]float64
	monthly map[core.Date]float64
	netFlow float64
}

func newSimulation(txs []core.Transaction, start core.Date, annual float64) *simulation {
	s := &simulation{
		start:   start,
		daily:   dailyRate(annual),
		flows:   map[int]float64{},
		monthly: map[core.Date]float64{},
	}
	for _, t := range txs {
		f := t.Flow()
		s.flows[daysBetween(start, t.Date)] += f
		s.monthly[core.MonthOf(t.Date)] += f
		s.netFlow += f
	}
	return s
}

// projectedContribution averages the positive monthly net flows of months
// starting on or after since.
func (s *simulation) projectedContribution(since core.Date) float64 {
	months := slices.SortedFunc(maps.Keys(s.monthly), func(a, b core.Date) int {
		return a.Compare(b.Time)
	})
	var sum float64
	var n int
	for _, month := range months {
		if flow := s.monthly[month]; !month.Before(since.Time) && flow > 0 {
			sum += flow
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// run walks days [0, days). Interest accrues on the prior closing balance
// before the day's flow is added. extra returns any predicted flow for the day.
func (s *simulation) run(days int, extra func(i int, day core.Date) float64, emit func(i int, patrimony, principal, flow float64)) {
	var patrimony, principal float64
	for i := 0; i < days; i++ {
		if patrimony > 0 {
			patrimony *= 1 + s.daily
		}
		flow := s.flows[i]
		if extra != nil {
			flow += extra(i, s.start.AddDays(i))
		}
		principal += flow
		patrimony += flow
		emit(i, patrimony, principal, flow)
	}
}
