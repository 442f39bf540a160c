package projection

import (
	"fmt"
	"math"

	"financas/internal/core"
)

// BoxBalance is a box's simulated standing as of today.
type BoxBalance struct {
	BoxID     string  `json:"boxId"`
	Patrimony float64 `json:"patrimony"`
	Principal float64 `json:"principal"`
	Profit    float64 `json:"profit"`
	// Progress is patrimony as a percentage of the target, capped at 100.
	Progress float64 `json:"progress"`
}

// BoxBalances simulates every box from its first transaction through today.
// Unlike Project, an unset interest rate earns nothing here.
func BoxBalances(txs []core.Transaction, boxes []core.InvestmentBox, today core.Date) ([]BoxBalance, error) {
	if today.IsZero() {
		return nil, fmt.Errorf("%w: today is not set", ErrInvalidInput)
	}

	byBox := map[string][]core.Transaction{}
	for _, t := range txs {
		if t.InvestmentBoxID != "" {
			byBox[t.InvestmentBoxID] = append(byBox[t.InvestmentBoxID], t)
		}
	}

	out := make([]BoxBalance, 0, len(boxes))
	for _, b := range boxes {
		if !finite(b.InterestRate) {
			return nil, fmt.Errorf("%w: box %s has a non-finite interest rate", ErrInvalidInput, b.ID)
		}
		bal := BoxBalance{BoxID: b.ID}
		boxTxs := byBox[b.ID]
		if len(boxTxs) == 0 {
			out = append(out, bal)
			continue
		}

		start := today
		for _, t := range boxTxs {
			if t.Date.IsZero() {
				return nil, fmt.Errorf("%w: transaction %s has no date", ErrInvalidInput, t.ID)
			}
			if t.Date.Before(start.Time) {
				start = t.Date
			}
		}

		sim := newSimulation(boxTxs, start, annualRate(b, 0))
		sim.run(daysBetween(start, today)+1, nil, func(_ int, patrimony, principal, _ float64) {
			bal.Patrimony = patrimony
			bal.Principal = principal
		})
		bal.Profit = bal.Patrimony - bal.Principal
		if target := b.TargetAmount.Float(); target > 0 {
			bal.Progress = math.Min(bal.Patrimony/target*100, 100)
		}
		out = append(out, bal)
	}
	return out, nil
}
