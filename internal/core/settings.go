package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const (
	Timeframe1Y  Timeframe = "1Y"
	Timeframe5Y  Timeframe = "5Y"
	Timeframe10Y Timeframe = "10Y"
	Timeframe20Y Timeframe = "20Y"

	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

type (
	// Timeframe selects the projection horizon.
	Timeframe string

	Theme string

	BudgetGoals struct {
		Fixed      float64 `json:"fixed"`
		Variable   float64 `json:"variable"`
		Leisure    float64 `json:"leisure"`
		Investment float64 `json:"investment"`
	}

	IncomeCategories struct {
		Fixed      []string `json:"fixed"`
		Variable   []string `json:"variable"`
		Investment []string `json:"investment"`
	}

	ExpenseCategories struct {
		Fixed      []string `json:"fixed"`
		Variable   []string `json:"variable"`
		Leisure    []string `json:"leisure"`
		Investment []string `json:"investment"`
	}

	Categories struct {
		Income  IncomeCategories  `json:"INCOME"`
		Expense ExpenseCategories `json:"EXPENSE"`
	}

	AppSettings struct {
		Title                         string      `json:"title"`
		Subtitle                      string      `json:"subtitle"`
		Theme                         Theme       `json:"theme"`
		InvestmentProjectionTimeframe Timeframe   `json:"investmentProjectionTimeframe"`
		PredictContributions          bool        `json:"predictContributions"`
		BudgetGoals                   BudgetGoals `json:"budgetGoals"`
		Categories                    Categories  `json:"categories"`
	}

	// Preferences is the persisted document: settings plus opaque UI state.
	Preferences struct {
		Settings   AppSettings       `json:"settings"`
		Layouts    json.RawMessage   `json:"layouts,omitempty"`
		CardColors map[string]string `json:"cardColors,omitempty"`
		CardTitles map[string]string `json:"cardTitles,omitempty"`
	}
)

var (
	ErrInvalidTimeframe = errors.New("invalid timeframe")
	ErrInvalidSettings  = errors.New("invalid settings")
)

// Months returns the projection horizon in months.
func (tf Timeframe) Months() (int, error) {
	switch tf {
	case Timeframe1Y:
		return 12, nil
	case Timeframe5Y:
		return 60, nil
	case Timeframe10Y:
		return 120, nil
	case Timeframe20Y:
		return 240, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, tf)
}

func (tf Timeframe) IsValid() bool {
	_, err := tf.Months()
	return err == nil
}

// Total sums every goal.
func (g BudgetGoals) Total() float64 {
	return g.Fixed + g.Variable + g.Leisure + g.Investment
}

// Goal returns the goal for an expense type.
func (g BudgetGoals) Goal(t ExpenseType) float64 {
	switch t {
	case ExpenseFixed:
		return g.Fixed
	case ExpenseVariable:
		return g.Variable
	case ExpenseLeisure:
		return g.Leisure
	case ExpenseInvestment:
		return g.Investment
	}
	return 0
}

// Rebalance scales the goals so they sum to 100. Every goal but the last is
// rounded; the last one takes the remainder.
func (g BudgetGoals) Rebalance() BudgetGoals {
	total := g.Total()
	if total == 0 || total == 100 {
		return g
	}
	scale := 100 / total
	fixed := math.Round(g.Fixed * scale)
	variable := math.Round(g.Variable * scale)
	leisure := math.Round(g.Leisure * scale)
	return BudgetGoals{
		Fixed:      fixed,
		Variable:   variable,
		Leisure:    leisure,
		Investment: 100 - fixed - variable - leisure,
	}
}

func (s AppSettings) Validate() error {
	switch s.Theme {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		return fmt.Errorf("%w: theme %q", ErrInvalidSettings, s.Theme)
	}
	if !s.InvestmentProjectionTimeframe.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTimeframe, s.InvestmentProjectionTimeframe)
	}
	for _, v := range []float64{s.BudgetGoals.Fixed, s.BudgetGoals.Variable, s.BudgetGoals.Leisure, s.BudgetGoals.Investment} {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return fmt.Errorf("%w: budget goal %v must be between 0 and 100", ErrInvalidSettings, v)
		}
	}
	return nil
}

// DefaultSettings returns the settings a fresh install starts with.
func DefaultSettings() AppSettings {
	return AppSettings{
		Title:                         "Dashboard Financeiro",
		Subtitle:                      "Bem-vindo ao seu painel de controle financeiro pessoal.",
		Theme:                         ThemeSystem,
		InvestmentProjectionTimeframe: Timeframe5Y,
		PredictContributions:          true,
		BudgetGoals: BudgetGoals{
			Fixed:      40,
			Variable:   30,
			Leisure:    10,
			Investment: 20,
		},
		Categories: Categories{
			Income: IncomeCategories{
				Fixed:      []string{"Salário Fixo"},
				Variable:   []string{"Salário Extra", "Freelance", "Rendimento Investimentos", "Outros"},
				Investment: []string{"Resgate de Aplicação", "Dividendos", "Juros sobre Capital", "Venda de Ativos"},
			},
			Expense: ExpenseCategories{
				Fixed:      []string{"Aluguel", "Condomínio", "Financiamento Carro", "Plano de Saúde", "Internet", "Celular", "Gás", "Luz", "Dízimo", "Seguro"},
				Variable:   []string{"Supermercado", "Transporte", "Empréstimo", "Cartão de Crédito", "Compras Online", "Comida"},
				Leisure:    []string{"Restaurantes/Jantares", "Viagens", "Hobbies", "Streaming", "Lazer e Outros"},
				Investment: []string{"Fundo de Emergência", "Ações", "Fundos Imobiliários", "Caixinha", "Investimentos"},
			},
		},
	}
}

// DefaultPreferences wraps DefaultSettings with empty UI state.
func DefaultPreferences() Preferences {
	return Preferences{
		Settings:   DefaultSettings(),
		CardColors: map[string]string{},
		CardTitles: map[string]string{},
	}
}
