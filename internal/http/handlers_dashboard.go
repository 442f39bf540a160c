package http

import (
	"net/http"
	"strings"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/services"
)

func (s *Server) monthFromQuery(w http.ResponseWriter, r *http.Request) (core.Date, bool) {
	month, err := ParseMonthParams(r.URL.Query(), s.deps.Clock.Today())
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return core.Date{}, false
	}
	return month, true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, ok := s.monthFromQuery(w, r)
	if !ok {
		return
	}
	summary, err := s.deps.Dashboard.Summary(r.Context(), month)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(summary).Write(w)
}

func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	month, ok := s.monthFromQuery(w, r)
	if !ok {
		return
	}
	bills, err := s.deps.Dashboard.Bills(r.Context(), month)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(bills).Write(w)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	month, ok := s.monthFromQuery(w, r)
	if !ok {
		return
	}
	report, err := s.deps.Dashboard.Budget(r.Context(), month)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(report).Write(w)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	totals, err := s.deps.Dashboard.Monthly(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	if totals == nil {
		totals = []core.MonthTotals{}
	}
	NewResponse().JSON(totals).Write(w)
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, ok := s.monthFromQuery(w, r)
	if !ok {
		return
	}
	predict, err := ParseOptionalBool(q.Get("predict"))
	if err != nil {
		s.fail(w, r, applog.OpProject, err)
		return
	}
	tf := core.Timeframe(strings.ToUpper(strings.TrimSpace(q.Get("timeframe"))))
	if tf != "" && !tf.IsValid() {
		BadRequestError("invalid timeframe " + string(tf)).Write(w)
		return
	}

	res, err := s.deps.Dashboard.Projection(r.Context(), services.ProjectionQuery{
		BoxID:         strings.TrimSpace(q.Get("box")),
		Timeframe:     tf,
		Predict:       predict,
		SelectedMonth: month,
	})
	if err != nil {
		s.fail(w, r, applog.OpProject, err)
		return
	}
	NewResponse().JSON(res).Write(w)
}
