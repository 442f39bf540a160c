package http

import (
	"net/http"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/projection"
)

func (s *Server) handleListBoxes(w http.ResponseWriter, r *http.Request) {
	boxes, err := s.deps.Boxes.List(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	if boxes == nil {
		boxes = []core.InvestmentBox{}
	}
	NewResponse().JSON(boxes).Write(w)
}

func (s *Server) handleCreateBox(w http.ResponseWriter, r *http.Request) {
	var b core.InvestmentBox
	if err := DecodeJSON(w, r, &b); err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	b.Name = sanitizeInput(b.Name)
	created, err := s.deps.Boxes.Create(r.Context(), b)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	NewResponse().Created(created).Write(w)
}

func (s *Server) handleUpdateBox(w http.ResponseWriter, r *http.Request) {
	var b core.InvestmentBox
	if err := DecodeJSON(w, r, &b); err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	b.ID = r.PathValue("id")
	b.Name = sanitizeInput(b.Name)
	if err := s.deps.Boxes.Update(r.Context(), b); err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	NewResponse().NoContent().Write(w)
}

func (s *Server) handleDeleteBox(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Boxes.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	NewResponse().NoContent().Write(w)
}

func (s *Server) handleBoxBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.deps.Dashboard.BoxBalances(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	if balances == nil {
		balances = []projection.BoxBalance{}
	}
	NewResponse().JSON(balances).Write(w)
}
