package http

import (
	"net/http"

	"financas/internal/core"
	applog "financas/internal/log"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.deps.Settings.Load(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(prefs).Write(w)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var prefs core.Preferences
	if err := DecodeJSON(w, r, &prefs); err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	if err := s.deps.Settings.Save(r.Context(), prefs); err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	s.deps.Dashboard.Invalidate()
	s.refreshState()
	NewResponse().JSON(prefs).Write(w)
}

type projectionSettingsRequest struct {
	Timeframe core.Timeframe `json:"timeframe"`
	Predict   bool           `json:"predict"`
}

func (s *Server) handleUpdateProjection(w http.ResponseWriter, r *http.Request) {
	var req projectionSettingsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	settings, err := s.deps.Settings.UpdateProjection(r.Context(), req.Timeframe, req.Predict)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	s.refreshState()
	NewResponse().JSON(settings).Write(w)
}
