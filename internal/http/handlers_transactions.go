package http

import (
	"net/http"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/services"
	"financas/internal/storage"
)

const maxImportBody = 16 << 20

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.deps.Transactions.List(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	if q := r.URL.Query(); HasMonthParams(q) {
		month, err := ParseMonthParams(q, s.deps.Clock.Today())
		if err != nil {
			s.fail(w, r, applog.OpList, err)
			return
		}
		txs = core.InMonth(txs, month)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewResponse().JSON(txs).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	selected, err := ParseMonthParams(r.URL.Query(), s.deps.Clock.Today())
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	p, upload, cleanup, err := readTransaction(w, r)
	defer cleanup()
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}

	created, err := s.deps.Transactions.Create(r.Context(), p.Transaction, services.CreateOptions{
		Recurring:     p.Recurring,
		SelectedMonth: selected,
		Attachment:    upload,
	})
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	NewResponse().Created(created).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	scope, err := storage.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	p, upload, cleanup, err := readTransaction(w, r)
	defer cleanup()
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	p.ID = r.PathValue("id")

	err = s.deps.Transactions.Update(r.Context(), p.Transaction, scope, services.UpdateOptions{
		Attachment:       upload,
		RemoveAttachment: p.RemoveAttachment,
	})
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	NewResponse().NoContent().Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	scope, err := storage.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	if err := s.deps.Transactions.Delete(r.Context(), r.PathValue("id"), scope); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	NewResponse().NoContent().Write(w)
}

type paidRequest struct {
	Paid bool `json:"paid"`
}

func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request) {
	var req paidRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, applog.OpToggle, err)
		return
	}
	id := r.PathValue("id")

	var err error
	if s.deps.State != nil {
		err = s.deps.State.TogglePaid(r.Context(), id, req.Paid, s.deps.Transactions.TogglePaid)
	} else {
		err = s.deps.Transactions.TogglePaid(r.Context(), id, req.Paid)
	}
	if err != nil {
		s.fail(w, r, applog.OpToggle, err)
		return
	}
	NewResponse().NoContent().Write(w)
}

func (s *Server) handleCloneMonth(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParams(r.URL.Query(), s.deps.Clock.Today())
	if err != nil {
		s.fail(w, r, applog.OpClone, err)
		return
	}
	res, err := s.deps.Transactions.CloneMonth(r.Context(), month)
	if err != nil {
		s.fail(w, r, applog.OpClone, err)
		return
	}
	NewResponse().Created(res).Write(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBody)
	n, err := s.deps.Transactions.ImportLegacy(r.Context(), body)
	if err != nil {
		s.fail(w, r, applog.OpImport, err)
		return
	}
	NewResponse().Created(map[string]int{"imported": n}).Write(w)
}
