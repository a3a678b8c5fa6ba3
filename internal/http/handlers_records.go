package http

import (
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

// created answers 201 for a new record and 200 for an update.
func created(isNew bool) int {
	if isNew {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var draft core.PurchaseDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	h := household(r)
	p, err := s.households.AddPurchase(r.Context(), h, draft)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Status(http.StatusCreated).Body(p).Write(w)
}

func (s *Server) handleUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	var draft core.PurchaseDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	h := household(r)
	p, err := s.households.UpdatePurchase(r.Context(), h, pathVar(r, "id"), draft)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Body(p).Write(w)
}

func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	h := household(r)
	if err := s.households.DeletePurchase(r.Context(), h, pathVar(r, "id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleSaveCard creates a card, or updates the profile of the card whose id
// is in the body.
func (s *Server) handleSaveCard(w http.ResponseWriter, r *http.Request) {
	var card core.Card
	if err := decodeJSON(w, r, &card); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	h := household(r)
	isNew := card.ID == ""
	saved, err := s.households.SaveCard(r.Context(), h, card)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Status(created(isNew)).Body(saved).Write(w)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	h := household(r)
	if err := s.households.DeleteCard(r.Context(), h, pathVar(r, "id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleSetAdjustment sets the manual obligation of a card for a month.
// The amount is required; zero is a valid override.
func (s *Server) handleSetAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	if req.Amount == nil {
		s.fail(w, r, log.OpUpdate, &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount})
		return
	}
	h := household(r)
	card, err := s.households.SetAdjustment(r.Context(), h, pathVar(r, "id"), core.MonthKey(pathVar(r, "month")), *req.Amount)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Body(card).Write(w)
}

func (s *Server) handleClearAdjustment(w http.ResponseWriter, r *http.Request) {
	h := household(r)
	card, err := s.households.ClearAdjustment(r.Context(), h, pathVar(r, "id"), core.MonthKey(pathVar(r, "month")))
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Body(card).Write(w)
}

func (s *Server) handleToggleCardPaid(w http.ResponseWriter, r *http.Request) {
	h := household(r)
	card, err := s.households.ToggleCardPaid(r.Context(), h, pathVar(r, "id"), core.MonthKey(pathVar(r, "month")))
	if err != nil {
		s.fail(w, r, log.OpToggle, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Body(card).Write(w)
}

func (s *Server) handleSaveService(w http.ResponseWriter, r *http.Request) {
	var svc core.Service
	if err := decodeJSON(w, r, &svc); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	h := household(r)
	isNew := svc.ID == ""
	saved, err := s.households.SaveService(r.Context(), h, svc)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Status(created(isNew)).Body(saved).Write(w)
}

func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	h := household(r)
	if err := s.households.DeleteService(r.Context(), h, pathVar(r, "id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleToggleServicePaid(w http.ResponseWriter, r *http.Request) {
	h := household(r)
	svc, err := s.households.ToggleServicePaid(r.Context(), h, pathVar(r, "id"), core.MonthKey(pathVar(r, "month")))
	if err != nil {
		s.fail(w, r, log.OpToggle, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Body(svc).Write(w)
}

func (s *Server) handleSaveShoppingItem(w http.ResponseWriter, r *http.Request) {
	var it core.ShoppingItem
	if err := decodeJSON(w, r, &it); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	h := household(r)
	isNew := it.ID == ""
	saved, err := s.households.SaveShoppingItem(r.Context(), h, it)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Status(created(isNew)).Body(saved).Write(w)
}

func (s *Server) handleToggleShoppingItem(w http.ResponseWriter, r *http.Request) {
	h := household(r)
	it, err := s.households.ToggleShoppingItem(r.Context(), h, pathVar(r, "id"))
	if err != nil {
		s.fail(w, r, log.OpToggle, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Body(it).Write(w)
}

func (s *Server) handleDeleteShoppingItem(w http.ResponseWriter, r *http.Request) {
	h := household(r)
	if err := s.households.DeleteShoppingItem(r.Context(), h, pathVar(r, "id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.invalidate(h)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
