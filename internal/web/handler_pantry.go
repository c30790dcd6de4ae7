package web

import (
	"net/http"
	"strings"
)

const maxPantryNameLen = 200

func (s *Server) handleListPantries(w http.ResponseWriter, r *http.Request) {
	pantries, err := s.service.ListPantries(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]pantryJSON, 0, len(pantries))
	for _, p := range pantries {
		out = append(out, newPantryJSON(p))
	}
	s.writeJSON(w, http.StatusOK, out)
}

type createPantryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreatePantry(w http.ResponseWriter, r *http.Request) {
	var req createPantryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if len(strings.TrimSpace(req.Name)) > maxPantryNameLen {
		s.badRequest(w, "pantry name too long")
		return
	}

	p, err := s.service.CreatePantry(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newPantryJSON(p))
}

func (s *Server) handleGetPantry(w http.ResponseWriter, r *http.Request) {
	pantryID, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid pantry id")
		return
	}

	p, err := s.service.GetPantry(r.Context(), pantryID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newPantryJSON(p))
}

func (s *Server) handleDeletePantry(w http.ResponseWriter, r *http.Request) {
	pantryID, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid pantry id")
		return
	}

	if err := s.service.DeletePantry(r.Context(), pantryID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addIngredientsRequest carries a comma-separated list, e.g. "egg, milk".
type addIngredientsRequest struct {
	Ingredients string `json:"ingredients"`
}

func (s *Server) handleAddIngredients(w http.ResponseWriter, r *http.Request) {
	pantryID, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid pantry id")
		return
	}
	var req addIngredientsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	p, err := s.service.AddIngredients(r.Context(), pantryID, req.Ingredients)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newPantryJSON(p))
}

func (s *Server) handleRemoveIngredient(w http.ResponseWriter, r *http.Request) {
	pantryID, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid pantry id")
		return
	}

	p, err := s.service.RemoveIngredient(r.Context(), pantryID, r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newPantryJSON(p))
}
