package web

import (
	"net/http"
)

type recommendRequest struct {
	HealthCondition string `json:"health_condition"`
	Craving         string `json:"craving"`
}

// handleRecommend runs a recommendation. The body is optional.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	pantryID, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid pantry id")
		return
	}
	var req recommendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	sg, err := s.service.Recommend(r.Context(), pantryID, req.HealthCondition, req.Craving)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newSuggestionJSON(sg))
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	pantryID, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid pantry id")
		return
	}

	list, err := s.service.ListSuggestions(r.Context(), pantryID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]suggestionJSON, 0, len(list))
	for _, sg := range list {
		out = append(out, newSuggestionJSON(sg))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid suggestion id")
		return
	}

	sg, err := s.service.GetSuggestion(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newSuggestionJSON(sg))
}
