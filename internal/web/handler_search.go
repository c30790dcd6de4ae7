package web

import (
	"net/http"
)

type searchHitJSON struct {
	PantryID int64  `json:"pantry_id"`
	Name     string `json:"name"`
	Source   string `json:"source"`
}

// handleSearch finds ingredients across all pantries: GET /search?q=milk.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	found, err := s.service.SearchIngredients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]searchHitJSON, 0, len(found))
	for _, ing := range found {
		out = append(out, searchHitJSON{PantryID: ing.PantryID, Name: ing.Name, Source: ing.Source})
	}
	s.writeJSON(w, http.StatusOK, out)
}
