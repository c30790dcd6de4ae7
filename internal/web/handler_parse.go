package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/vbonduro/smartchef/internal/chef"
	"github.com/vbonduro/smartchef/internal/recipe"
)

// parseRequest asks for raw model text to be decoded with a named label set,
// or with the structured decoder when labels is "json".
type parseRequest struct {
	Text   string `json:"text"`
	Labels string `json:"labels"`
}

type parseResponse struct {
	recipe.ParseResult
	NoAnswer bool `json:"no_answer,omitempty"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if req.Labels == "" {
		req.Labels = string(chef.FormatEnglish)
	}

	if chef.IsNoAnswer(req.Text) {
		s.writeJSON(w, http.StatusOK, parseResponse{ParseResult: recipe.ParseResult{Recipes: []recipe.Record{}}, NoAnswer: true})
		return
	}

	if strings.EqualFold(req.Labels, string(chef.FormatJSON)) {
		result, err := recipe.DecodeJSON(req.Text)
		if err != nil {
			s.badRequest(w, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, parseResponse{ParseResult: result})
		return
	}

	ls, ok := recipe.Lookup(req.Labels, s.labels)
	if !ok {
		s.badRequest(w, fmt.Sprintf("unknown label set %q, have %s", req.Labels,
			strings.Join(recipe.Names(s.labels), ", ")))
		return
	}
	s.writeJSON(w, http.StatusOK, parseResponse{ParseResult: recipe.Parse(req.Text, ls)})
}
