package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"webshop/server/internal/server/services"
)

type goodOut struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	PriceCents  int64    `json:"priceCents"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	PictureURL  string   `json:"pictureUrl,omitempty"`
}

func goodView(v services.GoodView) goodOut {
	return goodOut{
		ID:          v.ID,
		Name:        v.Name,
		PriceCents:  v.PriceCents,
		Description: v.Description,
		Tags:        v.Tags,
		PictureURL:  v.PictureURL,
	}
}

func (s *Server) handleListGoods(w http.ResponseWriter, r *http.Request) {
	views, err := s.catalog.Goods(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	out := make([]goodOut, 0, len(views))
	for _, v := range views {
		out = append(out, goodView(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGood(w http.ResponseWriter, r *http.Request) {
	id, ok := goodID(w, r)
	if !ok {
		return
	}

	view, err := s.catalog.Good(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goodView(*view))
}

type pictureURLOut struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (s *Server) handlePictureURL(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	if !principal.Authenticated() {
		writeError(w, http.StatusUnauthorized, "not_authenticated", "registered account required")
		return
	}

	id, ok := goodID(w, r)
	if !ok {
		return
	}

	key, url, err := s.catalog.PicturePutURL(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pictureURLOut{Key: key, URL: url})
}

func goodID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid good id")
		return 0, false
	}
	return id, true
}
