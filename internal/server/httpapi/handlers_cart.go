package httpapi

import (
	"net/http"

	"webshop/server/internal/server/models"
	"webshop/server/internal/server/services"
)

type cartLineIn struct {
	GoodID   int64 `json:"goodId"`
	Quantity int64 `json:"quantity"`
}

type setCartIn struct {
	OrdersSavedAt int64        `json:"ordersSavedAt"`
	Lines         []cartLineIn `json:"lines"`
}

type cartItemOut struct {
	GoodID     int64  `json:"goodId"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int64  `json:"quantity"`
	PictureURL string `json:"pictureUrl,omitempty"`
}

type cartOut struct {
	OrdersSavedAt *int64        `json:"ordersSavedAt"`
	Lines         []cartItemOut `json:"lines"`
}

func (s *Server) handleSetCart(w http.ResponseWriter, r *http.Request) {
	var in setCartIn
	if !readJSON(w, r, &in) {
		return
	}

	principal := principalFrom(r.Context())

	lines := make([]models.CartLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, models.CartLine{GoodID: l.GoodID, Quantity: l.Quantity})
	}

	if err := s.cart.SetCart(r.Context(), principal.Session.ID, in.OrdersSavedAt, lines); err != nil {
		s.serviceError(w, r, err)
		return
	}

	s.log.Info(r.Context(), "cart replaced",
		"session_id", principal.Session.ID, "saved_at", in.OrdersSavedAt, "lines", len(lines))
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	items, err := s.cart.GetCart(r.Context(), principal.Session)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cartOut{
		OrdersSavedAt: principal.Session.OrdersSavedAt,
		Lines:         itemsOut(items),
	})
}

func itemsOut(items []services.CartItem) []cartItemOut {
	out := make([]cartItemOut, 0, len(items))
	for _, it := range items {
		out = append(out, cartItemOut{
			GoodID:     it.GoodID,
			Name:       it.Name,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
			PictureURL: it.PictureURL,
		})
	}
	return out
}
