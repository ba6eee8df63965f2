package http

import (
	"net/http"

	"github.com/fjod/natal_store/internal/catalog"
	"github.com/fjod/natal_store/internal/shipping"
	"github.com/fjod/natal_store/internal/support"
)

type CatalogHandler struct {
	catalog CatalogService
}

func NewCatalogHandler(catalog CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// GET /api/v1/catalog/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// GET /api/v1/catalog/products?category=&q=
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.catalog.List(r.Context(), catalog.Filter{Category: q.Get("category"), Search: q.Get("q")})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GET /api/v1/catalog/featured?q=
func (h *CatalogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Featured(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GET /api/v1/catalog/products/{id}
func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// GET /api/v1/catalog/products/{id}/shipping?zip=
func (h *CatalogHandler) ShippingQuote(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.catalog.Get(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	quote, err := shipping.QuoteFor(r.URL.Query().Get("zip"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// GET /api/v1/catalog/testimonials
func (h *CatalogHandler) Testimonials(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, catalog.Testimonials())
}

// GET /api/v1/support/faq
func SupportFAQ(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, support.Widget())
}
