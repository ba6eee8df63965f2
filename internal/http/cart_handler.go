package http

import (
	"net/http"

	"github.com/fjod/natal_store/internal/shipping"
	"github.com/shopspring/decimal"
)

type CartHandler struct {
	carts    CartService
	wishlist WishlistService
}

func NewCartHandler(carts CartService, wishlist WishlistService) *CartHandler {
	return &CartHandler{carts: carts, wishlist: wishlist}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

type ChangeQuantityRequestDTO struct {
	Delta int32 `json:"delta"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int32 `json:"quantity"`
}

type shippingEstimate struct {
	Zip   string          `json:"zip"`
	Price decimal.Decimal `json:"price"`
}

// respondCart writes the owner's cart after a change.
func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, owner string, status int) {
	view, err := h.carts.Get(r.Context(), owner)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, status, view)
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.respondCart(w, r, owner, http.StatusOK)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.ProductID <= 0 {
		respondError(w, r, errInvalidID)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := h.carts.Add(r.Context(), owner, req.ProductID, req.Quantity); err != nil {
		respondError(w, r, err)
		return
	}
	h.respondCart(w, r, owner, http.StatusCreated)
}

// PATCH /api/v1/cart/items/{product_id}
func (h *CartHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	owner, productID, ok := h.ownerAndProduct(w, r)
	if !ok {
		return
	}
	var req ChangeQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.carts.ChangeQuantity(r.Context(), owner, productID, req.Delta); err != nil {
		respondError(w, r, err)
		return
	}
	h.respondCart(w, r, owner, http.StatusOK)
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	owner, productID, ok := h.ownerAndProduct(w, r)
	if !ok {
		return
	}
	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.carts.SetQuantity(r.Context(), owner, productID, req.Quantity); err != nil {
		respondError(w, r, err)
		return
	}
	h.respondCart(w, r, owner, http.StatusOK)
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, productID, ok := h.ownerAndProduct(w, r)
	if !ok {
		return
	}
	if err := h.carts.Remove(r.Context(), owner, productID); err != nil {
		respondError(w, r, err)
		return
	}
	h.respondCart(w, r, owner, http.StatusOK)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.carts.Clear(r.Context(), owner); err != nil {
		respondError(w, r, err)
		return
	}
	h.respondCart(w, r, owner, http.StatusOK)
}

// GET /api/v1/cart/shipping?zip=
func (h *CartHandler) EstimateShipping(w http.ResponseWriter, r *http.Request) {
	zip := r.URL.Query().Get("zip")
	price, err := h.carts.EstimateShipping(zip)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if digits, err := shipping.NormalizeZip(zip); err == nil {
		zip = shipping.Format(digits)
	}
	respondJSON(w, http.StatusOK, shippingEstimate{Zip: zip, Price: price})
}

func (h *CartHandler) ownerAndProduct(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	owner, err := cartOwner(r)
	if err != nil {
		respondError(w, r, err)
		return "", 0, false
	}
	productID, err := int64Param(r, "product_id")
	if err != nil {
		respondError(w, r, err)
		return "", 0, false
	}
	return owner, productID, true
}

// GET /api/v1/wishlist
func (h *CartHandler) Wishlist(w http.ResponseWriter, r *http.Request) {
	products, err := h.wishlist.List(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// POST /api/v1/wishlist/{product_id}
func (h *CartHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	productID, err := int64Param(r, "product_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	added, err := h.wishlist.Toggle(r.Context(), userFrom(r.Context()).ID, productID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"added": added})
}
