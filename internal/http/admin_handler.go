package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/fjod/natal_store/internal/catalog"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/fjod/natal_store/internal/promotion"
	"github.com/go-chi/chi/v5"
)

var (
	errNoFiles     = apperr.Invalid("no_files", "Selecione ao menos uma imagem.")
	errInvalidDate = apperr.Invalid("invalid_date", "Data inválida. Use o formato AAAA-MM-DD.")
)

const maxUploadMemory = 8 << 20

type AdminHandler struct {
	users      AuthService
	catalog    CatalogService
	orders     OrderService
	promotions PromotionService
	payments   PaymentSettingsService
	uploads    ImageUploader
}

func NewAdminHandler(users AuthService, catalog CatalogService, orders OrderService,
	promotions PromotionService, payments PaymentSettingsService, uploads ImageUploader) *AdminHandler {
	return &AdminHandler{
		users:      users,
		catalog:    catalog,
		orders:     orders,
		promotions: promotions,
		payments:   payments,
		uploads:    uploads,
	}
}

type UserStatusRequestDTO struct {
	Status domain.UserStatus `json:"status"`
}

type OrderStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

type PromotionRequestDTO struct {
	Title              string  `json:"title"`
	DiscountPercentage int     `json:"discount_percentage"`
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	BannerURL          string  `json:"banner_url"`
	ProductIDs         []int64 `json:"product_ids"`
}

type UploadResponseDTO struct {
	URLs []string `json:"urls"`
}

// GET /api/v1/admin/users?q=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// PATCH /api/v1/admin/users/{user_id}/status
func (h *AdminHandler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	var req UserStatusRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.users.SetStatus(r.Context(), chi.URLParam(r, "user_id"), req.Status); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/admin/users/{user_id}/password-reset
func (h *AdminHandler) SendPasswordReset(w http.ResponseWriter, r *http.Request) {
	if err := h.users.SendPasswordReset(r.Context(), chi.URLParam(r, "user_id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, messageResponse{Message: "Link de redefinição enviado."})
}

// GET /api/v1/admin/orders?q=
func (h *AdminHandler) SearchOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// PATCH /api/v1/admin/orders/{order_id}/status
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req OrderStatusRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "order_id"), req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// GET /api/v1/admin/orders/{order_id}/invoice
func (h *AdminHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	page, err := h.orders.Invoice(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

// GET /api/v1/admin/products?q=
func (h *AdminHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.AdminSearch(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// POST /api/v1/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.ProductInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.catalog.Create(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// PUT /api/v1/admin/products/{id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req catalog.ProductInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.catalog.Update(r.Context(), id, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DELETE /api/v1/admin/products/{id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.catalog.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/admin/uploads
//
// Accepts multipart/form-data with one or more "files" parts (or a single
// "file" part) and returns the stored URLs in order.
func (h *AdminHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, errBodyTooLarge)
			return
		}
		respondError(w, r, errInvalidJSON.Wrap(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	headers = append(headers, r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		respondError(w, r, errNoFiles)
		return
	}

	urls := make([]string, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			respondError(w, r, err)
			return
		}
		url, err := h.uploads.Upload(r.Context(), fh.Filename, data)
		if err != nil {
			respondError(w, r, err)
			return
		}
		urls = append(urls, url)
	}
	respondJSON(w, http.StatusCreated, UploadResponseDTO{URLs: urls})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// GET /api/v1/admin/promotions
func (h *AdminHandler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.promotions.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, promotions)
}

// POST /api/v1/admin/promotions
func (h *AdminHandler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	var req PromotionRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	start, err := parseDate(req.StartDate, false)
	if err != nil {
		respondError(w, r, errInvalidDate.WithFields(map[string]string{"start_date": errInvalidDate.Message}))
		return
	}
	end, err := parseDate(req.EndDate, true)
	if err != nil {
		respondError(w, r, errInvalidDate.WithFields(map[string]string{"end_date": errInvalidDate.Message}))
		return
	}
	p, err := h.promotions.Create(r.Context(), promotion.Input{
		Title:              req.Title,
		DiscountPercentage: req.DiscountPercentage,
		StartDate:          start,
		EndDate:            end,
		BannerURL:          req.BannerURL,
		ProductIDs:         req.ProductIDs,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// DELETE /api/v1/admin/promotions/{id}
func (h *AdminHandler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.promotions.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/admin/promotions/{id}/deactivate
func (h *AdminHandler) DeactivatePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.promotions.Deactivate(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/admin/payment-settings
func (h *AdminHandler) PaymentSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.payments.Get(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// PUT /api/v1/admin/payment-settings
func (h *AdminHandler) SavePaymentSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentSettings
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	settings, err := h.payments.Save(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. An empty value
// yields the zero time so the service can report the missing field. A bare
// end date covers the whole day.
func parseDate(value string, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
