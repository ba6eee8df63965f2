package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

var (
	errInvalidJSON   = apperr.Invalid("invalid_request", "Corpo da requisição inválido.")
	errBodyTooLarge  = apperr.Invalid("request_too_large", "Arquivo ou requisição muito grande.")
	errInvalidID     = apperr.Invalid("invalid_id", "Identificador inválido.")
	errUnauthorized  = apperr.Unauthorized("unauthorized", "Faça login para continuar.")
	errMissingGuest  = apperr.Invalid("missing_guest_id", "Envie o cabeçalho X-Guest-ID.")
	errInternal      = apperr.New(apperr.KindInternal, "internal_error", "Erro interno. Tente novamente mais tarde.")
	errRouteNotFound = apperr.NotFound("not_found", "Recurso não encontrado.")
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// respondError writes err as an ErrorResponse. Errors that are not
// *apperr.Error are logged and hidden behind a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		e = errInternal
	}
	respondJSON(w, statusFor(e.Kind), ErrorResponse{Error: e.Message, Code: e.Code, Details: e.Fields})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindPaymentRequired:
		return http.StatusPaymentRequired
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		if errors.Is(err, io.EOF) {
			return errInvalidJSON
		}
		return errInvalidJSON.Wrap(err)
	}
	return nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
