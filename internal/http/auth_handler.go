package http

import (
	"context"
	"net/http"

	"github.com/fjod/natal_store/internal/auth"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/rs/zerolog/log"
)

type AuthHandler struct {
	auth  AuthService
	carts CartService
}

func NewAuthHandler(auth AuthService, carts CartService) *AuthHandler {
	return &AuthHandler{auth: auth, carts: carts}
}

type registerRequest struct {
	auth.Registration
	SMSCode   string `json:"sms_code"`
	EmailCode string `json:"email_code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// POST /api/v1/auth/register/verify
func (h *AuthHandler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	var req auth.Registration
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.auth.RequestVerification(r.Context(), req); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, messageResponse{Message: "Enviamos códigos de verificação para seu e-mail e telefone."})
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	session, err := h.auth.Register(r.Context(), req.Registration, auth.VerificationCodes{SMS: req.SMSCode, Email: req.EmailCode})
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.mergeGuestCart(r, session.User.ID)
	respondJSON(w, http.StatusCreated, session)
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.auth.Login)
}

// POST /api/v1/auth/admin/login
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.auth.AdminLogin)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, email, password string) (*auth.Session, error)) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	session, err := fn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.mergeGuestCart(r, session.User.ID)
	respondJSON(w, http.StatusOK, session)
}

// mergeGuestCart moves the anonymous cart into the user's cart. A failed
// merge does not fail the login.
func (h *AuthHandler) mergeGuestCart(r *http.Request, userID string) {
	guest := guestOwner(r)
	if guest == "" {
		return
	}
	if err := h.carts.Merge(r.Context(), guest, userID); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Str("guest", guest).Msg("failed to merge guest cart")
	}
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), tokenFrom(r.Context())); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, userFrom(r.Context()))
}

// POST /api/v1/auth/password-strength
func (h *AuthHandler) PasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"score": h.auth.PasswordStrength(req.Password)})
}

// POST /api/v1/auth/password/forgot
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, messageResponse{Message: "Se o e-mail estiver cadastrado, você receberá um link para redefinir a senha."})
}

// POST /api/v1/auth/password/reset
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Senha alterada com sucesso."})
}

// PUT /api/v1/auth/address
func (h *AuthHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var req domain.Address
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.auth.UpdateAddress(r.Context(), userFrom(r.Context()).ID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
