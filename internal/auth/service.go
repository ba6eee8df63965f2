package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/fjod/natal_store/internal/config"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/fjod/natal_store/internal/notify"
	"github.com/fjod/natal_store/internal/shipping"
	"github.com/fjod/natal_store/internal/validation"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Registration is what a shopper fills in on the sign-up form.
type Registration struct {
	Name            string `json:"full_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AcceptTerms     bool   `json:"accept_terms"`
}

// Validate returns field -> message for every invalid detail, or nil.
func (r Registration) Validate() map[string]string {
	fields := map[string]string{}
	if !strings.Contains(strings.TrimSpace(r.Name), " ") {
		fields["full_name"] = msgFullName
	}
	if !validation.Email(strings.TrimSpace(r.Email)) {
		fields["email"] = msgEmail
	}
	if !validation.Phone(r.Phone) {
		fields["phone"] = msgPhone
	}
	if !validation.StrongPassword(r.Password) {
		fields["password"] = msgWeakPassword
	}
	if r.Password != r.ConfirmPassword {
		fields["confirm_password"] = msgPasswordsDiffer
	}
	if !r.AcceptTerms {
		fields["accept_terms"] = msgTerms
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

type SessionUser struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      SessionUser `json:"user"`
}

type Options struct {
	Admin           config.AdminConfig
	VerificationTTL time.Duration
	BaseURL         string
}

type Service struct {
	users     UserRepository
	tokens    *TokenManager
	blacklist TokenBlacklist
	codes     CodeStore
	mailer    notify.Mailer
	sms       notify.SMSSender
	opts      Options

	newCode    func() (string, error)
	newID      func() string
	bcryptCost int
}

func NewService(users UserRepository, tokens *TokenManager, blacklist TokenBlacklist, codes CodeStore,
	mailer notify.Mailer, sms notify.SMSSender, opts Options) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		blacklist:  blacklist,
		codes:      codes,
		mailer:     mailer,
		sms:        sms,
		opts:       opts,
		newCode:    GenerateCode,
		newID:      func() string { return ulid.Make().String() },
		bcryptCost: bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) isAdminEmail(email string) bool {
	return normalizeEmail(email) == normalizeEmail(s.opts.Admin.Email)
}

func (s *Service) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// SeedAdmin makes sure the configured administrator can log in.
func (s *Service) SeedAdmin(ctx context.Context) error {
	hash, err := s.hash(s.opts.Admin.Password)
	if err != nil {
		return err
	}
	admin := &domain.User{
		ID:           s.newID(),
		Name:         s.opts.Admin.Name,
		Email:        normalizeEmail(s.opts.Admin.Email),
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Status:       domain.UserActive,
	}
	if err := s.users.UpsertAdmin(ctx, admin); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("user_id", admin.ID).Msg("admin account ready")
	return nil
}

// RequestVerification validates the sign-up form and sends one code by
// e-mail and another by SMS.
func (s *Service) RequestVerification(ctx context.Context, reg Registration) error {
	if fields := reg.Validate(); fields != nil {
		return apperr.Validation(fields)
	}
	if s.isAdminEmail(reg.Email) {
		return ErrReservedEmail
	}
	if _, err := s.users.GetByEmail(ctx, normalizeEmail(reg.Email)); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	smsCode, err := s.newCode()
	if err != nil {
		return err
	}
	emailCode, err := s.newCode()
	if err != nil {
		return err
	}
	codes := VerificationCodes{SMS: smsCode, Email: emailCode}
	if err := s.codes.Save(ctx, reg.Email, codes, s.opts.VerificationTTL); err != nil {
		return err
	}

	name := strings.TrimSpace(reg.Name)
	if err := s.mailer.Send(ctx, notify.VerificationEmail(normalizeEmail(reg.Email), name, emailCode)); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	if err := s.sms.SendSMS(ctx, validation.Digits(reg.Phone), notify.VerificationSMS(smsCode)); err != nil {
		return fmt.Errorf("failed to send verification sms: %w", err)
	}
	return nil
}

// Register creates a shopper account once both codes match and logs it in.
func (s *Service) Register(ctx context.Context, reg Registration, codes VerificationCodes) (*Session, error) {
	if fields := reg.Validate(); fields != nil {
		return nil, apperr.Validation(fields)
	}
	if s.isAdminEmail(reg.Email) {
		return nil, ErrReservedEmail
	}

	ok, err := s.codes.Consume(ctx, reg.Email, codes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCodes
	}

	hash, err := s.hash(reg.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:           s.newID(),
		Name:         strings.TrimSpace(reg.Name),
		Email:        normalizeEmail(reg.Email),
		Phone:        validation.Digits(reg.Phone),
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.UserActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("user_id", user.ID).Msg("user registered")
	return s.issueSession(user)
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if user.IsLocked() {
		return nil, ErrAccountLocked
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.issueSession(user)
}

func (s *Service) AdminLogin(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, ErrAdminOnly
	}
	return s.issueSession(user)
}

func (s *Service) issueSession(user *domain.User) (*Session, error) {
	token, claims, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User: SessionUser{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
	}, nil
}

// Logout revokes token. Tokens that no longer validate are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token, TokenTypeAccess)
	if err != nil {
		return nil
	}
	return s.blacklist.Revoke(ctx, claims.ID, s.tokens.remaining(claims))
}

// Session resolves a bearer token to its current user.
func (s *Service) Session(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Parse(token, TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	revoked, err = s.blacklist.IsUserRevoked(ctx, claims.Subject, claims.IssuedAt.Time)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrExpiredToken
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if user.IsLocked() {
		return nil, ErrAccountLocked
	}
	return user, nil
}

func (s *Service) PasswordStrength(password string) int {
	return validation.PasswordStrength(password)
}

// RequestPasswordReset e-mails a reset link when the address belongs to an
// account. Unknown addresses are silently accepted.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.sendReset(ctx, user)
}

// SendPasswordReset is the back-office action of e-mailing a reset link to
// a user.
func (s *Service) SendPasswordReset(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.sendReset(ctx, user)
}

func (s *Service) sendReset(ctx context.Context, user *domain.User) error {
	token, _, err := s.tokens.IssueReset(user)
	if err != nil {
		return fmt.Errorf("failed to sign reset token: %w", err)
	}
	link := strings.TrimRight(s.opts.BaseURL, "/") + "/redefinir-senha?token=" + url.QueryEscape(token)
	if err := s.mailer.Send(ctx, notify.PasswordResetEmail(user.Email, user.Name, link)); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	log.Ctx(ctx).Info().Str("user_id", user.ID).Msg("password reset requested")
	return nil
}

// ResetPassword sets a new password from a reset token. The token works
// once and every open session of the user is ended.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirm string) error {
	claims, err := s.tokens.Parse(token, TokenTypeReset)
	if err != nil {
		return ErrInvalidResetToken
	}
	used, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if used {
		return ErrInvalidResetToken
	}

	fields := map[string]string{}
	if !validation.StrongPassword(password) {
		fields["password"] = msgWeakPassword
	}
	if password != confirm {
		fields["confirm_password"] = msgPasswordsDiffer
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}

	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, claims.Subject, hash); err != nil {
		return err
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, s.tokens.remaining(claims)); err != nil {
		return err
	}
	return s.blacklist.RevokeUser(ctx, claims.Subject, s.tokens.TTL())
}

// UpdateAddress validates and stores the delivery address of a user.
func (s *Service) UpdateAddress(ctx context.Context, userID string, addr domain.Address) (*domain.User, error) {
	fields := validation.Struct(addr)
	zip, err := shipping.NormalizeZip(addr.Zip)
	if err != nil && fields["zip"] == "" {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["zip"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}
	addr.Zip = zip

	if err := s.users.UpdateAddress(ctx, userID, &addr); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

func (s *Service) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) ListUsers(ctx context.Context, search string) ([]*domain.User, error) {
	return s.users.List(ctx, strings.TrimSpace(search))
}

// SetStatus locks or unlocks an account. Locking ends every open session.
func (s *Service) SetStatus(ctx context.Context, userID string, status domain.UserStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsAdmin() && status == domain.UserLocked {
		return ErrCannotLockAdmin
	}
	if err := s.users.UpdateStatus(ctx, userID, status); err != nil {
		return err
	}
	if status == domain.UserLocked {
		if err := s.blacklist.RevokeUser(ctx, userID, s.tokens.TTL()); err != nil {
			return err
		}
	}
	log.Ctx(ctx).Info().Str("user_id", userID).Str("status", string(status)).Msg("user status changed")
	return nil
}
