package http

import (
	"context"

	"github.com/fjod/natal_store/internal/auth"
	"github.com/fjod/natal_store/internal/cart"
	"github.com/fjod/natal_store/internal/catalog"
	"github.com/fjod/natal_store/internal/checkout"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/fjod/natal_store/internal/promotion"
	"github.com/shopspring/decimal"
)

type SessionResolver interface {
	Session(ctx context.Context, token string) (*domain.User, error)
}

type AuthService interface {
	SessionResolver
	RequestVerification(ctx context.Context, reg auth.Registration) error
	Register(ctx context.Context, reg auth.Registration, codes auth.VerificationCodes) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	AdminLogin(ctx context.Context, email, password string) (*auth.Session, error)
	Logout(ctx context.Context, token string) error
	PasswordStrength(password string) int
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password, confirm string) error
	UpdateAddress(ctx context.Context, userID string, addr domain.Address) (*domain.User, error)
	ListUsers(ctx context.Context, search string) ([]*domain.User, error)
	SetStatus(ctx context.Context, userID string, status domain.UserStatus) error
	SendPasswordReset(ctx context.Context, userID string) error
}

type CatalogService interface {
	Categories(ctx context.Context) ([]string, error)
	List(ctx context.Context, f catalog.Filter) ([]*domain.Product, error)
	Featured(ctx context.Context, search string) ([]*domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	AdminSearch(ctx context.Context, term string) ([]*domain.Product, error)
	Create(ctx context.Context, in catalog.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id int64, in catalog.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
}

type CartService interface {
	Get(ctx context.Context, ownerID string) (*cart.View, error)
	Add(ctx context.Context, ownerID string, productID int64, quantity int32) error
	ChangeQuantity(ctx context.Context, ownerID string, productID int64, delta int32) error
	SetQuantity(ctx context.Context, ownerID string, productID int64, quantity int32) error
	Remove(ctx context.Context, ownerID string, productID int64) error
	Clear(ctx context.Context, ownerID string) error
	Merge(ctx context.Context, guestOwner, userOwner string) error
	EstimateShipping(zip string) (decimal.Decimal, error)
}

type WishlistService interface {
	Toggle(ctx context.Context, userID string, productID int64) (bool, error)
	List(ctx context.Context, userID string) ([]*domain.Product, error)
}

type CheckoutService interface {
	PlaceOrder(ctx context.Context, user *domain.User, req checkout.Request) (*domain.Order, error)
}

type OrderService interface {
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	GetForUser(ctx context.Context, userID, id string) (*domain.Order, error)
	Search(ctx context.Context, term string) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
	Invoice(ctx context.Context, id string) ([]byte, error)
}

type PromotionService interface {
	Create(ctx context.Context, in promotion.Input) (*domain.Promotion, error)
	List(ctx context.Context) ([]*domain.Promotion, error)
	Delete(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
}

type PaymentSettingsService interface {
	Get(ctx context.Context) (*domain.PaymentSettings, error)
	Save(ctx context.Context, in domain.PaymentSettings) (*domain.PaymentSettings, error)
}

// ImageUploader stores an uploaded image and returns its URL.
type ImageUploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}
