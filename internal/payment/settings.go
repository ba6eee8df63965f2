package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/fjod/natal_store/internal/validation"
	"github.com/jmoiron/sqlx"
)

const (
	msgPixKey     = "Formato inválido. Use E-mail, CPF/CNPJ, Telefone ou Chave Aleatória."
	msgBankNumber = "Apenas números (hífen opcional)."
	msgAccount    = "Tipo de conta inválido."
)

type SettingsRepository interface {
	Get(ctx context.Context) (*domain.PaymentSettings, error)
	Save(ctx context.Context, s *domain.PaymentSettings) error
}

type settingsRow struct {
	PixKey         string    `db:"pix_key"`
	PixHolder      string    `db:"pix_holder"`
	BankName       string    `db:"bank_name"`
	Agency         string    `db:"agency"`
	AccountNumber  string    `db:"account_number"`
	AccountType    string    `db:"account_type"`
	CreditProvider string    `db:"credit_provider"`
	MerchantID     string    `db:"merchant_id"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type PostgresSettingsRepository struct {
	db *sqlx.DB
}

func NewPostgresSettingsRepository(db *sqlx.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

// Get returns empty settings until the first save.
func (r *PostgresSettingsRepository) Get(ctx context.Context) (*domain.PaymentSettings, error) {
	var row settingsRow
	err := r.db.GetContext(ctx, &row, `
		SELECT pix_key, pix_holder, bank_name, agency, account_number, account_type,
		       credit_provider, merchant_id, updated_at
		FROM payment_settings WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.PaymentSettings{AccountType: domain.AccountChecking}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment settings: %w", err)
	}
	return &domain.PaymentSettings{
		PixKey:         row.PixKey,
		PixHolder:      row.PixHolder,
		BankName:       row.BankName,
		Agency:         row.Agency,
		AccountNumber:  row.AccountNumber,
		AccountType:    domain.AccountType(row.AccountType),
		CreditProvider: row.CreditProvider,
		MerchantID:     row.MerchantID,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

func (r *PostgresSettingsRepository) Save(ctx context.Context, s *domain.PaymentSettings) error {
	query := `
		INSERT INTO payment_settings (id, pix_key, pix_holder, bank_name, agency, account_number,
		                              account_type, credit_provider, merchant_id, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE
		SET pix_key = EXCLUDED.pix_key,
		    pix_holder = EXCLUDED.pix_holder,
		    bank_name = EXCLUDED.bank_name,
		    agency = EXCLUDED.agency,
		    account_number = EXCLUDED.account_number,
		    account_type = EXCLUDED.account_type,
		    credit_provider = EXCLUDED.credit_provider,
		    merchant_id = EXCLUDED.merchant_id,
		    updated_at = NOW()
		RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		s.PixKey, s.PixHolder, s.BankName, s.Agency, s.AccountNumber,
		string(s.AccountType), s.CreditProvider, s.MerchantID,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save payment settings: %w", err)
	}
	return nil
}

type SettingsService struct {
	repo SettingsRepository
}

func NewSettingsService(repo SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

func (s *SettingsService) Get(ctx context.Context) (*domain.PaymentSettings, error) {
	return s.repo.Get(ctx)
}

// Save validates and stores the receiving accounts. Empty fields are
// allowed; filled ones must be well formed.
func (s *SettingsService) Save(ctx context.Context, in domain.PaymentSettings) (*domain.PaymentSettings, error) {
	in.PixKey = strings.TrimSpace(in.PixKey)
	in.Agency = strings.TrimSpace(in.Agency)
	in.AccountNumber = strings.TrimSpace(in.AccountNumber)
	if in.AccountType == "" {
		in.AccountType = domain.AccountChecking
	}

	if fields := validateSettings(in); fields != nil {
		return nil, apperr.Validation(fields)
	}
	if err := s.repo.Save(ctx, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func validateSettings(in domain.PaymentSettings) map[string]string {
	fields := map[string]string{}
	if in.PixKey != "" && !validation.PixKey(in.PixKey) {
		fields["pix_key"] = msgPixKey
	}
	if in.Agency != "" && !validation.BankNumber(in.Agency) {
		fields["agency"] = msgBankNumber
	}
	if in.AccountNumber != "" && !validation.BankNumber(in.AccountNumber) {
		fields["account_number"] = msgBankNumber
	}
	if in.AccountType != domain.AccountChecking && in.AccountType != domain.AccountSavings {
		fields["account_type"] = msgAccount
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
