package domain

import "time"

type AccountType string

const (
	AccountChecking AccountType = "corrente"
	AccountSavings  AccountType = "poupanca"
)

// PaymentSettings is where the shop receives money.
type PaymentSettings struct {
	PixKey         string      `json:"pix_key"`
	PixHolder      string      `json:"pix_holder"`
	BankName       string      `json:"bank_name"`
	Agency         string      `json:"agency"`
	AccountNumber  string      `json:"account_number"`
	AccountType    AccountType `json:"account_type"`
	CreditProvider string      `json:"credit_provider"`
	MerchantID     string      `json:"merchant_id"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
