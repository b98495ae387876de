package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mine-martin-12/web-POS/internal/domain"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrValidation           = errors.New("validation failed")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrAccessDenied         = errors.New("access denied")
	ErrStorage              = errors.New("storage failure")
)

// Repository is the tenant-scoped persistence contract. Every read and write
// is keyed by the business id; a row belonging to another business behaves
// exactly like a missing row (ErrNotFound).
//
// Stock and payment mutations must be atomic at the storage layer: the
// non-negative stock check and the outstanding-balance check happen inside
// the same read-modify-write, never as separate application-level steps.
type Repository interface {
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, businessID string, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context, businessID string) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	// DeleteProduct cascade-deletes the product's sales and their credit
	// accounts. Stock is not restored; the product row itself is removed.
	DeleteProduct(ctx context.Context, businessID string, productID string) error
	// AdjustStock adds delta (which may be negative) to the product's stock
	// quantity, failing with ErrInsufficientStock if the result would be
	// negative.
	AdjustStock(ctx context.Context, businessID string, productID string, delta int) (*domain.Product, error)

	// CreateSale decrements the product's stock by the sale quantity and, if
	// credit is non-nil, opens the credit account — all in one atomic step.
	// On ErrInsufficientStock nothing is applied.
	CreateSale(ctx context.Context, sale domain.Sale, credit *domain.CreditAccount) (*domain.Sale, error)
	GetSale(ctx context.Context, businessID string, saleID string) (*domain.Sale, error)
	// UpdateSale re-adjusts stock by delta: the previous quantity is restored
	// to the previous product and the new quantity is subtracted from the new
	// product (which may be the same row). All-or-nothing.
	UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	// DeleteSale restores the sale's quantity to its product and
	// cascade-deletes the credit account.
	DeleteSale(ctx context.Context, businessID string, saleID string) (*domain.Sale, error)
	// ListSaleRecords returns the business's sales with sale_date in
	// [from, to], joined with product name/cost and the credit account if one
	// exists, ordered by sale_date ascending.
	ListSaleRecords(ctx context.Context, businessID string, from time.Time, to time.Time) ([]domain.SaleRecord, error)

	GetCreditAccount(ctx context.Context, businessID string, accountID string) (*domain.CreditAccount, error)
	GetCreditAccountBySale(ctx context.Context, businessID string, saleID string) (*domain.CreditAccount, error)
	ListCreditAccounts(ctx context.Context, businessID string, status string) ([]domain.CreditAccount, error)
	// RecordCreditPayment adds amount to amount_paid and re-derives the
	// status, serialized per account: the update is conditional on the
	// balance observed inside the same atomic step. Fails with
	// ErrInvalidPaymentAmount when amount is non-positive or exceeds the
	// outstanding balance.
	RecordCreditPayment(ctx context.Context, businessID string, accountID string, amount decimal.Decimal) (*domain.CreditAccount, error)
	UpdateCreditAccount(ctx context.Context, account domain.CreditAccount) (*domain.CreditAccount, error)
	DeleteCreditAccount(ctx context.Context, businessID string, accountID string) error

	CreateBusiness(ctx context.Context, business domain.Business) (*domain.Business, error)
	GetBusiness(ctx context.Context, businessID string) (*domain.Business, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, businessID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
}
