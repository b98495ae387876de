package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentCash   = "cash"
	PaymentMpesa  = "mpesa"
	PaymentBank   = "bank"
	PaymentCredit = "credit"
)

const (
	CreditStatusUnpaid        = "unpaid"
	CreditStatusPartiallyPaid = "partially_paid"
	CreditStatusPaid          = "paid"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// TenantContext identifies the authenticated actor and the business (tenant)
// every store call must be scoped to.
type TenantContext struct {
	UserID     string
	BusinessID string
	Role       string
}

func (t TenantContext) IsAdmin() bool {
	return t.Role == RoleAdmin
}

type Business struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID         string
	Email      string
	Password   string
	BusinessID string
	Role       string
	Active     bool
	CreatedAt  time.Time
}

type Product struct {
	ID            string          `json:"id"`
	BusinessID    string          `json:"business_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Size          string          `json:"size,omitempty"`
	StockQuantity int             `json:"stock_quantity"`
	BuyingPrice   decimal.Decimal `json:"buying_price"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TotalBuyingPrice is the derived cost of the on-hand stock.
func (p Product) TotalBuyingPrice() decimal.Decimal {
	return p.BuyingPrice.Mul(decimal.NewFromInt(int64(p.StockQuantity)))
}

type Sale struct {
	ID            string          `json:"id"`
	BusinessID    string          `json:"business_id"`
	ProductID     string          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PaymentMethod string          `json:"payment_method"`
	SaleDate      time.Time       `json:"sale_date"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type CreditAccount struct {
	ID           string          `json:"id"`
	BusinessID   string          `json:"business_id"`
	SaleID       string          `json:"sale_id"`
	CustomerName string          `json:"customer_name"`
	AmountOwed   decimal.Decimal `json:"amount_owed"`
	AmountPaid   decimal.Decimal `json:"amount_paid"`
	DueDate      time.Time       `json:"due_date"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Outstanding is the remaining balance on the account.
func (c CreditAccount) Outstanding() decimal.Decimal {
	return c.AmountOwed.Sub(c.AmountPaid)
}

// SaleRecord is a sale joined with its product cost and optional credit
// account, the unit the reconciliation calculator operates on.
type SaleRecord struct {
	Sale        Sale            `json:"sale"`
	ProductName string          `json:"product_name"`
	BuyingPrice decimal.Decimal `json:"buying_price"`
	Credit      *CreditAccount  `json:"credit,omitempty"`
}

type ProductCreateRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Size          string          `json:"size,omitempty"`
	StockQuantity int             `json:"stock_quantity"`
	BuyingPrice   decimal.Decimal `json:"buying_price"`
}

type ProductUpdateRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Size        *string          `json:"size,omitempty"`
	BuyingPrice *decimal.Decimal `json:"buying_price,omitempty"`
}

type StockAdjustRequest struct {
	Delta int `json:"delta"`
}

type SaleCreateRequest struct {
	ProductID     string          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	PaymentMethod string          `json:"payment_method"`
	SaleDate      string          `json:"sale_date,omitempty"`
	Description   string          `json:"description,omitempty"`

	// Required when PaymentMethod is credit.
	CustomerName string `json:"customer_name,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
}

type SaleUpdateRequest struct {
	ProductID     *string          `json:"product_id,omitempty"`
	Quantity      *int             `json:"quantity,omitempty"`
	SellingPrice  *decimal.Decimal `json:"selling_price,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty"`
	SaleDate      *string          `json:"sale_date,omitempty"`
	Description   *string          `json:"description,omitempty"`
}

type SaleResponse struct {
	Sale   Sale           `json:"sale"`
	Credit *CreditAccount `json:"credit,omitempty"`
}

type CreditPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type CreditAccountUpdateRequest struct {
	CustomerName *string          `json:"customer_name,omitempty"`
	AmountOwed   *decimal.Decimal `json:"amount_owed,omitempty"`
	DueDate      *string          `json:"due_date,omitempty"`

	// Status is an explicit admin-only override; when omitted the status is
	// re-derived from the owed/paid relationship.
	Status *string `json:"status,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	BusinessID  string `json:"business_id"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	BusinessName string `json:"business_name"`
}

type RegisterResponse struct {
	BusinessID string `json:"business_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}

// ProductRanking is one row of the top/bottom product lists: sales grouped
// by product name with total price and quantity summed.
type ProductRanking struct {
	ProductName string          `json:"product_name"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Quantity    int             `json:"quantity"`
}

// DailyPoint is one day of the dashboard time series, keyed by the UTC
// calendar date of the sale.
type DailyPoint struct {
	Date          string          `json:"date"`
	TotalSales    decimal.Decimal `json:"total_sales"`
	Profit        decimal.Decimal `json:"profit"`
	ActualRevenue decimal.Decimal `json:"actual_revenue"`
	ActualProfit  decimal.Decimal `json:"actual_profit"`
}

// DashboardMetrics is the transient aggregate computed over a date window.
// It is never persisted.
type DashboardMetrics struct {
	From string `json:"from"`
	To   string `json:"to"`

	TotalSalesAmount decimal.Decimal `json:"total_sales_amount"`
	ActualRevenue    decimal.Decimal `json:"actual_revenue"`
	PendingRevenue   decimal.Decimal `json:"pending_revenue"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	ActualProfit     decimal.Decimal `json:"actual_profit"`
	PendingProfit    decimal.Decimal `json:"pending_profit"`

	TotalSalesCount  int `json:"total_sales_count"`
	PaidSalesCount   int `json:"paid_sales_count"`
	CreditSalesCount int `json:"credit_sales_count"`

	AverageSale decimal.Decimal `json:"average_sale"`
	SalesGrowth decimal.Decimal `json:"sales_growth"`

	TopProducts    []ProductRanking `json:"top_products"`
	BottomProducts []ProductRanking `json:"bottom_products"`
	TimeSeries     []DailyPoint     `json:"time_series"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

func IsSupportedPaymentMethod(method string) bool {
	switch method {
	case PaymentCash, PaymentMpesa, PaymentBank, PaymentCredit:
		return true
	default:
		return false
	}
}

func IsCreditStatus(status string) bool {
	switch status {
	case CreditStatusUnpaid, CreditStatusPartiallyPaid, CreditStatusPaid:
		return true
	default:
		return false
	}
}
