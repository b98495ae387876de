package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mine-martin-12/web-POS/internal/cache"
	"github.com/mine-martin-12/web-POS/internal/domain"
	"github.com/mine-martin-12/web-POS/internal/reconcile"
	"github.com/mine-martin-12/web-POS/internal/store"
)

const dateLayout = "2006-01-02"

type tenantContextKey struct{}

func WithTenant(ctx context.Context, tenant domain.TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenant)
}

func TenantFromContext(ctx context.Context) (domain.TenantContext, bool) {
	tenant, ok := ctx.Value(tenantContextKey{}).(domain.TenantContext)
	return tenant, ok
}

type Service struct {
	repo              store.Repository
	dashboardCache    cache.DashboardCache
	dashboardCacheTTL time.Duration
}

func New(repo store.Repository, dashboardCache cache.DashboardCache, dashboardCacheTTL time.Duration) *Service {
	if dashboardCache == nil {
		dashboardCache = cache.NoopDashboardCache{}
	}
	if dashboardCacheTTL <= 0 {
		dashboardCacheTTL = 60 * time.Second
	}

	return &Service{
		repo:              repo,
		dashboardCache:    dashboardCache,
		dashboardCacheTTL: dashboardCacheTTL,
	}
}

func (s *Service) tenant(ctx context.Context) (domain.TenantContext, error) {
	tenant, ok := TenantFromContext(ctx)
	if !ok || tenant.BusinessID == "" {
		return domain.TenantContext{}, store.ErrAccessDenied
	}
	return tenant, nil
}

func (s *Service) admin(ctx context.Context) (domain.TenantContext, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return domain.TenantContext{}, err
	}
	if !tenant.IsAdmin() {
		return domain.TenantContext{}, store.ErrAccessDenied
	}
	return tenant, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	tenant, err := s.admin(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name is required", store.ErrValidation)
	}
	if req.StockQuantity < 0 {
		return domain.Product{}, fmt.Errorf("%w: stock quantity cannot be negative", store.ErrValidation)
	}
	if req.BuyingPrice.Sign() < 0 {
		return domain.Product{}, fmt.Errorf("%w: buying price cannot be negative", store.ErrValidation)
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		BusinessID:    tenant.BusinessID,
		Name:          req.Name,
		Description:   strings.TrimSpace(req.Description),
		Size:          strings.TrimSpace(req.Size),
		StockQuantity: req.StockQuantity,
		BuyingPrice:   req.BuyingPrice,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, tenant, "product.create", "product", created.ID, created.Name)
	return *created, nil
}

func (s *Service) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.GetProduct(ctx, tenant.BusinessID, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, tenant.BusinessID)
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	tenant, err := s.admin(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, tenant.BusinessID, productID)
	if err != nil {
		return domain.Product{}, err
	}

	product := *existing
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Size != nil {
		product.Size = strings.TrimSpace(*req.Size)
	}
	if req.BuyingPrice != nil {
		product.BuyingPrice = *req.BuyingPrice
	}
	if product.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name is required", store.ErrValidation)
	}
	if product.BuyingPrice.Sign() < 0 {
		return domain.Product{}, fmt.Errorf("%w: buying price cannot be negative", store.ErrValidation)
	}

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, tenant, "product.update", "product", updated.ID, updated.Name)
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, productID string) error {
	tenant, err := s.admin(ctx)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteProduct(ctx, tenant.BusinessID, productID); err != nil {
		return err
	}

	s.logAudit(ctx, tenant, "product.delete", "product", productID, "")
	return nil
}

func (s *Service) AdjustStock(ctx context.Context, productID string, req domain.StockAdjustRequest) (domain.Product, error) {
	tenant, err := s.admin(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	if req.Delta == 0 {
		return domain.Product{}, fmt.Errorf("%w: delta cannot be zero", store.ErrValidation)
	}

	adjusted, err := s.repo.AdjustStock(ctx, tenant.BusinessID, productID, req.Delta)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, tenant, "product.adjust_stock", "product", productID, fmt.Sprintf("delta=%d", req.Delta))
	return *adjusted, nil
}

// RecordSale creates a sale and, for credit payments, opens the credit
// account in the same atomic storage step. The stored total is always
// quantity times selling price; any client-sent total is ignored.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleCreateRequest) (domain.SaleResponse, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	if req.ProductID == "" {
		return domain.SaleResponse{}, fmt.Errorf("%w: product_id is required", store.ErrValidation)
	}
	if req.Quantity < 1 {
		return domain.SaleResponse{}, fmt.Errorf("%w: quantity must be at least 1", store.ErrValidation)
	}
	if req.SellingPrice.Sign() < 0 {
		return domain.SaleResponse{}, fmt.Errorf("%w: selling price cannot be negative", store.ErrValidation)
	}
	if !domain.IsSupportedPaymentMethod(req.PaymentMethod) {
		return domain.SaleResponse{}, fmt.Errorf("%w: unsupported payment method %q", store.ErrValidation, req.PaymentMethod)
	}

	saleDate := time.Now().UTC()
	if req.SaleDate != "" {
		saleDate, err = time.Parse(dateLayout, req.SaleDate)
		if err != nil {
			return domain.SaleResponse{}, fmt.Errorf("%w: sale_date must be YYYY-MM-DD", store.ErrValidation)
		}
	}

	sale := domain.Sale{
		BusinessID:    tenant.BusinessID,
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		SellingPrice:  req.SellingPrice,
		PaymentMethod: req.PaymentMethod,
		SaleDate:      saleDate,
		Description:   strings.TrimSpace(req.Description),
	}

	var credit *domain.CreditAccount
	if req.PaymentMethod == domain.PaymentCredit {
		customerName := strings.TrimSpace(req.CustomerName)
		if customerName == "" {
			return domain.SaleResponse{}, fmt.Errorf("%w: customer_name is required for credit sales", store.ErrValidation)
		}
		if req.DueDate == "" {
			return domain.SaleResponse{}, fmt.Errorf("%w: due_date is required for credit sales", store.ErrValidation)
		}
		dueDate, err := time.Parse(dateLayout, req.DueDate)
		if err != nil {
			return domain.SaleResponse{}, fmt.Errorf("%w: due_date must be YYYY-MM-DD", store.ErrValidation)
		}
		credit = &domain.CreditAccount{
			CustomerName: customerName,
			DueDate:      dueDate,
		}
	}

	created, err := s.repo.CreateSale(ctx, sale, credit)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	resp := domain.SaleResponse{Sale: *created}
	if credit != nil {
		account, err := s.repo.GetCreditAccountBySale(ctx, tenant.BusinessID, created.ID)
		if err != nil {
			return domain.SaleResponse{}, err
		}
		resp.Credit = account
	}

	s.logAudit(ctx, tenant, "sale.create", "sale", created.ID, created.PaymentMethod)
	return resp, nil
}

// UpdateSale re-adjusts stock by the quantity delta. An existing credit
// account keeps its amount_owed; corrections to the owed balance go through
// UpdateCreditAccount.
func (s *Service) UpdateSale(ctx context.Context, saleID string, req domain.SaleUpdateRequest) (domain.SaleResponse, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	existing, err := s.repo.GetSale(ctx, tenant.BusinessID, saleID)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	sale := *existing
	if req.ProductID != nil {
		sale.ProductID = *req.ProductID
	}
	if req.Quantity != nil {
		sale.Quantity = *req.Quantity
	}
	if req.SellingPrice != nil {
		sale.SellingPrice = *req.SellingPrice
	}
	if req.PaymentMethod != nil {
		sale.PaymentMethod = *req.PaymentMethod
	}
	if req.SaleDate != nil {
		saleDate, err := time.Parse(dateLayout, *req.SaleDate)
		if err != nil {
			return domain.SaleResponse{}, fmt.Errorf("%w: sale_date must be YYYY-MM-DD", store.ErrValidation)
		}
		sale.SaleDate = saleDate
	}
	if req.Description != nil {
		sale.Description = strings.TrimSpace(*req.Description)
	}

	if sale.Quantity < 1 {
		return domain.SaleResponse{}, fmt.Errorf("%w: quantity must be at least 1", store.ErrValidation)
	}
	if sale.SellingPrice.Sign() < 0 {
		return domain.SaleResponse{}, fmt.Errorf("%w: selling price cannot be negative", store.ErrValidation)
	}
	if !domain.IsSupportedPaymentMethod(sale.PaymentMethod) {
		return domain.SaleResponse{}, fmt.Errorf("%w: unsupported payment method %q", store.ErrValidation, sale.PaymentMethod)
	}
	// Switching an existing credit sale to another method would orphan its
	// account; the account must be settled or deleted first.
	if existing.PaymentMethod == domain.PaymentCredit && sale.PaymentMethod != domain.PaymentCredit {
		if _, err := s.repo.GetCreditAccountBySale(ctx, tenant.BusinessID, saleID); err == nil {
			return domain.SaleResponse{}, fmt.Errorf("%w: sale has an open credit account", store.ErrValidation)
		}
	}

	updated, err := s.repo.UpdateSale(ctx, sale)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	resp := domain.SaleResponse{Sale: *updated}
	if account, err := s.repo.GetCreditAccountBySale(ctx, tenant.BusinessID, saleID); err == nil {
		resp.Credit = account
	}

	s.logAudit(ctx, tenant, "sale.update", "sale", saleID, "")
	return resp, nil
}

func (s *Service) DeleteSale(ctx context.Context, saleID string) error {
	tenant, err := s.admin(ctx)
	if err != nil {
		return err
	}

	deleted, err := s.repo.DeleteSale(ctx, tenant.BusinessID, saleID)
	if err != nil {
		return err
	}

	s.logAudit(ctx, tenant, "sale.delete", "sale", deleted.ID, fmt.Sprintf("restored_stock=%d", deleted.Quantity))
	return nil
}

// ListSales returns the tenant's sales in the date window, joined with
// product cost and credit state, ordered by sale date ascending. An empty
// window defaults to the last 30 days.
func (s *Service) ListSales(ctx context.Context, fromDate string, toDate string) ([]domain.SaleRecord, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}

	from, to, err := parseWindow(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSaleRecords(ctx, tenant.BusinessID, from, to)
}

func (s *Service) GetCreditAccount(ctx context.Context, accountID string) (domain.CreditAccount, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return domain.CreditAccount{}, err
	}

	account, err := s.repo.GetCreditAccount(ctx, tenant.BusinessID, accountID)
	if err != nil {
		return domain.CreditAccount{}, err
	}
	return *account, nil
}

func (s *Service) ListCreditAccounts(ctx context.Context, status string) ([]domain.CreditAccount, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if status != "" && !domain.IsCreditStatus(status) {
		return nil, fmt.Errorf("%w: unknown credit status %q", store.ErrValidation, status)
	}
	return s.repo.ListCreditAccounts(ctx, tenant.BusinessID, status)
}

// RecordCreditPayment applies a partial or full payment. The amount must be
// positive and no greater than the outstanding balance; the status moves
// through unpaid, partially_paid and paid purely from the owed/paid
// relationship.
func (s *Service) RecordCreditPayment(ctx context.Context, accountID string, req domain.CreditPaymentRequest) (domain.CreditAccount, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return domain.CreditAccount{}, err
	}

	account, err := s.repo.RecordCreditPayment(ctx, tenant.BusinessID, accountID, req.Amount)
	if err != nil {
		return domain.CreditAccount{}, err
	}

	s.logAudit(ctx, tenant, "credit.payment", "credit_account", accountID, req.Amount.String())
	return *account, nil
}

// UpdateCreditAccount corrects customer name, owed amount or due date. The
// status is re-derived from the corrected amounts unless an explicit status
// override is supplied, which requires the admin role.
func (s *Service) UpdateCreditAccount(ctx context.Context, accountID string, req domain.CreditAccountUpdateRequest) (domain.CreditAccount, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return domain.CreditAccount{}, err
	}

	existing, err := s.repo.GetCreditAccount(ctx, tenant.BusinessID, accountID)
	if err != nil {
		return domain.CreditAccount{}, err
	}

	account := *existing
	if req.CustomerName != nil {
		account.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	if req.AmountOwed != nil {
		if req.AmountOwed.Sign() < 0 {
			return domain.CreditAccount{}, fmt.Errorf("%w: amount owed cannot be negative", store.ErrValidation)
		}
		account.AmountOwed = *req.AmountOwed
	}
	if req.DueDate != nil {
		dueDate, err := time.Parse(dateLayout, *req.DueDate)
		if err != nil {
			return domain.CreditAccount{}, fmt.Errorf("%w: due_date must be YYYY-MM-DD", store.ErrValidation)
		}
		account.DueDate = dueDate
	}

	if req.Status != nil {
		if !tenant.IsAdmin() {
			return domain.CreditAccount{}, store.ErrAccessDenied
		}
		if !domain.IsCreditStatus(*req.Status) {
			return domain.CreditAccount{}, fmt.Errorf("%w: unknown credit status %q", store.ErrValidation, *req.Status)
		}
		account.Status = *req.Status
	} else {
		account.Status = reconcile.DeriveCreditStatus(account.AmountOwed, account.AmountPaid)
	}

	updated, err := s.repo.UpdateCreditAccount(ctx, account)
	if err != nil {
		return domain.CreditAccount{}, err
	}

	s.logAudit(ctx, tenant, "credit.update", "credit_account", accountID, "")
	return *updated, nil
}

// DeleteCreditAccount forgives the remaining balance: the account row goes
// away and the sale reconciles as credit without an account, fully pending.
func (s *Service) DeleteCreditAccount(ctx context.Context, accountID string) error {
	tenant, err := s.admin(ctx)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteCreditAccount(ctx, tenant.BusinessID, accountID); err != nil {
		return err
	}

	s.logAudit(ctx, tenant, "credit.delete", "credit_account", accountID, "")
	return nil
}

// Dashboard computes the aggregate metrics for the date window, serving
// from the cache when a fresh copy exists. Growth compares against the
// previous window of equal length.
func (s *Service) Dashboard(ctx context.Context, fromDate string, toDate string) (domain.DashboardMetrics, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return domain.DashboardMetrics{}, err
	}

	from, to, err := parseWindow(fromDate, toDate)
	if err != nil {
		return domain.DashboardMetrics{}, err
	}

	cacheKey := fmt.Sprintf("dashboard:%s:%s:%s", tenant.BusinessID, from.Format(dateLayout), to.Format(dateLayout))
	if cached, ok, err := s.dashboardCache.Get(ctx, cacheKey); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: dashboard cache get failed: %v", err)
	}

	current, err := s.repo.ListSaleRecords(ctx, tenant.BusinessID, from, to)
	if err != nil {
		return domain.DashboardMetrics{}, err
	}

	prevFrom, prevTo := reconcile.PreviousWindow(from, to)
	previous, err := s.repo.ListSaleRecords(ctx, tenant.BusinessID, prevFrom, prevTo)
	if err != nil {
		return domain.DashboardMetrics{}, err
	}

	metrics := reconcile.BuildDashboard(current, previous, from, to)
	if err := s.dashboardCache.Set(ctx, cacheKey, &metrics, s.dashboardCacheTTL); err != nil {
		log.Printf("[service] WARN: dashboard cache set failed: %v", err)
	}
	return metrics, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, fromDate string, toDate string, limit int) ([]domain.AuditLog, error) {
	tenant, err := s.admin(ctx)
	if err != nil {
		return nil, err
	}

	from, to, err := parseWindow(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, tenant.BusinessID, from, to, limit)
}

// parseWindow turns the inclusive YYYY-MM-DD pair into UTC bounds covering
// whole days. Empty inputs default to the last 30 days ending today.
func parseWindow(fromDate string, toDate string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -29)

	var err error
	if fromDate != "" {
		from, err = time.Parse(dateLayout, fromDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from must be YYYY-MM-DD", store.ErrValidation)
		}
	}
	if toDate != "" {
		to, err = time.Parse(dateLayout, toDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to must be YYYY-MM-DD", store.ErrValidation)
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to is before from", store.ErrValidation)
	}

	// The to bound is pushed to the end of its day so sales recorded with a
	// time component still fall inside the window.
	to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return from, to, nil
}

func (s *Service) logAudit(ctx context.Context, tenant domain.TenantContext, action string, entityType string, entityID string, detail string) {
	entry := domain.AuditLog{
		BusinessID: tenant.BusinessID,
		ActorID:    tenant.UserID,
		ActorRole:  tenant.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		log.Printf("[service] WARN: audit log write failed for %s: %v", action, err)
	}
}
