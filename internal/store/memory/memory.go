package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mine-martin-12/web-POS/internal/domain"
	"github.com/mine-martin-12/web-POS/internal/reconcile"
	"github.com/mine-martin-12/web-POS/internal/store"
	"github.com/mine-martin-12/web-POS/internal/xid"
)

// Store is a mutex-guarded in-memory Repository used for development and
// tests. All stock and payment checks happen under the write lock, so the
// atomicity guarantees match the postgres implementation.
type Store struct {
	mu             sync.RWMutex
	businessesByID map[string]domain.Business
	usersByEmail   map[string]domain.UserAccount
	productsByID   map[string]domain.Product
	salesByID      map[string]domain.Sale
	creditsByID    map[string]domain.CreditAccount
	creditBySaleID map[string]string
	auditLogs      []domain.AuditLog
}

func New() *Store {
	return &Store{
		businessesByID: make(map[string]domain.Business),
		usersByEmail:   make(map[string]domain.UserAccount),
		productsByID:   make(map[string]domain.Product),
		salesByID:      make(map[string]domain.Sale),
		creditsByID:    make(map[string]domain.CreditAccount),
		creditBySaleID: make(map[string]string),
		auditLogs:      make([]domain.AuditLog, 0, 128),
	}
}

// SeedBusinessID is the tenant id of the demo business created by NewSeeded.
const SeedBusinessID = "biz-demo"

// seedUsers builds the initial accounts for dev/demo mode. Credentials are
// read from SEED_ADMIN_PASSWORD and SEED_USER_PASSWORD environment
// variables; hardcoded dev defaults are used with a warning otherwise.
// These credentials are never used in production (the backend uses
// PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	userPwd := envOr("SEED_USER_PASSWORD", "user123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_USER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_USER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		email    string
		password string
		role     string
	}{
		{"admin@demo.local", adminPwd, domain.RoleAdmin},
		{"user@demo.local", userPwd, domain.RoleUser},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.email, err)
		}
		users[u.email] = domain.UserAccount{
			ID:         xid.New("user"),
			Email:      u.email,
			Password:   string(hash),
			BusinessID: SeedBusinessID,
			Role:       u.role,
			Active:     true,
			CreatedAt:  now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	s.businessesByID[SeedBusinessID] = domain.Business{
		ID:        SeedBusinessID,
		Name:      "Demo General Store",
		CreatedAt: now,
	}
	s.usersByEmail = seedUsers()

	seed := []struct {
		id    string
		name  string
		size  string
		stock int
		cost  string
	}{
		{"prod-maize-flour", "Maize Flour", "2kg", 120, "145.00"},
		{"prod-sugar", "Sugar", "1kg", 90, "155.50"},
		{"prod-cooking-oil", "Cooking Oil", "1L", 60, "310.00"},
		{"prod-milk", "Fresh Milk", "500ml", 80, "48.00"},
		{"prod-bread", "Bread", "400g", 40, "52.00"},
		{"prod-rice", "Rice", "2kg", 70, "260.00"},
		{"prod-tea-leaves", "Tea Leaves", "250g", 50, "118.00"},
		{"prod-bar-soap", "Bar Soap", "", 100, "95.00"},
	}
	for _, p := range seed {
		s.productsByID[p.id] = domain.Product{
			ID:            p.id,
			BusinessID:    SeedBusinessID,
			Name:          p.name,
			Size:          p.size,
			StockQuantity: p.stock,
			BuyingPrice:   decimal.RequireFromString(p.cost),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	return s
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.BusinessID == "" || strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrValidation
	}
	if product.StockQuantity < 0 || product.BuyingPrice.Sign() < 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.productsByID[product.ID]; exists {
		return nil, store.ErrValidation
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProduct(_ context.Context, businessID string, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.productsByID[productID]
	if !ok || product.BusinessID != businessID {
		return nil, store.ErrNotFound
	}
	found := product
	return &found, nil
}

func (s *Store) ListProducts(_ context.Context, businessID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		if p.BusinessID != businessID {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})

	return products, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.BuyingPrice.Sign() < 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.productsByID[product.ID]
	if !ok || existing.BusinessID != product.BusinessID {
		return nil, store.ErrNotFound
	}

	// Stock only moves through AdjustStock and the sale lifecycle.
	product.StockQuantity = existing.StockQuantity
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()

	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, businessID string, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.productsByID[productID]
	if !ok || product.BusinessID != businessID {
		return store.ErrNotFound
	}

	for saleID, sale := range s.salesByID {
		if sale.ProductID != productID {
			continue
		}
		if creditID, ok := s.creditBySaleID[saleID]; ok {
			delete(s.creditsByID, creditID)
			delete(s.creditBySaleID, saleID)
		}
		delete(s.salesByID, saleID)
	}
	delete(s.productsByID, productID)
	return nil
}

func (s *Store) AdjustStock(_ context.Context, businessID string, productID string, delta int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.productsByID[productID]
	if !ok || product.BusinessID != businessID {
		return nil, store.ErrNotFound
	}

	next := product.StockQuantity + delta
	if next < 0 {
		return nil, store.ErrInsufficientStock
	}
	product.StockQuantity = next
	product.UpdatedAt = time.Now().UTC()
	s.productsByID[productID] = product

	adjusted := product
	return &adjusted, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale, credit *domain.CreditAccount) (*domain.Sale, error) {
	if sale.BusinessID == "" || sale.Quantity < 1 || sale.SellingPrice.Sign() < 0 {
		return nil, store.ErrValidation
	}
	if !domain.IsSupportedPaymentMethod(sale.PaymentMethod) {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.productsByID[sale.ProductID]
	if !ok || product.BusinessID != sale.BusinessID {
		return nil, store.ErrNotFound
	}

	remaining := product.StockQuantity - sale.Quantity
	if remaining < 0 {
		return nil, store.ErrInsufficientStock
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	now := time.Now().UTC()
	if sale.SaleDate.IsZero() {
		sale.SaleDate = now
	}
	sale.TotalPrice = reconcile.TotalPrice(sale.Quantity, sale.SellingPrice)
	sale.CreatedAt = now
	sale.UpdatedAt = now

	product.StockQuantity = remaining
	product.UpdatedAt = now
	s.productsByID[product.ID] = product
	s.salesByID[sale.ID] = sale

	if credit != nil {
		account := *credit
		if account.ID == "" {
			account.ID = xid.New("credit")
		}
		account.BusinessID = sale.BusinessID
		account.SaleID = sale.ID
		account.AmountOwed = sale.TotalPrice
		account.AmountPaid = decimal.Zero
		account.Status = domain.CreditStatusUnpaid
		account.CreatedAt = now
		account.UpdatedAt = now
		s.creditsByID[account.ID] = account
		s.creditBySaleID[sale.ID] = account.ID
	}

	created := sale
	return &created, nil
}

func (s *Store) GetSale(_ context.Context, businessID string, saleID string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[saleID]
	if !ok || sale.BusinessID != businessID {
		return nil, store.ErrNotFound
	}
	found := sale
	return &found, nil
}

func (s *Store) UpdateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.Quantity < 1 || sale.SellingPrice.Sign() < 0 || !domain.IsSupportedPaymentMethod(sale.PaymentMethod) {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.salesByID[sale.ID]
	if !ok || previous.BusinessID != sale.BusinessID {
		return nil, store.ErrNotFound
	}

	newProduct, ok := s.productsByID[sale.ProductID]
	if !ok || newProduct.BusinessID != sale.BusinessID {
		return nil, store.ErrNotFound
	}

	// Effective available stock accounts for the quantity this sale already
	// holds: restore the old quantity to the old product, then check the new
	// product can supply the new quantity. Nothing is applied on failure.
	if previous.ProductID == sale.ProductID {
		available := newProduct.StockQuantity + previous.Quantity
		if available-sale.Quantity < 0 {
			return nil, store.ErrInsufficientStock
		}
		newProduct.StockQuantity = available - sale.Quantity
	} else {
		oldProduct, ok := s.productsByID[previous.ProductID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if newProduct.StockQuantity-sale.Quantity < 0 {
			return nil, store.ErrInsufficientStock
		}
		oldProduct.StockQuantity += previous.Quantity
		newProduct.StockQuantity -= sale.Quantity
		oldProduct.UpdatedAt = time.Now().UTC()
		s.productsByID[oldProduct.ID] = oldProduct
	}

	now := time.Now().UTC()
	newProduct.UpdatedAt = now
	s.productsByID[newProduct.ID] = newProduct

	sale.TotalPrice = reconcile.TotalPrice(sale.Quantity, sale.SellingPrice)
	sale.CreatedAt = previous.CreatedAt
	sale.UpdatedAt = now
	s.salesByID[sale.ID] = sale

	updated := sale
	return &updated, nil
}

func (s *Store) DeleteSale(_ context.Context, businessID string, saleID string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.salesByID[saleID]
	if !ok || sale.BusinessID != businessID {
		return nil, store.ErrNotFound
	}

	if product, ok := s.productsByID[sale.ProductID]; ok {
		product.StockQuantity += sale.Quantity
		product.UpdatedAt = time.Now().UTC()
		s.productsByID[product.ID] = product
	}

	if creditID, ok := s.creditBySaleID[saleID]; ok {
		delete(s.creditsByID, creditID)
		delete(s.creditBySaleID, saleID)
	}
	delete(s.salesByID, saleID)

	deleted := sale
	return &deleted, nil
}

func (s *Store) ListSaleRecords(_ context.Context, businessID string, from time.Time, to time.Time) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.SaleRecord, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if sale.BusinessID != businessID {
			continue
		}
		if sale.SaleDate.Before(from) || sale.SaleDate.After(to) {
			continue
		}
		rec := domain.SaleRecord{Sale: sale}
		if product, ok := s.productsByID[sale.ProductID]; ok {
			rec.ProductName = product.Name
			rec.BuyingPrice = product.BuyingPrice
		}
		if creditID, ok := s.creditBySaleID[sale.ID]; ok {
			account := s.creditsByID[creditID]
			rec.Credit = &account
		}
		records = append(records, rec)
	}

	slices.SortFunc(records, func(a, b domain.SaleRecord) int {
		if a.Sale.SaleDate.Before(b.Sale.SaleDate) {
			return -1
		}
		if a.Sale.SaleDate.After(b.Sale.SaleDate) {
			return 1
		}
		return strings.Compare(a.Sale.ID, b.Sale.ID)
	})

	return records, nil
}

func (s *Store) GetCreditAccount(_ context.Context, businessID string, accountID string) (*domain.CreditAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.creditsByID[accountID]
	if !ok || account.BusinessID != businessID {
		return nil, store.ErrNotFound
	}
	found := account
	return &found, nil
}

func (s *Store) GetCreditAccountBySale(_ context.Context, businessID string, saleID string) (*domain.CreditAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creditID, ok := s.creditBySaleID[saleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	account := s.creditsByID[creditID]
	if account.BusinessID != businessID {
		return nil, store.ErrNotFound
	}
	found := account
	return &found, nil
}

func (s *Store) ListCreditAccounts(_ context.Context, businessID string, status string) ([]domain.CreditAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]domain.CreditAccount, 0, len(s.creditsByID))
	for _, account := range s.creditsByID {
		if account.BusinessID != businessID {
			continue
		}
		if status != "" && account.Status != status {
			continue
		}
		accounts = append(accounts, account)
	}

	slices.SortFunc(accounts, func(a, b domain.CreditAccount) int {
		if a.DueDate.Before(b.DueDate) {
			return -1
		}
		if a.DueDate.After(b.DueDate) {
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})

	return accounts, nil
}

func (s *Store) RecordCreditPayment(_ context.Context, businessID string, accountID string, amount decimal.Decimal) (*domain.CreditAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.creditsByID[accountID]
	if !ok || account.BusinessID != businessID {
		return nil, store.ErrNotFound
	}

	// Checked under the write lock so concurrent payments against the same
	// account serialize and the balance can never be overshot.
	if amount.Sign() <= 0 || amount.GreaterThan(account.Outstanding()) {
		return nil, store.ErrInvalidPaymentAmount
	}

	account.AmountPaid = account.AmountPaid.Add(amount)
	account.Status = reconcile.DeriveCreditStatus(account.AmountOwed, account.AmountPaid)
	account.UpdatedAt = time.Now().UTC()
	s.creditsByID[accountID] = account

	updated := account
	return &updated, nil
}

func (s *Store) UpdateCreditAccount(_ context.Context, account domain.CreditAccount) (*domain.CreditAccount, error) {
	if strings.TrimSpace(account.CustomerName) == "" || account.AmountOwed.Sign() < 0 || account.AmountPaid.Sign() < 0 {
		return nil, store.ErrValidation
	}
	if !domain.IsCreditStatus(account.Status) {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.creditsByID[account.ID]
	if !ok || existing.BusinessID != account.BusinessID {
		return nil, store.ErrNotFound
	}

	account.SaleID = existing.SaleID
	account.CreatedAt = existing.CreatedAt
	account.UpdatedAt = time.Now().UTC()
	s.creditsByID[account.ID] = account

	updated := account
	return &updated, nil
}

func (s *Store) DeleteCreditAccount(_ context.Context, businessID string, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.creditsByID[accountID]
	if !ok || account.BusinessID != businessID {
		return store.ErrNotFound
	}

	delete(s.creditBySaleID, account.SaleID)
	delete(s.creditsByID, accountID)
	return nil
}

func (s *Store) CreateBusiness(_ context.Context, business domain.Business) (*domain.Business, error) {
	if strings.TrimSpace(business.Name) == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if business.ID == "" {
		business.ID = xid.New("biz")
	}
	if _, exists := s.businessesByID[business.ID]; exists {
		return nil, store.ErrValidation
	}
	if business.CreatedAt.IsZero() {
		business.CreatedAt = time.Now().UTC()
	}

	s.businessesByID[business.ID] = business
	created := business
	return &created, nil
}

func (s *Store) GetBusiness(_ context.Context, businessID string) (*domain.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	business, ok := s.businessesByID[businessID]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := business
	return &found, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" || user.Password == "" || user.BusinessID == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[email]; exists {
		return store.ErrValidation
	}
	user.Email = email
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	s.usersByEmail[email] = user
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := user
	return &found, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, businessID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}

	logs := make([]domain.AuditLog, 0, limit)
	for _, entry := range s.auditLogs {
		if entry.BusinessID != businessID {
			continue
		}
		if entry.CreatedAt.Before(from) || entry.CreatedAt.After(to) {
			continue
		}
		logs = append(logs, entry)
	}

	slices.SortFunc(logs, func(a, b domain.AuditLog) int {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return 1
		}
		return strings.Compare(b.ID, a.ID)
	})
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
