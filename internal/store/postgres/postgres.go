package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/mine-martin-12/web-POS/internal/domain"
	"github.com/mine-martin-12/web-POS/internal/reconcile"
	"github.com/mine-martin-12/web-POS/internal/store"
	"github.com/mine-martin-12/web-POS/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.BusinessID == "" || strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrValidation
	}
	if product.StockQuantity < 0 || product.BuyingPrice.Sign() < 0 {
		return nil, store.ErrValidation
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, business_id, name, description, size, stock_quantity, buying_price, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
	`, product.ID, product.BusinessID, product.Name, product.Description, product.Size, product.StockQuantity, product.BuyingPrice, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, businessID string, productID string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, business_id, name, description, size, stock_quantity, buying_price, created_at, updated_at
		FROM products
		WHERE business_id = $1 AND id = $2
	`, businessID, productID).Scan(&p.ID, &p.BusinessID, &p.Name, &p.Description, &p.Size, &p.StockQuantity, &p.BuyingPrice, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, businessID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business_id, name, description, size, stock_quantity, buying_price, created_at, updated_at
		FROM products
		WHERE business_id = $1
		ORDER BY name
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.BusinessID, &p.Name, &p.Description, &p.Size, &p.StockQuantity, &p.BuyingPrice, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.BuyingPrice.Sign() < 0 {
		return nil, store.ErrValidation
	}

	// stock_quantity is deliberately absent; stock only moves through
	// AdjustStock and the sale lifecycle.
	var updated domain.Product
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $3, description = $4, size = $5, buying_price = $6, updated_at = now()
		WHERE business_id = $1 AND id = $2
		RETURNING id, business_id, name, description, size, stock_quantity, buying_price, created_at, updated_at
	`, product.BusinessID, product.ID, product.Name, product.Description, product.Size, product.BuyingPrice).
		Scan(&updated.ID, &updated.BusinessID, &updated.Name, &updated.Description, &updated.Size, &updated.StockQuantity, &updated.BuyingPrice, &updated.CreatedAt, &updated.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, businessID string, productID string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM credit_accounts
		WHERE business_id = $1 AND sale_id IN (SELECT id FROM sales WHERE business_id = $1 AND product_id = $2)
	`, businessID, productID)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		DELETE FROM sales WHERE business_id = $1 AND product_id = $2
	`, businessID, productID)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		DELETE FROM products WHERE business_id = $1 AND id = $2
	`, businessID, productID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}

func (s *Store) AdjustStock(ctx context.Context, businessID string, productID string, delta int) (*domain.Product, error) {
	// The non-negative check runs inside the UPDATE itself, so concurrent
	// adjustments serialize on the row and can never drive stock below zero.
	var adjusted domain.Product
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $3, updated_at = now()
		WHERE business_id = $1 AND id = $2 AND stock_quantity + $3 >= 0
		RETURNING id, business_id, name, description, size, stock_quantity, buying_price, created_at, updated_at
	`, businessID, productID, delta).
		Scan(&adjusted.ID, &adjusted.BusinessID, &adjusted.Name, &adjusted.Description, &adjusted.Size, &adjusted.StockQuantity, &adjusted.BuyingPrice, &adjusted.CreatedAt, &adjusted.UpdatedAt)
	if err == nil {
		return &adjusted, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// Zero rows means the product is missing or the guard failed; only an
	// existing row can report insufficient stock.
	if _, getErr := s.GetProduct(ctx, businessID, productID); getErr != nil {
		return nil, getErr
	}
	return nil, store.ErrInsufficientStock
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, credit *domain.CreditAccount) (*domain.Sale, error) {
	if sale.BusinessID == "" || sale.Quantity < 1 || sale.SellingPrice.Sign() < 0 {
		return nil, store.ErrValidation
	}
	if !domain.IsSupportedPaymentMethod(sale.PaymentMethod) {
		return nil, store.ErrValidation
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

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := decrementStockTx(ctx, tx, sale.BusinessID, sale.ProductID, sale.Quantity); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, business_id, product_id, quantity, selling_price, total_price, payment_method, sale_date, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
	`, sale.ID, sale.BusinessID, sale.ProductID, sale.Quantity, sale.SellingPrice, sale.TotalPrice, sale.PaymentMethod, sale.SaleDate, sale.Description, now)
	if err != nil {
		return nil, err
	}

	if credit != nil {
		account := *credit
		if account.ID == "" {
			account.ID = xid.New("credit")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO credit_accounts (id, business_id, sale_id, customer_name, amount_owed, amount_paid, due_date, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,0,$6,$7,$8,$8)
		`, account.ID, sale.BusinessID, sale.ID, account.CustomerName, sale.TotalPrice, account.DueDate, domain.CreditStatusUnpaid, now)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := sale
	return &created, nil
}

func decrementStockTx(ctx context.Context, tx *sql.Tx, businessID string, productID string, quantity int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $3, updated_at = now()
		WHERE business_id = $1 AND id = $2 AND stock_quantity >= $3
	`, businessID, productID, quantity)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM products WHERE business_id = $1 AND id = $2)
		`, businessID, productID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return store.ErrNotFound
		}
		return store.ErrInsufficientStock
	}
	return nil
}

func (s *Store) GetSale(ctx context.Context, businessID string, saleID string) (*domain.Sale, error) {
	var sale domain.Sale
	err := s.db.QueryRowContext(ctx, `
		SELECT id, business_id, product_id, quantity, selling_price, total_price, payment_method, sale_date, description, created_at, updated_at
		FROM sales
		WHERE business_id = $1 AND id = $2
	`, businessID, saleID).
		Scan(&sale.ID, &sale.BusinessID, &sale.ProductID, &sale.Quantity, &sale.SellingPrice, &sale.TotalPrice, &sale.PaymentMethod, &sale.SaleDate, &sale.Description, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.SaleDate = sale.SaleDate.UTC()
	return &sale, nil
}

func (s *Store) UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.Quantity < 1 || sale.SellingPrice.Sign() < 0 || !domain.IsSupportedPaymentMethod(sale.PaymentMethod) {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var prevProductID string
	var prevQuantity int
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT product_id, quantity, created_at
		FROM sales
		WHERE business_id = $1 AND id = $2
		FOR UPDATE
	`, sale.BusinessID, sale.ID).Scan(&prevProductID, &prevQuantity, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	// Restore the previous quantity first so an unchanged product row checks
	// availability against stock plus what this sale already holds. The
	// transaction rolls back on any failure, so nothing is half-applied.
	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $3, updated_at = now()
		WHERE business_id = $1 AND id = $2
	`, sale.BusinessID, prevProductID, prevQuantity)
	if err != nil {
		return nil, err
	}
	if err := decrementStockTx(ctx, tx, sale.BusinessID, sale.ProductID, sale.Quantity); err != nil {
		return nil, err
	}

	sale.TotalPrice = reconcile.TotalPrice(sale.Quantity, sale.SellingPrice)
	sale.CreatedAt = createdAt
	sale.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE sales
		SET product_id = $3, quantity = $4, selling_price = $5, total_price = $6, payment_method = $7, sale_date = $8, description = $9, updated_at = $10
		WHERE business_id = $1 AND id = $2
	`, sale.BusinessID, sale.ID, sale.ProductID, sale.Quantity, sale.SellingPrice, sale.TotalPrice, sale.PaymentMethod, sale.SaleDate, sale.Description, sale.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	updated := sale
	return &updated, nil
}

func (s *Store) DeleteSale(ctx context.Context, businessID string, saleID string) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var sale domain.Sale
	err = tx.QueryRowContext(ctx, `
		SELECT id, business_id, product_id, quantity, selling_price, total_price, payment_method, sale_date, description, created_at, updated_at
		FROM sales
		WHERE business_id = $1 AND id = $2
		FOR UPDATE
	`, businessID, saleID).
		Scan(&sale.ID, &sale.BusinessID, &sale.ProductID, &sale.Quantity, &sale.SellingPrice, &sale.TotalPrice, &sale.PaymentMethod, &sale.SaleDate, &sale.Description, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $3, updated_at = now()
		WHERE business_id = $1 AND id = $2
	`, businessID, sale.ProductID, sale.Quantity)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		DELETE FROM credit_accounts WHERE business_id = $1 AND sale_id = $2
	`, businessID, saleID)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		DELETE FROM sales WHERE business_id = $1 AND id = $2
	`, businessID, saleID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	deleted := sale
	return &deleted, nil
}

func (s *Store) ListSaleRecords(ctx context.Context, businessID string, from time.Time, to time.Time) ([]domain.SaleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			s.id, s.business_id, s.product_id, s.quantity, s.selling_price, s.total_price,
			s.payment_method, s.sale_date, s.description, s.created_at, s.updated_at,
			p.name, p.buying_price,
			c.id, c.customer_name, c.amount_owed, c.amount_paid, c.due_date, c.status, c.created_at, c.updated_at
		FROM sales s
		JOIN products p ON p.id = s.product_id AND p.business_id = s.business_id
		LEFT JOIN credit_accounts c ON c.sale_id = s.id AND c.business_id = s.business_id
		WHERE s.business_id = $1 AND s.sale_date >= $2 AND s.sale_date <= $3
		ORDER BY s.sale_date, s.id
	`, businessID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.SaleRecord, 0, 128)
	for rows.Next() {
		var rec domain.SaleRecord
		var creditID, customerName, status sql.NullString
		var amountOwed, amountPaid decimal.NullDecimal
		var dueDate, creditCreated, creditUpdated sql.NullTime
		err := rows.Scan(
			&rec.Sale.ID, &rec.Sale.BusinessID, &rec.Sale.ProductID, &rec.Sale.Quantity, &rec.Sale.SellingPrice, &rec.Sale.TotalPrice,
			&rec.Sale.PaymentMethod, &rec.Sale.SaleDate, &rec.Sale.Description, &rec.Sale.CreatedAt, &rec.Sale.UpdatedAt,
			&rec.ProductName, &rec.BuyingPrice,
			&creditID, &customerName, &amountOwed, &amountPaid, &dueDate, &status, &creditCreated, &creditUpdated,
		)
		if err != nil {
			return nil, err
		}
		rec.Sale.SaleDate = rec.Sale.SaleDate.UTC()
		if creditID.Valid {
			rec.Credit = &domain.CreditAccount{
				ID:           creditID.String,
				BusinessID:   rec.Sale.BusinessID,
				SaleID:       rec.Sale.ID,
				CustomerName: customerName.String,
				AmountOwed:   amountOwed.Decimal,
				AmountPaid:   amountPaid.Decimal,
				DueDate:      dueDate.Time,
				Status:       status.String,
				CreatedAt:    creditCreated.Time,
				UpdatedAt:    creditUpdated.Time,
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) GetCreditAccount(ctx context.Context, businessID string, accountID string) (*domain.CreditAccount, error) {
	return s.getCreditAccount(ctx, businessID, "id", accountID)
}

func (s *Store) GetCreditAccountBySale(ctx context.Context, businessID string, saleID string) (*domain.CreditAccount, error) {
	return s.getCreditAccount(ctx, businessID, "sale_id", saleID)
}

func (s *Store) getCreditAccount(ctx context.Context, businessID string, column string, value string) (*domain.CreditAccount, error) {
	var account domain.CreditAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, business_id, sale_id, customer_name, amount_owed, amount_paid, due_date, status, created_at, updated_at
		FROM credit_accounts
		WHERE business_id = $1 AND `+column+` = $2
	`, businessID, value).
		Scan(&account.ID, &account.BusinessID, &account.SaleID, &account.CustomerName, &account.AmountOwed, &account.AmountPaid, &account.DueDate, &account.Status, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (s *Store) ListCreditAccounts(ctx context.Context, businessID string, status string) ([]domain.CreditAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business_id, sale_id, customer_name, amount_owed, amount_paid, due_date, status, created_at, updated_at
		FROM credit_accounts
		WHERE business_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY due_date, id
	`, businessID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.CreditAccount, 0, 64)
	for rows.Next() {
		var account domain.CreditAccount
		if err := rows.Scan(&account.ID, &account.BusinessID, &account.SaleID, &account.CustomerName, &account.AmountOwed, &account.AmountPaid, &account.DueDate, &account.Status, &account.CreatedAt, &account.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *Store) RecordCreditPayment(ctx context.Context, businessID string, accountID string, amount decimal.Decimal) (*domain.CreditAccount, error) {
	if amount.Sign() <= 0 {
		return nil, store.ErrInvalidPaymentAmount
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Row lock serializes concurrent payments against the same account; the
	// balance check sees the committed amount_paid, never a stale read.
	var account domain.CreditAccount
	err = tx.QueryRowContext(ctx, `
		SELECT id, business_id, sale_id, customer_name, amount_owed, amount_paid, due_date, status, created_at, updated_at
		FROM credit_accounts
		WHERE business_id = $1 AND id = $2
		FOR UPDATE
	`, businessID, accountID).
		Scan(&account.ID, &account.BusinessID, &account.SaleID, &account.CustomerName, &account.AmountOwed, &account.AmountPaid, &account.DueDate, &account.Status, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if amount.GreaterThan(account.Outstanding()) {
		return nil, store.ErrInvalidPaymentAmount
	}

	account.AmountPaid = account.AmountPaid.Add(amount)
	account.Status = reconcile.DeriveCreditStatus(account.AmountOwed, account.AmountPaid)
	account.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE credit_accounts
		SET amount_paid = $3, status = $4, updated_at = $5
		WHERE business_id = $1 AND id = $2
	`, businessID, accountID, account.AmountPaid, account.Status, account.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Store) UpdateCreditAccount(ctx context.Context, account domain.CreditAccount) (*domain.CreditAccount, error) {
	if strings.TrimSpace(account.CustomerName) == "" || account.AmountOwed.Sign() < 0 || account.AmountPaid.Sign() < 0 {
		return nil, store.ErrValidation
	}
	if !domain.IsCreditStatus(account.Status) {
		return nil, store.ErrValidation
	}

	var updated domain.CreditAccount
	err := s.db.QueryRowContext(ctx, `
		UPDATE credit_accounts
		SET customer_name = $3, amount_owed = $4, amount_paid = $5, due_date = $6, status = $7, updated_at = now()
		WHERE business_id = $1 AND id = $2
		RETURNING id, business_id, sale_id, customer_name, amount_owed, amount_paid, due_date, status, created_at, updated_at
	`, account.BusinessID, account.ID, account.CustomerName, account.AmountOwed, account.AmountPaid, account.DueDate, account.Status).
		Scan(&updated.ID, &updated.BusinessID, &updated.SaleID, &updated.CustomerName, &updated.AmountOwed, &updated.AmountPaid, &updated.DueDate, &updated.Status, &updated.CreatedAt, &updated.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteCreditAccount(ctx context.Context, businessID string, accountID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM credit_accounts WHERE business_id = $1 AND id = $2
	`, businessID, accountID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateBusiness(ctx context.Context, business domain.Business) (*domain.Business, error) {
	if strings.TrimSpace(business.Name) == "" {
		return nil, store.ErrValidation
	}
	if business.ID == "" {
		business.ID = xid.New("biz")
	}
	if business.CreatedAt.IsZero() {
		business.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO businesses (id, name, owner_id, created_at)
		VALUES ($1,$2,$3,$4)
	`, business.ID, business.Name, business.OwnerID, business.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := business
	return &created, nil
}

func (s *Store) GetBusiness(ctx context.Context, businessID string) (*domain.Business, error) {
	var business domain.Business
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at
		FROM businesses
		WHERE id = $1
	`, businessID).Scan(&business.ID, &business.Name, &business.OwnerID, &business.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &business, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" || user.Password == "" || user.BusinessID == "" {
		return store.ErrValidation
	}
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, business_id, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, user.ID, email, user.Password, user.BusinessID, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrValidation
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, business_id, role, active, created_at
		FROM users
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))).
		Scan(&user.ID, &user.Email, &user.Password, &user.BusinessID, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, business_id, actor_id, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.BusinessID, entry.ActorID, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, businessID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business_id, actor_id, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE business_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, businessID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.BusinessID, &entry.ActorID, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
