package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"medipos/internal/domain"
	"medipos/internal/store"
)

// Store is a Repository backed by PostgreSQL through the pgx stdlib driver.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS inventory_items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			batch TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			purchase_price NUMERIC(12,2) NOT NULL,
			selling_price NUMERIC(12,2) NOT NULL,
			expiry_date TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			sale_date TEXT NOT NULL,
			grand_total NUMERIC(12,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sale_lines (
			sale_id TEXT NOT NULL REFERENCES sales(id),
			item_id TEXT NOT NULL,
			name TEXT NOT NULL,
			batch TEXT NOT NULL,
			unit_price NUMERIC(12,2) NOT NULL,
			quantity INTEGER NOT NULL,
			line_total NUMERIC(12,2) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sale_lines_sale_id ON sale_lines(sale_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(sale_date)`,
		`CREATE TABLE IF NOT EXISTS recoveries (
			id TEXT PRIMARY KEY,
			entry_date TEXT NOT NULL,
			amount NUMERIC(12,2) NOT NULL,
			source TEXT NOT NULL,
			description TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id TEXT PRIMARY KEY,
			entry_date TEXT NOT NULL,
			amount NUMERIC(12,2) NOT NULL,
			category TEXT NOT NULL,
			description TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, batch, quantity, purchase_price, selling_price, expiry_date, created_at
		FROM inventory_items
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]domain.InventoryItem, error) {
	items := make([]domain.InventoryItem, 0, 32)
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Batch, &item.Quantity,
			&item.PurchasePrice, &item.SellingPrice, &item.ExpiryDate, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate items: %w", err)
	}
	return items, nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items (id, name, batch, quantity, purchase_price, selling_price, expiry_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.Name, item.Batch, item.Quantity,
		item.PurchasePrice, item.SellingPrice, item.ExpiryDate, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: create item: %w", err)
	}
	created := item
	return &created, nil
}

func (s *Store) GetItemByID(ctx context.Context, id string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, batch, quantity, purchase_price, selling_price, expiry_date, created_at
		FROM inventory_items WHERE id = $1`, id).Scan(
		&item.ID, &item.Name, &item.Batch, &item.Quantity,
		&item.PurchasePrice, &item.SellingPrice, &item.ExpiryDate, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get item: %w", err)
	}
	return &item, nil
}

func (s *Store) SearchItems(ctx context.Context, term string) ([]domain.InventoryItem, error) {
	pattern := "%" + strings.ToLower(term) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, batch, quantity, purchase_price, selling_price, expiry_date, created_at
		FROM inventory_items
		WHERE LOWER(name) LIKE $1 OR LOWER(batch) LIKE $1
		ORDER BY created_at, id`, pattern)
	if err != nil {
		return nil, fmt.Errorf("postgres: search items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *Store) ApplySale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin sale: %w", err)
	}
	defer tx.Rollback()

	for _, line := range sale.Lines {
		// The quantity guard lives in the UPDATE itself so two concurrent
		// checkouts can never drive stock negative.
		res, err := tx.ExecContext(ctx, `
			UPDATE inventory_items SET quantity = quantity - $2
			WHERE id = $1 AND quantity >= $2`,
			line.ItemID, line.Quantity)
		if err != nil {
			return nil, fmt.Errorf("postgres: decrement stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("postgres: decrement stock: %w", err)
		}
		if affected == 0 {
			shortfall := &store.OutOfStockError{
				ItemID:    line.ItemID,
				Name:      line.Name,
				Batch:     line.Batch,
				Requested: line.Quantity,
			}
			var available int
			if scanErr := tx.QueryRowContext(ctx,
				`SELECT quantity FROM inventory_items WHERE id = $1`,
				line.ItemID).Scan(&available); scanErr == nil {
				shortfall.Available = available
			}
			return nil, shortfall
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, sale_date, grand_total, created_at)
		VALUES ($1, $2, $3, $4)`,
		sale.ID, sale.Date, sale.GrandTotal, sale.CreatedAt); err != nil {
		return nil, fmt.Errorf("postgres: record sale: %w", err)
	}
	for _, line := range sale.Lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_lines (sale_id, item_id, name, batch, unit_price, quantity, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sale.ID, line.ItemID, line.Name, line.Batch,
			line.UnitPrice, line.Quantity, line.LineTotal); err != nil {
			return nil, fmt.Errorf("postgres: record sale line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("postgres: commit sale: %w", err)
	}
	created := sale
	return &created, nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_date, grand_total, created_at
		FROM sales ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sales: %w", err)
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 32)
	index := make(map[string]int)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.Date, &sale.GrandTotal, &sale.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan sale: %w", err)
		}
		sale.Lines = make([]domain.SaleLine, 0, 4)
		index[sale.ID] = len(sales)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate sales: %w", err)
	}

	lineRows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, item_id, name, batch, unit_price, quantity, line_total
		FROM sale_lines`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sale lines: %w", err)
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var saleID string
		var line domain.SaleLine
		if err := lineRows.Scan(&saleID, &line.ItemID, &line.Name, &line.Batch,
			&line.UnitPrice, &line.Quantity, &line.LineTotal); err != nil {
			return nil, fmt.Errorf("postgres: scan sale line: %w", err)
		}
		if idx, ok := index[saleID]; ok {
			sales[idx].Lines = append(sales[idx].Lines, line)
		}
	}
	if err := lineRows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate sale lines: %w", err)
	}
	return sales, nil
}

func (s *Store) CreateRecovery(ctx context.Context, recovery domain.Recovery) (*domain.Recovery, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recoveries (id, entry_date, amount, source, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		recovery.ID, recovery.Date, recovery.Amount, recovery.Source,
		recovery.Description, recovery.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: create recovery: %w", err)
	}
	created := recovery
	return &created, nil
}

func (s *Store) ListRecoveries(ctx context.Context) ([]domain.Recovery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_date, amount, source, description, created_at
		FROM recoveries ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recoveries: %w", err)
	}
	defer rows.Close()
	recoveries := make([]domain.Recovery, 0, 32)
	for rows.Next() {
		var rec domain.Recovery
		if err := rows.Scan(&rec.ID, &rec.Date, &rec.Amount, &rec.Source,
			&rec.Description, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan recovery: %w", err)
		}
		recoveries = append(recoveries, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate recoveries: %w", err)
	}
	return recoveries, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, entry_date, amount, category, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		expense.ID, expense.Date, expense.Amount, expense.Category,
		expense.Description, expense.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: create expense: %w", err)
	}
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_date, amount, category, description, created_at
		FROM expenses ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list expenses: %w", err)
	}
	defer rows.Close()
	expenses := make([]domain.Expense, 0, 32)
	for rows.Next() {
		var exp domain.Expense
		if err := rows.Scan(&exp.ID, &exp.Date, &exp.Amount, &exp.Category,
			&exp.Description, &exp.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan expense: %w", err)
		}
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate expenses: %w", err)
	}
	return expenses, nil
}
