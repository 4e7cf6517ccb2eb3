package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

const customerColumns = `id, name, COALESCE(email, ''), phone, COALESCE(document, ''), type, address,
	neighborhood, city, COALESCE(state, ''), zip_code, is_active, created_at, updated_at`

func scanCustomer(row scanner) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Document, &c.Type, &c.Address,
		&c.Neighborhood, &c.City, &c.State, &c.ZipCode, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	return scanCustomer(s.db.QueryRowContext(ctx, `
		INSERT INTO customers (
			name, email, phone, document, type, address, neighborhood, city, state, zip_code,
			is_active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
		RETURNING `+customerColumns,
		customer.Name, nullIfEmpty(customer.Email), customer.Phone, nullIfEmpty(customer.Document),
		string(customer.Type), customer.Address, customer.Neighborhood, customer.City,
		nullIfEmpty(customer.State), customer.ZipCode, customer.IsActive))
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return scanCustomer(s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	return scanCustomer(s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $2, email = $3, phone = $4, document = $5, type = $6, address = $7,
			neighborhood = $8, city = $9, state = $10, zip_code = $11, is_active = $12, updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns,
		customer.ID, customer.Name, nullIfEmpty(customer.Email), customer.Phone,
		nullIfEmpty(customer.Document), string(customer.Type), customer.Address, customer.Neighborhood,
		customer.City, nullIfEmpty(customer.State), customer.ZipCode, customer.IsActive))
}

func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var locked int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM customers WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			return err
		}
		var sales int
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM sales WHERE customer_id = $1`, id).Scan(&sales); err != nil {
			return err
		}
		if sales > 0 {
			return fmt.Errorf("customer %d has %d sales: %w", id, sales, store.ErrConflict)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
		return err
	})
}

var customerSortColumns = map[string]string{
	"name":       "lower(name)",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"city":       "city",
	"type":       "type",
}

func (s *Store) ListCustomers(ctx context.Context, filter domain.CustomerFilter) ([]domain.Customer, int, error) {
	c := &conditions{}
	c.search(filter.Search, "name", "email", "document")
	if filter.Type != "" {
		c.equals("type", string(filter.Type))
	}
	if filter.City != "" {
		c.search(filter.City, "city")
	}
	if filter.State != "" {
		c.equals("state", filter.State)
	}
	if filter.IsActive != nil {
		c.equals("is_active", *filter.IsActive)
	}
	c.flag(filter.HasEmail, "email IS NOT NULL")
	c.flag(filter.HasDocument, "document IS NOT NULL")

	total, err := s.count(ctx, "FROM customers", c)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + customerColumns + ` FROM customers` + c.where() +
		orderBy(filter.ListQuery, customerSortColumns, "name", "id ASC") + c.page(filter.ListQuery)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, *customer)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (s *Store) CountCustomerSales(ctx context.Context, id int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM sales WHERE customer_id = $1`, id).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
