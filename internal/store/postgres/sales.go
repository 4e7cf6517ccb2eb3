package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

const saleEffectiveDate = `COALESCE(s.sale_date, s.created_at)`

const saleFrom = `
	FROM sales s
	LEFT JOIN customers cu ON cu.id = s.customer_id
	LEFT JOIN users u ON u.id = s.user_id`

const saleSelect = `
	SELECT s.id, s.customer_id, COALESCE(cu.name, ''), s.user_id, COALESCE(u.name, ''), s.status,
		s.subtotal, s.discount, s.tax, s.total, s.notes, s.sale_date, s.created_at, s.updated_at` + saleFrom

func scanSale(row scanner) (*domain.Sale, error) {
	var (
		sale     domain.Sale
		saleDate sql.NullTime
	)
	err := row.Scan(&sale.ID, &sale.CustomerID, &sale.CustomerName, &sale.UserID, &sale.UserName, &sale.Status,
		&sale.Subtotal, &sale.Discount, &sale.Tax, &sale.Total, &sale.Notes, &saleDate, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	sale.Number = domain.SaleNumber(sale.ID)
	sale.SaleDate = timePtr(saleDate)
	sale.Items = []domain.SaleItem{}
	return &sale, nil
}

// loadItems returns the items of every listed sale keyed by sale id.
func loadItems(ctx context.Context, q querier, saleIDs []int64) (map[int64][]domain.SaleItem, error) {
	items := make(map[int64][]domain.SaleItem, len(saleIDs))
	if len(saleIDs) == 0 {
		return items, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT si.id, si.sale_id, si.product_id, p.name, p.code, si.quantity, si.unit_price, si.discount, si.total
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = ANY($1)
		ORDER BY si.id
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.ProductCode,
			&item.Quantity, &item.UnitPrice, &item.Discount, &item.Total); err != nil {
			return nil, err
		}
		items[item.SaleID] = append(items[item.SaleID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func getSale(ctx context.Context, q querier, id int64, forUpdate bool) (*domain.Sale, error) {
	query := saleSelect + ` WHERE s.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF s`
	}
	sale, err := scanSale(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	items, err := loadItems(ctx, q, []int64{id})
	if err != nil {
		return nil, err
	}
	if found := items[id]; found != nil {
		sale.Items = found
	}
	return sale, nil
}

func insertSaleItem(ctx context.Context, q querier, saleID int64, item domain.SaleItem) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, discount, total)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, saleID, item.ProductID, item.Quantity, item.UnitPrice, item.Discount,
		domain.ItemTotal(item.Quantity, item.UnitPrice, item.Discount))
	return err
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	domain.Recalculate(&sale)
	if sale.Status == "" {
		sale.Status = domain.SaleDraft
	}

	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO sales (customer_id, user_id, status, subtotal, discount, tax, total, notes, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
			RETURNING id
		`, sale.CustomerID, sale.UserID, string(sale.Status), sale.Subtotal, sale.Discount, sale.Tax,
			sale.Total, sale.Notes).Scan(&id)
		if err != nil {
			return err
		}
		for _, item := range sale.Items {
			if err := insertSaleItem(ctx, tx, id, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSale(ctx, id)
}

func (s *Store) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	return getSale(ctx, s.db, id, false)
}

// editSale locks an editable sale, lets fn change it and then rewrites the
// header with totals recomputed from the stored items.
func (s *Store) editSale(ctx context.Context, saleID int64, fn func(tx *sql.Tx, sale *domain.Sale) error) (*domain.Sale, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sale, err := getSale(ctx, tx, saleID, true)
		if err != nil {
			return err
		}
		if !sale.Status.IsEditable() {
			return fmt.Errorf("sale %d is %s: %w", saleID, sale.Status, store.ErrConflict)
		}
		if err := fn(tx, sale); err != nil {
			return err
		}

		items, err := loadItems(ctx, tx, []int64{saleID})
		if err != nil {
			return err
		}
		sale.Items = items[saleID]
		domain.Recalculate(sale)

		_, err = tx.ExecContext(ctx, `
			UPDATE sales
			SET customer_id = $2, notes = $3, discount = $4, tax = $5, subtotal = $6, total = $7, updated_at = now()
			WHERE id = $1
		`, saleID, sale.CustomerID, sale.Notes, sale.Discount, sale.Tax, sale.Subtotal, sale.Total)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetSale(ctx, saleID)
}

func (s *Store) UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	return s.editSale(ctx, sale.ID, func(_ *sql.Tx, existing *domain.Sale) error {
		existing.CustomerID = sale.CustomerID
		existing.Notes = sale.Notes
		existing.Discount = sale.Discount
		existing.Tax = sale.Tax
		return nil
	})
}

func (s *Store) AddSaleItem(ctx context.Context, saleID int64, item domain.SaleItem) (*domain.Sale, error) {
	return s.editSale(ctx, saleID, func(tx *sql.Tx, sale *domain.Sale) error {
		if sale.HasProduct(item.ProductID) {
			return fmt.Errorf("product %d already on sale %d: %w", item.ProductID, saleID, store.ErrConflict)
		}
		return insertSaleItem(ctx, tx, saleID, item)
	})
}

func (s *Store) UpdateSaleItem(ctx context.Context, saleID int64, item domain.SaleItem) (*domain.Sale, error) {
	return s.editSale(ctx, saleID, func(tx *sql.Tx, _ *domain.Sale) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE sale_items
			SET quantity = $3, unit_price = $4, discount = $5, total = $6
			WHERE id = $1 AND sale_id = $2
		`, item.ID, saleID, item.Quantity, item.UnitPrice, item.Discount,
			domain.ItemTotal(item.Quantity, item.UnitPrice, item.Discount))
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

func (s *Store) RemoveSaleItem(ctx context.Context, saleID int64, itemID int64) (*domain.Sale, error) {
	return s.editSale(ctx, saleID, func(tx *sql.Tx, _ *domain.Sale) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM sale_items WHERE id = $1 AND sale_id = $2`, itemID, saleID)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

func (s *Store) TransitionSale(ctx context.Context, t domain.SaleTransition) (*domain.Sale, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var status domain.SaleStatus
		if err := tx.QueryRowContext(ctx, `SELECT status FROM sales WHERE id = $1 FOR UPDATE`, t.SaleID).Scan(&status); err != nil {
			return err
		}
		if status != t.From {
			return fmt.Errorf("sale %d is %s, expected %s: %w", t.SaleID, status, t.From, store.ErrConflict)
		}
		if !t.From.CanTransition(t.To) {
			return fmt.Errorf("sale %d cannot move from %s to %s: %w", t.SaleID, t.From, t.To, store.ErrInvalidInput)
		}

		if t.Stock != domain.StockUnchanged {
			items, err := loadItems(ctx, tx, []int64{t.SaleID})
			if err != nil {
				return err
			}
			if err := applyStockEffect(ctx, tx, t, items[t.SaleID]); err != nil {
				return err
			}
		}

		var completedAt any
		if t.To == domain.SaleCompleted {
			completedAt = t.At
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE sales
			SET status = $2, updated_at = $3, sale_date = COALESCE($4, sale_date)
			WHERE id = $1
		`, t.SaleID, string(t.To), t.At, completedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetSale(ctx, t.SaleID)
}

// applyStockEffect locks the inventory rows of every item in product order,
// checks them all and only then writes, so a shortage leaves stock untouched.
func applyStockEffect(ctx context.Context, tx *sql.Tx, t domain.SaleTransition, items []domain.SaleItem) error {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM inventory
		WHERE product_id = ANY($1)
		ORDER BY product_id
		FOR UPDATE
	`, ids)
	if err != nil {
		return err
	}
	stock := make(map[int64]int, len(ids))
	for rows.Next() {
		var productID int64
		var qty int
		if err := rows.Scan(&productID, &qty); err != nil {
			_ = rows.Close()
			return err
		}
		stock[productID] = qty
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	number := domain.SaleNumber(t.SaleID)
	sign, kind := 1, domain.MovementIn
	reason := fmt.Sprintf("sale %s %s", number, strings.ToLower(string(t.To)))
	for _, item := range items {
		available, ok := stock[item.ProductID]
		switch {
		case t.Stock == domain.StockDecrement && (!ok || available < item.Quantity):
			return &store.StockShortage{ProductID: item.ProductID, Available: available, Requested: item.Quantity}
		case !ok:
			return fmt.Errorf("inventory for product %d: %w", item.ProductID, store.ErrNotFound)
		}
	}
	if t.Stock == domain.StockDecrement {
		sign, kind = -1, domain.MovementOut
		reason = fmt.Sprintf("sale %s confirmed", number)
	}

	saleID := t.SaleID
	at := t.At
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			UPDATE inventory
			SET quantity = quantity + $2, last_update = $3
			WHERE product_id = $1
		`, item.ProductID, sign*item.Quantity, at); err != nil {
			return err
		}
		err := insertMovement(ctx, tx, domain.InventoryMovement{
			ProductID: item.ProductID,
			Type:      kind,
			Quantity:  item.Quantity,
			Reason:    reason,
			UserID:    t.UserID,
			SaleID:    &saleID,
		}, &at)
		if err != nil {
			return err
		}
	}
	return nil
}

func saleConditions(filter domain.SaleFilter) *conditions {
	c := &conditions{}
	if filter.CustomerID > 0 {
		c.equals("s.customer_id", filter.CustomerID)
	}
	if filter.UserID > 0 {
		c.equals("s.user_id", filter.UserID)
	}
	if filter.Status != "" {
		c.equals("s.status", string(filter.Status))
	}
	if filter.From != nil {
		c.add(saleEffectiveDate + " >= " + c.arg(*filter.From))
	}
	if filter.To != nil {
		c.add(saleEffectiveDate + " < " + c.arg(*filter.To))
	}
	if filter.MinTotal != nil {
		c.add("s.total >= " + c.arg(*filter.MinTotal))
	}
	if filter.MaxTotal != nil {
		c.add("s.total <= " + c.arg(*filter.MaxTotal))
	}
	c.search(filter.Search, "s.notes", "cu.name", `'VD' || lpad(s.id::text, 6, '0')`)
	return c
}

var saleSortColumns = map[string]string{
	"sale_date":  saleEffectiveDate,
	"total":      "s.total",
	"status":     "s.status",
	"created_at": "s.created_at",
}

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, int, error) {
	c := saleConditions(filter)
	total, err := s.count(ctx, saleFrom, c)
	if err != nil {
		return nil, 0, err
	}

	tiebreak := "s.id ASC"
	if filter.Descending() {
		tiebreak = "s.id DESC"
	}
	query := saleSelect + c.where() +
		orderBy(filter.ListQuery, saleSortColumns, "created_at", tiebreak) + c.page(filter.ListQuery)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 32)
	ids := make([]int64, 0, 32)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, *sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	items, err := loadItems(ctx, s.db, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range sales {
		if found := items[sales[i].ID]; found != nil {
			sales[i].Items = found
		}
	}
	return sales, total, nil
}

func (s *Store) SummarizeSales(ctx context.Context, filter domain.SaleFilter) (domain.SaleSummary, error) {
	c := saleConditions(filter)
	summary := domain.SaleSummary{TotalRevenue: decimal.Zero, AverageOrderValue: decimal.Zero}
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*), COALESCE(sum(s.total), 0), COALESCE(sum(q.qty), 0)::bigint`+saleFrom+`
		LEFT JOIN LATERAL (SELECT sum(si.quantity) AS qty FROM sale_items si WHERE si.sale_id = s.id) q ON true`+
		c.where(), c.args...).Scan(&summary.TotalSales, &summary.TotalRevenue, &summary.TotalQuantity)
	if err != nil {
		return domain.SaleSummary{}, err
	}
	if summary.TotalSales > 0 {
		summary.AverageOrderValue = summary.TotalRevenue.Div(decimal.NewFromInt(int64(summary.TotalSales))).Round(2)
	}
	return summary, nil
}

func (s *Store) ListSaleLines(ctx context.Context, filter domain.SaleLineFilter) ([]domain.SaleLine, error) {
	c := &conditions{}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		c.add("s.status = ANY(" + c.arg(statuses) + ")")
	}
	if filter.CustomerID > 0 {
		c.equals("s.customer_id", filter.CustomerID)
	}
	if filter.UserID > 0 {
		c.equals("s.user_id", filter.UserID)
	}
	if filter.From != nil {
		c.add(saleEffectiveDate + " >= " + c.arg(*filter.From))
	}
	if filter.To != nil {
		c.add(saleEffectiveDate + " < " + c.arg(*filter.To))
	}
	if filter.ProductID > 0 {
		c.equals("si.product_id", filter.ProductID)
	}
	if filter.CategoryID > 0 {
		c.equals("p.category_id", filter.CategoryID)
	}
	if filter.SupplierID > 0 {
		c.equals("p.supplier_id", filter.SupplierID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.status, s.sale_date, s.created_at, s.customer_id, COALESCE(cu.name, ''),
			COALESCE(cu.type, ''), COALESCE(cu.state, ''), s.user_id, COALESCE(u.name, ''),
			si.product_id, p.name, p.code, p.category_id, COALESCE(c.name, ''), COALESCE(p.supplier_id, 0),
			si.quantity, si.unit_price, si.discount, si.total, s.subtotal, s.discount, s.tax, s.total
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		JOIN products p ON p.id = si.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN customers cu ON cu.id = s.customer_id
		LEFT JOIN users u ON u.id = s.user_id`+c.where()+`
		ORDER BY `+saleEffectiveDate+`, s.id, si.product_id
	`, c.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.SaleLine, 0, 128)
	for rows.Next() {
		var (
			line     domain.SaleLine
			saleDate sql.NullTime
		)
		if err := rows.Scan(&line.SaleID, &line.Status, &saleDate, &line.CreatedAt, &line.CustomerID,
			&line.CustomerName, &line.CustomerType, &line.State, &line.UserID, &line.UserName,
			&line.ProductID, &line.ProductName, &line.ProductCode, &line.CategoryID, &line.CategoryName,
			&line.SupplierID, &line.Quantity, &line.UnitPrice, &line.ItemDiscount, &line.LineTotal,
			&line.SaleSubtotal, &line.SaleDiscount, &line.SaleTax, &line.SaleTotal); err != nil {
			return nil, err
		}
		if saleDate.Valid {
			line.SaleDate = saleDate.Time
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
