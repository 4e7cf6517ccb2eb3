package postgres

import (
	"context"
	"database/sql"
	"time"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

const inventoryFrom = `
	FROM inventory i
	JOIN products p ON p.id = i.product_id
	LEFT JOIN categories c ON c.id = p.category_id`

const inventorySelect = `
	SELECT i.id, i.product_id, p.name, p.code, p.price, p.category_id, COALESCE(c.name, ''),
		p.supplier_id, p.is_active, i.quantity, i.min_stock, i.max_stock, i.location, i.last_update` + inventoryFrom

func scanInventory(row scanner) (*domain.Inventory, error) {
	var (
		inv        domain.Inventory
		supplierID sql.NullInt64
		maxStock   sql.NullInt64
	)
	err := row.Scan(&inv.ID, &inv.ProductID, &inv.ProductName, &inv.ProductCode, &inv.ProductPrice,
		&inv.CategoryID, &inv.CategoryName, &supplierID, &inv.IsActive, &inv.Quantity, &inv.MinStock,
		&maxStock, &inv.Location, &inv.LastUpdate)
	if err != nil {
		return nil, mapError(err)
	}
	inv.SupplierID = idPtr(supplierID)
	inv.MaxStock = intPtr(maxStock)
	inv.StockStatus = inv.Status()
	return &inv, nil
}

func (s *Store) GetInventory(ctx context.Context, productID int64) (*domain.Inventory, error) {
	return scanInventory(s.db.QueryRowContext(ctx, inventorySelect+` WHERE i.product_id = $1`, productID))
}

func (s *Store) UpdateInventory(ctx context.Context, inventory domain.Inventory) (*domain.Inventory, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET min_stock = $2, max_stock = $3, location = $4, last_update = now()
		WHERE product_id = $1
	`, inventory.ProductID, inventory.MinStock, nullInt(inventory.MaxStock), inventory.Location)
	if err != nil {
		return nil, mapError(err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetInventory(ctx, inventory.ProductID)
}

func (s *Store) ApplyMovement(ctx context.Context, movement domain.InventoryMovement, delta int) (*domain.Inventory, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var qty int
		err := tx.QueryRowContext(ctx, `
			SELECT quantity
			FROM inventory
			WHERE product_id = $1
			FOR UPDATE
		`, movement.ProductID).Scan(&qty)
		if err != nil {
			return err
		}
		if qty+delta < 0 {
			return &store.StockShortage{ProductID: movement.ProductID, Available: qty, Requested: -delta}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE inventory
			SET quantity = quantity + $2, last_update = now()
			WHERE product_id = $1
		`, movement.ProductID, delta); err != nil {
			return err
		}
		return insertMovement(ctx, tx, movement, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInventory(ctx, movement.ProductID)
}

// insertMovement records a movement. A nil at stamps it with the database
// clock.
func insertMovement(ctx context.Context, q querier, m domain.InventoryMovement, at *time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO inventory_movements (product_id, type, quantity, reason, user_id, sale_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,COALESCE($7, now()))
	`, m.ProductID, string(m.Type), m.Quantity, m.Reason, nullID(m.UserID), nullIDPtr(m.SaleID), nullTime(at))
	return err
}

var inventorySortColumns = map[string]string{
	"quantity":     "i.quantity",
	"product_name": "lower(p.name)",
	"last_update":  "i.last_update",
	"min_stock":    "i.min_stock",
}

func (s *Store) ListInventory(ctx context.Context, filter domain.InventoryFilter) ([]domain.Inventory, int, error) {
	c := &conditions{}
	c.search(filter.Search, "p.name", "p.code")
	if filter.CategoryID > 0 {
		c.equals("p.category_id", filter.CategoryID)
	}
	if filter.SupplierID > 0 {
		c.equals("p.supplier_id", filter.SupplierID)
	}
	c.flag(filter.LowStock, "i.quantity <= i.min_stock")
	c.flag(filter.OutOfStock, "i.quantity = 0")
	c.flag(filter.HasStock, "i.quantity > 0")
	if filter.Location != "" {
		c.search(filter.Location, "i.location")
	}
	if filter.MinQuantity != nil {
		c.add("i.quantity >= " + c.arg(*filter.MinQuantity))
	}
	if filter.MaxQuantity != nil {
		c.add("i.quantity <= " + c.arg(*filter.MaxQuantity))
	}

	total, err := s.count(ctx, inventoryFrom, c)
	if err != nil {
		return nil, 0, err
	}

	query := inventorySelect + c.where() +
		orderBy(filter.ListQuery, inventorySortColumns, "quantity", "i.product_id ASC") + c.page(filter.ListQuery)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]domain.Inventory, 0, 32)
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

const movementFrom = `
	FROM inventory_movements m
	JOIN products p ON p.id = m.product_id
	LEFT JOIN users u ON u.id = m.user_id`

func (s *Store) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.InventoryMovement, int, error) {
	c := &conditions{}
	if filter.ProductID > 0 {
		c.equals("m.product_id", filter.ProductID)
	}
	if filter.Type != "" {
		c.equals("m.type", string(filter.Type))
	}
	if filter.UserID > 0 {
		c.equals("m.user_id", filter.UserID)
	}
	if filter.From != nil {
		c.add("m.created_at >= " + c.arg(*filter.From))
	}
	if filter.To != nil {
		c.add("m.created_at < " + c.arg(*filter.To))
	}

	total, err := s.count(ctx, movementFrom, c)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT m.id, m.product_id, p.name, p.code, m.type, m.quantity, m.reason,
			COALESCE(m.user_id, 0), COALESCE(u.name, ''), m.sale_id, m.created_at` + movementFrom + c.where() +
		` ORDER BY m.created_at DESC, m.id DESC` + c.page(filter.ListQuery)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	movements := make([]domain.InventoryMovement, 0, 32)
	for rows.Next() {
		var (
			m      domain.InventoryMovement
			saleID sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.ProductCode, &m.Type, &m.Quantity,
			&m.Reason, &m.UserID, &m.UserName, &saleID, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		m.SaleID = idPtr(saleID)
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}
