package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

const categoryProductCount = `(SELECT count(*) FROM products p WHERE p.category_id = c.id)`

const categorySelect = `
	SELECT c.id, c.name, c.description, COALESCE(c.cnae, ''), c.is_active,
		` + categoryProductCount + `,
		(SELECT count(*) FROM products p WHERE p.category_id = c.id AND p.is_active),
		c.created_at, c.updated_at
	FROM categories c`

func scanCategory(row scanner) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CNAE, &c.IsActive,
		&c.ProductCount, &c.ActiveProductCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, description, cnae, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,now(),now())
		RETURNING id
	`, category.Name, category.Description, nullIfEmpty(category.CNAE), category.IsActive).Scan(&id)
	if err != nil {
		return nil, mapError(err)
	}
	return s.GetCategory(ctx, id)
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx, categorySelect+` WHERE c.id = $1`, id))
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET name = $2, description = $3, cnae = $4, is_active = $5, updated_at = now()
		WHERE id = $1
	`, category.ID, category.Name, category.Description, nullIfEmpty(category.CNAE), category.IsActive)
	if err != nil {
		return nil, mapError(err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, category.ID)
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var locked int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			return err
		}
		var products int
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM products WHERE category_id = $1`, id).Scan(&products); err != nil {
			return err
		}
		if products > 0 {
			return fmt.Errorf("category %d has %d products: %w", id, products, store.ErrConflict)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
		return err
	})
}

var categorySortColumns = map[string]string{
	"name":          "lower(c.name)",
	"created_at":    "c.created_at",
	"product_count": categoryProductCount,
}

func (s *Store) ListCategories(ctx context.Context, filter domain.CategoryFilter) ([]domain.Category, int, error) {
	c := &conditions{}
	c.search(filter.Search, "c.name", "c.description")
	if filter.IsActive != nil {
		c.equals("c.is_active", *filter.IsActive)
	}
	c.flag(filter.HasCNAE, "c.cnae IS NOT NULL")

	total, err := s.count(ctx, "FROM categories c", c)
	if err != nil {
		return nil, 0, err
	}

	query := categorySelect + c.where() +
		orderBy(filter.ListQuery, categorySortColumns, "name", "c.id ASC") + c.page(filter.ListQuery)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, 0, err
		}
		categories = append(categories, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

const supplierSelect = `
	SELECT sp.id, sp.name, sp.contact_person, COALESCE(sp.email, ''), sp.phone, sp.address, sp.city,
		COALESCE(sp.state, ''), sp.zip_code, COALESCE(sp.cnpj, ''), sp.website, sp.notes, sp.is_active,
		(SELECT count(*) FROM products p WHERE p.supplier_id = sp.id),
		sp.created_at, sp.updated_at
	FROM suppliers sp`

func scanSupplier(row scanner) (*domain.Supplier, error) {
	var sp domain.Supplier
	err := row.Scan(&sp.ID, &sp.Name, &sp.ContactPerson, &sp.Email, &sp.Phone, &sp.Address, &sp.City,
		&sp.State, &sp.ZipCode, &sp.CNPJ, &sp.Website, &sp.Notes, &sp.IsActive,
		&sp.ProductCount, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &sp, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO suppliers (
			name, contact_person, email, phone, address, city, state, zip_code,
			cnpj, website, notes, is_active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
		RETURNING id
	`, supplier.Name, supplier.ContactPerson, nullIfEmpty(supplier.Email), supplier.Phone, supplier.Address,
		supplier.City, nullIfEmpty(supplier.State), supplier.ZipCode, nullIfEmpty(supplier.CNPJ),
		supplier.Website, supplier.Notes, supplier.IsActive).Scan(&id)
	if err != nil {
		return nil, mapError(err)
	}
	return s.GetSupplier(ctx, id)
}

func (s *Store) GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error) {
	return scanSupplier(s.db.QueryRowContext(ctx, supplierSelect+` WHERE sp.id = $1`, id))
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE suppliers
		SET name = $2, contact_person = $3, email = $4, phone = $5, address = $6, city = $7,
			state = $8, zip_code = $9, cnpj = $10, website = $11, notes = $12, is_active = $13,
			updated_at = now()
		WHERE id = $1
	`, supplier.ID, supplier.Name, supplier.ContactPerson, nullIfEmpty(supplier.Email), supplier.Phone,
		supplier.Address, supplier.City, nullIfEmpty(supplier.State), supplier.ZipCode,
		nullIfEmpty(supplier.CNPJ), supplier.Website, supplier.Notes, supplier.IsActive)
	if err != nil {
		return nil, mapError(err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetSupplier(ctx, supplier.ID)
}

var supplierSortColumns = map[string]string{
	"name":       "lower(sp.name)",
	"city":       "sp.city",
	"state":      "COALESCE(sp.state, '')",
	"created_at": "sp.created_at",
	"updated_at": "sp.updated_at",
}

func (s *Store) ListSuppliers(ctx context.Context, filter domain.SupplierFilter) ([]domain.Supplier, int, error) {
	c := &conditions{}
	c.search(filter.Search, "sp.name", "sp.contact_person", "sp.email", "sp.cnpj", "sp.city")
	if filter.IsActive != nil {
		c.equals("sp.is_active", *filter.IsActive)
	}
	if filter.State != "" {
		c.equals("sp.state", filter.State)
	}
	c.flag(filter.HasCNPJ, "sp.cnpj IS NOT NULL")

	total, err := s.count(ctx, "FROM suppliers sp", c)
	if err != nil {
		return nil, 0, err
	}

	query := supplierSelect + c.where() +
		orderBy(filter.ListQuery, supplierSortColumns, "name", "sp.id ASC") + c.page(filter.ListQuery)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 16)
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, *supplier)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return suppliers, total, nil
}

const productFrom = `
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN suppliers sp ON sp.id = p.supplier_id
	LEFT JOIN inventory i ON i.product_id = p.id`

const productSelect = `
	SELECT p.id, p.name, p.description, p.price, p.code, COALESCE(p.barcode, ''), p.category_id,
		COALESCE(c.name, ''), p.supplier_id, COALESCE(sp.name, ''), p.image_url, p.image_key,
		p.is_active, p.created_at, p.updated_at,
		i.id, i.quantity, i.min_stock, i.max_stock, i.location, i.last_update` + productFrom

func scanProduct(row scanner) (*domain.Product, error) {
	var (
		p          domain.Product
		supplierID sql.NullInt64
		invID      sql.NullInt64
		quantity   sql.NullInt64
		minStock   sql.NullInt64
		maxStock   sql.NullInt64
		location   sql.NullString
		lastUpdate sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Code, &p.Barcode, &p.CategoryID,
		&p.CategoryName, &supplierID, &p.SupplierName, &p.ImageURL, &p.ImageKey,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		&invID, &quantity, &minStock, &maxStock, &location, &lastUpdate)
	if err != nil {
		return nil, mapError(err)
	}
	p.SupplierID = idPtr(supplierID)

	if invID.Valid {
		inv := domain.Inventory{
			ID:           invID.Int64,
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductCode:  p.Code,
			ProductPrice: p.Price,
			CategoryID:   p.CategoryID,
			CategoryName: p.CategoryName,
			SupplierID:   p.SupplierID,
			IsActive:     p.IsActive,
			Quantity:     int(quantity.Int64),
			MinStock:     int(minStock.Int64),
			MaxStock:     intPtr(maxStock),
			Location:     location.String,
			LastUpdate:   lastUpdate.Time,
		}
		inv.StockStatus = inv.Status()
		p.Inventory = &inv
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product, inventory domain.Inventory, opening *domain.InventoryMovement) (*domain.Product, error) {
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO products (
				name, description, price, code, barcode, category_id, supplier_id,
				image_url, image_key, is_active, created_at, updated_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
			RETURNING id
		`, product.Name, product.Description, product.Price, product.Code, nullIfEmpty(product.Barcode),
			product.CategoryID, nullIDPtr(product.SupplierID), product.ImageURL, product.ImageKey,
			product.IsActive).Scan(&id)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO inventory (product_id, quantity, min_stock, max_stock, location, last_update)
			VALUES ($1,$2,$3,$4,$5,now())
		`, id, inventory.Quantity, inventory.MinStock, nullInt(inventory.MaxStock), inventory.Location)
		if err != nil {
			return err
		}

		if opening != nil {
			movement := *opening
			movement.ProductID = id
			if err := insertMovement(ctx, tx, movement, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return scanProduct(s.db.QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id))
}

func (s *Store) GetProductByCode(ctx context.Context, code string) (*domain.Product, error) {
	return scanProduct(s.db.QueryRowContext(ctx, productSelect+` WHERE lower(p.code) = lower($1)`, code))
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	result := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, productSelect+` WHERE p.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = *p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, code = $5, barcode = $6, category_id = $7,
			supplier_id = $8, image_url = $9, image_key = $10, is_active = $11, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Description, product.Price, product.Code,
		nullIfEmpty(product.Barcode), product.CategoryID, nullIDPtr(product.SupplierID),
		product.ImageURL, product.ImageKey, product.IsActive)
	if err != nil {
		return nil, mapError(err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

var productSortColumns = map[string]string{
	"name":       "lower(p.name)",
	"code":       "p.code",
	"price":      "p.price",
	"created_at": "p.created_at",
	"updated_at": "p.updated_at",
	"stock":      "COALESCE(i.quantity, 0)",
}

func (s *Store) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	c := &conditions{}
	c.search(filter.Search, "p.name", "p.code", "p.description", "p.barcode")
	if filter.CategoryID > 0 {
		c.equals("p.category_id", filter.CategoryID)
	}
	if filter.SupplierID > 0 {
		c.equals("p.supplier_id", filter.SupplierID)
	}
	if filter.IsActive != nil {
		c.equals("p.is_active", *filter.IsActive)
	}
	c.flag(filter.HasBarcode, "p.barcode IS NOT NULL")
	if filter.MinPrice != nil {
		c.add("p.price >= " + c.arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		c.add("p.price <= " + c.arg(*filter.MaxPrice))
	}
	c.flag(filter.HasStock, "COALESCE(i.quantity, 0) > 0")
	c.flag(filter.NoStock, "COALESCE(i.quantity, 0) = 0")
	if filter.LowStock != nil {
		c.add("i.id IS NOT NULL")
		c.flag(filter.LowStock, "i.quantity <= i.min_stock")
	}

	total, err := s.count(ctx, productFrom, c)
	if err != nil {
		return nil, 0, err
	}

	query := productSelect + c.where() +
		orderBy(filter.ListQuery, productSortColumns, "name", "p.id ASC") + c.page(filter.ListQuery)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *Store) ProductUsage(ctx context.Context, id int64) (int, int, error) {
	var saleItems, movements int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM sale_items WHERE product_id = p.id),
			(SELECT count(*) FROM inventory_movements WHERE product_id = p.id)
		FROM products p
		WHERE p.id = $1
	`, id).Scan(&saleItems, &movements)
	if err != nil {
		return 0, 0, mapError(err)
	}
	return saleItems, movements, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
