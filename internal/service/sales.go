package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

func (s *Service) ListSales(ctx context.Context, filter domain.SaleFilter) (domain.SaleList, error) {
	actor, err := s.authorize(ctx, domain.PermManageSales)
	if err != nil {
		return domain.SaleList{}, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.SaleList{}, fieldError("status", "Unknown sale status")
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return domain.SaleList{}, fieldError("from", "Must be before to")
	}
	if !actor.CanSeeAllSales() {
		filter.UserID = actor.UserID
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.ListQuery = filter.ListQuery.Normalize(domain.DefaultSaleLimit, "created_at", "desc", domain.SaleSorts...)

	sales, total, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return domain.SaleList{}, err
	}
	summary, err := s.repo.SummarizeSales(ctx, filter)
	if err != nil {
		return domain.SaleList{}, err
	}
	return domain.SaleList{
		Data:       sales,
		Pagination: domain.NewPagination(filter.ListQuery, total),
		Summary:    summary,
	}, nil
}

// loadSale fetches a sale the actor may access. Salespeople only reach their
// own sales.
func (s *Service) loadSale(ctx context.Context, id int64) (domain.Actor, *domain.Sale, error) {
	actor, err := s.authorize(ctx, domain.PermManageSales)
	if err != nil {
		return domain.Actor{}, nil, err
	}
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Actor{}, nil, storeError(err, "sale", "")
	}
	if !actor.CanSeeAllSales() && sale.UserID != actor.UserID {
		return domain.Actor{}, nil, forbidden("you can only access your own sales")
	}
	return actor, sale, nil
}

func (s *Service) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	_, sale, err := s.loadSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) requireActiveCustomer(ctx context.Context, id int64) error {
	customer, err := s.repo.GetCustomer(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fieldError("customer_id", "Customer not found")
	}
	if err != nil {
		return err
	}
	if !customer.IsActive {
		return fieldError("customer_id", "Customer is inactive")
	}
	return nil
}

func checkMoney(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return fieldError(field, "Must not be negative")
	}
	if !v.Equal(v.Round(2)) {
		return fieldError(field, "Must have at most 2 decimal places")
	}
	return nil
}

// checkTotals recomputes the sale and rejects totals outside the allowed
// range or any negative line. A sale without items may total zero but never
// less.
func checkTotals(sale *domain.Sale) error {
	domain.Recalculate(sale)
	for i, item := range sale.Items {
		if item.Total.IsNegative() {
			return fieldError(fmt.Sprintf("items[%d].discount", i), "Discount exceeds the item value")
		}
	}
	if len(sale.Items) == 0 {
		if sale.Total.IsNegative() {
			return fieldError("total", "Sale total must not be negative")
		}
		return nil
	}
	return checkTotalRange(*sale)
}

func checkTotalRange(sale domain.Sale) error {
	if sale.Total.LessThan(domain.MinSaleTotal) || sale.Total.GreaterThan(domain.MaxSaleTotal) {
		return fieldError("total", fmt.Sprintf("Sale total must be between %s and %s",
			domain.MinSaleTotal.StringFixed(2), domain.MaxSaleTotal.StringFixed(2)))
	}
	return nil
}

// stockCheck compares requested quantities with stock on hand. Missing or
// inactive products are reported per item.
func stockCheck(products map[int64]domain.Product, items []domain.SaleItemInput) domain.StockValidation {
	out := domain.StockValidation{Items: make([]domain.StockValidationItem, 0, len(items))}
	for _, in := range items {
		row := domain.StockValidationItem{ProductID: in.ProductID, Requested: in.Quantity}
		product, ok := products[in.ProductID]
		switch {
		case !ok:
			row.Error = "product not found"
		case !product.IsActive:
			row.ProductName = product.Name
			row.Available = product.Quantity()
			row.Error = "product is inactive"
		default:
			row.ProductName = product.Name
			row.Available = product.Quantity()
			row.IsValid = row.Available >= in.Quantity
			if !row.IsValid {
				row.Shortfall = in.Quantity - row.Available
				row.Error = fmt.Sprintf("insufficient stock: available %d, requested %d", row.Available, in.Quantity)
			}
		}
		if row.IsValid {
			out.Summary.ValidItems++
		} else {
			out.Summary.InvalidItems++
		}
		out.Items = append(out.Items, row)
	}
	out.Summary.TotalItems = len(items)
	out.Summary.CanProceed = out.Summary.InvalidItems == 0 && len(items) > 0
	if out.Summary.CanProceed {
		out.Summary.Message = "all items available"
	} else {
		out.Summary.Message = fmt.Sprintf("%d of %d items cannot be fulfilled", out.Summary.InvalidItems, len(items))
	}
	return out
}

func (s *Service) productsFor(ctx context.Context, items []domain.SaleItemInput) (map[int64]domain.Product, error) {
	ids := make([]int64, 0, len(items))
	for _, in := range items {
		ids = append(ids, in.ProductID)
	}
	return s.repo.GetProductsByIDs(ctx, ids)
}

// stockFailure turns the first failing row of a validation into an error.
func stockFailure(v domain.StockValidation) error {
	for i, row := range v.Items {
		if row.IsValid {
			continue
		}
		if row.Shortfall > 0 {
			e := businessError(CodeInsufficient, fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
				row.ProductName, row.Available, row.Requested))
			e.Err = store.ErrInsufficientStock
			return e
		}
		return fieldError(fmt.Sprintf("items[%d].product_id", i), row.Error)
	}
	return nil
}

func (s *Service) ValidateStock(ctx context.Context, req domain.StockValidationRequest) (domain.StockValidation, error) {
	if _, err := s.authorize(ctx, domain.PermManageSales); err != nil {
		return domain.StockValidation{}, err
	}
	if err := validateRequest(req); err != nil {
		return domain.StockValidation{}, err
	}
	products, err := s.productsFor(ctx, req.Items)
	if err != nil {
		return domain.StockValidation{}, err
	}
	return stockCheck(products, req.Items), nil
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	actor, err := s.authorize(ctx, domain.PermManageSales)
	if err != nil {
		return domain.Sale{}, err
	}
	req.Notes = strings.TrimSpace(req.Notes)
	if err := validateRequest(req); err != nil {
		return domain.Sale{}, err
	}
	if err := checkMoney("discount", req.Discount); err != nil {
		return domain.Sale{}, err
	}
	if err := checkMoney("tax", req.Tax); err != nil {
		return domain.Sale{}, err
	}
	seen := make(map[int64]struct{}, len(req.Items))
	for i, in := range req.Items {
		if _, dup := seen[in.ProductID]; dup {
			return domain.Sale{}, fieldError(fmt.Sprintf("items[%d].product_id", i), "Product appears more than once")
		}
		seen[in.ProductID] = struct{}{}
		if err := checkMoney(fmt.Sprintf("items[%d].discount", i), in.Discount); err != nil {
			return domain.Sale{}, err
		}
		if in.UnitPrice != nil {
			if err := validatePrice(fmt.Sprintf("items[%d].unit_price", i), *in.UnitPrice); err != nil {
				return domain.Sale{}, err
			}
		}
	}
	if err := s.requireActiveCustomer(ctx, req.CustomerID); err != nil {
		return domain.Sale{}, err
	}

	products, err := s.productsFor(ctx, req.Items)
	if err != nil {
		return domain.Sale{}, err
	}
	if err := stockFailure(stockCheck(products, req.Items)); err != nil {
		return domain.Sale{}, err
	}

	sale := domain.Sale{
		CustomerID: req.CustomerID,
		UserID:     actor.UserID,
		Status:     domain.SaleDraft,
		Notes:      req.Notes,
		Discount:   req.Discount,
		Tax:        req.Tax,
		Items:      make([]domain.SaleItem, 0, len(req.Items)),
	}
	for _, in := range req.Items {
		price := products[in.ProductID].Price
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		}
		sale.Items = append(sale.Items, domain.SaleItem{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			UnitPrice: price,
			Discount:  in.Discount,
		})
	}
	if err := checkTotals(&sale); err != nil {
		return domain.Sale{}, err
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, storeError(err, "sale", "duplicate product in sale")
	}
	s.metrics.SaleTransitioned(string(domain.SaleDraft))
	s.invalidateDashboard(ctx)
	s.logAudit(ctx, "sale_create", "sale", created.ID,
		fmt.Sprintf("number=%s,total=%s,items=%d", created.Number, created.Total.StringFixed(2), len(created.Items)))
	return *created, nil
}

func notEditable(sale *domain.Sale) error {
	return conflict(CodeSaleNotEditable, fmt.Sprintf("sale %s is %s and can no longer be edited", sale.Number, sale.Status))
}

// saleWriteError maps store failures on an editable sale. A conflict there
// means the sale left DRAFT or PENDING in the meantime.
func saleWriteError(err error, sale *domain.Sale, conflictMessage string) error {
	if errors.Is(err, store.ErrConflict) && conflictMessage == "" {
		return notEditable(sale)
	}
	return storeError(err, "sale", conflictMessage)
}

func (s *Service) UpdateSale(ctx context.Context, id int64, req domain.SaleUpdateRequest) (domain.Sale, error) {
	_, sale, err := s.loadSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	trimPtr(req.Notes)
	if err := validateRequest(req); err != nil {
		return domain.Sale{}, err
	}
	if !sale.Status.IsEditable() {
		return domain.Sale{}, notEditable(sale)
	}

	updated := *sale
	if req.CustomerID != nil && *req.CustomerID != sale.CustomerID {
		if err := s.requireActiveCustomer(ctx, *req.CustomerID); err != nil {
			return domain.Sale{}, err
		}
		updated.CustomerID = *req.CustomerID
	}
	if req.Notes != nil {
		updated.Notes = *req.Notes
	}
	if req.Discount != nil {
		if err := checkMoney("discount", *req.Discount); err != nil {
			return domain.Sale{}, err
		}
		updated.Discount = *req.Discount
	}
	if req.Tax != nil {
		if err := checkMoney("tax", *req.Tax); err != nil {
			return domain.Sale{}, err
		}
		updated.Tax = *req.Tax
	}
	if err := checkTotals(&updated); err != nil {
		return domain.Sale{}, err
	}

	saved, err := s.repo.UpdateSale(ctx, updated)
	if err != nil {
		return domain.Sale{}, saleWriteError(err, sale, "")
	}
	s.invalidateDashboard(ctx)
	s.logAudit(ctx, "sale_update", "sale", saved.ID, "total="+saved.Total.StringFixed(2))
	return *saved, nil
}

func (s *Service) AddSaleItem(ctx context.Context, saleID int64, req domain.SaleItemInput) (domain.Sale, error) {
	_, sale, err := s.loadSale(ctx, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	if err := validateRequest(req); err != nil {
		return domain.Sale{}, err
	}
	if err := checkMoney("discount", req.Discount); err != nil {
		return domain.Sale{}, err
	}
	if req.UnitPrice != nil {
		if err := validatePrice("unit_price", *req.UnitPrice); err != nil {
			return domain.Sale{}, err
		}
	}
	if !sale.Status.IsEditable() {
		return domain.Sale{}, notEditable(sale)
	}
	if sale.HasProduct(req.ProductID) {
		return domain.Sale{}, conflict(CodeItemExists, "product is already in this sale, update the existing item instead")
	}

	products, err := s.productsFor(ctx, []domain.SaleItemInput{req})
	if err != nil {
		return domain.Sale{}, err
	}
	if err := stockFailure(stockCheck(products, []domain.SaleItemInput{req})); err != nil {
		return domain.Sale{}, err
	}

	item := domain.SaleItem{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: products[req.ProductID].Price,
		Discount:  req.Discount,
	}
	if req.UnitPrice != nil {
		item.UnitPrice = *req.UnitPrice
	}
	preview := *sale
	preview.Items = append(append([]domain.SaleItem(nil), sale.Items...), item)
	if err := checkTotals(&preview); err != nil {
		return domain.Sale{}, err
	}

	saved, err := s.repo.AddSaleItem(ctx, saleID, item)
	if errors.Is(err, store.ErrConflict) {
		current, getErr := s.repo.GetSale(ctx, saleID)
		if getErr == nil && current.Status.IsEditable() {
			return domain.Sale{}, conflict(CodeItemExists, "product is already in this sale, update the existing item instead")
		}
		return domain.Sale{}, notEditable(sale)
	}
	if err != nil {
		return domain.Sale{}, storeError(err, "sale", "")
	}
	s.invalidateDashboard(ctx)
	s.logAudit(ctx, "sale_item_add", "sale", saleID, fmt.Sprintf("product=%d,quantity=%d", item.ProductID, item.Quantity))
	return *saved, nil
}

func findItem(sale *domain.Sale, itemID int64) (domain.SaleItem, bool) {
	for _, item := range sale.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return domain.SaleItem{}, false
}

func (s *Service) UpdateSaleItem(ctx context.Context, saleID int64, itemID int64, req domain.SaleItemUpdateRequest) (domain.Sale, error) {
	_, sale, err := s.loadSale(ctx, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	if req.Quantity == nil && req.UnitPrice == nil && req.Discount == nil {
		return domain.Sale{}, validationError("At least one of quantity, unit_price or discount is required")
	}
	if err := validateRequest(req); err != nil {
		return domain.Sale{}, err
	}
	if !sale.Status.IsEditable() {
		return domain.Sale{}, notEditable(sale)
	}
	item, ok := findItem(sale, itemID)
	if !ok {
		return domain.Sale{}, notFound("sale item")
	}

	if req.Quantity != nil && *req.Quantity != item.Quantity {
		check := []domain.SaleItemInput{{ProductID: item.ProductID, Quantity: *req.Quantity}}
		products, err := s.productsFor(ctx, check)
		if err != nil {
			return domain.Sale{}, err
		}
		if err := stockFailure(stockCheck(products, check)); err != nil {
			return domain.Sale{}, err
		}
		item.Quantity = *req.Quantity
	}
	if req.UnitPrice != nil {
		if err := validatePrice("unit_price", *req.UnitPrice); err != nil {
			return domain.Sale{}, err
		}
		item.UnitPrice = *req.UnitPrice
	}
	if req.Discount != nil {
		if err := checkMoney("discount", *req.Discount); err != nil {
			return domain.Sale{}, err
		}
		item.Discount = *req.Discount
	}

	preview := *sale
	preview.Items = append([]domain.SaleItem(nil), sale.Items...)
	for i := range preview.Items {
		if preview.Items[i].ID == itemID {
			preview.Items[i] = item
		}
	}
	if err := checkTotals(&preview); err != nil {
		return domain.Sale{}, err
	}

	saved, err := s.repo.UpdateSaleItem(ctx, saleID, item)
	if err != nil {
		return domain.Sale{}, saleWriteError(err, sale, "")
	}
	s.invalidateDashboard(ctx)
	s.logAudit(ctx, "sale_item_update", "sale", saleID, fmt.Sprintf("item=%d,quantity=%d", itemID, item.Quantity))
	return *saved, nil
}

func (s *Service) RemoveSaleItem(ctx context.Context, saleID int64, itemID int64) (domain.Sale, error) {
	_, sale, err := s.loadSale(ctx, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	if !sale.Status.IsEditable() {
		return domain.Sale{}, notEditable(sale)
	}
	if _, ok := findItem(sale, itemID); !ok {
		return domain.Sale{}, notFound("sale item")
	}

	preview := *sale
	preview.Items = make([]domain.SaleItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.ID != itemID {
			preview.Items = append(preview.Items, item)
		}
	}
	if err := checkTotals(&preview); err != nil {
		return domain.Sale{}, err
	}

	saved, err := s.repo.RemoveSaleItem(ctx, saleID, itemID)
	if err != nil {
		return domain.Sale{}, saleWriteError(err, sale, "")
	}
	s.invalidateDashboard(ctx)
	s.logAudit(ctx, "sale_item_remove", "sale", saleID, fmt.Sprintf("item=%d", itemID))
	return *saved, nil
}

func (s *Service) SubmitSale(ctx context.Context, id int64) (domain.Sale, error) {
	return s.transition(ctx, id, domain.SalePending, "")
}

// ConfirmSale reserves stock for every item. Stock is checked up front for a
// readable error and again inside the store transaction.
func (s *Service) ConfirmSale(ctx context.Context, id int64) (domain.Sale, error) {
	return s.transition(ctx, id, domain.SaleConfirmed, "")
}

func (s *Service) CompleteSale(ctx context.Context, id int64) (domain.Sale, error) {
	sale, err := s.transition(ctx, id, domain.SaleCompleted, "")
	if err != nil {
		return domain.Sale{}, err
	}
	s.metrics.SaleCompleted(sale.Total.InexactFloat64())
	return sale, nil
}

func (s *Service) CancelSale(ctx context.Context, id int64, req domain.SaleCancelRequest) (domain.Sale, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validateRequest(req); err != nil {
		return domain.Sale{}, err
	}
	return s.transition(ctx, id, domain.SaleCancelled, req.Reason)
}

// RefundSale returns a completed sale's items to stock. The manager PIN is
// verified by the caller before this runs.
func (s *Service) RefundSale(ctx context.Context, id int64, req domain.SaleRefundRequest) (domain.Sale, error) {
	if _, err := s.authorize(ctx, domain.PermManageSales); err != nil {
		return domain.Sale{}, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validateRequest(req); err != nil {
		return domain.Sale{}, err
	}
	return s.transition(ctx, id, domain.SaleRefunded, req.Reason)
}

func (s *Service) transition(ctx context.Context, id int64, to domain.SaleStatus, reason string) (domain.Sale, error) {
	actor, sale, err := s.loadSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	from := sale.Status
	if !from.CanTransition(to) {
		return domain.Sale{}, conflict(CodeTransition, fmt.Sprintf("sale %s cannot move from %s to %s", sale.Number, from, to))
	}

	effect := domain.EffectOf(from, to)
	if effect == domain.StockDecrement {
		if len(sale.Items) == 0 {
			return domain.Sale{}, businessError(CodeNoItems, "sale has no items")
		}
		if err := checkTotalRange(*sale); err != nil {
			return domain.Sale{}, err
		}
		inputs := make([]domain.SaleItemInput, 0, len(sale.Items))
		for _, item := range sale.Items {
			inputs = append(inputs, domain.SaleItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		products, err := s.productsFor(ctx, inputs)
		if err != nil {
			return domain.Sale{}, err
		}
		if err := stockFailure(stockCheck(products, inputs)); err != nil {
			return domain.Sale{}, err
		}
	}

	saved, err := s.repo.TransitionSale(ctx, domain.SaleTransition{
		SaleID: id,
		From:   from,
		To:     to,
		Stock:  effect,
		UserID: actor.UserID,
		Reason: reason,
		At:     s.now(),
	})
	switch {
	case errors.Is(err, store.ErrConflict):
		return domain.Sale{}, conflict(CodeTransition, fmt.Sprintf("sale %s changed status concurrently", sale.Number))
	case errors.Is(err, store.ErrInvalidInput):
		return domain.Sale{}, conflict(CodeTransition, fmt.Sprintf("sale %s cannot move from %s to %s", sale.Number, from, to))
	case err != nil:
		return domain.Sale{}, storeError(err, "sale", "")
	}

	if effect != domain.StockUnchanged {
		kind := domain.MovementOut
		if effect == domain.StockRestore {
			kind = domain.MovementIn
		}
		s.metrics.StockMoved(string(kind), saved.TotalQuantity())
	}
	s.metrics.SaleTransitioned(string(to))
	s.invalidateDashboard(ctx)

	detail := fmt.Sprintf("from=%s,to=%s", from, to)
	if reason != "" {
		detail += ",reason=" + reason
	}
	s.logAudit(ctx, "sale_"+strings.ToLower(string(to)), "sale", id, detail)
	return *saved, nil
}
