package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/truongnx/plantshop/internal/models"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
	ErrEmptyCart  = errors.New("empty cart") // 400
)

type Store struct {
	DB *gorm.DB
}

// Lock appends FOR UPDATE on dialects that support it. sqlite, which the
// test suite runs on, does not.
func Lock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// PendingLine is a cart item with its product resolved for display.
type PendingLine struct {
	Item    models.CartItem
	Product models.Product
}

// AddItem upserts a not_paid line for (user, product). The increment is a
// single conditional UPDATE so concurrent adds cannot lose a write.
func (s *Store) AddItem(ctx context.Context, userID, productID, quantity uint) (*models.CartItem, error) {
	if productID == 0 {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if quantity == 0 {
		quantity = 1
	}

	var product models.Product
	if err := s.DB.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		return nil, err
	}

	var item models.CartItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CartItem{}).
			Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, models.CartStatusNotPaid).
			Update("quantity", gorm.Expr("quantity + ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, models.CartStatusNotPaid).
				First(&item).Error
		}

		item = models.CartItem{
			UserID:    userID,
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: product.Price,
			Status:    models.CartStatusNotPaid,
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListPending returns the user's not_paid lines with product price and name
// resolved at read time.
func (s *Store) ListPending(ctx context.Context, userID uint) ([]PendingLine, error) {
	var items []models.CartItem
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.CartStatusNotPaid).
		Find(&items).Error; err != nil {
		return nil, err
	}

	lines := make([]PendingLine, 0, len(items))
	for _, it := range items {
		var p models.Product
		if err := s.DB.WithContext(ctx).First(&p, it.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: product %d", ErrNotFound, it.ProductID)
			}
			return nil, err
		}
		it.UnitPrice = p.Price
		lines = append(lines, PendingLine{Item: it, Product: p})
	}
	return lines, nil
}

// Consume marks the given pending lines as paid and stamps the order id. The
// caller loads the lines under Lock inside its own transaction and prices the
// order from that same slice; updating by id keeps a line inserted after that
// read from being swept into the order unpriced.
func Consume(tx *gorm.DB, items []models.CartItem, orderID uint) ([]models.CartItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]uint, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	if err := tx.Model(&models.CartItem{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":   models.CartStatusPaid,
			"order_id": orderID,
		}).Error; err != nil {
		return nil, err
	}

	for i := range items {
		items[i].Status = models.CartStatusPaid
		id := orderID
		items[i].OrderID = &id
	}
	return items, nil
}

// UpdateQuantity sets the quantity of a pending line.
func (s *Store) UpdateQuantity(ctx context.Context, userID, productID, quantity uint) (*models.CartItem, error) {
	if quantity == 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}

	var item models.CartItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := Lock(tx).
			Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, models.CartStatusNotPaid).
			First(&item).Error; err != nil {
			return err
		}
		return tx.Model(&item).Update("quantity", quantity).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: cart item", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return &item, nil
}

// RemoveItem deletes a pending line outright.
func (s *Store) RemoveItem(ctx context.Context, userID, productID uint) error {
	res := s.DB.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, models.CartStatusNotPaid).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: cart item", ErrNotFound)
	}
	return nil
}
