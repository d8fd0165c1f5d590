package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/truongnx/plantshop/internal/models"
	"github.com/truongnx/plantshop/internal/service/cart"
	"github.com/truongnx/plantshop/internal/util"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
	ErrEmptyCart  = cart.ErrEmptyCart        // 400
)

type Service struct {
	DB *gorm.DB
}

type ShippingInfo struct {
	RecipientName   string
	RecipientPhone  string
	ShippingAddress string
	ShippingFee     float64
	Note            string
	PaymentMethod   string
	CallbackURL     string
}

// PurchasedProduct is the denormalized line returned to the client after
// checkout.
type PurchasedProduct struct {
	Name     string  `json:"name"`
	ImageURL string  `json:"image_url"`
	Quantity uint    `json:"quantity"`
	Price    float64 `json:"price"`
}

// PlaceOrder converts the user's pending cart into an order. Reading the
// cart, creating the order and consuming the items all happen in one
// transaction; a failure anywhere leaves no partial state behind.
func (s *Service) PlaceOrder(ctx context.Context, userID uint, info ShippingInfo) (*models.Order, []PurchasedProduct, error) {
	if info.PaymentMethod == "" {
		info.PaymentMethod = models.PaymentMethodCOD
	}
	if info.PaymentMethod != models.PaymentMethodCOD && info.PaymentMethod != models.PaymentMethodBank {
		return nil, nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, info.PaymentMethod)
	}

	var (
		order    models.Order
		products []PurchasedProduct
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := cart.Lock(tx).
			Where("user_id = ? AND status = ?", userID, models.CartStatusNotPaid).
			Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		total := info.ShippingFee
		products = make([]PurchasedProduct, 0, len(items))
		for _, it := range items {
			var p models.Product
			if err := tx.First(&p, it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: product %d", ErrNotFound, it.ProductID)
				}
				return err
			}
			total += float64(it.Quantity) * p.Price
			products = append(products, PurchasedProduct{
				Name:     p.Name,
				ImageURL: p.ImageURL,
				Quantity: it.Quantity,
				Price:    p.Price,
			})
		}

		order = models.Order{
			UserID:          userID,
			RecipientName:   info.RecipientName,
			RecipientPhone:  info.RecipientPhone,
			ShippingAddress: info.ShippingAddress,
			ShippingFee:     info.ShippingFee,
			Note:            info.Note,
			PaymentMethod:   info.PaymentMethod,
			TotalPrice:      total,
			Status:          models.OrderStatusPending,
			CallbackURL:     info.CallbackURL,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		if _, err := cart.Consume(tx, items, order.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &order, products, nil
}

type ListFilters struct {
	Email      string
	OrderID    string
	ListStatus string
	Page       int
	Limit      int
}

type ListResult struct {
	Content       []models.Order
	TotalRevenue  float64
	TotalElements int64
	Page          int
	Limit         int
}

// ListOrders returns a page of orders with optional filters. TotalRevenue is
// summed over the returned page only, matching the shipped behavior of the
// admin dashboard that consumes it.
func (s *Service) ListOrders(ctx context.Context, filters ListFilters) (*ListResult, error) {
	offset, limit := util.Calculate(filters.Page, filters.Limit)

	q := s.DB.WithContext(ctx).Model(&models.Order{})

	if filters.Email != "" {
		var user models.User
		if err := s.DB.WithContext(ctx).Where("email = ?", filters.Email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: user %s", ErrNotFound, filters.Email)
			}
			return nil, err
		}
		q = q.Where("user_id = ?", user.ID)
	}
	if filters.OrderID != "" {
		q = q.Where("id = ?", filters.OrderID)
	}
	if filters.ListStatus != "" {
		statuses := []string{}
		for _, st := range strings.Split(filters.ListStatus, ",") {
			if st = strings.TrimSpace(st); st != "" {
				statuses = append(statuses, st)
			}
		}
		if len(statuses) > 0 {
			q = q.Where("status IN ?", statuses)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, err
	}

	var revenue float64
	for _, o := range orders {
		revenue += o.TotalPrice
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	return &ListResult{
		Content:       orders,
		TotalRevenue:  revenue,
		TotalElements: total,
		Page:          page,
		Limit:         limit,
	}, nil
}

// ListForUser returns all orders belonging to one user.
func (s *Service) ListForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus sets the order status unconditionally. No transition table:
// any status may move to any other, and setting the same status twice is a
// no-op, so gateway callbacks can be replayed safely.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}

	if order.Status == status {
		return &order, nil
	}

	if err := s.DB.WithContext(ctx).Model(&order).Update("status", status).Error; err != nil {
		return nil, err
	}
	order.Status = status
	return &order, nil
}

// Get loads one order.
func (s *Service) Get(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	return &order, nil
}
