package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amendoza/storefront-backend/internal/cart"
	"github.com/amendoza/storefront-backend/pkg/db/models"
	"github.com/amendoza/storefront-backend/pkg/enums"
	pkgerrors "github.com/amendoza/storefront-backend/pkg/errors"
	"github.com/amendoza/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service materializes carts into orders and manages the order lifecycle.
type Service interface {
	PlaceFromCart(ctx context.Context, userID uuid.UUID) (*OrderDTO, error)
	PlaceDirect(ctx context.Context, userID uuid.UUID, req PlaceDirectRequest) (*OrderDTO, error)
	List(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	Delete(ctx context.Context, userID, orderID uuid.UUID) error

	AdminList(ctx context.Context, params pagination.Params) (*AdminOrderList, error)
	AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	AdminSetStatus(ctx context.Context, orderID uuid.UUID, req SetStatusRequest) (*OrderDTO, error)
	AdminDelete(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	repo    Repository
	carts   cart.Repository
	catalog productLoader
	tx      txRunner
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, carts cart.Repository, catalog productLoader, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, carts: carts, catalog: catalog, tx: tx}, nil
}

// PlaceFromCart snapshots every cart line into a pending order and clears the
// cart, all inside one transaction.
func (s *service) PlaceFromCart(ctx context.Context, userID uuid.UUID) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}

	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		carts := s.carts.WithTx(tx)

		record, err := carts.FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		items := make([]models.OrderItem, 0, len(record.Items))
		for i := range record.Items {
			line := &record.Items[i]
			items = append(items, models.OrderItem{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
				Price:     cart.EffectiveUnitPrice(line),
			})
		}

		placed, err = s.materialize(ctx, repo, userID, items)
		if err != nil {
			return err
		}

		if err := carts.ClearItems(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, placed.ID)
}

// PlaceDirect materializes the provided line list without touching the cart.
func (s *service) PlaceDirect(ctx context.Context, userID uuid.UUID, req PlaceDirectRequest) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	if len(req.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}

	items := make([]models.OrderItem, 0, len(req.Lines))
	for i, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity must be at least 1", i+1))
		}

		product, err := s.catalog.FindProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: product not found", i+1))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}

		price := product.Price
		if line.VariantID != nil {
			variant, err := s.catalog.FindVariant(ctx, *line.VariantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: variant not found", i+1))
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
			}
			if variant.ProductID != product.ID {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: variant does not belong to product", i+1))
			}
			price = variant.Price
		}

		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			Price:     price,
		})
	}

	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		placed, err = s.materialize(ctx, s.repo.WithTx(tx), userID, items)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, placed.ID)
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return FromModels(orders), nil
}

func (s *service) Delete(ctx context.Context, userID, orderID uuid.UUID) error {
	affected, err := s.repo.DeleteOwned(ctx, userID, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete order")
	}
	if affected == 0 {
		// foreign and missing orders are indistinguishable on purpose
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

func (s *service) AdminList(ctx context.Context, params pagination.Params) (*AdminOrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	orders, next, err := s.repo.ListAll(ctx, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	list := &AdminOrderList{Orders: FromModels(orders)}
	if next != nil {
		encoded := pagination.EncodeCursor(*next)
		list.NextCursor = &encoded
	}
	return list, nil
}

func (s *service) AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	return s.reload(ctx, orderID)
}

// AdminSetStatus applies a membership-only status change: any known status
// may replace any other, unknown values leave the order untouched.
func (s *service) AdminSetStatus(ctx context.Context, orderID uuid.UUID, req SetStatusRequest) (*OrderDTO, error) {
	status, err := enums.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", req.Status))
	}

	affected, err := s.repo.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update status")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.reload(ctx, orderID)
}

func (s *service) AdminDelete(ctx context.Context, orderID uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete order")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

func (s *service) materialize(ctx context.Context, repo Repository, userID uuid.UUID, items []models.OrderItem) (*models.Order, error) {
	order, err := repo.Create(ctx, &models.Order{
		UserID: userID,
		Status: enums.OrderStatusPending,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	for i := range items {
		items[i].OrderID = order.ID
	}
	if err := repo.CreateItems(ctx, items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order items")
	}
	order.Items = items
	return order, nil
}

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return FromModel(order), nil
}
