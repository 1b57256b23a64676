package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amendoza/storefront-backend/pkg/db"
	"github.com/amendoza/storefront-backend/pkg/db/models"
	pkgerrors "github.com/amendoza/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the cart operations for one shopper.
type Service interface {
	Ensure(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	View(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*AddItemResponse, error)
	GetItem(ctx context.Context, userID, itemID uuid.UUID) (*CartItemDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, req UpdateItemRequest) (*CartItemDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog productLoader
	tx      txRunner
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, catalog productLoader, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, catalog: catalog, tx: tx}, nil
}

// Ensure loads the user's cart, creating the empty one on first use.
func (s *service) Ensure(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.ensureCart(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	return cartFromModel(cart), nil
}

func (s *service) View(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	return s.Ensure(ctx, userID)
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*AddItemResponse, error) {
	if req.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.catalog.FindProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	var variant *models.Variant
	if req.VariantID != nil {
		variant, err = s.catalog.FindVariant(ctx, *req.VariantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
		}
		if variant.ProductID != product.ID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
		}
	}

	var resultItem *models.CartItem
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.ensureCart(ctx, repo, userID)
		if err != nil {
			return err
		}

		existing, err := repo.FindLineForUpdate(ctx, cart.ID, product.ID, req.VariantID)
		switch {
		case err == nil:
			existing.Quantity += req.Quantity
			if err := repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment cart line")
			}
			resultItem = existing

		case errors.Is(err, gorm.ErrRecordNotFound):
			item := &models.CartItem{
				CartID:    cart.ID,
				ProductID: product.ID,
				VariantID: req.VariantID,
				Quantity:  req.Quantity,
			}
			if _, err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
			}
			resultItem = item

		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resultItem.Product = product
	resultItem.Variant = variant
	dto := itemFromModel(resultItem)
	return &AddItemResponse{
		Message: addedMessage(dto.ProductName, dto.VariantName, req.Quantity),
		Item:    &dto,
	}, nil
}

func (s *service) GetItem(ctx context.Context, userID, itemID uuid.UUID) (*CartItemDTO, error) {
	item, err := s.findOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	dto := itemFromModel(item)
	return &dto, nil
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, req UpdateItemRequest) (*CartItemDTO, error) {
	if req.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	item, err := s.findOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateItemQuantity(ctx, item.ID, req.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
	}
	item.Quantity = req.Quantity
	dto := itemFromModel(item)
	return &dto, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	affected, err := s.repo.DeleteOwnedItem(ctx, userID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) findOwnedItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := s.repo.FindOwnedItem(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	return item, nil
}

func (s *service) ensureCart(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}

	cart, err := repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	created, err := repo.Create(ctx, &models.Cart{UserID: userID})
	if err != nil {
		// concurrent first-use add; the unique user index decides the winner
		if db.IsUniqueViolation(err, "") {
			cart, err = repo.FindByUser(ctx, userID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart")
			}
			return cart, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	return created, nil
}
