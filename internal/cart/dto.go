package cart

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amendoza/storefront-backend/pkg/db/models"
)

// AddItemRequest is the payload for adding a line to the cart.
type AddItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
}

// UpdateItemRequest replaces the quantity of an existing line.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// AddItemResponse confirms the merge result for the affected line.
type AddItemResponse struct {
	Message string       `json:"message"`
	Item    *CartItemDTO `json:"item"`
}

// CartItemDTO is one cart line with its live effective unit price.
type CartItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	VariantName *string         `json:"variant_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartDTO is the cart view with the derived total.
type CartDTO struct {
	ID    uuid.UUID       `json:"id"`
	Items []CartItemDTO   `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// EffectiveUnitPrice returns the variant price when the line references a
// variant, otherwise the product price.
func EffectiveUnitPrice(item *models.CartItem) decimal.Decimal {
	if item.Variant != nil {
		return item.Variant.Price
	}
	if item.Product != nil {
		return item.Product.Price
	}
	return decimal.Zero
}

func itemFromModel(item *models.CartItem) CartItemDTO {
	unit := EffectiveUnitPrice(item)
	dto := CartItemDTO{
		ID:        item.ID,
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Quantity:  item.Quantity,
		UnitPrice: unit,
		LineTotal: unit.Mul(decimal.NewFromInt(int64(item.Quantity))),
	}
	if item.Product != nil {
		dto.ProductName = item.Product.Name
	}
	if item.Variant != nil {
		name := item.Variant.Name
		dto.VariantName = &name
	}
	return dto
}

func cartFromModel(cart *models.Cart) *CartDTO {
	if cart == nil {
		return nil
	}
	items := make([]CartItemDTO, 0, len(cart.Items))
	total := decimal.Zero
	for i := range cart.Items {
		dto := itemFromModel(&cart.Items[i])
		total = total.Add(dto.LineTotal)
		items = append(items, dto)
	}
	return &CartDTO{
		ID:    cart.ID,
		Items: items,
		Total: total,
	}
}

func addedMessage(productName string, variantName *string, qty int) string {
	if variantName != nil {
		return fmt.Sprintf("added %s (%s) x%d to cart", productName, *variantName, qty)
	}
	return fmt.Sprintf("added %s x%d to cart", productName, qty)
}
