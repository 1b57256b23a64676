package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amendoza/storefront-backend/pkg/db/models"
	"github.com/amendoza/storefront-backend/pkg/enums"
)

// DirectLineInput is one line of a direct (cart-less) placement.
type DirectLineInput struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
}

// PlaceDirectRequest carries the full line list for a direct placement.
type PlaceDirectRequest struct {
	Lines []DirectLineInput `json:"lines" validate:"required,min=1,dive"`
}

// SetStatusRequest is the admin payload for a status change.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderItemDTO is one priced snapshot line.
type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	VariantName *string         `json:"variant_name,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderDTO is the transport shape of a materialized order. The total is
// derived from the snapshot prices, never from the live catalog.
type OrderDTO struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	Status    enums.OrderStatus `json:"status"`
	Items     []OrderItemDTO    `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	CreatedAt time.Time         `json:"created_at"`
}

// AdminOrderList is one cursor page of the unscoped admin listing.
type AdminOrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor *string    `json:"next_cursor,omitempty"`
}

func itemFromModel(item *models.OrderItem) OrderItemDTO {
	dto := OrderItemDTO{
		ID:        item.ID,
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Quantity:  item.Quantity,
		Price:     item.Price,
		LineTotal: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
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

func FromModel(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(order.Items))
	total := decimal.Zero
	for i := range order.Items {
		dto := itemFromModel(&order.Items[i])
		total = total.Add(dto.LineTotal)
		items = append(items, dto)
	}
	return &OrderDTO{
		ID:        order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Items:     items,
		Total:     total,
		CreatedAt: order.CreatedAt,
	}
}

func FromModels(list []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}
