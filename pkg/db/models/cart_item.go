package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one (product, optional variant, quantity) entry in a cart.
// At most one row may exist per (cart, product, variant) key; repeated adds
// increment the quantity instead of inserting.
type CartItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID  `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_line_key"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_items_line_key"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid;uniqueIndex:idx_cart_items_line_key"`
	Quantity  int        `gorm:"column:quantity;not null"`
	Product   *Product   `gorm:"foreignKey:ProductID"`
	Variant   *Variant   `gorm:"foreignKey:VariantID"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
