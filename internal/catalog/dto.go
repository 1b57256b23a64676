package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amendoza/storefront-backend/pkg/db/models"
)

// CategoryDTO is the transport shape for a catalog category.
type CategoryDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ImagePath *string   `json:"image_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// VariantDTO carries a purchasable variation of a product.
type VariantDTO struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// ReviewDTO carries one customer rating.
type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductDTO nests variants and reviews and denormalizes the category name.
type ProductDTO struct {
	ID           uuid.UUID       `json:"id"`
	CategoryID   uuid.UUID       `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	ImagePath    *string         `json:"image_path,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Variants     []VariantDTO    `json:"variants"`
	Reviews      []ReviewDTO     `json:"reviews"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CreateReviewRequest is the authenticated review payload.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// UpsertCategoryRequest is the admin payload for categories.
type UpsertCategoryRequest struct {
	Name      string  `json:"name" validate:"required"`
	ImagePath *string `json:"image_path,omitempty"`
}

// UpsertProductRequest is the admin payload for products.
type UpsertProductRequest struct {
	CategoryID  uuid.UUID       `json:"category_id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	ImagePath   *string         `json:"image_path,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

// UpsertVariantRequest is the admin payload for variants.
type UpsertVariantRequest struct {
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock" validate:"min=0"`
}

func categoryFromModel(c *models.Category) *CategoryDTO {
	if c == nil {
		return nil
	}
	return &CategoryDTO{
		ID:        c.ID,
		Name:      c.Name,
		ImagePath: c.ImagePath,
		CreatedAt: c.CreatedAt,
	}
}

func variantFromModel(v *models.Variant) VariantDTO {
	return VariantDTO{
		ID:    v.ID,
		Name:  v.Name,
		Price: v.Price,
		Stock: v.Stock,
	}
}

func reviewFromModel(r *models.Review) ReviewDTO {
	return ReviewDTO{
		ID:        r.ID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func productFromModel(p *models.Product, categoryName string) *ProductDTO {
	if p == nil {
		return nil
	}
	variants := make([]VariantDTO, 0, len(p.Variants))
	for i := range p.Variants {
		variants = append(variants, variantFromModel(&p.Variants[i]))
	}
	reviews := make([]ReviewDTO, 0, len(p.Reviews))
	for i := range p.Reviews {
		reviews = append(reviews, reviewFromModel(&p.Reviews[i]))
	}
	return &ProductDTO{
		ID:           p.ID,
		CategoryID:   p.CategoryID,
		CategoryName: categoryName,
		Name:         p.Name,
		Description:  p.Description,
		ImagePath:    p.ImagePath,
		Price:        p.Price,
		Variants:     variants,
		Reviews:      reviews,
		CreatedAt:    p.CreatedAt,
	}
}
