package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amendoza/storefront-backend/pkg/db/models"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	categories := `
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  image_path TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  image_path TEXT,
  price NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	variants := `
CREATE TABLE IF NOT EXISTS variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	reviews := `
CREATE TABLE IF NOT EXISTS reviews (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  rating INTEGER NOT NULL,
  comment TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`
	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`
	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	lineKey := `
CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_line_key
  ON cart_items (cart_id, product_id, ifnull(variant_id, ''));`

	for _, stmt := range []string{categories, products, variants, reviews, carts, cartItems, lineKey} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string) *models.Product {
	t.Helper()
	category := &models.Category{ID: uuid.New(), Name: "cat-" + uuid.NewString()}
	require.NoError(t, db.Create(category).Error)
	product := &models.Product{
		ID:         uuid.New(),
		CategoryID: category.ID,
		Name:       name,
		Price:      decimal.RequireFromString(price),
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func seedCart(t *testing.T, db *gorm.DB, userID uuid.UUID) *models.Cart {
	t.Helper()
	cart := &models.Cart{ID: uuid.New(), UserID: userID}
	require.NoError(t, db.Create(cart).Error)
	return cart
}

func TestRepositoryFindLineForUpdateMatchesVariantKey(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, "Hoodie", "59.99")
	variant := &models.Variant{ID: uuid.New(), ProductID: product.ID, Name: "Size M", Price: decimal.RequireFromString("64.99")}
	require.NoError(t, db.Create(variant).Error)

	cart := seedCart(t, db, uuid.New())

	bare := &models.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, Quantity: 1}
	withVariant := &models.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, VariantID: &variant.ID, Quantity: 2}
	_, err := repo.CreateItem(ctx, bare)
	require.NoError(t, err)
	_, err = repo.CreateItem(ctx, withVariant)
	require.NoError(t, err)

	found, err := repo.FindLineForUpdate(ctx, cart.ID, product.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, bare.ID, found.ID)

	found, err = repo.FindLineForUpdate(ctx, cart.ID, product.ID, &variant.ID)
	require.NoError(t, err)
	assert.Equal(t, withVariant.ID, found.ID)

	otherVariant := uuid.New()
	_, err = repo.FindLineForUpdate(ctx, cart.ID, product.ID, &otherVariant)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryFindOwnedItemScopesByOwner(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	product := seedProduct(t, db, "Hoodie", "59.99")
	cart := seedCart(t, db, owner)
	item := &models.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, Quantity: 1}
	_, err := repo.CreateItem(ctx, item)
	require.NoError(t, err)

	found, err := repo.FindOwnedItem(ctx, owner, item.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Product)
	assert.Equal(t, "Hoodie", found.Product.Name)

	_, err = repo.FindOwnedItem(ctx, uuid.New(), item.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryDeleteOwnedItem(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	product := seedProduct(t, db, "Hoodie", "59.99")
	cart := seedCart(t, db, owner)
	item := &models.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, Quantity: 1}
	_, err := repo.CreateItem(ctx, item)
	require.NoError(t, err)

	affected, err := repo.DeleteOwnedItem(ctx, uuid.New(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected, "foreign owner must not delete the line")

	affected, err = repo.DeleteOwnedItem(ctx, owner, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestRepositoryClearItems(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	product := seedProduct(t, db, "Hoodie", "59.99")
	cart := seedCart(t, db, owner)
	for i := 0; i < 3; i++ {
		other := seedProduct(t, db, "Other", "10.00")
		_, err := repo.CreateItem(ctx, &models.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: other.ID, Quantity: 1})
		require.NoError(t, err)
	}
	_ = product

	require.NoError(t, repo.ClearItems(ctx, cart.ID))

	reloaded, err := repo.FindByUser(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Items)
}
