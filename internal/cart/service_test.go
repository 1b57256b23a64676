package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/amendoza/storefront-backend/internal/catalog"
	"github.com/amendoza/storefront-backend/pkg/db/models"
	pkgerrors "github.com/amendoza/storefront-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), catalog.NewRepository(db), gormTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func TestServiceAddItemMergesOnRepeatedKey(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	seedCart(t, db, owner)
	product := seedProduct(t, db, "Hoodie", "59.99")

	first, err := svc.AddItem(ctx, owner, AddItemRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Item.Quantity)
	assert.Equal(t, "added Hoodie x2 to cart", first.Message)

	second, err := svc.AddItem(ctx, owner, AddItemRequest{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, first.Item.ID, second.Item.ID, "same key must merge, not insert")
	assert.Equal(t, 5, second.Item.Quantity)

	view, err := svc.View(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
}

func TestServiceAddItemVariantAndBareLinesStayDistinct(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	seedCart(t, db, owner)
	product := seedProduct(t, db, "Hoodie", "59.99")
	variant := &models.Variant{ID: uuid.New(), ProductID: product.ID, Name: "Size M", Price: decimal.RequireFromString("64.99")}
	require.NoError(t, db.Create(variant).Error)

	_, err := svc.AddItem(ctx, owner, AddItemRequest{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	resp, err := svc.AddItem(ctx, owner, AddItemRequest{ProductID: product.ID, VariantID: &variant.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "added Hoodie (Size M) x1 to cart", resp.Message)

	view, err := svc.View(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
}

func TestServiceAddItemRejectsForeignVariant(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	seedCart(t, db, owner)
	product := seedProduct(t, db, "Hoodie", "59.99")
	other := seedProduct(t, db, "Cap", "19.99")
	variant := &models.Variant{ID: uuid.New(), ProductID: other.ID, Name: "Red", Price: decimal.RequireFromString("21.99")}
	require.NoError(t, db.Create(variant).Error)

	_, err := svc.AddItem(ctx, owner, AddItemRequest{ProductID: product.ID, VariantID: &variant.ID, Quantity: 1})
	requireCode(t, err, pkgerrors.CodeValidation)

	view, err := svc.View(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, view.Items, "rejected add must not leave a line behind")
}

func TestServiceViewTotalUsesVariantPriceOverride(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	seedCart(t, db, owner)
	product := seedProduct(t, db, "Hoodie", "59.99")
	variant := &models.Variant{ID: uuid.New(), ProductID: product.ID, Name: "Size M", Price: decimal.RequireFromString("64.99")}
	require.NoError(t, db.Create(variant).Error)

	_, err := svc.AddItem(ctx, owner, AddItemRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, AddItemRequest{ProductID: product.ID, VariantID: &variant.ID, Quantity: 1})
	require.NoError(t, err)

	view, err := svc.View(ctx, owner)
	require.NoError(t, err)
	// 2 * 59.99 + 1 * 64.99
	assert.True(t, view.Total.Equal(decimal.RequireFromString("184.97")), "got total %s", view.Total)
}

func TestServiceViewTotalTracksLiveCatalogPrice(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	seedCart(t, db, owner)
	product := seedProduct(t, db, "Hoodie", "59.99")

	_, err := svc.AddItem(ctx, owner, AddItemRequest{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", product.ID).
		UpdateColumn("price", decimal.RequireFromString("10.00")).Error)

	view, err := svc.View(ctx, owner)
	require.NoError(t, err)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("10.00")), "got total %s", view.Total)
}

func TestServiceUpdateAndRemoveScopedByOwner(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	stranger := uuid.New()
	seedCart(t, db, owner)
	seedCart(t, db, stranger)
	product := seedProduct(t, db, "Hoodie", "59.99")

	added, err := svc.AddItem(ctx, owner, AddItemRequest{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := added.Item.ID

	_, err = svc.UpdateItem(ctx, stranger, itemID, UpdateItemRequest{Quantity: 5})
	requireCode(t, err, pkgerrors.CodeNotFound)

	err = svc.RemoveItem(ctx, stranger, itemID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	updated, err := svc.UpdateItem(ctx, owner, itemID, UpdateItemRequest{Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)

	require.NoError(t, svc.RemoveItem(ctx, owner, itemID))
	err = svc.RemoveItem(ctx, owner, itemID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestServiceEnsureRecoversFromConcurrentCreate(t *testing.T) {
	existing := &models.Cart{ID: uuid.New(), UserID: uuid.New()}
	repo := &racingCartRepo{existing: existing}
	svc, err := NewService(repo, stubProductLoader{}, stubTxRunner{})
	require.NoError(t, err)

	dto, err := svc.Ensure(context.Background(), existing.UserID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, dto.ID, "loser of the create race must reload the winner's cart")
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubProductLoader struct{}

func (stubProductLoader) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return nil, gorm.ErrRecordNotFound
}

func (stubProductLoader) FindVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	return nil, gorm.ErrRecordNotFound
}

// racingCartRepo simulates losing the first-use create race: the initial
// lookup misses, the insert trips the unique index, the reload succeeds.
type racingCartRepo struct {
	existing *models.Cart
	looked   bool
}

func (r *racingCartRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *racingCartRepo) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if !r.looked {
		r.looked = true
		return nil, gorm.ErrRecordNotFound
	}
	return r.existing, nil
}

func (r *racingCartRepo) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	return nil, errUniqueCart{}
}

func (r *racingCartRepo) FindLineForUpdate(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *racingCartRepo) CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	return item, nil
}

func (r *racingCartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return nil
}

func (r *racingCartRepo) FindOwnedItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *racingCartRepo) DeleteOwnedItem(ctx context.Context, userID, itemID uuid.UUID) (int64, error) {
	return 0, nil
}

func (r *racingCartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return nil
}

type errUniqueCart struct{}

func (errUniqueCart) Error() string {
	return `duplicate key value violates unique constraint "idx_carts_user_id"`
}
