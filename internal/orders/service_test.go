package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/amendoza/storefront-backend/internal/cart"
	"github.com/amendoza/storefront-backend/internal/catalog"
	"github.com/amendoza/storefront-backend/pkg/db/models"
	"github.com/amendoza/storefront-backend/pkg/enums"
	pkgerrors "github.com/amendoza/storefront-backend/pkg/errors"
	"github.com/amendoza/storefront-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), cart.NewRepository(db), catalog.NewRepository(db), gormTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func seedCartWithLine(t *testing.T, db *gorm.DB, userID uuid.UUID, productID uuid.UUID, variantID *uuid.UUID, qty int) *models.Cart {
	t.Helper()
	record := &models.Cart{ID: uuid.New(), UserID: userID}
	require.NoError(t, db.Create(record).Error)
	item := &models.CartItem{
		ID:        uuid.New(),
		CartID:    record.ID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  qty,
	}
	require.NoError(t, db.Create(item).Error)
	return record
}

func TestServicePlaceFromCartMaterializesAndClears(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	product := seedCatalogProduct(t, db, "Hoodie", "59.99")
	variant := &models.Variant{ID: uuid.New(), ProductID: product.ID, Name: "Size M", Price: decimal.RequireFromString("64.99")}
	require.NoError(t, db.Create(variant).Error)

	record := seedCartWithLine(t, db, userID, product.ID, nil, 2)
	require.NoError(t, db.Create(&models.CartItem{
		ID:        uuid.New(),
		CartID:    record.ID,
		ProductID: product.ID,
		VariantID: &variant.ID,
		Quantity:  1,
	}).Error)

	order, err := svc.PlaceFromCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)
	// 2 * 59.99 + 1 * 64.99
	assert.True(t, order.Total.Equal(decimal.RequireFromString("184.97")), "got total %s", order.Total)

	var remaining int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", record.ID).Count(&remaining).Error)
	assert.Zero(t, remaining, "cart must be cleared after placement")
}

func TestServicePlaceFromCartEmptyCart(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()

	// absent cart
	_, err := svc.PlaceFromCart(ctx, userID)
	requireCode(t, err, pkgerrors.CodeValidation)

	// present but empty cart
	require.NoError(t, db.Create(&models.Cart{ID: uuid.New(), UserID: userID}).Error)
	_, err = svc.PlaceFromCart(ctx, userID)
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Contains(t, err.Error(), "cart is empty")

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestServicePlaceFromCartRollsBackWhenClearFails(t *testing.T) {
	db := setupOrdersTestDB(t)
	userID := uuid.New()
	product := seedCatalogProduct(t, db, "Hoodie", "59.99")
	record := seedCartWithLine(t, db, userID, product.ID, nil, 2)

	carts := failingClearCartRepo{Repository: cart.NewRepository(db)}
	svc, err := NewService(NewRepository(db), carts, catalog.NewRepository(db), gormTxRunner{db: db})
	require.NoError(t, err)

	_, err = svc.PlaceFromCart(context.Background(), userID)
	require.Error(t, err)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount, "order must not survive a failed clear")

	var itemCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", record.ID).Count(&itemCount).Error)
	assert.Equal(t, int64(1), itemCount, "cart must keep its lines after rollback")
}

func TestServicePlaceDirectSnapshotsWithoutTouchingCart(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	product := seedCatalogProduct(t, db, "Hoodie", "59.99")
	record := seedCartWithLine(t, db, userID, product.ID, nil, 3)

	order, err := svc.PlaceDirect(ctx, userID, PlaceDirectRequest{Lines: []DirectLineInput{
		{ProductID: product.ID, Quantity: 1},
	}})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("59.99")))

	var remaining int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", record.ID).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining, "direct placement must leave the cart alone")
}

func TestServicePlaceDirectNamesOffendingLine(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	product := seedCatalogProduct(t, db, "Hoodie", "59.99")
	other := seedCatalogProduct(t, db, "Cap", "19.99")
	foreignVariant := &models.Variant{ID: uuid.New(), ProductID: other.ID, Name: "Red", Price: decimal.RequireFromString("21.99")}
	require.NoError(t, db.Create(foreignVariant).Error)

	_, err := svc.PlaceDirect(ctx, uuid.New(), PlaceDirectRequest{Lines: []DirectLineInput{
		{ProductID: product.ID, Quantity: 1},
		{ProductID: product.ID, VariantID: &foreignVariant.ID, Quantity: 1},
	}})
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Contains(t, err.Error(), "line 2")

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestServiceAdminSetStatusMembershipOnly(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	product := seedCatalogProduct(t, db, "Hoodie", "59.99")
	seedCartWithLine(t, db, userID, product.ID, nil, 1)
	order, err := svc.PlaceFromCart(ctx, userID)
	require.NoError(t, err)

	// any known status replaces any other, no transition graph
	updated, err := svc.AdminSetStatus(ctx, order.ID, SetStatusRequest{Status: "delivered"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, updated.Status)

	updated, err = svc.AdminSetStatus(ctx, order.ID, SetStatusRequest{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, updated.Status)

	_, err = svc.AdminSetStatus(ctx, order.ID, SetStatusRequest{Status: "teleported"})
	requireCode(t, err, pkgerrors.CodeValidation)

	reloaded, err := svc.AdminGet(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, reloaded.Status, "rejected status must leave the order unchanged")
}

func TestServiceAdminListRejectsMalformedCursor(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	for _, raw := range []string{"not-base64!!", "bm8tc2VwYXJhdG9y"} {
		_, err := svc.AdminList(ctx, pagination.Params{Cursor: raw})
		requireCode(t, err, pkgerrors.CodeValidation)
		assert.Contains(t, err.Error(), "invalid cursor")
	}

	// a well-formed cursor still pages
	userID := uuid.New()
	product := seedCatalogProduct(t, db, "Hoodie", "59.99")
	seedCartWithLine(t, db, userID, product.ID, nil, 1)
	_, err := svc.PlaceFromCart(ctx, userID)
	require.NoError(t, err)

	list, err := svc.AdminList(ctx, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 1)
	assert.Nil(t, list.NextCursor)
}

func TestServiceDeleteForeignOrderIsNotFound(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	product := seedCatalogProduct(t, db, "Hoodie", "59.99")
	seedCartWithLine(t, db, owner, product.ID, nil, 1)
	order, err := svc.PlaceFromCart(ctx, owner)
	require.NoError(t, err)

	err = svc.Delete(ctx, uuid.New(), order.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	err = svc.Delete(ctx, owner, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)

	require.NoError(t, svc.Delete(ctx, owner, order.ID))
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

// failingClearCartRepo forces the clear step to fail inside the transaction.
type failingClearCartRepo struct {
	cart.Repository
}

func (f failingClearCartRepo) WithTx(tx *gorm.DB) cart.Repository {
	return failingClearCartRepo{Repository: f.Repository.WithTx(tx)}
}

func (f failingClearCartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return assert.AnError
}
