package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/amendoza/storefront-backend/internal/orders"
	pkgerrors "github.com/amendoza/storefront-backend/pkg/errors"
	"github.com/amendoza/storefront-backend/pkg/pagination"
)

type stubOrdersService struct {
	order      *orders.OrderDTO
	list       []orders.OrderDTO
	adminList  *orders.AdminOrderList
	err        error
	lastParams pagination.Params
	lastStatus string
}

func (s *stubOrdersService) PlaceFromCart(ctx context.Context, userID uuid.UUID) (*orders.OrderDTO, error) {
	return s.order, s.err
}

func (s *stubOrdersService) PlaceDirect(ctx context.Context, userID uuid.UUID, req orders.PlaceDirectRequest) (*orders.OrderDTO, error) {
	return s.order, s.err
}

func (s *stubOrdersService) List(ctx context.Context, userID uuid.UUID) ([]orders.OrderDTO, error) {
	return s.list, s.err
}

func (s *stubOrdersService) Delete(ctx context.Context, userID, orderID uuid.UUID) error {
	return s.err
}

func (s *stubOrdersService) AdminList(ctx context.Context, params pagination.Params) (*orders.AdminOrderList, error) {
	s.lastParams = params
	return s.adminList, s.err
}

func (s *stubOrdersService) AdminGet(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return s.order, s.err
}

func (s *stubOrdersService) AdminSetStatus(ctx context.Context, orderID uuid.UUID, req orders.SetStatusRequest) (*orders.OrderDTO, error) {
	s.lastStatus = req.Status
	return s.order, s.err
}

func (s *stubOrdersService) AdminDelete(ctx context.Context, orderID uuid.UUID) error {
	return s.err
}

func TestOrderPlaceFromCartEmptyCart(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")}
	handler := OrderPlaceFromCart(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/orders/place", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Message != "cart is empty" {
		t.Fatalf("expected empty-cart message got %q", envelope.Error.Message)
	}
}

func TestOrderPlaceDirectSuccess(t *testing.T) {
	order := &orders.OrderDTO{ID: uuid.New(), Status: "pending"}
	svc := &stubOrdersService{order: order}
	handler := OrderPlaceDirect(svc, nil)

	payload := []byte(`{"lines":[{"product_id":"` + uuid.NewString() + `","quantity":1}]}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/orders/direct-place", payload))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}

func TestOrderPlaceDirectRejectsEmptyLines(t *testing.T) {
	handler := OrderPlaceDirect(&stubOrdersService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/orders/direct-place", []byte(`{"lines":[]}`)))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminOrderListForwardsPagination(t *testing.T) {
	svc := &stubOrdersService{adminList: &orders.AdminOrderList{Orders: []orders.OrderDTO{}}}
	handler := AdminOrderList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?limit=5&cursor=abc", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastParams.Limit != 5 || svc.lastParams.Cursor != "abc" {
		t.Fatalf("unexpected params forwarded: %+v", svc.lastParams)
	}
}

func TestAdminOrderListRejectsOversizedLimit(t *testing.T) {
	handler := AdminOrderList(&stubOrdersService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?limit=9999", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminOrderSetStatusForwardsBody(t *testing.T) {
	svc := &stubOrdersService{order: &orders.OrderDTO{ID: uuid.New(), Status: "shipped"}}
	handler := AdminOrderSetStatus(svc, nil)

	req := authedRequest(http.MethodPatch, "/api/admin/v1/orders/x/status", []byte(`{"status":"shipped"}`))
	req = withURLParam(req, "orderId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastStatus != "shipped" {
		t.Fatalf("expected shipped forwarded got %q", svc.lastStatus)
	}
}

func TestAdminOrderGetInvalidID(t *testing.T) {
	handler := AdminOrderGet(&stubOrdersService{}, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders/nope", nil), "orderId", "nope")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
