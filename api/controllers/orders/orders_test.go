package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/api/middleware"
	internalorders "github.com/angelmondragon/buildmart-backend/internal/orders"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

// stubService overrides only the calls a test exercises; anything else
// panics through the nil embedded interface.
type stubService struct {
	internalorders.Service
	createFn func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	acceptFn func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error)
	listFn   func(ctx context.Context, vendorID uuid.UUID, status *enums.OrderStatus, limit int) ([]models.Order, error)
	deductFn func(ctx context.Context, input internalorders.DeductionInput) (*models.Order, error)
}

func (s stubService) ApplyDeduction(ctx context.Context, input internalorders.DeductionInput) (*models.Order, error) {
	return s.deductFn(ctx, input)
}

func (s stubService) CreateOrder(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	return s.createFn(ctx, input)
}

func (s stubService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.getFn(ctx, id)
}

func (s stubService) VendorAccept(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
	return s.acceptFn(ctx, input)
}

func (s stubService) ListVendorOrders(ctx context.Context, vendorID uuid.UUID, status *enums.OrderStatus, limit int) ([]models.Order, error) {
	return s.listFn(ctx, vendorID, status, limit)
}

func withActor(req *http.Request, actor types.Actor) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func withOrderID(req *http.Request, orderID uuid.UUID) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", orderID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeOrder(t *testing.T, resp *httptest.ResponseRecorder) OrderView {
	t.Helper()
	var envelope struct {
		Data OrderView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestCreateUsesBuyerActorAsBuyer(t *testing.T) {
	buyer := types.Actor{ID: uuid.New(), Type: enums.ActorBuyer}
	vendorID := uuid.New()
	materialID := uuid.New()

	svc := stubService{
		createFn: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
			if input.BuyerID != buyer.ID {
				t.Fatalf("expected buyer %s got %s", buyer.ID, input.BuyerID)
			}
			if input.VendorID != vendorID {
				t.Fatalf("unexpected vendor %s", input.VendorID)
			}
			if len(input.Items) != 1 || !input.Items[0].Quantity.Equal(decimal.RequireFromString("2.5")) {
				t.Fatalf("unexpected items %+v", input.Items)
			}
			return &models.Order{
				ID:         uuid.New(),
				BuyerID:    input.BuyerID,
				VendorID:   input.VendorID,
				Status:     enums.OrderStatusPending,
				GrandTotal: decimal.RequireFromString("1180.00"),
			}, nil
		},
	}

	body := `{"vendor_id":"` + vendorID.String() + `","items":[{"material_id":"` + materialID.String() + `","quantity":"2.5"}],"delivery_method":"vendor_delivery","payment_method":"cod"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), buyer)
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	view := decodeOrder(t, resp)
	if view.Status != enums.OrderStatusPending || !view.GrandTotal.Equal(decimal.RequireFromString("1180")) {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestCreateRejectsUnknownFields(t *testing.T) {
	buyer := types.Actor{ID: uuid.New(), Type: enums.ActorBuyer}
	req := withActor(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"vendor_id":"`+uuid.NewString()+`","bogus":1}`)), buyer)
	resp := httptest.NewRecorder()
	Create(stubService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDetailHidesForeignOrders(t *testing.T) {
	orderID := uuid.New()
	order := &models.Order{ID: orderID, BuyerID: uuid.New(), VendorID: uuid.New(), Status: enums.OrderStatusConfirmed}
	svc := stubService{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return order, nil
		},
	}

	cases := []struct {
		name   string
		actor  types.Actor
		status int
	}{
		{"buyer", types.Actor{ID: order.BuyerID, Type: enums.ActorBuyer}, http.StatusOK},
		{"vendor", types.Actor{ID: order.VendorID, Type: enums.ActorVendor}, http.StatusOK},
		{"admin", types.Actor{ID: uuid.New(), Type: enums.ActorAdmin}, http.StatusOK},
		{"other buyer", types.Actor{ID: uuid.New(), Type: enums.ActorBuyer}, http.StatusForbidden},
		{"vendor id as buyer", types.Actor{ID: order.VendorID, Type: enums.ActorBuyer}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := withActor(withOrderID(httptest.NewRequest(http.MethodGet, "/", nil), orderID), tc.actor)
			resp := httptest.NewRecorder()
			Detail(svc, nil).ServeHTTP(resp, req)
			if resp.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, resp.Code)
			}
		})
	}
}

func TestAcceptPassesActorAndMapsInvalidTransition(t *testing.T) {
	orderID := uuid.New()
	vendor := types.Actor{ID: uuid.New(), Type: enums.ActorVendor}
	svc := stubService{
		acceptFn: func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
			if input.OrderID != orderID || input.Actor != vendor {
				t.Fatalf("unexpected input %+v", input)
			}
			return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot accept order in status confirmed")
		},
	}

	req := withActor(withOrderID(httptest.NewRequest(http.MethodPost, "/", nil), orderID), vendor)
	resp := httptest.NewRecorder()
	Accept(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInvalidTransition) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
}

func TestTransitionRequiresActor(t *testing.T) {
	req := withOrderID(httptest.NewRequest(http.MethodPost, "/", nil), uuid.New())
	resp := httptest.NewRecorder()
	Accept(stubService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestVendorListScopesToCaller(t *testing.T) {
	vendor := types.Actor{ID: uuid.New(), Type: enums.ActorVendor}
	svc := stubService{
		listFn: func(ctx context.Context, vendorID uuid.UUID, status *enums.OrderStatus, limit int) ([]models.Order, error) {
			if vendorID != vendor.ID {
				t.Fatalf("expected vendor scope %s got %s", vendor.ID, vendorID)
			}
			if status == nil || *status != enums.OrderStatusPending {
				t.Fatalf("expected pending filter, got %v", status)
			}
			if limit != 10 {
				t.Fatalf("unexpected limit %d", limit)
			}
			return []models.Order{{ID: uuid.New(), VendorID: vendorID, Status: enums.OrderStatusPending}}, nil
		},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/?status=pending&limit=10&vendor_id="+uuid.NewString(), nil), vendor)
	resp := httptest.NewRecorder()
	VendorList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data []OrderView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("expected one order, got %d", len(envelope.Data))
	}
}

func TestVendorListRejectsBadStatus(t *testing.T) {
	vendor := types.Actor{ID: uuid.New(), Type: enums.ActorVendor}
	req := withActor(httptest.NewRequest(http.MethodGet, "/?status=shipped", nil), vendor)
	resp := httptest.NewRecorder()
	VendorList(stubService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestApplyDeductionPassesAmountAndReason(t *testing.T) {
	admin := types.Actor{ID: uuid.New(), Type: enums.ActorAdmin}
	orderID := uuid.New()
	svc := stubService{
		deductFn: func(ctx context.Context, input internalorders.DeductionInput) (*models.Order, error) {
			if input.OrderID != orderID || input.Actor != admin {
				t.Fatalf("unexpected input %+v", input)
			}
			if !input.Amount.Equal(decimal.RequireFromString("350")) || input.Reason != "damaged bags absorbed" {
				t.Fatalf("unexpected deduction %s %q", input.Amount, input.Reason)
			}
			return &models.Order{
				ID:           orderID,
				Status:       enums.OrderStatusCompleted,
				Deductions:   input.Amount,
				VendorPayout: decimal.RequireFromString("4650"),
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"350","reason":"damaged bags absorbed"}`))
	resp := httptest.NewRecorder()
	ApplyDeduction(svc, nil).ServeHTTP(resp, withOrderID(withActor(req, admin), orderID))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	view := decodeOrder(t, resp)
	if !view.VendorPayout.Equal(decimal.RequireFromString("4650")) || !view.Deductions.Equal(decimal.RequireFromString("350")) {
		t.Fatalf("unexpected view %+v", view)
	}

	for _, body := range []string{`{"amount":"0","reason":"x"}`, `{"amount":"-5","reason":"x"}`, `{"amount":"10"}`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		resp := httptest.NewRecorder()
		ApplyDeduction(stubService{}, nil).ServeHTTP(resp, withOrderID(withActor(req, admin), orderID))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", body, resp.Code)
		}
	}
}
