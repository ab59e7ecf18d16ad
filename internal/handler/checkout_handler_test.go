package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Awerito/ulatickets-api/internal/domain"
	"github.com/Awerito/ulatickets-api/internal/dto"
)

// MockCheckoutService is a mock implementation of CheckoutService for testing
type MockCheckoutService struct {
	CheckoutFunc    func(ctx context.Context, req *dto.CheckoutRequest) (*dto.PurchaseResponse, error)
	GetPurchaseFunc func(ctx context.Context, id string) (*domain.Purchase, error)
}

func (m *MockCheckoutService) Checkout(ctx context.Context, req *dto.CheckoutRequest) (*dto.PurchaseResponse, error) {
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockCheckoutService) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	if m.GetPurchaseFunc != nil {
		return m.GetPurchaseFunc(ctx, id)
	}
	return nil, domain.ErrPurchaseNotFound
}

func setupCheckoutRouter(mock *MockCheckoutService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewCheckoutHandler(mock)

	router.POST("/checkout", handler.Checkout)
	router.GET("/purchases/:id", handler.GetPurchase)
	return router
}

func TestCheckoutHandler_Checkout(t *testing.T) {
	validBody := `{"reservation_id":"res-123","buyer":{"name":"Ana","email":"ana@example.com"}}`

	tests := []struct {
		name           string
		body           string
		mockFunc       func(ctx context.Context, req *dto.CheckoutRequest) (*dto.PurchaseResponse, error)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "successful checkout",
			body: validBody,
			mockFunc: func(ctx context.Context, req *dto.CheckoutRequest) (*dto.PurchaseResponse, error) {
				return &dto.PurchaseResponse{
					ID:            "pur-123",
					ReservationID: req.ReservationID,
					EventID:       "event-001",
					Tickets:       []domain.Ticket{{Code: "T-001-0001", Type: "general"}},
					Buyer:         domain.BuyerInfo{Name: "Ana", Email: "ana@example.com"},
					TotalPrice:    100,
					ConfirmedAt:   time.Now(),
				}, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing buyer email",
			body:           `{"reservation_id":"res-123","buyer":{"name":"Ana"}}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name: "reservation not found",
			body: validBody,
			mockFunc: func(ctx context.Context, req *dto.CheckoutRequest) (*dto.PurchaseResponse, error) {
				return nil, domain.ErrReservationNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name: "reservation no longer active",
			body: validBody,
			mockFunc: func(ctx context.Context, req *dto.CheckoutRequest) (*dto.PurchaseResponse, error) {
				return nil, domain.ErrReservationNotActive
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "CONFLICT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupCheckoutRouter(&MockCheckoutService{CheckoutFunc: tt.mockFunc})

			req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedCode != "" {
				resp := decodeResponse(t, w.Body)
				if resp.Error == nil || resp.Error.Code != tt.expectedCode {
					t.Errorf("expected error code %s, got %+v", tt.expectedCode, resp.Error)
				}
			}
		})
	}
}

func TestCheckoutHandler_GetPurchase(t *testing.T) {
	router := setupCheckoutRouter(&MockCheckoutService{
		GetPurchaseFunc: func(ctx context.Context, id string) (*domain.Purchase, error) {
			if id != "pur-123" {
				return nil, domain.ErrPurchaseNotFound
			}
			return &domain.Purchase{
				ID:      "pur-123",
				EventID: "event-001",
				Tickets: []domain.Ticket{
					{Code: "T-001-0001", Type: "general"},
					{Code: "T-001-0002", Type: "general"},
				},
				Buyer:       domain.BuyerInfo{Name: "Ana", Email: "ana@example.com"},
				TotalPrice:  200,
				ConfirmedAt: time.Now(),
			}, nil
		},
	})

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/purchases/pur-123", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		resp := decodeResponse(t, w.Body)
		data, err := json.Marshal(resp.Data)
		if err != nil {
			t.Fatalf("failed to re-marshal data: %v", err)
		}
		var purchase dto.PurchaseResponse
		if err := json.Unmarshal(data, &purchase); err != nil {
			t.Fatalf("failed to decode purchase: %v", err)
		}
		if len(purchase.Tickets) != 2 {
			t.Errorf("expected 2 tickets, got %d", len(purchase.Tickets))
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/purchases/missing", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})
}
