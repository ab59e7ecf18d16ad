package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Awerito/ulatickets-api/internal/domain"
	"github.com/Awerito/ulatickets-api/internal/dto"
)

func TestReservationService_CreateReservation(t *testing.T) {
	tests := []struct {
		name       string
		req        *dto.CreateReservationRequest
		setupMocks func(er *MockEventRepository, rr *MockReservationRepository)
		wantErr    error
		check      func(t *testing.T, resp *dto.CreateReservationResponse)
	}{
		{
			name: "successful reservation",
			req: &dto.CreateReservationRequest{
				EventID: "event-001",
				Items: []dto.ReservationItemInput{
					{Type: "general", Quantity: 2},
					{Type: "vip", Quantity: 1},
				},
			},
			setupMocks: func(er *MockEventRepository, rr *MockReservationRepository) {
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					return testEvent(), nil
				}
			},
			check: func(t *testing.T, resp *dto.CreateReservationResponse) {
				if resp.TotalPrice != 450 {
					t.Errorf("TotalPrice = %v, want 450", resp.TotalPrice)
				}
				if resp.Status != "PENDING" {
					t.Errorf("Status = %q, want PENDING", resp.Status)
				}
				if resp.ReservationID == "" {
					t.Error("ReservationID is empty")
				}
			},
		},
		{
			name: "event not found",
			req: &dto.CreateReservationRequest{
				EventID: "missing",
				Items:   []dto.ReservationItemInput{{Type: "general", Quantity: 1}},
			},
			setupMocks: func(er *MockEventRepository, rr *MockReservationRepository) {
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					return nil, domain.ErrEventNotFound
				}
			},
			wantErr: domain.ErrEventNotFound,
		},
		{
			name: "empty items",
			req: &dto.CreateReservationRequest{
				EventID: "event-001",
				Items:   []dto.ReservationItemInput{},
			},
			setupMocks: func(er *MockEventRepository, rr *MockReservationRepository) {},
			wantErr:    domain.ErrInvalidRequest,
		},
		{
			name: "zero quantity",
			req: &dto.CreateReservationRequest{
				EventID: "event-001",
				Items:   []dto.ReservationItemInput{{Type: "general", Quantity: 0}},
			},
			setupMocks: func(er *MockEventRepository, rr *MockReservationRepository) {},
			wantErr:    domain.ErrInvalidQuantity,
		},
		{
			name: "unknown ticket type",
			req: &dto.CreateReservationRequest{
				EventID: "event-001",
				Items:   []dto.ReservationItemInput{{Type: "platinum", Quantity: 1}},
			},
			setupMocks: func(er *MockEventRepository, rr *MockReservationRepository) {
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					return testEvent(), nil
				}
			},
			wantErr: domain.ErrUnknownTicketType,
		},
		{
			name: "insufficient stock",
			req: &dto.CreateReservationRequest{
				EventID: "event-001",
				Items:   []dto.ReservationItemInput{{Type: "vip", Quantity: 100}},
			},
			setupMocks: func(er *MockEventRepository, rr *MockReservationRepository) {
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					return testEvent(), nil
				}
				er.ReserveStockFunc = func(ctx context.Context, eventID string, items []domain.ReservationItem) error {
					return domain.ErrInsufficientStock
				}
			},
			wantErr: domain.ErrInsufficientStock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eventRepo := &MockEventRepository{}
			reservationRepo := &MockReservationRepository{}
			tt.setupMocks(eventRepo, reservationRepo)

			svc := NewReservationService(eventRepo, reservationRepo, nil, fastRetryConfig())

			resp, err := svc.CreateReservation(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateReservation() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateReservation() unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}
}

func TestReservationService_CreateReservation_AllOrNothing(t *testing.T) {
	// A partial failure in the decrement must leave nothing reserved.
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Event, error) {
			return testEvent(), nil
		},
		ReserveStockFunc: func(ctx context.Context, eventID string, items []domain.ReservationItem) error {
			// Second item has no stock; the repository reports the
			// conflict without applying the first decrement.
			return domain.ErrInsufficientStock
		},
	}
	created := false
	reservationRepo := &MockReservationRepository{
		CreateFunc: func(ctx context.Context, r *domain.Reservation) error {
			created = true
			return nil
		},
	}

	svc := NewReservationService(eventRepo, reservationRepo, nil, fastRetryConfig())
	_, err := svc.CreateReservation(context.Background(), &dto.CreateReservationRequest{
		EventID: "event-001",
		Items: []dto.ReservationItemInput{
			{Type: "general", Quantity: 1},
			{Type: "vip", Quantity: 100},
		},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("error = %v, want ErrInsufficientStock", err)
	}
	if created {
		t.Error("reservation was persisted despite failed stock decrement")
	}
}

func TestReservationService_CreateReservation_RetriesTransient(t *testing.T) {
	attempts := 0
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Event, error) {
			return testEvent(), nil
		},
		ReserveStockFunc: func(ctx context.Context, eventID string, items []domain.ReservationItem) error {
			attempts++
			if attempts < 3 {
				return errors.New("deadlock detected")
			}
			return nil
		},
	}
	reservationRepo := &MockReservationRepository{}

	svc := NewReservationService(eventRepo, reservationRepo, nil, fastRetryConfig())
	resp, err := svc.CreateReservation(context.Background(), &dto.CreateReservationRequest{
		EventID: "event-001",
		Items:   []dto.ReservationItemInput{{Type: "general", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if resp.TotalPrice != 100 {
		t.Errorf("TotalPrice = %v, want 100", resp.TotalPrice)
	}
}

func TestReservationService_CreateReservation_SurfacesContention(t *testing.T) {
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Event, error) {
			return testEvent(), nil
		},
		ReserveStockFunc: func(ctx context.Context, eventID string, items []domain.ReservationItem) error {
			return errors.New("deadlock detected")
		},
	}

	svc := NewReservationService(eventRepo, &MockReservationRepository{}, nil, fastRetryConfig())
	_, err := svc.CreateReservation(context.Background(), &dto.CreateReservationRequest{
		EventID: "event-001",
		Items:   []dto.ReservationItemInput{{Type: "general", Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrStorageContention) {
		t.Fatalf("error = %v, want ErrStorageContention", err)
	}
}

func TestReservationService_CreateReservation_CompensatesOnPersistFailure(t *testing.T) {
	restored := map[string]int{}
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Event, error) {
			return testEvent(), nil
		},
		RestoreStockFunc: func(ctx context.Context, eventID string, perType map[string]int) (bool, error) {
			restored = perType
			return true, nil
		},
	}
	reservationRepo := &MockReservationRepository{
		CreateFunc: func(ctx context.Context, r *domain.Reservation) error {
			return errors.New("write failed")
		},
	}

	svc := NewReservationService(eventRepo, reservationRepo, nil, fastRetryConfig())
	_, err := svc.CreateReservation(context.Background(), &dto.CreateReservationRequest{
		EventID: "event-001",
		Items:   []dto.ReservationItemInput{{Type: "general", Quantity: 3}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if restored["general"] != 3 {
		t.Errorf("restored = %v, want general=3", restored)
	}
}

func TestReservationService_GetReservation(t *testing.T) {
	now := time.Now()

	t.Run("live reservation is returned unchanged", func(t *testing.T) {
		reservationRepo := &MockReservationRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*domain.Reservation, error) {
				return &domain.Reservation{
					ID:        id,
					EventID:   "event-001",
					Status:    domain.ReservationStatusPending,
					ExpiresAt: now.Add(time.Minute),
				}, nil
			},
		}
		svc := NewReservationService(&MockEventRepository{}, reservationRepo, nil, nil)
		svc.(*reservationService).now = func() time.Time { return now }

		reservation, err := svc.GetReservation(context.Background(), "res-001")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reservation.Status != domain.ReservationStatusPending {
			t.Errorf("Status = %v, want PENDING", reservation.Status)
		}
	})

	t.Run("overdue reservation is expired and stock restored", func(t *testing.T) {
		casCalls := 0
		restored := map[string]int{}
		reservationRepo := &MockReservationRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*domain.Reservation, error) {
				return &domain.Reservation{
					ID:        id,
					EventID:   "event-001",
					Items:     []domain.ReservationItem{{Type: "general", Quantity: 2}},
					Status:    domain.ReservationStatusPending,
					ExpiresAt: now.Add(-time.Minute),
				}, nil
			},
			CompareAndSetStatusFunc: func(ctx context.Context, id string, expected, next domain.ReservationStatus) (bool, error) {
				casCalls++
				if expected != domain.ReservationStatusPending || next != domain.ReservationStatusExpired {
					t.Errorf("CAS %v -> %v, want PENDING -> EXPIRED", expected, next)
				}
				return true, nil
			},
		}
		eventRepo := &MockEventRepository{
			RestoreStockFunc: func(ctx context.Context, eventID string, perType map[string]int) (bool, error) {
				restored = perType
				return true, nil
			},
		}
		svc := NewReservationService(eventRepo, reservationRepo, nil, nil)
		svc.(*reservationService).now = func() time.Time { return now }

		reservation, err := svc.GetReservation(context.Background(), "res-001")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reservation.Status != domain.ReservationStatusExpired {
			t.Errorf("Status = %v, want EXPIRED", reservation.Status)
		}
		if casCalls != 1 {
			t.Errorf("CAS calls = %d, want 1", casCalls)
		}
		if restored["general"] != 2 {
			t.Errorf("restored = %v, want general=2", restored)
		}
	})

	t.Run("losing the expiry race does not restore stock", func(t *testing.T) {
		calls := 0
		reservationRepo := &MockReservationRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*domain.Reservation, error) {
				calls++
				status := domain.ReservationStatusPending
				if calls > 1 {
					// A concurrent checkout confirmed it between
					// our read and our CAS.
					status = domain.ReservationStatusConfirmed
				}
				return &domain.Reservation{
					ID:        id,
					EventID:   "event-001",
					Items:     []domain.ReservationItem{{Type: "general", Quantity: 2}},
					Status:    status,
					ExpiresAt: now.Add(-time.Minute),
				}, nil
			},
			CompareAndSetStatusFunc: func(ctx context.Context, id string, expected, next domain.ReservationStatus) (bool, error) {
				return false, nil
			},
		}
		restoreCalled := false
		eventRepo := &MockEventRepository{
			RestoreStockFunc: func(ctx context.Context, eventID string, perType map[string]int) (bool, error) {
				restoreCalled = true
				return true, nil
			},
		}
		svc := NewReservationService(eventRepo, reservationRepo, nil, nil)
		svc.(*reservationService).now = func() time.Time { return now }

		reservation, err := svc.GetReservation(context.Background(), "res-001")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if restoreCalled {
			t.Error("stock restored by CAS loser")
		}
		if reservation.Status != domain.ReservationStatusConfirmed {
			t.Errorf("Status = %v, want CONFIRMED", reservation.Status)
		}
	})
}

func TestReservationService_CancelReservation(t *testing.T) {
	tests := []struct {
		name          string
		deletedStatus domain.ReservationStatus
		wantRestore   bool
	}{
		{"pending hold restores stock", domain.ReservationStatusPending, true},
		{"expired hold does not restore again", domain.ReservationStatusExpired, false},
		{"confirmed hold keeps the sale", domain.ReservationStatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reservationRepo := &MockReservationRepository{
				GetByIDFunc: func(ctx context.Context, id string) (*domain.Reservation, error) {
					return &domain.Reservation{
						ID:      id,
						EventID: "event-001",
						Items:   []domain.ReservationItem{{Type: "general", Quantity: 2}},
						Status:  tt.deletedStatus,
					}, nil
				},
				DeleteFunc: func(ctx context.Context, id string) (domain.ReservationStatus, error) {
					return tt.deletedStatus, nil
				},
			}
			restoreCalled := false
			eventRepo := &MockEventRepository{
				RestoreStockFunc: func(ctx context.Context, eventID string, perType map[string]int) (bool, error) {
					restoreCalled = true
					return true, nil
				},
			}

			svc := NewReservationService(eventRepo, reservationRepo, nil, nil)
			if err := svc.CancelReservation(context.Background(), "res-001"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if restoreCalled != tt.wantRestore {
				t.Errorf("restoreCalled = %v, want %v", restoreCalled, tt.wantRestore)
			}
		})
	}

	t.Run("missing reservation", func(t *testing.T) {
		svc := NewReservationService(&MockEventRepository{}, &MockReservationRepository{}, nil, nil)
		err := svc.CancelReservation(context.Background(), "missing")
		if !errors.Is(err, domain.ErrReservationNotFound) {
			t.Fatalf("error = %v, want ErrReservationNotFound", err)
		}
	})
}

func TestReservationService_SweepExpired(t *testing.T) {
	now := time.Now()

	overdue := func(id, eventID string, items ...domain.ReservationItem) *domain.Reservation {
		return &domain.Reservation{
			ID:        id,
			EventID:   eventID,
			Items:     items,
			Status:    domain.ReservationStatusPending,
			ExpiresAt: now.Add(-time.Minute),
		}
	}

	t.Run("aggregates restores to one write per event", func(t *testing.T) {
		reservationRepo := &MockReservationRepository{
			FindExpiredFunc: func(ctx context.Context, at time.Time, limit int) ([]*domain.Reservation, error) {
				return []*domain.Reservation{
					overdue("res-1", "event-A", domain.ReservationItem{Type: "general", Quantity: 2}),
					overdue("res-2", "event-A", domain.ReservationItem{Type: "general", Quantity: 1}, domain.ReservationItem{Type: "vip", Quantity: 1}),
					overdue("res-3", "event-B", domain.ReservationItem{Type: "general", Quantity: 4}),
				}, nil
			},
		}
		restores := map[string]map[string]int{}
		eventRepo := &MockEventRepository{
			RestoreStockFunc: func(ctx context.Context, eventID string, perType map[string]int) (bool, error) {
				restores[eventID] = perType
				return true, nil
			},
		}

		svc := NewReservationService(eventRepo, reservationRepo, nil, nil)
		svc.(*reservationService).now = func() time.Time { return now }

		summary, err := svc.SweepExpired(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Reservations != 3 {
			t.Errorf("Reservations = %d, want 3", summary.Reservations)
		}
		if summary.EventsUpdated != 2 {
			t.Errorf("EventsUpdated = %d, want 2", summary.EventsUpdated)
		}
		if len(restores) != 2 {
			t.Fatalf("restore writes = %d, want 2", len(restores))
		}
		if restores["event-A"]["general"] != 3 || restores["event-A"]["vip"] != 1 {
			t.Errorf("event-A restores = %v", restores["event-A"])
		}
		if restores["event-B"]["general"] != 4 {
			t.Errorf("event-B restores = %v", restores["event-B"])
		}
	})

	t.Run("CAS losers are not restored", func(t *testing.T) {
		reservationRepo := &MockReservationRepository{
			FindExpiredFunc: func(ctx context.Context, at time.Time, limit int) ([]*domain.Reservation, error) {
				return []*domain.Reservation{
					overdue("res-won", "event-A", domain.ReservationItem{Type: "general", Quantity: 2}),
					overdue("res-lost", "event-A", domain.ReservationItem{Type: "general", Quantity: 5}),
				}, nil
			},
			CompareAndSetStatusFunc: func(ctx context.Context, id string, expected, next domain.ReservationStatus) (bool, error) {
				return id == "res-won", nil
			},
		}
		var restored map[string]int
		eventRepo := &MockEventRepository{
			RestoreStockFunc: func(ctx context.Context, eventID string, perType map[string]int) (bool, error) {
				restored = perType
				return true, nil
			},
		}

		svc := NewReservationService(eventRepo, reservationRepo, nil, nil)
		summary, err := svc.SweepExpired(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Reservations != 1 {
			t.Errorf("Reservations = %d, want 1", summary.Reservations)
		}
		if restored["general"] != 2 {
			t.Errorf("restored = %v, want general=2", restored)
		}
	})

	t.Run("missing event is skipped without failing the sweep", func(t *testing.T) {
		reservationRepo := &MockReservationRepository{
			FindExpiredFunc: func(ctx context.Context, at time.Time, limit int) ([]*domain.Reservation, error) {
				return []*domain.Reservation{
					overdue("res-1", "event-gone", domain.ReservationItem{Type: "general", Quantity: 2}),
					overdue("res-2", "event-A", domain.ReservationItem{Type: "general", Quantity: 1}),
				}, nil
			},
		}
		eventRepo := &MockEventRepository{
			RestoreStockFunc: func(ctx context.Context, eventID string, perType map[string]int) (bool, error) {
				return eventID != "event-gone", nil
			},
		}

		svc := NewReservationService(eventRepo, reservationRepo, nil, nil)
		summary, err := svc.SweepExpired(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Reservations != 2 {
			t.Errorf("Reservations = %d, want 2", summary.Reservations)
		}
		if summary.EventsUpdated != 1 {
			t.Errorf("EventsUpdated = %d, want 1", summary.EventsUpdated)
		}
	})

	t.Run("empty sweep reports zeros", func(t *testing.T) {
		svc := NewReservationService(&MockEventRepository{}, &MockReservationRepository{}, nil, nil)
		summary, err := svc.SweepExpired(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Reservations != 0 || summary.EventsUpdated != 0 {
			t.Errorf("summary = %+v, want zeros", summary)
		}
	})
}
