package dto

import (
	"testing"
	"time"

	"github.com/Awerito/ulatickets-api/internal/domain"
)

func TestCreateReservationRequest_DomainItems(t *testing.T) {
	req := &CreateReservationRequest{
		EventID: "event-001",
		Items: []ReservationItemInput{
			{Type: "general", Quantity: 2},
			{Type: "vip", Quantity: 1},
		},
	}

	items := req.DomainItems()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Type != "general" || items[0].Quantity != 2 {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if items[1].Type != "vip" || items[1].Quantity != 1 {
		t.Errorf("unexpected second item: %+v", items[1])
	}
}

func TestCreateEventRequest_ToDomain(t *testing.T) {
	date := time.Date(2026, 10, 1, 20, 0, 0, 0, time.UTC)
	req := &CreateEventRequest{
		Name:     "Test Concert",
		Category: "music",
		Date:     date,
		Location: "Test Arena",
		Tickets: []TicketTypeInput{
			{Type: "general", Price: 100, Available: 50},
		},
	}

	event := req.ToDomain()
	if event.ID != "" {
		t.Errorf("expected empty ID, got %q", event.ID)
	}
	if event.Name != "Test Concert" || event.Category != "music" {
		t.Errorf("unexpected event fields: %+v", event)
	}
	if !event.Date.Equal(date) {
		t.Errorf("expected date %v, got %v", date, event.Date)
	}
	if len(event.Tickets) != 1 || event.Tickets[0].Available != 50 {
		t.Errorf("unexpected tickets: %+v", event.Tickets)
	}
}

func TestReservationFromDomain(t *testing.T) {
	now := time.Now()
	reservation := &domain.Reservation{
		ID:         "res-001",
		EventID:    "event-001",
		Items:      []domain.ReservationItem{{Type: "general", Quantity: 2}},
		TotalPrice: 200,
		Status:     domain.ReservationStatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(2 * time.Minute),
	}

	resp := ReservationFromDomain(reservation)
	if resp.ID != "res-001" || resp.EventID != "event-001" {
		t.Errorf("unexpected identifiers: %+v", resp)
	}
	if resp.Status != "PENDING" {
		t.Errorf("expected status PENDING, got %q", resp.Status)
	}
	if resp.TotalPrice != 200 {
		t.Errorf("expected total 200, got %v", resp.TotalPrice)
	}
	if !resp.ExpiresAt.Equal(reservation.ExpiresAt) {
		t.Errorf("expected expires_at %v, got %v", reservation.ExpiresAt, resp.ExpiresAt)
	}
}

func TestPurchaseFromDomain(t *testing.T) {
	now := time.Now()
	purchase := &domain.Purchase{
		ID:            "pur-001",
		ReservationID: "res-001",
		EventID:       "event-001",
		Tickets: []domain.Ticket{
			{Code: "T-001-0001", Type: "general"},
			{Code: "T-001-0002", Type: "general"},
		},
		Buyer:       domain.BuyerInfo{Name: "Ana", Email: "ana@example.com"},
		TotalPrice:  200,
		ConfirmedAt: now,
	}

	resp := PurchaseFromDomain(purchase)
	if resp.ID != "pur-001" || resp.ReservationID != "res-001" {
		t.Errorf("unexpected identifiers: %+v", resp)
	}
	if len(resp.Tickets) != 2 || resp.Tickets[0].Code != "T-001-0001" {
		t.Errorf("unexpected tickets: %+v", resp.Tickets)
	}
	if resp.Buyer.Email != "ana@example.com" {
		t.Errorf("unexpected buyer: %+v", resp.Buyer)
	}
}
