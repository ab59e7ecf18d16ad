package domain

import "testing"

func TestIssueTickets(t *testing.T) {
	tickets := IssueTickets("evt-7f3", []ReservationItem{
		{Type: "general", Quantity: 2},
		{Type: "vip", Quantity: 1},
	})

	want := []Ticket{
		{Code: "T-7f3-0001", Type: "general"},
		{Code: "T-7f3-0002", Type: "general"},
		{Code: "T-7f3-0003", Type: "vip"},
	}
	if len(tickets) != len(want) {
		t.Fatalf("got %d tickets, want %d", len(tickets), len(want))
	}
	for i := range want {
		if tickets[i] != want[i] {
			t.Errorf("tickets[%d] = %+v, want %+v", i, tickets[i], want[i])
		}
	}
}

func TestIssueTickets_ShortEventID(t *testing.T) {
	tickets := IssueTickets("ab", []ReservationItem{{Type: "general", Quantity: 1}})
	if len(tickets) != 1 {
		t.Fatalf("got %d tickets, want 1", len(tickets))
	}
	if tickets[0].Code != "T-ab-0001" {
		t.Errorf("code = %q, want T-ab-0001", tickets[0].Code)
	}
}

func TestIssueTickets_SequenceCrossesItems(t *testing.T) {
	tickets := IssueTickets("event-001-xyz", []ReservationItem{
		{Type: "vip", Quantity: 3},
		{Type: "general", Quantity: 2},
	})

	codes := []string{"T-xyz-0001", "T-xyz-0002", "T-xyz-0003", "T-xyz-0004", "T-xyz-0005"}
	for i, code := range codes {
		if tickets[i].Code != code {
			t.Errorf("tickets[%d].Code = %q, want %q", i, tickets[i].Code, code)
		}
	}
	if tickets[2].Type != "vip" || tickets[3].Type != "general" {
		t.Error("ticket types do not follow item order")
	}
}

func TestIssueTickets_Empty(t *testing.T) {
	if tickets := IssueTickets("evt-001", nil); len(tickets) != 0 {
		t.Errorf("got %d tickets, want 0", len(tickets))
	}
}
