package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPageUnmarshal(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantIDs   []int64
	}{
		{"bare array", `[{"id":1},{"id":2}]`, 2, []int64{1, 2}},
		{"envelope", `{"count":3,"next":null,"previous":null,"results":[{"id":7}]}`, 3, []int64{7}},
		{"envelope without results", `{"count":0}`, 0, nil},
		{"null", `null`, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Page[Expense]
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if p.Count != tt.wantCount {
				t.Errorf("Count = %d, want %d", p.Count, tt.wantCount)
			}
			if p.Items() == nil {
				t.Fatal("Items() returned nil")
			}
			if len(p.Items()) != len(tt.wantIDs) {
				t.Fatalf("got %d items, want %d", len(p.Items()), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if p.Results[i].ID != id {
					t.Errorf("item %d id = %d, want %d", i, p.Results[i].ID, id)
				}
			}
		})
	}
}

func TestPageValidate(t *testing.T) {
	var p Page[Expense]
	if err := json.Unmarshal([]byte(`[{"id":1,"category":"food"},{"id":2,"category":"yachts"}]`), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if err := p.Validate(); err == nil {
		t.Error("expected validation error for unknown category")
	}
}

func TestBoardDecodeMoney(t *testing.T) {
	body := `{"id":4,"title":"Bali Trip","budget":"1500.00","currency":"USD","status":"planning",
		"lists":[{"id":9,"board":4,"title":"Ideas","position":2,"cards":[{"id":1,"budget":"12.50","position":1},{"id":2,"budget":null,"position":0}]},
		         {"id":8,"board":4,"title":"Booked","position":1,"cards":[]}]}`

	var b Board
	if err := json.Unmarshal([]byte(body), &b); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !b.Budget.Equal(decimal.RequireFromString("1500")) {
		t.Errorf("Budget = %s, want 1500", b.Budget)
	}

	lists := b.SortedLists()
	if lists[0].ID != 8 || lists[1].ID != 9 {
		t.Errorf("lists not sorted by position: %d, %d", lists[0].ID, lists[1].ID)
	}
	if lists[1].Cards[0].ID != 2 {
		t.Errorf("cards not sorted by position: first is %d", lists[1].Cards[0].ID)
	}
	if !lists[1].Cards[0].Budget.IsZero() {
		t.Errorf("null budget should decode as zero, got %s", lists[1].Cards[0].Budget)
	}

	// SortedLists must not reorder the original.
	if b.Lists[0].ID != 9 {
		t.Error("SortedLists mutated the board")
	}
}

func TestBoardValidate(t *testing.T) {
	tests := []struct {
		name    string
		board   Board
		wantErr bool
	}{
		{"ok", Board{ID: 1, Status: BoardActive, Currency: "EUR"}, false},
		{"missing id", Board{}, true},
		{"bad status", Board{ID: 1, Status: "archived"}, true},
		{"bad currency", Board{ID: 1, Currency: "euro"}, true},
		{"foreign list", Board{ID: 1, Lists: []List{{ID: 3, Board: 2}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.board.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMoveCardInputOmitsListWhenUnset(t *testing.T) {
	data, err := json.Marshal(MoveCardInput{NewPosition: 3})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"new_position":3}` {
		t.Errorf("got %s", data)
	}

	data, _ = json.Marshal(MoveCardInput{NewListID: Ptr[int64](5), NewPosition: 0})
	if string(data) != `{"new_list_id":5,"new_position":0}` {
		t.Errorf("got %s", data)
	}
}

func TestExpenseFilterQuery(t *testing.T) {
	f := ExpenseFilter{Category: ExpenseFood, DateFrom: "2025-01-01"}
	if got := f.Query().Encode(); got != "category=food&date_from=2025-01-01" {
		t.Errorf("Query() = %q", got)
	}
	if !(ExpenseFilter{}).IsZero() {
		t.Error("zero filter should report IsZero")
	}
}
