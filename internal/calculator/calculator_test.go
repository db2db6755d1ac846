package calculator

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/travelboard/internal/models"
)

func cards(n int) []models.Card {
	out := make([]models.Card, n)
	for i := range out {
		out[i] = models.Card{ID: int64(i + 1)}
	}
	return out
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name  string
		lists []models.List
		want  int
	}{
		{
			name: "no lists",
			want: 0,
		},
		{
			name:  "lists without cards",
			lists: []models.List{{Title: "To Do"}, {Title: "Completed"}},
			want:  0,
		},
		{
			name: "one of three completed rounds to 33",
			lists: []models.List{
				{Title: "To Do", Cards: cards(2)},
				{Title: "Completed", Cards: cards(1)},
			},
			want: 33,
		},
		{
			name: "two of three rounds up to 67",
			lists: []models.List{
				{Title: "Planning", Cards: cards(1)},
				{Title: "completed bookings", Cards: cards(2)},
			},
			want: 67,
		},
		{
			name: "half rounds up",
			lists: []models.List{
				{Title: "Booked", Cards: cards(1)},
				{Title: "ALL COMPLETED", Cards: cards(1)},
			},
			want: 50,
		},
		{
			name:  "all completed",
			lists: []models.List{{Title: "Completed", Cards: cards(4)}},
			want:  100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &models.Board{Lists: tt.lists}
			if got := Progress(b); got != tt.want {
				t.Errorf("Progress() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTotalCardBudget(t *testing.T) {
	b := &models.Board{Lists: []models.List{
		{Cards: []models.Card{{Budget: decimal.RequireFromString("120.50")}, {}}},
		{Cards: []models.Card{{Budget: decimal.RequireFromString("79.50")}}},
	}}
	if got := TotalCardBudget(b); !got.Equal(decimal.NewFromInt(200)) {
		t.Errorf("TotalCardBudget() = %s, want 200", got)
	}
	if got := CardCount(b); got != 3 {
		t.Errorf("CardCount() = %d, want 3", got)
	}
}

func TestPerPersonCost(t *testing.T) {
	tests := []struct {
		budget string
		people int
		want   string
	}{
		{"100", 4, "25"},
		{"100", 3, "33.33"},
		{"80", 0, "80"},
		{"0", 2, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.budget, func(t *testing.T) {
			c := models.Card{Budget: decimal.RequireFromString(tt.budget), PeopleNumber: tt.people}
			if got := PerPersonCost(c); !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("PerPersonCost() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	expenses := []models.Expense{
		{Category: models.ExpenseTravel, Amount: decimal.RequireFromString("800.00")},
		{Category: models.ExpenseFood, Amount: decimal.RequireFromString("45.25")},
		{Category: models.ExpenseFood, Amount: decimal.RequireFromString("30.00")},
		{Category: models.ExpenseActivities, Amount: decimal.RequireFromString("120.00")},
	}

	t.Run("within budget", func(t *testing.T) {
		s := Summarize(decimal.RequireFromString("1500.00"), expenses)
		if !s.ActualSpendTotal.Equal(decimal.RequireFromString("995.25")) {
			t.Errorf("ActualSpendTotal = %s", s.ActualSpendTotal)
		}
		if !s.Remaining.Equal(decimal.RequireFromString("504.75")) {
			t.Errorf("Remaining = %s", s.Remaining)
		}
		want := []models.ExpenseCategory{models.ExpenseActivities, models.ExpenseFood, models.ExpenseTravel}
		if len(s.ByCategory) != len(want) {
			t.Fatalf("ByCategory = %+v", s.ByCategory)
		}
		for i, c := range want {
			if s.ByCategory[i].Category != c {
				t.Errorf("ByCategory[%d] = %s, want %s", i, s.ByCategory[i].Category, c)
			}
		}
		if !s.ByCategory[1].Total.Equal(decimal.RequireFromString("75.25")) {
			t.Errorf("food total = %s", s.ByCategory[1].Total)
		}
		if !OverBudget(s).IsZero() {
			t.Errorf("OverBudget = %s, want 0", OverBudget(s))
		}
	})

	t.Run("over budget clamps remaining", func(t *testing.T) {
		s := Summarize(decimal.RequireFromString("500"), expenses)
		if !s.Remaining.IsZero() {
			t.Errorf("Remaining = %s, want 0", s.Remaining)
		}
		if !OverBudget(s).Equal(decimal.RequireFromString("495.25")) {
			t.Errorf("OverBudget = %s", OverBudget(s))
		}
	})

	t.Run("no expenses", func(t *testing.T) {
		s := Summarize(decimal.NewFromInt(100), nil)
		if !s.ActualSpendTotal.IsZero() || !s.Remaining.Equal(decimal.NewFromInt(100)) {
			t.Errorf("summary = %+v", s)
		}
		if s.ByCategory == nil || len(s.ByCategory) != 0 {
			t.Errorf("ByCategory should be empty, got %v", s.ByCategory)
		}
	})
}
