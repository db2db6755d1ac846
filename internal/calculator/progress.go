package calculator

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/travelboard/internal/models"
)

// CardCount returns the number of cards across all lists of a board.
func CardCount(board *models.Board) int {
	n := 0
	for _, l := range board.Lists {
		n += len(l.Cards)
	}
	return n
}

// Progress computes the share of a board's cards that sit in a "completed"
// list, as a whole percentage.
// A list counts as completed when its title contains "completed" in any case.
// Boards without cards report 0.
func Progress(board *models.Board) int {
	total := CardCount(board)
	if total == 0 {
		return 0
	}

	done := 0
	for _, l := range board.Lists {
		if strings.Contains(strings.ToLower(l.Title), "completed") {
			done += len(l.Cards)
		}
	}
	return int(math.Floor(float64(done)*100/float64(total) + 0.5))
}

// TotalCardBudget sums the budgets of every card on a board.
func TotalCardBudget(board *models.Board) decimal.Decimal {
	total := decimal.Zero
	for _, l := range board.Lists {
		for _, c := range l.Cards {
			total = total.Add(c.Budget)
		}
	}
	return total
}

// PerPersonCost splits a card's budget evenly across its people, rounded to
// cents. Cards without a people count are treated as one person.
func PerPersonCost(card models.Card) decimal.Decimal {
	people := card.PeopleNumber
	if people < 1 {
		people = 1
	}
	return card.Budget.Div(decimal.NewFromInt(int64(people))).Round(2)
}
