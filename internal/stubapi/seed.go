package stubapi

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/travelboard/internal/models"
)

// Demo account created by Seed.
const (
	DemoEmail    = "demo@travelboard.local"
	DemoPassword = "wanderlust"
)

// Seed registers the demo account and gives it one trip board with a few
// lists and cards.
func (s *Server) Seed(ctx context.Context) (models.User, error) {
	user, err := s.authn.Register(ctx, models.RegisterRequest{
		Username:        "demo",
		Email:           DemoEmail,
		FullName:        "Demo Traveller",
		Password:        DemoPassword,
		PasswordConfirm: DemoPassword,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("registering demo user: %w", err)
	}

	board, err := s.store.createBoard(user.ID, models.BoardInput{
		Title:       models.Ptr("Lisbon in Spring"),
		Description: models.Ptr("Five days of tiles, trams and pastries"),
		Budget:      models.Ptr(decimal.NewFromInt(2000)),
		Currency:    models.Ptr("EUR"),
		StartDate:   models.Ptr("2027-04-10"),
		EndDate:     models.Ptr("2027-04-15"),
		Tags:        []string{"europe", "city"},
	})
	if err != nil {
		return models.User{}, fmt.Errorf("creating demo board: %w", err)
	}

	lists := []struct {
		title string
		cards []models.CardInput
	}{
		{"Ideas", []models.CardInput{
			{Title: models.Ptr("Sintra day trip"), Category: models.Ptr(models.CardActivity)},
			{Title: models.Ptr("Fado night in Alfama"), Category: models.Ptr(models.CardRomantic)},
		}},
		{"Booked", []models.CardInput{
			{Title: models.Ptr("Flight LIS"), Category: models.Ptr(models.CardFlight), Budget: models.Ptr(decimal.NewFromInt(320)), PeopleNumber: models.Ptr(2)},
			{Title: models.Ptr("Hotel Baixa"), Category: models.Ptr(models.CardHotel), Budget: models.Ptr(decimal.NewFromInt(600)), Location: &models.CardLocation{Name: "Baixa, Lisbon", Lat: 38.7107, Lng: -9.1366}},
		}},
		{"Done", nil},
	}
	for _, l := range lists {
		list, err := s.store.createList(board.ID, user.ID, models.ListInput{Title: models.Ptr(l.title)})
		if err != nil {
			return models.User{}, fmt.Errorf("creating demo list %q: %w", l.title, err)
		}
		for _, in := range l.cards {
			if _, err := s.store.createCard(board.ID, list.ID, user.ID, in); err != nil {
				return models.User{}, fmt.Errorf("creating demo card: %w", err)
			}
		}
	}

	s.logger.Info("Seeded demo data", "email", DemoEmail, "board_id", board.ID)
	return *user, nil
}
