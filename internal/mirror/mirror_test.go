package mirror

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/travelboard/internal/apiclient"
	"github.com/mmynk/travelboard/internal/cache"
	"github.com/mmynk/travelboard/internal/models"
	"github.com/mmynk/travelboard/internal/service"
	"github.com/mmynk/travelboard/internal/storage/memory"
	"github.com/mmynk/travelboard/internal/stubapi"
	"github.com/mmynk/travelboard/internal/token"
	"github.com/mmynk/travelboard/pkg/logging"
)

func TestExpenseCategoryFor(t *testing.T) {
	tests := []struct {
		in   models.CardCategory
		want models.ExpenseCategory
	}{
		{"flight", models.ExpenseTravel},
		{"FLIGHT", models.ExpenseTravel},
		{"hotel", models.ExpenseLodging},
		{"food", models.ExpenseFood},
		{" Activity ", models.ExpenseActivities},
		{"romantic", models.ExpenseMisc},
		{"family", models.ExpenseMisc},
		{"spaceship", models.ExpenseMisc},
		{"", models.ExpenseMisc},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			if got := ExpenseCategoryFor(tt.in); got != tt.want {
				t.Errorf("ExpenseCategoryFor(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestShouldMirror(t *testing.T) {
	tests := []struct {
		name   string
		budget string
		cat    models.CardCategory
		want   bool
	}{
		{"budget and category", "120.50", "food", true},
		{"zero budget", "0", "food", false},
		{"no category", "120", "", false},
		{"unknown category still mirrors", "5", "romantic", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := models.Card{ID: 1, Budget: decimal.RequireFromString(tt.budget), Category: tt.cat}
			if got := ShouldMirror(card); got != tt.want {
				t.Errorf("ShouldMirror = %v, want %v", got, tt.want)
			}
		})
	}
}

// fakeBackend records expense and location writes in memory.
type fakeBackend struct {
	mu        sync.Mutex
	nextID    int64
	expenses  []models.Expense
	locations []models.Location
	created   int
	updated   int
	failList  error
}

func (f *fakeBackend) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeBackend) ListExpenses(_ context.Context, _ int64, _ models.ExpenseFilter) ([]models.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	return append([]models.Expense{}, f.expenses...), nil
}

func (f *fakeBackend) CreateExpense(_ context.Context, boardID int64, in models.ExpenseInput) (*models.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := models.Expense{ID: f.id(), Board: boardID, Title: *in.Title, Amount: *in.Amount, Category: *in.Category, Notes: *in.Notes}
	f.expenses = append(f.expenses, e)
	f.created++
	return &e, nil
}

func (f *fakeBackend) UpdateExpense(_ context.Context, _ int64, expenseID int64, in models.ExpenseInput) (*models.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.expenses {
		if f.expenses[i].ID == expenseID {
			f.expenses[i].Title = *in.Title
			f.expenses[i].Amount = *in.Amount
			f.expenses[i].Category = *in.Category
			f.updated++
			e := f.expenses[i]
			return &e, nil
		}
	}
	return nil, errors.New("no such expense")
}

func (f *fakeBackend) ListLocations(_ context.Context, _ int64) ([]models.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Location{}, f.locations...), nil
}

func (f *fakeBackend) CreateLocation(_ context.Context, boardID int64, in models.LocationInput) (*models.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := models.Location{ID: f.id(), Board: boardID, Name: *in.Name, Lat: *in.Lat, Lng: *in.Lng}
	f.locations = append(f.locations, l)
	return &l, nil
}

func (f *fakeBackend) UpdateLocation(_ context.Context, _ int64, locationID int64, in models.LocationInput) (*models.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.locations {
		if f.locations[i].ID == locationID {
			f.locations[i].Lat = *in.Lat
			f.locations[i].Lng = *in.Lng
			l := f.locations[i]
			return &l, nil
		}
	}
	return nil, errors.New("no such location")
}

func TestSyncCardUpsert(t *testing.T) {
	ctx := context.Background()
	card := models.Card{ID: 7, Title: "Dinner", Budget: decimal.RequireFromString("80"), Category: "food"}

	t.Run("creates then reuses by marker", func(t *testing.T) {
		backend := &fakeBackend{}
		m := New(backend, WithLogger(logging.Discard()))

		first, err := m.SyncCard(ctx, 1, card)
		if err != nil {
			t.Fatalf("SyncCard failed: %v", err)
		}
		if first.Notes != "From card ID 7" || first.Category != models.ExpenseFood {
			t.Errorf("expense = %+v", first)
		}

		card := card
		card.Budget = decimal.RequireFromString("95")
		second, err := m.SyncCard(ctx, 1, card)
		if err != nil {
			t.Fatalf("SyncCard failed: %v", err)
		}
		if second.ID != first.ID {
			t.Errorf("second sync wrote expense %d, want %d", second.ID, first.ID)
		}
		if backend.created != 1 || backend.updated != 1 {
			t.Errorf("created = %d, updated = %d", backend.created, backend.updated)
		}
		if !backend.expenses[0].Amount.Equal(decimal.RequireFromString("95")) {
			t.Errorf("amount = %s", backend.expenses[0].Amount)
		}
	})

	t.Run("expense id wins", func(t *testing.T) {
		backend := &fakeBackend{failList: errors.New("listing must not be needed")}
		backend.expenses = []models.Expense{{ID: 40, Notes: "manual"}}
		backend.nextID = 40
		m := New(backend, WithLogger(logging.Discard()))

		card := card
		card.ExpenseID = models.Ptr(int64(40))
		e, err := m.SyncCard(ctx, 1, card)
		if err != nil {
			t.Fatalf("SyncCard failed: %v", err)
		}
		if e.ID != 40 || backend.created != 0 {
			t.Errorf("expense = %+v, created = %d", e, backend.created)
		}
	})

	t.Run("skips cards without budget", func(t *testing.T) {
		backend := &fakeBackend{}
		reg := prometheus.NewRegistry()
		m := New(backend, WithLogger(logging.Discard()), WithRegisterer(reg))

		card := card
		card.Budget = decimal.Zero
		e, err := m.SyncCard(ctx, 1, card)
		if err != nil || e != nil {
			t.Errorf("SyncCard = %v, %v; want nil, nil", e, err)
		}
		if got := testutil.ToFloat64(m.syncs.WithLabelValues("skipped")); got != 1 {
			t.Errorf("skipped = %v, want 1", got)
		}
	})

	t.Run("list failure is reported", func(t *testing.T) {
		backend := &fakeBackend{failList: errors.New("boom")}
		m := New(backend, WithLogger(logging.Discard()))
		if _, err := m.SyncCard(ctx, 1, card); err == nil {
			t.Error("expected error")
		}
		if backend.created != 0 {
			t.Errorf("created = %d after failed lookup", backend.created)
		}
	})
}

func TestSyncLocation(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	m := New(backend, WithLogger(logging.Discard()))

	card := models.Card{ID: 3, Location: &models.CardLocation{Name: "Ubud", Lat: -8.5, Lng: 115.2}}
	if err := m.SyncLocation(ctx, 1, card); err != nil {
		t.Fatalf("SyncLocation failed: %v", err)
	}
	card.Location = &models.CardLocation{Name: "ubud", Lat: -8.51, Lng: 115.26}
	if err := m.SyncLocation(ctx, 1, card); err != nil {
		t.Fatalf("SyncLocation failed: %v", err)
	}
	if len(backend.locations) != 1 {
		t.Fatalf("locations = %+v, want one", backend.locations)
	}
	if backend.locations[0].Lat != -8.51 {
		t.Errorf("lat = %v, want moved", backend.locations[0].Lat)
	}

	card.Location = &models.CardLocation{Name: "Nowhere", Lat: 200}
	if err := m.SyncLocation(ctx, 1, card); err != nil {
		t.Fatalf("invalid coordinates should be skipped, got %v", err)
	}
	if len(backend.locations) != 1 {
		t.Errorf("invalid location was created")
	}
}

func TestCardSavedThroughService(t *testing.T) {
	t.Setenv(token.EnvOverride, "")
	server := httptest.NewServer(stubapi.New(stubapi.Config{BcryptCost: bcrypt.MinCost, Logger: logging.Discard()}))
	defer server.Close()

	ctx := context.Background()
	client := apiclient.New(server.URL, token.New(memory.New(), logging.Discard()), apiclient.WithLogger(logging.Discard()))
	if _, err := client.Register(ctx, models.RegisterRequest{
		Username: "ana", Email: "ana@example.com", Password: "password123", PasswordConfirm: "password123",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	svc := service.New(client, cache.New(), service.WithLogger(logging.Discard()))
	m := New(svc, WithLogger(logging.Discard()))
	svc.OnCardSaved(m)

	board, err := svc.CreateBoard(ctx, models.BoardInput{
		Title:  models.Ptr("Bali Trip"),
		Budget: models.Ptr(decimal.RequireFromString("1500.00")),
	})
	if err != nil {
		t.Fatalf("CreateBoard failed: %v", err)
	}
	list, err := svc.CreateList(ctx, board.ID, models.ListInput{Title: models.Ptr("Bookings")})
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}

	card, err := svc.CreateCard(ctx, board.ID, list.ID, models.CardInput{
		Title:    models.Ptr("Flight to Denpasar"),
		Budget:   models.Ptr(decimal.RequireFromString("650")),
		Category: models.Ptr(models.CardFlight),
		Location: &models.CardLocation{Name: "Denpasar", Lat: -8.65, Lng: 115.22},
	})
	if err != nil {
		t.Fatalf("CreateCard failed: %v", err)
	}
	m.Wait()

	expenses, err := svc.ListExpenses(ctx, board.ID, models.ExpenseFilter{})
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("got %d expenses, want 1", len(expenses))
	}
	if expenses[0].Category != models.ExpenseTravel || expenses[0].Notes != Marker(card.ID) {
		t.Errorf("expense = %+v", expenses[0])
	}

	locations, err := svc.ListLocations(ctx, board.ID)
	if err != nil {
		t.Fatalf("ListLocations failed: %v", err)
	}
	if len(locations) != 1 || locations[0].Name != "Denpasar" {
		t.Errorf("locations = %+v", locations)
	}

	// The update answer carries the expense id the server linked, so the
	// second sync updates in place.
	updated, err := svc.UpdateCard(ctx, board.ID, list.ID, card.ID, models.CardInput{
		Budget: models.Ptr(decimal.RequireFromString("700")),
	})
	if err != nil {
		t.Fatalf("UpdateCard failed: %v", err)
	}
	if updated.ExpenseID == nil || *updated.ExpenseID != expenses[0].ID {
		t.Errorf("card expense_id = %v, want %d", updated.ExpenseID, expenses[0].ID)
	}
	m.Wait()

	expenses, err = svc.ListExpenses(ctx, board.ID, models.ExpenseFilter{})
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(expenses) != 1 || !expenses[0].Amount.Equal(decimal.RequireFromString("700")) {
		t.Errorf("expenses = %+v", expenses)
	}

	sum, err := svc.BudgetSummary(ctx, board.ID)
	if err != nil {
		t.Fatalf("BudgetSummary failed: %v", err)
	}
	if !sum.Remaining.Equal(decimal.RequireFromString("800")) {
		t.Errorf("remaining = %s, want 800", sum.Remaining)
	}
}

func TestCardSavedFailureIsLoggedNotReturned(t *testing.T) {
	t.Setenv(token.EnvOverride, "")
	server := httptest.NewServer(stubapi.New(stubapi.Config{BcryptCost: bcrypt.MinCost, Logger: logging.Discard()}))
	defer server.Close()

	ctx := context.Background()
	client := apiclient.New(server.URL, token.New(memory.New(), logging.Discard()), apiclient.WithLogger(logging.Discard()))
	if _, err := client.Register(ctx, models.RegisterRequest{
		Username: "rui", Email: "rui@example.com", Password: "password123", PasswordConfirm: "password123",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	svc := service.New(client, cache.New(), service.WithLogger(logging.Discard()))

	var logs bytes.Buffer
	reg := prometheus.NewRegistry()
	m := New(&fakeBackend{failList: errors.New("boom")},
		WithLogger(logging.New(&logs, slog.LevelError)),
		WithRegisterer(reg))
	svc.OnCardSaved(m)

	board, err := svc.CreateBoard(ctx, models.BoardInput{Title: models.Ptr("Porto")})
	if err != nil {
		t.Fatalf("CreateBoard failed: %v", err)
	}
	list, err := svc.CreateList(ctx, board.ID, models.ListInput{Title: models.Ptr("Ideas")})
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}

	card, err := svc.CreateCard(ctx, board.ID, list.ID, models.CardInput{
		Title:    models.Ptr("Port cellar tour"),
		Budget:   models.Ptr(decimal.RequireFromString("45")),
		Category: models.Ptr(models.CardActivity),
	})
	if err != nil {
		t.Fatalf("CreateCard returned the mirror failure: %v", err)
	}
	if card == nil || card.ID == 0 || card.Title != "Port cellar tour" {
		t.Fatalf("card = %+v", card)
	}
	m.Wait()

	out := logs.String()
	if !strings.Contains(out, "Failed to mirror card expense") || !strings.Contains(out, "boom") {
		t.Errorf("log = %q, want the mirror failure", out)
	}
	if got := testutil.ToFloat64(m.syncs.WithLabelValues("error")); got != 1 {
		t.Errorf("error syncs = %v, want 1", got)
	}
}
