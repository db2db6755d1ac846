// Package mirror keeps a budget expense in step with every card that carries
// a positive budget and a category.
//
// The mirror runs after a card mutation has succeeded. It is an upsert: the
// card's expense_id, when the server recorded one, names the expense to
// update; otherwise an expense whose notes carry the card's marker is reused;
// otherwise a new expense is created. Failures never reach the card
// mutation's caller, they are logged.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/travelboard/internal/models"
)

// DefaultTimeout bounds one asynchronous sync.
const DefaultTimeout = 30 * time.Second

// Backend is the subset of the service layer the mirror writes through.
type Backend interface {
	ListExpenses(ctx context.Context, boardID int64, filter models.ExpenseFilter) ([]models.Expense, error)
	CreateExpense(ctx context.Context, boardID int64, in models.ExpenseInput) (*models.Expense, error)
	UpdateExpense(ctx context.Context, boardID, expenseID int64, in models.ExpenseInput) (*models.Expense, error)
	ListLocations(ctx context.Context, boardID int64) ([]models.Location, error)
	CreateLocation(ctx context.Context, boardID int64, in models.LocationInput) (*models.Location, error)
	UpdateLocation(ctx context.Context, boardID, locationID int64, in models.LocationInput) (*models.Location, error)
}

var categories = map[models.CardCategory]models.ExpenseCategory{
	models.CardFlight:   models.ExpenseTravel,
	models.CardHotel:    models.ExpenseLodging,
	models.CardFood:     models.ExpenseFood,
	models.CardActivity: models.ExpenseActivities,
}

// ExpenseCategoryFor maps a card category onto an expense category. Unknown
// and empty categories land in misc.
func ExpenseCategoryFor(c models.CardCategory) models.ExpenseCategory {
	if ec, ok := categories[c.Normalize()]; ok {
		return ec
	}
	return models.ExpenseMisc
}

// ShouldMirror reports whether a card needs an expense.
func ShouldMirror(card models.Card) bool {
	return card.Budget.IsPositive() && card.Category.Normalize() != ""
}

// Marker is the notes text tying an expense to its card.
func Marker(cardID int64) string {
	return fmt.Sprintf("From card ID %d", cardID)
}

// ExpenseInput is the expense payload mirrored from card.
func ExpenseInput(card models.Card) models.ExpenseInput {
	return models.ExpenseInput{
		Title:    models.Ptr(card.Title),
		Amount:   models.Ptr(card.Budget),
		Category: models.Ptr(ExpenseCategoryFor(card.Category)),
		Notes:    models.Ptr(Marker(card.ID)),
	}
}

// Mirror reacts to saved cards. It satisfies service.CardEffect.
type Mirror struct {
	backend Backend
	logger  *slog.Logger
	timeout time.Duration
	syncs   *prometheus.CounterVec
	wg      sync.WaitGroup
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithLogger sets the logger failures are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mirror) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTimeout bounds each asynchronous sync.
func WithTimeout(d time.Duration) Option {
	return func(m *Mirror) { m.timeout = d }
}

// WithRegisterer registers the sync counter with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Mirror) { reg.MustRegister(m.syncs) }
}

// New creates a mirror writing through backend.
func New(backend Backend, opts ...Option) *Mirror {
	m := &Mirror{
		backend: backend,
		logger:  slog.Default(),
		timeout: DefaultTimeout,
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travelboard",
			Subsystem: "mirror",
			Name:      "syncs_total",
			Help:      "Card to expense syncs by outcome.",
		}, []string{"outcome"}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CardSaved starts a sync of card in the background and returns at once.
// The sync outlives ctx's cancellation but not the mirror timeout.
func (m *Mirror) CardSaved(ctx context.Context, boardID int64, card models.Card) {
	if !ShouldMirror(card) && !hasLocation(card) {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()

		if _, err := m.SyncCard(ctx, boardID, card); err != nil {
			m.logger.Error("Failed to mirror card expense", "board_id", boardID, "card_id", card.ID, "error", err)
		}
		if err := m.SyncLocation(ctx, boardID, card); err != nil {
			m.logger.Error("Failed to sync card location", "board_id", boardID, "card_id", card.ID, "error", err)
		}
	}()
}

// Wait blocks until every background sync has finished.
func (m *Mirror) Wait() {
	m.wg.Wait()
}

// SyncCard upserts the expense mirrored from card. It returns nil without
// error when the card does not qualify.
func (m *Mirror) SyncCard(ctx context.Context, boardID int64, card models.Card) (*models.Expense, error) {
	if !ShouldMirror(card) {
		m.syncs.WithLabelValues("skipped").Inc()
		return nil, nil
	}
	in := ExpenseInput(card)

	expenseID, err := m.findExpense(ctx, boardID, card)
	if err != nil {
		m.syncs.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("finding expense of card %d: %w", card.ID, err)
	}

	if expenseID != 0 {
		e, err := m.backend.UpdateExpense(ctx, boardID, expenseID, in)
		if err != nil {
			m.syncs.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("updating expense %d: %w", expenseID, err)
		}
		m.syncs.WithLabelValues("updated").Inc()
		m.logger.Debug("Mirrored card expense", "board_id", boardID, "card_id", card.ID, "expense_id", e.ID)
		return e, nil
	}

	e, err := m.backend.CreateExpense(ctx, boardID, in)
	if err != nil {
		m.syncs.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("creating expense: %w", err)
	}
	m.syncs.WithLabelValues("created").Inc()
	m.logger.Debug("Created card expense", "board_id", boardID, "card_id", card.ID, "expense_id", e.ID)
	return e, nil
}

// findExpense returns the id of the expense already mirrored from card, or 0.
func (m *Mirror) findExpense(ctx context.Context, boardID int64, card models.Card) (int64, error) {
	if card.ExpenseID != nil && *card.ExpenseID > 0 {
		return *card.ExpenseID, nil
	}
	expenses, err := m.backend.ListExpenses(ctx, boardID, models.ExpenseFilter{})
	if err != nil {
		return 0, err
	}
	marker := Marker(card.ID)
	for _, e := range expenses {
		if strings.TrimSpace(e.Notes) == marker {
			return e.ID, nil
		}
	}
	return 0, nil
}

func hasLocation(card models.Card) bool {
	return card.Location != nil && strings.TrimSpace(card.Location.Name) != ""
}

// SyncLocation pins the card's embedded location on the board map. A board
// location with the same name is moved instead of duplicated.
func (m *Mirror) SyncLocation(ctx context.Context, boardID int64, card models.Card) error {
	if !hasLocation(card) {
		return nil
	}
	loc := *card.Location
	if err := models.ValidateCoordinates(loc.Lat, loc.Lng); err != nil {
		m.logger.Warn("Card location has invalid coordinates", "card_id", card.ID, "error", err)
		return nil
	}

	existing, err := m.backend.ListLocations(ctx, boardID)
	if err != nil {
		return fmt.Errorf("listing locations: %w", err)
	}
	name := strings.TrimSpace(loc.Name)
	for _, l := range existing {
		if !strings.EqualFold(l.Name, name) {
			continue
		}
		if l.Lat == loc.Lat && l.Lng == loc.Lng {
			return nil
		}
		_, err := m.backend.UpdateLocation(ctx, boardID, l.ID, models.LocationInput{
			Lat: models.Ptr(loc.Lat),
			Lng: models.Ptr(loc.Lng),
		})
		return err
	}

	_, err = m.backend.CreateLocation(ctx, boardID, models.LocationInput{
		Name: models.Ptr(name),
		Lat:  models.Ptr(loc.Lat),
		Lng:  models.Ptr(loc.Lng),
	})
	return err
}
