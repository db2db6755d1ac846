package stubapi

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mmynk/travelboard/internal/auth"
	"github.com/mmynk/travelboard/internal/models"
)

var (
	errNotFound  = errors.New("not found")
	errForbidden = errors.New("forbidden")
)

var _ auth.UserStorage = (*store)(nil)

// store is the in-memory database behind the stub API. Boards own their
// lists and cards; expenses and locations reference boards by id.
type store struct {
	mu sync.Mutex

	nextID    int64
	accounts  map[string]*auth.Account // by normalised email
	boards    map[int64]*models.Board
	expenses  map[int64]*models.Expense
	locations map[int64]*models.Location
	revoked   map[string]struct{} // refresh token jti
	now       func() time.Time
}

func newStore() *store {
	return &store{
		accounts:  make(map[string]*auth.Account),
		boards:    make(map[int64]*models.Board),
		expenses:  make(map[int64]*models.Expense),
		locations: make(map[int64]*models.Location),
		revoked:   make(map[string]struct{}),
		now:       time.Now,
	}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

// CreateAccount implements auth.UserStorage.
func (s *store) CreateAccount(_ context.Context, a *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[a.User.Email]; exists {
		return auth.ErrEmailExists
	}
	a.User.ID = s.id()
	a.User.CreatedAt = s.now().UTC()
	s.accounts[a.User.Email] = a
	return nil
}

// GetAccountByEmail implements auth.UserStorage.
func (s *store) GetAccountByEmail(_ context.Context, email string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[email]
	if !ok {
		return nil, errNotFound
	}
	return a, nil
}

func (s *store) userByID(id int64) (*models.User, bool) {
	for _, a := range s.accounts {
		if a.User.ID == id {
			return &a.User, true
		}
	}
	return nil, false
}

func (s *store) user(id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.userByID(id)
	if !ok {
		return models.User{}, errNotFound
	}
	return *u, nil
}

func (s *store) updateUser(id int64, in models.ProfileInput) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.userByID(id)
	if !ok {
		return models.User{}, errNotFound
	}
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Email != nil && *in.Email != u.Email {
		email := auth.NormalizeEmail(*in.Email)
		if _, taken := s.accounts[email]; taken {
			return models.User{}, auth.ErrEmailExists
		}
		a := s.accounts[u.Email]
		delete(s.accounts, u.Email)
		a.User.Email = email
		s.accounts[email] = a
		u = &a.User
	}
	return *u, nil
}

func (s *store) revoke(jti string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = struct{}{}
}

func (s *store) isRevoked(jti string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[jti]
	return ok
}

// --- boards ---

func canAccess(b *models.Board, userID int64) bool {
	if b.Owner.ID == userID {
		return true
	}
	for _, m := range b.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// board returns the board if userID may see it. Callers hold mu.
func (s *store) board(id, userID int64) (*models.Board, error) {
	b, ok := s.boards[id]
	if !ok {
		return nil, errNotFound
	}
	if !canAccess(b, userID) {
		return nil, errForbidden
	}
	return b, nil
}

// snapshot returns a deep enough copy of a board for encoding outside mu.
func snapshot(b *models.Board) models.Board {
	out := *b
	out.Members = append([]models.User{}, b.Members...)
	out.Tags = append([]string{}, b.Tags...)
	out.Lists = b.SortedLists()
	return out
}

func (s *store) listBoards(userID int64) []models.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Board{}
	for _, b := range s.boards {
		if canAccess(b, userID) {
			out = append(out, snapshot(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) getBoard(id, userID int64) (models.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.board(id, userID)
	if err != nil {
		return models.Board{}, err
	}
	return snapshot(b), nil
}

func (s *store) createBoard(userID int64, in models.BoardInput) (models.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.userByID(userID)
	if !ok {
		return models.Board{}, errNotFound
	}
	now := s.now().UTC()
	b := &models.Board{
		ID:        s.id(),
		Owner:     *owner,
		Members:   []models.User{},
		Status:    models.BoardPlanning,
		Currency:  "USD",
		Tags:      []string{},
		Lists:     []models.List{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyBoard(b, in)
	s.boards[b.ID] = b
	return snapshot(b), nil
}

func applyBoard(b *models.Board, in models.BoardInput) {
	if in.Title != nil {
		b.Title = *in.Title
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.Status != nil {
		b.Status = *in.Status
	}
	if in.Budget != nil {
		b.Budget = in.Budget.Round(2)
	}
	if in.Currency != nil {
		b.Currency = *in.Currency
	}
	if in.StartDate != nil {
		b.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		b.EndDate = *in.EndDate
	}
	if in.IsFavorite != nil {
		b.IsFavorite = *in.IsFavorite
	}
	if in.Tags != nil {
		b.Tags = in.Tags
	}
	if in.CoverImage != nil {
		b.CoverImage = *in.CoverImage
	}
}

func (s *store) updateBoard(id, userID int64, in models.BoardInput) (models.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.board(id, userID)
	if err != nil {
		return models.Board{}, err
	}
	applyBoard(b, in)
	b.UpdatedAt = s.now().UTC()
	return snapshot(b), nil
}

func (s *store) deleteBoard(id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.board(id, userID)
	if err != nil {
		return err
	}
	if b.Owner.ID != userID {
		return errForbidden
	}
	delete(s.boards, id)
	for eid, e := range s.expenses {
		if e.Board == id {
			delete(s.expenses, eid)
		}
	}
	for lid, l := range s.locations {
		if l.Board == id {
			delete(s.locations, lid)
		}
	}
	return nil
}

// --- lists ---

func (s *store) createList(boardID, userID int64, in models.ListInput) (models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.board(boardID, userID)
	if err != nil {
		return models.List{}, err
	}
	now := s.now().UTC()
	l := models.List{
		ID:        s.id(),
		Board:     boardID,
		Position:  len(b.Lists),
		Cards:     []models.Card{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyList(&l, in)
	b.Lists = append(b.Lists, l)
	return l, nil
}

func applyList(l *models.List, in models.ListInput) {
	if in.Title != nil {
		l.Title = *in.Title
	}
	if in.Color != nil {
		l.Color = *in.Color
	}
	if in.Position != nil {
		l.Position = *in.Position
	}
}

func (s *store) updateList(boardID, listID, userID int64, in models.ListInput) (models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.board(boardID, userID)
	if err != nil {
		return models.List{}, err
	}
	l, ok := b.FindList(listID)
	if !ok {
		return models.List{}, errNotFound
	}
	applyList(l, in)
	l.UpdatedAt = s.now().UTC()
	out := *l
	out.Cards = l.SortedCards()
	return out, nil
}

func (s *store) deleteList(boardID, listID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.board(boardID, userID)
	if err != nil {
		return err
	}
	for i := range b.Lists {
		if b.Lists[i].ID == listID {
			b.Lists = append(b.Lists[:i], b.Lists[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

// --- cards ---

func (s *store) createCard(boardID, listID, userID int64, in models.CardInput) (models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.board(boardID, userID)
	if err != nil {
		return models.Card{}, err
	}
	l, ok := b.FindList(listID)
	if !ok {
		return models.Card{}, errNotFound
	}
	now := s.now().UTC()
	c := models.Card{
		ID:              s.id(),
		List:            listID,
		PeopleNumber:    1,
		Position:        len(l.Cards),
		Tags:            []string{},
		AssignedMembers: []models.User{},
		Subtasks:        []models.Subtask{},
		Attachments:     []models.Attachment{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	applyCard(&c, in)
	l.Cards = append(l.Cards, c)
	return c, nil
}

func applyCard(c *models.Card, in models.CardInput) {
	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Budget != nil {
		c.Budget = in.Budget.Round(2)
	}
	if in.PeopleNumber != nil {
		c.PeopleNumber = *in.PeopleNumber
	}
	if in.Tags != nil {
		c.Tags = in.Tags
	}
	if in.DueDate != nil {
		c.DueDate = *in.DueDate
	}
	if in.Subtasks != nil {
		c.Subtasks = in.Subtasks
	}
	if in.Location != nil {
		loc := *in.Location
		c.Location = &loc
	}
	if in.Position != nil {
		c.Position = *in.Position
	}
	if in.Category != nil {
		c.Category = *in.Category
	}
	if in.ExpenseID != nil {
		id := *in.ExpenseID
		c.ExpenseID = &id
	}
}

func (s *store) updateCard(boardID, listID, cardID, userID int64, in models.CardInput) (models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.board(boardID, userID)
	if err != nil {
		return models.Card{}, err
	}
	c, l, ok := b.FindCard(cardID)
	if !ok || l.ID != listID {
		return models.Card{}, errNotFound
	}
	applyCard(c, in)
	c.UpdatedAt = s.now().UTC()
	return *c, nil
}

func (s *store) deleteCard(boardID, listID, cardID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.board(boardID, userID)
	if err != nil {
		return err
	}
	l, ok := b.FindList(listID)
	if !ok {
		return errNotFound
	}
	for i := range l.Cards {
		if l.Cards[i].ID == cardID {
			pos := l.Cards[i].Position
			l.Cards = append(l.Cards[:i], l.Cards[i+1:]...)
			for j := range l.Cards {
				if l.Cards[j].Position > pos {
					l.Cards[j].Position--
				}
			}
			return nil
		}
	}
	return errNotFound
}

// moveCard repositions a card. Positions are zero-based indices: an out of
// range position is clamped to the end of the target list, and the cards
// between the old and new slot shift by one.
func (s *store) moveCard(cardID, userID int64, newListID *int64, newPosition int) (models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b *models.Board
	var oldList *models.List
	var card *models.Card
	for _, candidate := range s.boards {
		if c, l, ok := candidate.FindCard(cardID); ok {
			b, oldList, card = candidate, l, c
			break
		}
	}
	if b == nil {
		return models.Card{}, errNotFound
	}
	if !canAccess(b, userID) {
		return models.Card{}, errForbidden
	}

	newList := oldList
	if newListID != nil && *newListID != 0 {
		l, ok := b.FindList(*newListID)
		if !ok {
			return models.Card{}, errNotFound
		}
		newList = l
	}

	maxPosition := len(newList.Cards)
	if newList.ID != oldList.ID {
		maxPosition++
	}
	if newPosition < 0 || newPosition >= maxPosition {
		newPosition = max(0, maxPosition-1)
	}

	oldPosition := card.Position
	moved := *card
	now := s.now().UTC()

	if newList.ID != oldList.ID {
		kept := oldList.Cards[:0]
		for _, c := range oldList.Cards {
			if c.ID == cardID {
				continue
			}
			if c.Position > oldPosition {
				c.Position--
			}
			kept = append(kept, c)
		}
		oldList.Cards = kept

		for i := range newList.Cards {
			if newList.Cards[i].Position >= newPosition {
				newList.Cards[i].Position++
			}
		}
		moved.List = newList.ID
		moved.Position = newPosition
		moved.UpdatedAt = now
		newList.Cards = append(newList.Cards, moved)
		return moved, nil
	}

	if newPosition != oldPosition {
		for i := range oldList.Cards {
			c := &oldList.Cards[i]
			switch {
			case c.ID == cardID:
				c.Position = newPosition
				c.UpdatedAt = now
			case newPosition > oldPosition && c.Position > oldPosition && c.Position <= newPosition:
				c.Position--
			case newPosition < oldPosition && c.Position >= newPosition && c.Position < oldPosition:
				c.Position++
			}
		}
	}
	c, _, _ := b.FindCard(cardID)
	return *c, nil
}

// --- expenses ---

type expenseQuery struct {
	category models.ExpenseCategory
	dateFrom string
	dateTo   string
}

func (s *store) listExpenses(boardID, userID int64, q expenseQuery) ([]models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.board(boardID, userID); err != nil {
		return nil, err
	}
	out := []models.Expense{}
	for _, e := range s.expenses {
		if e.Board != boardID {
			continue
		}
		if q.category != "" && e.Category != q.category {
			continue
		}
		if q.dateFrom != "" && e.Date < q.dateFrom {
			continue
		}
		if q.dateTo != "" && e.Date > q.dateTo {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

var cardMarker = regexp.MustCompile(`From card ID (\d+)`)

func (s *store) createExpense(boardID, userID int64, in models.ExpenseInput) (models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.board(boardID, userID)
	if err != nil {
		return models.Expense{}, err
	}
	creator, _ := s.userByID(userID)
	now := s.now().UTC()
	e := &models.Expense{
		ID:        s.id(),
		Board:     boardID,
		Category:  models.ExpenseMisc,
		Date:      now.Format(time.DateOnly),
		Currency:  b.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if creator != nil {
		u := *creator
		e.CreatedBy = &u
	}
	applyExpense(e, in)
	s.expenses[e.ID] = e
	s.linkCard(b, e)
	return *e, nil
}

// linkCard records the expense on the card named by its notes marker.
func (s *store) linkCard(b *models.Board, e *models.Expense) {
	m := cardMarker.FindStringSubmatch(e.Notes)
	if m == nil {
		return
	}
	cardID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return
	}
	if c, _, ok := b.FindCard(cardID); ok && c.ExpenseID == nil {
		id := e.ID
		c.ExpenseID = &id
	}
}

func applyExpense(e *models.Expense, in models.ExpenseInput) {
	if in.Title != nil {
		e.Title = *in.Title
	}
	if in.Amount != nil {
		e.Amount = in.Amount.Round(2)
	}
	if in.Category != nil {
		e.Category = *in.Category
	}
	if in.Date != nil {
		e.Date = *in.Date
	}
	if in.Notes != nil {
		e.Notes = *in.Notes
	}
}

// expense returns an expense whose board userID may see. Callers hold mu.
func (s *store) expense(id, userID int64) (*models.Expense, error) {
	e, ok := s.expenses[id]
	if !ok {
		return nil, errNotFound
	}
	if _, err := s.board(e.Board, userID); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *store) updateExpense(id, userID int64, in models.ExpenseInput) (models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.expense(id, userID)
	if err != nil {
		return models.Expense{}, err
	}
	applyExpense(e, in)
	e.UpdatedAt = s.now().UTC()
	return *e, nil
}

func (s *store) deleteExpense(id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.expense(id, userID)
	if err != nil {
		return err
	}
	delete(s.expenses, id)
	if b, ok := s.boards[e.Board]; ok {
		for i := range b.Lists {
			for j := range b.Lists[i].Cards {
				c := &b.Lists[i].Cards[j]
				if c.ExpenseID != nil && *c.ExpenseID == id {
					c.ExpenseID = nil
				}
			}
		}
	}
	return nil
}

// --- locations ---

func (s *store) listLocations(boardID, userID int64) ([]models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.board(boardID, userID); err != nil {
		return nil, err
	}
	out := []models.Location{}
	for _, l := range s.locations {
		if l.Board == boardID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *store) createLocation(boardID, userID int64, in models.LocationInput) (models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.board(boardID, userID); err != nil {
		return models.Location{}, err
	}
	now := s.now().UTC()
	l := &models.Location{ID: s.id(), Board: boardID, CreatedAt: now, UpdatedAt: now}
	if u, ok := s.userByID(userID); ok {
		creator := *u
		l.CreatedBy = &creator
	}
	applyLocation(l, in)
	s.locations[l.ID] = l
	return *l, nil
}

func applyLocation(l *models.Location, in models.LocationInput) {
	if in.Name != nil {
		l.Name = *in.Name
	}
	if in.Lat != nil {
		l.Lat = *in.Lat
	}
	if in.Lng != nil {
		l.Lng = *in.Lng
	}
}

func (s *store) location(id, userID int64) (*models.Location, error) {
	l, ok := s.locations[id]
	if !ok {
		return nil, errNotFound
	}
	if _, err := s.board(l.Board, userID); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *store) updateLocation(id, userID int64, in models.LocationInput) (models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.location(id, userID)
	if err != nil {
		return models.Location{}, err
	}
	applyLocation(l, in)
	l.UpdatedAt = s.now().UTC()
	return *l, nil
}

func (s *store) deleteLocation(id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.location(id, userID); err != nil {
		return err
	}
	delete(s.locations, id)
	return nil
}

// --- budget ---

func (s *store) boardBudget(boardID, userID int64) (models.Board, []models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.board(boardID, userID)
	if err != nil {
		return models.Board{}, nil, err
	}
	var out []models.Expense
	for _, e := range s.expenses {
		if e.Board == boardID {
			out = append(out, *e)
		}
	}
	return *b, out, nil
}
