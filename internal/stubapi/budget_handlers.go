package stubapi

import (
	"net/http"
	"strings"

	"github.com/mmynk/travelboard/internal/calculator"
	"github.com/mmynk/travelboard/internal/middleware"
	"github.com/mmynk/travelboard/internal/models"
)

func validateExpense(in models.ExpenseInput, create bool) error {
	fe := fieldErrors{}
	if create && blank(in.Title) {
		fe.add("title", msgRequired)
	}
	if create && in.Amount == nil {
		fe.add("amount", msgRequired)
	}
	if in.Amount != nil && in.Amount.IsNegative() {
		fe.add("amount", "Ensure this value is greater than or equal to 0.")
	}
	if in.Category != nil && !in.Category.Valid() {
		fe.add("category", `"`+string(*in.Category)+`" is not a valid choice.`)
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

func (s *Server) handleExpenseList(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	q := r.URL.Query()
	expenses, err := s.store.listExpenses(boardID, middleware.GetUserID(r.Context()), expenseQuery{
		category: models.ExpenseCategory(strings.ToLower(q.Get("category"))),
		dateFrom: q.Get("date_from"),
		dateTo:   q.Get("date_to"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleExpenseCreate(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	var in models.ExpenseInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := validateExpense(in, true); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.store.createExpense(boardID, middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleExpenseUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "expenseID")
	if !ok {
		return
	}
	var in models.ExpenseInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := validateExpense(in, false); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.store.updateExpense(id, middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleExpenseDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "expenseID")
	if !ok {
		return
	}
	if err := s.store.deleteExpense(id, middleware.GetUserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	board, expenses, err := s.store.boardBudget(boardID, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calculator.Summarize(board.Budget, expenses))
}

func validateLocation(in models.LocationInput, create bool) error {
	fe := fieldErrors{}
	if create {
		if blank(in.Name) {
			fe.add("name", msgRequired)
		}
		if in.Lat == nil {
			fe.add("lat", msgRequired)
		}
		if in.Lng == nil {
			fe.add("lng", msgRequired)
		}
	}
	if in.Lat != nil && (*in.Lat < -90 || *in.Lat > 90) {
		fe.add("lat", "Ensure this value is between -90 and 90.")
	}
	if in.Lng != nil && (*in.Lng < -180 || *in.Lng > 180) {
		fe.add("lng", "Ensure this value is between -180 and 180.")
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

func (s *Server) handleLocationList(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	locations, err := s.store.listLocations(boardID, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

func (s *Server) handleLocationCreate(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	var in models.LocationInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := validateLocation(in, true); err != nil {
		writeError(w, err)
		return
	}
	l, err := s.store.createLocation(boardID, middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleLocationUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "locationID")
	if !ok {
		return
	}
	var in models.LocationInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := validateLocation(in, false); err != nil {
		writeError(w, err)
		return
	}
	l, err := s.store.updateLocation(id, middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleLocationDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "locationID")
	if !ok {
		return
	}
	if err := s.store.deleteLocation(id, middleware.GetUserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
