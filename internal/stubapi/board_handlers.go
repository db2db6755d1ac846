package stubapi

import (
	"net/http"
	"strings"

	"github.com/mmynk/travelboard/internal/middleware"
	"github.com/mmynk/travelboard/internal/models"
)

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func validateBoard(in models.BoardInput, create bool) error {
	fe := fieldErrors{}
	if create && blank(in.Title) {
		fe.add("title", msgRequired)
	}
	if in.Title != nil && !create && strings.TrimSpace(*in.Title) == "" {
		fe.add("title", "This field may not be blank.")
	}
	if in.Status != nil && !in.Status.Valid() {
		fe.add("status", `"`+string(*in.Status)+`" is not a valid choice.`)
	}
	if in.Budget != nil && in.Budget.IsNegative() {
		fe.add("budget", "Ensure this value is greater than or equal to 0.")
	}
	if in.Currency != nil && len(*in.Currency) != 3 {
		fe.add("currency", "Ensure this field has no more than 3 characters.")
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

func (s *Server) handleBoardList(w http.ResponseWriter, r *http.Request) {
	boards := s.store.listBoards(middleware.GetUserID(r.Context()))
	writeJSON(w, http.StatusOK, models.Page[models.Board]{
		Count:   len(boards),
		Results: boards,
	})
}

func (s *Server) handleBoardCreate(w http.ResponseWriter, r *http.Request) {
	var in models.BoardInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := validateBoard(in, true); err != nil {
		writeError(w, err)
		return
	}
	b, err := s.store.createBoard(middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleBoardGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	b, err := s.store.getBoard(id, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleBoardUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	var in models.BoardInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := validateBoard(in, false); err != nil {
		writeError(w, err)
		return
	}
	b, err := s.store.updateBoard(id, middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleBoardDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	if err := s.store.deleteBoard(id, middleware.GetUserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCreate(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	var in models.ListInput
	if !decodeBody(w, r, &in) {
		return
	}
	if blank(in.Title) {
		writeError(w, fieldErrors{"title": {msgRequired}})
		return
	}
	l, err := s.store.createList(boardID, middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleListUpdate(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	listID, ok := pathID(w, r, "listID")
	if !ok {
		return
	}
	var in models.ListInput
	if !decodeBody(w, r, &in) {
		return
	}
	l, err := s.store.updateList(boardID, listID, middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleListDelete(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	listID, ok := pathID(w, r, "listID")
	if !ok {
		return
	}
	if err := s.store.deleteList(boardID, listID, middleware.GetUserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateCard(in models.CardInput, create bool) error {
	fe := fieldErrors{}
	if create && blank(in.Title) {
		fe.add("title", msgRequired)
	}
	if in.Budget != nil && in.Budget.IsNegative() {
		fe.add("budget", "Ensure this value is greater than or equal to 0.")
	}
	if in.PeopleNumber != nil && *in.PeopleNumber < 1 {
		fe.add("people_number", "Ensure this value is greater than or equal to 1.")
	}
	if in.Location != nil {
		if err := models.ValidateCoordinates(in.Location.Lat, in.Location.Lng); err != nil {
			fe.add("location", err.Error())
		}
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

func (s *Server) handleCardCreate(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	listID, ok := pathID(w, r, "listID")
	if !ok {
		return
	}
	var in models.CardInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := validateCard(in, true); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.store.createCard(boardID, listID, middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleCardUpdate(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	listID, ok := pathID(w, r, "listID")
	if !ok {
		return
	}
	cardID, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}
	var in models.CardInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := validateCard(in, false); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.store.updateCard(boardID, listID, cardID, middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCardDelete(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	listID, ok := pathID(w, r, "listID")
	if !ok {
		return
	}
	cardID, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}
	if err := s.store.deleteCard(boardID, listID, cardID, middleware.GetUserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	NewListID   *int64 `json:"new_list_id"`
	NewPosition *int   `json:"new_position"`
}

func (s *Server) handleCardMove(w http.ResponseWriter, r *http.Request) {
	cardID, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}
	var req moveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.NewPosition == nil {
		writeError(w, fieldErrors{"new_position": {msgRequired}})
		return
	}
	c, err := s.store.moveCard(cardID, middleware.GetUserID(r.Context()), req.NewListID, *req.NewPosition)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
