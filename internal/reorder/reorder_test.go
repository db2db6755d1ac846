package reorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mmynk/travelboard/internal/models"
	"github.com/mmynk/travelboard/pkg/logging"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name     string
		drop     Drop
		wantOK   bool
		wantList *int64
		wantPos  int
	}{
		{
			name: "dropped outside",
			drop: Drop{CardID: 1, Source: Position{ListID: 10, Index: 0}},
		},
		{
			name: "dropped in place",
			drop: Drop{CardID: 1, Source: Position{ListID: 10, Index: 2}, Destination: &Position{ListID: 10, Index: 2}},
		},
		{
			name:    "within list",
			drop:    Drop{CardID: 1, Source: Position{ListID: 10, Index: 0}, Destination: &Position{ListID: 10, Index: 3}},
			wantOK:  true,
			wantPos: 3,
		},
		{
			name:     "across lists",
			drop:     Drop{CardID: 1, Source: Position{ListID: 10, Index: 0}, Destination: &Position{ListID: 20, Index: 0}},
			wantOK:   true,
			wantList: models.Ptr(int64(20)),
		},
		{
			name:     "negative index goes to the top",
			drop:     Drop{CardID: 1, Source: Position{ListID: 10, Index: 2}, Destination: &Position{ListID: 20, Index: -3}},
			wantOK:   true,
			wantList: models.Ptr(int64(20)),
		},
		{
			name: "negative index at the top is in place",
			drop: Drop{CardID: 1, Source: Position{ListID: 10, Index: 0}, Destination: &Position{ListID: 10, Index: -1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ok := Plan(tt.drop)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if in.NewPosition != tt.wantPos {
				t.Errorf("position = %d, want %d", in.NewPosition, tt.wantPos)
			}
			switch {
			case tt.wantList == nil && in.NewListID != nil:
				t.Errorf("new_list_id = %d, want omitted", *in.NewListID)
			case tt.wantList != nil && (in.NewListID == nil || *in.NewListID != *tt.wantList):
				t.Errorf("new_list_id = %v, want %d", in.NewListID, *tt.wantList)
			}
		})
	}
}

func testBoard() models.Board {
	return models.Board{
		ID: 1,
		Lists: []models.List{
			{ID: 20, Position: 1, Title: "Done", Cards: []models.Card{{ID: 4, Position: 0}}},
			{ID: 10, Position: 0, Title: "To Do", Cards: []models.Card{
				{ID: 3, Position: 2}, {ID: 1, Position: 0}, {ID: 2, Position: 1},
			}},
		},
	}
}

func TestLayoutOf(t *testing.T) {
	l := LayoutOf(testBoard())
	if len(l.Columns) != 2 || l.Columns[0].ListID != 10 {
		t.Fatalf("columns = %+v", l.Columns)
	}
	if got := fmt.Sprint(l.Columns[0].Cards); got != "[1 2 3]" {
		t.Errorf("to do = %s", got)
	}
	pos, ok := l.Locate(4)
	if !ok || pos != (Position{ListID: 20, Index: 0}) {
		t.Errorf("Locate(4) = %+v, %v", pos, ok)
	}
}

func TestLayoutApply(t *testing.T) {
	tests := []struct {
		name     string
		drop     Drop
		wantTodo string
		wantDone string
		wantErr  error
	}{
		{
			name:     "down within list",
			drop:     Drop{CardID: 1, Source: Position{10, 0}, Destination: &Position{10, 2}},
			wantTodo: "[2 3 1]", wantDone: "[4]",
		},
		{
			name:     "up within list",
			drop:     Drop{CardID: 3, Source: Position{10, 2}, Destination: &Position{10, 0}},
			wantTodo: "[3 1 2]", wantDone: "[4]",
		},
		{
			name:     "into other list",
			drop:     Drop{CardID: 2, Source: Position{10, 1}, Destination: &Position{20, 0}},
			wantTodo: "[1 3]", wantDone: "[2 4]",
		},
		{
			name:     "beyond end clamps",
			drop:     Drop{CardID: 1, Source: Position{10, 0}, Destination: &Position{20, 9}},
			wantTodo: "[2 3]", wantDone: "[4 1]",
		},
		{
			name:     "negative index clamps to top",
			drop:     Drop{CardID: 3, Source: Position{10, 2}, Destination: &Position{20, -1}},
			wantTodo: "[1 2]", wantDone: "[3 4]",
		},
		{
			name:     "outside is a no-op",
			drop:     Drop{CardID: 1, Source: Position{10, 0}},
			wantTodo: "[1 2 3]", wantDone: "[4]",
		},
		{
			name:    "unknown list",
			drop:    Drop{CardID: 1, Source: Position{10, 0}, Destination: &Position{99, 0}},
			wantErr: ErrUnknownList,
		},
		{
			name:    "card not in source",
			drop:    Drop{CardID: 4, Source: Position{10, 0}, Destination: &Position{10, 1}},
			wantErr: ErrUnknownCard,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := LayoutOf(testBoard())
			err := l.Apply(tt.drop)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			todo, _ := l.Column(10)
			done, _ := l.Column(20)
			if got := fmt.Sprint(todo.Cards); got != tt.wantTodo {
				t.Errorf("to do = %s, want %s", got, tt.wantTodo)
			}
			if got := fmt.Sprint(done.Cards); got != tt.wantDone {
				t.Errorf("done = %s, want %s", got, tt.wantDone)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	l := LayoutOf(testBoard())
	c := l.Clone()
	c.Columns[0].Cards[0] = 99
	if l.Columns[0].Cards[0] == 99 {
		t.Error("clone shares card slices")
	}
}

type fakeMover struct {
	mu    sync.Mutex
	err   error
	moves []models.MoveCardInput
}

func (f *fakeMover) MoveCard(_ context.Context, _, _ int64, in models.MoveCardInput) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, in)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Card{ID: 1}, nil
}

func TestCoordinatorDrop(t *testing.T) {
	ctx := context.Background()

	t.Run("success keeps optimistic layout", func(t *testing.T) {
		mover := &fakeMover{}
		c := NewCoordinator(mover, logging.Discard())
		c.Load(testBoard())

		err := c.Drop(ctx, 1, Drop{CardID: 2, Source: Position{10, 1}, Destination: &Position{20, 1}})
		if err != nil {
			t.Fatalf("Drop failed: %v", err)
		}
		if len(mover.moves) != 1 || mover.moves[0].NewListID == nil || mover.moves[0].NewPosition != 1 {
			t.Errorf("moves = %+v", mover.moves)
		}
		l, _ := c.Layout(1)
		done, _ := l.Column(20)
		if got := fmt.Sprint(done.Cards); got != "[4 2]" {
			t.Errorf("done = %s", got)
		}
	})

	t.Run("failure restores snapshot", func(t *testing.T) {
		mover := &fakeMover{err: errors.New("HTTP 500")}
		c := NewCoordinator(mover, logging.Discard())
		before := c.Load(testBoard())

		err := c.Drop(ctx, 1, Drop{CardID: 1, Source: Position{10, 0}, Destination: &Position{10, 2}})
		if err == nil {
			t.Fatal("expected error")
		}
		after, _ := c.Layout(1)
		if fmt.Sprint(after) != fmt.Sprint(before) {
			t.Errorf("layout = %v, want %v", after, before)
		}
	})

	t.Run("no-op sends nothing", func(t *testing.T) {
		mover := &fakeMover{}
		c := NewCoordinator(mover, logging.Discard())
		c.Load(testBoard())

		drops := []Drop{
			{CardID: 1, Source: Position{10, 0}},
			{CardID: 1, Source: Position{10, 0}, Destination: &Position{10, 0}},
		}
		for _, d := range drops {
			if err := c.Drop(ctx, 1, d); err != nil {
				t.Errorf("Drop(%+v) = %v", d, err)
			}
		}
		if len(mover.moves) != 0 {
			t.Errorf("moves = %+v, want none", mover.moves)
		}
	})

	t.Run("unloaded board still moves", func(t *testing.T) {
		mover := &fakeMover{}
		c := NewCoordinator(mover, logging.Discard())
		if err := c.Drop(ctx, 5, Drop{CardID: 1, Source: Position{10, 0}, Destination: &Position{10, 1}}); err != nil {
			t.Fatalf("Drop failed: %v", err)
		}
		if len(mover.moves) != 1 {
			t.Errorf("moves = %d, want 1", len(mover.moves))
		}
	})
}
