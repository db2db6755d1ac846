package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{"boards", Boards(), "boards"},
		{"board", Board(12), "board/12"},
		{"summary", BoardSub(12, "budget-summary"), "board/12/budget-summary"},
		{"filtered", BoardSub(12, "expenses", "category=food"), "board/12/expenses/category=food"},
		{"empty filter dropped", BoardSub(12, "expenses", ""), "board/12/expenses"},
		{"me", Me(), "me"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}

	if !BoardSub(1, "expenses").HasPrefix(Board(1)) {
		t.Error("sub-resource key should have its board as prefix")
	}
	if Board(10).HasPrefix(Board(1)) {
		t.Error("board 10 must not match board 1")
	}
	if Board(1).HasPrefix(Boards()) {
		t.Error("board detail must not sit under the boards list")
	}
	if !Board(3).Equal(Key{"board", "3"}) {
		t.Error("Equal failed")
	}
}

func TestFetchCachesUntilInvalidated(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls int
	load := func(context.Context) (string, error) {
		calls++
		return "board", nil
	}

	for i := 0; i < 3; i++ {
		if _, err := Fetch(ctx, c, Board(1), time.Minute, load); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	c.Invalidate(Board(1))
	if _, fresh, ok := c.Get(Board(1), time.Minute); !ok || fresh {
		t.Errorf("after Invalidate: ok=%v fresh=%v, want cached but stale", ok, fresh)
	}
	if _, err := Fetch(ctx, c, Board(1), time.Minute, load); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 after invalidation", calls)
	}

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 2 || s.Entries != 1 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestZeroStaleTimeAlwaysRefetches(t *testing.T) {
	c := New()
	var calls int
	load := func(context.Context) (int, error) { calls++; return calls, nil }
	Fetch(context.Background(), c, Me(), 0, load)
	v, _ := Fetch(context.Background(), c, Me(), 0, load)
	if v != 2 {
		t.Errorf("second fetch = %d, want 2", v)
	}
}

func TestStaleTimeExpires(t *testing.T) {
	c := New()
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set(Boards(), []string{"a"})

	if _, fresh, _ := c.Get(Boards(), 5*time.Minute); !fresh {
		t.Error("entry should be fresh")
	}
	now = now.Add(6 * time.Minute)
	if _, fresh, _ := c.Get(Boards(), 5*time.Minute); fresh {
		t.Error("entry should be stale after staleTime")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New()
	c.Set(Board(1), "detail")
	c.Set(BoardSub(1, "expenses"), "expenses")
	c.Set(BoardSub(1, "expenses", "category=food"), "food")
	c.Set(Board(2), "other")

	c.Invalidate(Board(1))

	for _, k := range []Key{Board(1), BoardSub(1, "expenses"), BoardSub(1, "expenses", "category=food")} {
		if _, fresh, _ := c.Get(k, time.Hour); fresh {
			t.Errorf("%s should be stale", k)
		}
	}
	if _, fresh, _ := c.Get(Board(2), time.Hour); !fresh {
		t.Error("board/2 should stay fresh")
	}
}

func TestRemove(t *testing.T) {
	c := New()
	c.Set(Board(1), "detail")
	c.Set(BoardSub(1, "locations"), "locs")
	c.Remove(Board(1))
	if _, _, ok := c.Get(BoardSub(1, "locations"), time.Hour); ok {
		t.Error("entry under removed prefix still present")
	}
}

func TestFetchInvalidatedInFlightIsNotCached(t *testing.T) {
	c := New()
	ctx := context.Background()

	v, err := Fetch(ctx, c, BoardSub(1, "expenses"), time.Hour, func(context.Context) (string, error) {
		c.Invalidate(Board(1))
		return "superseded", nil
	})
	if err != nil || v != "superseded" {
		t.Fatalf("Fetch = %q, %v", v, err)
	}
	if _, _, ok := c.Get(BoardSub(1, "expenses"), time.Hour); ok {
		t.Error("result invalidated in flight must not be cached")
	}
}

func TestSetDuringFetchWins(t *testing.T) {
	c := New()
	ctx := context.Background()

	v, err := Fetch(ctx, c, Board(1), time.Hour, func(context.Context) (string, error) {
		c.Set(Board(1), "new")
		return "old", nil
	})
	if err != nil || v != "old" {
		t.Fatalf("Fetch = %q, %v", v, err)
	}
	got, fresh, ok := c.Get(Board(1), time.Hour)
	if !ok || got != "new" || !fresh {
		t.Errorf("cached = %v fresh=%v ok=%v, want new fresh", got, fresh, ok)
	}

	// The value written by Set is served to later fetches.
	v, err = Fetch(ctx, c, Board(1), time.Hour, func(context.Context) (string, error) {
		t.Error("fresh entry should not be refetched")
		return "", nil
	})
	if err != nil || v != "new" {
		t.Errorf("second Fetch = %q, %v", v, err)
	}
}

func TestFetchErrorIsNotCached(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	_, err := Fetch(context.Background(), c, Boards(), time.Hour, func(context.Context) ([]int, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, _, ok := c.Get(Boards(), time.Hour); ok {
		t.Error("failed fetch should not be cached")
	}
}

func TestFetchDeduplicatesConcurrentCalls(t *testing.T) {
	c := New()
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Fetch(context.Background(), c, Board(9), time.Hour, func(context.Context) (int, error) {
				calls.Add(1)
				<-release
				return 9, nil
			})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestSubscribe(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := c.Subscribe(ctx)

	c.Invalidate(Board(4), BoardSub(4, "budget-summary"))

	got := []Key{<-ch, <-ch}
	if !got[0].Equal(Board(4)) || !got[1].Equal(BoardSub(4, "budget-summary")) {
		t.Errorf("notifications = %v", got)
	}

	cancel()
	select {
	case _, open := <-ch:
		if open {
			t.Error("unexpected notification after cancel")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after cancel")
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegisterer(reg))
	load := func(context.Context) (int, error) { return 1, nil }
	Fetch(context.Background(), c, Boards(), time.Hour, load)
	Fetch(context.Background(), c, Boards(), time.Hour, load)

	if got := testutil.ToFloat64(c.hits); got != 1 {
		t.Errorf("hits = %v", got)
	}
	if got := testutil.ToFloat64(c.misses); got != 1 {
		t.Errorf("misses = %v", got)
	}
}
