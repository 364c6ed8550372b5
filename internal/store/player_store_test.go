package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oresmash/smashdb/internal/store"
	"github.com/oresmash/smashdb/internal/testutil"
)

func newPlayerTestEnv(t *testing.T) *store.PlayerStore {
	t.Helper()
	ps := store.NewPlayerStore(testutil.NewTestHandler(t))
	if err := ps.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return ps
}

func TestPlayerStore_EnsureSchemaTwice(t *testing.T) {
	ps := newPlayerTestEnv(t)
	if err := ps.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}

func TestPlayerStore_RegisterAndGet(t *testing.T) {
	ps := newPlayerTestEnv(t)
	ctx := context.Background()
	id := uuid.New()

	before := time.Now().UTC().Add(-time.Second)
	if err := ps.Register(ctx, id, "Notch"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	p, err := ps.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.ID != id {
		t.Errorf("id = %s, want %s", p.ID, id)
	}
	if p.Name != "Notch" {
		t.Errorf("name = %q, want %q", p.Name, "Notch")
	}
	if p.Smashes != 0 {
		t.Errorf("smashes = %d, want 0", p.Smashes)
	}
	if p.CreatedAt.Before(before) {
		t.Errorf("created_at = %v, want after %v", p.CreatedAt, before)
	}
}

func TestPlayerStore_RegisterIsIdempotent(t *testing.T) {
	ps := newPlayerTestEnv(t)
	ctx := context.Background()
	id := uuid.New()

	if err := ps.Register(ctx, id, "Alex"); err != nil {
		t.Fatalf("Register first: %v", err)
	}
	if err := ps.Register(ctx, id, "Steve"); err != nil {
		t.Fatalf("Register again: %v", err)
	}

	p, err := ps.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Name != "Alex" {
		t.Errorf("name = %q, want the original %q", p.Name, "Alex")
	}
}

func TestPlayerStore_RegisterRejectsBadNames(t *testing.T) {
	ps := newPlayerTestEnv(t)
	ctx := context.Background()

	for _, name := range []string{"", "   ", "a_name_that_is_far_too_long"} {
		if err := ps.Register(ctx, uuid.New(), name); err == nil {
			t.Errorf("Register(%q) succeeded, want error", name)
		}
	}
}

func TestPlayerStore_GetUnknown(t *testing.T) {
	ps := newPlayerTestEnv(t)

	_, err := ps.Get(context.Background(), uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get unknown = %v, want ErrNotFound", err)
	}
}

func TestPlayerStore_AddSmashes(t *testing.T) {
	ps := newPlayerTestEnv(t)
	ctx := context.Background()
	id := uuid.New()
	if err := ps.Register(ctx, id, "Digger"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, n := range []int64{3, 4} {
		if err := ps.AddSmashes(ctx, id, n); err != nil {
			t.Fatalf("AddSmashes(%d): %v", n, err)
		}
	}
	if err := ps.AddSmashes(ctx, id, -1); err == nil {
		t.Error("AddSmashes(-1) succeeded, want error")
	}

	p, err := ps.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Smashes != 7 {
		t.Errorf("smashes = %d, want 7", p.Smashes)
	}
}

func TestPlayerStore_Top(t *testing.T) {
	ps := newPlayerTestEnv(t)
	ctx := context.Background()

	counts := map[string]int64{"Ann": 5, "Bob": 9, "Cid": 5, "Dee": 1}
	for name, n := range counts {
		id := uuid.New()
		if err := ps.Register(ctx, id, name); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
		if err := ps.AddSmashes(ctx, id, n); err != nil {
			t.Fatalf("AddSmashes %s: %v", name, err)
		}
	}

	top, err := ps.Top(ctx, 3)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	var got []string
	for _, p := range top {
		got = append(got, fmt.Sprintf("%s:%d", p.Name, p.Smashes))
	}
	want := []string{"Bob:9", "Ann:5", "Cid:5"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Top = %v, want %v", got, want)
	}

	if _, err := ps.Top(ctx, 0); err == nil {
		t.Error("Top(0) succeeded, want error")
	}
}
