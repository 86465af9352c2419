package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Each call advances by a second so created-at ordering is deterministic.
	base := time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	repo, err := NewRepository(db, clock)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	return repo
}

func sampleOrder() Order {
	return Order{
		CustomerName:  "Jan Peeters",
		CustomerPhone: "0494 11 22 33",
		Notes:         "liever dun gesneden",
		BatchID:       "B1",
		BatchName:     "Batch maart",
		Total:         16.75,
		Items: []Item{
			{ProductID: "P1", Name: "Braadworst", Quantity: 2, UnitPrice: 5.00, LineTotal: 10.00},
			{ProductID: "P4", Name: "Gehakt", Quantity: 1.5, UnitPrice: 4.50, LineTotal: 6.75},
		},
	}
}

func TestArchiveAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.Archive(ctx, sampleOrder())
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if id == "" {
		t.Fatal("expected an assigned id")
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusPending {
		t.Fatalf("status = %q, want pending", got.Status)
	}
	if got.CustomerName != "Jan Peeters" || got.Total != 16.75 {
		t.Fatalf("unexpected order %+v", got)
	}
	if len(got.Items) != 2 || got.Items[0].ProductID != "P1" || got.Items[1].Quantity != 1.5 {
		t.Fatalf("unexpected items %+v", got.Items)
	}
}

func TestArchiveRejectsEmptyOrder(t *testing.T) {
	repo := newTestRepository(t)
	order := sampleOrder()
	order.Items = nil
	if _, err := repo.Archive(context.Background(), order); !errors.Is(err, ErrNoItems) {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
}

func TestGetUnknownOrder(t *testing.T) {
	repo := newTestRepository(t)
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := repo.AdvanceStatus(context.Background(), "nope"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestStatusLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.Archive(ctx, sampleOrder())
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	want := []Status{StatusConfirm, StatusReady, StatusPickedUp}
	for _, next := range want {
		got, err := repo.AdvanceStatus(ctx, id)
		if err != nil {
			t.Fatalf("AdvanceStatus to %q: %v", next, err)
		}
		if got != next {
			t.Fatalf("status = %q, want %q", got, next)
		}
	}

	if _, err := repo.AdvanceStatus(ctx, id); !errors.Is(err, ErrFinalStatus) {
		t.Fatalf("expected ErrFinalStatus, got %v", err)
	}
	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusPickedUp {
		t.Fatalf("final status = %q, want picked up", got.Status)
	}
}

func TestListNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.Archive(ctx, sampleOrder())
	if err != nil {
		t.Fatal(err)
	}
	second, err := repo.Archive(ctx, sampleOrder())
	if err != nil {
		t.Fatal(err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(list))
	}
	if list[0].ID != second || list[1].ID != first {
		t.Fatalf("expected newest first, got %v then %v", list[0].ID, list[1].ID)
	}
}
