package repository

import (
	"context"
	"testing"
)

func TestGetOrCreateStartsAtZero(t *testing.T) {
	repo := NewDailyLimitsRepository(setupDB(t))

	row, err := repo.GetOrCreate(context.Background(), "2026-08-30")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if row.PRsOpened != 0 || row.PayoutsSent != 0 {
		t.Fatalf("new row = %+v, want zeroed counters", row)
	}
}

func TestIncrementsAreIndependentAcrossDates(t *testing.T) {
	repo := NewDailyLimitsRepository(setupDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := repo.IncrementPayouts(ctx, "2026-08-30"); err != nil {
			t.Fatalf("increment payouts: %v", err)
		}
	}
	if err := repo.IncrementPRs(ctx, "2026-08-30"); err != nil {
		t.Fatalf("increment prs: %v", err)
	}

	today, err := repo.GetOrCreate(ctx, "2026-08-30")
	if err != nil {
		t.Fatalf("get today: %v", err)
	}
	if today.PayoutsSent != 3 || today.PRsOpened != 1 {
		t.Fatalf("today = %+v, want payouts 3 / prs 1", today)
	}

	tomorrow, err := repo.GetOrCreate(ctx, "2026-08-31")
	if err != nil {
		t.Fatalf("get tomorrow: %v", err)
	}
	if tomorrow.PayoutsSent != 0 || tomorrow.PRsOpened != 0 {
		t.Fatalf("tomorrow = %+v, want zeroed counters", tomorrow)
	}
}

func TestIncrementCreatesRowLazily(t *testing.T) {
	repo := NewDailyLimitsRepository(setupDB(t))
	ctx := context.Background()

	if err := repo.IncrementPRs(ctx, "2026-09-01"); err != nil {
		t.Fatalf("increment on fresh date: %v", err)
	}

	row, err := repo.GetOrCreate(ctx, "2026-09-01")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if row.PRsOpened != 1 {
		t.Fatalf("prs opened = %d, want 1", row.PRsOpened)
	}
}
