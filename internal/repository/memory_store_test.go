package repository

import (
	"context"
	"testing"
	"time"

	"BreakScan/internal/domain/models"
)

func TestMemoryStoreFirstWriteWins(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	b := time.Date(2024, 3, 4, 12, 36, 0, 0, ist)
	_ = m.UpsertSnapshots(ctx, []models.Snapshot{snap("TCS", b, 1)}, true)
	_ = m.UpsertSnapshots(ctx, []models.Snapshot{snap("TCS", b, 2)}, true)
	got, _ := m.QuerySnapshots(ctx, b, b, models.SnapshotFilter{})
	if len(got) != 1 || got[0].LTP != 1 {
		t.Fatalf("expected first write to survive, got %+v", got)
	}
	_ = m.UpsertSnapshots(ctx, []models.Snapshot{snap("TCS", b, 3)}, false)
	got, _ = m.QuerySnapshots(ctx, b, b, models.SnapshotFilter{})
	if got[0].LTP != 3 {
		t.Fatalf("expected overwrite, got %v", got[0].LTP)
	}
}

func TestMemoryStoreReplaceBaselines(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	_ = m.ReplaceBaselines(ctx, []models.DailyBaseline{{Symbol: "A"}, {Symbol: "B"}})
	_ = m.ReplaceBaselines(ctx, []models.DailyBaseline{{Symbol: "C"}})
	got, _ := m.Baselines(ctx)
	if len(got) != 1 || got[0].Symbol != "C" {
		t.Fatalf("expected wholesale replace, got %+v", got)
	}
}
