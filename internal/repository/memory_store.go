package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"BreakScan/internal/domain/models"
)

type memKey struct {
	kind   models.InstrumentKind
	symbol string
	bucket int64
}

// MemoryStore is an in-process SnapshotStore, BaselineStore and SignalStore.
// Nothing survives a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	snaps     map[memKey]models.Snapshot
	baselines map[string]models.DailyBaseline
	signals   models.SignalSets
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snaps:     make(map[memKey]models.Snapshot),
		baselines: make(map[string]models.DailyBaseline),
		signals:   models.SignalSets{Breakouts: []models.SignalRecord{}, Breakdowns: []models.SignalRecord{}},
	}
}

func (m *MemoryStore) UpsertSnapshots(_ context.Context, snaps []models.Snapshot, ignoreDuplicates bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range snaps {
		k := memKey{kind: s.Kind, symbol: s.Symbol, bucket: s.Bucket.Unix()}
		if _, exists := m.snaps[k]; exists && ignoreDuplicates {
			continue
		}
		m.snaps[k] = s
	}
	return nil
}

func (m *MemoryStore) QuerySnapshots(_ context.Context, from, to time.Time, f models.SnapshotFilter) ([]models.Snapshot, error) {
	want := make(map[string]bool, len(f.Symbols))
	for _, s := range f.Symbols {
		want[s] = true
	}
	m.mu.RLock()
	out := make([]models.Snapshot, 0)
	for k, s := range m.snaps {
		if k.bucket < from.Unix() || k.bucket > to.Unix() {
			continue
		}
		if f.Kind != "" && k.kind != f.Kind {
			continue
		}
		if f.Sector != "" && s.Sector != f.Sector {
			continue
		}
		if len(want) > 0 && !want[k.symbol] {
			continue
		}
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Bucket.Equal(out[j].Bucket) {
			return out[i].Bucket.Before(out[j].Bucket)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}

func (m *MemoryStore) DeleteSnapshotsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.snaps {
		if k.bucket < cutoff.Unix() {
			delete(m.snaps, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ReplaceBaselines(_ context.Context, rows []models.DailyBaseline) error {
	next := make(map[string]models.DailyBaseline, len(rows))
	for _, b := range rows {
		next[b.Symbol] = b
	}
	m.mu.Lock()
	m.baselines = next
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Baselines(_ context.Context) ([]models.DailyBaseline, error) {
	m.mu.RLock()
	out := make([]models.DailyBaseline, 0, len(m.baselines))
	for _, b := range m.baselines {
		out = append(out, b)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *MemoryStore) ReplaceSignals(_ context.Context, sets models.SignalSets) error {
	cp := models.SignalSets{
		Breakouts:  append([]models.SignalRecord{}, sets.Breakouts...),
		Breakdowns: append([]models.SignalRecord{}, sets.Breakdowns...),
	}
	m.mu.Lock()
	m.signals = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Signals(_ context.Context) (models.SignalSets, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.SignalSets{
		Breakouts:  append([]models.SignalRecord{}, m.signals.Breakouts...),
		Breakdowns: append([]models.SignalRecord{}, m.signals.Breakdowns...),
	}, nil
}

// Health always succeeds.
func (m *MemoryStore) Health(context.Context) error { return nil }
