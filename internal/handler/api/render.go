package api

import (
	"BreakScan/internal/domain/models"
	"BreakScan/pkg/util"
)

// Percentages are stored unrounded and trimmed for display only.
const pctPlaces = 4

func renderSnapshots(in []models.Snapshot) []models.Snapshot {
	out := make([]models.Snapshot, len(in))
	for i, s := range in {
		s.PctChange = util.RoundFloat(s.PctChange, pctPlaces)
		out[i] = s
	}
	return out
}

func renderSignals(in []models.SignalRecord) []models.SignalRecord {
	out := make([]models.SignalRecord, len(in))
	for i, r := range in {
		r.DistancePct = util.RoundFloat(r.DistancePct, pctPlaces)
		out[i] = r
	}
	return out
}

func renderFrame(f models.ReplayFrame) models.ReplayFrame {
	f.Snapshots = renderSnapshots(f.Snapshots)
	return f
}
