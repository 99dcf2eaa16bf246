package repository

import (
	"testing"
	"time"
)

func TestSnapshotVersionOrdering(t *testing.T) {
	early := time.Date(2024, 3, 4, 12, 36, 5, 0, ist)
	late := early.Add(30 * time.Second)

	if snapshotVersion(late, false) <= snapshotVersion(early, false) {
		t.Fatalf("overwrite mode must let the latest capture win")
	}
	if snapshotVersion(early, true) <= snapshotVersion(late, true) {
		t.Fatalf("ignore-duplicates mode must let the earliest capture win")
	}
}
