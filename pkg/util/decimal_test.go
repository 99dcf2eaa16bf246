package util

import "testing"

func TestPercentChange(t *testing.T) {
	if got := PercentChange(100, 100.01); got != 0.01 {
		t.Fatalf("expected 0.01, got %v", got)
	}
	if got := PercentChange(100, 100.004); got != 0.004 {
		t.Fatalf("small moves must keep full precision, got %v", got)
	}
	if got := PercentChange(0, 5); got != 0 {
		t.Fatalf("expected 0 for zero base, got %v", got)
	}
	if got := PercentChange(150, 147); got != -2 {
		t.Fatalf("expected -2, got %v", got)
	}
}

func TestRoundFloat(t *testing.T) {
	if got := RoundFloat(1.23456, 2); got != 1.23 {
		t.Fatalf("expected 1.23, got %v", got)
	}
	if got := RoundFloat(-0.00005, 4); got != -0.0001 {
		t.Fatalf("expected half away from zero, got %v", got)
	}
}
