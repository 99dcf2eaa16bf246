package universe

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "universe.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad(t *testing.T) {
	p := writeFile(t, `
instruments:
  - {symbol: tcs, sector: IT, token: 2953217}
  - {symbol: INFY, sector: IT, exchange: NSE}
indices: ["NIFTY 50", "NIFTY BANK"]
`)
	u, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := u.Symbols(); len(got) != 2 || got[0] != "TCS" {
		t.Fatalf("unexpected symbols %v", got)
	}
	tcs := u.BySymbol()["TCS"]
	if tcs.Token != 2953217 || tcs.Exchange != "NSE" {
		t.Fatalf("unexpected instrument %+v", tcs)
	}
	if len(u.Indices) != 2 {
		t.Fatalf("expected 2 indices")
	}
}

func TestLoadRejectsDuplicates(t *testing.T) {
	p := writeFile(t, "instruments:\n  - {symbol: TCS}\n  - {symbol: tcs}\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestLoadRejectsEmpty(t *testing.T) {
	if _, err := Load(writeFile(t, "instruments: []\n")); err == nil {
		t.Fatalf("expected empty universe error")
	}
}
