package risk

import "testing"

func TestAllowNotional(t *testing.T) {
	l := Limits{MaxNotional: 100}
	if !l.AllowNotional(100) {
		t.Fatalf("notional at cap should pass")
	}
	if l.AllowNotional(100.01) {
		t.Fatalf("notional over cap should fail")
	}
	if !(Limits{}).AllowNotional(1e9) {
		t.Fatalf("zero cap means unlimited")
	}
}

func TestAllowOpen(t *testing.T) {
	l := Limits{MaxConcurrentOpen: 2}
	if !l.AllowOpen(1) {
		t.Fatalf("below cap should pass")
	}
	if l.AllowOpen(2) {
		t.Fatalf("at cap should fail")
	}
}

func TestClampNotional(t *testing.T) {
	l := Limits{MaxNotional: 50}
	if got := l.ClampNotional(80); got != 50 {
		t.Fatalf("expected clamp to 50, got %v", got)
	}
	if got := l.ClampNotional(20); got != 20 {
		t.Fatalf("expected 20 unchanged, got %v", got)
	}
}
