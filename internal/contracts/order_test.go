package contracts

import "testing"

func TestQuantity_Resolve(t *testing.T) {
	if got := Shares(10).Resolve(100); got != 10 {
		t.Errorf("Shares(10).Resolve(100) = %d, want 10", got)
	}
	if got := AllHeld().Resolve(37); got != 37 {
		t.Errorf("AllHeld().Resolve(37) = %d, want 37", got)
	}
	if got := AllHeld().Resolve(0); got != 0 {
		t.Errorf("AllHeld().Resolve(0) = %d, want 0", got)
	}
}

func TestQuantity_IsAll(t *testing.T) {
	if Shares(5).IsAll() {
		t.Error("Shares(5).IsAll() = true, want false")
	}
	if !AllHeld().IsAll() {
		t.Error("AllHeld().IsAll() = false, want true")
	}
}

func TestFill_Value(t *testing.T) {
	fill := &Fill{Side: SideBuy, Ticker: "aapl", Qty: 10, Price: 150.5}
	if got := fill.Value(); got != 1505.0 {
		t.Errorf("Value() = %v, want 1505.0", got)
	}
}

func TestSide_Constants(t *testing.T) {
	if SideBuy != "BUY" {
		t.Errorf("SideBuy = %s, want BUY", SideBuy)
	}
	if SideSell != "SELL" {
		t.Errorf("SideSell = %s, want SELL", SideSell)
	}
}
