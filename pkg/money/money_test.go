package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLineSubtotal(t *testing.T) {
	tests := []struct {
		price string
		qty   int
		want  string
	}{
		{price: "10.00", qty: 3, want: "30"},
		{price: "0.1", qty: 3, want: "0.3"},
		{price: "19.995", qty: 1, want: "20"},
		{price: "2.333", qty: 3, want: "7"},
	}
	for _, tt := range tests {
		got := LineSubtotal(decimal.RequireFromString(tt.price), tt.qty)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Fatalf("LineSubtotal(%s, %d) = %s, want %s", tt.price, tt.qty, got, tt.want)
		}
	}
}

func TestUnitPriceFromSubtotal(t *testing.T) {
	got := UnitPriceFromSubtotal(decimal.RequireFromString("30.00"), 3)
	if !got.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected 10, got %s", got)
	}
	if !UnitPriceFromSubtotal(decimal.RequireFromString("10"), 0).IsZero() {
		t.Fatal("zero quantity should yield zero unit price")
	}
}

func TestSumRounds(t *testing.T) {
	got := Sum(
		decimal.RequireFromString("1.111"),
		decimal.RequireFromString("2.222"),
	)
	if !got.Equal(decimal.RequireFromString("3.33")) {
		t.Fatalf("expected 3.33, got %s", got)
	}
}
