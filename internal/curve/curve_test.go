package curve_test

import (
	"AuctionLedger/internal/curve"
	"errors"
	"math"
	"testing"
)

func TestCurrentPrice_Linear(t *testing.T) {
	cases := []struct {
		name       string
		base, incr uint64
		supply     uint64
		want       uint64
	}{
		{"zero supply", 10, 5, 0, 10},
		{"first unit sold", 10, 5, 1, 15},
		{"third unit sold", 10, 5, 3, 25},
		{"flat curve", 100, 0, 50, 100},
		{"free base", 0, 7, 4, 28},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := curve.CurrentPrice(tc.base, tc.incr, tc.supply)
			if err != nil {
				t.Fatalf("CurrentPrice failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCurrentPrice_MulOverflow(t *testing.T) {
	_, err := curve.CurrentPrice(0, math.MaxUint64, 2)
	if !errors.Is(err, curve.ErrMathOverflow) {
		t.Errorf("expected ErrMathOverflow, got %v", err)
	}
}

func TestCurrentPrice_AddOverflow(t *testing.T) {
	_, err := curve.CurrentPrice(math.MaxUint64, 1, 1)
	if !errors.Is(err, curve.ErrMathOverflow) {
		t.Errorf("expected ErrMathOverflow, got %v", err)
	}
}

func TestCurrentPrice_MaxRepresentable(t *testing.T) {
	// price_increment * max_supply + base_price exactly at MaxUint64 is valid.
	got, err := curve.CurrentPrice(math.MaxUint64-10, 5, 2)
	if err != nil {
		t.Fatalf("price at the top of the range should not overflow: %v", err)
	}
	if got != math.MaxUint64 {
		t.Errorf("got %d, want MaxUint64", got)
	}
}

func TestCheckedSub_Underflow(t *testing.T) {
	_, err := curve.CheckedSub(3, 4)
	if !errors.Is(err, curve.ErrMathOverflow) {
		t.Errorf("expected ErrMathOverflow, got %v", err)
	}

	v, err := curve.CheckedSub(4, 4)
	if err != nil || v != 0 {
		t.Errorf("4-4: got (%d, %v), want (0, nil)", v, err)
	}
}
