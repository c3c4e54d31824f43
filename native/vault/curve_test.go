package vault

import (
	"errors"
	"math/big"
	"testing"
)

func TestUnitPriceFormula(t *testing.T) {
	params := DefaultCurveParams()
	cases := []struct {
		position uint64
		want     int64
	}{
		{0, 10_100_000_000},
		{1, 20_200_000_000},
		{2, 30_300_000_000},
		{9, 101_000_000_000},
	}
	for _, tc := range cases {
		price, err := params.UnitPrice(tc.position)
		if err != nil {
			t.Fatalf("unit price at %d: %v", tc.position, err)
		}
		if price.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("unit price at %d: expected %d, got %s", tc.position, tc.want, price)
		}
	}
}

func TestUnitPriceMonotonic(t *testing.T) {
	params := DefaultCurveParams()
	prev, err := params.UnitPrice(0)
	if err != nil {
		t.Fatalf("unit price at 0: %v", err)
	}
	for position := uint64(1); position < 1000; position++ {
		price, err := params.UnitPrice(position)
		if err != nil {
			t.Fatalf("unit price at %d: %v", position, err)
		}
		if price.Cmp(prev) <= 0 {
			t.Fatalf("curve not strictly increasing at %d: %s <= %s", position, price, prev)
		}
		prev = price
	}
}

func TestUnitPricePure(t *testing.T) {
	params := DefaultCurveParams()
	first, err := params.UnitPrice(42)
	if err != nil {
		t.Fatalf("unit price: %v", err)
	}
	second, err := params.UnitPrice(42)
	if err != nil {
		t.Fatalf("unit price: %v", err)
	}
	if first.Cmp(second) != 0 {
		t.Fatalf("price not reproducible: %s vs %s", first, second)
	}
}

func TestUnitPriceOverflow(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 255)
	params := CurveParams{UnitScale: huge, FeeBps: 0}
	if _, err := params.UnitPrice(0); err != nil {
		t.Fatalf("price at position 0 should still fit: %v", err)
	}
	_, err := params.UnitPrice(1)
	if !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow error, got %v", err)
	}
}

func TestCumulativeCost(t *testing.T) {
	params := DefaultCurveParams()
	cost, err := params.CumulativeCost(0, 3)
	if err != nil {
		t.Fatalf("cumulative cost: %v", err)
	}
	if cost.Cmp(big.NewInt(60_600_000_000)) != 0 {
		t.Fatalf("expected 60600000000, got %s", cost)
	}
	zero, err := params.CumulativeCost(5, 0)
	if err != nil {
		t.Fatalf("cumulative cost of zero units: %v", err)
	}
	if zero.Sign() != 0 {
		t.Fatalf("expected zero cost, got %s", zero)
	}
}
