package vault

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

const (
	// DefaultFeeBps is the issuance fee applied on top of the base unit price.
	DefaultFeeBps = 100
	// FeeBpsDenominator defines the fixed denominator for fee basis points.
	FeeBpsDenominator = 10_000
)

// DefaultUnitScale converts one curve unit into the reference accounting unit
// (one satoshi expressed as 1e10 wei-equivalent in the source system).
var DefaultUnitScale = big.NewInt(10_000_000_000)

// CurveParams fixes the bonding curve used to price sequential units. The
// price of the unit at 0-indexed position n is
//
//	base = (n+1) * UnitScale
//	price = base + base*FeeBps/10_000
//
// making the curve a pure, strictly increasing function of the position.
type CurveParams struct {
	UnitScale *big.Int
	FeeBps    uint64
}

// DefaultCurveParams returns the production curve constants.
func DefaultCurveParams() CurveParams {
	return CurveParams{UnitScale: new(big.Int).Set(DefaultUnitScale), FeeBps: DefaultFeeBps}
}

// Validate ensures the curve constants fall within acceptable bounds.
func (c CurveParams) Validate() error {
	if c.UnitScale == nil || c.UnitScale.Sign() <= 0 {
		return errors.New("vault: unit scale must be positive")
	}
	if c.FeeBps > FeeBpsDenominator {
		return errors.New("vault: fee bps must not exceed the denominator")
	}
	return nil
}

// UnitPrice returns the price of the unit at the given 0-indexed issuance
// position. The result is always a fresh big.Int. Intermediate values beyond
// 256 bits surface ErrArithmeticOverflow rather than wrapping.
func (c CurveParams) UnitPrice(position uint64) (*big.Int, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	n := new(big.Int).SetUint64(position)
	n.Add(n, big.NewInt(1))
	base := new(big.Int).Mul(n, c.UnitScale)
	if err := checkUint256(base); err != nil {
		return nil, err
	}
	fee := new(big.Int).Mul(base, new(big.Int).SetUint64(c.FeeBps))
	fee.Quo(fee, big.NewInt(FeeBpsDenominator))
	price := new(big.Int).Add(base, fee)
	if err := checkUint256(price); err != nil {
		return nil, err
	}
	return price, nil
}

// CumulativeCost returns the summed price of count consecutive units starting
// at the given 0-indexed position.
func (c CurveParams) CumulativeCost(start, count uint64) (*big.Int, error) {
	total := big.NewInt(0)
	for i := uint64(0); i < count; i++ {
		price, err := c.UnitPrice(start + i)
		if err != nil {
			return nil, err
		}
		total.Add(total, price)
		if err := checkUint256(total); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// Clone returns a deep copy of the curve parameters.
func (c CurveParams) Clone() CurveParams {
	clone := CurveParams{FeeBps: c.FeeBps}
	if c.UnitScale != nil {
		clone.UnitScale = new(big.Int).Set(c.UnitScale)
	}
	return clone
}

// checkUint256 rejects values outside the 256-bit word the source system
// computes in.
func checkUint256(v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return ErrArithmeticOverflow
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return ErrArithmeticOverflow
	}
	return nil
}
