package curve

import (
	"errors"
	"math/bits"
)

// ErrMathOverflow is returned when a price computation would wrap around
// uint64. Callers must treat it as a terminal rejection of the operation.
var ErrMathOverflow = errors.New("math overflow")

// CurrentPrice computes the price required for the next accepted bid on a
// linear bonding curve: base_price + price_increment * current_supply.
// All arithmetic is checked; the function fails closed instead of wrapping.
func CurrentPrice(basePrice, priceIncrement, currentSupply uint64) (uint64, error) {
	step, err := CheckedMul(priceIncrement, currentSupply)
	if err != nil {
		return 0, err
	}
	return CheckedAdd(basePrice, step)
}

// CheckedAdd returns a + b or ErrMathOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

// CheckedMul returns a * b or ErrMathOverflow.
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrMathOverflow
	}
	return lo, nil
}

// CheckedSub returns a - b or ErrMathOverflow on underflow.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrMathOverflow
	}
	return diff, nil
}
