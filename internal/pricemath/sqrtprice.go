// Package pricemath encodes AMM pair prices in the Q64.96 square-root
// fixed-point format used by concentrated-liquidity pools.
package pricemath

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

var (
	// Q96 is the UQ64.96 fixed-point number representing 1.
	Q96 = new(big.Int).Lsh(big.NewInt(1), 96)
	// Q192 is Q96 squared, the scale of a squared sqrt price.
	Q192 = new(big.Int).Lsh(big.NewInt(1), 192)
	// Resolution is the number of fractional bits in the Q96 format.
	Resolution = uint(96)

	ErrZeroReserve0    = errors.New("reserve0 must be greater than zero")
	ErrNegativeReserve = errors.New("reserves must not be negative")
	ErrRatioOverflow   = errors.New("price ratio exceeds float64 range")

	q96Float = new(big.Float).SetInt(Q96)
	ten      = big.NewInt(10)
)

// Policy selects the arithmetic used to evaluate sqrt(ratio) * 2^96.
type Policy string

const (
	// PolicyExact computes floor(sqrt(ratio) * 2^96) in arbitrary-precision
	// integer arithmetic. This is the default.
	PolicyExact Policy = "exact"
	// PolicyFloat64 rounds the ratio once to the nearest float64 and takes
	// the IEEE-754 square root before scaling.
	PolicyFloat64 Policy = "float64"
)

// ParsePolicy maps a configuration string to a Policy. The empty string
// selects PolicyExact.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyExact:
		return PolicyExact, nil
	case PolicyFloat64:
		return PolicyFloat64, nil
	default:
		return "", fmt.Errorf("unknown precision policy %q", s)
	}
}

// SqrtPriceX96 encodes the price of token1 in units of token0 as
// floor(sqrt(ratio) * 2^96), where ratio is the quotient of the two reserves
// after each is normalized by its token's decimals. A nil reserve counts as
// zero. Zero reserve1 encodes to zero; zero reserve0 is an error.
func SqrtPriceX96(reserve0, reserve1 *big.Int, decimals0, decimals1 uint8, policy Policy) (*big.Int, error) {
	num, den, err := ratioFrac(reserve0, reserve1, decimals0, decimals1)
	if err != nil {
		return nil, err
	}
	if policy == PolicyFloat64 {
		return sqrtPriceFloat64(num, den)
	}
	return sqrtPriceExact(num, den), nil
}

// Ratio returns the exact normalized price ratio
// (reserve1 / 10^decimals1) / (reserve0 / 10^decimals0).
func Ratio(reserve0, reserve1 *big.Int, decimals0, decimals1 uint8) (*big.Rat, error) {
	num, den, err := ratioFrac(reserve0, reserve1, decimals0, decimals1)
	if err != nil {
		return nil, err
	}
	return new(big.Rat).SetFrac(num, den), nil
}

// RatioFromSqrtPriceX96 inverts the encoding: (sqrtPriceX96 / 2^96)^2.
func RatioFromSqrtPriceX96(sqrtPriceX96 *big.Int) *big.Rat {
	if sqrtPriceX96 == nil {
		return new(big.Rat)
	}
	square := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	return new(big.Rat).SetFrac(square, Q192)
}

// ratioFrac validates the reserves and returns the ratio as an unreduced
// fraction num/den with den > 0.
func ratioFrac(reserve0, reserve1 *big.Int, decimals0, decimals1 uint8) (*big.Int, *big.Int, error) {
	if reserve0 == nil {
		reserve0 = new(big.Int)
	}
	if reserve1 == nil {
		reserve1 = new(big.Int)
	}
	if reserve0.Sign() < 0 || reserve1.Sign() < 0 {
		return nil, nil, ErrNegativeReserve
	}
	if reserve0.Sign() == 0 {
		return nil, nil, ErrZeroReserve0
	}
	num := new(big.Int).Mul(reserve1, pow10(decimals0))
	den := new(big.Int).Mul(reserve0, pow10(decimals1))
	return num, den, nil
}

// sqrtPriceExact computes floor(sqrt(num/den) * 2^96) without rounding error
// as floor(sqrt(num * 2^192 / den)). Flooring the inner quotient first is
// safe: floor(sqrt(x)) equals floor(sqrt(floor(x))) for any real x >= 0.
func sqrtPriceExact(num, den *big.Int) *big.Int {
	if num.Sign() == 0 {
		return new(big.Int)
	}
	scaled := new(big.Int).Mul(num, Q192)
	scaled.Quo(scaled, den)
	return scaled.Sqrt(scaled)
}

// sqrtPriceFloat64 evaluates the ratio in double precision. The exact
// fraction is rounded once to the nearest float64, the square root is the
// correctly rounded hardware sqrt, and the 2^96 scale only shifts the
// float exponent, so the final truncation is the sole remaining loss.
func sqrtPriceFloat64(num, den *big.Int) (*big.Int, error) {
	ratio, _ := new(big.Rat).SetFrac(num, den).Float64()
	if math.IsInf(ratio, 0) {
		return nil, ErrRatioOverflow
	}
	scaled := new(big.Float).SetFloat64(math.Sqrt(ratio))
	scaled.Mul(scaled, q96Float)
	out, _ := scaled.Int(nil)
	return out, nil
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(n)), nil)
}
