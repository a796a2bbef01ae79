package pricemath

import (
	"errors"
	"math/big"
	"testing"
)

func mustBig(t *testing.T, text string) *big.Int {
	v, ok := new(big.Int).SetString(text, 10)
	if !ok {
		t.Fatalf("invalid integer literal %q", text)
	}
	return v
}

func TestSqrtPriceX96Identity(t *testing.T) {
	reserve := mustBig(t, "1000000000000000000")
	for _, policy := range []Policy{PolicyExact, PolicyFloat64} {
		got, err := SqrtPriceX96(reserve, reserve, 18, 18, policy)
		if err != nil {
			t.Fatalf("policy %s: unexpected error: %v", policy, err)
		}
		if got.Cmp(Q96) != 0 {
			t.Fatalf("policy %s: identity price = %s, want %s", policy, got, Q96)
		}
	}
}

func TestSqrtPriceX96KnownValues(t *testing.T) {
	cases := []struct {
		name      string
		reserve0  string
		decimals0 uint8
		reserve1  string
		decimals1 uint8
		policy    Policy
		want      string
	}{
		{"ratio 1700 exact", "1000000000000000000", 18, "1700000000000000000000", 18, PolicyExact, "3266660825699135434887405499641"},
		{"ratio 1700 float64", "1000000000000000000", 18, "1700000000000000000000", 18, PolicyFloat64, "3266660825699135604008626946048"},
		{"mixed decimals exact", "6300000", 6, "473600000000000000000", 18, PolicyExact, "686934226869142594926762539696"},
		{"mixed decimals float64", "6300000", 6, "473600000000000000000", 18, PolicyFloat64, "686934226869142594886326812672"},
		{"ratio 4 exact", "1", 0, "4", 0, PolicyExact, "158456325028528675187087900672"},
		{"ratio 4 float64", "1", 0, "4", 0, PolicyFloat64, "158456325028528675187087900672"},
		{"ratio 1/100 exact", "1", 0, "1", 2, PolicyExact, "7922816251426433759354395033"},
		{"ratio 1/100 float64", "1", 0, "1", 2, PolicyFloat64, "7922816251426434199159046144"},
	}

	for _, tc := range cases {
		got, err := SqrtPriceX96(mustBig(t, tc.reserve0), mustBig(t, tc.reserve1), tc.decimals0, tc.decimals1, tc.policy)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got.String() != tc.want {
			t.Fatalf("%s: sqrt price = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestSqrtPriceX96ZeroReserve1(t *testing.T) {
	reserve0 := mustBig(t, "5000000000000000000")
	for _, policy := range []Policy{PolicyExact, PolicyFloat64} {
		got, err := SqrtPriceX96(reserve0, big.NewInt(0), 18, 18, policy)
		if err != nil {
			t.Fatalf("policy %s: unexpected error: %v", policy, err)
		}
		if got.Sign() != 0 {
			t.Fatalf("policy %s: empty pool price = %s, want 0", policy, got)
		}
	}
}

func TestSqrtPriceX96InvalidReserves(t *testing.T) {
	one := big.NewInt(1)
	for _, policy := range []Policy{PolicyExact, PolicyFloat64} {
		if _, err := SqrtPriceX96(big.NewInt(0), one, 18, 18, policy); !errors.Is(err, ErrZeroReserve0) {
			t.Fatalf("policy %s: zero reserve0 error = %v, want %v", policy, err, ErrZeroReserve0)
		}
		if _, err := SqrtPriceX96(nil, one, 18, 18, policy); !errors.Is(err, ErrZeroReserve0) {
			t.Fatalf("policy %s: nil reserve0 error = %v, want %v", policy, err, ErrZeroReserve0)
		}
		if _, err := SqrtPriceX96(big.NewInt(-1), one, 18, 18, policy); !errors.Is(err, ErrNegativeReserve) {
			t.Fatalf("policy %s: negative reserve0 error = %v, want %v", policy, err, ErrNegativeReserve)
		}
		if _, err := SqrtPriceX96(one, big.NewInt(-1), 18, 18, policy); !errors.Is(err, ErrNegativeReserve) {
			t.Fatalf("policy %s: negative reserve1 error = %v, want %v", policy, err, ErrNegativeReserve)
		}
		got, err := SqrtPriceX96(one, nil, 18, 18, policy)
		if err != nil {
			t.Fatalf("policy %s: nil reserve1 error: %v", policy, err)
		}
		if got.Sign() != 0 {
			t.Fatalf("policy %s: nil reserve1 price = %s, want 0", policy, got)
		}
	}
}

func TestSqrtPriceX96PolicyDivergence(t *testing.T) {
	reserve0 := mustBig(t, "1234567890123456789012345678")
	reserve1 := mustBig(t, "987654321098765432109876543210")

	exact, err := SqrtPriceX96(reserve0, reserve1, 18, 6, PolicyExact)
	if err != nil {
		t.Fatalf("exact: unexpected error: %v", err)
	}
	approx, err := SqrtPriceX96(reserve0, reserve1, 18, 6, PolicyFloat64)
	if err != nil {
		t.Fatalf("float64: unexpected error: %v", err)
	}

	wantExact := mustBig(t, "2240910849201595676556419158777562451")
	wantApprox := mustBig(t, "2240910849201595886949780778232315904")
	if exact.Cmp(wantExact) != 0 {
		t.Fatalf("exact = %s, want %s", exact, wantExact)
	}
	if approx.Cmp(wantApprox) != 0 {
		t.Fatalf("float64 = %s, want %s", approx, wantApprox)
	}
	if exact.Cmp(approx) == 0 {
		t.Fatalf("policies agreed on %s, expected float64 rounding drift", exact)
	}
}

func TestSqrtPriceX96ScalingInvariance(t *testing.T) {
	reserve0 := mustBig(t, "6300000")
	reserve1 := mustBig(t, "473600000000000000000")

	for _, policy := range []Policy{PolicyExact, PolicyFloat64} {
		base, err := SqrtPriceX96(reserve0, reserve1, 6, 18, policy)
		if err != nil {
			t.Fatalf("policy %s: unexpected error: %v", policy, err)
		}
		for k := uint8(1); k <= 6; k++ {
			scale := pow10(k)

			scaled0 := new(big.Int).Mul(reserve0, scale)
			got, err := SqrtPriceX96(scaled0, reserve1, 6+k, 18, policy)
			if err != nil {
				t.Fatalf("policy %s k=%d: unexpected error: %v", policy, k, err)
			}
			if got.Cmp(base) != 0 {
				t.Fatalf("policy %s: rescaling reserve0 by 10^%d moved price %s -> %s", policy, k, base, got)
			}

			scaled1 := new(big.Int).Mul(reserve1, scale)
			got, err = SqrtPriceX96(reserve0, scaled1, 6, 18+k, policy)
			if err != nil {
				t.Fatalf("policy %s k=%d: unexpected error: %v", policy, k, err)
			}
			if got.Cmp(base) != 0 {
				t.Fatalf("policy %s: rescaling reserve1 by 10^%d moved price %s -> %s", policy, k, base, got)
			}
		}
	}
}

func TestSqrtPriceX96Float64Overflow(t *testing.T) {
	huge := new(big.Int).Exp(big.NewInt(10), big.NewInt(309), nil)
	one := big.NewInt(1)

	if _, err := SqrtPriceX96(one, huge, 0, 0, PolicyFloat64); !errors.Is(err, ErrRatioOverflow) {
		t.Fatalf("overflow error = %v, want %v", err, ErrRatioOverflow)
	}

	// The exact policy has no range limit.
	got, err := SqrtPriceX96(one, huge, 0, 0, PolicyExact)
	if err != nil {
		t.Fatalf("exact: unexpected error: %v", err)
	}
	if got.Sign() <= 0 {
		t.Fatalf("exact overflow-range price = %s, want positive", got)
	}

	// A ratio that underflows float64 encodes to zero under both policies.
	for _, policy := range []Policy{PolicyExact, PolicyFloat64} {
		got, err := SqrtPriceX96(huge, one, 0, 0, policy)
		if err != nil {
			t.Fatalf("policy %s: unexpected error: %v", policy, err)
		}
		if got.Sign() != 0 {
			t.Fatalf("policy %s: underflow price = %s, want 0", policy, got)
		}
	}
}

func TestSqrtPriceX96RoundTrip(t *testing.T) {
	cases := []struct {
		name      string
		reserve0  string
		decimals0 uint8
		reserve1  string
		decimals1 uint8
	}{
		{"identity", "1000000000000000000", 18, "1000000000000000000", 18},
		{"ratio 1700", "1000000000000000000", 18, "1700000000000000000000", 18},
		{"mixed decimals", "6300000", 6, "473600000000000000000", 18},
		{"large reserves", "1234567890123456789012345678", 18, "987654321098765432109876543210", 6},
		{"tiny ratio", "1", 0, "1", 2},
	}

	two := big.NewInt(2)
	one := big.NewInt(1)
	for _, tc := range cases {
		reserve0 := mustBig(t, tc.reserve0)
		reserve1 := mustBig(t, tc.reserve1)

		price, err := SqrtPriceX96(reserve0, reserve1, tc.decimals0, tc.decimals1, PolicyExact)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		ratio, err := Ratio(reserve0, reserve1, tc.decimals0, tc.decimals1)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}

		diff := new(big.Rat).Sub(ratio, RatioFromSqrtPriceX96(price))
		if diff.Sign() < 0 {
			t.Fatalf("%s: decoded ratio exceeds the input ratio by %s", tc.name, new(big.Rat).Neg(diff).FloatString(40))
		}
		// The floor can undershoot by at most (2s+1) / 2^192.
		slack := new(big.Int).Mul(two, price)
		slack.Add(slack, one)
		bound := new(big.Rat).SetFrac(slack, Q192)
		if diff.Cmp(bound) > 0 {
			t.Fatalf("%s: floor error %s exceeds bound %s", tc.name, diff.FloatString(40), bound.FloatString(40))
		}
	}
}

func TestRatio(t *testing.T) {
	ratio, err := Ratio(mustBig(t, "6300000"), mustBig(t, "473600000000000000000"), 6, 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ratio.RatString(); got != "4736/63" {
		t.Fatalf("ratio = %s, want 4736/63", got)
	}

	if _, err := Ratio(big.NewInt(0), big.NewInt(1), 0, 0); !errors.Is(err, ErrZeroReserve0) {
		t.Fatalf("zero reserve0 error = %v, want %v", err, ErrZeroReserve0)
	}
}

func TestParsePolicy(t *testing.T) {
	cases := []struct {
		in   string
		want Policy
	}{
		{"", PolicyExact},
		{"exact", PolicyExact},
		{"float64", PolicyFloat64},
	}
	for _, tc := range cases {
		got, err := ParsePolicy(tc.in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: policy = %s, want %s", tc.in, got, tc.want)
		}
	}

	if _, err := ParsePolicy("decimal128"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
