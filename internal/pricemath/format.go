package pricemath

import "math/big"

// ratioScale is the number of fractional digits used when rendering ratios.
const ratioScale = 18

// FormatAmount renders a raw token value as a decimal string normalized by
// the token's decimals.
func FormatAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	rat := new(big.Rat).SetFrac(abs, pow10(decimals))
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

// FormatRatio renders a price ratio with a fixed number of fractional digits.
func FormatRatio(ratio *big.Rat) string {
	if ratio == nil {
		return "0"
	}
	return ratio.FloatString(ratioScale)
}

// FormatHex renders a sqrt price as lowercase 0x-prefixed hex.
func FormatHex(value *big.Int) string {
	if value == nil {
		return "0x0"
	}
	return "0x" + value.Text(16)
}
