// Package money formats donation amounts. Colombian pesos have no
// fractional display, so amounts are whole-peso int64 values everywhere
// and cents only appear on the gateway wire.
package money

import "strconv"

// FormatCOP renders a whole-peso amount the way donors see it,
// e.g. 1250000 -> "$1.250.000".
func FormatCOP(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}

	prefix := "$"
	if negative {
		prefix = "-$"
	}
	return prefix + string(out)
}

// ToCents converts a whole-peso amount to the gateway's cents unit.
func ToCents(amount int64) int64 { return amount * 100 }

// FromCents converts a gateway cents amount back to whole pesos,
// rounding halves up.
func FromCents(cents int64) int64 {
	if cents >= 0 {
		return (cents + 50) / 100
	}
	return -((-cents + 50) / 100)
}
