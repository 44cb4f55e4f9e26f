package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCOP(t *testing.T) {
	cases := map[int64]string{
		0:        "$0",
		999:      "$999",
		1000:     "$1.000",
		10000:    "$10.000",
		1250000:  "$1.250.000",
		-50000:   "-$50.000",
	}
	for amount, want := range cases {
		assert.Equal(t, want, FormatCOP(amount))
	}
}

func TestCentsRoundTrip(t *testing.T) {
	assert.Equal(t, int64(1000000), ToCents(10000))
	assert.Equal(t, int64(10000), FromCents(1000000))
	// Rounding on odd cents
	assert.Equal(t, int64(100), FromCents(10049))
	assert.Equal(t, int64(101), FromCents(10050))
}
