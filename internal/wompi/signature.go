package wompi

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// IntegritySignature computes the checkout integrity hash over
// reference + amount-in-cents + currency + secret, the field order the
// gateway documents. The widget sends the same hash so a client-side
// amount edit invalidates the checkout.
func IntegritySignature(reference string, amountInCents int64, currency, secret string) string {
	h := sha256.New()
	h.Write([]byte(reference))
	h.Write([]byte(strconv.FormatInt(amountInCents, 10)))
	h.Write([]byte(currency))
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}
