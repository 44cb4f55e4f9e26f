package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingSignature = errors.New("webhook: missing signature header")
	ErrInvalidSignature = errors.New("webhook: signature mismatch")
	ErrEventExpired     = errors.New("webhook: event timestamp outside tolerance")
	ErrInvalidPayload   = errors.New("webhook: malformed payload")
	ErrMissingSecret    = errors.New("webhook: events secret not configured")
)

// Replay window for event timestamps.
const signatureTolerance = 5 * time.Minute

// VerifySignature authenticates a raw webhook body against the header's
// `t=<unix-seconds>,v1=<hex-hmac>` tokens. The HMAC covers
// "<timestamp>.<rawBody>", so the body must be the exact bytes received,
// hashed before any JSON parsing. Comparison is constant-time and the
// timestamp must fall within the replay window even when the signature
// itself is valid.
func VerifySignature(secret string, body []byte, header string, now time.Time) error {
	timestamp, signature, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}

	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	eventTime := time.Unix(seconds, 0)
	if drift := now.Sub(eventTime); drift > signatureTolerance || drift < -signatureTolerance {
		return ErrEventExpired
	}
	return nil
}

func parseSignatureHeader(header string) (timestamp, signature string, err error) {
	for _, part := range strings.Split(header, ",") {
		piece := strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(piece, "t="):
			timestamp = piece[len("t="):]
		case strings.HasPrefix(piece, "v1="):
			signature = piece[len("v1="):]
		}
	}
	if timestamp == "" || signature == "" {
		return "", "", ErrMissingSignature
	}
	return timestamp, signature, nil
}
