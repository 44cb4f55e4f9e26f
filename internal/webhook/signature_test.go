package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func signHeader(t *testing.T, secret string, body []byte, at time.Time) string {
	t.Helper()
	timestamp := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(body)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignatureValid(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	body := []byte(`{"event":"transaction.updated"}`)
	header := signHeader(t, "events_secret", body, now)

	require.NoError(t, VerifySignature("events_secret", body, header, now))
}

func TestVerifySignatureMissingHeader(t *testing.T) {
	now := time.Now()
	require.ErrorIs(t, VerifySignature("s", []byte("{}"), "", now), ErrMissingSignature)
	require.ErrorIs(t, VerifySignature("s", []byte("{}"), "t=123", now), ErrMissingSignature)
	require.ErrorIs(t, VerifySignature("s", []byte("{}"), "v1=abc", now), ErrMissingSignature)
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	now := time.Now()
	body := []byte("{}")
	header := signHeader(t, "other_secret", body, now)

	require.ErrorIs(t, VerifySignature("events_secret", body, header, now), ErrInvalidSignature)
}

func TestVerifySignatureTamperedBody(t *testing.T) {
	now := time.Now()
	header := signHeader(t, "events_secret", []byte(`{"amount":100}`), now)

	err := VerifySignature("events_secret", []byte(`{"amount":999}`), header, now)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignatureExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	body := []byte("{}")

	// Valid HMAC, but signed past the replay window in either direction.
	stale := signHeader(t, "events_secret", body, now.Add(-6*time.Minute))
	require.ErrorIs(t, VerifySignature("events_secret", body, stale, now), ErrEventExpired)

	future := signHeader(t, "events_secret", body, now.Add(6*time.Minute))
	require.ErrorIs(t, VerifySignature("events_secret", body, future, now), ErrEventExpired)

	edge := signHeader(t, "events_secret", body, now.Add(-4*time.Minute))
	require.NoError(t, VerifySignature("events_secret", body, edge, now))
}
