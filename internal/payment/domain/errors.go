package domain

import "errors"

var (
	// ErrDuplicateEvent marks a webhook event whose (transaction id,
	// event type) pair was already logged. Benign: the delivery is
	// acknowledged without reprocessing.
	ErrDuplicateEvent = errors.New("payment: duplicate webhook event")
)
