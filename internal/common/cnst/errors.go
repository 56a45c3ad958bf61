package cnst

import "errors"

var (
	// ErrDuplicateVariantID is returned when a variant id is duplicated in config
	ErrDuplicateVariantID = errors.New("duplicate variant id")
	// ErrInvalidVariantWeight is returned when a variant weight is not positive
	ErrInvalidVariantWeight = errors.New("variant weight must be positive")
	// ErrNotReceiver is returned when a notifier cannot receive updates
	ErrNotReceiver = errors.New("notifier cannot receive updates")
	// ErrNotSender is returned when a notifier cannot send updates
	ErrNotSender = errors.New("notifier cannot send updates")
)
